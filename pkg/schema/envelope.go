package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// CommandEnvelope is the wire form of a domain command.
type CommandEnvelope struct {
	Kind     string `json:"kind" mapstructure:"kind" validate:"required,command_kind"`
	Path     []int  `json:"path" mapstructure:"path" validate:"required"`
	Name     string `json:"name,omitempty" mapstructure:"name" validate:"name_size"`
	MasterID string `json:"master_id,omitempty" mapstructure:"master_id" validate:"required_if=Kind assign_master,name_size"`
}

// envelopeValidate is the validator instance for envelopes.
// Initialized in init() with the custom rules.
var envelopeValidate *validator.Validate

func init() {
	envelopeValidate = validator.New(validator.WithRequiredStructEnabled())
	envelopeValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = envelopeValidate.RegisterValidation("command_kind", func(fl validator.FieldLevel) bool {
		_, ok := NormalizeKind(fl.Field().String())
		return ok
	})
	_ = envelopeValidate.RegisterValidation("name_size", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxNameSize()
	})
}

var kindAliases = map[string]domain.CommandKind{
	"before": domain.KindInsertBefore,
	"after":  domain.KindInsertAfter,
	"child":  domain.KindInsertChild,
	"wrap":   domain.KindInsertChild,
	"rm":     domain.KindRemove,
	"tag":    domain.KindAssignMaster,
	"master": domain.KindAssignMaster,
}

// NormalizeKind maps a kind as typed by a user to its canonical name.
// Case is ignored and dashes are equivalent to underscores.
func NormalizeKind(s string) (domain.CommandKind, bool) {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, known := range domain.CommandKinds {
		if k == string(known) {
			return known, true
		}
	}
	alias, ok := kindAliases[k]
	return alias, ok
}

// Validate checks the envelope fields.
func (e CommandEnvelope) Validate() error {
	if err := envelopeValidate.Struct(e); err != nil {
		return fromValidator(err)
	}
	return nil
}

// Command validates the envelope and converts it into a domain command.
// Names and master ids are sanitized.
func (e CommandEnvelope) Command() (domain.Command, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	kind, _ := NormalizeKind(e.Kind)
	path, err := envelopePath(e.Path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindInsertBefore:
		return domain.InsertBefore{Path: path}, nil
	case domain.KindInsertAfter:
		return domain.InsertAfter{Path: path}, nil
	case domain.KindInsertChild:
		return domain.InsertChild{Path: path}, nil
	case domain.KindRename:
		name, err := SanitizeName(e.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		return domain.Rename{Path: path, Name: name}, nil
	case domain.KindRemove:
		return domain.Remove{Path: path}, nil
	case domain.KindAssignMaster:
		master, err := SanitizeName(e.MasterID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		if master == "" {
			return nil, &ValidationError{Fields: []FieldError{{Field: "master_id", Rule: "required_if"}}}
		}
		return domain.AssignMaster{Path: path, MasterID: master}, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, e.Kind)
}

// envelopePath copies a wire path, reporting empty paths and negative
// indices the same way ParsePath does.
func envelopePath(raw []int) (domain.Path, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty path", domain.ErrPathOutOfRange)
	}
	for i, idx := range raw {
		if idx < 0 {
			return nil, &domain.PathError{Path: domain.Path(raw[:i:i]), Depth: i, Index: idx}
		}
	}
	return domain.Path(append([]int(nil), raw...)), nil
}

// FromCommand returns the envelope describing cmd.
func FromCommand(cmd domain.Command) CommandEnvelope {
	env := CommandEnvelope{
		Kind: string(cmd.Kind()),
		Path: append([]int(nil), cmd.Target()...),
	}
	switch c := cmd.(type) {
	case domain.Rename:
		env.Name = c.Name
	case domain.AssignMaster:
		env.MasterID = c.MasterID
	}
	return env
}

// Decode reads one JSON envelope from r and converts it.
// Unknown fields are rejected.
func Decode(r io.Reader) (domain.Command, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var env CommandEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return env.Command()
}

// Encode writes the envelope of cmd to w.
func Encode(w io.Writer, cmd domain.Command) error {
	return json.NewEncoder(w).Encode(FromCommand(cmd))
}

// DecodeMap converts loosely typed arguments, such as MCP tool arguments,
// into a command. The path may be a list of numbers or a dotted string.
func DecodeMap(args map[string]any) (domain.Command, error) {
	var env CommandEnvelope
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       pathHook,
		WeaklyTypedInput: true,
		Result:           &env,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return env.Command()
}

// pathHook turns "0.1.2" into []int{0, 1, 2} when decoding into a path.
func pathHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]int(nil)) {
		return data, nil
	}
	p, err := domain.ParsePath(data.(string))
	if err != nil {
		return nil, err
	}
	return []int(p), nil
}

// ParseCommandLine parses the text form "<kind> <path> [argument]".
// Everything after the path is the argument, so names may contain spaces.
func ParseCommandLine(line string) (domain.Command, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: expected \"<kind> <path> [argument]\"", ErrInvalidCommand)
	}
	kind, ok := NormalizeKind(fields[0])
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, fields[0])
	}
	path, err := domain.ParsePath(fields[1])
	if err != nil {
		return nil, err
	}

	env := CommandEnvelope{Kind: string(kind), Path: path}
	arg := argument(line, 2)
	switch kind {
	case domain.KindRename:
		env.Name = arg
	case domain.KindAssignMaster:
		env.MasterID = arg
	}
	return env.Command()
}

// argument returns the rest of line after skipping n whitespace separated fields.
func argument(line string, n int) string {
	rest := strings.TrimSpace(line)
	for range n {
		i := strings.IndexFunc(rest, isSpace)
		if i < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[i:])
	}
	return rest
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' }
