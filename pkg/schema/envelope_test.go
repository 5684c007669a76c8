package schema_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    domain.Command
		wantErr error
	}{
		{name: "insert before", body: `{"kind":"insert_before","path":[0,1]}`, want: domain.InsertBefore{Path: domain.Path{0, 1}}},
		{name: "insert after", body: `{"kind":"insert_after","path":[2]}`, want: domain.InsertAfter{Path: domain.Path{2}}},
		{name: "insert child dashed", body: `{"kind":"insert-child","path":[0]}`, want: domain.InsertChild{Path: domain.Path{0}}},
		{name: "rename", body: `{"kind":"rename","path":[0],"name":"  Intro "}`, want: domain.Rename{Path: domain.Path{0}, Name: "Intro"}},
		{name: "rename clears", body: `{"kind":"rename","path":[0]}`, want: domain.Rename{Path: domain.Path{0}}},
		{name: "remove", body: `{"kind":"remove","path":[1,0]}`, want: domain.Remove{Path: domain.Path{1, 0}}},
		{name: "assign master", body: `{"kind":"assign_master","path":[0],"master_id":"m1"}`, want: domain.AssignMaster{Path: domain.Path{0}, MasterID: "m1"}},
		{name: "missing master", body: `{"kind":"assign_master","path":[0]}`, wantErr: schema.ErrInvalidCommand},
		{name: "unknown kind", body: `{"kind":"explode","path":[0]}`, wantErr: schema.ErrInvalidCommand},
		{name: "missing path", body: `{"kind":"remove"}`, wantErr: schema.ErrInvalidCommand},
		{name: "empty path", body: `{"kind":"remove","path":[]}`, wantErr: domain.ErrPathOutOfRange},
		{name: "negative index", body: `{"kind":"remove","path":[0,-1]}`, wantErr: domain.ErrPathOutOfRange},
		{name: "unknown field", body: `{"kind":"remove","path":[0],"extra":1}`, wantErr: schema.ErrInvalidCommand},
		{name: "not json", body: `remove 0`, wantErr: schema.ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schema.Decode(strings.NewReader(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidationError_ListsFields(t *testing.T) {
	err := schema.CommandEnvelope{Kind: "assign_master"}.Validate()
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, "required", fields["path"])
	assert.Equal(t, "required_if", fields["master_id"])
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, schema.Encode(&buf, domain.AssignMaster{Path: domain.Path{0, 2}, MasterID: "m9"}))
	assert.JSONEq(t, `{"kind":"assign_master","path":[0,2],"master_id":"m9"}`, buf.String())

	back, err := schema.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignMaster{Path: domain.Path{0, 2}, MasterID: "m9"}, back)
}

func TestDecodeMap(t *testing.T) {
	got, err := schema.DecodeMap(map[string]any{
		"kind": "rename",
		"path": []any{float64(0), float64(3)},
		"name": "Credits",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Rename{Path: domain.Path{0, 3}, Name: "Credits"}, got)

	got, err = schema.DecodeMap(map[string]any{"kind": "insert_child", "path": "1.0"})
	require.NoError(t, err)
	assert.Equal(t, domain.InsertChild{Path: domain.Path{1, 0}}, got)

	_, err = schema.DecodeMap(map[string]any{"kind": "remove", "path": "x"})
	assert.ErrorIs(t, err, schema.ErrInvalidCommand)
}

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		line    string
		want    domain.Command
		wantErr bool
	}{
		{line: "insert-before 0", want: domain.InsertBefore{Path: domain.Path{0}}},
		{line: "after 0.1", want: domain.InsertAfter{Path: domain.Path{0, 1}}},
		{line: "child 2", want: domain.InsertChild{Path: domain.Path{2}}},
		{line: "rename 0.1 The   Opening Act", want: domain.Rename{Path: domain.Path{0, 1}, Name: "The   Opening Act"}},
		{line: "rename 0", want: domain.Rename{Path: domain.Path{0}}},
		{line: "RM 1", want: domain.Remove{Path: domain.Path{1}}},
		{line: "assign-master 0 m1", want: domain.AssignMaster{Path: domain.Path{0}, MasterID: "m1"}},
		{line: "assign-master 0", wantErr: true},
		{line: "rename", wantErr: true},
		{line: "fly 0", wantErr: true},
		{line: "remove zero", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := schema.ParseCommandLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeKind(t *testing.T) {
	for _, k := range domain.CommandKinds {
		got, ok := schema.NormalizeKind(strings.ReplaceAll(string(k), "_", "-"))
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := schema.NormalizeKind("")
	assert.False(t, ok)
}
