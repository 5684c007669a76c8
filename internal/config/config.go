// Package config loads chaptree settings from YAML or JSON files and CHAPTREE_* environment variables.
package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/chaptree/pkg/layout"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "CHAPTREE_"

type Config struct {
	Log    LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	Store  StoreConfig   `mapstructure:"store" yaml:"store" json:"store"`
	HTTP   HTTPConfig    `mapstructure:"http" yaml:"http" json:"http"`
	Lock   LockConfig    `mapstructure:"lock" yaml:"lock" json:"lock"`
	Layout layout.Config `mapstructure:"layout" yaml:"layout" json:"layout"`

	// HooksFile lists external commands run after every new revision. Empty disables hooks.
	HooksFile string `mapstructure:"hooks_file" yaml:"hooks_file" json:"hooks_file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

type StoreConfig struct {
	Kind  string      `mapstructure:"kind" yaml:"kind" json:"kind"`
	Dir   string      `mapstructure:"dir" yaml:"dir" json:"dir"`
	Redis RedisConfig `mapstructure:"redis" yaml:"redis" json:"redis"`

	// EncryptionKey is a base64 AES-256 key. When set, documents are sealed at rest.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key" json:"encryption_key"`
	// FallbackKeys are older base64 keys still accepted for reading.
	FallbackKeys []string `mapstructure:"fallback_keys" yaml:"fallback_keys" json:"fallback_keys"`
}

// Keys decodes the encryption keys. It returns a nil active key when encryption is off.
func (s StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(s.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password string        `mapstructure:"password" yaml:"password" json:"password"`
	DB       int           `mapstructure:"db" yaml:"db" json:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// LockConfig enables the Redis distributed lock; it requires the redis store settings.
type LockConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Kind: StoreFile,
			Dir:  filepath.Join(".chaptree", "documents"),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "chaptree:",
			},
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 5 * time.Second,
		},
		Lock:   LockConfig{TTL: 30 * time.Second},
		Layout: layout.DefaultConfig(),
	}
}

// Load reads path (if not empty) over the defaults, then applies environment overrides.
// A missing file is an error only when path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(raw, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if err := decode(envOverrides(os.Environ()), cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return raw, nil
}

// decode merges raw into cfg. Fields absent from raw keep their value.
func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// envOverrides turns CHAPTREE_STORE_REDIS_ADDR=x into {"store": {"redis": {"addr": "x"}}}.
// Only known keys are mapped so unrelated CHAPTREE_* variables are ignored.
func envOverrides(environ []string) map[string]any {
	out := map[string]any{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		path, known := envKeys[strings.TrimPrefix(name, EnvPrefix)]
		if !known {
			continue
		}
		node := out
		for _, part := range path[:len(path)-1] {
			next, ok := node[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				node[part] = next
			}
			node = next
		}
		node[path[len(path)-1]] = value
	}
	return out
}

var envKeys = map[string][]string{
	"LOG_LEVEL":             {"log", "level"},
	"LOG_FORMAT":            {"log", "format"},
	"STORE":                 {"store", "kind"},
	"STORE_DIR":             {"store", "dir"},
	"STORE_ENCRYPTION_KEY":  {"store", "encryption_key"},
	"REDIS_ADDR":            {"store", "redis", "addr"},
	"REDIS_PASSWORD":        {"store", "redis", "password"},
	"REDIS_DB":              {"store", "redis", "db"},
	"REDIS_PREFIX":          {"store", "redis", "prefix"},
	"REDIS_TTL":             {"store", "redis", "ttl"},
	"HTTP_ADDR":             {"http", "addr"},
	"HTTP_CORS_ORIGINS":     {"http", "cors_origins"},
	"HTTP_SHUTDOWN_TIMEOUT": {"http", "shutdown_timeout"},
	"HOOKS_FILE":            {"hooks_file"},
	"LOCK_ENABLED":          {"lock", "enabled"},
	"LOCK_TTL":              {"lock", "ttl"},
	"LAYOUT_BOX_WIDTH":      {"layout", "box_width"},
	"LAYOUT_BOX_HEIGHT":     {"layout", "box_height"},
	"LAYOUT_HORIZONTAL_GAP": {"layout", "horizontal_margin"},
	"LAYOUT_VERTICAL_GAP":   {"layout", "vertical_margin"},
}

// Validate checks that the settings can be used together.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store kind %q (want memory, file or redis)", c.Store.Kind)
	}
	if c.Store.Kind == StoreFile && c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required for the file store")
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	if (c.Store.Kind == StoreRedis || c.Lock.Enabled) && c.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr is required")
	}
	if c.Layout.BoxWidth <= 0 || c.Layout.BoxHeight <= 0 {
		return fmt.Errorf("layout box dimensions must be positive")
	}
	if c.Layout.HorizontalMargin < 0 || c.Layout.VerticalMargin < 0 {
		return fmt.Errorf("layout margins must not be negative")
	}
	return nil
}
