// Package config loads the pictoswap TOML configuration.
//
// Every field has a default, so a missing file is not an error when the
// default location is used. Paths starting with "~" are expanded and made
// absolute. Unknown keys are rejected so typos do not silently fall back to
// defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration written as text ("150ms", "1s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Server contains HTTP listener settings.
type Server struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	// MaxBodyBytes caps the size of an uploaded letter.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// Storage selects where letters are persisted.
type Storage struct {
	Backend       string `toml:"backend"` // memory, sqlite or mongo
	SQLitePath    string `toml:"sqlite_path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// Cache selects where rendered pages are cached.
type Cache struct {
	Backend  string `toml:"backend"` // none, file or redis
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
}

// Previews selects where published preview images go.
type Previews struct {
	Backend string `toml:"backend"` // dir or cache
	Dir     string `toml:"dir"`
}

// Backgrounds points at extra stationery images.
type Backgrounds struct {
	Dir string `toml:"dir"`
}

// Auth contains identity and preview-code settings.
type Auth struct {
	UserHeader string   `toml:"user_header"`
	KeyFile    string   `toml:"key_file"`
	CodeTTL    Duration `toml:"code_ttl"`
	// AllowAnonymous maps requests without the user header to the local
	// identity. Only for single-user setups.
	AllowAnonymous bool `toml:"allow_anonymous"`
}

// Replay contains playback pacing.
type Replay struct {
	SegmentDelay Duration `toml:"segment_delay"`
	PenLift      Duration `toml:"pen_lift"`
	PageGap      Duration `toml:"page_gap"`
}

// Logging contains log output settings.
type Logging struct {
	Level string `toml:"level"`
}

// Config encapsulates all configuration values for pictoswap.
type Config struct {
	Server      Server      `toml:"server"`
	Storage     Storage     `toml:"storage"`
	Cache       Cache       `toml:"cache"`
	Previews    Previews    `toml:"previews"`
	Backgrounds Backgrounds `toml:"backgrounds"`
	Auth        Auth        `toml:"auth"`
	Replay      Replay      `toml:"replay"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads path, applies defaults and environment overrides, and
// validates the result. An empty path uses [DefaultConfigPath], which may
// be absent. The resolved path and whether it existed are returned.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, "", false, err
	}

	exists := true
	md, err := toml.DecodeFile(resolved, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		exists = false
	case err != nil:
		return nil, "", false, fmt.Errorf("parse config: %w", err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, "", false, fmt.Errorf("parse config: unknown keys: %s", strings.Join(keys, ", "))
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// applyEnv lets deployments keep connection strings out of the file.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("PICTOSWAP_REDIS_URL"); ok {
		c.Cache.RedisURL = v
	}
	if v, ok := os.LookupEnv("PICTOSWAP_MONGO_URI"); ok {
		c.Storage.MongoURI = v
	}
	if v, ok := os.LookupEnv("PICTOSWAP_ADDR"); ok {
		c.Server.Addr = v
	}
}

func (c *Config) normalize() error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"storage.sqlite_path", &c.Storage.SQLitePath},
		{"cache.dir", &c.Cache.Dir},
		{"previews.dir", &c.Previews.Dir},
		{"backgrounds.dir", &c.Backgrounds.Dir},
		{"auth.key_file", &c.Auth.KeyFile},
	}
	for _, f := range fields {
		v, err := expandPath(strings.TrimSpace(*f.ptr))
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = v
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Previews.Backend = strings.ToLower(strings.TrimSpace(c.Previews.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
