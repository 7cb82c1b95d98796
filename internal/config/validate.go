package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validatePreviews(); err != nil {
		return err
	}
	if err := c.validateReplay(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	if c.Server.ReadTimeout.Duration < 0 || c.Server.WriteTimeout.Duration < 0 || c.Server.ShutdownTimeout.Duration < 0 {
		return errors.New("server timeouts cannot be negative")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for the sqlite backend")
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return errors.New("storage.mongo_uri is required for the mongo backend (or set PICTOSWAP_MONGO_URI)")
		}
		if c.Storage.MongoDatabase == "" {
			return errors.New("storage.mongo_database must be set")
		}
	default:
		return fmt.Errorf("storage.backend %q must be memory, sqlite or mongo", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "none":
	case "file":
		if c.Cache.Dir == "" {
			return errors.New("cache.dir is required for the file backend")
		}
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required for the redis backend (or set PICTOSWAP_REDIS_URL)")
		}
		u, err := url.Parse(c.Cache.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("cache.redis_url %q must be a redis:// or rediss:// URL", c.Cache.RedisURL)
		}
	default:
		return fmt.Errorf("cache.backend %q must be none, file or redis", c.Cache.Backend)
	}
	return nil
}

func (c *Config) validatePreviews() error {
	switch c.Previews.Backend {
	case "dir":
		if c.Previews.Dir == "" {
			return errors.New("previews.dir is required for the dir backend")
		}
	case "cache":
		if c.Cache.Backend == "none" {
			return errors.New("previews.backend = \"cache\" needs a cache backend other than none")
		}
	default:
		return fmt.Errorf("previews.backend %q must be dir or cache", c.Previews.Backend)
	}
	return nil
}

func (c *Config) validateReplay() error {
	r := c.Replay
	if r.SegmentDelay.Duration < 0 || r.PenLift.Duration < 0 || r.PageGap.Duration < 0 {
		return errors.New("replay delays cannot be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
}
