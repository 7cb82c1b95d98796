package config

import "time"

const (
	defaultConfigPath      = "~/.config/pictoswap/config.toml"
	defaultAddr            = "127.0.0.1:8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxBodyBytes    = 4 << 20
	defaultStorageBackend  = "sqlite"
	defaultSQLitePath      = "~/.local/share/pictoswap/letters.db"
	defaultMongoDatabase   = "pictoswap"
	defaultCacheBackend    = "file"
	defaultCacheDir        = "~/.cache/pictoswap"
	defaultPreviewsBackend = "dir"
	defaultPreviewsDir     = "~/.local/share/pictoswap/previews"
	defaultUserHeader      = "X-Pictoswap-User"
	defaultKeyFile         = "~/.config/pictoswap/signing.key"
	defaultSegmentDelay    = 10 * time.Millisecond
	defaultPenLift         = 50 * time.Millisecond
	defaultPageGap         = time.Second
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults. Paths are
// not yet expanded.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            defaultAddr,
			ReadTimeout:     Duration{defaultReadTimeout},
			WriteTimeout:    Duration{defaultWriteTimeout},
			ShutdownTimeout: Duration{defaultShutdownTimeout},
			MaxBodyBytes:    defaultMaxBodyBytes,
		},
		Storage: Storage{
			Backend:       defaultStorageBackend,
			SQLitePath:    defaultSQLitePath,
			MongoDatabase: defaultMongoDatabase,
		},
		Cache: Cache{
			Backend: defaultCacheBackend,
			Dir:     defaultCacheDir,
		},
		Previews: Previews{
			Backend: defaultPreviewsBackend,
			Dir:     defaultPreviewsDir,
		},
		Auth: Auth{
			UserHeader: defaultUserHeader,
			KeyFile:    defaultKeyFile,
		},
		Replay: Replay{
			SegmentDelay: Duration{defaultSegmentDelay},
			PenLift:      Duration{defaultPenLift},
			PageGap:      Duration{defaultPageGap},
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
