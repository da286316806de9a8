package config

import (
	"log/slog"
	"strings"
)

// Option is a function that modifies a Config. Options validate their inputs
// and drop invalid values with a warning.
type Option func(*Config)

// OptStorageDriver selects the persistent store backend.
// Valid values: "file", "memory", "sqlite", "postgres".
func OptStorageDriver(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum("storage.driver", s) {
			c.Storage.Driver = s
		}
	}
}

// OptDataDir sets the data directory of the file store.
func OptDataDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("storage.data_dir", s) {
			c.Storage.DataDir = s
		}
	}
}

// OptSQLitePath sets the sqlite database file.
func OptSQLitePath(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("storage.sqlite_path", s) {
			c.Storage.SQLitePath = s
		}
	}
}

// OptPostgresDSN sets the postgres connection string.
func OptPostgresDSN(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("storage.postgres_dsn", s) {
			c.Storage.PostgresDSN = s
		}
	}
}

// OptArchiveDriver selects the backup archive backend.
// Valid values: "fs", "memory", "s3".
func OptArchiveDriver(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum("archive.driver", s) {
			c.Archive.Driver = s
		}
	}
}

// OptArchiveDir sets the directory of the fs archive.
func OptArchiveDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("archive.dir", s) {
			c.Archive.Dir = s
		}
	}
}

// OptS3Bucket sets the archive bucket name.
func OptS3Bucket(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("archive.s3_bucket", s) {
			c.Archive.S3Bucket = s
		}
	}
}

// OptS3Region sets the archive bucket region.
func OptS3Region(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("archive.s3_region", s) {
			c.Archive.S3Region = s
		}
	}
}

// OptS3Endpoint sets a custom S3 endpoint.
func OptS3Endpoint(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("archive.s3_endpoint", s) {
			c.Archive.S3Endpoint = s
		}
	}
}

// OptS3PathStyle forces path-style S3 addressing.
func OptS3PathStyle(b bool) Option {
	return func(c *Config) {
		c.Archive.S3PathStyle = b
	}
}

// OptLogLevel sets the log level.
// Valid values: "error", "warn", "info", "debug".
func OptLogLevel(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum("log.level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogFormat sets the log output format.
// Valid values: "json", "text".
func OptLogFormat(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum("log.format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogDestination sets the log output stream.
// Valid values: "stderr", "stdout".
func OptLogDestination(s string) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum("log.destination", s) {
			c.Log.Destination = s
		}
	}
}

func isValidString(name, s string) bool {
	if s == "" {
		slog.Warn("ignoring empty config value", "key", name)
		return false
	}
	return true
}

var enumValues = map[string][]string{
	"storage.driver":  {"file", "memory", "sqlite", "postgres"},
	"archive.driver":  {"fs", "memory", "s3"},
	"log.level":       {"debug", "info", "warn", "error"},
	"log.format":      {"json", "text"},
	"log.destination": {"stderr", "stdout"},
}

func isValidEnum(name, val string) bool {
	for _, allowed := range enumValues[name] {
		if val == allowed {
			return true
		}
	}
	slog.Warn("ignoring unsupported config value", "key", name, "value", val, "valid", enumValues[name])
	return false
}
