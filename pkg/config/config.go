// Package config carries the runtime configuration of the growcore CLI and
// embedding applications.
//
// The package performs no I/O of its own. Values arrive from three layers the
// command line merges in precedence order: CLI flags > GROWCORE_* environment
// variables > defaults. A default Config from New() is always valid; all
// mutations go through Option functions, which drop invalid values with a
// warning instead of poisoning the configuration.
package config

// EnvPrefix is the prefix of all growcore environment variables.
const EnvPrefix = "GROWCORE"

// Config is the complete growcore configuration.
type Config struct {
	// Storage selects and parameterizes the persistent store.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Archive selects and parameterizes the backup archive.
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// StorageConfig holds persistent store settings.
type StorageConfig struct {
	// Driver is one of file, memory, sqlite, postgres.
	Driver string `mapstructure:"driver" yaml:"driver"`

	// DataDir is the data directory of the file store. The file store keeps
	// fertilizer_config.json, plants.csv, and status.json there.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// SQLitePath is the database file used when Driver is sqlite.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// PostgresDSN is the connection string used when Driver is postgres.
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

// ArchiveConfig holds backup archive settings.
type ArchiveConfig struct {
	// Driver is one of fs, memory, s3.
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Dir is the directory of the fs archive. Empty means <data dir>/archive.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// S3Bucket names the bucket used when Driver is s3.
	S3Bucket string `mapstructure:"s3_bucket" yaml:"s3_bucket"`

	// S3Region is the bucket region.
	S3Region string `mapstructure:"s3_region" yaml:"s3_region"`

	// S3Endpoint overrides the S3 endpoint for S3-compatible object stores.
	S3Endpoint string `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`

	// S3PathStyle forces path-style addressing, needed by most
	// S3-compatible stores outside AWS.
	S3PathStyle bool `mapstructure:"s3_path_style" yaml:"s3_path_style"`
}

// LogConfig holds application log settings.
type LogConfig struct {
	// Level of logging: error, warn, info, or debug.
	Level string `mapstructure:"level" yaml:"level"`

	// Format can be json or text.
	Format string `mapstructure:"format" yaml:"format"`

	// Destination can be stderr or stdout.
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with default values. The returned config is valid and
// ready to use; Option functions applied through Update override defaults.
func New() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:     "file",
			DataDir:    ".",
			SQLitePath: "growcore.db",
		},
		Archive: ArchiveConfig{
			Driver: "fs",
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "text",
			Destination: "stderr",
		},
	}
}

// Update applies Option functions to the Config. This is the only way to
// modify a Config after creation. Invalid options are dropped with warnings,
// leaving the config valid.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
}

// ToOptions converts the Config into the Option functions that reproduce it.
// Empty fields are skipped, so applying the result to a default Config merges
// rather than overwrites. The CLI uses this to fold values decoded from the
// config file and environment into a valid baseline.
func (c *Config) ToOptions() []Option {
	var res []Option
	if s := c.Storage.Driver; s != "" {
		res = append(res, OptStorageDriver(s))
	}
	if s := c.Storage.DataDir; s != "" {
		res = append(res, OptDataDir(s))
	}
	if s := c.Storage.SQLitePath; s != "" {
		res = append(res, OptSQLitePath(s))
	}
	if s := c.Storage.PostgresDSN; s != "" {
		res = append(res, OptPostgresDSN(s))
	}
	if s := c.Archive.Driver; s != "" {
		res = append(res, OptArchiveDriver(s))
	}
	if s := c.Archive.Dir; s != "" {
		res = append(res, OptArchiveDir(s))
	}
	if s := c.Archive.S3Bucket; s != "" {
		res = append(res, OptS3Bucket(s))
	}
	if s := c.Archive.S3Region; s != "" {
		res = append(res, OptS3Region(s))
	}
	if s := c.Archive.S3Endpoint; s != "" {
		res = append(res, OptS3Endpoint(s))
	}
	if c.Archive.S3PathStyle {
		res = append(res, OptS3PathStyle(true))
	}
	if s := c.Log.Level; s != "" {
		res = append(res, OptLogLevel(s))
	}
	if s := c.Log.Format; s != "" {
		res = append(res, OptLogFormat(s))
	}
	if s := c.Log.Destination; s != "" {
		res = append(res, OptLogDestination(s))
	}
	return res
}
