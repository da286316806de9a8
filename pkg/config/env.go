package config

import (
	"os"
	"strconv"
)

// EnvVars returns the effective GROWCORE_* environment values for this
// configuration, keyed by variable name. These are the variables the storage
// and archive openers read. Empty values are omitted.
func (c *Config) EnvVars() map[string]string {
	vars := map[string]string{
		"GROWCORE_STORAGE_DRIVER":        c.Storage.Driver,
		"GROWCORE_DATA_DIR":              c.Storage.DataDir,
		"GROWCORE_SQLITE_PATH":           c.Storage.SQLitePath,
		"GROWCORE_POSTGRES_DSN":          c.Storage.PostgresDSN,
		"GROWCORE_ARCHIVE_DRIVER":        c.Archive.Driver,
		"GROWCORE_ARCHIVE_DIR":           c.Archive.Dir,
		"GROWCORE_ARCHIVE_S3_BUCKET":     c.Archive.S3Bucket,
		"GROWCORE_ARCHIVE_S3_REGION":     c.Archive.S3Region,
		"GROWCORE_ARCHIVE_S3_ENDPOINT":   c.Archive.S3Endpoint,
		"GROWCORE_ARCHIVE_S3_PATH_STYLE": strconv.FormatBool(c.Archive.S3PathStyle),
	}
	for key, value := range vars {
		if value == "" {
			delete(vars, key)
		}
	}
	return vars
}

// ExportEnv writes the effective configuration back into the process
// environment, so the env-driven store and archive openers observe the merged
// flag, environment, and default values.
func (c *Config) ExportEnv() error {
	for key, value := range c.EnvVars() {
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}
