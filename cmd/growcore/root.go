package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"growcore/internal/core"
	"growcore/pkg/config"
	"growcore/pkg/logger"
)

// appState carries the merged configuration and the logger shared by all
// subcommands. bootstrap fills it before any RunE executes.
type appState struct {
	cfgFile       string
	flagStorage   string
	flagDataDir   string
	flagArchive   string
	flagLogLevel  string
	flagLogFormat string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	st := &appState{}
	root := &cobra.Command{
		Use:   "growcore",
		Short: "growcore resolves fertilizer doses and EC targets per grow week",
		Long: `growcore manages named nutrient schemes (per-product weekly schedules plus
an EC target curve), tracks plants, and answers two questions: how many ml of
each product go into the next watering, and how many ml bring the reservoir
from its current EC up to the week's target.

Configuration precedence: CLI flags > GROWCORE_* environment variables >
growcore.yaml > built-in defaults. A .env file in the working directory is
loaded into the environment first when present.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: st.bootstrap,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&st.cfgFile, "config", "", "config file (default ./growcore.yaml)")
	flags.StringVar(&st.flagStorage, "storage", "", "storage driver: file, memory, sqlite, postgres")
	flags.StringVar(&st.flagDataDir, "data-dir", "", "data directory of the file store")
	flags.StringVar(&st.flagArchive, "archive", "", "archive driver: fs, memory, s3")
	flags.StringVar(&st.flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&st.flagLogFormat, "log-format", "", "log format: text, json")

	root.AddCommand(
		newInitCmd(st),
		newSchemeCmd(st),
		newFertilizerCmd(st),
		newCurveCmd(st),
		newPlantCmd(st),
		newResolveCmd(st),
		newEcCmd(st),
		newBackupCmd(st),
		newStatusCmd(st),
	)
	return root
}

// bootstrap merges defaults, the optional config file, the environment, and
// flags into one Config, then exports the result back into the process
// environment so the env-driven store and archive openers observe it.
func (st *appState) bootstrap(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	v := viper.New()
	bindEnvKeys(v)
	if st.cfgFile != "" {
		v.SetConfigFile(st.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", st.cfgFile, err)
		}
	} else {
		v.SetConfigName("growcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var loaded config.Config
	if err := v.Unmarshal(&loaded); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	st.cfg = config.New()
	st.cfg.Update(loaded.ToOptions())
	st.cfg.Update(st.flagOptions(cmd))
	if err := st.cfg.ExportEnv(); err != nil {
		return fmt.Errorf("export config to environment: %w", err)
	}
	st.log = logger.New(st.cfg.Log)
	return nil
}

// flagOptions converts flags the user actually set into config options.
// Unset flags contribute nothing, preserving file and environment values.
func (st *appState) flagOptions(cmd *cobra.Command) []config.Option {
	flags := cmd.Flags()
	var opts []config.Option
	if flags.Changed("storage") {
		opts = append(opts, config.OptStorageDriver(st.flagStorage))
	}
	if flags.Changed("data-dir") {
		opts = append(opts, config.OptDataDir(st.flagDataDir))
	}
	if flags.Changed("archive") {
		opts = append(opts, config.OptArchiveDriver(st.flagArchive))
	}
	if flags.Changed("log-level") {
		opts = append(opts, config.OptLogLevel(st.flagLogLevel))
	}
	if flags.Changed("log-format") {
		opts = append(opts, config.OptLogFormat(st.flagLogFormat))
	}
	return opts
}

// bindEnvKeys binds each config key to the flat GROWCORE_* variable the
// storage and archive openers read, keeping both views of the environment in
// agreement.
func bindEnvKeys(v *viper.Viper) {
	binds := map[string]string{
		"storage.driver":        "GROWCORE_STORAGE_DRIVER",
		"storage.data_dir":      "GROWCORE_DATA_DIR",
		"storage.sqlite_path":   "GROWCORE_SQLITE_PATH",
		"storage.postgres_dsn":  "GROWCORE_POSTGRES_DSN",
		"archive.driver":        "GROWCORE_ARCHIVE_DRIVER",
		"archive.dir":           "GROWCORE_ARCHIVE_DIR",
		"archive.s3_bucket":     "GROWCORE_ARCHIVE_S3_BUCKET",
		"archive.s3_region":     "GROWCORE_ARCHIVE_S3_REGION",
		"archive.s3_endpoint":   "GROWCORE_ARCHIVE_S3_ENDPOINT",
		"archive.s3_path_style": "GROWCORE_ARCHIVE_S3_PATH_STYLE",
		"log.level":             "GROWCORE_LOG_LEVEL",
		"log.format":            "GROWCORE_LOG_FORMAT",
		"log.destination":       "GROWCORE_LOG_DESTINATION",
	}
	for key, env := range binds {
		_ = v.BindEnv(key, env)
	}
}

// openService opens the configured persistent store and wraps it in a
// service. The returned cleanup closes the store when the driver holds
// resources. withArchive additionally opens the archive store; commands that
// never touch backups skip it so a misconfigured archive cannot block them.
func (st *appState) openService(ctx context.Context, withArchive bool) (*core.Service, func(), error) {
	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	cleanup := func() {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	opts := []core.ServiceOption{core.WithLogger(st.log)}
	if withArchive {
		archive, err := core.OpenArchiveStore(ctx)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open archive: %w", err)
		}
		opts = append(opts, core.WithArchiveStore(archive))
	}
	return core.NewService(store, opts...), cleanup, nil
}

// schemeNameOrActive resolves the scheme a command operates on: the --scheme
// value when given, otherwise the repository's active scheme.
func schemeNameOrActive(ctx context.Context, svc *core.Service, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	settings, err := svc.Settings(ctx)
	if err != nil {
		return "", err
	}
	return settings.ActiveSchemeName, nil
}

// printViolations surfaces warn-severity rule violations on command output.
// Blocking violations arrive as errors instead and never reach here.
func printViolations(out io.Writer, res core.Result) {
	for _, v := range res.Violations {
		if v.Severity == core.SeverityWarn {
			fmt.Fprintf(out, "warning: %s\n", v.Message)
		}
	}
}

// formatEc renders a stored mS/cm value in µS/cm for display. The conversion
// exists only here; every stored and computed value stays in mS/cm.
func formatEc(target float64) string {
	return fmt.Sprintf("%.0f µS/cm", target*1000)
}

func formatMl(ml float64) string {
	return fmt.Sprintf("%.1f ml", ml)
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
