package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ptgott/one-record/userconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var flags = struct {
	ConfigPath string
	Level      string
	Format     string
}{}

var rootCmd = &cobra.Command{
	Use:   "one-record",
	Short: "Serve a single JSON record, creating it on first use",
	// Errors are logged by the commands themselves
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setUpLogging(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&flags.ConfigPath,
		"config",
		"./config.yaml",
		"path to a YAML, JSON, or TOML file containing your configuration",
	)
	rootCmd.PersistentFlags().StringVar(
		&flags.Level,
		"level",
		"info",
		`log level: "info", "debug", or "warn"`,
	)
	rootCmd.PersistentFlags().StringVar(
		&flags.Format,
		"format",
		"text",
		`log format: "text" or "json"`,
	)

	rootCmd.AddCommand(serveCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

// setUpLogging configures the global logger. Records log with filename and
// line number.
func setUpLogging(w io.Writer) error {
	switch strings.ToLower(flags.Format) {
	case "text", "plain":
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	case "json":
	default:
		return fmt.Errorf("unsupported log format: %s", flags.Format)
	}

	log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()

	switch flags.Level {
	case "debug":
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	case "warn":
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	default:
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	// Anything logging through a context without a logger attached goes to
	// the global logger
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}

// loadConfig reads and validates the config file named by --config
func loadConfig() (userconfig.Meta, error) {
	f, err := os.Open(flags.ConfigPath)
	if err != nil {
		return userconfig.Meta{}, fmt.Errorf("can't open the application config file: %w", err)
	}
	defer f.Close()

	config, err := userconfig.Parse(f, userconfig.FormatFromPath(flags.ConfigPath))
	if err != nil {
		return userconfig.Meta{}, fmt.Errorf("problem parsing your config: %w", err)
	}

	checked, err := config.CheckAndSetDefaults()
	if err != nil {
		return userconfig.Meta{}, fmt.Errorf("problem validating your config: %w", err)
	}

	log.Info().Str("configPath", flags.ConfigPath).Msg("successfully validated the config")
	return checked, nil
}
