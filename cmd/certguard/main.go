package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"certguard/internal/platform/config"
	"certguard/internal/platform/logger"
)

const programName = "certguard"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile   string
	globalConfig config.Config
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

func commonRun() *slog.Logger {
	log := logger.New(os.Stdout, globalConfig.Logging.Level, globalConfig.Logging.Format, globalFlags.debug)
	slog.SetDefault(log)
	// Configure max processes with our logger wrapper, toss undo func
	if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	log.Debug("version: "+version, "component", programName)
	return log
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Verify uploaded academic credentials against the issued-record catalogue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			globalConfig = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(verifyCommand())
	rootCmd.AddCommand(rulesCommand())
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), programName, version)
		},
	}
}
