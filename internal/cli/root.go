package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sentiment-engine/internal/app"
	"sentiment-engine/internal/config"
	"sentiment-engine/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	dbPath    string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:          "sentimentengine",
	Short:        "Score financial news headlines and track them against asset prices",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// version must work without a readable config.
		if appHandle != nil || cmd == versionCmd {
			return nil
		}
		handle, err := loadApp()
		if err != nil {
			return err
		}
		appHandle = handle
		return nil
	},
}

func loadApp() (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if dbPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = dbPath
	}
	return app.NewApp(cfg, logging.NewLogger(cfg.Logging)), nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Use the SQLite file at this path instead of the configured store")

	rootCmd.AddCommand(runCmd, watchCmd, showCmd, exportCmd, versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
