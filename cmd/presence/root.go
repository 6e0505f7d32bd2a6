package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"presenceanalyzer/internal/config"
	appLog "presenceanalyzer/internal/log"
)

const defaultConfigPath = "config.yaml"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "presence",
	Short: "Analyze employee presence exported from the time clock",
	Long: `presence reads clock-in/clock-out records from a CSV export and serves
weekday and monthly presence statistics as JSON and as a small dashboard.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return defaultConfigPath
}

// loadConfig loads the configuration file and applies its log level.
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return cfg, nil
}
