package main

import (
	"fmt"
	"os"

	"github.com/cuemby/hostkeeper/pkg/config"
	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/cuemby/hostkeeper/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	cfg       *config.Config
	closeLogs = func() error { return nil }
)

func main() {
	err := rootCmd.Execute()
	closeLogs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hostkeeper",
	Short: "Hostkeeper - keeps managed Docker hosts in their declared state",
	Long: `Hostkeeper periodically checks every managed server: it verifies the
host is reachable, records the status of each application, database and
service, keeps the reverse proxy, log drain and monitoring agent running,
and alerts the owning team when disk usage crosses its threshold.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("config")

		v := config.New(file)
		for key, flag := range map[string]string{
			"data_dir":  "data-dir",
			"api_addr":  "api-addr",
			"log.level": "log-level",
		} {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}

		var err error
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}

		closeLogs = log.Init(log.Config{
			Level:      log.Level(cfg.Log.Level),
			JSONOutput: cfg.Log.JSON,
			Output:     os.Stderr,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
		metrics.SetVersion(Version)
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Hostkeeper version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Config file (default ./hostkeeper.yaml or /etc/hostkeeper/hostkeeper.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "./hostkeeper-data", "Data directory for the server store")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serverCmd)
}
