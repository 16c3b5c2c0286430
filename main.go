package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/humanand/humanand/pkg/config"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "humanand",
		Short:         "HumanAnd - Slack bot that turns conversation into approved project knowledge",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().String("data-dir", "", "project data directory (overrides config)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(knowledgeCmd())
	rootCmd.AddCommand(peopleCmd())
	rootCmd.AddCommand(checkCmd())

	return rootCmd
}

// loadConfig reads the config file named by --config and applies --data-dir.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(path, Version)
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}
