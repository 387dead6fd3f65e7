// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the epandda CLI. It serves the
// occurrence linkage API, loads datasets into the local stores and runs
// queries either in-process or against a remote endpoint.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/epandda/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the epandda CLI.
var rootCmd = &cobra.Command{
	Use:   "epandda",
	Short: "Link paleobiology occurrences to museum specimen records",
	Long: `epandda resolves taxon and locality terms against precomputed match
indexes and returns the linked iDigBio specimen and PBDB occurrence records.

Load a dataset with "ingest", then either "serve" the HTTP API or query the
stores directly with "occurrences". "annotate" builds Open Annotation
documents describing a specimen-to-occurrence link.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = viper.GetString("log_level")
		}
		if level != "" {
			logging.SetLevel(logging.ParseLevel(level))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./epandda.yaml or ~/.config/epandda/epandda.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("epandda")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "epandda"))
		}
	}

	viper.SetEnvPrefix("EPANDDA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
