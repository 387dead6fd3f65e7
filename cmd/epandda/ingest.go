// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/epandda/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dataset>",
	Short: "Load a linkage dataset into the local stores",
	Long: `Ingest reads a YAML or JSON dataset of taxon and locality index entries,
grid files and primary records, and upserts them into the stores under
--data-dir. Loading the same dataset twice leaves the stores unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("json", false, "print the summary as JSON instead of YAML")
	addStoreFlags(ingestCmd)

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.InMemoryGrids {
		return fmt.Errorf("ingest into in-memory grids would be discarded; drop --in-memory-grids")
	}

	ds, err := ingest.ReadFile(args[0])
	if err != nil {
		return err
	}

	st, err := openStores(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	sum, err := ingest.NewLoader(st.index, st.grids, st.records).Load(cmd.Context(), ds)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(sum)
	}
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(sum)
}
