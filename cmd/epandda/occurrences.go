// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/epandda/internal/client"
	"github.com/pdiddy/epandda/internal/occurrence"
)

var occurrencesCmd = &cobra.Command{
	Use:   "occurrences",
	Short: "Find specimen and occurrence records matching a taxon or locality",
	Long: `Occurrences resolves a taxon name and/or locality and prints the response
envelope as JSON. By default the query runs against the local stores; with
--endpoint it is sent to a running API instead.`,
	Example: `  epandda occurrences --taxon "Tyrannosaurus rex" --limit 10
  epandda occurrences --taxon Tyrannosaurus --locality Montana --idigbio-fields uuid,dwc:county
  epandda occurrences --locality Montana --endpoint http://localhost:8080`,
	RunE: runOccurrences,
}

func init() {
	occurrencesCmd.Flags().String("taxon", "", "taxon name to match")
	occurrencesCmd.Flags().String("locality", "", "locality to match")
	occurrencesCmd.Flags().String("period", "", "keep records from this geologic period")
	occurrencesCmd.Flags().String("institution-code", "", "keep specimens held by this institution")
	occurrencesCmd.Flags().Int("offset", 0, "index of the first result")
	occurrencesCmd.Flags().Int("limit", 0, "page size (0 uses the default limit)")
	occurrencesCmd.Flags().String("idigbio-fields", "", "iDigBio fields to return (comma separated)")
	occurrencesCmd.Flags().String("pbdb-fields", "", "PBDB fields to return (comma separated)")
	occurrencesCmd.Flags().String("endpoint", "", "API base URL; empty queries the local stores")
	occurrencesCmd.Flags().Int("default-limit", 100, "page size when --limit is not given")
	addStoreFlags(occurrencesCmd)

	rootCmd.AddCommand(occurrencesCmd)
}

func runOccurrences(cmd *cobra.Command, args []string) error {
	values := url.Values{}
	for flag, param := range map[string]string{
		"taxon":            occurrence.ParamTaxonName,
		"locality":         occurrence.ParamLocality,
		"period":           occurrence.ParamPeriod,
		"institution-code": occurrence.ParamInstitutionCode,
		"idigbio-fields":   "idigbio_fields",
		"pbdb-fields":      "pbdb_fields",
	} {
		if s, _ := cmd.Flags().GetString(flag); s != "" {
			values.Set(param, s)
		}
	}
	if cmd.Flags().Changed("offset") {
		n, _ := cmd.Flags().GetInt("offset")
		values.Set(occurrence.ParamOffset, strconv.Itoa(n))
	}
	if cmd.Flags().Changed("limit") {
		n, _ := cmd.Flags().GetInt("limit")
		values.Set(occurrence.ParamLimit, strconv.Itoa(n))
	}

	ctx := cmd.Context()
	var env occurrence.Envelope

	if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
		var err error
		env, err = client.New(endpoint).Occurrences(ctx, values)
		if err != nil {
			return err
		}
		return printJSON(env)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := occurrence.ParseParams(values, cfg.Match.DefaultLimit)
	if err != nil {
		return err
	}

	st, err := openStores(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	env, err = newService(st, cfg).Query(ctx, p)
	if err != nil {
		return err
	}
	for _, w := range env.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s grid %s: %s\n", w.Source, w.Ref, w.Message)
	}
	return printJSON(env)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
