// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/epandda/internal/annotation"
	"github.com/pdiddy/epandda/internal/client"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Build an Open Annotation linking a specimen to an occurrence",
	Long: `Annotate prints an Open Annotation JSON-LD document whose target is the
iDigBio record --uuid and whose body names the match and the PBDB
occurrence it links to.`,
	Example: `  epandda annotate --uuid 0000a7e1-5b2c-4a5f-9d0e-1c1b8b4e0c5a --matched-on "Tyrannosaurus rex" --pbdb-id 12345`,
	RunE:    runAnnotate,
}

func init() {
	annotateCmd.Flags().String("uuid", "", "iDigBio record UUID (required)")
	annotateCmd.Flags().String("matched-on", "", "what the link was matched on")
	annotateCmd.Flags().String("pbdb-id", "", "linked PBDB occurrence identifier")
	annotateCmd.Flags().String("endpoint", "", "API base URL; empty builds the annotation locally")
	_ = annotateCmd.MarkFlagRequired("uuid")

	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	uuid, _ := cmd.Flags().GetString("uuid")
	target := annotation.Target{UUID: uuid}

	var body annotation.Body
	if cmd.Flags().Changed("matched-on") {
		s, _ := cmd.Flags().GetString("matched-on")
		body.MatchedOn = &s
	}
	if cmd.Flags().Changed("pbdb-id") {
		s, _ := cmd.Flags().GetString("pbdb-id")
		body.PBDBID = &s
	}

	var (
		a   annotation.OpenAnnotation
		err error
	)
	if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
		a, err = client.New(endpoint).Annotate(cmd.Context(), target, body)
	} else {
		a, err = annotation.New().Build(target, body)
	}
	if err != nil {
		return err
	}
	return printJSON(a)
}
