// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/epandda/internal/annotation"
	"github.com/pdiddy/epandda/internal/logging"
	"github.com/pdiddy/epandda/internal/match"
	"github.com/pdiddy/epandda/internal/occurrence"
	"github.com/pdiddy/epandda/internal/resolve"
	"github.com/pdiddy/epandda/internal/server"
	"github.com/pdiddy/epandda/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the occurrence linkage HTTP API",
	Long: `Serve opens the local stores and answers /occurrences, /occurrences/batch
and /annotations until interrupted. Requests in flight are drained on
SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "localhost", "listen host")
	serveCmd.Flags().Int("port", 8080, "listen port")
	serveCmd.Flags().Duration("request-timeout", 30*time.Second, "per-request deadline (0 disables it)")
	serveCmd.Flags().String("api-version", "1.0", "version reported in response envelopes")
	serveCmd.Flags().Int("default-limit", 100, "page size when a request gives none")
	addStoreFlags(serveCmd)

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStores(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(newService(st, cfg), annotation.New(), cfg, logging.Default())
	return srv.ListenAndServe(ctx)
}

// newService wires the match engine and resolver over st.
func newService(st *stores, cfg types.Config) *occurrence.Service {
	engine := match.NewEngine(st.index, match.NewGridResolver(st.reader(cfg.Store), cfg.Match.StrictGrids))
	return occurrence.NewService(engine, resolve.New(st.records), occurrence.WithVersion(cfg.Server.Version))
}
