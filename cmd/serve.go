package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftwood-studio/loom/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the continuity memory subsystem over HTTP",
	Long: `Expose the memory pipeline over HTTP for editor integrations:

  POST /projects/{id}/chapters                save a chapter, run the pipeline
  GET  /projects/{id}/context                 assemble story memory context
  GET  /projects/{id}/characters/{id}/state   current knowledge snapshot`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8477", "Listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	orch, err := newOrchestrator(cfg, store)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	srv := server.New(store, orch, logger)

	logger.Info("loom server listening", "addr", serveAddr, "db", cfg.Store.Path)
	if err := http.ListenAndServe(serveAddr, srv.Router()); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
