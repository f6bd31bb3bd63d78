package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/driftwood-studio/loom/internal/collab"
	"github.com/driftwood-studio/loom/internal/config"
	"github.com/driftwood-studio/loom/internal/memory"
	"github.com/driftwood-studio/loom/internal/project"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom - narrative continuity memory for long-form writing",
	Long: `Loom keeps a multi-chapter writing project internally consistent.

It summarizes chapters as they are saved, tracks what each character
knows and believes over time, and assembles a bounded, relevant bundle
of story state to hand to a generation model before new prose is written.`,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.loom/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the project database (overrides config)")
}

// loadConfig layers the --db flag over the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "loom.db"
	}
	return cfg, nil
}

// openStore opens the SQLite project store configured for this run.
func openStore(cmd *cobra.Command, cfg config.Config) (project.Store, error) {
	return project.NewSQLiteStore(cmd.Context(), project.SQLiteConfig{Path: cfg.Store.Path})
}

// newOrchestrator builds the memory orchestrator over a live collaborator.
func newOrchestrator(cfg config.Config, store project.Store) (*memory.Orchestrator, error) {
	collaborator, err := collab.NewOpenAICollaborator(cfg.CollabConfig())
	if err != nil {
		return nil, err
	}
	return memory.NewOrchestrator(store, collaborator,
		memory.WithMinChapterLength(cfg.Memory.MinChapterLength),
		memory.WithStalenessThreshold(cfg.Memory.StalenessThreshold),
	), nil
}
