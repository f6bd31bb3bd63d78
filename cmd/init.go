package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/driftwood-studio/loom/internal/project"
	"github.com/driftwood-studio/loom/internal/story"
)

var initSeedFile string

var initCmd = &cobra.Command{
	Use:   "init [project-id] [title]",
	Short: "Create a new writing project",
	Long: `Create a project in the store. An optional seed file (YAML) can
populate the roster, subplots, facts, and worldbuilding entries up front:

  characters:
    - id: mara
      name: Mara Voss
      aliases: [the navigator]
      role: protagonist
  subplots:
    - id: debt
      name: The captain's debt
      status: active
  facts:
    - id: f1
      statement: The Meridian is the last ship with a working jump drive.
  wiki:
    - id: w1
      title: The Meridian
      content: A decommissioned survey vessel.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initSeedFile, "seed", "", "YAML file with characters, subplots, facts, and wiki entries")
}

// seedFile mirrors the YAML seed layout.
type seedFile struct {
	Specification string            `yaml:"specification"`
	Characters    []story.Character `yaml:"characters"`
	Subplots      []story.Subplot   `yaml:"subplots"`
	Facts         []seedFact        `yaml:"facts"`
	Wiki          []story.WikiEntry `yaml:"wiki"`
}

type seedFact struct {
	ID        string `yaml:"id"`
	Statement string `yaml:"statement"`
	Source    string `yaml:"source"`
}

func runInit(cmd *cobra.Command, args []string) error {
	projectID := args[0]
	title := projectID
	if len(args) > 1 {
		title = args[1]
	}
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.GetProject(ctx, projectID); err == nil {
		return fmt.Errorf("project %q already exists", projectID)
	} else if !errors.Is(err, project.ErrNotFound) {
		return err
	}

	p := &story.Project{
		ID:                 projectID,
		Title:              title,
		Chapters:           []story.Chapter{},
		Characters:         []story.Character{},
		FactAssertions:     []story.FactAssertion{},
		WikiEntries:        []story.WikiEntry{},
		Subplots:           []story.Subplot{},
		ChapterSummaries:   []story.ChapterSummary{},
		CharacterKnowledge: []story.CharacterKnowledgeState{},
	}

	if initSeedFile != "" {
		raw, err := os.ReadFile(initSeedFile)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		var seed seedFile
		if err := yaml.Unmarshal(raw, &seed); err != nil {
			return fmt.Errorf("parse seed file: %w", err)
		}

		p.Specification = seed.Specification
		p.Characters = seed.Characters
		p.Subplots = seed.Subplots
		p.WikiEntries = seed.Wiki
		for _, f := range seed.Facts {
			p.FactAssertions = append(p.FactAssertions, story.FactAssertion{
				ID:        f.ID,
				Statement: f.Statement,
				Source:    f.Source,
				CreatedAt: time.Now(),
			})
		}
	}

	if err := store.SaveProject(ctx, p); err != nil {
		return err
	}

	fmt.Printf("Created project %q (%d characters, %d subplots)\n", projectID, len(p.Characters), len(p.Subplots))
	return nil
}
