package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/driftwood-studio/loom/internal/memory"
)

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show continuity memory coverage for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	projectID := args[0]
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

	p, err := store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F780FF")).Bold(true)
	itemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E9E9F4"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Italic(true)

	fmt.Println(headerStyle.Render(p.Title))
	fmt.Println(itemStyle.Render(fmt.Sprintf("Chapters: %d (%d summarized, last summarized: ch%d)",
		len(p.Chapters), len(p.ChapterSummaries), p.LastSummarizedChapter)))
	fmt.Println(itemStyle.Render(fmt.Sprintf("Characters: %d (%d knowledge snapshots)",
		len(p.Characters), len(p.CharacterKnowledge))))
	fmt.Println(itemStyle.Render(fmt.Sprintf("Subplots: %d active of %d",
		len(p.ActiveSubplots()), len(p.Subplots))))
	fmt.Println(itemStyle.Render(fmt.Sprintf("Facts: %d, worldbuilding entries: %d",
		len(p.FactAssertions), len(p.WikiEntries))))

	// Per-character coverage: who has a current snapshot and how stale it is.
	for _, c := range p.Characters {
		state := memory.CurrentState(p.CharacterKnowledge, c.ID)
		if state == nil {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("  %s: no knowledge tracked yet", c.Name)))
			continue
		}
		fmt.Println(itemStyle.Render(fmt.Sprintf("  %s: tracked as of ch%d", c.Name, state.AsOfChapterNumber)))
	}

	return nil
}
