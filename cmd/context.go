package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/driftwood-studio/loom/internal/memory"
)

var (
	contextChapter int
	contextScene   string
	contextPOV     string
	contextTask    string
	contextFocus   string
	contextJSON    bool
)

var contextCmd = &cobra.Command{
	Use:   "context [project-id]",
	Short: "Assemble the story memory context for a generation request",
	Long: `Assemble the bounded bundle of narrative state a generation model
should see before writing new prose: relevant chapter summaries, current
character knowledge, facts, worldbuilding, and open threads.

Selection is AI-assisted when OPENAI_API_KEY is available; if the
collaborator call fails, a deterministic recency-based selection is used
instead, so this command always produces a context.

Examples:
  loom context novel-1 --chapter 6 --pov mara --task "Mara confronts the captain"
  loom context novel-1 --chapter 6 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().IntVar(&contextChapter, "chapter", 0, "Chapter number being written (required)")
	contextCmd.Flags().StringVar(&contextScene, "scene", "", "Current scene description")
	contextCmd.Flags().StringVar(&contextPOV, "pov", "", "Point-of-view character id")
	contextCmd.Flags().StringVar(&contextTask, "task", "", "Description of the writing task")
	contextCmd.Flags().StringVar(&contextFocus, "focus", "", "Narrative focus hint")
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "Emit raw JSON instead of styled output")
	contextCmd.MarkFlagRequired("chapter")
}

func runContext(cmd *cobra.Command, args []string) error {
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

	orch, err := newOrchestrator(cfg, store)
	if err != nil {
		return err
	}

	memCtx, err := orch.RelevantContext(ctx, memory.ContextOptions{
		ProjectID:            projectID,
		CurrentChapterNumber: contextChapter,
		CurrentScene:         contextScene,
		POVCharacterID:       contextPOV,
		TaskDescription:      contextTask,
		Focus:                contextFocus,
	})
	if err != nil {
		return err
	}

	if contextJSON {
		raw, err := json.MarshalIndent(memCtx, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	}

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F780FF")).Bold(true)
	itemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E9E9F4"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Italic(true)

	fmt.Println(headerStyle.Render(fmt.Sprintf("Story memory for chapter %d", contextChapter)))
	fmt.Println()

	fmt.Println(headerStyle.Render("Chapter summaries:"))
	if len(memCtx.RelevantSummaries) == 0 {
		fmt.Println(mutedStyle.Render("  (none)"))
	}
	for _, s := range memCtx.RelevantSummaries {
		fmt.Println(itemStyle.Render(fmt.Sprintf("  ch%d: %s", s.ChapterNumber, s.Summary)))
	}

	fmt.Println(headerStyle.Render("Character states:"))
	if len(memCtx.RelevantCharacterStates) == 0 {
		fmt.Println(mutedStyle.Render("  (none)"))
	}
	for _, st := range memCtx.RelevantCharacterStates {
		fmt.Println(itemStyle.Render(fmt.Sprintf("  %s (as of ch%d): %s", st.CharacterID, st.AsOfChapterNumber, st.EmotionalState)))
	}

	fmt.Println(headerStyle.Render("Active subplots:"))
	if len(memCtx.ActiveSubplots) == 0 {
		fmt.Println(mutedStyle.Render("  (none)"))
	}
	for _, sp := range memCtx.ActiveSubplots {
		fmt.Println(itemStyle.Render(fmt.Sprintf("  %s [%s]", sp.Name, sp.Status)))
	}

	if len(memCtx.OpenQuestions) > 0 {
		fmt.Println(headerStyle.Render("Open questions:"))
		for _, q := range memCtx.OpenQuestions {
			fmt.Println(itemStyle.Render("  - " + q))
		}
	}

	if len(memCtx.UnresolvedSetups) > 0 {
		fmt.Println(headerStyle.Render("Unresolved setups:"))
		for _, u := range memCtx.UnresolvedSetups {
			fmt.Println(itemStyle.Render("  - " + u))
		}
	}

	fmt.Println()
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%d facts, %d worldbuilding entries selected",
		len(memCtx.RelevantFacts), len(memCtx.RelevantWorldbuilding))))
	return nil
}
