package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/driftwood-studio/loom/internal/project"
	"github.com/driftwood-studio/loom/internal/story"
)

var (
	saveChapterNumber int
	saveChapterTitle  string
	saveSkipMemory    bool
)

var saveCmd = &cobra.Command{
	Use:   "save [project-id] [chapter-file]",
	Short: "Save a chapter and update continuity memory",
	Long: `Save a chapter's prose into the project and run the continuity
pipeline: summarize the chapter (unless an existing summary is still
fresh) and update the knowledge state of every character present.

Requires OPENAI_API_KEY unless --skip-memory is set.

Examples:
  loom save novel-1 chapters/ch05.md --number 5 --title "The Crossing"
  loom save novel-1 chapters/ch05.md --number 5 --skip-memory`,
	Args: cobra.ExactArgs(2),
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().IntVar(&saveChapterNumber, "number", 0, "Chapter number (required)")
	saveCmd.Flags().StringVar(&saveChapterTitle, "title", "", "Chapter title")
	saveCmd.Flags().BoolVar(&saveSkipMemory, "skip-memory", false, "Save the chapter without running the continuity pipeline")
	saveCmd.MarkFlagRequired("number")
}

func runSave(cmd *cobra.Command, args []string) error {
	projectID := args[0]
	chapterFile := args[1]
	ctx := cmd.Context()

	content, err := os.ReadFile(chapterFile)
	if err != nil {
		return fmt.Errorf("read chapter file: %w", err)
	}

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
	if errors.Is(err, project.ErrNotFound) {
		return fmt.Errorf("project %q does not exist; create it with 'loom init %s'", projectID, projectID)
	}
	if err != nil {
		return err
	}

	chapter := findChapterByNumber(p, saveChapterNumber)
	if chapter == nil {
		chapter = &story.Chapter{ID: uuid.NewString(), Number: saveChapterNumber}
	}
	chapter.Title = saveChapterTitle
	chapter.Content = string(content)
	chapter.UpdatedAt = time.Now()

	chapters := p.UpsertChapter(*chapter)
	if _, err := store.UpdateProject(ctx, projectID, project.Patch{Chapters: &chapters}); err != nil {
		return err
	}

	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Italic(true)

	fmt.Println(successStyle.Render(fmt.Sprintf("Saved chapter %d (%d words)", chapter.Number, chapter.WordCount())))

	if saveSkipMemory {
		fmt.Println(infoStyle.Render("Continuity pipeline skipped (--skip-memory)"))
		return nil
	}

	orch, err := newOrchestrator(cfg, store)
	if err != nil {
		return err
	}

	summary, err := orch.AutoSummarizeOnSave(ctx, projectID, chapter.ID)
	if err != nil {
		fmt.Println(warnStyle.Render(orch.LastError()))
		return nil
	}
	if summary == nil {
		fmt.Println(infoStyle.Render("Summary still fresh, nothing to update"))
		return nil
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Summarized: %s", summary.Summary)))

	if err := orch.UpdateAllCharactersAfterChapter(ctx, projectID, chapter.ID); err != nil {
		fmt.Println(warnStyle.Render(orch.LastError()))
		return nil
	}

	if len(summary.CharactersPresent) > 0 {
		fmt.Println(infoStyle.Render(fmt.Sprintf("Updated knowledge for: %v", summary.CharactersPresent)))
	}
	return nil
}

func findChapterByNumber(p *story.Project, number int) *story.Chapter {
	for i := range p.Chapters {
		if p.Chapters[i].Number == number {
			ch := p.Chapters[i]
			return &ch
		}
	}
	return nil
}
