// Package memory implements the narrative continuity subsystem: incremental
// chapter summarization, append-only character knowledge tracking, two-tier
// context retrieval, and the chapter-save orchestration that sequences them
// against the single-flight generation collaborator.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftwood-studio/loom/internal/collab"
	"github.com/driftwood-studio/loom/internal/project"
	"github.com/driftwood-studio/loom/internal/story"
	"github.com/driftwood-studio/loom/internal/tokencount"
)

// Summarizer turns chapter prose into a structured ChapterSummary via the
// generation collaborator. It does not gate on content length or staleness;
// that policy belongs to the orchestrator.
type Summarizer struct {
	store  project.Store
	collab collab.Collaborator
}

// NewSummarizer creates a chapter summarizer.
func NewSummarizer(store project.Store, c collab.Collaborator) *Summarizer {
	return &Summarizer{store: store, collab: c}
}

// SummarizeRequest identifies the chapter to summarize.
type SummarizeRequest struct {
	ProjectID      string
	ChapterID      string
	ChapterNumber  int
	ChapterTitle   string // optional
	ChapterContent string
}

// summaryReply is the collaborator's JSON shape for summarize-chapter.
// Optional fields default to empty collections at this boundary so readers
// never see nil-vs-present distinctions downstream.
type summaryReply struct {
	Summary           string   `json:"summary"`
	KeyEvents         []string `json:"keyEvents"`
	CharactersPresent []string `json:"charactersPresent"`
	LocationsUsed     []string `json:"locationsUsed"`
	EmotionalBeats    []string `json:"emotionalBeats"`
	PlotBeatsAdvanced []string `json:"plotBeatsAdvanced"`
	SubplotsTouched   []string `json:"subplotsTouched"`
	Foreshadowing     []string `json:"foreshadowing"`
	Payoffs           []string `json:"payoffs"`
	Cliffhanger       string   `json:"cliffhanger"`
	OpenQuestions     []string `json:"openQuestions"`
}

// SummarizeChapter produces a summary for one chapter and replaces any
// prior summary for the same chapter in the store. A generation or parse
// failure is terminal: no store mutation, no synthetic summary. The gate
// serializes the collaborator call.
func (s *Summarizer) SummarizeChapter(ctx context.Context, gate *collab.Gate, req SummarizeRequest) (*story.ChapterSummary, error) {
	if req.ProjectID == "" || req.ChapterID == "" {
		return nil, fmt.Errorf("project and chapter ids are required")
	}
	if req.ChapterContent == "" {
		return nil, fmt.Errorf("chapter content is required")
	}

	p, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	var reply string
	err = gate.Do(func() error {
		var callErr error
		reply, callErr = s.collab.Complete(ctx, collab.Request{
			Target: collab.TargetStoryMemory,
			Action: collab.ActionSummarizeChapter,
			Context: map[string]any{
				"specification":  p.Specification,
				"characters":     p.Characters,
				"chapterNumber":  req.ChapterNumber,
				"chapterTitle":   req.ChapterTitle,
				"chapterContent": req.ChapterContent,
			},
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var parsed summaryReply
	if err := collab.DecodeReply(reply, &parsed); err != nil {
		return nil, fmt.Errorf("invalid summary format: %w", err)
	}

	summary := buildSummary(req, parsed)

	// Delete-then-insert keeps at most one live summary per chapter.
	updated := make([]story.ChapterSummary, 0, len(p.ChapterSummaries)+1)
	for _, existing := range p.ChapterSummaries {
		if existing.ChapterID != req.ChapterID {
			updated = append(updated, existing)
		}
	}
	updated = append(updated, summary)

	marker := p.LastSummarizedChapter
	if req.ChapterNumber > marker {
		marker = req.ChapterNumber
	}

	if _, err := s.store.UpdateProject(ctx, req.ProjectID, project.Patch{
		ChapterSummaries:      &updated,
		LastSummarizedChapter: &marker,
	}); err != nil {
		return nil, err
	}

	return &summary, nil
}

// buildSummary assembles the stored record from the parsed reply,
// defaulting absent collections once, here at the boundary.
func buildSummary(req SummarizeRequest, parsed summaryReply) story.ChapterSummary {
	return story.ChapterSummary{
		ID:                uuid.NewString(),
		ChapterID:         req.ChapterID,
		ChapterNumber:     req.ChapterNumber,
		Summary:           parsed.Summary,
		KeyEvents:         orEmpty(parsed.KeyEvents),
		CharactersPresent: orEmpty(parsed.CharactersPresent),
		LocationsUsed:     orEmpty(parsed.LocationsUsed),
		EmotionalBeats:    orEmpty(parsed.EmotionalBeats),
		PlotBeatsAdvanced: orEmpty(parsed.PlotBeatsAdvanced),
		SubplotsTouched:   orEmpty(parsed.SubplotsTouched),
		Foreshadowing:     orEmpty(parsed.Foreshadowing),
		Payoffs:           orEmpty(parsed.Payoffs),
		Cliffhanger:       parsed.Cliffhanger,
		OpenQuestions:     orEmpty(parsed.OpenQuestions),
		TokenCount:        tokencount.Count(req.ChapterContent),
		GeneratedAt:       time.Now(),
	}
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
