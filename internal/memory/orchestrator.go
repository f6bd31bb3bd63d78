package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/driftwood-studio/loom/internal/collab"
	"github.com/driftwood-studio/loom/internal/project"
	"github.com/driftwood-studio/loom/internal/story"
	"github.com/driftwood-studio/loom/internal/tokencount"
)

const (
	// DefaultMinChapterLength is the minimum content length, in
	// characters, below which a chapter is not worth summarizing.
	DefaultMinChapterLength = 500

	// DefaultStalenessThreshold is the relative token-count change below
	// which an existing summary is still considered fresh.
	DefaultStalenessThreshold = 0.20
)

// Orchestrator wires chapter-save events to summarization and knowledge
// updates. It owns the single-flight gate for the shared collaborator and
// passes it to every callee, and it records the last human-readable error
// per step so callers can report "this step didn't complete, state
// unchanged" instead of fabricating content.
type Orchestrator struct {
	store      project.Store
	summarizer *Summarizer
	tracker    *Tracker
	engine     *Engine
	gate       *collab.Gate

	minChapterLength   int
	stalenessThreshold float64

	errMu     sync.Mutex
	lastError string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMinChapterLength overrides the minimum summarizable content length.
func WithMinChapterLength(chars int) Option {
	return func(o *Orchestrator) { o.minChapterLength = chars }
}

// WithStalenessThreshold overrides the relative-change gate.
func WithStalenessThreshold(threshold float64) Option {
	return func(o *Orchestrator) { o.stalenessThreshold = threshold }
}

// NewOrchestrator creates the orchestration layer over a store and a
// collaborator.
func NewOrchestrator(store project.Store, c collab.Collaborator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:              store,
		summarizer:         NewSummarizer(store, c),
		tracker:            NewTracker(store, c),
		engine:             NewEngine(store, c),
		gate:               collab.NewGate(),
		minChapterLength:   DefaultMinChapterLength,
		stalenessThreshold: DefaultStalenessThreshold,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LastError returns the most recently recorded step failure, or "".
func (o *Orchestrator) LastError() string {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	return o.lastError
}

func (o *Orchestrator) recordError(step string, err error) {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	o.lastError = fmt.Sprintf("%s didn't complete, state unchanged: %v", step, err)
}

// HandleChapterSave runs the full chapter-save pipeline: summarize if
// stale, then update knowledge for every character present. Summarization
// always completes or fails before knowledge updates begin, since the
// updates consume the summary text.
func (o *Orchestrator) HandleChapterSave(ctx context.Context, projectID, chapterID string) error {
	if _, err := o.AutoSummarizeOnSave(ctx, projectID, chapterID); err != nil {
		return err
	}
	return o.UpdateAllCharactersAfterChapter(ctx, projectID, chapterID)
}

// AutoSummarizeOnSave summarizes a chapter unless the content is too short
// or an existing summary is still fresh. Returns the new summary, or nil
// when summarization was skipped.
func (o *Orchestrator) AutoSummarizeOnSave(ctx context.Context, projectID, chapterID string) (*story.ChapterSummary, error) {
	p, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	chapter := chapterByID(p, chapterID)
	if chapter == nil {
		return nil, fmt.Errorf("chapter %s not found in project %s", chapterID, projectID)
	}

	if len(chapter.Content) < o.minChapterLength {
		return nil, nil
	}

	if existing := p.SummaryForChapter(chapterID); existing != nil {
		change := tokencount.RelativeChange(existing.TokenCount, tokencount.Count(chapter.Content))
		if change < o.stalenessThreshold {
			return nil, nil
		}
	}

	summary, err := o.summarizer.SummarizeChapter(ctx, o.gate, SummarizeRequest{
		ProjectID:      projectID,
		ChapterID:      chapter.ID,
		ChapterNumber:  chapter.Number,
		ChapterTitle:   chapter.Title,
		ChapterContent: chapter.Content,
	})
	if err != nil {
		o.recordError("chapter summarization", err)
		return nil, err
	}
	return summary, nil
}

// UpdateAllCharactersAfterChapter resolves the summary's charactersPresent
// against the roster and updates each resolved character's knowledge
// sequentially. Sequential, awaited calls are a correctness requirement:
// the shared collaborator rejects concurrent requests, so the next update
// must not start until the previous one has finished. A failed update is
// recorded and does not block the remaining characters.
func (o *Orchestrator) UpdateAllCharactersAfterChapter(ctx context.Context, projectID, chapterID string) error {
	p, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	summary := p.SummaryForChapter(chapterID)
	if summary == nil {
		// Nothing to propagate; the chapter was too short or
		// summarization failed upstream.
		return nil
	}

	var firstErr error
	for _, name := range summary.CharactersPresent {
		if err := ctx.Err(); err != nil {
			return err
		}

		character := p.FindCharacter(name)
		if character == nil {
			continue
		}

		_, err := o.tracker.UpdateCharacterKnowledge(ctx, o.gate, KnowledgeRequest{
			ProjectID:          projectID,
			CharacterID:        character.ID,
			CharacterName:      character.Name,
			CharacterRole:      character.Role,
			ChapterID:          summary.ChapterID,
			ChapterNumber:      summary.ChapterNumber,
			ChapterSummaryText: summary.Summary,
		})
		if err != nil {
			o.recordError(fmt.Sprintf("knowledge update for %s", character.Name), err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// RelevantContext retrieves the story memory context for a generation
// request under the orchestrator's gate.
func (o *Orchestrator) RelevantContext(ctx context.Context, opts ContextOptions) (*story.StoryMemoryContext, error) {
	return o.engine.RelevantContext(ctx, o.gate, opts)
}

// CharacterState exposes the tracker's current-state lookup.
func (o *Orchestrator) CharacterState(ctx context.Context, projectID, characterID string) (*story.CharacterKnowledgeState, error) {
	return o.tracker.CharacterState(ctx, projectID, characterID)
}

func chapterByID(p *story.Project, chapterID string) *story.Chapter {
	for i := range p.Chapters {
		if p.Chapters[i].ID == chapterID {
			return &p.Chapters[i]
		}
	}
	return nil
}
