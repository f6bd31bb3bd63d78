package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftwood-studio/loom/internal/collab"
	"github.com/driftwood-studio/loom/internal/project"
	"github.com/driftwood-studio/loom/internal/story"
)

// Tracker maintains the append-only sequence of per-character knowledge
// snapshots. Snapshots are never mutated or removed; the current state of
// a character is the snapshot with the highest as-of chapter number.
type Tracker struct {
	store  project.Store
	collab collab.Collaborator
}

// NewTracker creates a character knowledge tracker.
func NewTracker(store project.Store, c collab.Collaborator) *Tracker {
	return &Tracker{store: store, collab: c}
}

// KnowledgeRequest describes one character update after a chapter.
type KnowledgeRequest struct {
	ProjectID            string
	CharacterID          string
	CharacterName        string
	CharacterRole        string // optional
	ChapterID            string
	ChapterNumber        int
	ChapterSummaryText   string
	CharacterExperiences []string // optional hints
	NewInformation       []string // optional hints
}

// knowledgeReply is the collaborator's JSON shape for
// update-character-knowledge.
type knowledgeReply struct {
	KnownFacts        []string          `json:"knownFacts"`
	Beliefs           []string          `json:"beliefs"`
	Secrets           []string          `json:"secrets"`
	Relationships     map[string]string `json:"relationships"`
	EmotionalState    string            `json:"emotionalState"`
	ActiveGoals       []string          `json:"activeGoals"`
	RecentExperiences []string          `json:"recentExperiences"`
}

// UpdateCharacterKnowledge derives a new knowledge snapshot for one
// character from their previous state and the new chapter's summary, and
// appends it to the store. A generation or parse failure appends nothing.
func (t *Tracker) UpdateCharacterKnowledge(ctx context.Context, gate *collab.Gate, req KnowledgeRequest) (*story.CharacterKnowledgeState, error) {
	if req.ProjectID == "" || req.CharacterID == "" {
		return nil, fmt.Errorf("project and character ids are required")
	}
	if req.ChapterSummaryText == "" {
		return nil, fmt.Errorf("chapter summary text is required")
	}

	p, err := t.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	previous := CurrentState(p.CharacterKnowledge, req.CharacterID)

	reqContext := map[string]any{
		"characterName":        req.CharacterName,
		"characterRole":        req.CharacterRole,
		"chapterNumber":        req.ChapterNumber,
		"chapterSummary":       req.ChapterSummaryText,
		"characterExperiences": req.CharacterExperiences,
		"newInformation":       req.NewInformation,
	}
	if previous != nil {
		reqContext["previousKnowledgeState"] = previous
	}

	var reply string
	err = gate.Do(func() error {
		var callErr error
		reply, callErr = t.collab.Complete(ctx, collab.Request{
			Target:  collab.TargetStoryMemory,
			Action:  collab.ActionUpdateKnowledge,
			Context: reqContext,
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var parsed knowledgeReply
	if err := collab.DecodeReply(reply, &parsed); err != nil {
		return nil, fmt.Errorf("invalid knowledge format: %w", err)
	}

	state := story.CharacterKnowledgeState{
		ID:                uuid.NewString(),
		CharacterID:       req.CharacterID,
		AsOfChapterID:     req.ChapterID,
		AsOfChapterNumber: req.ChapterNumber,
		KnownFacts:        orEmpty(parsed.KnownFacts),
		Beliefs:           orEmpty(parsed.Beliefs),
		Secrets:           orEmpty(parsed.Secrets),
		Relationships:     parsed.Relationships,
		EmotionalState:    parsed.EmotionalState,
		ActiveGoals:       orEmpty(parsed.ActiveGoals),
		RecentExperiences: orEmpty(parsed.RecentExperiences),
		GeneratedAt:       time.Now(),
	}
	if state.Relationships == nil {
		state.Relationships = map[string]string{}
	}

	// Append-only: prior snapshots are never touched.
	updated := make([]story.CharacterKnowledgeState, 0, len(p.CharacterKnowledge)+1)
	updated = append(updated, p.CharacterKnowledge...)
	updated = append(updated, state)

	if _, err := t.store.UpdateProject(ctx, req.ProjectID, project.Patch{
		CharacterKnowledge: &updated,
	}); err != nil {
		return nil, err
	}

	return &state, nil
}

// CharacterState loads the current snapshot for a character, or nil if the
// character has none.
func (t *Tracker) CharacterState(ctx context.Context, projectID, characterID string) (*story.CharacterKnowledgeState, error) {
	p, err := t.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return CurrentState(p.CharacterKnowledge, characterID), nil
}

// CurrentState folds over all snapshots for a character and returns the
// one with the maximum as-of chapter number, ties broken by the latest
// generation timestamp. Returns nil when the character has no snapshots.
func CurrentState(states []story.CharacterKnowledgeState, characterID string) *story.CharacterKnowledgeState {
	var current *story.CharacterKnowledgeState
	for i := range states {
		s := &states[i]
		if s.CharacterID != characterID {
			continue
		}
		if current == nil ||
			s.AsOfChapterNumber > current.AsOfChapterNumber ||
			(s.AsOfChapterNumber == current.AsOfChapterNumber && s.GeneratedAt.After(current.GeneratedAt)) {
			current = s
		}
	}
	if current == nil {
		return nil
	}
	copied := *current
	return &copied
}
