// Package story defines the domain model for a long-form writing project:
// the project aggregate, its chapters and characters, and the continuity
// memory entities (chapter summaries, character knowledge snapshots) that
// the memory subsystem maintains on top of them.
package story

import (
	"strings"
	"time"
)

// SubplotStatus represents the lifecycle state of a narrative thread
type SubplotStatus string

const (
	SubplotPlanned   SubplotStatus = "planned"
	SubplotActive    SubplotStatus = "active"
	SubplotPaused    SubplotStatus = "paused"
	SubplotResolved  SubplotStatus = "resolved"
	SubplotAbandoned SubplotStatus = "abandoned"
)

// Chapter is one unit of manuscript prose within a project
type Chapter struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Character is a roster entry for one cast member
type Character struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Role    string   `json:"role,omitempty"` // protagonist, antagonist, supporting...
}

// Matches reports whether the given name refers to this character,
// comparing the canonical name and all aliases case-insensitively.
func (c Character) Matches(name string) bool {
	if strings.EqualFold(c.Name, name) {
		return true
	}
	for _, alias := range c.Aliases {
		if strings.EqualFold(alias, name) {
			return true
		}
	}
	return false
}

// Subplot is a tracked narrative thread with a lifecycle status
type Subplot struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      SubplotStatus `json:"status"`
}

// IsActive reports whether the subplot still needs narrative attention.
// Anything that is not resolved or abandoned counts as active.
func (s Subplot) IsActive() bool {
	return s.Status != SubplotResolved && s.Status != SubplotAbandoned
}

// FactAssertion is an atomic world fact with provenance.
// The memory subsystem reads these but never writes them.
type FactAssertion struct {
	ID        string    `json:"id"`
	Statement string    `json:"statement"`
	Source    string    `json:"source,omitempty"` // where the fact was established
	ChapterID string    `json:"chapter_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WikiEntry is world-building reference data, read-only here
type WikiEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Content  string `json:"content"`
}

// ChapterSummary is a structured distillation of one chapter's narrative
// content. At most one live summary exists per chapter; re-summarization
// replaces the prior entry rather than versioning it.
type ChapterSummary struct {
	ID                string    `json:"id"`
	ChapterID         string    `json:"chapter_id"`
	ChapterNumber     int       `json:"chapter_number"`
	Summary           string    `json:"summary"`
	KeyEvents         []string  `json:"key_events,omitempty"`
	CharactersPresent []string  `json:"characters_present,omitempty"`
	LocationsUsed     []string  `json:"locations_used,omitempty"`
	EmotionalBeats    []string  `json:"emotional_beats,omitempty"`
	PlotBeatsAdvanced []string  `json:"plot_beats_advanced,omitempty"`
	SubplotsTouched   []string  `json:"subplots_touched,omitempty"`
	Foreshadowing     []string  `json:"foreshadowing,omitempty"`
	Payoffs           []string  `json:"payoffs,omitempty"`
	Cliffhanger       string    `json:"cliffhanger,omitempty"`
	OpenQuestions     []string  `json:"open_questions,omitempty"`
	TokenCount        int       `json:"token_count"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// CharacterKnowledgeState is an append-only snapshot of one character's
// epistemic state as of a given chapter. A character accumulates many
// snapshots over the life of a project; the current state is the snapshot
// with the highest AsOfChapterNumber.
type CharacterKnowledgeState struct {
	ID                string            `json:"id"`
	CharacterID       string            `json:"character_id"`
	AsOfChapterID     string            `json:"as_of_chapter_id"`
	AsOfChapterNumber int               `json:"as_of_chapter_number"`
	KnownFacts        []string          `json:"known_facts,omitempty"`
	Beliefs           []string          `json:"beliefs,omitempty"`
	Secrets           []string          `json:"secrets,omitempty"`
	Relationships     map[string]string `json:"relationships,omitempty"` // other character id -> descriptor
	EmotionalState    string            `json:"emotional_state,omitempty"`
	ActiveGoals       []string          `json:"active_goals,omitempty"`
	RecentExperiences []string          `json:"recent_experiences,omitempty"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// StoryMemoryContext is the bounded bundle of narrative state assembled for
// a single generation request. It is a value object, never persisted.
type StoryMemoryContext struct {
	RelevantSummaries       []ChapterSummary          `json:"relevant_summaries"`
	RelevantCharacterStates []CharacterKnowledgeState `json:"relevant_character_states"`
	RelevantFacts           []FactAssertion           `json:"relevant_facts"`
	RelevantWorldbuilding   []WikiEntry               `json:"relevant_worldbuilding"`
	ActiveSubplots          []Subplot                 `json:"active_subplots"`
	OpenQuestions           []string                  `json:"open_questions"`
	RecentEmotionalBeats    []string                  `json:"recent_emotional_beats"`
	UnresolvedSetups        []string                  `json:"unresolved_setups"`
}

// Project is the aggregate that owns all persisted narrative state.
// The memory subsystem reads from it and writes back through whole-array
// replacement; it never deletes entities on its own.
type Project struct {
	ID                    string                    `json:"id"`
	Title                 string                    `json:"title"`
	Specification         string                    `json:"specification,omitempty"` // premise, tone, genre notes
	Chapters              []Chapter                 `json:"chapters"`
	Characters            []Character               `json:"characters"`
	FactAssertions        []FactAssertion           `json:"fact_assertions"`
	WikiEntries           []WikiEntry               `json:"wiki_entries"`
	Subplots              []Subplot                 `json:"subplots"`
	ChapterSummaries      []ChapterSummary          `json:"chapter_summaries"`
	CharacterKnowledge    []CharacterKnowledgeState `json:"character_knowledge"`
	LastSummarizedChapter int                       `json:"last_summarized_chapter"`
	UpdatedAt             time.Time                 `json:"updated_at"`
}

// FindCharacter resolves a name or alias against the roster.
// Returns nil if no character matches.
func (p *Project) FindCharacter(name string) *Character {
	for i := range p.Characters {
		if p.Characters[i].Matches(name) {
			return &p.Characters[i]
		}
	}
	return nil
}

// CharacterByID looks a character up by its identifier.
func (p *Project) CharacterByID(id string) *Character {
	for i := range p.Characters {
		if p.Characters[i].ID == id {
			return &p.Characters[i]
		}
	}
	return nil
}

// UpsertChapter returns the chapter list with ch replacing the entry
// sharing its id, or appended when the id is new. Both the CLI and the
// HTTP facade write chapters through this.
func (p *Project) UpsertChapter(ch Chapter) []Chapter {
	chapters := p.Chapters
	for i := range chapters {
		if chapters[i].ID == ch.ID {
			chapters[i] = ch
			return chapters
		}
	}
	return append(chapters, ch)
}

// SummaryForChapter returns the live summary for a chapter, or nil.
func (p *Project) SummaryForChapter(chapterID string) *ChapterSummary {
	for i := range p.ChapterSummaries {
		if p.ChapterSummaries[i].ChapterID == chapterID {
			return &p.ChapterSummaries[i]
		}
	}
	return nil
}

// ActiveSubplots returns every subplot that is neither resolved nor abandoned.
func (p *Project) ActiveSubplots() []Subplot {
	active := []Subplot{}
	for _, sp := range p.Subplots {
		if sp.IsActive() {
			active = append(active, sp)
		}
	}
	return active
}

// WordCount counts whitespace-separated words in a chapter's content
func (c Chapter) WordCount() int {
	return len(strings.Fields(c.Content))
}
