// Package project provides the store for the project aggregate. The memory
// subsystem mutates the aggregate exclusively through UpdateProject with
// whole-array replacement patches; it never issues fine-grained deltas.
package project

import (
	"context"
	"errors"

	"github.com/driftwood-studio/loom/internal/story"
)

var (
	ErrNotFound = errors.New("project not found")
)

// Patch is a partial update to a project. Nil fields are left untouched;
// non-nil fields replace the stored value wholesale, including slice
// fields, which are always submitted as the full updated array.
type Patch struct {
	Chapters              *[]story.Chapter
	ChapterSummaries      *[]story.ChapterSummary
	CharacterKnowledge    *[]story.CharacterKnowledgeState
	Subplots              *[]story.Subplot
	LastSummarizedChapter *int
}

// Store is the persistence boundary for project aggregates.
// UpdateProject is the memory subsystem's sole write path.
type Store interface {
	// GetProject loads a project by id. Returns ErrNotFound if absent.
	GetProject(ctx context.Context, id string) (*story.Project, error)

	// SaveProject creates or fully replaces a project.
	SaveProject(ctx context.Context, p *story.Project) error

	// UpdateProject applies a whole-field replacement patch and returns
	// the updated aggregate.
	UpdateProject(ctx context.Context, id string, patch Patch) (*story.Project, error)

	// ListProjects returns all stored projects.
	ListProjects(ctx context.Context) ([]story.Project, error)

	// Close releases store resources.
	Close() error
}

// apply merges a patch into a project in place.
func apply(p *story.Project, patch Patch) {
	if patch.Chapters != nil {
		p.Chapters = *patch.Chapters
	}
	if patch.ChapterSummaries != nil {
		p.ChapterSummaries = *patch.ChapterSummaries
	}
	if patch.CharacterKnowledge != nil {
		p.CharacterKnowledge = *patch.CharacterKnowledge
	}
	if patch.Subplots != nil {
		p.Subplots = *patch.Subplots
	}
	if patch.LastSummarizedChapter != nil {
		p.LastSummarizedChapter = *patch.LastSummarizedChapter
	}
}
