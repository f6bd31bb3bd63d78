package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/driftwood-studio/loom/internal/collab"
	"github.com/driftwood-studio/loom/internal/project"
	"github.com/driftwood-studio/loom/internal/story"
)

const summaryReplyJSON = `{
	"summary": "Mara discovers the stowaway and hides him from the captain.",
	"keyEvents": ["stowaway discovered", "Mara lies to the captain"],
	"charactersPresent": ["Mara Voss", "Captain Hale"],
	"locationsUsed": ["cargo hold"],
	"emotionalBeats": ["Mara torn between duty and sympathy"],
	"plotBeatsAdvanced": ["the manifest discrepancy"],
	"subplotsTouched": ["The captain's debt"],
	"foreshadowing": ["the stowaway's scarred hands"],
	"payoffs": [],
	"cliffhanger": "Footsteps approach the hold",
	"openQuestions": ["Who is the stowaway running from?"]
}`

func testProject(t *testing.T) (*project.MemoryStore, *story.Project) {
	t.Helper()

	p := &story.Project{
		ID:            "novel-1",
		Title:         "The Meridian",
		Specification: "A space-freighter crew drama.",
		Chapters: []story.Chapter{
			{ID: "ch-4", Number: 4, Content: strings.Repeat("The engines hummed through the night watch. ", 20)},
			{ID: "ch-5", Number: 5, Content: strings.Repeat("Mara checked the cargo hold seals again. ", 20)},
		},
		Characters: []story.Character{
			{ID: "mara", Name: "Mara Voss", Aliases: []string{"the navigator"}, Role: "protagonist"},
			{ID: "hale", Name: "Captain Hale", Role: "antagonist"},
		},
		FactAssertions: []story.FactAssertion{
			{ID: "f1", Statement: "The Meridian is the last ship with a working jump drive."},
			{ID: "f2", Statement: "Mara forged her pilot certification."},
		},
		WikiEntries: []story.WikiEntry{
			{ID: "w1", Title: "The Meridian", Content: "A decommissioned survey vessel."},
		},
		Subplots: []story.Subplot{
			{ID: "sp1", Name: "The captain's debt", Status: story.SubplotActive},
			{ID: "sp2", Name: "The mutiny", Status: story.SubplotResolved},
		},
		ChapterSummaries:   []story.ChapterSummary{},
		CharacterKnowledge: []story.CharacterKnowledgeState{},
	}

	store := project.NewMemoryStore()
	if err := store.SaveProject(context.Background(), p); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return store, p
}

func TestSummarizer_SummarizeChapter_Success(t *testing.T) {
	store, _ := testProject(t)
	mock := collab.NewMock(summaryReplyJSON)
	summarizer := NewSummarizer(store, mock)

	summary, err := summarizer.SummarizeChapter(context.Background(), collab.NewGate(), SummarizeRequest{
		ProjectID:      "novel-1",
		ChapterID:      "ch-5",
		ChapterNumber:  5,
		ChapterContent: "Mara checked the cargo hold seals again.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.ChapterID != "ch-5" || summary.ChapterNumber != 5 {
		t.Errorf("summary bound to wrong chapter: %s ch%d", summary.ChapterID, summary.ChapterNumber)
	}
	if summary.Summary == "" {
		t.Error("summary text is empty")
	}
	if len(summary.CharactersPresent) != 2 {
		t.Errorf("expected 2 characters present, got %d", len(summary.CharactersPresent))
	}
	if summary.Cliffhanger != "Footsteps approach the hold" {
		t.Errorf("unexpected cliffhanger: %q", summary.Cliffhanger)
	}
	if summary.TokenCount <= 0 {
		t.Error("token count not recorded")
	}
	if summary.GeneratedAt.IsZero() {
		t.Error("generation timestamp is zero")
	}
	if summary.Payoffs == nil {
		t.Error("empty optional fields should default to empty slices, not nil")
	}

	// The store holds exactly one summary for the chapter.
	p, err := store.GetProject(context.Background(), "novel-1")
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if got := countSummaries(p, "ch-5"); got != 1 {
		t.Errorf("expected 1 stored summary for ch-5, got %d", got)
	}
	if p.LastSummarizedChapter != 5 {
		t.Errorf("last summarized marker not advanced: %d", p.LastSummarizedChapter)
	}

	// The request carried the project context for the collaborator.
	req := mock.Requests[0]
	if req.Target != collab.TargetStoryMemory || req.Action != collab.ActionSummarizeChapter {
		t.Errorf("unexpected request routing: %s/%s", req.Target, req.Action)
	}
	if req.Context["specification"] != "A space-freighter crew drama." {
		t.Error("specification not passed to collaborator")
	}
}

func TestSummarizer_Resummarize_ReplacesPriorSummary(t *testing.T) {
	store, _ := testProject(t)
	mock := collab.NewMock(summaryReplyJSON)
	summarizer := NewSummarizer(store, mock)
	gate := collab.NewGate()

	req := SummarizeRequest{
		ProjectID:      "novel-1",
		ChapterID:      "ch-5",
		ChapterNumber:  5,
		ChapterContent: "Mara checked the cargo hold seals again.",
	}

	first, err := summarizer.SummarizeChapter(context.Background(), gate, req)
	if err != nil {
		t.Fatalf("first summarize: %v", err)
	}

	mock.Response = `{"summary": "A rewritten chapter five."}`
	req.ChapterContent = "A completely rewritten chapter about the engine room."
	second, err := summarizer.SummarizeChapter(context.Background(), gate, req)
	if err != nil {
		t.Fatalf("second summarize: %v", err)
	}

	if first.ID == second.ID {
		t.Error("resummarization should mint a new record")
	}

	p, _ := store.GetProject(context.Background(), "novel-1")
	if got := countSummaries(p, "ch-5"); got != 1 {
		t.Errorf("expected exactly 1 live summary after resummarize, got %d", got)
	}
	if p.ChapterSummaries[0].Summary != "A rewritten chapter five." {
		t.Errorf("stored summary not replaced: %q", p.ChapterSummaries[0].Summary)
	}
}

func TestSummarizer_ParseFailure_NoMutation(t *testing.T) {
	store, _ := testProject(t)
	mock := collab.NewMock(`["a reply that is valid JSON", "but not a summary object"]`)
	summarizer := NewSummarizer(store, mock)

	_, err := summarizer.SummarizeChapter(context.Background(), collab.NewGate(), SummarizeRequest{
		ProjectID:      "novel-1",
		ChapterID:      "ch-5",
		ChapterNumber:  5,
		ChapterContent: "content",
	})
	if err == nil {
		t.Fatal("expected parse failure")
	}
	if !strings.Contains(err.Error(), "invalid summary format") {
		t.Errorf("error should name the invalid format, got: %v", err)
	}

	p, _ := store.GetProject(context.Background(), "novel-1")
	if len(p.ChapterSummaries) != 0 {
		t.Error("parse failure must not write a summary")
	}
	if p.LastSummarizedChapter != 0 {
		t.Error("parse failure must not advance the marker")
	}
}

func TestSummarizer_GenerationFailure_NoMutation(t *testing.T) {
	store, _ := testProject(t)
	mock := collab.NewMockWithError(collab.ErrCollabFailed)
	summarizer := NewSummarizer(store, mock)

	_, err := summarizer.SummarizeChapter(context.Background(), collab.NewGate(), SummarizeRequest{
		ProjectID:      "novel-1",
		ChapterID:      "ch-5",
		ChapterNumber:  5,
		ChapterContent: "content",
	})
	if err == nil {
		t.Fatal("expected generation failure")
	}

	p, _ := store.GetProject(context.Background(), "novel-1")
	if len(p.ChapterSummaries) != 0 {
		t.Error("generation failure must not write a summary")
	}
}

func TestSummarizer_CancelledCall_NoPartialWrites(t *testing.T) {
	store, _ := testProject(t)
	mock := collab.NewMock(summaryReplyJSON)
	summarizer := NewSummarizer(store, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := summarizer.SummarizeChapter(ctx, collab.NewGate(), SummarizeRequest{
		ProjectID:      "novel-1",
		ChapterID:      "ch-5",
		ChapterNumber:  5,
		ChapterContent: "content",
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}

	p, _ := store.GetProject(context.Background(), "novel-1")
	if len(p.ChapterSummaries) != 0 {
		t.Error("cancelled call must not mutate the store")
	}
}

func countSummaries(p *story.Project, chapterID string) int {
	n := 0
	for _, s := range p.ChapterSummaries {
		if s.ChapterID == chapterID {
			n++
		}
	}
	return n
}
