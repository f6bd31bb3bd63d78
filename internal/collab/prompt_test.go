package collab

import (
	"strings"
	"testing"
)

func TestAssemblePrompt_SummarizeChapter(t *testing.T) {
	prompt, err := AssemblePrompt(Request{
		Target: TargetStoryMemory,
		Action: ActionSummarizeChapter,
		Context: map[string]any{
			"chapterNumber":  5,
			"chapterTitle":   "The Crossing",
			"chapterContent": "Mara checked the cargo hold seals again.",
			"specification":  "A space-freighter crew drama.",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"chapterContent",
		"Mara checked the cargo hold seals again.",
		"The Crossing",
		"foreshadowing",
		"cliffhanger",
		"ONLY a JSON object",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("summarize prompt missing %q", want)
		}
	}
}

func TestAssemblePrompt_RetrieveContext_StableOrdering(t *testing.T) {
	req := Request{
		Target: TargetStoryMemory,
		Action: ActionRetrieveContext,
		Context: map[string]any{
			"facts":            []string{"f1"},
			"chapterSummaries": []string{"s1"},
			"worldbuilding":    []string{"w1"},
		},
	}

	first, err := AssemblePrompt(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := AssemblePrompt(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Map-backed context must not produce prompt churn between calls.
	if first != second {
		t.Error("prompt assembly is not deterministic for the same request")
	}

	if !strings.Contains(first, "relevantSummaryIds") {
		t.Error("retrieve prompt should ask for id lists")
	}
	if !strings.Contains(first, "ids that appear in the inventory") {
		t.Error("retrieve prompt should restrict selection to provided ids")
	}
}

func TestAssemblePrompt_UnknownAction(t *testing.T) {
	if _, err := AssemblePrompt(Request{Action: "write-the-novel"}); err == nil {
		t.Fatal("unknown action must be rejected")
	}
}
