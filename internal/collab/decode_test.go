package collab

import (
	"errors"
	"strings"
	"testing"
)

type decodeTarget struct {
	Summary   string   `json:"summary"`
	KeyEvents []string `json:"keyEvents"`
}

func TestDecodeReply_CleanJSON(t *testing.T) {
	var got decodeTarget
	err := DecodeReply(`{"summary": "the chapter", "keyEvents": ["a", "b"]}`, &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "the chapter" || len(got.KeyEvents) != 2 {
		t.Errorf("bad decode: %+v", got)
	}
}

func TestDecodeReply_FencedJSON(t *testing.T) {
	reply := "```json\n{\"summary\": \"fenced\"}\n```"

	var got decodeTarget
	if err := DecodeReply(reply, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "fenced" {
		t.Errorf("fenced JSON not decoded: %+v", got)
	}
}

func TestDecodeReply_RepairableJSON(t *testing.T) {
	// Trailing comma and single quotes: invalid JSON a model emits often.
	reply := `{'summary': 'repaired', 'keyEvents': ['a',],}`

	var got decodeTarget
	if err := DecodeReply(reply, &got); err != nil {
		t.Fatalf("repairable reply rejected: %v", err)
	}
	if got.Summary != "repaired" {
		t.Errorf("bad repair: %+v", got)
	}
}

func TestDecodeReply_WrongShape(t *testing.T) {
	var got decodeTarget
	err := DecodeReply(`"just a prose sentence"`, &got)
	if !errors.Is(err, ErrBadReply) {
		t.Fatalf("expected ErrBadReply, got %v", err)
	}
}

func TestDecodeReply_Empty(t *testing.T) {
	var got decodeTarget
	for _, reply := range []string{"", "   \n", "``````"} {
		if err := DecodeReply(reply, &got); !errors.Is(err, ErrBadReply) {
			t.Errorf("reply %q: expected ErrBadReply, got %v", reply, err)
		}
	}
}

func TestStripFences(t *testing.T) {
	if got := stripFences("```json\n{}\n```"); got != "{}" {
		t.Errorf("json fence: got %q", got)
	}
	if got := stripFences("```\n{}\n```"); got != "{}" {
		t.Errorf("bare fence: got %q", got)
	}
	if got := stripFences(`{"a":1}`); got != `{"a":1}` {
		t.Errorf("unfenced input altered: %q", got)
	}
	if strings.Contains(stripFences("```json\n{\"a\": \"b\"}\n```"), "`") {
		t.Error("backticks survived stripping")
	}
}
