package collab

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeReply parses a collaborator reply into the given value. Models
// wrap JSON in code fences or emit trailing commas often enough that a
// strict decode alone rejects usable replies, so the reply is stripped of
// fences and run through jsonrepair before decoding. A reply that cannot
// be decoded even after repair is a parse failure (ErrBadReply).
func DecodeReply(reply string, v any) error {
	trimmed := stripFences(strings.TrimSpace(reply))
	if trimmed == "" {
		return fmt.Errorf("%w: empty reply", ErrBadReply)
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
