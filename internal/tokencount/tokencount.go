// Package tokencount measures text size for the staleness gate and the
// summary size field. It prefers a real tokenizer and degrades to a
// whitespace word count when the encoding cannot be loaded (tiktoken
// fetches encoding data on first use, which may be unavailable offline).
package tokencount

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	once     sync.Once
	encoding *tiktoken.Tiktoken
)

// Count returns the token count of the text, or the word count when no
// tokenizer encoding is available.
func Count(text string) int {
	once.Do(func() {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err == nil {
			encoding = enc
		}
	})

	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return Words(text)
}

// Words returns the whitespace-separated word count of the text.
func Words(text string) int {
	return len(strings.Fields(text))
}

// RelativeChange returns |current-previous| / previous. A zero previous
// count always reads as full change.
func RelativeChange(previous, current int) float64 {
	if previous <= 0 {
		return 1
	}
	diff := current - previous
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(previous)
}
