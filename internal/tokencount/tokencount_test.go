package tokencount

import (
	"strings"
	"testing"
)

func TestWords(t *testing.T) {
	if got := Words("the cargo hold was silent"); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if got := Words("  \n\t "); got != 0 {
		t.Errorf("expected 0 for whitespace, got %d", got)
	}
}

func TestCount_ScalesWithText(t *testing.T) {
	// Count may use the tokenizer or the word fallback depending on
	// whether the encoding could be loaded; either way it must be
	// positive and grow with the text.
	short := "Mara checked the seals."
	long := strings.Repeat(short+" ", 50)

	a := Count(short)
	b := Count(long)
	if a <= 0 {
		t.Fatalf("expected positive count, got %d", a)
	}
	if b <= a {
		t.Errorf("longer text should count higher: %d vs %d", a, b)
	}
}

func TestRelativeChange(t *testing.T) {
	cases := []struct {
		previous, current int
		want              float64
	}{
		{100, 100, 0},
		{100, 110, 0.10},
		{100, 90, 0.10},
		{100, 200, 1.0},
		{0, 50, 1.0}, // no prior measure reads as full change
	}
	for _, tc := range cases {
		if got := RelativeChange(tc.previous, tc.current); got != tc.want {
			t.Errorf("RelativeChange(%d, %d) = %v, want %v", tc.previous, tc.current, got, tc.want)
		}
	}
}
