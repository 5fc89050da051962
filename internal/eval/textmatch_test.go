package eval_test

import (
	"testing"

	"github.com/openassess/qtibridge/internal/eval"
)

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello, World!", "hello world"},
		{"  spaced   out  ", "spaced out"},
		{"What's the (real) answer?", "whats the real answer"},
		{"", ""},
		{"...", ""},
	}
	for _, c := range cases {
		if got := eval.Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"paris", "paris", 0},
		{"paris", "parys", 1},
	}
	for _, c := range cases {
		if got := eval.Levenshtein(c.a, c.b); got != c.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if s := eval.Similarity("Capital of France?", "capital of france"); s != 1 {
		t.Errorf("punctuation-only difference scored %v, want 1", s)
	}
	if s := eval.Similarity("", ""); s != 1 {
		t.Errorf("two empties scored %v, want 1", s)
	}
	if s := eval.Similarity("alpha", "omega"); s >= 0.55 {
		t.Errorf("unrelated words scored %v, want well below threshold", s)
	}
	if s := eval.Similarity("The Seine river", "the seine rivers"); s < 0.9 {
		t.Errorf("near-identical text scored %v, want >= 0.9", s)
	}
}
