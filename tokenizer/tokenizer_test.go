package tokenizer

import "testing"

func TestHeuristicEstimateTokens(t *testing.T) {
	est := NewHeuristic(4)

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"ab", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"12345678", 2},
	}

	for _, tt := range tests {
		if got := est.EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestHeuristicDefaultsRatio(t *testing.T) {
	est := NewHeuristic(0)
	if est.CharsPerToken != DefaultCharsPerToken {
		t.Errorf("expected default ratio %d, got %d", DefaultCharsPerToken, est.CharsPerToken)
	}
}
