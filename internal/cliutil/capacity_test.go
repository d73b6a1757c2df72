package cliutil

import "testing"

func TestBestFitKPicksLargestThatFits(t *testing.T) {
	// Deliberately non-monotonic: BestFitK must pick the largest k
	// (index) whose own guaranteed capacity fits, not the k with the
	// largest capacity overall.
	guaranteed := []int{90, 60, 0, 40, 10, 0, 0}

	tests := []struct {
		payloadLength int
		want          int
	}{
		{50, 2},
		{15, 4},
		{5, 5},
		{95, 0},
	}

	for _, tt := range tests {
		if got := BestFitK(guaranteed, tt.payloadLength); got != tt.want {
			t.Errorf("BestFitK(_, %d) = %d, want %d", tt.payloadLength, got, tt.want)
		}
	}
}

func TestBestFitKZeroWhenNothingFits(t *testing.T) {
	guaranteed := []int{0, 0, 0}

	if got := BestFitK(guaranteed, 1); got != 0 {
		t.Errorf("BestFitK with no capacity anywhere = %d, want 0", got)
	}
}
