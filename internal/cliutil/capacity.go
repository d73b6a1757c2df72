package cliutil

import "fmt"

// PrintCapacityTable renders the guaranteed/expected/maximum capacity
// in bytes for matrix parameters 1..len(guaranteed), the way an
// operator decides which k to pass to an embed.
func PrintCapacityTable(guaranteed, maximum []int, expected []float64) {
	fmt.Println("  k   guaranteed   expected   maximum")

	for i := range guaranteed {
		fmt.Printf("  %-3d %10d %10.1f %9d\n", i+1, guaranteed[i], expected[i], maximum[i])
	}
}

// BestFitK returns the largest k whose guaranteed capacity can still
// hold payloadLength bytes, or 0 if even k=1 cannot.
func BestFitK(guaranteed []int, payloadLength int) int {
	best := 0

	for i, g := range guaranteed {
		if g >= payloadLength {
			best = i + 1
		}
	}

	return best
}
