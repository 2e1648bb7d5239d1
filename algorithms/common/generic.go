package common

import "golang.org/x/exp/constraints"

// ArgMax returns the index of the first maximum, or -1 for empty input
func ArgMax[T constraints.Ordered](values []T) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}

// CompetitionRanks assigns 1-based ranks where equal values share the lowest
// rank ("1224" ranking). less orders values from best to worst.
func CompetitionRanks[T any](values []T, less func(a, b T) bool) []int {
	ranks := make([]int, len(values))
	for i := range values {
		rank := 1
		for j := range values {
			if less(values[j], values[i]) {
				rank++
			}
		}
		ranks[i] = rank
	}
	return ranks
}
