package domain

import "slices"

// OrderedCategories returns every named school in display order.
// When no school has been selected yet the order is a random permutation;
// otherwise schools are sorted by descending count, keeping declaration
// order among equal counts.
func OrderedCategories(counts SelectionCounters, rng RNG) []Category {
	out := Categories()

	if allZero(counts) {
		// Fisher-Yates shuffle.
		for i := len(out) - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			out[i], out[j] = out[j], out[i]
		}
		return out
	}

	slices.SortStableFunc(out, func(a, b Category) int {
		return counts[b] - counts[a]
	})
	return out
}

func allZero(counts SelectionCounters) bool {
	for _, c := range categories {
		if counts[c] > 0 {
			return false
		}
	}
	return true
}
