package packing

import (
	"cmp"
	"slices"
)

// Aggregate collapses a cart into one bounding pseudo-item: widths and weights
// are summed, heights and lengths take the maximum. The result is normalized.
// Items are expected to be normalized already.
func Aggregate(items []Item) Item {
	var total Item
	for _, it := range items {
		total.Width += it.Width
		total.Height = max(total.Height, it.Height)
		total.Length = max(total.Length, it.Length)
		total.Weight += it.Weight
	}
	total.Normalize()
	return total
}

// Fallback approximates the packing decision locally. It picks the smallest
// box, ordered by (width, height, length, max weight), that dominates the
// aggregate of the cart. It is a loose over-approximation and can report
// NoFit for carts a real solver would pack.
//
// The boxes slice is not modified.
func Fallback(boxes []Box, items []Item) Decision {
	total := Aggregate(items)

	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	for i := range sorted {
		sorted[i].Normalize()
	}
	slices.SortStableFunc(sorted, compareBoxes)

	for _, b := range sorted {
		if b.Holds(total) {
			return FitsInBox(b.ID)
		}
	}
	return NoFit
}

// Holds reports whether every dimension and the weight of it are within the
// box's. Both must be normalized.
func (b Box) Holds(it Item) bool {
	return it.Width <= b.Width &&
		it.Height <= b.Height &&
		it.Length <= b.Length &&
		it.Weight <= b.MaxWeight
}

func compareBoxes(a, b Box) int {
	return cmp.Or(
		cmp.Compare(a.Width, b.Width),
		cmp.Compare(a.Height, b.Height),
		cmp.Compare(a.Length, b.Length),
		cmp.Compare(a.MaxWeight, b.MaxWeight),
	)
}
