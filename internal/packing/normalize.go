package packing

import (
	"cmp"
	"slices"
)

// sortDimensions orders three values ascending with a three-comparator sort
// network. The repeated first comparison is required: the second swap can
// move a smaller value into b and break the ordering of a and b.
func sortDimensions(a, b, c *float64) {
	if *a > *b {
		*a, *b = *b, *a
	}
	if *b > *c {
		*b, *c = *c, *b
	}
	if *a > *b {
		*a, *b = *b, *a
	}
}

// positiveZero maps -0 to 0. Both compare equal but serialize differently.
func positiveZero(v *float64) {
	if *v == 0 {
		*v = 0
	}
}

// Normalize reorders the item's dimensions so that Width <= Height <= Length.
// Weight keeps its value; negative zeros become zero.
func (it *Item) Normalize() {
	sortDimensions(&it.Width, &it.Height, &it.Length)
	for _, v := range []*float64{&it.Width, &it.Height, &it.Length, &it.Weight} {
		positiveZero(v)
	}
}

// Normalize reorders the box's dimensions so that Width <= Height <= Length.
func (b *Box) Normalize() {
	sortDimensions(&b.Width, &b.Height, &b.Length)
	for _, v := range []*float64{&b.Width, &b.Height, &b.Length, &b.MaxWeight} {
		positiveZero(v)
	}
}

// NormalizeItems normalizes every item in place and sorts the slice by
// (width, height, length, weight). Weight only breaks ties, so the result
// is a total order and any permutation of a cart sorts to the same slice.
func NormalizeItems(items []Item) {
	for i := range items {
		items[i].Normalize()
	}
	slices.SortStableFunc(items, compareItems)
}

func compareItems(a, b Item) int {
	return cmp.Or(
		cmp.Compare(a.Width, b.Width),
		cmp.Compare(a.Height, b.Height),
		cmp.Compare(a.Length, b.Length),
		cmp.Compare(a.Weight, b.Weight),
	)
}

// SortBoxesByID orders a catalog ascending by id.
func SortBoxesByID(boxes []Box) {
	slices.SortStableFunc(boxes, func(a, b Box) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

// BoxIDs returns the ids of the catalog in its current order.
func BoxIDs(boxes []Box) []int64 {
	ids := make([]int64, len(boxes))
	for i, b := range boxes {
		ids[i] = b.ID
	}
	return ids
}
