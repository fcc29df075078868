package storage

import (
	"context"
	"errors"
	"math"

	"github.com/eugenenazirov/box-estimator/internal/packing"
)

var (
	// ErrInvalidBox indicates a box with negative or non-finite dimensions.
	ErrInvalidBox = errors.New("box dimensions and max weight must be non-negative numbers")
	// ErrDuplicateBoxID indicates two seed boxes share an id.
	ErrDuplicateBoxID = errors.New("box ids must be unique")
)

var defaultBoxes = []packing.Box{
	{Width: 10, Height: 10, Length: 10, MaxWeight: 5},
	{Width: 20, Height: 15, Length: 10, MaxWeight: 10},
	{Width: 30, Height: 20, Length: 20, MaxWeight: 20},
	{Width: 40, Height: 30, Length: 30, MaxWeight: 30},
	{Width: 60, Height: 40, Length: 40, MaxWeight: 50},
}

// Catalog is the read path to the boxes available in the warehouse.
type Catalog interface {
	// ListBoxes returns every box ordered ascending by id.
	ListBoxes(ctx context.Context) ([]packing.Box, error)
}

// MemoryCatalog keeps the catalog in-memory. It is fixed at construction, so
// concurrent readers need no locking.
type MemoryCatalog struct {
	boxes []packing.Box
}

// NewMemoryCatalog builds a catalog from seed boxes. Boxes without an id are
// numbered from 1 in seed order.
func NewMemoryCatalog(seed []packing.Box) (*MemoryCatalog, error) {
	boxes, err := assignIDs(seed)
	if err != nil {
		return nil, err
	}
	return &MemoryCatalog{boxes: boxes}, nil
}

// DefaultBoxes returns a copy of the built-in catalog seed.
func DefaultBoxes() []packing.Box {
	return cloneBoxes(defaultBoxes)
}

// ListBoxes returns a defensive copy of the catalog ordered by id.
func (c *MemoryCatalog) ListBoxes(ctx context.Context) ([]packing.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return cloneBoxes(c.boxes), nil
}

// ValidateBox checks that every dimension and the weight limit are usable.
func ValidateBox(b packing.Box) error {
	for _, v := range []float64{b.Width, b.Height, b.Length, b.MaxWeight} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidBox
		}
	}
	return nil
}

func assignIDs(seed []packing.Box) ([]packing.Box, error) {
	out := make([]packing.Box, 0, len(seed))
	seen := make(map[int64]struct{}, len(seed))
	var next int64 = 1
	for _, b := range seed {
		if err := ValidateBox(b); err != nil {
			return nil, err
		}
		if b.ID == 0 {
			b.ID = next
		}
		if _, dup := seen[b.ID]; dup {
			return nil, ErrDuplicateBoxID
		}
		seen[b.ID] = struct{}{}
		next = max(next, b.ID) + 1
		out = append(out, b)
	}
	packing.SortBoxesByID(out)
	return out, nil
}

func cloneBoxes(src []packing.Box) []packing.Box {
	if len(src) == 0 {
		return []packing.Box{}
	}

	out := make([]packing.Box, len(src))
	copy(out, src)
	packing.SortBoxesByID(out)
	return out
}
