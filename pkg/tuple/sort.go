package tuple

import (
	"slices"

	"pagekernel/pkg/primitives"
)

// SortByField stable-sorts tuples on column col. Tuples with equal keys keep
// their relative order. The first comparison error aborts the ordering and is
// returned; the slice order is then unspecified.
func SortByField(tuples []*Tuple, col primitives.ColumnID, ascending bool) error {
	var sortErr error
	slices.SortStableFunc(tuples, func(a, b *Tuple) int {
		if sortErr != nil {
			return 0
		}
		c, err := compareOn(a, b, col)
		if err != nil {
			sortErr = err
			return 0
		}
		if !ascending {
			return -c
		}
		return c
	})
	return sortErr
}

func compareOn(a, b *Tuple, col primitives.ColumnID) (int, error) {
	fa, err := a.GetField(col)
	if err != nil {
		return 0, err
	}
	fb, err := b.GetField(col)
	if err != nil {
		return 0, err
	}
	return fa.CompareTo(fb)
}
