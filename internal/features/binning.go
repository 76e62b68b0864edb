package features

import (
	"errors"
	"math"
)

// ErrInvalidBins is returned for a table without at least two strictly
// increasing edges or with a label count that does not match.
var ErrInvalidBins = errors.New("bins need at least two strictly increasing edges and one label per edge")

// Bins maps a value onto ordered category labels. Edges are the finite
// boundaries; the bucket above the last edge is open towards +Inf, so
// len(Labels) == len(Edges).
//
// The lowest bucket [Edges[0], Edges[1]] is closed on both ends, every
// later bucket (Edges[i], Edges[i+1]] is closed on the right only. Values
// below Edges[0] and NaN fall into the lowest bucket.
type Bins struct {
	Edges  []float64
	Labels []int
}

// NewBins returns bins labelled 0, 1, ... in ascending order.
func NewBins(edges []float64) Bins {
	labels := make([]int, len(edges))
	for i := range labels {
		labels[i] = i
	}
	return Bins{Edges: copyEdges(edges), Labels: labels}
}

// NewDescendingBins returns bins whose lowest bucket carries the highest label.
func NewDescendingBins(edges []float64) Bins {
	labels := make([]int, len(edges))
	for i := range labels {
		labels[i] = len(edges) - 1 - i
	}
	return Bins{Edges: copyEdges(edges), Labels: labels}
}

// Categorize returns the label of the bucket holding v.
func (b Bins) Categorize(v float64) int {
	return b.Labels[b.bucket(v)]
}

func (b Bins) bucket(v float64) int {
	n := len(b.Edges)
	if n < 2 || math.IsNaN(v) || v <= b.Edges[1] {
		return 0
	}
	for i := 1; i < n-1; i++ {
		if v <= b.Edges[i+1] {
			return i
		}
	}
	return n - 1
}

// Validate reports whether b can categorize values.
func (b Bins) Validate() error {
	if len(b.Edges) < 2 || len(b.Labels) != len(b.Edges) {
		return ErrInvalidBins
	}
	for i := 1; i < len(b.Edges); i++ {
		if !(b.Edges[i] > b.Edges[i-1]) {
			return ErrInvalidBins
		}
	}
	return nil
}

func copyEdges(edges []float64) []float64 {
	out := make([]float64, len(edges))
	copy(out, edges)
	return out
}
