// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package spatial implements an immutable two-dimensional KD-tree over geographic coordinates.
//
// Coordinates are treated as flat Euclidean (lat, lon) pairs. They are neither projected nor
// scaled, so distances reported by the tree are in degrees and only meaningful for ranking
// candidates. Point i of the tree always refers to element i of the slice it was built from.
package spatial

import (
	"container/heap"
	"math"
	"sort"

	"github.com/wneessen/geonear/internal/geo"
)

const (
	axisLat = iota
	axisLon
)

// Neighbor is a point found by a tree query, identified by its position in the build slice.
type Neighbor struct {
	Index    int
	Distance float64
}

// KDTree is a balanced KD-tree. It is safe for concurrent use, since it is never modified
// after Build returns.
type KDTree struct {
	points []geo.Coordinate
	root   *node
}

type node struct {
	index int
	axis  int
	left  *node
	right *node
}

// Build constructs a KDTree over the given points. The points slice is copied.
func Build(points []geo.Coordinate) *KDTree {
	tree := &KDTree{points: make([]geo.Coordinate, len(points))}
	copy(tree.points, points)

	indices := make([]int, len(points))
	for i := range indices {
		indices[i] = i
	}
	tree.root = tree.build(indices, 0)
	return tree
}

// Len returns the number of points in the tree.
func (t *KDTree) Len() int {
	return len(t.points)
}

// Point returns the coordinate stored at index i.
func (t *KDTree) Point(i int) geo.Coordinate {
	return t.points[i]
}

// Nearest returns the index of the point closest to q by Euclidean distance and that distance.
// ok is false if the tree is empty.
func (t *KDTree) Nearest(q geo.Coordinate) (index int, distance float64, ok bool) {
	found := t.KNearest(q, 1)
	if len(found) == 0 {
		return -1, math.Inf(1), false
	}
	return found[0].Index, found[0].Distance, true
}

// KNearest returns up to k points closest to q, ordered by ascending Euclidean distance.
// Points at equal distance are ordered by ascending index, which makes results independent
// of the tree layout.
func (t *KDTree) KNearest(q geo.Coordinate, k int) []Neighbor {
	if k <= 0 || t.root == nil {
		return nil
	}
	best := make(candidates, 0, k)
	t.search(t.root, q, k, &best)

	sort.Slice(best, func(i, j int) bool { return best.Less(j, i) })
	result := make([]Neighbor, len(best))
	for i, c := range best {
		result[i] = Neighbor{Index: c.index, Distance: math.Sqrt(c.dist2)}
	}
	return result
}

// build selects the median along the current axis as the splitting point
func (t *KDTree) build(indices []int, depth int) *node {
	if len(indices) == 0 {
		return nil
	}
	axis := depth % 2
	mid := len(indices) / 2
	t.selectNth(indices, mid, axis)
	return &node{
		index: indices[mid],
		axis:  axis,
		left:  t.build(indices[:mid], depth+1),
		right: t.build(indices[mid+1:], depth+1),
	}
}

// selectNth partially orders indices in place so that position n holds the element that would
// be there if the slice were sorted along axis.
func (t *KDTree) selectNth(indices []int, n, axis int) {
	lo, hi := 0, len(indices)-1
	for lo < hi {
		p := t.partition(indices, lo, hi, lo+(hi-lo)/2, axis)
		switch {
		case p == n:
			return
		case n < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func (t *KDTree) partition(indices []int, lo, hi, pivot, axis int) int {
	pv := t.coord(indices[pivot], axis)
	indices[pivot], indices[hi] = indices[hi], indices[pivot]
	store := lo
	for i := lo; i < hi; i++ {
		if t.coord(indices[i], axis) < pv {
			indices[store], indices[i] = indices[i], indices[store]
			store++
		}
	}
	indices[store], indices[hi] = indices[hi], indices[store]
	return store
}

func (t *KDTree) coord(i, axis int) float64 {
	if axis == axisLat {
		return t.points[i].Lat
	}
	return t.points[i].Lon
}

func (t *KDTree) search(n *node, q geo.Coordinate, k int, best *candidates) {
	if n == nil {
		return
	}
	p := t.points[n.index]
	dLat, dLon := q.Lat-p.Lat, q.Lon-p.Lon
	best.offer(candidate{index: n.index, dist2: dLat*dLat + dLon*dLon}, k)

	diff := q.Lat - p.Lat
	if n.axis == axisLon {
		diff = q.Lon - p.Lon
	}
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = n.right, n.left
	}
	t.search(near, q, k, best)

	// The far side can only hold a better point if the splitting plane is within the
	// current worst distance. Equality is kept to honor the index tie-break.
	if len(*best) < k || diff*diff <= (*best)[0].dist2 {
		t.search(far, q, k, best)
	}
}

type candidate struct {
	index int
	dist2 float64
}

// candidates is a max-heap on (dist2, index); the root is the worst of the k best so far.
type candidates []candidate

func (c candidates) Len() int { return len(c) }
func (c candidates) Less(i, j int) bool {
	if c[i].dist2 != c[j].dist2 {
		return c[i].dist2 > c[j].dist2
	}
	return c[i].index > c[j].index
}
func (c candidates) Swap(i, j int) { c[i], c[j] = c[j], c[i] }
func (c *candidates) Push(x any)   { *c = append(*c, x.(candidate)) }
func (c *candidates) Pop() any {
	old := *c
	n := len(old)
	x := old[n-1]
	*c = old[:n-1]
	return x
}

func (c *candidates) offer(cand candidate, k int) {
	if len(*c) < k {
		heap.Push(c, cand)
		return
	}
	worst := (*c)[0]
	if cand.dist2 < worst.dist2 || (cand.dist2 == worst.dist2 && cand.index < worst.index) {
		(*c)[0] = cand
		heap.Fix(c, 0)
	}
}
