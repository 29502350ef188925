// Package geometry provides the pure geometric predicates consumed by the
// ILP builder and the layout realizer: top-line intersection, lowest common
// ancestor, and the parent-coefficient / initial-offset linear identity, per
// spec §3 and §4.D.
//
// Every function here is stateless: the same inputs always produce the same
// outputs, so the oracle is safe to call concurrently from many solves.
package geometry

import (
	"github.com/paulmach/orb"

	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
	"github.com/tanglegram/tangleopt/internal/treemodel"
)

// LeaderStyle names how a leaf's top-line slot connects to its site.
type LeaderStyle string

const (
	StyleStraight  LeaderStyle = "s"
	StylePolyOrtho LeaderStyle = "po"
)

// TopLine is the fixed horizontal segment above the map that leaves are laid
// out along.
type TopLine struct {
	Start, End orb.Point
}

// Intersection is the result of TopLineIntersect: the scaled top-line index
// at which p1p2 crosses the top line, and which of the two sites is lower.
type Intersection struct {
	Index      float64
	Site1Lower bool
}

// TopLineIntersect solves the line-line intersection of segment p1p2
// extended against top, scaled into [0, numLeaves-1]. If p1p2 is parallel to
// top, the degenerate case is resolved by the x-order of p1 relative to p2:
// p1 to the left returns numLeaves+1 ("at infinity" on site 1's side),
// otherwise -1.
//
// For StylePolyOrtho, Index carries the lower site's screen-x projected onto
// the top line (same [0, numLeaves-1] scaling as the straight-leader path)
// instead of the top-line crossing index, per spec §4.D's last paragraph and
// original_source/python/python/parseFiles.py's
// GeoTree.giveTwoSitesTopLineIntersectIndex; the site-ordering semantics
// (which of p1, p2 is lower) are unchanged.
func TopLineIntersect(p1, p2 orb.Point, top TopLine, numLeaves int, style LeaderStyle) Intersection {
	site1Lower := p1[1] > p2[1]

	if style == StylePolyOrtho {
		lowerX := p1[0]
		if !site1Lower {
			lowerX = p2[0]
		}
		return Intersection{Index: ProjectX(lowerX, top, numLeaves), Site1Lower: site1Lower}
	}

	dx1, dy1 := p2[0]-p1[0], p2[1]-p1[1]
	dx2, dy2 := top.End[0]-top.Start[0], top.End[1]-top.Start[1]
	denom := dx1*dy2 - dy1*dx2

	if denom == 0 {
		if p1[0] < p2[0] {
			return Intersection{Index: float64(numLeaves + 1), Site1Lower: site1Lower}
		}
		return Intersection{Index: -1, Site1Lower: site1Lower}
	}

	// Parametrize the top line: intersection = top.Start + u*(top.End - top.Start).
	u := ((p1[0]-top.Start[0])*dy1 - (p1[1]-top.Start[1])*dx1) / denom
	x := top.Start[0] + u*dx2

	return Intersection{Index: ProjectX(x, top, numLeaves), Site1Lower: site1Lower}
}

// ProjectX scales a draw-space x-coordinate onto the top line's
// [0, numLeaves-1] index space, the same way every leaf's fixed top-line
// slot is addressed elsewhere in this package.
func ProjectX(x float64, top TopLine, numLeaves int) float64 {
	topWidth := top.End[0] - top.Start[0]
	if topWidth == 0 {
		return 0
	}
	return (x - top.Start[0]) / topWidth * float64(numLeaves-1)
}

// LowestCommonAncestor walks a's and b's ancestor lists (immediate-parent
// first) to the first shared entry, and returns a's (ancestor, isLeftChild)
// tuple at that entry — the first leaf's record, not a symmetrized one (spec
// §9 open question: no symmetry assumed).
func LowestCommonAncestor(a, b *treemodel.Vertex, m *treemodel.Model) (ancestorIdx int, firstIsLeft bool, err error) {
	seen := make(map[int]int, len(b.Ancestors))
	for i, link := range b.Ancestors {
		seen[link.AncestorIdx] = i
	}
	for _, link := range a.Ancestors {
		if _, ok := seen[link.AncestorIdx]; ok {
			return link.AncestorIdx, link.IsLeftChild, nil
		}
	}
	return 0, false, apperrors.New(apperrors.CodeInternal,
		"lowest common ancestor not found: leaves share no ancestor within the tree")
}

// ParentCoefficients returns leaf's parent_coef vector and initial_offset,
// aligned index-for-index with leaf.Ancestors, per spec §3:
//
//	parent_coef[j]   = +width(right_child(a_j)) if c_j else -width(left_child(a_j))
//	initial_offset   = sum over ancestors where c_j=false of width(left_child(a_j))
func ParentCoefficients(leaf *treemodel.Vertex, m *treemodel.Model) (coef []float64, initialOffset float64) {
	coef = make([]float64, len(leaf.Ancestors))
	for j, link := range leaf.Ancestors {
		a := &m.Internals[link.AncestorIdx]
		if link.IsLeftChild {
			coef[j] = float64(m.Width(a.Right))
		} else {
			coef[j] = -float64(m.Width(a.Left))
			initialOffset += float64(m.Width(a.Left))
		}
	}
	return coef, initialOffset
}

// FinalOrderIndex evaluates spec §3's linear identity at a concrete turn
// vector: initial_offset(leaf) + sum_j parent_coef(leaf)[j] * turns[a_j].
// turns is indexed by internal-vertex TotalIndex.
func FinalOrderIndex(leaf *treemodel.Vertex, m *treemodel.Model, turns []bool) float64 {
	coef, offset := ParentCoefficients(leaf, m)
	total := offset
	for j, link := range leaf.Ancestors {
		if turns[link.AncestorIdx] {
			total += coef[j]
		}
	}
	return total
}
