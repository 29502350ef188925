// Package treemodel builds the in-memory tree used by the rest of the
// layout-optimization core, binding Newick leaves to sites and carrying the
// combinatorial invariants (subtree width, ancestor lists) required by the
// geometry oracle and ILP builder, per spec §3 and §4.C.
//
// The tree is stored as two dense arenas (Internals, Leaves) rather than a
// graph of owning pointers: a parent edge is an index into Internals, never
// a back-reference, so the structure has no reference cycles (spec §9).
package treemodel

import (
	"github.com/tanglegram/tangleopt/internal/newick"
	"github.com/tanglegram/tangleopt/pkg/model"

	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
)

// Kind tags a Vertex as root, internal, or leaf (spec §3/§9 tagged variant).
type Kind int

const (
	KindRoot Kind = iota
	KindInternal
	KindLeaf
)

// AncestorLink is one entry of a leaf or internal vertex's ancestor list:
// the internal vertex's index in Model.Internals, and whether the node the
// list belongs to descends from that ancestor's left child.
type AncestorLink struct {
	AncestorIdx int
	IsLeftChild bool
}

// Vertex is a single tree node. Root and Internal vertices use Left/Right
// (indices into Model.Internals or, for leaves, the negative-encoded leaf
// index — see leafRef); Leaf vertices use SiteIdx instead.
type Vertex struct {
	ID              int
	TotalIndex      int
	Kind            Kind
	SubtreeWidth    int
	CumBranchLength float64
	Ancestors       []AncestorLink

	// Left, Right are only meaningful for Root/Internal vertices. They are
	// "child references": non-negative values index Internals, values
	// encoded via leafRef/isLeafRef index Leaves.
	Left, Right int

	// SiteIdx is only meaningful for Leaf vertices: the bound site's index.
	SiteIdx int

	// ParentIdx/IsLeftOfParent are only meaningful for non-root vertices.
	ParentIdx      int
	IsLeftOfParent bool
}

// Model is the fully bound tree: two dense arenas plus the root's index.
type Model struct {
	Internals []Vertex
	Leaves    []Vertex
	RootIdx   int
}

// child reference encoding: leaf indices are stored as -(leafIdx+1) so 0 can
// still mean "Internals[0]" unambiguously.
func leafRef(leafIdx int) int  { return -(leafIdx + 1) }
func isLeafRef(ref int) bool   { return ref < 0 }
func leafRefIndex(ref int) int { return -ref - 1 }

// Child returns the vertex reached by following ref (as stored in
// Vertex.Left/Right), plus whether it is a leaf.
func (m *Model) Child(ref int) (v *Vertex, isLeaf bool) {
	if isLeafRef(ref) {
		return &m.Leaves[leafRefIndex(ref)], true
	}
	return &m.Internals[ref], false
}

// Width returns the subtree width of the vertex reached by ref.
func (m *Model) Width(ref int) int {
	v, _ := m.Child(ref)
	return v.SubtreeWidth
}

// Root returns the root vertex.
func (m *Model) Root() *Vertex {
	return &m.Internals[m.RootIdx]
}

// Bind associates each Newick leaf with one site and builds the Model.
//
// If connectBy is empty, the i-th Newick leaf (in left-to-right order) binds
// to the i-th site. Otherwise, for each Newick leaf label L, sites are
// scanned for a Props[connectBy] value matching L.
func Bind(tree *newick.Tree, sites []model.Site, rawProps []map[string]interface{}, connectBy string) (*Model, error) {
	leaves := tree.Leaves()

	siteForLeaf := make([]int, len(leaves))
	if connectBy == "" {
		if len(sites) < len(leaves) {
			return nil, apperrors.Newf(apperrors.CodeBindingMismatch,
				"fewer sites (%d) than leaves (%d)", len(sites), len(leaves))
		}
		for i := range leaves {
			siteForLeaf[i] = i
		}
	} else {
		for i, leaf := range leaves {
			found := -1
			for si, props := range rawProps {
				v, ok := props[connectBy]
				if !ok {
					continue
				}
				if s, ok := v.(string); ok && s == leaf.Label {
					found = si
					break
				}
			}
			if found == -1 {
				return nil, apperrors.Newf(apperrors.CodeBindingMismatch,
					"no site found with %s=%q for leaf %q", connectBy, leaf.Label, leaf.Label)
			}
			siteForLeaf[i] = found
		}
	}

	m := &Model{}
	leafCounter := 0
	internalCounter := 0

	var build func(n *newick.RawNode) int
	build = func(n *newick.RawNode) int {
		if n.IsLeaf() {
			idx := leafCounter
			leafCounter++
			m.Leaves = append(m.Leaves, Vertex{
				ID:              n.ID,
				TotalIndex:      idx,
				Kind:            KindLeaf,
				SubtreeWidth:    1,
				CumBranchLength: n.CumBranchLength,
				SiteIdx:         siteForLeaf[idx],
			})
			return leafRef(idx)
		}

		leftRef := build(n.Children[0])
		rightRef := build(n.Children[1])
		leftW := m.Width(leftRef)
		rightW := m.Width(rightRef)

		idx := internalCounter
		internalCounter++
		kind := KindInternal
		if n == tree.Root {
			kind = KindRoot
		}
		m.Internals = append(m.Internals, Vertex{
			ID:              n.ID,
			TotalIndex:      idx,
			Kind:            kind,
			SubtreeWidth:    leftW + rightW,
			CumBranchLength: n.CumBranchLength,
			Left:            leftRef,
			Right:           rightRef,
		})

		setParent(m, leftRef, idx, true)
		setParent(m, rightRef, idx, false)
		return idx
	}

	rootRef := build(tree.Root)
	m.RootIdx = rootRef

	if err := computeAncestorLists(m); err != nil {
		return nil, err
	}
	if err := checkInvariants(m, len(sites)); err != nil {
		return nil, err
	}
	return m, nil
}

func setParent(m *Model, ref int, parentIdx int, isLeft bool) {
	v, isLeaf := m.Child(ref)
	v.ParentIdx = parentIdx
	v.IsLeftOfParent = isLeft
	_ = isLeaf
}

// computeAncestorLists walks down from the root assigning each vertex's
// ancestor list as (selfIdx, childIsLeft) prepended to the parent's list —
// a single top-down pass, no incremental per-leaf bubbling (spec §9).
func computeAncestorLists(m *Model) error {
	var walk func(ref int, ancestors []AncestorLink)
	walk = func(ref int, ancestors []AncestorLink) {
		v, isLeaf := m.Child(ref)
		v.Ancestors = ancestors
		if isLeaf {
			return
		}
		leftAncestors := append([]AncestorLink{{AncestorIdx: v.TotalIndex, IsLeftChild: true}}, ancestors...)
		rightAncestors := append([]AncestorLink{{AncestorIdx: v.TotalIndex, IsLeftChild: false}}, ancestors...)
		walk(v.Left, leftAncestors)
		walk(v.Right, rightAncestors)
	}
	walk(m.RootIdx, nil)
	return nil
}

func checkInvariants(m *Model, numSites int) error {
	if len(m.Leaves) != numSites {
		return apperrors.Newf(apperrors.CodeInternal,
			"leaf count (%d) does not equal bound site count (%d)", len(m.Leaves), numSites)
	}
	for i := range m.Internals {
		v := &m.Internals[i]
		lw := m.Width(v.Left)
		rw := m.Width(v.Right)
		if v.SubtreeWidth != lw+rw {
			return apperrors.Newf(apperrors.CodeInternal,
				"internal vertex %d: subtree width %d != left %d + right %d", v.ID, v.SubtreeWidth, lw, rw)
		}
	}
	return nil
}
