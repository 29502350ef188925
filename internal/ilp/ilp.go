// Package ilp assembles the 0/1 linear program whose solution is a turn
// vector minimizing leader-line crossings, per spec §4.E. It classifies
// every ordered pair of distinct sites into fixed, intersecting, or
// horizontal, builds one sparse row per constraint, and hands the resulting
// matrices and objective to the solver adapter.
package ilp

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/tanglegram/tangleopt/internal/geometry"
	"github.com/tanglegram/tangleopt/internal/treemodel"
	"github.com/tanglegram/tangleopt/pkg/model"
)

// PairClass names which of the three constraint families a site pair falls
// into, per spec §4.E.
type PairClass int

const (
	ClassFixed PairClass = iota
	ClassIntersecting
	ClassHorizontal
)

// Pair is one classified ordered pair of distinct sites (i < j by leaf
// total_index).
type Pair struct {
	I, J  int // leaf total_index
	Class PairClass

	// Geometry captured at classification time, reused by row assembly.
	Intersection geometry.Intersection
	LowerIsI     bool

	// LeftIsI, LeftX, RightX are the screen-x ordering of the pair (spec
	// §4.E: leftSite/rightSite are distinguished by screen-x, independent of
	// which site is vertically "lower"), with each site's own top-line
	// projection — used only for ClassHorizontal rows.
	LeftIsI bool
	LeftX   float64
	RightX  float64
}

// Triplet is one (row, col, value) entry of a sparse constraint matrix under
// construction.
type Triplet struct {
	Row, Col int
	Val      float64
}

// SparseMatrix is a constraint matrix being built as parallel triplet lists,
// per spec §9's "build first, convert at the end" redesign note — grounded
// on the teacher's CompactEdgeListBuilder -> CompactEdgeList pattern.
type SparseMatrix struct {
	triplets []Triplet
	numRows  int
	numCols  int
}

// NewSparseMatrix reserves capacity for expectedNNZ triplets (entries),
// following spec §9's guidance to size for the O(|L|^2) worst case up
// front.
func NewSparseMatrix(numCols int, expectedNNZ int) *SparseMatrix {
	return &SparseMatrix{
		triplets: make([]Triplet, 0, expectedNNZ),
		numCols:  numCols,
	}
}

// AddRow appends a new constraint row and returns its index.
func (s *SparseMatrix) AddRow() int {
	row := s.numRows
	s.numRows++
	return row
}

// Set appends one (row, col, val) entry. Multiple Set calls for the same
// (row, col) accumulate (added), matching standard triplet-to-CSC assembly.
func (s *SparseMatrix) Set(row, col int, val float64) {
	s.triplets = append(s.triplets, Triplet{Row: row, Col: col, Val: val})
}

// CSC is a constraint matrix in compressed sparse column form.
type CSC struct {
	NumRows, NumCols int
	ColPtr           []int     // length NumCols+1
	RowIdx           []int     // length nnz
	Vals             []float64 // length nnz
}

// ToCSC converts the accumulated triplets to compressed sparse column form,
// combining duplicate (row, col) entries by summation.
func (s *SparseMatrix) ToCSC() CSC {
	type key struct{ row, col int }
	combined := make(map[key]float64, len(s.triplets))
	for _, t := range s.triplets {
		combined[key{t.Row, t.Col}] += t.Val
	}

	keys := make([]key, 0, len(combined))
	for k := range combined {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].col != keys[b].col {
			return keys[a].col < keys[b].col
		}
		return keys[a].row < keys[b].row
	})

	csc := CSC{
		NumRows: s.numRows,
		NumCols: s.numCols,
		ColPtr:  make([]int, s.numCols+1),
		RowIdx:  make([]int, 0, len(keys)),
		Vals:    make([]float64, 0, len(keys)),
	}
	col := 0
	for _, k := range keys {
		for col < k.col {
			col++
			csc.ColPtr[col] = len(csc.RowIdx)
		}
		csc.RowIdx = append(csc.RowIdx, k.row)
		csc.Vals = append(csc.Vals, combined[k])
	}
	for c := col + 1; c <= s.numCols; c++ {
		csc.ColPtr[c] = len(csc.RowIdx)
	}
	return csc
}

// Model is the fully assembled ILP: one sparse LE-constraint matrix and RHS
// per class, plus the objective over all slack variables.
type Model struct {
	NumInternals int

	FixedPairs        []Pair
	IntersectingPairs []Pair
	HorizontalPairs   []Pair

	FixedA          CSC
	FixedRHS        []float64
	IntersectingA   CSC
	IntersectingRHS []float64
	HorizontalA     CSC
	HorizontalRHS   []float64

	// Column layout, in order: NumInternals turn vars, then one case var per
	// intersecting pair, then slack vars (x_f, x_i, x_h in that order).
	CaseColOffset  int
	SlackColOffset int
	NumCols        int
}

// ClassifyPairs enumerates all ordered pairs (i < j) of leaf total_index and
// assigns each to a class per spec §4.E, dropping pairs whose sites are
// coincident (spec §9 open question: preserved from the source).
func ClassifyPairs(m *treemodel.Model, sites []model.Site, top geometry.TopLine, style geometry.LeaderStyle, poGap float64) []Pair {
	n := len(m.Leaves)
	pairs := make([]Pair, 0, n*(n-1)/2)

	pos := func(leaf *treemodel.Vertex) (float64, float64) {
		s := sites[leaf.SiteIdx]
		return s.X, s.Y
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			li, lj := &m.Leaves[i], &m.Leaves[j]
			xi, yi := pos(li)
			xj, yj := pos(lj)
			if xi == xj && yi == yj {
				continue // coincident sites: zero contribution either way
			}

			p1 := orb.Point{xi, yi}
			p2 := orb.Point{xj, yj}
			isect := geometry.TopLineIntersect(p1, p2, top, n, style)

			leftIsI := xi < xj
			leftX, rightX := xi, xj
			if !leftIsI {
				leftX, rightX = xj, xi
			}

			pair := Pair{
				I: i, J: j,
				Intersection: isect,
				LowerIsI:     isect.Site1Lower,
				LeftIsI:      leftIsI,
				LeftX:        geometry.ProjectX(leftX, top, n),
				RightX:       geometry.ProjectX(rightX, top, n),
			}

			if style == geometry.StylePolyOrtho && abs(yi-yj) < poGap {
				pair.Class = ClassHorizontal
			} else if isect.Index > 0 && isect.Index < float64(n-1) {
				pair.Class = ClassIntersecting
			} else {
				pair.Class = ClassFixed
			}
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Build assembles the ILP model from classified pairs, per spec §4.E's
// constraint rows.
func Build(m *treemodel.Model, pairs []Pair) *Model {
	numInternals := len(m.Internals)

	var fixed, intersecting, horizontal []Pair
	for _, p := range pairs {
		switch p.Class {
		case ClassFixed:
			fixed = append(fixed, p)
		case ClassIntersecting:
			intersecting = append(intersecting, p)
		case ClassHorizontal:
			horizontal = append(horizontal, p)
		}
	}

	caseColOffset := numInternals
	slackColOffset := caseColOffset + len(intersecting)
	numCols := slackColOffset + len(fixed) + len(intersecting) + len(horizontal)

	bigM := float64(len(m.Leaves))
	bigN := 2 * bigM

	result := &Model{
		NumInternals:      numInternals,
		FixedPairs:        fixed,
		IntersectingPairs: intersecting,
		HorizontalPairs:   horizontal,
		CaseColOffset:     caseColOffset,
		SlackColOffset:    slackColOffset,
		NumCols:           numCols,
	}

	result.FixedA, result.FixedRHS = buildFixedRows(m, fixed, slackColOffset, numCols)
	result.IntersectingA, result.IntersectingRHS = buildIntersectingRows(
		m, intersecting, caseColOffset, slackColOffset+len(fixed), numCols, bigM, bigN)
	result.HorizontalA, result.HorizontalRHS = buildHorizontalRows(
		m, horizontal, slackColOffset+len(fixed)+len(intersecting), numCols, bigN)

	return result
}

// requiredLeftOf reports whether site1 is topologically required to be left
// of site2, computed from the intersection index sign and which site is
// lower, per spec §4.E.
func requiredLeftOf(isect geometry.Intersection) bool {
	if isect.Site1Lower {
		return isect.Index <= 0
	}
	return isect.Index > 0
}

func buildFixedRows(m *treemodel.Model, pairs []Pair, slackBase, numCols int) (CSC, []float64) {
	mat := NewSparseMatrix(numCols, len(pairs)*2)
	rhs := make([]float64, 0, len(pairs))

	for pIdx, p := range pairs {
		a, c, err := geometry.LowestCommonAncestor(&m.Leaves[p.I], &m.Leaves[p.J], m)
		if err != nil {
			continue
		}
		s := requiredLeftOf(p.Intersection)
		orderOK := c == s

		row := mat.AddRow()
		slackCol := slackBase + pIdx
		if orderOK {
			mat.Set(row, a, 1)
			mat.Set(row, slackCol, -1)
			rhs = append(rhs, 0)
		} else {
			mat.Set(row, a, -1)
			mat.Set(row, slackCol, -1)
			rhs = append(rhs, -1)
		}
	}
	return mat.ToCSC(), rhs
}

func buildIntersectingRows(m *treemodel.Model, pairs []Pair, caseBase, slackBase, numCols int, bigM, bigN float64) (CSC, []float64) {
	mat := NewSparseMatrix(numCols, len(pairs)*10)
	rhs := make([]float64, 0, len(pairs)*4)

	for pIdx, p := range pairs {
		lowerLeaf := &m.Leaves[p.I]
		upperLeaf := &m.Leaves[p.J]
		if !p.LowerIsI {
			lowerLeaf, upperLeaf = upperLeaf, lowerLeaf
		}
		caseCol := caseBase + pIdx
		slackCol := slackBase + pIdx

		coef, offset := geometry.ParentCoefficients(lowerLeaf, m)

		// Case 0 row: lower's final_order_index <= intersect_index.
		row0 := mat.AddRow()
		for j, link := range lowerLeaf.Ancestors {
			if coef[j] != 0 {
				mat.Set(row0, link.AncestorIdx, coef[j])
			}
		}
		mat.Set(row0, caseCol, -bigM)
		mat.Set(row0, slackCol, -bigN)
		rhs = append(rhs, p.Intersection.Index-offset)

		// Case 1 mirrored row: lower's final_order_index >= intersect_index
		// once case is active, i.e. -final_order_index <= -intersect_index + M.
		row1 := mat.AddRow()
		for j, link := range lowerLeaf.Ancestors {
			if coef[j] != 0 {
				mat.Set(row1, link.AncestorIdx, -coef[j])
			}
		}
		mat.Set(row1, caseCol, bigM)
		mat.Set(row1, slackCol, -bigN)
		rhs = append(rhs, -(p.Intersection.Index-offset)+bigM)

		a, c, err := geometry.LowestCommonAncestor(lowerLeaf, upperLeaf, m)
		if err != nil {
			continue
		}
		s := requiredLeftOf(p.Intersection)
		orderOK := c == s

		row2 := mat.AddRow()
		if orderOK {
			mat.Set(row2, a, 1)
			mat.Set(row2, caseCol, -bigM)
			mat.Set(row2, slackCol, -bigN)
			rhs = append(rhs, 0)
		} else {
			mat.Set(row2, a, -1)
			mat.Set(row2, caseCol, -bigM)
			mat.Set(row2, slackCol, -bigN)
			rhs = append(rhs, -1)
		}

		row3 := mat.AddRow()
		if orderOK {
			mat.Set(row3, a, -1)
			mat.Set(row3, caseCol, bigM)
			mat.Set(row3, slackCol, -bigN)
			rhs = append(rhs, bigM)
		} else {
			mat.Set(row3, a, 1)
			mat.Set(row3, caseCol, bigM)
			mat.Set(row3, slackCol, -bigN)
			rhs = append(rhs, bigM-1)
		}
	}
	return mat.ToCSC(), rhs
}

func buildHorizontalRows(m *treemodel.Model, pairs []Pair, slackBase, numCols int, bigN float64) (CSC, []float64) {
	mat := NewSparseMatrix(numCols, len(pairs)*6)
	rhs := make([]float64, 0, len(pairs)*3)

	for pIdx, p := range pairs {
		// leftSite/rightSite are distinguished by screen-x (spec §4.E), an
		// axis independent of the y-proximity test that classified this pair
		// as horizontal in the first place.
		leftLeaf, rightLeaf := &m.Leaves[p.I], &m.Leaves[p.J]
		if !p.LeftIsI {
			leftLeaf, rightLeaf = rightLeaf, leftLeaf
		}
		slackCol := slackBase + pIdx

		leftCoef, leftOffset := geometry.ParentCoefficients(leftLeaf, m)
		rightCoef, rightOffset := geometry.ParentCoefficients(rightLeaf, m)

		row0 := mat.AddRow()
		for j, link := range leftLeaf.Ancestors {
			if leftCoef[j] != 0 {
				mat.Set(row0, link.AncestorIdx, leftCoef[j])
			}
		}
		mat.Set(row0, slackCol, -bigN)
		rhs = append(rhs, p.LeftX-leftOffset)

		row1 := mat.AddRow()
		for j, link := range rightLeaf.Ancestors {
			if rightCoef[j] != 0 {
				mat.Set(row1, link.AncestorIdx, -rightCoef[j])
			}
		}
		mat.Set(row1, slackCol, -bigN)
		rhs = append(rhs, -(p.RightX - rightOffset))

		a, c, err := geometry.LowestCommonAncestor(leftLeaf, rightLeaf, m)
		if err != nil {
			continue
		}
		row2 := mat.AddRow()
		if c {
			mat.Set(row2, a, 1)
			mat.Set(row2, slackCol, -bigN)
			rhs = append(rhs, 0)
		} else {
			mat.Set(row2, a, -1)
			mat.Set(row2, slackCol, -bigN)
			rhs = append(rhs, -1)
		}
	}
	return mat.ToCSC(), rhs
}
