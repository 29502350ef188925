package ilp

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanglegram/tangleopt/internal/geometry"
	"github.com/tanglegram/tangleopt/internal/newick"
	"github.com/tanglegram/tangleopt/internal/treemodel"
	"github.com/tanglegram/tangleopt/pkg/model"
)

func bindFixture(t *testing.T, newickStr string, sites []model.Site) *treemodel.Model {
	t.Helper()
	tree, err := newick.Parse(newickStr)
	require.NoError(t, err)
	m, err := treemodel.Bind(tree, sites, nil, "")
	require.NoError(t, err)
	return m
}

func TestClassifyPairs_TwoLeafFixed(t *testing.T) {
	m := bindFixture(t, "(A,B);", []model.Site{{X: 0, Y: 0}, {X: 10, Y: 0}})
	top := geometry.TopLine{Start: orb.Point{0, 0}, End: orb.Point{1, 0}}

	pairs := ClassifyPairs(m, []model.Site{{X: 0, Y: 0}, {X: 10, Y: 0}}, top, geometry.StyleStraight, 0)
	require.Len(t, pairs, 1)
	// Both sites lie on a line parallel to the top line, so the pair gets an
	// out-of-range sentinel index and is fixed.
	assert.Equal(t, ClassFixed, pairs[0].Class)
}

func TestClassifyPairs_CoincidentSitesDropped(t *testing.T) {
	m := bindFixture(t, "(A,B);", []model.Site{{X: 5, Y: 5}, {X: 5, Y: 5}})
	top := geometry.TopLine{Start: orb.Point{0, 0}, End: orb.Point{1, 0}}
	pairs := ClassifyPairs(m, []model.Site{{X: 5, Y: 5}, {X: 5, Y: 5}}, top, geometry.StyleStraight, 0)
	assert.Empty(t, pairs)
}

func TestClassifyPairs_HorizontalUnderPolyOrtho(t *testing.T) {
	sites := []model.Site{{X: 0, Y: 0}, {X: 10, Y: 0.01}, {X: 5, Y: 5}, {X: 5.1, Y: 5}}
	m := bindFixture(t, "((A,B),(C,D));", sites)
	top := geometry.TopLine{Start: orb.Point{0, 0}, End: orb.Point{3, 0}}

	pairs := ClassifyPairs(m, sites, top, geometry.StylePolyOrtho, 0.5)
	require.NotEmpty(t, pairs)

	foundHorizontal := false
	for _, p := range pairs {
		if p.I == 0 && p.J == 1 {
			assert.Equal(t, ClassHorizontal, p.Class)
			foundHorizontal = true
		}
	}
	assert.True(t, foundHorizontal, "A,B pair (close in y) should classify as horizontal")
}

func TestBuild_ColumnLayout(t *testing.T) {
	sites := []model.Site{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 0}}
	m := bindFixture(t, "((A,B),C);", sites)
	top := geometry.TopLine{Start: orb.Point{0, 0}, End: orb.Point{2, 0}}
	pairs := ClassifyPairs(m, sites, top, geometry.StyleStraight, 0)

	ilpModel := Build(m, pairs)

	assert.Equal(t, len(m.Internals), ilpModel.NumInternals)
	assert.Equal(t, ilpModel.NumInternals, ilpModel.CaseColOffset)
	assert.Equal(t, ilpModel.CaseColOffset+len(ilpModel.IntersectingPairs), ilpModel.SlackColOffset)
	expectedCols := ilpModel.SlackColOffset + len(ilpModel.FixedPairs) + len(ilpModel.IntersectingPairs) + len(ilpModel.HorizontalPairs)
	assert.Equal(t, expectedCols, ilpModel.NumCols)
}

func TestBuild_FixedRowsWithinColumnBounds(t *testing.T) {
	sites := []model.Site{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 0}}
	m := bindFixture(t, "((A,B),C);", sites)
	top := geometry.TopLine{Start: orb.Point{0, 0}, End: orb.Point{2, 0}}
	pairs := ClassifyPairs(m, sites, top, geometry.StyleStraight, 0)

	ilpModel := Build(m, pairs)
	csc := ilpModel.FixedA
	for _, idx := range csc.RowIdx {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, ilpModel.NumCols)
	}
	assert.Equal(t, len(ilpModel.FixedRHS), csc.NumRows) // one row per fixed pair
}

func TestToCSC_ColPtrMonotonic(t *testing.T) {
	mat := NewSparseMatrix(5, 10)
	r0 := mat.AddRow()
	r1 := mat.AddRow()
	mat.Set(r0, 0, 1)
	mat.Set(r0, 2, 2)
	mat.Set(r1, 1, 3)
	mat.Set(r1, 1, 1) // duplicate entry, should combine to 4

	csc := mat.ToCSC()
	for i := 1; i < len(csc.ColPtr); i++ {
		assert.GreaterOrEqual(t, csc.ColPtr[i], csc.ColPtr[i-1])
	}
	// column 1 should have the combined value 4.
	start, end := csc.ColPtr[1], csc.ColPtr[2]
	require.Equal(t, 1, end-start)
	assert.Equal(t, 4.0, csc.Vals[start])
}
