package layout

import (
	"strconv"
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

func TestNullSolution_Sentinel(t *testing.T) {
	sites := []model.Site{{X: 0, Y: 0}, {X: 10, Y: 0}}
	m := bindFixture(t, "(A,B);", sites)

	sol := NullSolution(m, geometry.StyleStraight)
	assert.Equal(t, -1, sol.NumIntersections)
	assert.Equal(t, "s", sol.LType)
	assert.Len(t, sol.LeafPos, 2)
}

func TestRealize_LeafPosKeyedByID(t *testing.T) {
	sites := []model.Site{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}}
	m := bindFixture(t, "((A,B),C);", sites)
	turns := make([]bool, len(m.Internals))

	sol := Realize(m, turns, 0, geometry.StyleStraight)
	require.Len(t, sol.LeafPos, 3)
	for _, leaf := range m.Leaves {
		_, ok := sol.LeafPos[strconv.Itoa(leaf.ID)]
		assert.True(t, ok)
	}
}

func TestCountCrossings_TwoLeafNoCrossing(t *testing.T) {
	sites := []model.Site{{X: 0, Y: 10}, {X: 10, Y: 10}}
	m := bindFixture(t, "(A,B);", sites)
	turns := make([]bool, len(m.Internals))
	top := geometry.TopLine{Start: orb.Point{0, 0}, End: orb.Point{10, 0}}

	crossings := CountCrossings(m, sites, turns, top)
	assert.Equal(t, 0, crossings)
}

func TestCountCrossings_CrossedPairDetected(t *testing.T) {
	// A's leaf slot on the left connects to the right-hand site, and B's
	// leaf slot on the right connects to the left-hand site: the leaders
	// must cross.
	sites := []model.Site{{X: 10, Y: 10}, {X: 0, Y: 10}}
	m := bindFixture(t, "(A,B);", sites)
	turns := make([]bool, len(m.Internals))
	top := geometry.TopLine{Start: orb.Point{0, 0}, End: orb.Point{10, 0}}

	crossings := CountCrossings(m, sites, turns, top)
	assert.Equal(t, 1, crossings)
}

func TestRealize_ShouldRotateMatchesTurnVector(t *testing.T) {
	sites := []model.Site{{X: 20, Y: 5}, {X: 0, Y: 5}, {X: 10, Y: 0}}
	m := bindFixture(t, "((A,B),C);", sites)
	turns := make([]bool, len(m.Internals))
	parentIdx := m.Leaves[0].ParentIdx
	turns[parentIdx] = true

	sol := Realize(m, turns, 0, geometry.StyleStraight)
	parentVertex := m.Internals[parentIdx]
	assert.True(t, sol.ShouldRotate[strconv.Itoa(parentVertex.ID)])
}

