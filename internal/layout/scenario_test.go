package layout

import (
	"context"
	"strconv"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanglegram/tangleopt/internal/geometry"
	"github.com/tanglegram/tangleopt/internal/ilp"
	"github.com/tanglegram/tangleopt/internal/newick"
	"github.com/tanglegram/tangleopt/internal/solver"
	"github.com/tanglegram/tangleopt/internal/treemodel"
	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
	"github.com/tanglegram/tangleopt/pkg/model"
)

// solveScenario runs the full D+E+F+G chain (geometry, ILP, solver, layout)
// over a tree and a set of sites, mirroring what internal/pipeline.Solve
// does once a tree is already bound. It returns the parsed tree (leaf
// labels are only carried on newick.Tree, not treemodel.Model) alongside
// the bound model and the resulting solution.
func solveScenario(t *testing.T, newickStr string, sites []model.Site, style geometry.LeaderStyle, poGap float64) (*newick.Tree, *treemodel.Model, model.Solution) {
	t.Helper()
	tree, err := newick.Parse(newickStr)
	require.NoError(t, err)
	m, err := treemodel.Bind(tree, sites, nil, "")
	require.NoError(t, err)

	top := geometry.TopLine{Start: orb.Point{0, 0}, End: orb.Point{float64(len(sites) - 1), 0}}
	pairs := ilp.ClassifyPairs(m, sites, top, style, poGap)
	ilpModel := ilp.Build(m, pairs)

	ad := solver.NewAdapter(solver.NewBranchAndBound())
	turns, objective, err := ad.Solve(context.Background(), ilpModel)
	require.NoError(t, err)

	return tree, m, Realize(m, turns, objective, style)
}

// leafID returns the treemodel vertex ID of the i-th bound leaf for label,
// exploiting that m.Leaves and tree.Leaves() are built by the same
// left-to-right DFS and so share index order.
func leafID(t *testing.T, tree *newick.Tree, m *treemodel.Model, label string) string {
	t.Helper()
	for i, l := range tree.Leaves() {
		if l.Label == label {
			return strconv.Itoa(m.Leaves[i].ID)
		}
	}
	t.Fatalf("leaf %q not found", label)
	return ""
}

// S1 — trivial two-leaf: no turn needed, zero crossings.
func TestScenario_S1_TrivialTwoLeaf(t *testing.T) {
	sites := []model.Site{{X: 0, Y: 0, Name: "A"}, {X: 10, Y: 0, Name: "B"}}
	tree, m, sol := solveScenario(t, "(A,B);", sites, geometry.StyleStraight, 0)

	assert.Equal(t, 0, sol.NumIntersections)
	assert.Equal(t, 0, sol.LeafPos[leafID(t, tree, m, "A")])
	assert.Equal(t, 1, sol.LeafPos[leafID(t, tree, m, "B")])
}

// S2 — swap required: the (A,B) internal must turn so B precedes A on the
// top line, matching B and A's site x-order.
func TestScenario_S2_SwapRequired(t *testing.T) {
	sites := []model.Site{{X: 20, Y: 5, Name: "A"}, {X: 0, Y: 5, Name: "B"}, {X: 10, Y: 0, Name: "C"}}
	tree, m, sol := solveScenario(t, "((A,B),C);", sites, geometry.StyleStraight, 0)

	assert.Equal(t, 0, sol.NumIntersections)
	assert.Equal(t, 0, sol.LeafPos[leafID(t, tree, m, "B")])
	assert.Equal(t, 1, sol.LeafPos[leafID(t, tree, m, "A")])
	assert.Equal(t, 2, sol.LeafPos[leafID(t, tree, m, "C")])
}

// S3 — two-leaf pair has only one configuration (no internal to turn);
// verify the reported objective matches the ground-truth crossing count
// for whichever order the solver settles on.
func TestScenario_S3_UnavoidableCrossingMatchesGroundTruth(t *testing.T) {
	sites := []model.Site{{X: 10, Y: 0, Name: "A"}, {X: 0, Y: 0, Name: "B"}}
	_, m, sol := solveScenario(t, "(A,B);", sites, geometry.StyleStraight, 0)

	top := geometry.TopLine{Start: orb.Point{0, 0}, End: orb.Point{float64(len(sites) - 1), 0}}
	turns := make([]bool, len(m.Internals))
	for i := range m.Internals {
		turns[i] = sol.ShouldRotate[strconv.Itoa(m.Internals[i].ID)]
	}
	groundTruth := CountCrossings(m, sites, turns, top)
	assert.Equal(t, groundTruth, sol.NumIntersections)
	assert.Contains(t, []int{0, 1}, sol.NumIntersections)
}

// S4 — po horizontal corridor: a small vertical gap below po_gap collapses
// a pair to "horizontal", letting the solver order A and B purely by x.
func TestScenario_S4_PolyOrthoHorizontalCorridor(t *testing.T) {
	sites := []model.Site{
		{X: 0, Y: 0.00, Name: "A"},
		{X: 10, Y: 0.01, Name: "B"},
		{X: 20, Y: 5, Name: "C"},
		{X: 30, Y: 5, Name: "D"},
	}
	tree, m, sol := solveScenario(t, "((A,B),(C,D));", sites, geometry.StylePolyOrtho, 0.5)

	assert.Less(t, sol.LeafPos[leafID(t, tree, m, "A")], sol.LeafPos[leafID(t, tree, m, "B")])
}

// S5 — keyed binding: connect_by="name" matches leaves to out-of-order
// geo features by property rather than positional order.
func TestScenario_S5_KeyedBinding(t *testing.T) {
	tree, err := newick.Parse("((alpha,beta),gamma);")
	require.NoError(t, err)

	sites := []model.Site{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}
	rawProps := []map[string]interface{}{
		{"name": "gamma"},
		{"name": "alpha"},
		{"name": "beta"},
	}

	m, err := treemodel.Bind(tree, sites, rawProps, "name")
	require.NoError(t, err)

	siteIdxFor := func(label string) int {
		for i, l := range tree.Leaves() {
			if l.Label == label {
				return m.Leaves[i].SiteIdx
			}
		}
		t.Fatalf("leaf %q not found", label)
		return -1
	}
	assert.Equal(t, 1, siteIdxFor("alpha"))
	assert.Equal(t, 2, siteIdxFor("beta"))
	assert.Equal(t, 0, siteIdxFor("gamma"))
}

// S6 — binding failure: a leaf with no matching feature reports
// BindingMismatch naming the missing label.
func TestScenario_S6_BindingFailureNamesMissingLeaf(t *testing.T) {
	tree, err := newick.Parse("((alpha,beta),gamma);")
	require.NoError(t, err)

	sites := []model.Site{{X: 0, Y: 0}, {X: 1, Y: 1}}
	rawProps := []map[string]interface{}{
		{"name": "gamma"},
		{"name": "alpha"},
	}

	_, err = treemodel.Bind(tree, sites, rawProps, "name")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBindingMismatch, apperrors.GetErrorCode(err))
	assert.Contains(t, apperrors.GetErrorMessage(err), "beta")
}
