package solver

import (
	"context"
	"math"
)

// BranchAndBound is an in-process branch-and-bound oracle: identical search
// space to Enumerate, but prunes a branch once its partial objective meets
// or exceeds the best complete solution found so far. Because the objective
// here is a sum of non-negative slack coefficients, the partial sum over
// already-assigned slack variables is a valid lower bound — an intentionally
// weak relaxation, not a full LP relaxation, since this oracle stands in for
// an external commercial solver at the production scale of spec §5.
//
// MaxNodes, if positive, bounds the search: once exceeded, Optimize returns
// StatusTimeout with whatever incumbent (if any) had been found. The wall
// clock budget is enforced via the context passed to Optimize.
type BranchAndBound struct {
	baseOracle
	MaxNodes int
}

// NewBranchAndBound returns a branch-and-bound oracle with no node limit.
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{}
}

// NewBranchAndBoundWithBudget returns a branch-and-bound oracle that gives
// up after maxNodes search-tree nodes (0 means unlimited).
func NewBranchAndBoundWithBudget(maxNodes int) *BranchAndBound {
	return &BranchAndBound{MaxNodes: maxNodes}
}

func (bb *BranchAndBound) Optimize(ctx context.Context) (Result, error) {
	best := Result{Status: StatusInfeasible}
	bestObj := math.Inf(1)
	bestFound := false
	timedOut := false
	nodes := 0

	assignment := make([]float64, bb.numVars)
	var rec func(i int, partialObj float64)
	rec = func(i int, partialObj float64) {
		if timedOut {
			return
		}
		nodes++
		if ctx.Err() != nil || (bb.MaxNodes > 0 && nodes > bb.MaxNodes) {
			timedOut = true
			return
		}
		if bestFound && partialObj >= bestObj {
			return // lower bound already meets or exceeds the incumbent
		}
		if i == bb.numVars {
			if !bb.satisfies(assignment) {
				return
			}
			if !bestFound || partialObj < bestObj {
				values := make([]float64, bb.numVars)
				copy(values, assignment)
				best = Result{Status: StatusOptimal, Objective: partialObj, Values: values}
				bestObj = partialObj
				bestFound = true
			}
			return
		}
		for _, v := range [2]float64{0, 1} {
			assignment[i] = v
			delta := 0.0
			if i < len(bb.objective) {
				delta = bb.objective[i] * v
			}
			rec(i+1, partialObj+delta)
			if timedOut {
				return
			}
		}
	}
	rec(0, 0)

	if timedOut {
		best.Status = StatusTimeout
		return best, nil
	}
	return best, nil
}
