// Package solver hands an assembled ILP model to an opaque MILP oracle and
// reads back the turn vector, per spec §4.F and §6. The oracle interface is
// deliberately minimal (four operations) so the core can be tested against
// an in-process solver, without depending on a commercial MILP package.
package solver

import (
	"context"
	"math"

	"github.com/tanglegram/tangleopt/internal/ilp"
	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
)

// Status is the oracle's terminal solve status.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusTimeout
)

// Result is what Optimize returns.
type Result struct {
	Status    Status
	Objective float64
	Values    []float64
}

// Oracle is the minimal MILP interface the solver adapter drives, per spec
// §6. A handle returned by AddBinaryVars identifies that batch of variables
// for later reference by column index.
type Oracle interface {
	AddBinaryVars(n int) (handle int)
	AddSparseLEConstraints(a ilp.CSC, rhs []float64) error
	SetObjective(linear []float64) error
	Optimize(ctx context.Context) (Result, error)
}

// Adapter drives an Oracle through one full solve of an ilp.Model.
type Adapter struct {
	Oracle Oracle
}

// NewAdapter returns an Adapter wrapping the given oracle.
func NewAdapter(o Oracle) *Adapter {
	return &Adapter{Oracle: o}
}

// Solve assembles the oracle call sequence for model, and returns the
// rounded turn vector (indexed by internal-vertex total_index) plus the
// objective value.
//
// Per spec §4.F, the ILP as constructed is always feasible (slacks exist
// for every constraint), so StatusInfeasible or StatusUnbounded here
// indicates a model bug, reported as apperrors.CodeInternal rather than
// CodeSolverFailure. Timeout is a solver-configuration concern and is
// reported as CodeSolverFailure.
func (ad *Adapter) Solve(ctx context.Context, m *ilp.Model) (turns []bool, objective float64, err error) {
	ad.Oracle.AddBinaryVars(m.NumCols)

	if err := ad.Oracle.AddSparseLEConstraints(m.FixedA, m.FixedRHS); err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeSolverFailure, "failed to add fixed-pair constraints", err)
	}
	if err := ad.Oracle.AddSparseLEConstraints(m.IntersectingA, m.IntersectingRHS); err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeSolverFailure, "failed to add intersecting-pair constraints", err)
	}
	if err := ad.Oracle.AddSparseLEConstraints(m.HorizontalA, m.HorizontalRHS); err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeSolverFailure, "failed to add horizontal-pair constraints", err)
	}

	linear := make([]float64, m.NumCols)
	for c := m.SlackColOffset; c < m.NumCols; c++ {
		linear[c] = 1
	}
	if err := ad.Oracle.SetObjective(linear); err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeSolverFailure, "failed to set objective", err)
	}

	result, err := ad.Oracle.Optimize(ctx)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeSolverFailure, "oracle optimize call failed", err)
	}

	switch result.Status {
	case StatusTimeout:
		return nil, 0, apperrors.New(apperrors.CodeSolverFailure, "solver timed out")
	case StatusInfeasible, StatusUnbounded:
		return nil, 0, apperrors.New(apperrors.CodeInternal,
			"solver reported infeasible or unbounded; the ILP is always feasible by construction, this indicates a model bug")
	case StatusOptimal:
		// fall through
	default:
		return nil, 0, apperrors.Newf(apperrors.CodeInternal, "unknown solver status %v", result.Status)
	}

	turns = make([]bool, m.NumInternals)
	for k := 0; k < m.NumInternals; k++ {
		turns[k] = math.Round(result.Values[k]) >= 1
	}
	return turns, result.Objective, nil
}
