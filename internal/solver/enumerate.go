package solver

import "context"

// Enumerate is a brute-force oracle that tries every assignment of the
// binary variables, per spec §9's "testable with a stub that solves small
// instances by enumeration." Only suitable for small NumCols (tests).
type Enumerate struct {
	baseOracle
}

// NewEnumerate returns a fresh brute-force oracle.
func NewEnumerate() *Enumerate {
	return &Enumerate{}
}

func (e *Enumerate) Optimize(ctx context.Context) (Result, error) {
	best := Result{Status: StatusInfeasible}
	bestFound := false

	assignment := make([]float64, e.numVars)
	var rec func(i int) bool
	rec = func(i int) bool {
		if ctx.Err() != nil {
			return false
		}
		if i == e.numVars {
			if !e.satisfies(assignment) {
				return true
			}
			obj := e.evalObjective(assignment)
			if !bestFound || obj < best.Objective {
				values := make([]float64, e.numVars)
				copy(values, assignment)
				best = Result{Status: StatusOptimal, Objective: obj, Values: values}
				bestFound = true
			}
			return true
		}
		assignment[i] = 0
		if !rec(i + 1) {
			return false
		}
		assignment[i] = 1
		return rec(i + 1)
	}
	if !rec(0) {
		return Result{Status: StatusTimeout}, nil
	}
	return best, nil
}
