package solver

import (
	"github.com/tanglegram/tangleopt/internal/ilp"
)

// constraintSet is one AddSparseLEConstraints call's accumulated rows.
type constraintSet struct {
	a   ilp.CSC
	rhs []float64
}

// baseOracle holds the model state shared by the in-process oracle
// implementations below: number of binary variables, the constraint sets
// added so far (in CSC form, per spec §6), and the linear objective.
type baseOracle struct {
	numVars     int
	constraints []constraintSet
	objective   []float64
}

func (b *baseOracle) AddBinaryVars(n int) int {
	b.numVars = n
	return 0
}

func (b *baseOracle) AddSparseLEConstraints(a ilp.CSC, rhs []float64) error {
	b.constraints = append(b.constraints, constraintSet{a: a, rhs: rhs})
	return nil
}

func (b *baseOracle) SetObjective(linear []float64) error {
	b.objective = linear
	return nil
}

// rowValue evaluates one constraint row of a CSC matrix against an
// assignment vector.
func rowValue(a ilp.CSC, row int, assignment []float64) float64 {
	total := 0.0
	for col := 0; col < a.NumCols; col++ {
		for k := a.ColPtr[col]; k < a.ColPtr[col+1]; k++ {
			if a.RowIdx[k] == row {
				total += a.Vals[k] * assignment[col]
			}
		}
	}
	return total
}

// satisfies reports whether assignment satisfies every row of every
// accumulated constraint set (Ax <= rhs).
func (b *baseOracle) satisfies(assignment []float64) bool {
	for _, cs := range b.constraints {
		for row := 0; row < cs.a.NumRows; row++ {
			if rowValue(cs.a, row, assignment)-1e-9 > cs.rhs[row] {
				return false
			}
		}
	}
	return true
}

func (b *baseOracle) evalObjective(assignment []float64) float64 {
	total := 0.0
	for i, coef := range b.objective {
		total += coef * assignment[i]
	}
	return total
}
