package tracking

import "math"

// Pair links a cost-matrix row (track index) to a column (detection index).
type Pair struct {
	Row int
	Col int
}

// Assigner solves the rectangular assignment problem. Given a rows×cols
// cost matrix it returns a one-to-one pairing, ordered by row, that
// minimises total cost. Rows or columns left over are simply absent
// from the result. Implementations must be pure.
type Assigner interface {
	Assign(cost [][]float64) []Pair
}

// AssignerFunc adapts an ordinary function to Assigner.
type AssignerFunc func(cost [][]float64) []Pair

// Assign calls f(cost).
func (f AssignerFunc) Assign(cost [][]float64) []Pair { return f(cost) }

// maxSolverCost replaces non-finite entries so the solver's potentials
// stay well defined.
const maxSolverCost = 1e9

// HungarianAssigner is the default Assigner.
type HungarianAssigner struct{}

// Assign solves cost with the Hungarian algorithm.
func (HungarianAssigner) Assign(cost [][]float64) []Pair {
	if len(cost) == 0 || len(cost[0]) == 0 {
		return nil
	}

	m := len(cost[0])
	clean := make([][]float64, len(cost))
	for i, row := range cost {
		clean[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			c := maxSolverCost
			if j < len(row) && !math.IsNaN(row[j]) && !math.IsInf(row[j], 0) {
				c = math.Min(row[j], maxSolverCost)
			}
			clean[i][j] = c
		}
	}

	rowAssign := hungarianAssign(clean)
	pairs := make([]Pair, 0, min(len(cost), m))
	for i, j := range rowAssign {
		if j >= 0 {
			pairs = append(pairs, Pair{Row: i, Col: j})
		}
	}
	return pairs
}

// TotalCost sums cost over pairs. Useful when comparing assigners.
func TotalCost(cost [][]float64, pairs []Pair) float64 {
	var total float64
	for _, p := range pairs {
		total += cost[p.Row][p.Col]
	}
	return total
}

var _ Assigner = HungarianAssigner{}
