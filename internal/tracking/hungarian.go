package tracking

import "math"

// hungarianAssign implements the Kuhn–Munkres (Hungarian) algorithm with
// row/column potentials (Jonker-Volgenant shortest augmenting path form).
// It solves the rectangular minimum-cost assignment for an n×m matrix in
// O(min(n,m)²·max(n,m)) time.
//
// Returns rowAssign[i] = column assigned to row i, or -1 when row i is
// left over because there are more rows than columns. Every column is
// used at most once. Costs must be finite; HungarianAssigner sanitises
// them before calling.
func hungarianAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	if m == 0 {
		return result
	}

	// The potential formulation below needs rows ≤ columns. Solve the
	// transpose instead and flip the answer back.
	if n > m {
		colAssign := hungarianAssign(transpose(cost, n, m))
		for j, i := range colAssign {
			if i >= 0 {
				result[i] = j
			}
		}
		return result
	}

	// 1-indexed arrays; index 0 is the virtual column used to start each
	// augmenting path.
	const inf = math.MaxFloat64 / 2

	u := make([]float64, n+1) // Row potentials
	v := make([]float64, m+1) // Column potentials
	p := make([]int, m+1)     // p[j] = row assigned to column j
	way := make([]int, m+1)   // way[j] = previous column in augmenting path
	minv := make([]float64, m+1)
	used := make([]bool, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0

		for j := 0; j <= m; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				// Unreachable with finite costs and n ≤ m.
				j0 = -1
				break
			}

			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		if j0 < 0 {
			continue
		}

		// Augment along the path.
		for j0 != 0 {
			prev := way[j0]
			p[j0] = p[prev]
			j0 = prev
		}
	}

	for j := 1; j <= m; j++ {
		if p[j] > 0 {
			result[p[j]-1] = j - 1
		}
	}
	return result
}

func transpose(cost [][]float64, n, m int) [][]float64 {
	t := make([][]float64, m)
	for j := 0; j < m; j++ {
		t[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			t[j][i] = cost[i][j]
		}
	}
	return t
}
