package permutation

import "sort"

// BenjaminiHochberg converts raw p-values into FDR-adjusted q-values.
// q_(i) = min over j ≥ i of p_(j)·m/j, capped at 1, returned in the original
// input order.
func BenjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	if m == 0 {
		return nil
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return pValues[order[a]] < pValues[order[b]]
	})

	qValues := make([]float64, m)
	minSoFar := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		q := pValues[idx] * float64(m) / float64(rank)
		if q < minSoFar {
			minSoFar = q
		}
		qValues[idx] = minSoFar
	}
	return qValues
}
