package solver

import "math"

// echelon incrementally tests vectors for linear independence by Gaussian
// elimination. Each accepted vector is stored reduced against the earlier
// ones, together with an auxiliary value carried through the same row
// operations (the right-hand side when the vectors are constraint rows).
type echelon struct {
	tol    float64
	vecs   [][]float64
	aux    []float64
	pivots []int
}

func newEchelon(tol float64) *echelon {
	return &echelon{tol: tol}
}

// insert reduces v and keeps it when it is independent of the accepted set.
// It returns false and the reduced auxiliary value otherwise; for a row, a
// non-zero residual means the row contradicts the ones before it.
func (e *echelon) insert(v []float64, aux float64) (bool, float64) {
	w := make([]float64, len(v))
	copy(w, v)
	scale := 1.0
	for _, x := range v {
		scale = math.Max(scale, math.Abs(x))
	}
	for k, p := range e.pivots {
		f := w[p]
		if f == 0 {
			continue
		}
		f /= e.vecs[k][p]
		for j, x := range e.vecs[k] {
			if x != 0 {
				w[j] -= f * x
			}
		}
		w[p] = 0
		aux -= f * e.aux[k]
	}
	pivot, best := -1, 0.0
	for j, x := range w {
		if a := math.Abs(x); a > best {
			pivot, best = j, a
		}
	}
	if pivot < 0 || best < e.tol*scale {
		return false, aux
	}
	e.vecs = append(e.vecs, w)
	e.aux = append(e.aux, aux)
	e.pivots = append(e.pivots, pivot)
	return true, aux
}

func (e *echelon) rank() int { return len(e.pivots) }
