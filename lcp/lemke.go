// Package lcp solves linear complementarity problems — find z >= 0 with
// Mz+q >= 0 and z.(Mz+q) = 0 — via Lemke's pivoting method, with a
// Tikhonov-style regularization wrapper for near-singular M. Grounded on
// original_source/src/LCP.cpp's lcp_lemke/lcp_lemke_regularized, re-expressed
// as slice/matrix operations instead of Ravelin's in-place vector algebra.
package lcp

import (
	"math"

	"github.com/nudtxiong/rbdcore/simerr"
	"gonum.org/v1/gonum/mat"
)

const maxIterationCap = 1000

// Lemke solves the LCP for a dense M. z0, if non-nil and of length n, seeds
// the initial basis (entries > 0 start basic); pass nil to start from the
// all-slack basis. pivTol and zeroTol of zero select the algorithm's default
// tolerances (spec.md §4.3).
func Lemke(M *mat.Dense, q []float64, z0 []float64, pivTol, zeroTol float64) ([]float64, error) {
	r, c := M.Dims()
	if r != len(q) || c != len(q) {
		return nil, simerr.ErrInvalidState
	}
	return lemkeCore(denseAdapter{M}, denseNormInf(M), q, z0, pivTol, zeroTol)
}

// LemkeSparse is the sparse-M variant of Lemke, grounded on LCP.cpp's
// SparseMatrixNd overload. spec.md §9 flags that source's ratio-test column
// selection as reading a stray `_d` instead of the current pivot column
// `_dl`; this port has no such variable to confuse since the pivot column
// is a single named value throughout.
func LemkeSparse(M *Sparse, q []float64, z0 []float64, pivTol, zeroTol float64) ([]float64, error) {
	r, c := M.Dims()
	if r != len(q) || c != len(q) {
		return nil, simerr.ErrInvalidState
	}
	return lemkeCore(M, M.normInf(), q, z0, pivTol, zeroTol)
}

func lemkeCore(M matrixLike, mNormInf float64, q []float64, z0 []float64, pivTol, zeroTol float64) ([]float64, error) {
	n := len(q)
	if n == 0 {
		return []float64{}, nil
	}

	if zeroTol <= 0 {
		zeroTol = math.Nextafter(1, 2) - 1
		zeroTol *= mNormInf * float64(n)
	}

	z := make([]float64, n)
	if minFloat(q) > -zeroTol {
		return z, nil // trivial exit
	}

	maxIter := 50 * n
	if maxIter > maxIterationCap {
		maxIter = maxIterationCap
	}

	const t = -1 // sentinel "artificial variable" id, distinct from any z/w id in [0,2n)

	var bas, nonbas []int
	if len(z0) == n {
		for i := 0; i < n; i++ {
			if z0[i] > 0 {
				bas = append(bas, i)
			} else {
				nonbas = append(nonbas, i)
			}
		}
	} else {
		nonbas = make([]int, n)
		for i := range nonbas {
			nonbas[i] = i
		}
	}

	// B = [ M[:,bas] | -I[:,nonbas] ], columns in that order.
	B := mat.NewDense(n, n, nil)
	col := make([]float64, n)
	for k, j := range bas {
		M.Column(j, col)
		B.SetCol(k, col)
	}
	for k, j := range nonbas {
		B.Set(j, len(bas)+k, -1)
	}

	qVec := mat.NewVecDense(n, append([]float64{}, q...))
	xVec, err := solveLinear(B, qVec)
	if err != nil {
		return nil, err
	}
	xVec.ScaleVec(-1, xVec)
	x := vecSlice(xVec)

	if minFloat(x) >= 0 {
		for i, j := range bas {
			z[j] = x[i]
		}
		return z, nil
	}

	// Determine the initial leaving variable and pivot in the artificial
	// variable t with value tval = -min(x).
	lvindex, minX := argMin(x[:n])
	tval := -minX

	for _, j := range nonbas {
		bas = append(bas, j+n)
	}
	leaving := bas[lvindex]
	bas[lvindex] = t

	u := make([]float64, n)
	for i := range u {
		if x[i] < 0 {
			u[i] = 1
		}
	}
	Be := make([]float64, n)
	mulVec(B, u, Be)
	for i := range Be {
		Be[i] = -Be[i]
	}
	for i := range x {
		x[i] += u[i] * tval
	}
	x[lvindex] = tval
	B.SetCol(lvindex, Be)

	entering := t
	for iter := 0; iter < maxIter; iter++ {
		if leaving == t {
			for i, j := range bas {
				if j >= 0 && j < n {
					z[j] = x[i]
				}
			}
			return z, nil
		}

		if leaving < n {
			entering = n + leaving
			for i := range Be {
				Be[i] = 0
			}
			Be[leaving] = -1
		} else {
			entering = leaving - n
			M.Column(entering, Be)
		}

		d := make([]float64, n)
		dVec, err := solveLinear(B, mat.NewVecDense(n, append([]float64{}, Be...)))
		if err != nil {
			return nil, err
		}
		copy(d, vecSlice(dVec))

		pt := pivTol
		if pt <= 0 {
			pt = math.Nextafter(1, 2) - 1
			pt *= float64(n) * math.Max(1, normInf(Be))
		}

		var j []int
		for i, di := range d {
			if di > pt {
				j = append(j, i)
			}
		}
		if len(j) == 0 {
			return make([]float64, n), simerr.ErrRayTermination
		}

		theta := math.Inf(1)
		for _, idx := range j {
			r := (x[idx] + zeroTol) / d[idx]
			if r < theta {
				theta = r
			}
		}

		var kept []int
		for _, idx := range j {
			if x[idx]/d[idx] <= theta {
				kept = append(kept, idx)
			}
		}
		j = kept
		if len(j) == 0 {
			return make([]float64, n), simerr.ErrToleranceTooLow
		}

		// If the artificial variable is among the tied candidates, force it
		// to leave; otherwise break ties on the largest pivot-column entry
		// (the spec's Bland-style, non-lexicographic tie-break).
		pivotPos := -1
		for _, idx := range j {
			if bas[idx] == t {
				pivotPos = idx
				break
			}
		}
		if pivotPos == -1 {
			best := math.Inf(-1)
			for _, idx := range j {
				if d[idx] > best {
					best = d[idx]
					pivotPos = idx
				}
			}
		}
		lvindex = pivotPos
		leaving = bas[lvindex]

		ratio := x[lvindex] / d[lvindex]
		for i := range d {
			d[i] *= ratio
		}
		for i := range x {
			x[i] -= d[i]
		}
		x[lvindex] = ratio
		B.SetCol(lvindex, Be)
		bas[lvindex] = entering
	}

	return make([]float64, n), simerr.ErrIterationExhausted
}

func minFloat(v []float64) float64 {
	m := math.Inf(1)
	for _, x := range v {
		if x < m {
			m = x
		}
	}
	return m
}

func argMin(v []float64) (int, float64) {
	idx, m := 0, v[0]
	for i, x := range v {
		if x < m {
			m, idx = x, i
		}
	}
	return idx, m
}

func normInf(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func vecSlice(v *mat.VecDense) []float64 {
	n := v.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = v.AtVec(i)
	}
	return out
}

func mulVec(A *mat.Dense, x []float64, dst []float64) {
	var v mat.VecDense
	v.MulVec(A, mat.NewVecDense(len(x), x))
	for i := range dst {
		dst[i] = v.AtVec(i)
	}
}

// solveLinear solves A*x=b, falling back from a direct LU solve to an
// SVD-based minimum-norm least-squares solve when A is singular (spec.md
// §4.3's "fall-through from exact solve to least-squares on singularity").
func solveLinear(A *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	n, _ := A.Dims()
	x := mat.NewVecDense(n, nil)
	if err := x.SolveVec(A, b); err == nil {
		return x, nil
	}

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDFull) {
		return nil, simerr.ErrSingularBasis
	}
	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)
	s := svd.Values(nil)

	maxS := 0.0
	for _, v := range s {
		if v > maxS {
			maxS = v
		}
	}
	const rcond = 1e-12

	var utb mat.VecDense
	utb.MulVec(U.T(), b)
	for i := 0; i < len(s); i++ {
		if s[i] > rcond*maxS {
			utb.SetVec(i, utb.AtVec(i)/s[i])
		} else {
			utb.SetVec(i, 0)
		}
	}
	x.MulVec(&V, &utb)
	return x, nil
}
