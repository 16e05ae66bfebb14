package lcp

import "gonum.org/v1/gonum/mat"

// matrixLike is the narrow read surface Lemke's method needs from an LCP
// coefficient matrix: dimensions, element access, and column extraction.
// Both the dense (*mat.Dense) and sparse (*Sparse) representations
// implement it, so the pivoting core in lemke.go runs unmodified over
// either (spec.md §4.3's "dense and sparse variants").
type matrixLike interface {
	Dims() (r, c int)
	At(i, j int) float64
	Column(j int, dst []float64)
}

type denseAdapter struct{ *mat.Dense }

func (d denseAdapter) Column(j int, dst []float64) {
	r, _ := d.Dims()
	for i := 0; i < r; i++ {
		dst[i] = d.At(i, j)
	}
}

// Sparse is a column-oriented sparse matrix, a minimal Go analogue of
// Moby's hand-rolled SparseMatrixNd: just enough surface (dimensions,
// element lookup, column materialization, infinity norm) for Lemke's
// method to pivot over it without densifying M up front.
type Sparse struct {
	rows, cols int
	entries    map[[2]int]float64
}

// NewSparse builds a Sparse matrix of the given dimensions from a
// (row,col)->value map; entries absent from the map are zero.
func NewSparse(rows, cols int, entries map[[2]int]float64) *Sparse {
	cp := make(map[[2]int]float64, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &Sparse{rows: rows, cols: cols, entries: cp}
}

func (s *Sparse) Dims() (int, int) { return s.rows, s.cols }

func (s *Sparse) At(i, j int) float64 { return s.entries[[2]int{i, j}] }

func (s *Sparse) Set(i, j int, v float64) { s.entries[[2]int{i, j}] = v }

func (s *Sparse) Column(j int, dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for k, v := range s.entries {
		if k[1] == j {
			dst[k[0]] = v
		}
	}
}

func (s *Sparse) normInf() float64 {
	rowSums := make([]float64, s.rows)
	for k, v := range s.entries {
		a := v
		if a < 0 {
			a = -a
		}
		rowSums[k[0]] += a
	}
	max := 0.0
	for _, v := range rowSums {
		if v > max {
			max = v
		}
	}
	return max
}

func denseNormInf(m *mat.Dense) float64 {
	r, c := m.Dims()
	max := 0.0
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if v < 0 {
				v = -v
			}
			sum += v
		}
		if sum > max {
			max = sum
		}
	}
	return max
}
