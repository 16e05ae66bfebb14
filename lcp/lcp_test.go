package lcp_test

import (
	"testing"

	"github.com/nudtxiong/rbdcore/lcp"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLemkeTrivialExitOnNonnegativeQ(t *testing.T) {
	M := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	z, err := lcp.Lemke(M, []float64{1, 2}, nil, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0}, z)
}

func TestLemkeIdentityFeasibility(t *testing.T) {
	M := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	q := []float64{-1, -1}

	z, err := lcp.Lemke(M, q, nil, 0, 0)
	require.NoError(t, err)
	requireFeasible(t, M, q, z)
	require.InDelta(t, 1, z[0], 1e-6)
	require.InDelta(t, 1, z[1], 1e-6)
}

func TestLemkeAsymmetricFeasibility(t *testing.T) {
	// One complementary pair actively constrained (z1>0,w1=0), the other
	// slack (z2=0,w2>0): M12/M21 couple the two without breaking feasibility.
	M := mat.NewDense(2, 2, []float64{2, 1, 1, 2})
	q := []float64{-1, -3}

	z, err := lcp.Lemke(M, q, nil, 0, 0)
	require.NoError(t, err)
	requireFeasible(t, M, q, z)
}

func TestLemkeSparseMatchesDense(t *testing.T) {
	q := []float64{-1, -1}
	dense := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	sparse := lcp.NewSparse(2, 2, map[[2]int]float64{{0, 0}: 1, {1, 1}: 1})

	zd, err := lcp.Lemke(dense, q, nil, 0, 0)
	require.NoError(t, err)
	zs, err := lcp.LemkeSparse(sparse, q, nil, 0, 0)
	require.NoError(t, err)

	require.InDelta(t, zd[0], zs[0], 1e-9)
	require.InDelta(t, zd[1], zs[1], 1e-9)
}

func TestRegularizedSolvesNearSingularSystem(t *testing.T) {
	// M is singular (rank 1); the regularization ladder must still produce a
	// feasible, verified solution.
	M := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	q := []float64{-1, -1}

	z, err := lcp.Regularized(M, q, lcp.RegularizeOptions{})
	require.NoError(t, err)
	requireFeasible(t, M, q, z)
}

func requireFeasible(t *testing.T, M *mat.Dense, q, z []float64) {
	t.Helper()
	n := len(z)
	zVec := mat.NewVecDense(n, z)
	var w mat.VecDense
	w.MulVec(M, zVec)
	w.AddVec(&w, mat.NewVecDense(n, q))

	zw := 0.0
	for i := 0; i < n; i++ {
		require.GreaterOrEqual(t, z[i], -1e-6)
		require.GreaterOrEqual(t, w.AtVec(i), -1e-6)
		zw += z[i] * w.AtVec(i)
	}
	require.InDelta(t, 0, zw, 1e-6)
}
