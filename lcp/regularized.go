package lcp

import (
	"math"

	"github.com/nudtxiong/rbdcore/simerr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// RegularizeOptions tunes the retry ladder Regularized walks over: it tries
// M + 10^rf*I for rf stepping from MinExp to MaxExp (exclusive) by StepExp,
// accepting the first attempt whose solution passes the three feasibility
// checks in Regularized's doc comment. Zero-value Options selects the
// defaults from LCP.cpp's lcp_lemke_regularized (-20, 4, -4).
type RegularizeOptions struct {
	MinExp  int
	StepExp int
	MaxExp  int
	PivTol  float64
	ZeroTol float64

	Logger *zap.SugaredLogger
}

func (o RegularizeOptions) withDefaults() RegularizeOptions {
	if o.MinExp == 0 && o.StepExp == 0 && o.MaxExp == 0 {
		o.MinExp, o.StepExp, o.MaxExp = -20, 4, -4
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// Regularized wraps Lemke, progressively adding rf*I to the diagonal of M
// (rf = 10^exp, exp stepping from MinExp to MaxExp by StepExp) until a
// solution z verifies z >= -tau0, w = Mz+q >= -tau0, and |z.w| <= tau0*n,
// where tau0 is the zero tolerance actually used. Grounded on
// original_source/src/LCP.cpp's lcp_lemke_regularized.
func Regularized(M *mat.Dense, q []float64, opts RegularizeOptions) ([]float64, error) {
	opts = opts.withDefaults()
	n, _ := M.Dims()

	tau0 := opts.ZeroTol
	if tau0 <= 0 {
		tau0 = math.Nextafter(1, 2) - 1
		tau0 *= denseNormInf(M) * float64(n)
	}

	z, err := Lemke(M, q, nil, opts.PivTol, opts.ZeroTol)
	if err == nil && verifySolution(M, q, z, tau0) {
		return z, nil
	}
	opts.Logger.Debugw("lcp: unregularized solve rejected, entering retry ladder", "n", n, "lemkeErr", err)

	Mr := mat.NewDense(n, n, nil)
	for exp := opts.MinExp; exp < opts.MaxExp; exp += opts.StepExp {
		rf := math.Pow(10, float64(exp))
		Mr.CloneFrom(M)
		for i := 0; i < n; i++ {
			Mr.Set(i, i, Mr.At(i, i)+rf)
		}
		z, err := Lemke(Mr, q, nil, opts.PivTol, opts.ZeroTol)
		if err != nil {
			opts.Logger.Debugw("lcp: regularized attempt failed to pivot", "exp", exp, "err", err)
			continue
		}
		if verifySolution(M, q, z, tau0) {
			opts.Logger.Infow("lcp: regularized solve accepted", "exp", exp)
			return z, nil
		}
	}
	opts.Logger.Warnw("lcp: regularization ladder exhausted", "n", n, "minExp", opts.MinExp, "maxExp", opts.MaxExp)
	return nil, simerr.ErrRegularizationExhausted
}

func verifySolution(M *mat.Dense, q, z []float64, tau0 float64) bool {
	n := len(z)
	if n == 0 {
		return true
	}
	zVec := mat.NewVecDense(n, z)
	var w mat.VecDense
	w.MulVec(M, zVec)
	w.AddVec(&w, mat.NewVecDense(n, q))

	zw := 0.0
	for i := 0; i < n; i++ {
		if z[i] < -tau0 {
			return false
		}
		if w.AtVec(i) < -tau0 {
			return false
		}
		zw += z[i] * w.AtVec(i)
	}
	return math.Abs(zw) <= tau0*float64(n)
}
