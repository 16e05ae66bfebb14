// Package simerr collects the sentinel errors the simulation core returns,
// grounded on viamrobotics-rdk/referenceframe's package-level errors.New
// sentinels rather than a bespoke error hierarchy.
package simerr

import "errors"

var (
	// ErrSingularBasis is returned when an LCP basis matrix could not be
	// solved even after falling back to a least-squares solve.
	ErrSingularBasis = errors.New("lcp: basis matrix is singular")

	// ErrRayTermination is returned when Lemke's method finds no pivot
	// candidate with a positive entry in the ratio test (unbounded ray).
	ErrRayTermination = errors.New("lcp: ray termination, no new pivots")

	// ErrIterationExhausted is returned when Lemke's method does not
	// terminate within min(1000, 50n) iterations.
	ErrIterationExhausted = errors.New("lcp: maximum pivot iterations exceeded")

	// ErrToleranceTooLow is returned when the ratio test's tied-index set
	// becomes empty after filtering, suggesting the zero tolerance is set
	// too tight for the problem's numerical scale.
	ErrToleranceTooLow = errors.New("lcp: zero tolerance too low")

	// ErrRegularizationExhausted is returned by the regularized Lemke
	// wrapper when no regularization factor in [min_exp, max_exp) produces
	// a verified solution.
	ErrRegularizationExhausted = errors.New("lcp: unable to solve given any regularization")

	// ErrInvalidState is returned by the driver when a body pose, body
	// velocity or joint coordinate is NaN or infinite after integration, and
	// by Lemke when M and q have mismatched dimensions.
	ErrInvalidState = errors.New("sim: invalid state")

	// ErrInvalidVelocity is returned by the driver when a joint velocity is
	// NaN or infinite after integration.
	ErrInvalidVelocity = errors.New("sim: invalid velocity")

	// ErrImpactToleranceExceeded names a conservative-advancement impact
	// tolerance failure; no code path in this module returns it.
	ErrImpactToleranceExceeded = errors.New("driver: impact tolerance exceeded during conservative advancement")

	// ErrSustainedContactSolveFail is returned when the driver's impulsive
	// contact solve fails (LCP infeasible) for an island across repeated
	// regularization attempts.
	ErrSustainedContactSolveFail = errors.New("driver: sustained failure solving contact impulses")
)
