package solve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LevenbergMarquardt minimizes the sum of squared residuals of a
// LeastSquaresProblem, matching gsl_multifit's trust-region
// Levenberg-Marquardt driver: build the normal equations from the
// Jacobian (analytic if the problem implements JacobianProblem,
// otherwise central finite differences at DerivativePerturbation), damp
// the diagonal, solve, and accept the step only if it actually reduces
// the residual norm — raising the damping tenfold and retrying otherwise.
// Like Simplex, it reports progress/cancellation through c (nil runs
// silently) and returns the best point found even on cancellation.
func LevenbergMarquardt(p LeastSquaresProblem, c Canceller) (result []float64, chisq float64, err error) {
	c = canceller(c)
	nParams := p.NumValues()
	nObs := p.NumObservations()
	if nObs < nParams {
		return nil, 0, fmt.Errorf("solve: levmar: %d observations is fewer than %d parameters", nObs, nParams)
	}
	eps := p.Epsilon()
	step := derivativeStep(p)

	x := append([]float64(nil), p.Start()...)
	if len(x) != nParams {
		return nil, 0, fmt.Errorf("solve: levmar: Start() returned %d values, NumValues() wants %d", len(x), nParams)
	}
	p.Constrain(x)

	r := make([]float64, nObs)
	p.Residuals(x, r)
	chisq = sumSquares(r)

	c.SetTask("levenberg-marquardt", maxIterations)

	lambda := 1e-3
	J := mat.NewDense(nObs, nParams, nil)
	jacobian, hasJacobian := p.(JacobianProblem)

	for iter := 0; iter < maxIterations; iter++ {
		c.IncProgress()
		if c.CancelRequested() {
			return x, chisq, fmt.Errorf("solve: levmar: cancelled")
		}

		if hasJacobian {
			buf := make([]float64, nObs*nParams)
			jacobian.Jacobian(x, buf)
			J = mat.NewDense(nObs, nParams, buf)
		} else {
			finiteDifferenceJacobian(p, x, step, J)
		}

		var JtJ mat.Dense
		JtJ.Mul(J.T(), J)
		jtr := mat.NewVecDense(nParams, nil)
		jtr.MulVec(J.T(), mat.NewVecDense(nObs, r))

		accepted := false
		var newX []float64
		var newChisq float64
		for damp := 0; damp < 30; damp++ {
			A := mat.NewDense(nParams, nParams, nil)
			A.Copy(&JtJ)
			for i := 0; i < nParams; i++ {
				A.Set(i, i, A.At(i, i)*(1+lambda))
			}

			negJtr := mat.NewVecDense(nParams, nil)
			negJtr.ScaleVec(-1, jtr)

			var delta mat.VecDense
			if solveErr := delta.SolveVec(A, negJtr); solveErr != nil {
				lambda *= 10
				continue
			}

			trial := make([]float64, nParams)
			for i := range trial {
				trial[i] = x[i] + delta.AtVec(i)
			}
			p.Constrain(trial)

			trialR := make([]float64, nObs)
			p.Residuals(trial, trialR)
			trialChisq := sumSquares(trialR)

			if trialChisq < chisq {
				newX, newChisq = trial, trialChisq
				accepted = true
				lambda = math.Max(lambda/10, 1e-12)
				break
			}
			lambda *= 10
		}

		if !accepted {
			break // damping exhausted without improvement: converged or stuck
		}

		relParamChange := relativeChange(x, newX)
		relResidualChange := math.Abs(chisq-newChisq) / math.Max(chisq, 1e-300)
		x, chisq = newX, newChisq
		p.Residuals(x, r)

		if relParamChange < eps && relResidualChange < eps {
			break
		}
	}

	return x, chisq, nil
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}

func relativeChange(old, updated []float64) float64 {
	var maxRel float64
	for i := range old {
		denom := math.Max(math.Abs(old[i]), 1e-300)
		rel := math.Abs(updated[i]-old[i]) / denom
		if rel > maxRel {
			maxRel = rel
		}
	}
	return maxRel
}

// finiteDifferenceJacobian fills J with a central-difference
// approximation of d(residual_i)/d(param_j), used when the problem does
// not implement JacobianProblem.
func finiteDifferenceJacobian(p LeastSquaresProblem, x []float64, step float64, J *mat.Dense) {
	nObs, nParams := J.Dims()
	xPert := append([]float64(nil), x...)
	rPlus := make([]float64, nObs)
	rMinus := make([]float64, nObs)
	for j := 0; j < nParams; j++ {
		h := step * math.Max(math.Abs(x[j]), 1)

		xPert[j] = x[j] + h
		p.Constrain(xPert)
		p.Residuals(xPert, rPlus)

		xPert[j] = x[j] - h
		p.Constrain(xPert)
		p.Residuals(xPert, rMinus)

		xPert[j] = x[j]

		for i := 0; i < nObs; i++ {
			J.Set(i, j, (rPlus[i]-rMinus[i])/(2*h))
		}
	}
}
