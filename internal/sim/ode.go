package sim

import (
	"math"

	"github.com/veilcraft/obscura/internal/optimization"
)

// derivFunc evaluates the state derivative dy for state y at time t.
// dy and y have the same length; dy is written in place.
type derivFunc func(t float64, y, dy []float64)

// rkOptions control the adaptive integrator.
type rkOptions struct {
	AbsTol   float64
	RelTol   float64
	InitStep float64
	MaxSteps int
}

func defaultRKOptions() rkOptions {
	return rkOptions{
		AbsTol:   1e-8,
		RelTol:   1e-8,
		InitStep: 1e-2,
		MaxSteps: 100000,
	}
}

// Dormand-Prince 4(5) coefficients.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// 5th order solution weights.
	dpB = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
	// 4th order embedded weights, used for the error estimate.
	dpBHat = [7]float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}
)

// integrateRK45 advances y0 from t=0 to t=tEnd with an adaptive
// Dormand-Prince 4(5) scheme and returns the terminal state.
func integrateRK45(f derivFunc, y0 []float64, tEnd float64, opts rkOptions) ([]float64, error) {
	n := len(y0)
	if tEnd < 0 {
		return nil, optimization.NewErrorf("negative integration horizon %v", tEnd).
			WithComponent("sim").WithOperation("integrateRK45")
	}
	y := append([]float64(nil), y0...)
	if tEnd == 0 {
		return y, nil
	}

	h := math.Min(opts.InitStep, tEnd)
	t := 0.0

	k := make([][]float64, 7)
	for i := range k {
		k[i] = make([]float64, n)
	}
	stage := make([]float64, n)
	yNext := make([]float64, n)

	for step := 0; step < opts.MaxSteps; step++ {
		if t >= tEnd {
			return y, nil
		}
		if t+h > tEnd {
			h = tEnd - t
		}

		f(t, y, k[0])
		for s := 1; s < 7; s++ {
			for i := 0; i < n; i++ {
				sum := 0.0
				for j := 0; j < s; j++ {
					sum += dpA[s][j] * k[j][i]
				}
				stage[i] = y[i] + h*sum
			}
			f(t+dpC[s]*h, stage, k[s])
		}

		// 5th order candidate and its embedded error estimate.
		errNorm := 0.0
		for i := 0; i < n; i++ {
			sum5, sum4 := 0.0, 0.0
			for s := 0; s < 7; s++ {
				sum5 += dpB[s] * k[s][i]
				sum4 += dpBHat[s] * k[s][i]
			}
			yNext[i] = y[i] + h*sum5
			sc := opts.AbsTol + opts.RelTol*math.Max(math.Abs(y[i]), math.Abs(yNext[i]))
			e := h * (sum5 - sum4) / sc
			errNorm += e * e
		}
		errNorm = math.Sqrt(errNorm / float64(n))

		if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
			return nil, optimization.NewError("state diverged during integration").
				WithComponent("sim").WithOperation("integrateRK45")
		}

		if errNorm <= 1 {
			t += h
			copy(y, yNext)
		}

		// Standard step-size controller with safety factor.
		factor := 0.9 * math.Pow(math.Max(errNorm, 1e-10), -0.2)
		factor = math.Min(5, math.Max(0.2, factor))
		h *= factor
		if h < 1e-12 {
			return nil, optimization.NewError("step size underflow, integration did not converge").
				WithComponent("sim").WithOperation("integrateRK45")
		}
	}

	return nil, optimization.NewErrorf("no convergence after %d steps", opts.MaxSteps).
		WithComponent("sim").WithOperation("integrateRK45")
}
