package de

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// parameterMemory tracks the (F, CR) pairs of successful trials within the
// current generation and re-estimates the sampling distribution from them.
// Memory is generation-local: Advance consumes and clears the records, only
// the recomputed means persist.
type parameterMemory struct {
	meanF  float64
	meanCR float64
	stdF   float64
	stdCR  float64

	succF  []float64
	succCR []float64
}

func newParameterMemory() *parameterMemory {
	return &parameterMemory{
		meanF:  0.5,
		meanCR: 0.5,
		stdF:   0.1,
		stdCR:  0.1,
	}
}

// Record remembers a successful (F, CR) pair for this generation.
func (m *parameterMemory) Record(f, cr float64) {
	m.succF = append(m.succF, f)
	m.succCR = append(m.succCR, cr)
}

// Advance recomputes the distribution centers from this generation's
// successes, then discards them. F uses a Lehmer mean, which weights larger
// scale factors more heavily; CR uses the arithmetic mean.
func (m *parameterMemory) Advance() {
	if len(m.succF) > 0 {
		var sum, sumSq float64
		for _, f := range m.succF {
			sum += f
			sumSq += f * f
		}
		if sum > 0 {
			m.meanF = sumSq / sum
		} else {
			m.meanF = 0.5
		}

		var crSum float64
		for _, cr := range m.succCR {
			crSum += cr
		}
		m.meanCR = crSum / float64(len(m.succCR))
	}
	m.succF = m.succF[:0]
	m.succCR = m.succCR[:0]
}

// Sample draws a fresh (F, CR) pair from the current adaptive distribution.
// F is clipped to (0, 2], falling back to a uniform draw in (0.1, 0.9) when
// the normal sample is non-positive; CR is clipped to [0, 1].
func (m *parameterMemory) Sample(src rand.Source, rng *rand.Rand) (f, cr float64) {
	f = distuv.Normal{Mu: m.meanF, Sigma: m.stdF, Src: src}.Rand()
	if f > 2 {
		f = 2
	}
	if f <= 0 {
		f = 0.1 + 0.8*rng.Float64()
	}

	cr = distuv.Normal{Mu: m.meanCR, Sigma: m.stdCR, Src: src}.Rand()
	if cr < 0 {
		cr = 0
	} else if cr > 1 {
		cr = 1
	}
	return f, cr
}
