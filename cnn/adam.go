package cnn

import "math"

// Adam applies the Adam update rule with bias-corrected step size.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	step int
	m    [][]float64
	v    [][]float64
}

// NewAdam returns an optimizer with the usual Keras defaults.
func NewAdam(lr float64) *Adam {
	return &Adam{LearningRate: lr, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-7}
}

// Steps reports how many updates have been applied.
func (a *Adam) Steps() int { return a.step }

// Update moves params against the mean gradient g.
func (a *Adam) Update(params *Params, g *Gradients) {
	ps, gs := params.tensors(), g.tensors()
	if a.m == nil {
		a.m = make([][]float64, len(ps))
		a.v = make([][]float64, len(ps))
		for i, t := range ps {
			a.m[i] = make([]float64, len(t))
			a.v[i] = make([]float64, len(t))
		}
	}
	a.step++
	t := float64(a.step)
	lr := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))

	for i, p := range ps {
		grad, m, v := gs[i], a.m[i], a.v[i]
		for j := range p {
			gj := grad[j]
			m[j] += (gj - m[j]) * (1 - a.Beta1)
			v[j] += (gj*gj - v[j]) * (1 - a.Beta2)
			p[j] -= lr * m[j] / (math.Sqrt(v[j]) + a.Epsilon)
		}
	}
}
