package cnn

import (
	"math"
	"math/rand/v2"
)

// Params holds every trainable tensor, flattened row-major.
//
//	Embedding [MaxWords][EmbeddingDim]
//	ConvW     [Filters][KernelSize][EmbeddingDim]
//	DenseW    [DenseUnits][Filters]
//	OutW      [DenseUnits]
type Params struct {
	Embedding []float64
	ConvW     []float64
	ConvB     []float64
	DenseW    []float64
	DenseB    []float64
	OutW      []float64
	OutB      []float64
}

func newParams(c Config) *Params {
	return &Params{
		Embedding: make([]float64, c.MaxWords*c.EmbeddingDim),
		ConvW:     make([]float64, c.Filters*c.window()),
		ConvB:     make([]float64, c.Filters),
		DenseW:    make([]float64, c.DenseUnits*c.Filters),
		DenseB:    make([]float64, c.DenseUnits),
		OutW:      make([]float64, c.DenseUnits),
		OutB:      make([]float64, 1),
	}
}

// tensors lists the tensors in serialization order.
func (p *Params) tensors() [][]float64 {
	return [][]float64{p.Embedding, p.ConvW, p.ConvB, p.DenseW, p.DenseB, p.OutW, p.OutB}
}

func (p *Params) count() int {
	n := 0
	for _, t := range p.tensors() {
		n += len(t)
	}
	return n
}

func (p *Params) copyFrom(src *Params) {
	dst := p.tensors()
	for i, t := range src.tensors() {
		copy(dst[i], t)
	}
}

func (p *Params) init(c Config, rng *rand.Rand) {
	uniform(rng, p.Embedding, 0.05)
	uniform(rng, p.ConvW, glorotLimit(c.window(), c.KernelSize*c.Filters))
	uniform(rng, p.DenseW, glorotLimit(c.Filters, c.DenseUnits))
	uniform(rng, p.OutW, glorotLimit(c.DenseUnits, 1))
}

func glorotLimit(fanIn, fanOut int) float64 {
	return math.Sqrt(6 / float64(fanIn+fanOut))
}

func uniform(rng *rand.Rand, dst []float64, limit float64) {
	for i := range dst {
		dst[i] = (rng.Float64()*2 - 1) * limit
	}
}
