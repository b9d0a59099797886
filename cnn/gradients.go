package cnn

import "gonum.org/v1/gonum/floats"

// Gradients accumulates parameter gradients for one or more samples.
// Embedding rows are tracked so resets and merges only touch the rows a
// batch actually used.
type Gradients struct {
	Params
	dim     int
	touched map[int]struct{}
}

// NewGradients returns zeroed gradients shaped like the network.
func (n *Network) NewGradients() *Gradients {
	return &Gradients{
		Params:  *newParams(n.cfg),
		dim:     n.cfg.EmbeddingDim,
		touched: make(map[int]struct{}),
	}
}

func (g *Gradients) embeddingRow(row int) []float64 {
	g.touched[row] = struct{}{}
	return g.Embedding[row*g.dim : (row+1)*g.dim]
}

// Reset zeroes the gradients.
func (g *Gradients) Reset() {
	for row := range g.touched {
		clear(g.Embedding[row*g.dim : (row+1)*g.dim])
	}
	clear(g.touched)
	clear(g.ConvW)
	clear(g.ConvB)
	clear(g.DenseW)
	clear(g.DenseB)
	clear(g.OutW)
	clear(g.OutB)
}

// Add sums other into g.
func (g *Gradients) Add(other *Gradients) {
	for row := range other.touched {
		floats.Add(g.embeddingRow(row), other.Embedding[row*g.dim:(row+1)*g.dim])
	}
	floats.Add(g.ConvW, other.ConvW)
	floats.Add(g.ConvB, other.ConvB)
	floats.Add(g.DenseW, other.DenseW)
	floats.Add(g.DenseB, other.DenseB)
	floats.Add(g.OutW, other.OutW)
	floats.Add(g.OutB, other.OutB)
}

// Scale multiplies every gradient by c.
func (g *Gradients) Scale(c float64) {
	for row := range g.touched {
		floats.Scale(c, g.Embedding[row*g.dim:(row+1)*g.dim])
	}
	floats.Scale(c, g.ConvW)
	floats.Scale(c, g.ConvB)
	floats.Scale(c, g.DenseW)
	floats.Scale(c, g.DenseB)
	floats.Scale(c, g.OutW)
	floats.Scale(c, g.OutB)
}
