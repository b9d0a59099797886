package cnn

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
)

const probEpsilon = 1e-7

// Network is the fixed six-layer classifier. Predict is safe for concurrent
// use; training mutates Params and must not overlap with inference.
type Network struct {
	cfg    Config
	params *Params
	pool   sync.Pool
}

// New builds a network with freshly initialised weights.
func New(cfg Config, seed uint64) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := newNetwork(cfg)
	n.params.init(cfg, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	return n, nil
}

func newNetwork(cfg Config) *Network {
	n := &Network{cfg: cfg, params: newParams(cfg)}
	n.pool.New = func() any { return n.NewWorkspace() }
	return n
}

// Config returns the layer sizes.
func (n *Network) Config() Config { return n.cfg }

// Params exposes the trainable tensors.
func (n *Network) Params() *Params { return n.params }

// ParamCount is the total number of trainable scalars.
func (n *Network) ParamCount() int { return n.params.count() }

// Clone returns a deep copy of the network.
func (n *Network) Clone() *Network {
	c := newNetwork(n.cfg)
	c.params.copyFrom(n.params)
	return c
}

// CopyFrom overwrites the weights with those of src.
func (n *Network) CopyFrom(src *Network) {
	n.params.copyFrom(src.params)
}

// Workspace holds per-sample activations. One workspace per goroutine.
type Workspace struct {
	x       []float64
	pooled  []float64
	argmax  []int
	hidden  []float64
	mask    []float64
	dropped []float64
	dHidden []float64
	dPooled []float64
}

// NewWorkspace allocates activation buffers for this network.
func (n *Network) NewWorkspace() *Workspace {
	c := n.cfg
	return &Workspace{
		x:       make([]float64, c.MaxLen*c.EmbeddingDim),
		pooled:  make([]float64, c.Filters),
		argmax:  make([]int, c.Filters),
		hidden:  make([]float64, c.DenseUnits),
		mask:    make([]float64, c.DenseUnits),
		dropped: make([]float64, c.DenseUnits),
		dHidden: make([]float64, c.DenseUnits),
		dPooled: make([]float64, c.Filters),
	}
}

// CheckSequence verifies that seq has the expected length and vocabulary range.
func (n *Network) CheckSequence(seq []int) error {
	if len(seq) != n.cfg.MaxLen {
		return fmt.Errorf("sequence length %d, want %d", len(seq), n.cfg.MaxLen)
	}
	for _, idx := range seq {
		if idx < 0 || idx >= n.cfg.MaxWords {
			return fmt.Errorf("token index %d outside [0,%d)", idx, n.cfg.MaxWords)
		}
	}
	return nil
}

// Predict returns the probability that seq is fake news.
func (n *Network) Predict(seq []int) (float64, error) {
	if err := n.CheckSequence(seq); err != nil {
		return 0, err
	}
	ws := n.pool.Get().(*Workspace)
	defer n.pool.Put(ws)
	return n.Forward(ws, seq, nil), nil
}

// Forward runs the network on seq. A non-nil rng enables dropout.
func (n *Network) Forward(ws *Workspace, seq []int, rng *rand.Rand) float64 {
	c, p := n.cfg, n.params
	dim, win := c.EmbeddingDim, c.window()

	for t, idx := range seq {
		copy(ws.x[t*dim:(t+1)*dim], p.Embedding[idx*dim:(idx+1)*dim])
	}

	positions := c.convLen()
	for f := 0; f < c.Filters; f++ {
		kernel := p.ConvW[f*win : (f+1)*win]
		best, arg := math.Inf(-1), 0
		for t := 0; t < positions; t++ {
			v := floats.Dot(kernel, ws.x[t*dim:t*dim+win])
			if v > best {
				best, arg = v, t
			}
		}
		ws.pooled[f] = relu(best + p.ConvB[f])
		ws.argmax[f] = arg
	}

	scale := 1.0
	if rng != nil && c.DropoutRate > 0 {
		scale = 1 / (1 - c.DropoutRate)
	}
	for j := 0; j < c.DenseUnits; j++ {
		h := relu(floats.Dot(p.DenseW[j*c.Filters:(j+1)*c.Filters], ws.pooled) + p.DenseB[j])
		ws.hidden[j] = h
		ws.mask[j] = 1
		if rng != nil && c.DropoutRate > 0 {
			if rng.Float64() < c.DropoutRate {
				ws.mask[j] = 0
			} else {
				ws.mask[j] = scale
			}
		}
		ws.dropped[j] = h * ws.mask[j]
	}

	return sigmoid(floats.Dot(p.OutW, ws.dropped) + p.OutB[0])
}

// Backward accumulates into g the gradient of the binary cross-entropy loss
// for the sample last passed to Forward on ws, whose output was prob.
func (n *Network) Backward(ws *Workspace, seq []int, prob, label float64, g *Gradients) {
	c, p := n.cfg, n.params
	dim, win := c.EmbeddingDim, c.window()

	dz := prob - label
	floats.AddScaled(g.OutW, dz, ws.dropped)
	g.OutB[0] += dz

	clear(ws.dPooled)
	for j := 0; j < c.DenseUnits; j++ {
		d := dz * p.OutW[j] * ws.mask[j]
		if ws.hidden[j] <= 0 {
			d = 0
		}
		ws.dHidden[j] = d
		if d == 0 {
			continue
		}
		floats.AddScaled(g.DenseW[j*c.Filters:(j+1)*c.Filters], d, ws.pooled)
		g.DenseB[j] += d
		floats.AddScaled(ws.dPooled, d, p.DenseW[j*c.Filters:(j+1)*c.Filters])
	}

	// Only the max position of each filter receives gradient.
	for f := 0; f < c.Filters; f++ {
		d := ws.dPooled[f]
		if d == 0 || ws.pooled[f] <= 0 {
			continue
		}
		t := ws.argmax[f]
		floats.AddScaled(g.ConvW[f*win:(f+1)*win], d, ws.x[t*dim:t*dim+win])
		g.ConvB[f] += d
		kernel := p.ConvW[f*win : (f+1)*win]
		for k := 0; k < c.KernelSize; k++ {
			floats.AddScaled(g.embeddingRow(seq[t+k]), d, kernel[k*dim:(k+1)*dim])
		}
	}
}

// Loss is the binary cross-entropy of prob against label.
func Loss(prob, label float64) float64 {
	prob = math.Min(math.Max(prob, probEpsilon), 1-probEpsilon)
	return -(label*math.Log(prob) + (1-label)*math.Log(1-prob))
}

func relu(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
