// Package cnn implements the fixed text classifier: embedding, 1-D
// convolution, global max pooling, a ReLU dense layer with dropout and a
// sigmoid output unit.
package cnn

import (
	"errors"
	"fmt"
)

// Config describes the layer sizes of a Network.
type Config struct {
	MaxWords     int     `json:"max_words"`
	MaxLen       int     `json:"max_len"`
	EmbeddingDim int     `json:"embedding_dim"`
	Filters      int     `json:"filters"`
	KernelSize   int     `json:"kernel_size"`
	DenseUnits   int     `json:"dense_units"`
	DropoutRate  float64 `json:"dropout_rate"`
}

// DefaultConfig returns the production architecture.
func DefaultConfig() Config {
	return Config{
		MaxWords:     10000,
		MaxLen:       500,
		EmbeddingDim: 128,
		Filters:      128,
		KernelSize:   5,
		DenseUnits:   64,
		DropoutRate:  0.5,
	}
}

// Validate reports sizes that cannot form a network.
func (c Config) Validate() error {
	if c.MaxWords < 2 {
		return errors.New("max_words must be at least 2")
	}
	if c.EmbeddingDim <= 0 || c.Filters <= 0 || c.DenseUnits <= 0 {
		return errors.New("embedding_dim, filters and dense_units must be positive")
	}
	if c.KernelSize <= 0 || c.KernelSize > c.MaxLen {
		return fmt.Errorf("kernel_size must be in [1,%d]", c.MaxLen)
	}
	if c.DropoutRate < 0 || c.DropoutRate >= 1 {
		return errors.New("dropout_rate must be in [0,1)")
	}
	return nil
}

// convLen is the number of valid convolution positions.
func (c Config) convLen() int { return c.MaxLen - c.KernelSize + 1 }

// window is the flattened length of one convolution receptive field.
func (c Config) window() int { return c.KernelSize * c.EmbeddingDim }
