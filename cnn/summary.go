package cnn

import "fmt"

// Layer describes one layer for display.
type Layer struct {
	Name   string `json:"name"`
	Params string `json:"params"`
	Count  int    `json:"-"`
}

// Summary lists the layers in order with their shapes and parameter counts.
func (n *Network) Summary() []Layer {
	c := n.cfg
	return []Layer{
		{Name: "Embedding", Params: fmt.Sprintf("%d×%d", c.MaxWords, c.EmbeddingDim), Count: c.MaxWords * c.EmbeddingDim},
		{Name: "Conv1D", Params: fmt.Sprintf("%d filters, kernel_size=%d", c.Filters, c.KernelSize), Count: c.Filters*c.window() + c.Filters},
		{Name: "GlobalMaxPooling1D"},
		{Name: "Dense", Params: fmt.Sprintf("%d units", c.DenseUnits), Count: c.DenseUnits*c.Filters + c.DenseUnits},
		{Name: "Dropout", Params: fmt.Sprintf("%g", c.DropoutRate)},
		{Name: "Dense", Params: "1 unit (sigmoid)", Count: c.DenseUnits + 1},
	}
}
