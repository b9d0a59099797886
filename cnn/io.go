package cnn

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var magic = []byte("FNCNN\x01")

// ErrBadFormat is returned when a weights file is not recognised.
var ErrBadFormat = errors.New("cnn: unrecognised weights file")

// WriteTo serializes the config and weights.
func (n *Network) WriteTo(w io.Writer) (int64, error) {
	header, err := json.Marshal(n.cfg)
	if err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	if _, err := bw.Write(magic); err != nil {
		return cw.n, err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(header))); err != nil {
		return cw.n, err
	}
	if _, err := bw.Write(header); err != nil {
		return cw.n, err
	}
	for _, t := range n.params.tensors() {
		if err := binary.Write(bw, binary.LittleEndian, t); err != nil {
			return cw.n, err
		}
	}
	err = bw.Flush()
	return cw.n, err
}

// Read decodes a network written by WriteTo.
func Read(r io.Reader) (*Network, error) {
	br := bufio.NewReader(r)
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(br, head); err != nil || !bytes.Equal(head, magic) {
		return nil, ErrBadFormat
	}
	var size uint32
	if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
		return nil, ErrBadFormat
	}
	if size > 1<<16 {
		return nil, ErrBadFormat
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, ErrBadFormat
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	n := newNetwork(cfg)
	for _, t := range n.params.tensors() {
		if err := binary.Read(br, binary.LittleEndian, t); err != nil {
			return nil, fmt.Errorf("read weights: %w", err)
		}
	}
	return n, nil
}

// Save writes the network to path atomically.
func (n *Network) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := n.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a network from path.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
