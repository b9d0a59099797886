// Package detector serves predictions from the trained network and tokenizer.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"fake-news-detector/cnn"
	"fake-news-detector/history"
	"fake-news-detector/model"
	"fake-news-detector/textproc"
)

var (
	// ErrNotLoaded is returned when the model or tokenizer is unavailable.
	ErrNotLoaded = errors.New("model not loaded")
	// ErrEmptyInput is returned when neither title nor text is provided.
	ErrEmptyInput = errors.New("empty input")
)

// RunSource provides the latest completed training run for model info.
type RunSource interface {
	LatestCompletedRun(ctx context.Context) (model.TrainingRun, bool, error)
}

// Input is the article to classify.
type Input struct {
	Title string
	Text  string
}

// Prediction is the outcome of one classification.
type Prediction struct {
	Result  model.PredictionResult
	Preview model.Preview
	Entry   model.HistoryEntry
}

// Detector classifies articles and records them in the history.
type Detector struct {
	History *history.History
	Runs    RunSource
	Logger  *slog.Logger
	Now     func() time.Time

	mu        sync.RWMutex
	net       *cnn.Network
	tok       *textproc.Tokenizer
	modelPath string
}

// New returns a detector without artifacts; call Load to enable predictions.
func New(h *history.History, runs RunSource, logger *slog.Logger) *Detector {
	return &Detector{History: h, Runs: runs, Logger: logger}
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d *Detector) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Load reads the network and tokenizer. Failures are logged and leave the
// detector unloaded; the returned error is informational.
func (d *Detector) Load(modelPath, tokenizerPath string) error {
	logger := d.logger()
	net, err := cnn.Load(modelPath)
	if err != nil {
		logger.Error("model_load_failed", slog.String("path", modelPath), slog.String("error", err.Error()))
		return fmt.Errorf("load model: %w", err)
	}
	tok, err := textproc.LoadTokenizer(tokenizerPath)
	if err != nil {
		logger.Error("tokenizer_load_failed", slog.String("path", tokenizerPath), slog.String("error", err.Error()))
		return fmt.Errorf("load tokenizer: %w", err)
	}
	if n := tok.NumWords(); n <= 0 || n > net.Config().MaxWords {
		err := fmt.Errorf("tokenizer num_words %d outside (0, %d]", n, net.Config().MaxWords)
		logger.Error("artifact_mismatch", slog.String("error", err.Error()))
		return err
	}
	d.Set(net, tok, modelPath)
	logger.Info("model_loaded",
		slog.String("path", modelPath),
		slog.String("params", humanize.Comma(int64(net.ParamCount()))),
		slog.Int("vocabulary_size", tok.VocabularySize()),
	)
	return nil
}

// Set installs already loaded artifacts.
func (d *Detector) Set(net *cnn.Network, tok *textproc.Tokenizer, modelPath string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.net, d.tok, d.modelPath = net, tok, modelPath
}

// ModelLoaded reports whether a network is available.
func (d *Detector) ModelLoaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.net != nil
}

// TokenizerLoaded reports whether a tokenizer is available.
func (d *Detector) TokenizerLoaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tok != nil
}

// Predict classifies in and appends the outcome to the history.
func (d *Detector) Predict(ctx context.Context, in Input) (Prediction, error) {
	d.mu.RLock()
	net, tok := d.net, d.tok
	d.mu.RUnlock()
	if net == nil || tok == nil {
		return Prediction{}, ErrNotLoaded
	}
	if in.Title == "" && in.Text == "" {
		return Prediction{}, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	full := strings.TrimSpace(in.Title + " " + in.Text)
	seq := textproc.Preprocess(full, tok, net.Config().MaxLen)
	p, err := net.Predict(seq)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	result := model.Analyze(p)

	entry := model.NewHistoryEntry(in.Title, in.Text, result, d.now())
	if d.History != nil {
		entry = d.History.Add(entry)
	}
	d.logger().Info("prediction_served",
		slog.Int64("id", entry.ID),
		slog.String("result", result.Result),
		slog.Float64("confidence", p),
	)
	return Prediction{
		Result:  result,
		Preview: model.NewPreview(in.Title, in.Text),
		Entry:   entry,
	}, nil
}

// Architecture is the layer summary shown by model info.
type Architecture struct {
	Type        string      `json:"type"`
	Layers      []cnn.Layer `json:"layers"`
	TotalParams string      `json:"total_params"`
	Accuracy    string      `json:"accuracy"`
}

// Info describes the loaded model.
type Info struct {
	Status            string       `json:"status"`
	Type              string       `json:"type"`
	MaxWords          int          `json:"max_words"`
	MaxSequenceLength int          `json:"max_sequence_length"`
	EmbeddingDim      int          `json:"embedding_dim"`
	TotalPredictions  int          `json:"total_predictions"`
	ModelSize         string       `json:"model_size,omitempty"`
	Architecture      Architecture `json:"architecture"`
}

// Info returns the model description, or false when no model is loaded.
func (d *Detector) Info(ctx context.Context) (Info, bool) {
	d.mu.RLock()
	net, path := d.net, d.modelPath
	d.mu.RUnlock()
	if net == nil {
		return Info{}, false
	}
	cfg := net.Config()
	info := Info{
		Status:            "active",
		Type:              "CNN",
		MaxWords:          cfg.MaxWords,
		MaxSequenceLength: cfg.MaxLen,
		EmbeddingDim:      cfg.EmbeddingDim,
		Architecture: Architecture{
			Type:        "CNN",
			Layers:      net.Summary(),
			TotalParams: humanize.Comma(int64(net.ParamCount())),
			Accuracy:    d.accuracy(ctx),
		},
	}
	if d.History != nil {
		info.TotalPredictions = d.History.Len()
	}
	if st, err := os.Stat(path); err == nil {
		info.ModelSize = humanize.Bytes(uint64(st.Size()))
	}
	return info, true
}

func (d *Detector) accuracy(ctx context.Context) string {
	if d.Runs == nil {
		return "unknown"
	}
	run, ok, err := d.Runs.LatestCompletedRun(ctx)
	if err != nil {
		d.logger().Warn("latest_run_failed", slog.String("error", err.Error()))
		return "unknown"
	}
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%.1f%%", run.ValAccuracy*100)
}
