package model

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Result labels.
const (
	LabelFake       = "FAKE NEWS"
	LabelSuspicious = "SUSPICIOUS"
	LabelReal       = "REAL NEWS"
)

// PredictionResult is the user-facing verdict for one probability.
type PredictionResult struct {
	Result               string  `json:"result"`
	Confidence           float64 `json:"confidence"`
	ConfidencePercentage string  `json:"confidence_percentage"`
	ConfidenceLevel      string  `json:"confidence_level"`
	Color                string  `json:"color"`
	Icon                 string  `json:"icon"`
	Message              string  `json:"message"`
}

// Analyze maps a fake-news probability onto the display bands.
func Analyze(p float64) PredictionResult {
	r := PredictionResult{
		Confidence:           p,
		ConfidencePercentage: fmt.Sprintf("%.1f%%", p*100),
	}
	switch {
	case p >= 0.7:
		r.Result = LabelFake
		r.ConfidenceLevel = "High"
		r.Color = "#dc3545"
		r.Icon = "🚫"
		r.Message = "This article appears to be fake news with high confidence."
	case p >= 0.5:
		r.Result = LabelSuspicious
		r.ConfidenceLevel = "Medium"
		r.Color = "#ffc107"
		r.Icon = "⚠️"
		r.Message = "This article shows suspicious patterns. Please verify with other sources."
	default:
		r.Result = LabelReal
		r.ConfidenceLevel = "Medium"
		if p < 0.3 {
			r.ConfidenceLevel = "High"
		}
		r.Color = "#28a745"
		r.Icon = "✅"
		r.Message = "This article appears to be legitimate news."
	}
	return r
}

// HistoryEntry is one served prediction kept in memory.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	TextPreview string    `json:"text_preview"`
	Result      string    `json:"result"`
	Confidence  float64   `json:"confidence"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewHistoryEntry builds an entry with truncated title and preview.
func NewHistoryEntry(title, text string, r PredictionResult, at time.Time) HistoryEntry {
	return HistoryEntry{
		Title:       Truncate(title, 100),
		TextPreview: Truncate(text, 150),
		Result:      r.Result,
		Confidence:  r.Confidence,
		Timestamp:   at,
	}
}

// Preview echoes the submitted input back to the client.
type Preview struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// NewPreview truncates the input for display.
func NewPreview(title, text string) Preview {
	return Preview{Title: Truncate(title, 200), Text: Truncate(text, 300)}
}

// Truncate cuts s to n runes and appends "..." when anything was removed.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// Run states.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// TrainingRun summarises one invocation of the training pipeline.
type TrainingRun struct {
	ID             string         `json:"id"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	Status         string         `json:"status"`
	TrainSamples   int            `json:"train_samples"`
	TestSamples    int            `json:"test_samples"`
	FakeSamples    int            `json:"fake_samples"`
	RealSamples    int            `json:"real_samples"`
	VocabularySize int            `json:"vocabulary_size"`
	DateFrom       *time.Time     `json:"date_from,omitempty"`
	DateTo         *time.Time     `json:"date_to,omitempty"`
	BestEpoch      int            `json:"best_epoch"`
	ValLoss        float64        `json:"val_loss"`
	ValAccuracy    float64        `json:"val_accuracy"`
	StoppedEarly   bool           `json:"stopped_early"`
	Epochs         []EpochMetrics `json:"epochs,omitempty"`
}

// EpochMetrics are the learning-curve points of one epoch.
type EpochMetrics struct {
	Epoch        int     `json:"epoch"`
	Loss         float64 `json:"loss"`
	Accuracy     float64 `json:"accuracy"`
	ValLoss      float64 `json:"val_loss"`
	ValAccuracy  float64 `json:"val_accuracy"`
	Checkpointed bool    `json:"checkpointed"`
}
