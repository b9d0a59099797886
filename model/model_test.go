package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeBands(t *testing.T) {
	tests := []struct {
		p      float64
		result string
		level  string
		color  string
		pct    string
	}{
		{0.95, LabelFake, "High", "#dc3545", "95.0%"},
		{0.7, LabelFake, "High", "#dc3545", "70.0%"},
		{0.6999, LabelSuspicious, "Medium", "#ffc107", "70.0%"},
		{0.5, LabelSuspicious, "Medium", "#ffc107", "50.0%"},
		{0.4, LabelReal, "Medium", "#28a745", "40.0%"},
		{0.3, LabelReal, "Medium", "#28a745", "30.0%"},
		{0.1, LabelReal, "High", "#28a745", "10.0%"},
	}
	for _, tt := range tests {
		r := Analyze(tt.p)
		assert.Equal(t, tt.result, r.Result, "p=%v", tt.p)
		assert.Equal(t, tt.level, r.ConfidenceLevel, "p=%v", tt.p)
		assert.Equal(t, tt.color, r.Color, "p=%v", tt.p)
		assert.Equal(t, tt.pct, r.ConfidencePercentage, "p=%v", tt.p)
		assert.Equal(t, tt.p, r.Confidence)
		assert.NotEmpty(t, r.Icon)
		assert.NotEmpty(t, r.Message)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "日本...", Truncate("日本語テキスト", 2))
}

func TestNewHistoryEntryTruncates(t *testing.T) {
	title := strings.Repeat("t", 120)
	text := strings.Repeat("x", 200)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	e := NewHistoryEntry(title, text, Analyze(0.8), at)
	assert.Equal(t, strings.Repeat("t", 100)+"...", e.Title)
	assert.Equal(t, strings.Repeat("x", 150)+"...", e.TextPreview)
	assert.Equal(t, LabelFake, e.Result)
	assert.Equal(t, at, e.Timestamp)
}

func TestNewPreview(t *testing.T) {
	p := NewPreview(strings.Repeat("a", 250), "body")
	assert.Len(t, []rune(p.Title), 203)
	assert.Equal(t, "body", p.Text)
}
