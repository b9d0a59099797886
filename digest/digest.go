package digest

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"fake-news-detector/model"
	"fake-news-detector/ranker"
)

// TopFake is the number of fake-news titles listed in a digest.
const TopFake = 3

// HistorySource provides the served predictions.
type HistorySource interface {
	List() []model.HistoryEntry
}

// Sender delivers HTML messages.
type Sender interface {
	SendHTML(ctx context.Context, chatID int64, htmlText string) (int, error)
}

// Runner sends the daily prediction digest.
type Runner struct {
	History HistorySource
	Sender  Sender
	ChatID  func() int64
	Logger  *slog.Logger
	Now     func() time.Time
}

// Summary aggregates the history for one digest.
type Summary struct {
	Total       int
	Fake        int
	Suspicious  int
	Real        int
	MeanFake    float64
	TopFake     []ranker.ScoredEntry
	GeneratedAt time.Time
}

// Summarize builds a digest summary from history entries.
func Summarize(entries []model.HistoryEntry, now time.Time) Summary {
	s := Summary{Total: len(entries), GeneratedAt: now}
	var sum float64
	for _, e := range entries {
		switch e.Result {
		case model.LabelFake:
			s.Fake++
		case model.LabelSuspicious:
			s.Suspicious++
		case model.LabelReal:
			s.Real++
		}
		sum += e.Confidence
	}
	if s.Total > 0 {
		s.MeanFake = sum / float64(s.Total)
	}
	s.TopFake = ranker.TopByResult(entries, model.LabelFake, TopFake, now)
	return s
}

// Run executes the digest.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	start := now()
	logger.Info("digest_start", slog.Time("time", start))

	var chatID int64
	if r.ChatID != nil {
		chatID = r.ChatID()
	}
	if chatID == 0 {
		logger.Info("digest_skipped", slog.String("reason", "no chat registered"))
		return nil
	}

	summary := Summarize(r.History.List(), start)
	if _, err := r.Sender.SendHTML(ctx, chatID, Format(summary)); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	logger.Info("digest_complete",
		slog.Int("total", summary.Total),
		slog.Int("fake", summary.Fake),
		slog.Duration("duration", now().Sub(start)))
	return nil
}

// Format renders the summary as a Telegram HTML message.
func Format(s Summary) string {
	var b strings.Builder
	b.WriteString("📊 <b>Fake news digest</b>\n")
	if s.Total == 0 {
		b.WriteString("No articles were analyzed since the last restart.")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Analyzed: %s\n", humanize.Comma(int64(s.Total))))
	b.WriteString(fmt.Sprintf("🚫 Fake: %d  ⚠️ Suspicious: %d  ✅ Real: %d\n", s.Fake, s.Suspicious, s.Real))
	b.WriteString(fmt.Sprintf("Mean fake probability: %.1f%%\n", s.MeanFake*100))
	if len(s.TopFake) == 0 {
		return strings.TrimSuffix(b.String(), "\n")
	}
	b.WriteString("\n<b>Most likely fake</b>\n")
	for i, t := range s.TopFake {
		title := t.Entry.Title
		if title == "" {
			title = t.Entry.TextPreview
		}
		b.WriteString(fmt.Sprintf("%d. %s (%.1f%%, %s)\n", i+1,
			html.EscapeString(title), t.Entry.Confidence*100,
			humanize.RelTime(t.Entry.Timestamp, s.GeneratedAt, "ago", "from now")))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
