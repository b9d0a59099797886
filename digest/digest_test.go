package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fake-news-detector/model"
)

type mockHistory struct {
	entries []model.HistoryEntry
}

func (m *mockHistory) List() []model.HistoryEntry {
	return m.entries
}

type mockSender struct {
	chatID   int64
	messages []string
	err      error
}

func (m *mockSender) SendHTML(ctx context.Context, chatID int64, htmlText string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.chatID = chatID
	m.messages = append(m.messages, htmlText)
	return len(m.messages), nil
}

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func sampleEntries() []model.HistoryEntry {
	return []model.HistoryEntry{
		{ID: 1, Title: "Aliens <b>landed</b>", Result: model.LabelFake, Confidence: 0.95, Timestamp: fixedNow.Add(-2 * time.Hour)},
		{ID: 2, Title: "Budget approved", Result: model.LabelReal, Confidence: 0.05, Timestamp: fixedNow.Add(-time.Hour)},
		{ID: 3, Title: "Miracle cure", Result: model.LabelFake, Confidence: 0.8, Timestamp: fixedNow.Add(-30 * time.Minute)},
		{ID: 4, Title: "Odd claim", Result: model.LabelSuspicious, Confidence: 0.5, Timestamp: fixedNow},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleEntries(), fixedNow)
	if s.Total != 4 || s.Fake != 2 || s.Real != 1 || s.Suspicious != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if diff := s.MeanFake - 0.575; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("unexpected mean: %v", s.MeanFake)
	}
	if len(s.TopFake) != 2 {
		t.Fatalf("expected 2 fake entries, got %d", len(s.TopFake))
	}
	if s.TopFake[0].Entry.ID != 1 {
		t.Fatalf("expected most confident fake first, got %d", s.TopFake[0].Entry.ID)
	}
}

func TestRunSendsDigest(t *testing.T) {
	sender := &mockSender{}
	runner := &Runner{
		History: &mockHistory{entries: sampleEntries()},
		Sender:  sender,
		ChatID:  func() int64 { return 42 },
		Now:     func() time.Time { return fixedNow },
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sender.chatID != 42 || len(sender.messages) != 1 {
		t.Fatalf("expected one message to chat 42, got %d to %d", len(sender.messages), sender.chatID)
	}
	msg := sender.messages[0]
	for _, want := range []string{"Analyzed: 4", "Fake: 2", "57.5%", "Aliens &lt;b&gt;landed&lt;/b&gt;", "2 hours ago"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Budget approved") {
		t.Fatalf("real entries must not be listed")
	}
}

func TestRunSkipsWithoutChat(t *testing.T) {
	sender := &mockSender{}
	runner := &Runner{
		History: &mockHistory{entries: sampleEntries()},
		Sender:  sender,
		ChatID:  func() int64 { return 0 },
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sender.messages) != 0 {
		t.Fatalf("expected no messages")
	}
}

func TestRunSendError(t *testing.T) {
	runner := &Runner{
		History: &mockHistory{},
		Sender:  &mockSender{err: errors.New("boom")},
		ChatID:  func() int64 { return 1 },
	}
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatEmpty(t *testing.T) {
	msg := Format(Summary{})
	if !strings.Contains(msg, "No articles were analyzed") {
		t.Fatalf("unexpected message: %s", msg)
	}
}
