package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fake-news-detector/detector"
	"fake-news-detector/history"
	"fake-news-detector/model"
	"fake-news-detector/scraper"
)

type mockSender struct {
	messages []string
}

func (m *mockSender) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	m.messages = append(m.messages, text)
	return len(m.messages), nil
}

func (m *mockSender) SendHTML(ctx context.Context, chatID int64, htmlText string) (int, error) {
	m.messages = append(m.messages, htmlText)
	return len(m.messages), nil
}

func (m *mockSender) last() string {
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1]
}

type mockStorage struct {
	settings map[string]string
}

func (m *mockStorage) SetSetting(ctx context.Context, key, value string) error {
	if m.settings == nil {
		m.settings = map[string]string{}
	}
	m.settings[key] = value
	return nil
}

func (m *mockStorage) GetSetting(ctx context.Context, key string) (string, bool, error) {
	val, ok := m.settings[key]
	return val, ok, nil
}

var _ Storage = (*mockStorage)(nil)

type mockScheduler struct {
	updated string
}

func (m *mockScheduler) UpdateTime(digestTime string) error {
	m.updated = digestTime
	return nil
}

type mockClassifier struct {
	inputs []detector.Input
	prob   float64
	err    error
}

func (m *mockClassifier) Predict(ctx context.Context, in detector.Input) (detector.Prediction, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return detector.Prediction{}, m.err
	}
	return detector.Prediction{
		Result:  model.Analyze(m.prob),
		Preview: model.NewPreview(in.Title, in.Text),
	}, nil
}

type mockFetcher struct {
	article scraper.Article
	err     error
	urls    []string
}

func (m *mockFetcher) Fetch(ctx context.Context, rawURL string) (scraper.Article, error) {
	m.urls = append(m.urls, rawURL)
	return m.article, m.err
}

type mockDigest struct {
	runs int
}

func (m *mockDigest) Run(ctx context.Context) error {
	m.runs++
	return nil
}

func commandMessage(chatID int64, text string) *tgbotapi.Message {
	command := text
	if idx := strings.Index(text, " "); idx != -1 {
		command = text[:idx]
	}
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{
			Type:   "bot_command",
			Offset: 0,
			Length: len(command),
		}},
	}
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}
}

func newTestBot(chatID int64) (*Bot, *mockSender, *mockStorage) {
	sender := &mockSender{}
	storage := &mockStorage{}
	b := &Bot{
		Sender:     sender,
		Storage:    storage,
		Classifier: &mockClassifier{prob: 0.9},
		History:    history.New(10),
		Settings:   NewSettings(chatID, "09:00"),
	}
	return b, sender, storage
}

func TestStartCommand(t *testing.T) {
	b, sender, storage := newTestBot(0)

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(123, "/start")})

	if b.Settings.ChatID() != 123 {
		t.Fatalf("expected chat id set")
	}
	if storage.settings[SettingChatID] != "123" {
		t.Fatalf("expected chat_id stored")
	}
	if !strings.Contains(sender.last(), "Welcome") {
		t.Fatalf("expected welcome message, got %q", sender.last())
	}
}

func TestUnregisteredChatMustStart(t *testing.T) {
	b, sender, _ := newTestBot(0)
	classifier := b.Classifier.(*mockClassifier)

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: textMessage(5, "some article")})

	if len(classifier.inputs) != 0 {
		t.Fatalf("expected no classification before /start")
	}
	if !strings.Contains(sender.last(), "/start") {
		t.Fatalf("expected registration hint, got %q", sender.last())
	}
}

func TestOtherChatsIgnored(t *testing.T) {
	b, sender, _ := newTestBot(123)

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(999, "/stats")})

	if len(sender.messages) != 0 {
		t.Fatalf("expected no reply to foreign chat")
	}
}

func TestPlainTextClassified(t *testing.T) {
	b, sender, _ := newTestBot(123)
	classifier := b.Classifier.(*mockClassifier)

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: textMessage(123, "  Shocking <news> today  ")})

	if len(classifier.inputs) != 1 || classifier.inputs[0].Text != "Shocking <news> today" {
		t.Fatalf("unexpected classifier inputs: %+v", classifier.inputs)
	}
	msg := sender.last()
	if !strings.Contains(msg, "<b>FAKE NEWS</b>") || !strings.Contains(msg, "90.0%") {
		t.Fatalf("unexpected reply: %q", msg)
	}
}

func TestURLFetchedBeforeClassification(t *testing.T) {
	b, _, _ := newTestBot(123)
	fetcher := &mockFetcher{article: scraper.Article{Title: "Headline", Text: "Body"}}
	b.Fetcher = fetcher
	classifier := b.Classifier.(*mockClassifier)

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: textMessage(123, "https://example.com/a")})

	if len(fetcher.urls) != 1 || fetcher.urls[0] != "https://example.com/a" {
		t.Fatalf("expected fetch, got %v", fetcher.urls)
	}
	if classifier.inputs[0].Title != "Headline" || classifier.inputs[0].Text != "Body" {
		t.Fatalf("unexpected input: %+v", classifier.inputs[0])
	}
}

func TestURLFetchFailure(t *testing.T) {
	b, sender, _ := newTestBot(123)
	b.Fetcher = &mockFetcher{err: errors.New("timeout")}
	classifier := b.Classifier.(*mockClassifier)

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: textMessage(123, "https://example.com/a")})

	if len(classifier.inputs) != 0 {
		t.Fatalf("expected no classification")
	}
	if !strings.Contains(sender.last(), "Could not fetch") {
		t.Fatalf("unexpected reply: %q", sender.last())
	}
}

func TestModelNotLoaded(t *testing.T) {
	b, sender, _ := newTestBot(123)
	b.Classifier = &mockClassifier{err: detector.ErrNotLoaded}

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: textMessage(123, "text")})

	if !strings.Contains(sender.last(), "Model not loaded") {
		t.Fatalf("unexpected reply: %q", sender.last())
	}
}

func TestStatsAndHistory(t *testing.T) {
	b, sender, _ := newTestBot(123)
	h := history.New(10)
	now := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	h.Add(model.NewHistoryEntry("First", "x", model.Analyze(0.9), now))
	h.Add(model.NewHistoryEntry("Second", "y", model.Analyze(0.1), now))
	b.History = h

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(123, "/stats")})
	if !strings.Contains(sender.last(), "Predictions: 2") || !strings.Contains(sender.last(), "FAKE NEWS: 1") {
		t.Fatalf("unexpected stats: %q", sender.last())
	}

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(123, "/history")})
	msg := sender.last()
	if strings.Index(msg, "Second") > strings.Index(msg, "First") {
		t.Fatalf("expected newest first: %q", msg)
	}
}

func TestStatsEmpty(t *testing.T) {
	b, sender, _ := newTestBot(123)

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(123, "/stats")})

	if !strings.Contains(sender.last(), "No predictions yet") {
		t.Fatalf("unexpected reply: %q", sender.last())
	}
}

func TestSettingsDisplay(t *testing.T) {
	b, sender, _ := newTestBot(123)

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(123, "/settings")})

	if sender.last() != "Digest time: 09:00" {
		t.Fatalf("unexpected settings message: %q", sender.last())
	}
}

func TestSettingsUpdateTime(t *testing.T) {
	b, _, storage := newTestBot(123)
	scheduler := &mockScheduler{}
	b.Scheduler = scheduler

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(123, "/settings time 10:15")})

	if b.Settings.DigestTime() != "10:15" {
		t.Fatalf("expected digest time updated")
	}
	if scheduler.updated != "10:15" {
		t.Fatalf("expected scheduler updated")
	}
	if storage.settings[SettingDigestTime] != "10:15" {
		t.Fatalf("expected digest time stored")
	}
}

func TestSettingsInvalidTime(t *testing.T) {
	b, sender, _ := newTestBot(123)

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(123, "/settings time 25:00")})

	if b.Settings.DigestTime() != "09:00" {
		t.Fatalf("expected digest time unchanged")
	}
	if !strings.HasPrefix(sender.last(), "Usage") {
		t.Fatalf("expected usage, got %q", sender.last())
	}
}

func TestDigestCommand(t *testing.T) {
	b, _, _ := newTestBot(123)
	d := &mockDigest{}
	b.Digest = d

	b.ProcessUpdate(context.Background(), tgbotapi.Update{Message: commandMessage(123, "/digest")})

	if d.runs != 1 {
		t.Fatalf("expected digest run")
	}
}

func TestLoadSettings(t *testing.T) {
	store := &mockStorage{settings: map[string]string{SettingChatID: "77", SettingDigestTime: "18:30"}}
	s, err := LoadSettings(context.Background(), store, 0, "09:00")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ChatID() != 77 || s.DigestTime() != "18:30" {
		t.Fatalf("unexpected settings: %d %s", s.ChatID(), s.DigestTime())
	}

	s, err = LoadSettings(context.Background(), &mockStorage{}, 5, "07:00")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ChatID() != 5 || s.DigestTime() != "07:00" {
		t.Fatalf("expected defaults, got %d %s", s.ChatID(), s.DigestTime())
	}
}

func TestFormatPredictionEscapes(t *testing.T) {
	p := detector.Prediction{Result: model.Analyze(0.2), Preview: model.Preview{Title: "a <b> c"}}
	msg := FormatPrediction(p)
	if !strings.Contains(msg, "a &lt;b&gt; c") || !strings.Contains(msg, "REAL NEWS") {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestIsURL(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/x":     true,
		"http://example.com":        true,
		"ftp://example.com":         false,
		"example.com":               false,
		"see https://example.com x": false,
	}
	for in, want := range cases {
		if got := isURL(in); got != want {
			t.Fatalf("isURL(%q)=%v, want %v", in, got, want)
		}
	}
}

type mockUpdateSource struct {
	mu      sync.Mutex
	configs []tgbotapi.UpdateConfig
	batches [][]tgbotapi.Update
	cancel  context.CancelFunc
}

func (m *mockUpdateSource) GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = append(m.configs, config)
	if len(m.batches) == 0 {
		m.cancel()
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}

func TestPollerAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &mockUpdateSource{
		batches: [][]tgbotapi.Update{{{UpdateID: 5}, {UpdateID: 6}}, {{UpdateID: 7}}},
		cancel:  cancel,
	}
	var seen []int
	p := &Poller{API: src, Handler: func(ctx context.Context, u tgbotapi.Update) {
		seen = append(seen, u.UpdateID)
	}}

	p.Run(ctx)

	if len(seen) != 3 {
		t.Fatalf("expected 3 updates, got %v", seen)
	}
	if src.configs[1].Offset != 7 || src.configs[2].Offset != 8 {
		t.Fatalf("unexpected offsets: %d %d", src.configs[1].Offset, src.configs[2].Offset)
	}
	if src.configs[0].AllowedUpdates[0] != "message" {
		t.Fatalf("expected message updates only")
	}
}
