package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fake-news-detector/detector"
	"fake-news-detector/model"
)

// Sender sends messages to Telegram.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendHTML(ctx context.Context, chatID int64, htmlText string) (int, error)
}

// TelegramSender implements Sender using tgbotapi.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

// NewTelegramSender creates a new sender.
func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// SendText sends a plain text message.
func (s *TelegramSender) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	return s.send(tgbotapi.NewMessage(chatID, text))
}

// SendHTML sends an HTML-formatted message.
func (s *TelegramSender) SendHTML(ctx context.Context, chatID int64, htmlText string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, htmlText)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return s.send(msg)
}

func (s *TelegramSender) send(msg tgbotapi.MessageConfig) (int, error) {
	resp, err := s.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

// FormatPrediction renders a verdict with HTML formatting.
func FormatPrediction(p detector.Prediction) string {
	r := p.Result
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b> (%s)\n", r.Icon, r.Result, r.ConfidencePercentage))
	b.WriteString(html.EscapeString(r.Message))
	b.WriteString(fmt.Sprintf("\nConfidence level: %s", r.ConfidenceLevel))
	if p.Preview.Title != "" {
		b.WriteString("\n\n<i>")
		b.WriteString(html.EscapeString(p.Preview.Title))
		b.WriteString("</i>")
	}
	return b.String()
}

// FormatHistory renders the latest history entries, newest first.
func FormatHistory(entries []model.HistoryEntry) string {
	var b strings.Builder
	b.WriteString("<b>Latest analyses</b>")
	for _, e := range entries {
		label := e.Title
		if label == "" {
			label = e.TextPreview
		}
		b.WriteString(fmt.Sprintf("\n#%d %s %.1f%% %s (%s)",
			e.ID, e.Result, e.Confidence*100,
			html.EscapeString(label),
			e.Timestamp.UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}
