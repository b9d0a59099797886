package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fake-news-detector/detector"
	"fake-news-detector/history"
	"fake-news-detector/model"
	"fake-news-detector/scraper"
)

// Setting keys persisted in storage.
const (
	SettingChatID     = "chat_id"
	SettingDigestTime = "digest_time"
)

const historyCount = 5

// Classifier scores an article.
type Classifier interface {
	Predict(ctx context.Context, in detector.Input) (detector.Prediction, error)
}

// Fetcher downloads an article from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (scraper.Article, error)
}

// HistoryReader exposes the served predictions.
type HistoryReader interface {
	Stats() history.Stats
	Recent(n int) []model.HistoryEntry
}

// Storage defines persistence used by bot handlers.
type Storage interface {
	SetSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// DigestRunner triggers a digest run.
type DigestRunner interface {
	Run(ctx context.Context) error
}

// SchedulerUpdater updates the digest schedule.
type SchedulerUpdater interface {
	UpdateTime(digestTime string) error
}

// Bot handles Telegram updates.
type Bot struct {
	Sender     Sender
	Classifier Classifier
	Fetcher    Fetcher
	History    HistoryReader
	Storage    Storage
	Digest     DigestRunner
	Scheduler  SchedulerUpdater
	Settings   *Settings
	Logger     *slog.Logger
}

// ProcessUpdate dispatches a Telegram update.
func (b *Bot) ProcessUpdate(ctx context.Context, update tgbotapi.Update) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	registered := b.Settings.ChatID()
	if registered != 0 && msg.Chat.ID != registered {
		return
	}

	if !msg.IsCommand() {
		if registered == 0 {
			b.reply(ctx, msg.Chat.ID, "Please run /start first to register this chat.")
			return
		}
		b.handleText(ctx, logger, msg.Chat.ID, msg.Text)
		return
	}

	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	if registered == 0 && command != "start" && command != "help" {
		b.reply(ctx, msg.Chat.ID, "Please run /start first to register this chat.")
		return
	}

	switch command {
	case "start":
		b.handleStart(ctx, logger, msg.Chat.ID)
	case "help":
		b.reply(ctx, msg.Chat.ID, helpText)
	case "stats":
		b.handleStats(ctx, msg.Chat.ID)
	case "history":
		b.handleHistory(ctx, msg.Chat.ID)
	case "settings":
		b.handleSettings(ctx, logger, msg.Chat.ID, args)
	case "digest":
		b.handleDigest(ctx, logger)
	default:
		b.reply(ctx, msg.Chat.ID, "Unknown command. Try /help.")
	}
}

const helpText = `Send me a news article and I will estimate how likely it is to be fake.
You can paste the text or a link to the article.

Commands:
/stats - prediction counts
/history - latest analyses
/settings time HH:MM - daily digest time
/digest - send the digest now`

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	_, _ = b.Sender.SendText(ctx, chatID, text)
}

func (b *Bot) handleStart(ctx context.Context, logger *slog.Logger, chatID int64) {
	b.Settings.SetChatID(chatID)
	if err := b.Storage.SetSetting(ctx, SettingChatID, strconv.FormatInt(chatID, 10)); err != nil {
		logger.Warn("chat_register_failed", slog.String("error", err.Error()))
	}
	logger.Info("chat_registered", slog.Int64("chat_id", chatID))
	b.reply(ctx, chatID, "Welcome to the Fake News Detector!\n\n"+helpText)
}

func (b *Bot) handleText(ctx context.Context, logger *slog.Logger, chatID int64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	in := detector.Input{Text: text}
	if isURL(text) {
		if b.Fetcher == nil {
			b.reply(ctx, chatID, "Fetching links is not available.")
			return
		}
		article, err := b.Fetcher.Fetch(ctx, text)
		if err != nil {
			logger.Warn("bot_fetch_failed", slog.String("url", text), slog.String("error", err.Error()))
			b.reply(ctx, chatID, "Could not fetch the article: "+err.Error())
			return
		}
		in = detector.Input{Title: article.Title, Text: article.Text}
	}

	pred, err := b.Classifier.Predict(ctx, in)
	switch {
	case errors.Is(err, detector.ErrNotLoaded):
		b.reply(ctx, chatID, "Model not loaded. Please try again later.")
		return
	case errors.Is(err, detector.ErrEmptyInput):
		b.reply(ctx, chatID, "No text to analyze.")
		return
	case err != nil:
		logger.Warn("bot_predict_failed", slog.String("error", err.Error()))
		b.reply(ctx, chatID, "Analysis failed.")
		return
	}
	_, _ = b.Sender.SendHTML(ctx, chatID, FormatPrediction(pred))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	stats := b.History.Stats()
	if stats.Total == 0 {
		b.reply(ctx, chatID, "No predictions yet. Send me an article to analyze.")
		return
	}
	text := fmt.Sprintf("Predictions: %d\n🚫 %s: %d\n⚠️ %s: %d\n✅ %s: %d\nMean fake probability: %.1f%%",
		stats.Total,
		model.LabelFake, stats.ByResult[model.LabelFake],
		model.LabelSuspicious, stats.ByResult[model.LabelSuspicious],
		model.LabelReal, stats.ByResult[model.LabelReal],
		stats.MeanConfidence*100)
	b.reply(ctx, chatID, text)
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	entries := b.History.Recent(historyCount)
	if len(entries) == 0 {
		b.reply(ctx, chatID, "No predictions yet.")
		return
	}
	_, _ = b.Sender.SendHTML(ctx, chatID, FormatHistory(entries))
}

func (b *Bot) handleSettings(ctx context.Context, logger *slog.Logger, chatID int64, args string) {
	if args == "" {
		b.reply(ctx, chatID, fmt.Sprintf("Digest time: %s", b.Settings.DigestTime()))
		return
	}
	parts := strings.Fields(args)
	if len(parts) != 2 || parts[0] != "time" || !validTime(parts[1]) {
		b.reply(ctx, chatID, "Usage: /settings time HH:MM")
		return
	}
	if b.Scheduler != nil {
		if err := b.Scheduler.UpdateTime(parts[1]); err != nil {
			logger.Warn("schedule_update_failed", slog.String("error", err.Error()))
			b.reply(ctx, chatID, "Failed to update digest time.")
			return
		}
	}
	b.Settings.SetDigestTime(parts[1])
	if err := b.Storage.SetSetting(ctx, SettingDigestTime, parts[1]); err != nil {
		logger.Warn("digest_time_persist_failed", slog.String("error", err.Error()))
	}
	b.reply(ctx, chatID, fmt.Sprintf("Digest time updated to %s", parts[1]))
}

func (b *Bot) handleDigest(ctx context.Context, logger *slog.Logger) {
	if b.Digest == nil {
		return
	}
	if err := b.Digest.Run(ctx); err != nil {
		logger.Warn("manual_digest_failed", slog.String("error", err.Error()))
	}
}

func isURL(text string) bool {
	if strings.ContainsAny(text, " \n\t") {
		return false
	}
	u, err := url.Parse(text)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validTime(value string) bool {
	return timeHHMM.MatchString(value)
}

var timeHHMM = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)
