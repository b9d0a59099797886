package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollRetryDelay = 2 * time.Second

// UpdateSource fetches pending updates. *tgbotapi.BotAPI satisfies it.
type UpdateSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Poller performs long polling for Telegram updates.
type Poller struct {
	API     UpdateSource
	Timeout int
	Logger  *slog.Logger
	Handler func(ctx context.Context, update tgbotapi.Update)
}

// Run starts polling until context is canceled.
func (p *Poller) Run(ctx context.Context) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	offset := 0
	for {
		if ctx.Err() != nil {
			return
		}

		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = timeout
		cfg.AllowedUpdates = []string{"message"}
		updates, err := p.API.GetUpdates(cfg)
		if err != nil {
			logger.Warn("poll_updates_failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if p.Handler != nil {
				p.Handler(ctx, update)
			}
		}
	}
}
