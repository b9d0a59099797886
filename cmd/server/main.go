package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fake-news-detector/api"
	"fake-news-detector/bot"
	"fake-news-detector/config"
	"fake-news-detector/detector"
	"fake-news-detector/digest"
	"fake-news-detector/history"
	"fake-news-detector/logging"
	"fake-news-detector/scheduler"
	"fake-news-detector/scraper"
	"fake-news-detector/storage"
	"fake-news-detector/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("config load failed", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("config_loaded", slog.String("addr", cfg.Addr()), slog.String("model_path", cfg.ModelPath()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		logging.Fatal("open database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("db_close_failed", slog.String("error", err.Error()))
		}
	}()

	store := storage.New(db)
	if err := store.Init(ctx); err != nil {
		logging.Fatal("init database", err)
	}

	hist := history.New(cfg.HistoryLimit)
	det := detector.New(hist, store, logger)
	if err := det.Load(cfg.ModelPath(), cfg.TokenizerPath()); err != nil {
		logger.Warn("model_unavailable", slog.String("hint", "run the train command first"))
	}

	fetcher := scraper.NewReadabilityScraper(cfg.FetchTimeout())

	gin.SetMode(cfg.GinMode)
	srv := &api.Server{
		Detector: det,
		History:  hist,
		Fetcher:  fetcher,
		Runs:     store,
		Static:   web.FS(),
		Logger:   logger,
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.FetchTimeout() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var sched *scheduler.Scheduler
	if cfg.TelegramToken != "" {
		sched, err = startBot(ctx, cfg, store, det, hist, fetcher, logger)
		if err != nil {
			logging.Fatal("start telegram bot", err)
		}
	} else {
		logger.Info("telegram_disabled")
	}

	go func() {
		logger.Info("http_listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", slog.String("error", err.Error()))
	}
	if sched != nil {
		sched.Stop()
	}
}

func startBot(ctx context.Context, cfg config.Config, store *storage.Storage, det *detector.Detector, hist *history.History, fetcher *scraper.ReadabilityScraper, logger *slog.Logger) (*scheduler.Scheduler, error) {
	tg, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	settings, err := bot.LoadSettings(ctx, store, cfg.ChatID, cfg.DigestTime)
	if err != nil {
		return nil, err
	}
	logger.Info("settings_loaded", slog.Int64("chat_id", settings.ChatID()), slog.String("digest_time", settings.DigestTime()))

	sender := bot.NewTelegramSender(tg)
	runner := &digest.Runner{
		History: hist,
		Sender:  sender,
		ChatID:  settings.ChatID,
		Logger:  logger,
	}

	sched, err := scheduler.New(settings.DigestTime(), cfg.Timezone, runner.Run, logger)
	if err != nil {
		return nil, err
	}
	sched.Start()
	logger.Info("scheduler_started",
		slog.String("timezone", sched.Location().String()),
		slog.Time("next", sched.Next()))

	handler := &bot.Bot{
		Sender:     sender,
		Classifier: det,
		Fetcher:    fetcher,
		History:    hist,
		Storage:    store,
		Digest:     runner,
		Scheduler:  sched,
		Settings:   settings,
		Logger:     logger,
	}
	poller := &bot.Poller{
		API:     tg,
		Logger:  logger,
		Handler: handler.ProcessUpdate,
	}
	go poller.Run(ctx)
	logger.Info("telegram_started", slog.String("username", tg.Self.UserName))
	return sched, nil
}
