package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"fake-news-detector/cnn"
	"fake-news-detector/config"
	"fake-news-detector/logging"
	"fake-news-detector/storage"
	"fake-news-detector/trainer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("config load failed", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		logging.Fatal("open database", err)
	}
	defer db.Close()

	store := storage.New(db)
	if err := store.Init(ctx); err != nil {
		logging.Fatal("init database", err)
	}

	p := &trainer.Pipeline{
		FakePath:      cfg.FakeDataPath,
		TruePath:      cfg.TrueDataPath,
		ModelPath:     cfg.ModelPath(),
		TokenizerPath: cfg.TokenizerPath(),
		Network: cnn.Config{
			MaxWords:     cfg.MaxWords,
			MaxLen:       cfg.MaxLen,
			EmbeddingDim: cfg.EmbeddingDim,
			Filters:      cfg.Filters,
			KernelSize:   cfg.KernelSize,
			DenseUnits:   cfg.DenseUnits,
			DropoutRate:  cfg.DropoutRate,
		},
		Options: trainer.Options{
			Epochs:       cfg.Epochs,
			BatchSize:    cfg.BatchSize,
			Patience:     cfg.Patience,
			LearningRate: cfg.LearningRate,
			Workers:      cfg.Workers,
			Seed:         cfg.Seed,
		},
		ValidationSplit: cfg.ValidationSplit,
		Recorder:        store,
		Logger:          logger,
	}
	run, err := p.Run(ctx)
	if err != nil {
		logging.Fatal("training failed", err)
	}
	logger.Info("training_run_recorded",
		slog.String("run_id", run.ID),
		slog.Int("best_epoch", run.BestEpoch),
		slog.Float64("val_accuracy", run.ValAccuracy))
}
