package trainer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"fake-news-detector/cnn"
	"fake-news-detector/dataset"
	"fake-news-detector/model"
	"fake-news-detector/textproc"
)

// RunRecorder persists training runs and their learning curves.
type RunRecorder interface {
	CreateRun(ctx context.Context, run model.TrainingRun) (model.TrainingRun, error)
	RecordEpoch(ctx context.Context, runID string, m model.EpochMetrics) error
	FinishRun(ctx context.Context, run model.TrainingRun) error
}

// Pipeline is the end-to-end training job: load, preprocess, fit, save.
type Pipeline struct {
	FakePath        string
	TruePath        string
	ModelPath       string
	TokenizerPath   string
	Network         cnn.Config
	Options         Options
	ValidationSplit float64
	Recorder        RunRecorder
	Logger          *slog.Logger
	Now             func() time.Time
}

// Run executes the pipeline and returns the recorded run.
func (p *Pipeline) Run(ctx context.Context) (model.TrainingRun, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	run := model.TrainingRun{StartedAt: now(), Status: model.RunRunning}
	if p.Recorder != nil {
		created, err := p.Recorder.CreateRun(ctx, run)
		if err != nil {
			logger.Warn("run_record_failed", slog.String("error", err.Error()))
		} else {
			run = created
		}
	}

	err := p.run(ctx, logger, &run)
	finished := now()
	run.FinishedAt = &finished
	run.Status = model.RunCompleted
	if err != nil {
		run.Status = model.RunFailed
	}
	if p.Recorder != nil && run.ID != "" {
		// The job context may already be cancelled; the final state is still worth writing.
		if ferr := p.Recorder.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
			logger.Warn("run_finish_failed", slog.String("error", ferr.Error()))
		}
	}
	return run, err
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, run *model.TrainingRun) error {
	logger.Info("dataset_loading", slog.String("fake_path", p.FakePath), slog.String("true_path", p.TruePath))
	samples, err := p.load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Error("dataset_not_found",
				slog.String("error", err.Error()),
				slog.String("fake_path", p.FakePath),
				slog.String("true_path", p.TruePath),
			)
		}
		return err
	}
	dataset.Shuffle(samples, p.Options.Seed)

	stats := dataset.Describe(samples)
	run.FakeSamples = stats.Fake
	run.RealSamples = stats.Real
	run.DateFrom = stats.From
	run.DateTo = stats.To
	logger.Info("dataset_loaded",
		slog.String("total", humanize.Comma(int64(stats.Total))),
		slog.Int("fake", stats.Fake),
		slog.Int("real", stats.Real),
	)

	cleaned := make([]dataset.Sample, len(samples))
	for i, smp := range samples {
		cleaned[i] = dataset.Sample{Text: textproc.Clean(smp.Content()), Date: smp.Date, Label: smp.Label}
	}
	split := p.ValidationSplit
	if split <= 0 {
		split = 0.2
	}
	trainSet, valSet, err := dataset.StratifiedSplit(cleaned, split, p.Options.Seed)
	if err != nil {
		return fmt.Errorf("split dataset: %w", err)
	}
	run.TrainSamples = len(trainSet)
	run.TestSamples = len(valSet)

	tok := textproc.NewTokenizer(p.Network.MaxWords)
	tok.Fit(texts(trainSet))
	run.VocabularySize = tok.VocabularySize()
	logger.Info("tokenizer_fitted",
		slog.Int("train_samples", len(trainSet)),
		slog.Int("val_samples", len(valSet)),
		slog.Int("vocabulary_size", tok.VocabularySize()),
	)

	train := encode(tok, trainSet, p.Network.MaxLen)
	val := encode(tok, valSet, p.Network.MaxLen)

	net, err := cnn.New(p.Network, p.Options.Seed)
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}
	logger.Info("model_built", slog.String("params", humanize.Comma(int64(net.ParamCount()))))

	// Checkpoints are staged; the served model and tokenizer change together.
	staged := p.ModelPath + stagedSuffix
	defer os.Remove(staged)

	opts := p.Options
	opts.CheckpointPath = staged
	t := &Trainer{
		Net:     net,
		Options: opts,
		Logger:  logger,
		OnEpoch: func(ctx context.Context, m model.EpochMetrics) {
			if p.Recorder == nil || run.ID == "" {
				return
			}
			if err := p.Recorder.RecordEpoch(ctx, run.ID, m); err != nil {
				logger.Warn("epoch_record_failed", slog.Int("epoch", m.Epoch), slog.String("error", err.Error()))
			}
		},
	}
	res, err := t.Fit(ctx, train, val)
	run.Epochs = res.Epochs
	run.BestEpoch = res.BestEpoch
	run.StoppedEarly = res.StoppedEarly
	if err != nil {
		return fmt.Errorf("fit: %w", err)
	}

	if _, err := os.Stat(staged); errors.Is(err, fs.ErrNotExist) {
		if err := net.Save(staged); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
	}
	if err := p.promote(tok, staged); err != nil {
		return err
	}
	logger.Info("artifacts_saved", slog.String("model_path", p.ModelPath), slog.String("tokenizer_path", p.TokenizerPath))

	served, err := cnn.Load(p.ModelPath)
	if err != nil {
		return fmt.Errorf("reload model: %w", err)
	}
	run.ValLoss, run.ValAccuracy = Evaluate(served, val, opts.Workers)
	logger.Info("evaluation_complete",
		slog.Float64("val_loss", run.ValLoss),
		slog.Float64("val_accuracy", run.ValAccuracy),
	)

	size := "unknown"
	if info, err := os.Stat(p.ModelPath); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	logger.Info("training_complete",
		slog.Float64("val_accuracy", run.ValAccuracy),
		slog.String("model_path", p.ModelPath),
		slog.String("model_size", size),
		slog.String("tokenizer_path", p.TokenizerPath),
	)
	return nil
}

const stagedSuffix = ".partial"

// promote moves the staged model into place next to a freshly written tokenizer.
func (p *Pipeline) promote(tok *textproc.Tokenizer, staged string) error {
	tokStaged := p.TokenizerPath + stagedSuffix
	if err := tok.Save(tokStaged); err != nil {
		return fmt.Errorf("save tokenizer: %w", err)
	}
	if err := os.Rename(staged, p.ModelPath); err != nil {
		os.Remove(tokStaged)
		return fmt.Errorf("replace model: %w", err)
	}
	if err := os.Rename(tokStaged, p.TokenizerPath); err != nil {
		return fmt.Errorf("replace tokenizer: %w", err)
	}
	return nil
}

func (p *Pipeline) load() ([]dataset.Sample, error) {
	fake, err := dataset.LoadCSV(p.FakePath, dataset.Fake)
	if err != nil {
		return nil, err
	}
	genuine, err := dataset.LoadCSV(p.TruePath, dataset.Real)
	if err != nil {
		return nil, err
	}
	return dataset.Combine(fake, genuine), nil
}

func texts(samples []dataset.Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Text
	}
	return out
}

func encode(tok *textproc.Tokenizer, samples []dataset.Sample, maxLen int) []Sample {
	seqs := textproc.PadAll(tok.TextsToSequences(texts(samples)), maxLen)
	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = Sample{Seq: seqs[i], Label: float64(s.Label)}
	}
	return out
}
