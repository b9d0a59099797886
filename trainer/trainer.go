// Package trainer fits the classifier with mini-batch Adam, checkpointing
// and early stopping.
package trainer

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"

	"fake-news-detector/cnn"
	"fake-news-detector/model"
)

// Sample is a padded sequence with its label (1 fake, 0 real).
type Sample struct {
	Seq   []int
	Label float64
}

// Options control the training loop.
type Options struct {
	Epochs         int
	BatchSize      int
	Patience       int
	LearningRate   float64
	Workers        int
	Seed           uint64
	CheckpointPath string
}

// Result summarises a Fit call.
type Result struct {
	Epochs       []model.EpochMetrics
	BestEpoch    int
	StoppedEarly bool
}

// Trainer runs the optimisation loop over one network.
type Trainer struct {
	Net     *cnn.Network
	Options Options
	Logger  *slog.Logger
	// OnEpoch is called after every epoch with its metrics.
	OnEpoch func(ctx context.Context, m model.EpochMetrics)
}

// DefaultWorkers is the number of physical cores, or logical CPUs when the
// core count is unknown.
func DefaultWorkers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func (t *Trainer) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

func (t *Trainer) workers() int {
	if t.Options.Workers > 0 {
		return t.Options.Workers
	}
	return DefaultWorkers()
}

type worker struct {
	ws    *cnn.Workspace
	grads *cnn.Gradients
	rng   *rand.Rand
	loss  float64
	hits  int
}

// Fit trains on train, validating on val after each epoch. The weights of
// the epoch with the lowest validation loss are restored before returning.
func (t *Trainer) Fit(ctx context.Context, train, val []Sample) (Result, error) {
	logger := t.logger()
	opts := t.Options
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	net := t.Net
	opt := cnn.NewAdam(opts.LearningRate)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))

	workers := make([]*worker, t.workers())
	for i := range workers {
		workers[i] = &worker{
			ws:    net.NewWorkspace(),
			grads: net.NewGradients(),
			rng:   rand.New(rand.NewPCG(opts.Seed+uint64(i)+2, uint64(i))),
		}
	}
	logger.Info("training_start",
		slog.Int("train_samples", len(train)),
		slog.Int("val_samples", len(val)),
		slog.Int("epochs", opts.Epochs),
		slog.Int("batch_size", opts.BatchSize),
		slog.Int("workers", len(workers)),
		slog.String("cpu", cpuid.CPU.BrandName),
	)

	var (
		res       Result
		bestAcc   = math.Inf(-1)
		bestLoss  = math.Inf(1)
		best      *cnn.Network
		sinceBest int
	)
	order := make([]int, len(train))
	for i := range order {
		order[i] = i
	}

	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var lossSum float64
		var hits int
		for start := 0; start < len(order); start += opts.BatchSize {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			end := min(start+opts.BatchSize, len(order))
			l, h := t.step(opt, workers, train, order[start:end])
			lossSum += l
			hits += h
		}

		valLoss, valAcc := Evaluate(net, val, len(workers))
		m := model.EpochMetrics{
			Epoch:       epoch,
			Loss:        lossSum / float64(max(len(train), 1)),
			Accuracy:    float64(hits) / float64(max(len(train), 1)),
			ValLoss:     valLoss,
			ValAccuracy: valAcc,
		}

		if valAcc > bestAcc {
			bestAcc = valAcc
			if opts.CheckpointPath != "" {
				if err := net.Save(opts.CheckpointPath); err != nil {
					return res, err
				}
				m.Checkpointed = true
				logger.Info("checkpoint_saved", slog.Int("epoch", epoch), slog.Float64("val_accuracy", valAcc), slog.String("path", opts.CheckpointPath))
			}
		}

		if valLoss < bestLoss {
			bestLoss = valLoss
			res.BestEpoch = epoch
			sinceBest = 0
			if best == nil {
				best = net.Clone()
			} else {
				best.CopyFrom(net)
			}
		} else {
			sinceBest++
		}

		res.Epochs = append(res.Epochs, m)
		logger.Info("epoch_complete",
			slog.Int("epoch", epoch),
			slog.Float64("loss", m.Loss),
			slog.Float64("accuracy", m.Accuracy),
			slog.Float64("val_loss", m.ValLoss),
			slog.Float64("val_accuracy", m.ValAccuracy),
		)
		if t.OnEpoch != nil {
			t.OnEpoch(ctx, m)
		}

		if opts.Patience > 0 && sinceBest >= opts.Patience {
			res.StoppedEarly = true
			logger.Info("early_stopping", slog.Int("epoch", epoch), slog.Int("best_epoch", res.BestEpoch))
			break
		}
	}

	if best != nil {
		net.CopyFrom(best)
		logger.Info("best_weights_restored", slog.Int("epoch", res.BestEpoch))
	}
	return res, nil
}

// step computes the mean gradient of one batch in parallel and applies it.
func (t *Trainer) step(opt *cnn.Adam, workers []*worker, data []Sample, batch []int) (float64, int) {
	net := t.Net
	chunk := (len(batch) + len(workers) - 1) / len(workers)
	n := (len(batch) + chunk - 1) / chunk

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		lo := i * chunk
		hi := min(lo+chunk, len(batch))
		w := workers[i]
		wg.Add(1)
		go func(part []int) {
			defer wg.Done()
			w.grads.Reset()
			w.loss, w.hits = 0, 0
			for _, idx := range part {
				s := data[idx]
				p := net.Forward(w.ws, s.Seq, w.rng)
				w.loss += cnn.Loss(p, s.Label)
				if (p > 0.5) == (s.Label > 0.5) {
					w.hits++
				}
				net.Backward(w.ws, s.Seq, p, s.Label, w.grads)
			}
		}(batch[lo:hi])
	}
	wg.Wait()

	total := workers[0].grads
	loss, hits := workers[0].loss, workers[0].hits
	for _, w := range workers[1:n] {
		total.Add(w.grads)
		loss += w.loss
		hits += w.hits
	}
	total.Scale(1 / float64(len(batch)))
	opt.Update(net.Params(), total)
	return loss, hits
}

// Evaluate returns the mean loss and accuracy of net on samples without
// dropout, using up to workers goroutines.
func Evaluate(net *cnn.Network, samples []Sample, workers int) (loss, accuracy float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	workers = min(workers, len(samples))
	chunk := (len(samples) + workers - 1) / workers

	losses := make([]float64, workers)
	hits := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		lo := i * chunk
		hi := min(lo+chunk, len(samples))
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(i int, part []Sample) {
			defer wg.Done()
			ws := net.NewWorkspace()
			for _, s := range part {
				p := net.Forward(ws, s.Seq, nil)
				losses[i] += cnn.Loss(p, s.Label)
				if (p > 0.5) == (s.Label > 0.5) {
					hits[i]++
				}
			}
		}(i, samples[lo:hi])
	}
	wg.Wait()

	var totalHits int
	for i := range losses {
		loss += losses[i]
		totalHits += hits[i]
	}
	n := float64(len(samples))
	return loss / n, float64(totalHits) / n
}
