package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fake-news-detector/model"
)

// Storage persists training runs and bot settings.
type Storage struct {
	db *sql.DB
}

// New returns a new Storage instance.
func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Open opens the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Init creates database tables if they do not exist.
func (s *Storage) Init(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS training_runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NULL,
			status TEXT NOT NULL,
			train_samples INTEGER NOT NULL DEFAULT 0,
			test_samples INTEGER NOT NULL DEFAULT 0,
			fake_samples INTEGER NOT NULL DEFAULT 0,
			real_samples INTEGER NOT NULL DEFAULT 0,
			vocabulary_size INTEGER NOT NULL DEFAULT 0,
			date_from DATETIME NULL,
			date_to DATETIME NULL,
			best_epoch INTEGER NOT NULL DEFAULT 0,
			val_loss REAL NOT NULL DEFAULT 0,
			val_accuracy REAL NOT NULL DEFAULT 0,
			stopped_early INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_training_runs_started_at ON training_runs(started_at);`,
		`CREATE TABLE IF NOT EXISTS training_epochs (
			run_id TEXT NOT NULL,
			epoch INTEGER NOT NULL,
			loss REAL NOT NULL,
			accuracy REAL NOT NULL,
			val_loss REAL NOT NULL,
			val_accuracy REAL NOT NULL,
			checkpointed INTEGER NOT NULL,
			PRIMARY KEY (run_id, epoch),
			FOREIGN KEY(run_id) REFERENCES training_runs(id)
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *Storage) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.ExecContext(ctx, query, args...)
}

// CreateRun inserts a new running training run and returns it with its ID.
func (s *Storage) CreateRun(ctx context.Context, run model.TrainingRun) (model.TrainingRun, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()
	run.Status = model.RunRunning

	_, err := s.exec(ctx, sq.Insert("training_runs").
		Columns("id", "started_at", "status").
		Values(run.ID, run.StartedAt, run.Status))
	if err != nil {
		return model.TrainingRun{}, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// RecordEpoch stores the metrics of one epoch.
func (s *Storage) RecordEpoch(ctx context.Context, runID string, m model.EpochMetrics) error {
	_, err := s.exec(ctx, sq.Insert("training_epochs").
		Columns("run_id", "epoch", "loss", "accuracy", "val_loss", "val_accuracy", "checkpointed").
		Values(runID, m.Epoch, m.Loss, m.Accuracy, m.ValLoss, m.ValAccuracy, m.Checkpointed).
		Suffix(`ON CONFLICT(run_id, epoch) DO UPDATE SET
			loss = excluded.loss,
			accuracy = excluded.accuracy,
			val_loss = excluded.val_loss,
			val_accuracy = excluded.val_accuracy,
			checkpointed = excluded.checkpointed`))
	if err != nil {
		return fmt.Errorf("record epoch: %w", err)
	}
	return nil
}

// FinishRun writes the final state of run.
func (s *Storage) FinishRun(ctx context.Context, run model.TrainingRun) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	res, err := s.exec(ctx, sq.Update("training_runs").SetMap(map[string]any{
		"finished_at":     finished,
		"status":          run.Status,
		"train_samples":   run.TrainSamples,
		"test_samples":    run.TestSamples,
		"fake_samples":    run.FakeSamples,
		"real_samples":    run.RealSamples,
		"vocabulary_size": run.VocabularySize,
		"date_from":       nullTime(run.DateFrom),
		"date_to":         nullTime(run.DateTo),
		"best_epoch":      run.BestEpoch,
		"val_loss":        run.ValLoss,
		"val_accuracy":    run.ValAccuracy,
		"stopped_early":   run.StoppedEarly,
	}).Where(sq.Eq{"id": run.ID}))
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", run.ID)
	}
	return nil
}

var runColumns = []string{
	"id", "started_at", "finished_at", "status", "train_samples", "test_samples",
	"fake_samples", "real_samples", "vocabulary_size", "date_from", "date_to",
	"best_epoch", "val_loss", "val_accuracy", "stopped_early",
}

// LatestRun returns the most recently started run with its epochs.
func (s *Storage) LatestRun(ctx context.Context) (model.TrainingRun, bool, error) {
	return s.latestRun(ctx, nil)
}

// LatestCompletedRun returns the most recently started run that completed.
func (s *Storage) LatestCompletedRun(ctx context.Context) (model.TrainingRun, bool, error) {
	return s.latestRun(ctx, sq.Eq{"status": model.RunCompleted})
}

func (s *Storage) latestRun(ctx context.Context, where sq.Sqlizer) (model.TrainingRun, bool, error) {
	b := sq.Select(runColumns...).From("training_runs")
	if where != nil {
		b = b.Where(where)
	}
	query, args, err := b.
		OrderBy("started_at DESC", "rowid DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return model.TrainingRun{}, false, fmt.Errorf("build query: %w", err)
	}

	var run model.TrainingRun
	var finished, from, to sql.NullTime
	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&run.ID, &run.StartedAt, &finished, &run.Status, &run.TrainSamples, &run.TestSamples,
		&run.FakeSamples, &run.RealSamples, &run.VocabularySize, &from, &to,
		&run.BestEpoch, &run.ValLoss, &run.ValAccuracy, &run.StoppedEarly); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TrainingRun{}, false, nil
		}
		return model.TrainingRun{}, false, fmt.Errorf("latest run: %w", err)
	}
	run.FinishedAt = timePtr(finished)
	run.DateFrom = timePtr(from)
	run.DateTo = timePtr(to)

	epochs, err := s.ListEpochs(ctx, run.ID)
	if err != nil {
		return model.TrainingRun{}, false, err
	}
	run.Epochs = epochs
	return run, true, nil
}

// ListEpochs returns the epochs of a run in order.
func (s *Storage) ListEpochs(ctx context.Context, runID string) ([]model.EpochMetrics, error) {
	query, args, err := sq.Select("epoch", "loss", "accuracy", "val_loss", "val_accuracy", "checkpointed").
		From("training_epochs").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("epoch").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list epochs: %w", err)
	}
	defer rows.Close()

	var epochs []model.EpochMetrics
	for rows.Next() {
		var m model.EpochMetrics
		if err := rows.Scan(&m.Epoch, &m.Loss, &m.Accuracy, &m.ValLoss, &m.ValAccuracy, &m.Checkpointed); err != nil {
			return nil, fmt.Errorf("scan epoch: %w", err)
		}
		epochs = append(epochs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows epochs: %w", err)
	}
	return epochs, nil
}

// SetSetting sets a key-value pair in settings.
func (s *Storage) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, sq.Insert("settings").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value"))
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// GetSetting retrieves a setting value by key.
func (s *Storage) GetSetting(ctx context.Context, key string) (string, bool, error) {
	query, args, err := sq.Select("value").From("settings").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}
	var value string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting: %w", err)
	}
	return value, true, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
