package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mahipat62/khata-book/internal/kvstore"
)

// Frequency is how often scheduled backups run.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// intervals are calendar-approximate: a month counts as thirty days.
var intervals = map[Frequency]time.Duration{
	Daily:   24 * time.Hour,
	Weekly:  7 * 24 * time.Hour,
	Monthly: 30 * 24 * time.Hour,
}

// keySchedule is the durable key holding the schedule settings.
const keySchedule = "khata_autobackup"

// ErrBadFrequency is returned when a frequency value is not recognized.
var ErrBadFrequency = errors.New("backup: unknown frequency")

// Settings is the persisted scheduled-backup state. LastRun only advances
// on a successful save, so a failed run is retried on the next check.
type Settings struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"`
	LastRun   time.Time `json:"lastRun"`
}

// ParseFrequency validates a user-supplied frequency string.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if _, ok := intervals[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrBadFrequency, s)
	}

	return f, nil
}

// Due reports whether a scheduled backup should run at now. Disabled
// settings are never due; an enabled schedule that has never run is due
// immediately.
func Due(s Settings, now time.Time) bool {
	if !s.Enabled {
		return false
	}

	interval, ok := intervals[s.Frequency]
	if !ok {
		return false
	}

	if s.LastRun.IsZero() {
		return true
	}

	return now.Sub(s.LastRun) >= interval
}

// Result describes one scheduled-run check.
type Result struct {
	Performed bool
	Err       error
}

// Scheduler persists schedule settings and triggers the engine when a run
// is due.
type Scheduler struct {
	kv     kvstore.Store
	engine *Engine
	logger *slog.Logger

	nowFunc func() time.Time
}

// NewScheduler creates a Scheduler backed by kv.
func NewScheduler(kv kvstore.Store, engine *Engine, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		kv:      kv,
		engine:  engine,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Load returns the persisted settings, or the zero (disabled) settings when
// none have been saved yet.
func (s *Scheduler) Load() (Settings, error) {
	raw, err := s.kv.Get(keySchedule)
	if errors.Is(err, kvstore.ErrNotFound) {
		return Settings{}, nil
	}

	if err != nil {
		return Settings{}, err
	}

	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return Settings{}, fmt.Errorf("backup: decoding schedule settings: %w", err)
	}

	return settings, nil
}

// Save persists settings.
func (s *Scheduler) Save(settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("backup: encoding schedule settings: %w", err)
	}

	return s.kv.Set(keySchedule, string(data))
}

// RunIfDue checks the schedule and, when due, saves payload via the engine.
// LastRun advances only when the save succeeds.
func (s *Scheduler) RunIfDue(ctx context.Context, payload any) (Result, error) {
	settings, err := s.Load()
	if err != nil {
		return Result{}, err
	}

	now := s.nowFunc()
	if !Due(settings, now) {
		return Result{}, nil
	}

	if _, err := s.engine.Save(ctx, payload); err != nil {
		s.logger.Warn("scheduled backup failed", slog.String("error", err.Error()))

		return Result{Performed: true, Err: err}, nil
	}

	settings.LastRun = now
	if err := s.Save(settings); err != nil {
		return Result{Performed: true}, err
	}

	s.logger.Info("scheduled backup completed",
		slog.Time("last_run", now),
		slog.String("frequency", string(settings.Frequency)),
	)

	return Result{Performed: true}, nil
}
