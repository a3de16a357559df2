// Package scheduler runs the recurring reminder check. Each tick compares
// local wall-clock time against every stored reminder and dispatches at
// most one notification per reminder per matching minute.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ellery/rxcare/internal/models"
)

// Permission is the notification permission state, threaded in explicitly
// rather than queried mid-check.
type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

// ParsePermission maps a config string to a Permission. Unknown values
// are treated as undetermined.
func ParsePermission(s string) Permission {
	switch s {
	case "granted":
		return PermissionGranted
	case "denied":
		return PermissionDenied
	default:
		return PermissionUndetermined
	}
}

// DefaultInterval is the reference check cadence: two chances per minute
// against clock drift, without redundant churn.
const DefaultInterval = 30 * time.Second

// ReminderSource yields the current reminder list. Each tick takes a
// fresh snapshot; a deletion mid-tick takes effect on the next tick.
type ReminderSource interface {
	Load() ([]models.Reminder, error)
}

// Dispatch delivers one notification. Failures are swallowed per tick;
// the check loop never halts because a single dispatch failed.
type Dispatch func(subject, body string) error

// Scheduler polls the reminder source on a fixed interval.
type Scheduler struct {
	source     ReminderSource
	dispatch   Dispatch
	permission Permission
	clock      func() time.Time
	interval   time.Duration
	fireLog    *FireLog
}

// Opts holds parameters for creating a Scheduler. Clock and Interval are
// injectable so tests can advance simulated time deterministically.
type Opts struct {
	Source     ReminderSource
	Dispatch   Dispatch
	Permission Permission
	Clock      func() time.Time // defaults to time.Now
	Interval   time.Duration    // defaults to DefaultInterval; must be <=60s
}

// New creates a Scheduler.
func New(opts Opts) (*Scheduler, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("scheduler: source is required")
	}
	if opts.Dispatch == nil {
		return nil, fmt.Errorf("scheduler: dispatch is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if interval > time.Minute {
		return nil, fmt.Errorf("scheduler: interval %v exceeds one minute and would skip reminders", interval)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		source:     opts.Source,
		dispatch:   opts.Dispatch,
		permission: opts.Permission,
		clock:      clock,
		interval:   interval,
		fireLog:    NewFireLog(),
	}, nil
}

// Body is the fixed reminder phrase used for every dispatched notification.
const Body = "It's time to take your medicine. Check your reminders for details."

// Tick runs one check cycle. All reminders are evaluated against the same
// captured minute stamp, the fire-log entry is written atomically with
// the dispatch decision, and dispatch errors are logged and dropped.
func (s *Scheduler) Tick() error {
	now := s.clock()
	minuteStamp := now.Format("15:04")

	reminderList, err := s.source.Load()
	if err != nil {
		return fmt.Errorf("scheduler: tick: %w", err)
	}

	for _, r := range reminderList {
		if r.Time != minuteStamp {
			continue
		}
		if s.permission != PermissionGranted {
			// Check still runs; delivery is silently skipped.
			continue
		}
		if !s.fireLog.MarkIfUnfired(r.ID, minuteStamp) {
			continue
		}
		if err := s.dispatch(r.MedicineName, Body); err != nil {
			log.Printf("scheduler: dispatch %s: %v", r.ID, err)
		}
	}

	s.fireLog.Prune(minuteStamp)
	return nil
}

// Run starts the check loop and blocks until ctx is cancelled. The ticker
// is stopped on return; no timer leaks across restarts.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				log.Printf("scheduler: %v", err)
			}
		}
	}
}

// Interval returns the configured check cadence.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// FireLog exposes the fire log for inspection in tests.
func (s *Scheduler) FireLog() *FireLog {
	return s.fireLog
}
