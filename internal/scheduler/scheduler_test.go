package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ellery/rxcare/internal/models"
)

// sliceSource serves a fixed reminder list.
type sliceSource struct {
	mu        sync.Mutex
	reminders []models.Reminder
	err       error
}

func (s *sliceSource) Load() ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out, nil
}

func (s *sliceSource) set(reminders []models.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = reminders
}

// recorder captures dispatched notifications.
type recorder struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (r *recorder) dispatch(subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects)
}

// fixedClock returns a controllable clock function.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func at(hhmm string) time.Time {
	t, _ := time.Parse("2006-01-02 15:04", "2026-03-02 "+hhmm)
	return t
}

func newTestScheduler(t *testing.T, src ReminderSource, rec *recorder, clock func() time.Time, perm Permission) *Scheduler {
	t.Helper()
	s, err := New(Opts{
		Source:     src,
		Dispatch:   rec.dispatch,
		Permission: perm,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	rec := &recorder{}
	if _, err := New(Opts{Dispatch: rec.dispatch}); err == nil {
		t.Error("expected error for missing source")
	}
	if _, err := New(Opts{Source: &sliceSource{}}); err == nil {
		t.Error("expected error for missing dispatch")
	}
	if _, err := New(Opts{Source: &sliceSource{}, Dispatch: rec.dispatch, Interval: 2 * time.Minute}); err == nil {
		t.Error("expected error for interval above one minute")
	}
}

func TestNew_Defaults(t *testing.T) {
	rec := &recorder{}
	s, err := New(Opts{Source: &sliceSource{}, Dispatch: rec.dispatch})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Interval() != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.Interval(), DefaultInterval)
	}
}

func TestTick_DispatchesOncePerMinute(t *testing.T) {
	src := &sliceSource{reminders: []models.Reminder{
		{ID: "e1", MedicineName: "Metformin", Time: "09:00"},
	}}
	rec := &recorder{}
	clock := &fixedClock{now: at("09:00")}
	s := newTestScheduler(t, src, rec, clock.Now, PermissionGranted)

	if err := s.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("dispatched %d times, want 1", rec.count())
	}
	if rec.subjects[0] != "Metformin" {
		t.Errorf("subject = %q, want the medicine name", rec.subjects[0])
	}

	// Second tick inside the same minute must not re-fire.
	clock.Advance(30 * time.Second)
	if err := s.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("dispatched %d times after second tick, want still 1", rec.count())
	}
}

func TestTick_NonMatchingMinuteDispatchesNothing(t *testing.T) {
	src := &sliceSource{reminders: []models.Reminder{
		{ID: "e1", MedicineName: "Metformin", Time: "09:00"},
	}}
	rec := &recorder{}
	clock := &fixedClock{now: at("09:01")}
	s := newTestScheduler(t, src, rec, clock.Now, PermissionGranted)

	if err := s.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("dispatched %d times at a non-matching minute, want 0", rec.count())
	}
}

func TestTick_AtMostOncePerMinuteForAnyTickCount(t *testing.T) {
	src := &sliceSource{reminders: []models.Reminder{
		{ID: "e1", MedicineName: "Metformin", Time: "09:00"},
		{ID: "e2", MedicineName: "Aspirin", Time: "09:00"},
	}}
	rec := &recorder{}
	clock := &fixedClock{now: at("09:00")}
	s := newTestScheduler(t, src, rec, clock.Now, PermissionGranted)

	// Many ticks landing in the same minute.
	for i := 0; i < 10; i++ {
		if err := s.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		clock.Advance(5 * time.Second)
	}
	if rec.count() != 2 {
		t.Errorf("dispatched %d times, want exactly one per reminder (2)", rec.count())
	}
}

func TestTick_FiresAgainNextDay(t *testing.T) {
	src := &sliceSource{reminders: []models.Reminder{
		{ID: "e1", MedicineName: "Metformin", Time: "09:00"},
	}}
	rec := &recorder{}
	clock := &fixedClock{now: at("09:00")}
	s := newTestScheduler(t, src, rec, clock.Now, PermissionGranted)

	s.Tick()
	clock.Advance(24 * time.Hour)
	s.Tick()
	if rec.count() != 2 {
		t.Errorf("dispatched %d times across two days, want 2", rec.count())
	}
}

func TestTick_PermissionGatesDispatch(t *testing.T) {
	for _, perm := range []Permission{PermissionDenied, PermissionUndetermined} {
		src := &sliceSource{reminders: []models.Reminder{
			{ID: "e1", MedicineName: "Metformin", Time: "09:00"},
		}}
		rec := &recorder{}
		clock := &fixedClock{now: at("09:00")}
		s := newTestScheduler(t, src, rec, clock.Now, perm)

		if err := s.Tick(); err != nil {
			t.Fatalf("tick must not error without permission: %v", err)
		}
		if rec.count() != 0 {
			t.Errorf("permission %v: dispatched %d times, want 0", perm, rec.count())
		}
	}
}

func TestTick_DispatchErrorIsSwallowed(t *testing.T) {
	src := &sliceSource{reminders: []models.Reminder{
		{ID: "e1", MedicineName: "Metformin", Time: "09:00"},
	}}
	rec := &recorder{err: fmt.Errorf("sink unavailable")}
	clock := &fixedClock{now: at("09:00")}
	s := newTestScheduler(t, src, rec, clock.Now, PermissionGranted)

	if err := s.Tick(); err != nil {
		t.Fatalf("tick must swallow dispatch errors, got %v", err)
	}
}

func TestTick_DeletionTakesEffectNextTick(t *testing.T) {
	src := &sliceSource{reminders: []models.Reminder{
		{ID: "e1", MedicineName: "Metformin", Time: "09:00"},
	}}
	rec := &recorder{}
	clock := &fixedClock{now: at("09:00")}
	s := newTestScheduler(t, src, rec, clock.Now, PermissionGranted)

	s.Tick()
	src.set(nil)
	clock.Advance(24 * time.Hour)
	s.Tick()
	if rec.count() != 1 {
		t.Errorf("dispatched %d times, want 1 after deletion", rec.count())
	}
}

func TestTick_PrunesPastMinutes(t *testing.T) {
	src := &sliceSource{reminders: []models.Reminder{
		{ID: "e1", MedicineName: "Metformin", Time: "09:00"},
	}}
	rec := &recorder{}
	clock := &fixedClock{now: at("09:00")}
	s := newTestScheduler(t, src, rec, clock.Now, PermissionGranted)

	s.Tick()
	if s.FireLog().Len() != 1 {
		t.Fatalf("fire log len = %d, want 1", s.FireLog().Len())
	}
	clock.Advance(2 * time.Minute)
	s.Tick()
	if s.FireLog().Len() != 0 {
		t.Errorf("fire log len = %d after minute passed, want 0", s.FireLog().Len())
	}
}

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in   string
		want Permission
	}{
		{"granted", PermissionGranted},
		{"denied", PermissionDenied},
		{"undetermined", PermissionUndetermined},
		{"", PermissionUndetermined},
		{"bogus", PermissionUndetermined},
	}
	for _, tt := range tests {
		if got := ParsePermission(tt.in); got != tt.want {
			t.Errorf("ParsePermission(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
