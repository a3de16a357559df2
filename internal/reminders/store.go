// Package reminders owns the durable reminder list. Every mutation is
// persisted synchronously before returning; the table is the single
// source of truth that survives restarts.
package reminders

import (
	"fmt"
	"time"

	"github.com/ellery/rxcare/internal/models"
	"gorm.io/gorm"
)

// Store persists reminders through GORM.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Load returns all reminders in creation order. An empty table yields an
// empty slice, never an error.
func (s *Store) Load() ([]models.Reminder, error) {
	var out []models.Reminder
	if err := s.db.Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("reminders: load: %w", err)
	}
	return out, nil
}

// Append adds one reminder. The id comes from the calendar service and
// must not already exist locally.
func (s *Store) Append(r models.Reminder) error {
	if r.ID == "" {
		return fmt.Errorf("reminders: append: id is required")
	}
	if r.MedicineName == "" {
		return fmt.Errorf("reminders: append: medicine name is required")
	}
	if err := ValidateTime(r.Time); err != nil {
		return fmt.Errorf("reminders: append: %w", err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if err := s.db.Create(&r).Error; err != nil {
		return fmt.Errorf("reminders: append %s: %w", r.ID, err)
	}
	return nil
}

// Remove deletes a reminder by id. Removing a missing id is a no-op.
// This never touches the remote calendar event; callers surface that the
// recurring event still exists.
func (s *Store) Remove(id string) error {
	if err := s.db.Delete(&models.Reminder{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("reminders: remove %s: %w", id, err)
	}
	return nil
}

// ValidateTime checks a minute-resolution 24-hour "HH:MM" string.
func ValidateTime(hhmm string) error {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return fmt.Errorf("time %q must be HH:MM", hhmm)
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return fmt.Errorf("time %q must be HH:MM: %w", hhmm, err)
	}
	if t.Format("15:04") != hhmm {
		return fmt.Errorf("time %q must be zero-padded HH:MM", hhmm)
	}
	return nil
}
