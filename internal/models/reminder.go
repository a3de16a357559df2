package models

import "time"

// Reminder is a daily medication reminder backed by a calendar event.
// The ID is the event identifier assigned by the calendar service and is
// treated as opaque. Time is a local wall-clock "HH:MM" string; no
// timezone conversion is applied anywhere.
type Reminder struct {
	ID           string `gorm:"primaryKey;size:128"`
	MedicineName string `gorm:"size:256;not null"`
	Time         string `gorm:"size:5;not null"`
	CalendarLink string `gorm:"type:text"`
	CreatedAt    time.Time
}
