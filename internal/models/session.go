package models

import "time"

// PrescriptionSession is one uploaded prescription and its derived state.
// Canonical analysis and summary are stored as JSON text columns; they hold
// the source-language (English) data as returned by the analysis gateway
// and are only ever replaced wholesale.
type PrescriptionSession struct {
	ID       string `gorm:"primaryKey;size:32"`
	Seq      uint   `gorm:"autoIncrement;uniqueIndex"`
	FileName string `gorm:"size:256;not null"`

	// JSON-encoded gateway.Analysis, empty until the first analysis lands.
	CanonicalAnalysis string `gorm:"type:text"`
	// JSON-encoded gateway.Summary, empty until requested.
	CanonicalSummary string `gorm:"type:text"`

	// EditedText is regenerated from the canonical analysis on every
	// replacement; manual edits survive until the next replacement.
	EditedText string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time

	ChatMessages []ChatMessage `gorm:"foreignKey:SessionID"`
}

// ChatMessage stores one turn of the assistant conversation for a session.
type ChatMessage struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"size:32;not null;index"`
	Sequence  int    `gorm:"not null"`
	Role      string `gorm:"size:16;not null"` // "user" or "assistant"
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// AppState is the single-row table holding instance-level mutable state,
// currently just the active session pointer.
type AppState struct {
	ID              uint   `gorm:"primaryKey"`
	ActiveSessionID string `gorm:"size:32"`
}
