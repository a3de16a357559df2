// Package registry tracks the ordered set of prescription sessions and
// the active session pointer. Sessions hold canonical (source-language)
// analysis and summary data; display translation lives in the overlay
// cache and never writes back here.
package registry

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ellery/rxcare/internal/gateway"
	"github.com/ellery/rxcare/internal/models"
	"gorm.io/gorm"
)

// Registry provides the session operation set over GORM. All mutations go
// through these methods; nothing else writes the session tables.
type Registry struct {
	db *gorm.DB
}

// New creates a Registry.
func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// newID returns an opaque 32-character session identifier.
func newID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Create appends a new session with the given canonical analysis, derives
// its edited text, and makes it the active session.
func (r *Registry) Create(fileName string, analysis *gateway.Analysis) (*models.PrescriptionSession, error) {
	if fileName == "" {
		return nil, fmt.Errorf("registry: create: file name is required")
	}

	s := models.PrescriptionSession{
		ID:       newID(),
		FileName: fileName,
	}
	if analysis != nil {
		data, err := json.Marshal(analysis)
		if err != nil {
			return nil, fmt.Errorf("registry: create: marshal analysis: %w", err)
		}
		s.CanonicalAnalysis = string(data)
		s.EditedText = EditedTextFromAnalysis(analysis)
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&s).Error; err != nil {
			return err
		}
		return setActiveTx(tx, s.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("registry: create: %w", err)
	}
	return &s, nil
}

// List returns all sessions in insertion order.
func (r *Registry) List() ([]models.PrescriptionSession, error) {
	var out []models.PrescriptionSession
	if err := r.db.Order("seq ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	return out, nil
}

// Get returns one session, or nil when the id does not exist.
func (r *Registry) Get(id string) (*models.PrescriptionSession, error) {
	var s models.PrescriptionSession
	err := r.db.First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get %s: %w", id, err)
	}
	return &s, nil
}

// ActiveID returns the active session id, or "" when the registry is empty.
func (r *Registry) ActiveID() (string, error) {
	var state models.AppState
	err := r.db.First(&state, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("registry: active id: %w", err)
	}
	return state.ActiveSessionID, nil
}

// Active returns the active session, or nil when none is set.
func (r *Registry) Active() (*models.PrescriptionSession, error) {
	id, err := r.ActiveID()
	if err != nil || id == "" {
		return nil, err
	}
	return r.Get(id)
}

// SetActive updates the active pointer. A missing id is a silent no-op.
func (r *Registry) SetActive(id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	if err := setActiveTx(r.db, id); err != nil {
		return fmt.Errorf("registry: set active %s: %w", id, err)
	}
	return nil
}

// setActiveTx upserts the single AppState row with the new active id.
func setActiveTx(tx *gorm.DB, id string) error {
	state := models.AppState{ID: 1}
	if err := tx.Where("id = ?", 1).FirstOrCreate(&state).Error; err != nil {
		return err
	}
	return tx.Model(&models.AppState{}).Where("id = ?", 1).
		Update("active_session_id", id).Error
}

// UpdateCanonical replaces a session's canonical analysis (and optionally
// summary) wholesale and regenerates the edited text. Translation cache
// entries keyed to the prior content become unreachable because the
// fingerprint changes with the content.
func (r *Registry) UpdateCanonical(id string, analysis *gateway.Analysis, summary *gateway.Summary) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("registry: update canonical: session not found: %s", id)
	}

	updates := map[string]interface{}{}
	if analysis != nil {
		data, err := json.Marshal(analysis)
		if err != nil {
			return fmt.Errorf("registry: update canonical: marshal analysis: %w", err)
		}
		updates["canonical_analysis"] = string(data)
		updates["edited_text"] = EditedTextFromAnalysis(analysis)
	}
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("registry: update canonical: marshal summary: %w", err)
		}
		updates["canonical_summary"] = string(data)
	}
	if len(updates) == 0 {
		return nil
	}

	if err := r.db.Model(&models.PrescriptionSession{}).Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("registry: update canonical %s: %w", id, err)
	}
	return nil
}

// SetEditedText stores a manual transcript edit. The value is retained
// until the next canonical replacement regenerates it.
func (r *Registry) SetEditedText(id, text string) error {
	result := r.db.Model(&models.PrescriptionSession{}).Where("id = ?", id).
		Update("edited_text", text)
	if result.Error != nil {
		return fmt.Errorf("registry: set edited text %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("registry: set edited text: session not found: %s", id)
	}
	return nil
}

// Delete removes a session and its chat history. If it was active, the
// next remaining session in insertion order becomes active, or the
// pointer is cleared when none remain.
func (r *Registry) Delete(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var s models.PrescriptionSession
		err := tx.First(&s, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.ChatMessage{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.PrescriptionSession{}, "id = ?", id).Error; err != nil {
			return err
		}

		var state models.AppState
		if err := tx.First(&state, "id = ?", 1).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if state.ActiveSessionID != id {
			return nil
		}

		var next models.PrescriptionSession
		err = tx.Order("seq ASC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return setActiveTx(tx, "")
		}
		if err != nil {
			return err
		}
		return setActiveTx(tx, next.ID)
	})
	if err != nil {
		return fmt.Errorf("registry: delete %s: %w", id, err)
	}
	return nil
}

// AppendChat stores one conversation turn for a session.
func (r *Registry) AppendChat(sessionID, role, content string) error {
	var count int64
	if err := r.db.Model(&models.ChatMessage{}).Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("registry: append chat: %w", err)
	}
	msg := models.ChatMessage{
		SessionID: sessionID,
		Sequence:  int(count) + 1,
		Role:      role,
		Content:   content,
	}
	if err := r.db.Create(&msg).Error; err != nil {
		return fmt.Errorf("registry: append chat: %w", err)
	}
	return nil
}

// ChatHistory returns a session's conversation in order.
func (r *Registry) ChatHistory(sessionID string) ([]gateway.ChatTurn, error) {
	var msgs []models.ChatMessage
	if err := r.db.Where("session_id = ?", sessionID).
		Order("sequence ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("registry: chat history %s: %w", sessionID, err)
	}
	out := make([]gateway.ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, gateway.ChatTurn{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// Analysis decodes a session's canonical analysis, or nil when absent.
func Analysis(s *models.PrescriptionSession) (*gateway.Analysis, error) {
	if s == nil || s.CanonicalAnalysis == "" {
		return nil, nil
	}
	var a gateway.Analysis
	if err := json.Unmarshal([]byte(s.CanonicalAnalysis), &a); err != nil {
		return nil, fmt.Errorf("registry: decode analysis for %s: %w", s.ID, err)
	}
	return &a, nil
}

// Summary decodes a session's canonical summary, or nil when absent.
func Summary(s *models.PrescriptionSession) (*gateway.Summary, error) {
	if s == nil || s.CanonicalSummary == "" {
		return nil, nil
	}
	var sum gateway.Summary
	if err := json.Unmarshal([]byte(s.CanonicalSummary), &sum); err != nil {
		return nil, fmt.Errorf("registry: decode summary for %s: %w", s.ID, err)
	}
	return &sum, nil
}

// EditedTextFromAnalysis derives the user-correctable transcript from a
// canonical analysis: one "name - dosage - instruction" line per
// medication. Deterministic so a round trip through re-analysis preserves
// the medication set.
func EditedTextFromAnalysis(a *gateway.Analysis) string {
	if a == nil {
		return ""
	}
	lines := make([]string, 0, len(a.Medications))
	for _, m := range a.Medications {
		lines = append(lines, fmt.Sprintf("%s - %s - %s", m.Name, m.Dosage, m.Instruction))
	}
	return strings.Join(lines, "\n")
}
