package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ellery/rxcare/internal/config"
	"golang.org/x/oauth2"
)

// Calendar creates and deletes recurring reminder events on the external
// calendar service. Requests are authenticated with an OAuth2 token loaded
// from the configured token file; refreshed tokens are written back so the
// next process start can reuse them.
type Calendar struct {
	baseURL   string
	http      *http.Client
	tokenPath string
	source    oauth2.TokenSource
}

// NewCalendar builds a Calendar from configuration. It fails when the
// token file is missing or unreadable; run "rx auth" first.
func NewCalendar(ctx context.Context, cfg config.CalendarConfig) (*Calendar, error) {
	tok, err := LoadToken(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("gateway: calendar: %w", err)
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
	source := conf.TokenSource(ctx, tok)

	return &Calendar{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      oauth2.NewClient(ctx, source),
		tokenPath: cfg.TokenPath,
		source:    source,
	}, nil
}

// NewCalendarWithHTTP creates a Calendar with an explicit http.Client,
// used by tests.
func NewCalendarWithHTTP(baseURL string, hc *http.Client) *Calendar {
	return &Calendar{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// LoadToken reads an OAuth2 token JSON file.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token %s: %w", path, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes an OAuth2 token JSON file with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token %s: %w", path, err)
	}
	return nil
}

// CreateReminder asks the calendar service for a daily recurring event and
// returns its id and link. On failure no local reminder may be created.
func (c *Calendar) CreateReminder(ctx context.Context, r ReminderRequest) (*CreatedReminder, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, &ReminderCreationError{Msg: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(data))
	if err != nil {
		return nil, &ReminderCreationError{Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ReminderCreationError{Msg: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ReminderCreationError{Msg: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var svcErr serviceError
		if json.Unmarshal(body, &svcErr) == nil && svcErr.Detail != "" {
			return nil, &ReminderCreationError{Msg: svcErr.Detail}
		}
		return nil, &ReminderCreationError{Msg: fmt.Sprintf("calendar returned status %d", resp.StatusCode)}
	}

	var created CreatedReminder
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, &ReminderCreationError{Msg: err.Error()}
	}
	if created.EventID == "" {
		return nil, &ReminderCreationError{Msg: "calendar response missing event_id"}
	}

	c.persistRefreshedToken()
	return &created, nil
}

// DeleteEvent removes a calendar event. Local reminder removal never calls
// this; it exists for explicit full-delete flows.
func (c *Calendar) DeleteEvent(ctx context.Context, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/events/"+url.PathEscape(eventID), nil)
	if err != nil {
		return fmt.Errorf("gateway: calendar: delete %s: %w", eventID, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: calendar: delete %s: %w", eventID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway: calendar: delete %s: status %d", eventID, resp.StatusCode)
	}
	return nil
}

// persistRefreshedToken re-saves the token file when the source handed out
// a refreshed token. Best-effort: a failed save only costs a re-auth later.
func (c *Calendar) persistRefreshedToken() {
	if c.source == nil || c.tokenPath == "" {
		return
	}
	tok, err := c.source.Token()
	if err != nil {
		return
	}
	_ = SaveToken(c.tokenPath, tok)
}
