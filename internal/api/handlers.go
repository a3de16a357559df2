package api

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ellery/rxcare/internal/gateway"
	"github.com/ellery/rxcare/internal/models"
	"github.com/ellery/rxcare/internal/registry"
	"github.com/ellery/rxcare/internal/scheduler"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	deps Deps
}

// fail writes the section-scoped inline error message.
func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// sessionResponse is the wire shape for one session.
type sessionResponse struct {
	ID         string            `json:"id"`
	FileName   string            `json:"file_name"`
	Active     bool              `json:"active"`
	EditedText string            `json:"edited_text,omitempty"`
	Analysis   *gateway.Analysis `json:"analysis,omitempty"`
	Summary    *gateway.Summary  `json:"summary,omitempty"`
}

func (h *handlers) toResponse(s *models.PrescriptionSession, activeID string, full bool) (*sessionResponse, error) {
	resp := &sessionResponse{
		ID:       s.ID,
		FileName: s.FileName,
		Active:   s.ID == activeID,
	}
	if !full {
		return resp, nil
	}
	a, err := registry.Analysis(s)
	if err != nil {
		return nil, err
	}
	sum, err := registry.Summary(s)
	if err != nil {
		return nil, err
	}
	resp.EditedText = s.EditedText
	resp.Analysis = a
	resp.Summary = sum
	return resp, nil
}

// analyze accepts a multipart prescription image, runs the analysis and
// creates a new active session from the result.
func (h *handlers) analyze(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, &uploadError{})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil || len(image) == 0 {
		fail(c, http.StatusBadRequest, &uploadError{})
		return
	}

	analysis, err := h.deps.Gateway.Analyze(c.Request.Context(), image, header.Filename)
	if err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}

	s, err := h.deps.Registry.Create(header.Filename, analysis)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	resp, err := h.toResponse(s, s.ID, true)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handlers) listSessions(c *gin.Context) {
	list, err := h.deps.Registry.List()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	activeID, err := h.deps.Registry.ActiveID()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	out := make([]*sessionResponse, 0, len(list))
	for i := range list {
		resp, err := h.toResponse(&list[i], activeID, false)
		if err != nil {
			fail(c, http.StatusInternalServerError, err)
			return
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out, "active_id": activeID})
}

func (h *handlers) getSession(c *gin.Context) {
	s, err := h.deps.Registry.Get(c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	activeID, _ := h.deps.Registry.ActiveID()
	resp, err := h.toResponse(s, activeID, true)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// activateSession moves the active pointer. A missing id leaves the
// pointer untouched, mirroring the registry's silent no-op.
func (h *handlers) activateSession(c *gin.Context) {
	if err := h.deps.Registry.SetActive(c.Param("id")); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	activeID, _ := h.deps.Registry.ActiveID()
	c.JSON(http.StatusOK, gin.H{"active_id": activeID})
}

func (h *handlers) deleteSession(c *gin.Context) {
	if err := h.deps.Registry.Delete(c.Param("id")); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	activeID, _ := h.deps.Registry.ActiveID()
	c.JSON(http.StatusOK, gin.H{"active_id": activeID})
}

func (h *handlers) setEditedText(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := h.deps.Registry.SetEditedText(c.Param("id"), req.Text); err != nil {
		fail(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// reanalyze re-runs the analysis over the session's edited text. On
// failure the previous canonical analysis stays in place.
func (h *handlers) reanalyze(c *gin.Context) {
	s, err := h.deps.Registry.Get(c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	analysis, err := h.deps.Gateway.ReAnalyze(c.Request.Context(), s.EditedText)
	if err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	if err := h.deps.Registry.UpdateCanonical(s.ID, analysis, nil); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	updated, _ := h.deps.Registry.Get(s.ID)
	activeID, _ := h.deps.Registry.ActiveID()
	resp, err := h.toResponse(updated, activeID, true)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// summarize requests the care summary for the session's medication set
// and stores it as canonical summary data.
func (h *handlers) summarize(c *gin.Context) {
	s, err := h.deps.Registry.Get(c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	analysis, err := registry.Analysis(s)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if analysis == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session has no analysis to summarize"})
		return
	}

	names := make([]string, 0, len(analysis.Medications))
	for _, m := range analysis.Medications {
		names = append(names, m.Name)
	}

	summary, err := h.deps.Gateway.Summarize(c.Request.Context(), names)
	if err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	if err := h.deps.Registry.UpdateCanonical(s.ID, nil, summary); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// view returns the display view of a session in the requested language,
// translated through the overlay cache when it differs from the source.
func (h *handlers) view(c *gin.Context) {
	s, err := h.deps.Registry.Get(c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	lang := c.Query("lang")
	if lang == "" {
		lang = h.deps.Language
	}

	analysis, err := registry.Analysis(s)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	summary, err := registry.Summary(s)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	v := h.deps.Overlay.View(c.Request.Context(), analysis, summary, lang)
	c.JSON(http.StatusOK, gin.H{
		"language":   lang,
		"translated": v.Translated,
		"warning":    v.Warning,
		"analysis":   v.Analysis,
		"summary":    v.Summary,
	})
}

// reminderResponse adds the next fire time to a stored reminder.
type reminderResponse struct {
	ID           string `json:"id"`
	MedicineName string `json:"medicine_name"`
	Time         string `json:"time"`
	CalendarLink string `json:"calendar_link"`
	NextFire     string `json:"next_fire"`
}

func (h *handlers) listReminders(c *gin.Context) {
	list, err := h.deps.Reminders.Load()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	now := time.Now()
	out := make([]reminderResponse, 0, len(list))
	for _, r := range list {
		resp := reminderResponse{
			ID:           r.ID,
			MedicineName: r.MedicineName,
			Time:         r.Time,
			CalendarLink: r.CalendarLink,
		}
		if next := scheduler.NextFire(r.Time, now); !next.IsZero() {
			resp.NextFire = next.Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{"reminders": out})
}

// createReminder asks the calendar service for the recurring event first;
// the local entry is appended only after the service confirms.
func (h *handlers) createReminder(c *gin.Context) {
	var req struct {
		MedicineName string `json:"medicine_name"`
		Instruction  string `json:"instruction"`
		Time         string `json:"time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	if h.deps.Permission == scheduler.PermissionDenied {
		fail(c, http.StatusForbidden, &gateway.ReminderCreationError{Msg: "notification permission denied"})
		return
	}
	if h.deps.Calendar == nil {
		fail(c, http.StatusServiceUnavailable, &gateway.ReminderCreationError{Msg: "calendar not authenticated; run rx auth"})
		return
	}

	created, err := h.deps.Calendar.CreateReminder(c.Request.Context(), gateway.ReminderRequest{
		Name:        req.MedicineName,
		Instruction: req.Instruction,
		Time:        req.Time,
	})
	if err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}

	r := models.Reminder{
		ID:           created.EventID,
		MedicineName: req.MedicineName,
		Time:         req.Time,
		CalendarLink: created.CalendarLink,
	}
	if err := h.deps.Reminders.Append(r); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":            r.ID,
		"medicine_name": r.MedicineName,
		"time":          r.Time,
		"calendar_link": r.CalendarLink,
	})
}

// deleteReminder removes the local entry only. The recurring calendar
// event is left untouched, and the response says so.
func (h *handlers) deleteReminder(c *gin.Context) {
	if err := h.deps.Reminders.Remove(c.Param("id")); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"note": "reminder removed locally; the recurring calendar event still exists",
	})
}

// chat grounds the assistant exchange in the active session's analysis
// and records both turns of the transcript.
func (h *handlers) chat(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	active, err := h.deps.Registry.Active()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if active == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no active session to chat about"})
		return
	}

	analysis, err := registry.Analysis(active)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	history, err := h.deps.Registry.ChatHistory(active.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	history = append(history, gateway.ChatTurn{Role: "user", Content: req.Message})

	reply, err := h.deps.Gateway.Chat(c.Request.Context(), history, analysis)
	if err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}

	// The reply already cost a gateway call; a failed transcript write is
	// logged rather than turned into a client-facing error.
	if err := h.deps.Registry.AppendChat(active.ID, "user", req.Message); err != nil {
		log.Printf("api: chat transcript %s: %v", active.ID, err)
	}
	if err := h.deps.Registry.AppendChat(active.ID, "assistant", reply); err != nil {
		log.Printf("api: chat transcript %s: %v", active.ID, err)
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

func (h *handlers) pharmacies(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return
	}

	found, err := h.deps.Gateway.FindPharmacies(c.Request.Context(), lat, lng)
	if err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pharmacies": found})
}

// uploadError is the no-file-selected failure.
type uploadError struct{}

func (e *uploadError) Error() string { return "no prescription file selected" }
