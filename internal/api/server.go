// Package api exposes the rxcare core over HTTP. Every gateway failure is
// converted to an inline JSON error scoped to the section that triggered
// it; nothing propagates as an unhandled fault.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ellery/rxcare/internal/gateway"
	"github.com/ellery/rxcare/internal/overlay"
	"github.com/ellery/rxcare/internal/registry"
	"github.com/ellery/rxcare/internal/reminders"
	"github.com/ellery/rxcare/internal/scheduler"
	"github.com/gin-gonic/gin"
)

// AnalysisGateway is the slice of the gateway client the API depends on.
type AnalysisGateway interface {
	Analyze(ctx context.Context, image []byte, fileName string) (*gateway.Analysis, error)
	ReAnalyze(ctx context.Context, editedText string) (*gateway.Analysis, error)
	Summarize(ctx context.Context, names []string) (*gateway.Summary, error)
	Chat(ctx context.Context, history []gateway.ChatTurn, analysis *gateway.Analysis) (string, error)
	FindPharmacies(ctx context.Context, lat, lng float64) ([]gateway.Pharmacy, error)
}

// CalendarService creates the recurring calendar event behind a reminder.
type CalendarService interface {
	CreateReminder(ctx context.Context, r gateway.ReminderRequest) (*gateway.CreatedReminder, error)
}

// Deps holds the components the handlers operate on.
type Deps struct {
	Registry   *registry.Registry
	Reminders  *reminders.Store
	Overlay    *overlay.Cache
	Gateway    AnalysisGateway
	Calendar   CalendarService // nil until "rx auth" has produced a token
	Language   string          // default display language
	Permission scheduler.Permission
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Deps Deps
	Port int
	Out  io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Deps.Registry == nil || opts.Deps.Reminders == nil {
		return fmt.Errorf("api: registry and reminder store are required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(opts.Deps)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "rxcare API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &handlers{deps: deps}

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/analyze", h.analyze)

		apiGroup.GET("/sessions", h.listSessions)
		apiGroup.GET("/sessions/:id", h.getSession)
		apiGroup.POST("/sessions/:id/activate", h.activateSession)
		apiGroup.DELETE("/sessions/:id", h.deleteSession)
		apiGroup.PUT("/sessions/:id/text", h.setEditedText)
		apiGroup.POST("/sessions/:id/reanalyze", h.reanalyze)
		apiGroup.POST("/sessions/:id/summary", h.summarize)
		apiGroup.GET("/sessions/:id/view", h.view)

		apiGroup.GET("/reminders", h.listReminders)
		apiGroup.POST("/reminders", h.createReminder)
		apiGroup.DELETE("/reminders/:id", h.deleteReminder)

		apiGroup.POST("/chat", h.chat)
		apiGroup.GET("/pharmacies", h.pharmacies)
	}

	return router
}
