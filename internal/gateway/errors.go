package gateway

import "fmt"

// The error types below carry the human-readable message each service
// failure surfaces to the user. Callers match with errors.As and render
// the message inline in the section that triggered the call; no gateway
// failure is allowed to propagate as an unhandled fault.

// AnalysisError reports a failed prescription analysis or re-analysis.
type AnalysisError struct {
	Msg string
}

func (e *AnalysisError) Error() string { return fmt.Sprintf("analysis failed: %s", e.Msg) }

// SummaryError reports a failed or unrequestable summary. It is returned
// without a network call when the medication set is empty after filtering
// placeholder names.
type SummaryError struct {
	Msg string
}

func (e *SummaryError) Error() string { return fmt.Sprintf("summary failed: %s", e.Msg) }

// TranslationError reports a failed translation. The overlay cache
// degrades to the untranslated view when it sees one.
type TranslationError struct {
	Msg string
}

func (e *TranslationError) Error() string { return fmt.Sprintf("translation failed: %s", e.Msg) }

// ReminderCreationError reports a failed calendar event creation. No
// local reminder state is created when one occurs.
type ReminderCreationError struct {
	Msg string
}

func (e *ReminderCreationError) Error() string {
	return fmt.Sprintf("reminder creation failed: %s", e.Msg)
}

// ChatError reports a failed assistant exchange.
type ChatError struct {
	Msg string
}

func (e *ChatError) Error() string { return fmt.Sprintf("chat failed: %s", e.Msg) }

// PharmacyLookupError reports a failed nearby-pharmacy lookup.
type PharmacyLookupError struct {
	Msg string
}

func (e *PharmacyLookupError) Error() string { return fmt.Sprintf("pharmacy lookup failed: %s", e.Msg) }
