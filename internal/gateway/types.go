// Package gateway wraps the external analysis, translation, chat, pharmacy
// and calendar services behind typed request/response clients. Responses
// are validated at this boundary; nothing untyped crosses into the core.
package gateway

// Medication is one prescribed medicine as extracted by the analysis
// service. The service substitutes "N/A" for missing details and
// "Illegible" for text it could not confidently read.
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Instruction  string `json:"instruction"`
	DurationDays int    `json:"duration_days,omitempty"`
}

// Analysis is the structured result of analyzing one prescription.
type Analysis struct {
	Medications []Medication `json:"medications"`
	Advice      string       `json:"advice"`
}

// Summary is the AI-generated care summary for a medication set.
type Summary struct {
	Summary          string   `json:"summary"`
	HealthTips       []string `json:"health_tips"`
	FoodInteractions []string `json:"food_interactions"`
}

// ChatTurn is one message of the assistant conversation.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Pharmacy is one nearby pharmacy returned by the lookup service.
type Pharmacy struct {
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Phone    string    `json:"phone"`
	Geometry *Geometry `json:"geometry,omitempty"`
}

// Geometry holds a pharmacy's coordinates.
type Geometry struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// ReminderRequest asks the calendar service for a daily recurring event.
type ReminderRequest struct {
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
	Time        string `json:"time"` // local wall-clock "HH:MM"
}

// CreatedReminder is the calendar service's confirmation.
type CreatedReminder struct {
	EventID      string `json:"event_id"`
	CalendarLink string `json:"calendar_link"`
}
