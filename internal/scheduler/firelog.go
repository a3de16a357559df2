package scheduler

import "sync"

// FireLog records which reminder already fired in which minute, keyed by
// (reminderID, "HH:MM"). It exists only to stop overlapping ticks inside
// the same minute from double-firing; it is ephemeral and safe to rebuild
// from empty, at the cost of missed-notification history only.
type FireLog struct {
	mu      sync.Mutex
	entries map[string]string // key -> minuteStamp, kept for pruning
}

// NewFireLog creates an empty FireLog.
func NewFireLog() *FireLog {
	return &FireLog{entries: make(map[string]string)}
}

func fireKey(reminderID, minuteStamp string) string {
	return reminderID + "|" + minuteStamp
}

// MarkIfUnfired atomically checks for an entry and writes it when absent.
// Returns true when the caller should dispatch: the check and the write
// happen under one lock so two ticks can never both see "unfired".
func (f *FireLog) MarkIfUnfired(reminderID, minuteStamp string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fireKey(reminderID, minuteStamp)
	if _, fired := f.entries[key]; fired {
		return false
	}
	f.entries[key] = minuteStamp
	return true
}

// Fired reports whether an entry exists.
func (f *FireLog) Fired(reminderID, minuteStamp string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[fireKey(reminderID, minuteStamp)]
	return ok
}

// Prune drops entries from minutes other than the current one. Entries are
// never read again once their minute has passed, so this is purely memory
// hygiene.
func (f *FireLog) Prune(currentMinute string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, minute := range f.entries {
		if minute != currentMinute {
			delete(f.entries, key)
		}
	}
}

// Len returns the number of recorded entries.
func (f *FireLog) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
