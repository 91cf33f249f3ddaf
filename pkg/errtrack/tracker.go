// Package errtrack is the centralized error tracker for the telephony
// pipeline. Errors are grouped by category and message so repeated failures
// increment a counter instead of growing without bound; the diagnostics
// endpoint reports resolved and unresolved counts.
package errtrack

import (
	"sort"
	"sync"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Category classifies a tracked error.
type Category string

const (
	// CategoryConnection covers socket open failures, timeouts and drops.
	CategoryConnection Category = "connection"
	// CategoryProtocol covers error frames and malformed payloads from the
	// telephony backend.
	CategoryProtocol Category = "protocol"
	// CategoryPermission covers rejected credentials and microphone access.
	CategoryPermission Category = "permission"
	// CategoryConfiguration covers missing tokens and bad settings.
	CategoryConfiguration Category = "configuration"
)

// Entries are evicted (resolved first, then oldest) beyond this count.
const defaultMaxEntries = 256

// Entry is one tracked error group.
type Entry struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
	CallID    string    `json:"call_id,omitempty"`
	Count     int       `json:"count"`
	Resolved  bool      `json:"resolved"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Stats summarizes the tracker for diagnostics display.
type Stats struct {
	Total      int64            `json:"total"`
	Resolved   int              `json:"resolved"`
	Unresolved int              `json:"unresolved"`
	ByCategory map[string]int64 `json:"by_category"`
}

// Tracker records errors without ever failing the caller.
type Tracker struct {
	mutex      sync.RWMutex
	entries    map[string]*Entry
	byKey      map[string]string
	total      int64
	byCategory map[string]int64
	maxEntries int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		entries:    make(map[string]*Entry),
		byKey:      make(map[string]string),
		byCategory: make(map[string]int64),
		maxEntries: defaultMaxEntries,
	}
}

// Track records an error and returns the entry ID. Errors with the same
// category and message share one entry; a recurrence reopens a resolved
// entry.
func (t *Tracker) Track(category Category, callID string, err error) string {
	if err == nil {
		return ""
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.total++
	t.byCategory[string(category)]++

	now := time.Now()
	key := string(category) + "|" + err.Error()
	if id, ok := t.byKey[key]; ok {
		entry := t.entries[id]
		entry.Count++
		entry.Resolved = false
		entry.LastSeen = now
		if callID != "" {
			entry.CallID = callID
		}
		return id
	}

	if len(t.entries) >= t.maxEntries {
		t.evictLocked()
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		Category:  category,
		Message:   err.Error(),
		CallID:    callID,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	t.entries[entry.ID] = entry
	t.byKey[key] = entry.ID

	logger.Base().Debug("Tracked error",
		zap.String("category", string(category)),
		zap.String("call_id", callID),
		zap.String("message", entry.Message))
	return entry.ID
}

// Resolve marks an entry resolved. Unknown IDs report false.
func (t *Tracker) Resolve(id string) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	entry, ok := t.entries[id]
	if !ok || entry.Resolved {
		return false
	}
	entry.Resolved = true
	return true
}

// ResolveCall marks every entry for a call resolved, for use when a call
// ends cleanly after transient errors.
func (t *Tracker) ResolveCall(callID string) int {
	if callID == "" {
		return 0
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	resolved := 0
	for _, entry := range t.entries {
		if entry.CallID == callID && !entry.Resolved {
			entry.Resolved = true
			resolved++
		}
	}
	return resolved
}

// GetStats returns current tracker statistics.
func (t *Tracker) GetStats() Stats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	stats := Stats{
		Total:      t.total,
		ByCategory: make(map[string]int64),
	}
	for k, v := range t.byCategory {
		stats.ByCategory[k] = v
	}
	for _, entry := range t.entries {
		if entry.Resolved {
			stats.Resolved++
		} else {
			stats.Unresolved++
		}
	}
	return stats
}

// Entries returns snapshots of tracked entries, optionally including
// resolved ones, newest first.
func (t *Tracker) Entries(includeResolved bool) []Entry {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	entries := make([]Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		if !includeResolved && entry.Resolved {
			continue
		}
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return entries
}

// Clear drops all entries but keeps lifetime counters.
func (t *Tracker) Clear() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.entries = make(map[string]*Entry)
	t.byKey = make(map[string]string)
}

// evictLocked removes one entry to make room, preferring resolved entries,
// then the oldest by last occurrence.
func (t *Tracker) evictLocked() {
	var victim *Entry
	for _, entry := range t.entries {
		if victim == nil {
			victim = entry
			continue
		}
		if entry.Resolved != victim.Resolved {
			if entry.Resolved {
				victim = entry
			}
			continue
		}
		if entry.LastSeen.Before(victim.LastSeen) {
			victim = entry
		}
	}
	if victim == nil {
		return
	}
	delete(t.entries, victim.ID)
	delete(t.byKey, string(victim.Category)+"|"+victim.Message)
}

// Global tracker instance
var (
	globalTracker *Tracker
	trackerOnce   sync.Once
)

// Get returns the global tracker, creating it on first use.
func Get() *Tracker {
	trackerOnce.Do(func() {
		globalTracker = NewTracker()
	})
	return globalTracker
}

// Track records an error on the global tracker.
func Track(category Category, callID string, err error) string {
	return Get().Track(category, callID, err)
}

// Resolve marks an entry resolved on the global tracker.
func Resolve(id string) bool {
	return Get().Resolve(id)
}
