// Package callstate maintains the lifecycle stage of each active call and
// notifies observers on every transition. The telephony backend is the source
// of truth for call status, so out-of-order updates are logged and ignored
// instead of failing the stream.
package callstate

import (
	"fmt"
	"sync"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/event"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"go.uber.org/zap"
)

// statusRank orders the call lifecycle. A transition is valid only when the
// rank strictly increases, so skipped intermediate updates are tolerated but
// terminal states and backwards moves are not.
var statusRank = map[domain.CallStatus]int{
	domain.CallStatusRinging:    0,
	domain.CallStatusAnswered:   1,
	domain.CallStatusInProgress: 2,
	domain.CallStatusCompleted:  3,
	domain.CallStatusFailed:     3,
}

// CanTransition reports whether a call may move from one status to another.
func CanTransition(from, to domain.CallStatus) bool {
	fromRank, okFrom := statusRank[from]
	toRank, okTo := statusRank[to]
	if !okFrom || !okTo {
		return false
	}
	return toRank > fromRank
}

// StatusChange describes one applied transition.
type StatusChange struct {
	CallID   string            `json:"call_id"`
	TenantID string            `json:"tenant_id,omitempty"`
	Previous domain.CallStatus `json:"previous"`
	Current  domain.CallStatus `json:"current"`
	At       time.Time         `json:"at"`
}

// Observer receives applied transitions. Observers are invoked outside the
// tracker lock and may call back into the tracker.
type Observer func(change StatusChange)

// CallState is the tracked state of one call.
type CallState struct {
	CallID      string            `json:"call_id"`
	TenantID    string            `json:"tenant_id,omitempty"`
	Status      domain.CallStatus `json:"status"`
	Transitions int               `json:"transitions"`
	StartedAt   time.Time         `json:"started_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Tracker tracks call lifecycle state for all active calls.
type Tracker struct {
	bus       event.EventBus
	calls     map[string]*CallState
	observers map[string]Observer
	nextObs   int64
	mutex     sync.RWMutex
}

// NewTracker creates a tracker. The event bus is optional; when present,
// every applied transition is also published as a CallStatusChanged event
// (plus CallEnded on terminal transitions).
func NewTracker(bus event.EventBus) *Tracker {
	return &Tracker{
		bus:       bus,
		calls:     make(map[string]*CallState),
		observers: make(map[string]Observer),
	}
}

// Register starts tracking a call. Registering an already-tracked call is a
// no-op that returns the existing state.
func (t *Tracker) Register(callID, tenantID string, initial domain.CallStatus) CallState {
	if initial == "" {
		initial = domain.CallStatusRinging
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if existing, ok := t.calls[callID]; ok {
		logger.Base().Debug("Call already tracked", zap.String("call_id", callID), zap.String("status", string(existing.Status)))
		return *existing
	}

	now := time.Now()
	state := &CallState{
		CallID:    callID,
		TenantID:  tenantID,
		Status:    initial,
		StartedAt: now,
		UpdatedAt: now,
	}
	t.calls[callID] = state

	logger.Base().Info("Tracking call", zap.String("call_id", callID), zap.String("status", string(initial)))
	return *state
}

// Apply moves a call to the next status. Invalid or out-of-order transitions
// are logged and ignored; Apply reports whether the transition was applied.
func (t *Tracker) Apply(callID string, next domain.CallStatus) bool {
	t.mutex.Lock()

	state, ok := t.calls[callID]
	if !ok {
		t.mutex.Unlock()
		logger.Base().Warn("Status update for untracked call", zap.String("call_id", callID), zap.String("status", string(next)))
		return false
	}

	if state.Status == next {
		t.mutex.Unlock()
		return false
	}

	if !CanTransition(state.Status, next) {
		prev := state.Status
		t.mutex.Unlock()
		logger.Base().Warn("Ignoring invalid call status transition",
			zap.String("call_id", callID),
			zap.String("from", string(prev)),
			zap.String("to", string(next)))
		return false
	}

	change := StatusChange{
		CallID:   callID,
		TenantID: state.TenantID,
		Previous: state.Status,
		Current:  next,
		At:       time.Now(),
	}
	state.Status = next
	state.Transitions++
	state.UpdatedAt = change.At

	observers := make([]Observer, 0, len(t.observers))
	for _, fn := range t.observers {
		observers = append(observers, fn)
	}
	t.mutex.Unlock()

	logger.Base().Info("Call status changed",
		zap.String("call_id", callID),
		zap.String("from", string(change.Previous)),
		zap.String("to", string(change.Current)))

	for _, fn := range observers {
		fn(change)
	}

	t.publish(change)
	return true
}

// Get returns a snapshot of the tracked state for a call.
func (t *Tracker) Get(callID string) (CallState, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	state, ok := t.calls[callID]
	if !ok {
		return CallState{}, false
	}
	return *state, true
}

// ActiveCalls returns snapshots of all calls not yet in a terminal state.
func (t *Tracker) ActiveCalls() []CallState {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	active := make([]CallState, 0, len(t.calls))
	for _, state := range t.calls {
		if !state.Status.IsTerminal() {
			active = append(active, *state)
		}
	}
	return active
}

// Remove stops tracking a call.
func (t *Tracker) Remove(callID string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.calls, callID)
}

// Subscribe registers an observer for all applied transitions and returns
// the ID used for Unsubscribe.
func (t *Tracker) Subscribe(fn Observer) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("observer cannot be nil")
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.nextObs++
	id := fmt.Sprintf("callstate#%d", t.nextObs)
	t.observers[id] = fn
	return id, nil
}

// Unsubscribe removes a previously registered observer.
func (t *Tracker) Unsubscribe(id string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.observers, id)
}

func (t *Tracker) publish(change StatusChange) {
	if t.bus == nil {
		return
	}

	ev := event.NewTelephonyEvent(event.CallStatusChanged, change.CallID).
		WithTenantID(change.TenantID).
		WithData(&event.StatusEventData{
			CallID:   change.CallID,
			Previous: string(change.Previous),
			Current:  string(change.Current),
		})
	if err := t.bus.PublishEvent(ev); err != nil {
		logger.Base().Error("Failed to publish status change", zap.String("call_id", change.CallID), zap.Error(err))
	}

	if change.Current.IsTerminal() {
		ended := event.NewTelephonyEvent(event.CallEnded, change.CallID).WithTenantID(change.TenantID)
		if err := t.bus.PublishEvent(ended); err != nil {
			logger.Base().Error("Failed to publish call ended", zap.String("call_id", change.CallID), zap.Error(err))
		}
	}
}
