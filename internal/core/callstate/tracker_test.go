package callstate

import (
	"testing"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from domain.CallStatus
		to   domain.CallStatus
		want bool
	}{
		{domain.CallStatusRinging, domain.CallStatusAnswered, true},
		{domain.CallStatusRinging, domain.CallStatusInProgress, true},
		{domain.CallStatusRinging, domain.CallStatusFailed, true},
		{domain.CallStatusAnswered, domain.CallStatusInProgress, true},
		{domain.CallStatusAnswered, domain.CallStatusCompleted, true},
		{domain.CallStatusInProgress, domain.CallStatusCompleted, true},
		{domain.CallStatusInProgress, domain.CallStatusFailed, true},

		{domain.CallStatusAnswered, domain.CallStatusRinging, false},
		{domain.CallStatusInProgress, domain.CallStatusAnswered, false},
		{domain.CallStatusCompleted, domain.CallStatusFailed, false},
		{domain.CallStatusCompleted, domain.CallStatusInProgress, false},
		{domain.CallStatusFailed, domain.CallStatusCompleted, false},
		{domain.CallStatusRinging, domain.CallStatusRinging, false},
		{domain.CallStatusRinging, domain.CallStatus("paused"), false},
		{domain.CallStatus("paused"), domain.CallStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTracker_AppliesForwardTransitions(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Register("call-1", "tenant-1", domain.CallStatusRinging)

	require.True(t, tracker.Apply("call-1", domain.CallStatusAnswered))
	require.True(t, tracker.Apply("call-1", domain.CallStatusInProgress))
	require.True(t, tracker.Apply("call-1", domain.CallStatusCompleted))

	state, ok := tracker.Get("call-1")
	require.True(t, ok)
	assert.Equal(t, domain.CallStatusCompleted, state.Status)
	assert.Equal(t, 3, state.Transitions)
}

func TestTracker_TerminalStatesAbsorb(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Register("call-1", "", domain.CallStatusRinging)
	require.True(t, tracker.Apply("call-1", domain.CallStatusFailed))

	assert.False(t, tracker.Apply("call-1", domain.CallStatusCompleted))
	assert.False(t, tracker.Apply("call-1", domain.CallStatusRinging))

	state, _ := tracker.Get("call-1")
	assert.Equal(t, domain.CallStatusFailed, state.Status)
	assert.Equal(t, 1, state.Transitions)
}

func TestTracker_InvalidTransitionsIgnoredNotFatal(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Register("call-1", "", domain.CallStatusRinging)
	require.True(t, tracker.Apply("call-1", domain.CallStatusInProgress))

	// Duplicate and backwards updates from the backend are dropped.
	assert.False(t, tracker.Apply("call-1", domain.CallStatusInProgress))
	assert.False(t, tracker.Apply("call-1", domain.CallStatusAnswered))

	state, _ := tracker.Get("call-1")
	assert.Equal(t, domain.CallStatusInProgress, state.Status)
}

func TestTracker_UntrackedCallIgnored(t *testing.T) {
	tracker := NewTracker(nil)
	assert.False(t, tracker.Apply("nope", domain.CallStatusAnswered))
}

func TestTracker_ObserverLifecycle(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Register("call-1", "tenant-1", domain.CallStatusRinging)

	var changes []StatusChange
	id, err := tracker.Subscribe(func(change StatusChange) {
		changes = append(changes, change)
	})
	require.NoError(t, err)

	tracker.Apply("call-1", domain.CallStatusAnswered)
	tracker.Apply("call-1", domain.CallStatusAnswered) // duplicate, no notification
	tracker.Apply("call-1", domain.CallStatusInProgress)

	require.Len(t, changes, 2)
	assert.Equal(t, domain.CallStatusRinging, changes[0].Previous)
	assert.Equal(t, domain.CallStatusAnswered, changes[0].Current)
	assert.Equal(t, domain.CallStatusAnswered, changes[1].Previous)
	assert.Equal(t, domain.CallStatusInProgress, changes[1].Current)
	assert.Equal(t, "tenant-1", changes[0].TenantID)

	tracker.Unsubscribe(id)
	tracker.Apply("call-1", domain.CallStatusCompleted)
	assert.Len(t, changes, 2)
}

func TestTracker_ActiveCalls(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Register("call-1", "", domain.CallStatusRinging)
	tracker.Register("call-2", "", domain.CallStatusRinging)

	tracker.Apply("call-1", domain.CallStatusCompleted)

	active := tracker.ActiveCalls()
	require.Len(t, active, 1)
	assert.Equal(t, "call-2", active[0].CallID)

	tracker.Remove("call-2")
	assert.Empty(t, tracker.ActiveCalls())
}
