package errtrack

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_GroupsByCategoryAndMessage(t *testing.T) {
	tracker := NewTracker()

	id1 := tracker.Track(CategoryConnection, "call-1", fmt.Errorf("dial timeout"))
	id2 := tracker.Track(CategoryConnection, "call-1", fmt.Errorf("dial timeout"))
	id3 := tracker.Track(CategoryProtocol, "call-1", fmt.Errorf("dial timeout"))

	require.NotEmpty(t, id1)
	assert.Equal(t, id1, id2, "same category and message should share an entry")
	assert.NotEqual(t, id1, id3, "different category should get its own entry")

	entries := tracker.Entries(true)
	require.Len(t, entries, 2)

	stats := tracker.GetStats()
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByCategory[string(CategoryConnection)])
	assert.Equal(t, int64(1), stats.ByCategory[string(CategoryProtocol)])
	assert.Equal(t, 2, stats.Unresolved)
	assert.Equal(t, 0, stats.Resolved)
}

func TestTracker_ResolveAndReopen(t *testing.T) {
	tracker := NewTracker()

	id := tracker.Track(CategoryProtocol, "call-1", fmt.Errorf("bad frame"))
	require.True(t, tracker.Resolve(id))
	assert.False(t, tracker.Resolve(id), "second resolve is a no-op")

	stats := tracker.GetStats()
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 0, stats.Unresolved)
	assert.Empty(t, tracker.Entries(false))

	// A recurrence reopens the entry.
	again := tracker.Track(CategoryProtocol, "call-1", fmt.Errorf("bad frame"))
	assert.Equal(t, id, again)
	stats = tracker.GetStats()
	assert.Equal(t, 0, stats.Resolved)
	assert.Equal(t, 1, stats.Unresolved)
}

func TestTracker_ResolveCall(t *testing.T) {
	tracker := NewTracker()

	tracker.Track(CategoryConnection, "call-1", fmt.Errorf("drop"))
	tracker.Track(CategoryProtocol, "call-1", fmt.Errorf("bad frame"))
	tracker.Track(CategoryConnection, "call-2", fmt.Errorf("drop"))

	// Same message but different call: grouped with call-1's entry, so the
	// call-2 track updates that entry's call scope. Track a distinct one.
	tracker.Track(CategoryConfiguration, "call-2", fmt.Errorf("missing token"))

	resolved := tracker.ResolveCall("call-2")
	assert.Equal(t, 2, resolved)
	assert.Equal(t, 0, tracker.ResolveCall(""))
}

func TestTracker_NilErrorIgnored(t *testing.T) {
	tracker := NewTracker()
	assert.Empty(t, tracker.Track(CategoryConnection, "call-1", nil))
	assert.Equal(t, int64(0), tracker.GetStats().Total)
}
