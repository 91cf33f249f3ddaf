package cache

import (
	"testing"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsCache_HandsOutCopies(t *testing.T) {
	cache := createSettingsCache()
	defer cache.Shutdown()

	require.NoError(t, cache.Upsert(&domain.VoiceSettings{
		UserID:        "user-1",
		VoiceEnabled:  true,
		SelectedVoice: "aurora",
		SpeakingRate:  1.2,
	}))

	first, err := cache.Get("user-1")
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the cache.
	first.SelectedVoice = "tampered"
	first.SpeakingRate = 99

	second, err := cache.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, "aurora", second.SelectedVoice)
	assert.Equal(t, 1.2, second.SpeakingRate)
}

func TestSettingsCache_MissAndDelete(t *testing.T) {
	cache := createSettingsCache()
	defer cache.Shutdown()

	_, err := cache.Get("nobody")
	assert.Error(t, err)

	require.NoError(t, cache.Upsert(&domain.VoiceSettings{UserID: "user-1"}))
	require.NoError(t, cache.Delete("user-1"))
	assert.Error(t, cache.Delete("user-1"))
	assert.Zero(t, cache.Count())
}

func TestSettingsCache_AsyncBulkReplace(t *testing.T) {
	cache := createSettingsCache()
	defer cache.Shutdown()

	require.NoError(t, cache.Upsert(&domain.VoiceSettings{UserID: "stale-user"}))

	batch := []*domain.VoiceSettings{
		{UserID: "user-1", VoiceEnabled: true},
		{UserID: "user-2"},
		{UserID: "user-2"}, // duplicate in batch is ignored
		nil,
	}
	require.NoError(t, cache.UpdateSettingsAsync(batch))

	assert.Eventually(t, func() bool {
		if cache.Count() != 2 {
			return false
		}
		_, err := cache.Get("stale-user")
		return err != nil
	}, time.Second, 10*time.Millisecond, "bulk replace should drop stale entries")
}
