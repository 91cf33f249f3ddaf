package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
)

// opusTestPayload is an arbitrary non-silence Opus payload. The Ogg writer
// never inspects the frame contents.
func opusTestPayload() []byte {
	return []byte{0x78, 0x0b, 0x42}
}

func TestPacketize_BurstKeepsCadenceGapJumpsForward(t *testing.T) {
	base := time.Now().UTC()

	segments := []ArchiveSegment{
		{Payload: opusTestPayload(), DurationMs: 20, ReceivedAt: base},
		{Payload: opusTestPayload(), DurationMs: 20, ReceivedAt: base},
		{Payload: opusTestPayload(), DurationMs: 20, ReceivedAt: base},
		// Next utterance arrives a full second later.
		{Payload: opusTestPayload(), DurationMs: 20, ReceivedAt: base.Add(time.Second)},
	}

	packets, timeline := packetize(segments)
	require.Len(t, packets, 4)

	// Burst frames advance by one frame of samples each.
	assert.Equal(t, uint32(0), packets[0].Timestamp)
	assert.Equal(t, uint32(960), packets[1].Timestamp)
	assert.Equal(t, uint32(1920), packets[2].Timestamp)

	// The late utterance lands at its arrival offset, not at the cadence slot.
	assert.Equal(t, uint32(48000), packets[3].Timestamp)

	assert.Equal(t, 1020*time.Millisecond, timeline)

	for i, packet := range packets {
		assert.Equal(t, uint8(2), packet.Version)
		assert.Equal(t, uint8(opusPayloadType), packet.PayloadType)
		assert.Equal(t, uint32(archiveSSRC), packet.SSRC)
		assert.Equal(t, uint16(i), packet.SequenceNumber)
	}
}

func TestOggOpusEncoder_EncodeMonoPadded(t *testing.T) {
	packets := []*rtp.Packet{
		{
			Header:  rtp.Header{Version: 2, PayloadType: opusPayloadType, SSRC: archiveSSRC, Timestamp: 0},
			Payload: opusTestPayload(),
		},
		{
			Header:  rtp.Header{Version: 2, PayloadType: opusPayloadType, SSRC: archiveSSRC, Timestamp: 4800},
			Payload: opusTestPayload(),
		},
	}

	encoder := NewOggOpusEncoder()
	data, err := encoder.EncodeMonoPadded(packets, 200*time.Millisecond)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("OggS")), "output must be an Ogg stream")

	_, err = encoder.EncodeMonoPadded(nil, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestCallArchiveService_WritesLocalArchive(t *testing.T) {
	storagePath := fmt.Sprintf("lumivox-archive-test-%d", time.Now().UnixNano())
	t.Cleanup(func() { os.RemoveAll(filepath.Join(tmpStoragePath, storagePath)) })

	service, err := NewCallArchiveService(context.Background(), StorageTypeLocal, storagePath)
	require.NoError(t, err)
	defer service.Close()

	for i := 0; i < 3; i++ {
		service.Append("call-1", opusTestPayload(), 20)
	}
	require.Equal(t, 1, service.Pending())

	service.Finalize("call-1")
	assert.Equal(t, 0, service.Pending())

	archivePath := filepath.Join(tmpStoragePath, storagePath, ArchiveObjectPath("call-1"))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(archivePath)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond, "archive file should appear after finalize")

	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("OggS")))
}

func TestCallArchiveService_DisabledIsInert(t *testing.T) {
	service, err := NewCallArchiveService(context.Background(), StorageTypeLocal, "")
	require.NoError(t, err)

	service.Append("call-1", opusTestPayload(), 20)
	service.Finalize("call-1")

	assert.Equal(t, 0, service.Pending())
	assert.NoError(t, service.Close())
}

func TestCallArchiveService_SweepsStaleBuffers(t *testing.T) {
	storagePath := fmt.Sprintf("lumivox-archive-test-%d", time.Now().UnixNano())
	t.Cleanup(func() { os.RemoveAll(filepath.Join(tmpStoragePath, storagePath)) })

	service, err := NewCallArchiveService(context.Background(), StorageTypeLocal, storagePath)
	require.NoError(t, err)
	defer service.Close()

	service.Append("abandoned-call", opusTestPayload(), 20)
	require.Equal(t, 1, service.Pending())

	service.mu.Lock()
	for _, buffer := range service.buffers {
		buffer.lastAppend = time.Now().Add(-time.Hour)
	}
	service.mu.Unlock()

	service.sweepStale()
	assert.Equal(t, 0, service.Pending())
}

func TestWriteTranscriptPDF(t *testing.T) {
	started := time.Now().Add(-90 * time.Second)
	call := &domain.Call{
		CallID:    "call-7",
		TenantID:  "tenant-1",
		Status:    domain.CallStatusCompleted,
		Direction: domain.CallDirectionInbound,
		Language:  "en",
		StartedAt: started,
		EndedAt:   started.Add(85 * time.Second),
	}
	messages := []*domain.CallMessage{
		{
			CallID:       "call-7",
			Sender:       domain.MessageSenderCustomer,
			Kind:         domain.MessageKindTranscript,
			Content:      "Hello. I would like to check my order.",
			AudioStartMs: 1200,
			AudioEndMs:   4100,
			CreatedAt:    started.Add(4 * time.Second),
		},
		{
			CallID:    "call-7",
			Sender:    domain.MessageSenderAgent,
			Kind:      domain.MessageKindTranscript,
			Content:   "Of course, let me look that up for you.",
			CreatedAt: started.Add(7 * time.Second),
		},
		{
			// Whitespace-only content is skipped by the renderer.
			CallID:  "call-7",
			Sender:  domain.MessageSenderSystem,
			Content: "   ",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTranscriptPDF(call, messages, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output must be a PDF document")
	assert.Greater(t, buf.Len(), 500)

	assert.Equal(t, "call_call-7_transcript.pdf", TranscriptPDFFilename(call))

	require.Error(t, WriteTranscriptPDF(nil, nil, &buf))
}

func TestTranscriptMessageHeading(t *testing.T) {
	started := time.Now()
	call := &domain.Call{CallID: "call-9", StartedAt: started}

	withBoundary := &domain.CallMessage{Sender: domain.MessageSenderCustomer, AudioStartMs: 65000}
	assert.Equal(t, "[01:05] CUSTOMER", transcriptMessageHeading(call, withBoundary))

	withCreatedAt := &domain.CallMessage{Sender: domain.MessageSenderAgent, CreatedAt: started.Add(3 * time.Second)}
	assert.Equal(t, "[00:03] AGENT", transcriptMessageHeading(call, withCreatedAt))

	blank := &domain.CallMessage{}
	assert.Equal(t, "[00:00] UNKNOWN", transcriptMessageHeading(call, blank))
}
