package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/gcs"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/pion/rtp"
	"go.uber.org/zap"
)

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeGCS   StorageType = "gcs"
)

const (
	tmpStoragePath       = "/tmp"
	staleBufferAge       = 30 * time.Minute
	sweepInterval        = 10 * time.Minute
	archiveUploadTimeout = 3 * time.Minute
)

// ArchiveSegment is one agent speech payload captured during a call.
type ArchiveSegment struct {
	Payload    []byte
	DurationMs int64
	ReceivedAt time.Time
}

// callBuffer accumulates the agent audio of one call until the call ends.
type callBuffer struct {
	segments   []ArchiveSegment
	startedAt  time.Time
	lastAppend time.Time
}

// CallArchiveService buffers agent speech per call and writes one Ogg Opus
// file per call once the call ends. A disabled service accepts every append
// and does nothing.
type CallArchiveService struct {
	storageType StorageType
	gcsClient   *gcs.Client
	enabled     bool
	storagePath string // Local directory or GCS bucket name
	ctx         context.Context
	cancel      context.CancelFunc

	buffers map[string]*callBuffer // callID -> buffered segments
	mu      sync.RWMutex

	sweepTicker *time.Ticker
}

// NewCallArchiveService creates a call archive service. An empty storage path
// yields a disabled service.
func NewCallArchiveService(ctx context.Context, storageType StorageType, storagePath string) (*CallArchiveService, error) {
	if storagePath == "" {
		logger.Base().Info("Call archive disabled (no storage path configured)")
		return &CallArchiveService{enabled: false}, nil
	}

	serviceCtx, cancel := context.WithCancel(ctx)

	service := &CallArchiveService{
		storageType: storageType,
		enabled:     true,
		storagePath: storagePath,
		ctx:         serviceCtx,
		cancel:      cancel,
		buffers:     make(map[string]*callBuffer),
	}

	switch storageType {
	case StorageTypeGCS:
		gcsClient, err := gcs.NewClient(ctx, storagePath)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create GCS client: %v", err)
		}
		service.gcsClient = gcsClient
		logger.Base().Info("Call archive service started (GCS)", zap.String("bucket", storagePath))

	case StorageTypeLocal:
		localRoot := filepath.Join(tmpStoragePath, storagePath)
		if err := os.MkdirAll(localRoot, 0755); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create local storage directory: %v", err)
		}
		logger.Base().Info("Call archive service started (local)", zap.String("path", localRoot))

	default:
		cancel()
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}

	service.startSweeper()

	return service, nil
}

// Append buffers one agent speech payload for a call. The payload is copied,
// callers may reuse their slice.
func (s *CallArchiveService) Append(callID string, payload []byte, durationMs int64) {
	if !s.enabled || callID == "" || len(payload) == 0 {
		return
	}

	segment := ArchiveSegment{
		Payload:    append([]byte(nil), payload...),
		DurationMs: durationMs,
		ReceivedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	buffer, exists := s.buffers[callID]
	if !exists {
		buffer = &callBuffer{startedAt: segment.ReceivedAt}
		s.buffers[callID] = buffer
	}
	buffer.segments = append(buffer.segments, segment)
	buffer.lastAppend = segment.ReceivedAt
	s.mu.Unlock()
}

// Finalize extracts the buffered audio of a finished call and queues the
// upload. Calls with no buffered audio are dropped silently.
func (s *CallArchiveService) Finalize(callID string) {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	buffer, exists := s.buffers[callID]
	delete(s.buffers, callID)
	s.mu.Unlock()

	if !exists || len(buffer.segments) == 0 {
		logger.Base().Debug("No archived audio for call", zap.String("call_id", callID))
		return
	}

	logger.Base().Info("Queueing call archive", zap.String("call_id", callID), zap.Int("segments", len(buffer.segments)))
	go s.archive(callID, buffer)
}

// Pending returns the number of calls with buffered audio.
func (s *CallArchiveService) Pending() int {
	if !s.enabled {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffers)
}

// RecordingURL returns a time-limited download URL for a call's archived
// audio. Only GCS-backed archives can be linked.
func (s *CallArchiveService) RecordingURL(ctx context.Context, callID string, ttl time.Duration) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("call archive is disabled")
	}
	if s.storageType != StorageTypeGCS {
		return "", fmt.Errorf("recording downloads require GCS storage")
	}

	objectPath := ArchiveObjectPath(callID)
	exists, err := s.gcsClient.Exists(ctx, objectPath)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("no recording for call %s", callID)
	}

	return s.gcsClient.SignedDownloadURL(objectPath, time.Now().Add(ttl))
}

// packetize lays the segments onto the call timeline as RTP-shaped packets.
// Frames inside a burst advance at frame cadence, a new utterance jumps
// forward to its real arrival offset. Returns the packets and the timeline
// length they cover.
func packetize(segments []ArchiveSegment) ([]*rtp.Packet, time.Duration) {
	if len(segments) == 0 {
		return nil, 0
	}

	base := segments[0].ReceivedAt
	packets := make([]*rtp.Packet, 0, len(segments))
	next := uint32(0)

	for i, segment := range segments {
		if len(segment.Payload) == 0 {
			continue
		}

		timestamp := next
		arrival := uint32(segment.ReceivedAt.Sub(base).Milliseconds() * 48)
		if arrival > timestamp {
			timestamp = arrival
		}

		packets = append(packets, &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    opusPayloadType,
				SSRC:           archiveSSRC,
				SequenceNumber: uint16(i),
				Timestamp:      timestamp,
			},
			Payload: segment.Payload,
		})

		samples := uint32(segment.DurationMs * 48)
		if samples == 0 {
			samples = frameSamples
		}
		next = timestamp + samples
	}

	return packets, time.Duration(next) * time.Second / archiveSampleRate
}

// archive encodes one call buffer into an Ogg Opus file and uploads it.
func (s *CallArchiveService) archive(callID string, buffer *callBuffer) {
	packets, timeline := packetize(buffer.segments)
	if len(packets) == 0 {
		logger.Base().Warn("Call archive had no usable packets", zap.String("call_id", callID))
		return
	}

	// Small tail so the last frame is not cut by the padding loop.
	totalDuration := timeline + 100*time.Millisecond

	encoder := NewOggOpusEncoder()
	data, err := encoder.EncodeMonoPadded(packets, totalDuration)
	if err != nil {
		logger.Base().Error("Failed to encode call archive", zap.String("call_id", callID), zap.Error(err))
		return
	}
	if len(data) == 0 {
		logger.Base().Warn("Empty call archive", zap.String("call_id", callID))
		return
	}

	logger.Base().Info("Archiving call audio",
		zap.String("call_id", callID),
		zap.Int("packets", len(packets)),
		zap.Duration("timeline", timeline),
		zap.Int("bytes", len(data)))

	objectPath := ArchiveObjectPath(callID)

	switch s.storageType {
	case StorageTypeGCS:
		s.uploadToGCS(callID, data, objectPath)
	case StorageTypeLocal:
		s.writeLocal(callID, data, objectPath)
	}
}

// ArchiveObjectPath returns the storage path of a call's agent audio file.
func ArchiveObjectPath(callID string) string {
	return fmt.Sprintf("calls/%s/agent_audio.ogg", callID)
}

// uploadToGCS uploads the encoded archive using the pkg GCS client.
func (s *CallArchiveService) uploadToGCS(callID string, data []byte, objectPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveUploadTimeout)
	defer cancel()

	reader := bytes.NewReader(data)
	url, err := s.gcsClient.Upload(ctx, objectPath, reader)
	if err != nil {
		logger.Base().Error("Failed to upload call archive to GCS", zap.String("call_id", callID), zap.Error(err))
		return
	}

	logger.Base().Info("Uploaded call archive to GCS", zap.String("url", url), zap.Int("bytes", len(data)), zap.String("call_id", callID))
}

// writeLocal writes the encoded archive under the local storage root.
func (s *CallArchiveService) writeLocal(callID string, data []byte, relativePath string) {
	fullPath := filepath.Join(tmpStoragePath, s.storagePath, relativePath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Base().Error("Failed to create archive directory", zap.String("dir", dir), zap.Error(err))
		return
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		logger.Base().Error("Failed to write call archive", zap.String("path", fullPath), zap.Error(err))
		return
	}

	logger.Base().Info("Saved call archive", zap.String("path", fullPath), zap.Int("bytes", len(data)), zap.String("call_id", callID))
}

// sweepStale drops buffers that have not seen audio for staleBufferAge.
// It catches calls that never reached Finalize.
func (s *CallArchiveService) sweepStale() {
	if !s.enabled {
		return
	}

	cutoff := time.Now().Add(-staleBufferAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var swept []string
	for callID, buffer := range s.buffers {
		if buffer.lastAppend.Before(cutoff) {
			swept = append(swept, callID)
			delete(s.buffers, callID)
		}
	}

	if len(swept) > 0 {
		logger.Base().Info("Swept stale call buffers", zap.Int("count", len(swept)))
	}
}

// startSweeper starts the periodic stale-buffer sweeper.
func (s *CallArchiveService) startSweeper() {
	s.sweepTicker = time.NewTicker(sweepInterval)

	go func() {
		defer s.sweepTicker.Stop()

		for {
			select {
			case <-s.sweepTicker.C:
				s.sweepStale()
			case <-s.ctx.Done():
				logger.Base().Info("Call archive sweeper stopped")
				return
			}
		}
	}()
}

// Close archives all pending calls synchronously and shuts the service down.
func (s *CallArchiveService) Close() error {
	if !s.enabled {
		return nil
	}

	logger.Base().Info("Shutting down call archive service...")

	s.cancel()

	s.mu.Lock()
	pending := s.buffers
	s.buffers = make(map[string]*callBuffer)
	s.mu.Unlock()

	if len(pending) > 0 {
		logger.Base().Info("Archiving pending calls before shutdown", zap.Int("pending_calls", len(pending)))
		for callID, buffer := range pending {
			if len(buffer.segments) == 0 {
				continue
			}
			s.archive(callID, buffer)
		}
	}

	if s.gcsClient != nil {
		if err := s.gcsClient.Close(); err != nil {
			logger.Base().Error("Error closing GCS client")
		}
	}

	logger.Base().Info("Call archive service shut down", zap.Int("archived_calls", len(pending)))
	return nil
}

// Global call archive instance
var (
	archiveInstance *CallArchiveService
	archiveOnce     sync.Once
)

// GetCallArchive returns the global call archive instance. Nil when the
// archive was never initialized.
func GetCallArchive() *CallArchiveService {
	return archiveInstance
}

// SetCallArchive sets the global call archive instance
func SetCallArchive(service *CallArchiveService) {
	archiveOnce.Do(func() {
		archiveInstance = service
	})
}

// InitCallArchive initializes the global call archive instance
func InitCallArchive(ctx context.Context, enabled bool, storageType StorageType, storagePath string) error {
	if !enabled {
		logger.Base().Info("Call archive disabled")
		return nil
	}

	service, err := NewCallArchiveService(ctx, storageType, storagePath)
	if err != nil {
		return fmt.Errorf("failed to create call archive service: %v", err)
	}

	SetCallArchive(service)
	return nil
}
