package call

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/event"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/stream"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/task"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBackend fakes the vendor STT/TTS endpoint: it upgrades connections and
// records every JSON frame the service's stream client sends.
type testBackend struct {
	server *httptest.Server
	conns  chan *backendConn
}

type backendConn struct {
	conn   *websocket.Conn
	query  url.Values
	frames chan map[string]interface{}
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()

	b := &testBackend{conns: make(chan *backendConn, 8)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		bc := &backendConn{conn: conn, query: r.URL.Query(), frames: make(chan map[string]interface{}, 64)}
		b.conns <- bc

		go func() {
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var frame map[string]interface{}
				if json.Unmarshal(data, &frame) == nil {
					select {
					case bc.frames <- frame:
					default:
					}
				}
			}
		}()
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *testBackend) wsURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

func (b *testBackend) accept(t *testing.T, timeout time.Duration) *backendConn {
	t.Helper()
	select {
	case bc := <-b.conns:
		return bc
	case <-time.After(timeout):
		t.Fatal("timed out waiting for stream connection")
		return nil
	}
}

func (b *testBackend) assertNoConnection(t *testing.T, window time.Duration) {
	t.Helper()
	select {
	case <-b.conns:
		t.Fatal("unexpected stream connection")
	case <-time.After(window):
	}
}

func (bc *backendConn) send(t *testing.T, frame interface{}) {
	t.Helper()
	require.NoError(t, bc.conn.WriteJSON(frame))
}

func (bc *backendConn) awaitFrame(t *testing.T, frameType string) map[string]interface{} {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-bc.frames:
			if frame["type"] == frameType {
				return frame
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q frame", frameType)
		}
	}
}

func (bc *backendConn) countFrames(window time.Duration, frameType string) int {
	count := 0
	deadline := time.After(window)
	for {
		select {
		case frame := <-bc.frames:
			if frame["type"] == frameType {
				count++
			}
		case <-deadline:
			return count
		}
	}
}

// newTestService builds a standalone call service against the fake backend:
// no database, no Redis registry, no task bus. The short silence timeout
// keeps transcript flush tests fast.
func newTestService(t *testing.T, backendURL string) *CallService {
	t.Helper()

	streamCfg := &config.StreamConfig{
		WSBaseURL:              backendURL,
		StreamPath:             "/api/ws/telephony/stream",
		ConnectTimeout:         2 * time.Second,
		ReconnectDelayNormal:   100 * time.Millisecond,
		ReconnectDelayAbnormal: 600 * time.Millisecond,
		PingInterval:           0,
		WriteTimeout:           time.Second,
		MaxMessageBytes:        1 << 20,
		AudioFramesPerSecond:   50,
	}
	transcriptCfg := &config.TranscriptConfig{
		SilenceTimeout: 150 * time.Millisecond,
		TerminalRunes:  ".!?",
		Separator:      " ",
		InsertPeriod:   true,
	}

	svc := NewCallService(streamCfg, transcriptCfg, nil, nil, nil)
	t.Cleanup(svc.Shutdown)
	return svc
}

func startTestCall(t *testing.T, svc *CallService, callID string) *CallSession {
	t.Helper()
	sess, err := svc.StartCall(context.Background(), StartCallRequest{
		CallID:   callID,
		TenantID: "tenant-1",
		From:     "+15550100",
		To:       "+15550199",
		Token:    "test-token",
	})
	require.NoError(t, err)
	return sess
}

func awaitEvent(t *testing.T, ch chan *event.TelephonyEvent, what string) *event.TelephonyEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return nil
	}
}

func TestCallService_EndToEndCallLifecycle(t *testing.T) {
	backend := newTestBackend(t)
	svc := newTestService(t, backend.wsURL())

	transcripts := make(chan *event.TelephonyEvent, 8)
	_, err := svc.GetEventBus().Subscribe(event.TranscriptMessage, func(ev *event.TelephonyEvent) {
		transcripts <- ev
	})
	require.NoError(t, err)

	sess := startTestCall(t, svc, "call-e2e")
	require.Equal(t, 1, svc.GetSessionCount())

	bc := backend.accept(t, 2*time.Second)
	assert.Equal(t, "test-token", bc.query.Get("token"))

	init := bc.awaitFrame(t, stream.FrameInit)
	assert.Equal(t, "call-e2e", init["call_id"])
	assert.Equal(t, config.DefaultLanguage, init["language"])
	assert.Equal(t, config.DefaultModel, init["model"])

	state, ok := svc.GetTracker().Get("call-e2e")
	require.True(t, ok)
	assert.Equal(t, domain.CallStatusRinging, state.Status)

	bc.send(t, stream.ConnectedFrame{Type: stream.FrameTelephonyConnected, SessionID: "sess-7", CallID: "call-e2e"})
	bc.send(t, stream.StatusFrame{Type: stream.FrameCallStatusUpdate, CallID: "call-e2e", Status: "answered"})
	bc.send(t, stream.StatusFrame{Type: stream.FrameCallStatusUpdate, CallID: "call-e2e", Status: "in_progress"})

	assert.Eventually(t, func() bool {
		state, ok := svc.GetTracker().Get("call-e2e")
		return ok && state.Status == domain.CallStatusInProgress
	}, 2*time.Second, 10*time.Millisecond)

	// Two customer fragments, then silence. One message comes out with the
	// period inserted at the fragment boundary.
	bc.send(t, stream.TranscriptFrame{Type: stream.FrameCustomerTranscript, CallID: "call-e2e", Text: "Hello", IsFinal: true, Confidence: 0.9, AudioStartMs: 0, AudioEndMs: 400})
	bc.send(t, stream.TranscriptFrame{Type: stream.FrameCustomerTranscript, CallID: "call-e2e", Text: "there", IsFinal: true, Confidence: 0.8, AudioStartMs: 450, AudioEndMs: 800})

	ev := awaitEvent(t, transcripts, "flushed transcript message")
	data, ok := ev.Data.(*event.TranscriptEventData)
	require.True(t, ok)
	assert.Equal(t, "call-e2e", data.CallID)
	assert.Equal(t, string(domain.MessageSenderCustomer), data.Sender)
	assert.Equal(t, "Hello. there", data.Content)
	assert.Equal(t, 0, len(transcripts), "expected a single flushed message")

	// Agent TTS audio lands in the playback queue.
	bc.send(t, stream.TTSAudioFrame{
		Type:       stream.FrameAgentTTSAudio,
		CallID:     "call-e2e",
		Audio:      base64.StdEncoding.EncodeToString([]byte("opus-bytes")),
		Sequence:   1,
		DurationMs: 320,
	})

	select {
	case segment := <-sess.Playback.Drain():
		assert.Equal(t, 1, segment.Sequence)
		assert.Equal(t, []byte("opus-bytes"), segment.Payload)
		assert.Equal(t, int64(320), segment.DurationMs)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback segment")
	}

	// Terminal status tears the session down with a single stop frame and
	// no reconnect attempt.
	bc.send(t, stream.StatusFrame{Type: stream.FrameCallStatusUpdate, CallID: "call-e2e", Status: "completed"})

	assert.Eventually(t, func() bool {
		return svc.GetSessionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, bc.countFrames(500*time.Millisecond, stream.FrameStop))
	backend.assertNoConnection(t, 600*time.Millisecond)

	_, ok = svc.GetTracker().Get("call-e2e")
	assert.False(t, ok, "tracker entry should be gone after teardown")
	assert.Equal(t, 0, len(transcripts), "no further messages after teardown")
}

func TestCallService_StopCallIdempotent(t *testing.T) {
	backend := newTestBackend(t)
	svc := newTestService(t, backend.wsURL())

	startTestCall(t, svc, "call-stop")
	bc := backend.accept(t, 2*time.Second)
	bc.awaitFrame(t, stream.FrameInit)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.StopCall("call-stop", domain.CallStatusCompleted)
		}()
	}
	wg.Wait()
	svc.StopCall("call-stop", domain.CallStatusCompleted)

	assert.Equal(t, 1, bc.countFrames(400*time.Millisecond, stream.FrameStop))
	assert.Equal(t, 0, svc.GetSessionCount())

	_, ok := svc.GetTracker().Get("call-stop")
	assert.False(t, ok)
}

func TestCallService_DuplicateStartRejected(t *testing.T) {
	backend := newTestBackend(t)
	svc := newTestService(t, backend.wsURL())

	startTestCall(t, svc, "call-dup")
	backend.accept(t, 2*time.Second)

	_, err := svc.StartCall(context.Background(), StartCallRequest{
		CallID:   "call-dup",
		TenantID: "tenant-1",
		Token:    "test-token",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already active")
	assert.Equal(t, 1, svc.GetSessionCount())
}

func TestCallService_SessionLimit(t *testing.T) {
	backend := newTestBackend(t)
	svc := newTestService(t, backend.wsURL())
	svc.SetMaxSessions(1)

	startTestCall(t, svc, "call-first")
	backend.accept(t, 2*time.Second)

	_, err := svc.StartCall(context.Background(), StartCallRequest{
		CallID:   "call-overflow",
		TenantID: "tenant-1",
		Token:    "test-token",
	})
	require.ErrorIs(t, err, ErrSessionLimit)
	assert.Equal(t, 1, svc.GetSessionCount())

	_, ok := svc.GetTracker().Get("call-overflow")
	assert.False(t, ok)

	// Room frees up once the first call stops.
	svc.StopCall("call-first", domain.CallStatusCompleted)
	startTestCall(t, svc, "call-second")
	backend.accept(t, 2*time.Second)
	assert.Equal(t, 1, svc.GetSessionCount())
}

func TestCallService_StartFailureCleansUp(t *testing.T) {
	// Nothing listens on port 1, so the stream dial fails immediately.
	svc := newTestService(t, "ws://127.0.0.1:1")

	_, err := svc.StartCall(context.Background(), StartCallRequest{
		CallID:   "call-unreachable",
		TenantID: "tenant-1",
		Token:    "test-token",
	})
	require.Error(t, err)
	assert.Equal(t, 0, svc.GetSessionCount())

	_, ok := svc.GetTracker().Get("call-unreachable")
	assert.False(t, ok)

	_, err = svc.StartCall(context.Background(), StartCallRequest{})
	require.Error(t, err, "missing call ID must be rejected")
}

func TestCallService_CleanupExpiredSessions(t *testing.T) {
	backend := newTestBackend(t)
	svc := newTestService(t, backend.wsURL())

	sess := startTestCall(t, svc, "call-idle")
	bc := backend.accept(t, 2*time.Second)
	bc.awaitFrame(t, stream.FrameInit)

	assert.Equal(t, 0, svc.CleanupExpiredSessions(time.Minute))
	assert.Equal(t, 1, svc.GetSessionCount())

	sess.mutex.Lock()
	sess.lastActivity = time.Now().Add(-time.Hour)
	sess.mutex.Unlock()

	assert.Equal(t, 1, svc.CleanupExpiredSessions(time.Minute))
	assert.Equal(t, 0, svc.GetSessionCount())
	assert.Equal(t, 1, bc.countFrames(400*time.Millisecond, stream.FrameStop))
}

func TestCallService_HandleCallTask(t *testing.T) {
	backend := newTestBackend(t)
	svc := newTestService(t, backend.wsURL())

	// Tasks for calls owned by another instance are ignored.
	svc.handleCallTask(task.CallTask{Type: task.TaskTypeStopCall, CallID: "call-elsewhere"})
	svc.handleCallTask(task.CallTask{Type: task.TaskTypeAgentSay, CallID: "call-elsewhere", Payload: []byte(`{"text":"hi"}`)})

	startTestCall(t, svc, "call-task")
	bc := backend.accept(t, 2*time.Second)
	bc.awaitFrame(t, stream.FrameInit)

	payload, err := json.Marshal(task.AgentSayPayload{Text: "We found your booking"})
	require.NoError(t, err)
	svc.handleCallTask(task.CallTask{Type: task.TaskTypeAgentSay, CallID: "call-task", Payload: payload})

	frame := bc.awaitFrame(t, stream.FrameAgentMessage)
	assert.Equal(t, "We found your booking", frame["text"])

	// Malformed payloads are logged and dropped.
	svc.handleCallTask(task.CallTask{Type: task.TaskTypeAgentSay, CallID: "call-task", Payload: []byte("{")})

	svc.handleCallTask(task.CallTask{Type: task.TaskTypeStopCall, CallID: "call-task"})
	assert.Equal(t, 0, svc.GetSessionCount())
	assert.Equal(t, 1, bc.countFrames(400*time.Millisecond, stream.FrameStop))
}

func TestCallService_SendAgentMessage(t *testing.T) {
	backend := newTestBackend(t)
	svc := newTestService(t, backend.wsURL())

	require.Error(t, svc.SendAgentMessage("call-missing", "hello"))

	startTestCall(t, svc, "call-say")
	bc := backend.accept(t, 2*time.Second)
	bc.awaitFrame(t, stream.FrameInit)

	require.Error(t, svc.SendAgentMessage("call-say", "   "))
	require.NoError(t, svc.SendAgentMessage("call-say", "Your order has shipped"))

	frame := bc.awaitFrame(t, stream.FrameAgentMessage)
	assert.Equal(t, "call-say", frame["call_id"])
	assert.Equal(t, "Your order has shipped", frame["text"])
}

func TestCallService_RequestStopWithoutOwner(t *testing.T) {
	backend := newTestBackend(t)
	svc := newTestService(t, backend.wsURL())

	err := svc.RequestStop(context.Background(), "call-nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active session")

	// A locally owned call stops without touching the task bus.
	startTestCall(t, svc, "call-local")
	bc := backend.accept(t, 2*time.Second)
	bc.awaitFrame(t, stream.FrameInit)

	require.NoError(t, svc.RequestStop(context.Background(), "call-local"))
	assert.Equal(t, 0, svc.GetSessionCount())
	assert.Equal(t, 1, bc.countFrames(400*time.Millisecond, stream.FrameStop))
}

func TestCallService_SessionStats(t *testing.T) {
	backend := newTestBackend(t)
	svc := newTestService(t, backend.wsURL())

	_, err := svc.GetSessionStats("call-missing")
	require.Error(t, err)

	startTestCall(t, svc, "call-stats")
	bc := backend.accept(t, 2*time.Second)
	bc.awaitFrame(t, stream.FrameInit)

	bc.send(t, stream.StatusFrame{Type: stream.FrameCallStatusUpdate, CallID: "call-stats", Status: "answered"})
	assert.Eventually(t, func() bool {
		stats, err := svc.GetSessionStats("call-stats")
		return err == nil && stats.Status == domain.CallStatusAnswered
	}, 2*time.Second, 10*time.Millisecond)

	stats, err := svc.GetSessionStats("call-stats")
	require.NoError(t, err)
	assert.Equal(t, "call-stats", stats.CallID)
	assert.Equal(t, "tenant-1", stats.TenantID)
	assert.True(t, stats.Stream.Connected)
}
