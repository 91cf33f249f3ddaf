package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/event"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/services/call"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	consoleWriteTimeout    = 5 * time.Second
	consoleMaxMessageBytes = 1 << 20
	consoleSendBuffer      = 128
)

var consoleUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Console frame types. The first group flows to the browser, the second
// group is accepted from it.
const (
	ConsoleFrameConnected    = "connected"
	ConsoleFrameStatus       = "status"
	ConsoleFrameTranscript   = "transcript"
	ConsoleFrameAudio        = "audio"
	ConsoleFrameSpeechStart  = "speech_start"
	ConsoleFrameUtteranceEnd = "utterance_end"
	ConsoleFrameError        = "error"
	ConsoleFrameEnded        = "ended"
	ConsoleFramePong         = "pong"

	ConsoleFrameAgentMessage = "agent_message"
	ConsoleFrameStop         = "stop"
	ConsoleFramePing         = "ping"
)

// ConsoleFrame is one JSON frame exchanged with the browser console. Type
// selects which of the remaining fields are set.
type ConsoleFrame struct {
	Type       string  `json:"type"`
	CallID     string  `json:"call_id,omitempty"`
	Status     string  `json:"status,omitempty"`
	Audio      string  `json:"audio,omitempty"`
	Sequence   int     `json:"sequence,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
	Text       string  `json:"text,omitempty"`
	Sender     string  `json:"sender,omitempty"`
	Content    string  `json:"content,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// ConsoleWSHandler attaches browser console WebSockets to active call sessions
type ConsoleWSHandler struct {
	service *call.CallService
}

// NewConsoleWSHandler creates a new console WebSocket handler
func NewConsoleWSHandler(service *call.CallService) *ConsoleWSHandler {
	return &ConsoleWSHandler{
		service: service,
	}
}

// StreamConsole godoc
// @Summary Attach a console WebSocket to an active call
// @Description Bridge a browser console onto a live call: agent TTS audio, transcripts and status changes flow out; caller audio, agent messages and stop commands flow in
// @Tags console
// @Param call_id path string true "Call ID"
// @Param token query string false "Console JWT (header auth is unavailable to browser WebSockets)"
// @Success 101 "Switching protocols"
// @Failure 404 {object} map[string]string "No active session for call"
// @Router /api/ws/console/{call_id} [get]
func (h *ConsoleWSHandler) StreamConsole(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID := vars["call_id"]

	// The relay only serves sessions owned by this instance. Remote sessions
	// are reachable through the REST surface, which broadcasts over the task
	// bus.
	sess := h.service.GetSession(callID)
	if sess == nil {
		http.Error(w, "No active session for call", http.StatusNotFound)
		return
	}

	conn, err := consoleUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Base().Warn("Console websocket upgrade failed",
			zap.String("call_id", callID),
			zap.Error(err))
		return
	}

	relay := &consoleRelay{
		service: h.service,
		sess:    sess,
		conn:    conn,
		send:    make(chan ConsoleFrame, consoleSendBuffer),
		done:    make(chan struct{}),
	}
	relay.run(r.Context())
}

// consoleRelay owns one console connection. All writes funnel through the
// send channel; the write pump is the only goroutine that touches the socket
// for writes.
type consoleRelay struct {
	service *call.CallService
	sess    *call.CallSession
	conn    *websocket.Conn
	send    chan ConsoleFrame
	done    chan struct{}

	subs      []string
	dropped   int64
	closeOnce sync.Once
}

// run blocks until the console disconnects or the call ends.
func (r *consoleRelay) run(ctx context.Context) {
	callID := r.sess.CallID

	r.subscribe()
	go r.writePump()
	go r.drainPlayback()

	// Opening frame mirrors the vendor handshake: the console learns the
	// current call status before any live traffic arrives.
	status := ""
	if state, ok := r.service.GetTracker().Get(callID); ok {
		status = string(state.Status)
	}
	r.enqueue(ConsoleFrame{Type: ConsoleFrameConnected, CallID: callID, Status: status})

	logger.Base().Info("Console attached to call",
		zap.String("call_id", callID),
		zap.String("remote_addr", r.conn.RemoteAddr().String()))

	r.readLoop(ctx)
	r.teardown()
}

// subscribe wires the relay onto the event bus, scoped to its call.
func (r *consoleRelay) subscribe() {
	bus := r.service.GetEventBus()
	callID := r.sess.CallID

	add := func(evType event.EventType, handler event.EventHandler) {
		id, err := bus.Subscribe(evType, handler)
		if err != nil {
			logger.Base().Warn("Console subscription failed",
				zap.String("event_type", string(evType)),
				zap.Error(err))
			return
		}
		r.subs = append(r.subs, id)
	}

	add(event.CallStatusChanged, func(ev *event.TelephonyEvent) {
		if ev.CallID != callID {
			return
		}
		if data, ok := ev.GetStatusData(); ok {
			r.enqueue(ConsoleFrame{Type: ConsoleFrameStatus, CallID: callID, Status: data.Current})
		}
	})

	add(event.TranscriptMessage, func(ev *event.TelephonyEvent) {
		if ev.CallID != callID {
			return
		}
		if data, ok := ev.GetTranscriptData(); ok {
			r.enqueue(ConsoleFrame{
				Type:       ConsoleFrameTranscript,
				CallID:     callID,
				Sender:     data.Sender,
				Content:    data.Content,
				Confidence: data.Confidence,
			})
		}
	})

	add(event.SpeechStarted, func(ev *event.TelephonyEvent) {
		if ev.CallID != callID {
			return
		}
		r.enqueue(ConsoleFrame{Type: ConsoleFrameSpeechStart, CallID: callID})
	})

	add(event.UtteranceEnded, func(ev *event.TelephonyEvent) {
		if ev.CallID != callID {
			return
		}
		r.enqueue(ConsoleFrame{Type: ConsoleFrameUtteranceEnd, CallID: callID})
	})

	add(event.StreamError, func(ev *event.TelephonyEvent) {
		if ev.CallID != callID {
			return
		}
		if data, ok := ev.GetStreamData(); ok {
			r.enqueue(ConsoleFrame{Type: ConsoleFrameError, CallID: callID, Message: data.Reason})
		}
	})

	add(event.CallEnded, func(ev *event.TelephonyEvent) {
		if ev.CallID != callID {
			return
		}
		// The write pump closes the socket after flushing this frame.
		r.enqueue(ConsoleFrame{Type: ConsoleFrameEnded, CallID: callID})
	})
}

// writePump is the single socket writer. An ended frame is flushed and then
// the connection is dropped.
func (r *consoleRelay) writePump() {
	for {
		select {
		case frame := <-r.send:
			r.conn.SetWriteDeadline(time.Now().Add(consoleWriteTimeout))
			if err := r.conn.WriteJSON(frame); err != nil {
				r.teardown()
				return
			}
			if frame.Type == ConsoleFrameEnded {
				r.teardown()
				return
			}
		case <-r.done:
			return
		}
	}
}

// drainPlayback forwards queued agent TTS segments to the console in arrival
// order.
func (r *consoleRelay) drainPlayback() {
	callID := r.sess.CallID
	for {
		select {
		case seg := <-r.sess.Playback.Drain():
			r.enqueue(ConsoleFrame{
				Type:       ConsoleFrameAudio,
				CallID:     callID,
				Audio:      base64.StdEncoding.EncodeToString(seg.Payload),
				Sequence:   seg.Sequence,
				DurationMs: seg.DurationMs,
			})
		case <-r.sess.Playback.Done():
			return
		case <-r.done:
			return
		}
	}
}

// enqueue hands a frame to the write pump. Event bus handlers must not
// stall, so a full queue drops the frame instead of blocking.
func (r *consoleRelay) enqueue(frame ConsoleFrame) {
	select {
	case r.send <- frame:
	case <-r.done:
	default:
		count := atomic.AddInt64(&r.dropped, 1)
		if count%100 == 1 {
			logger.Base().Warn("Console send queue full, dropping frame",
				zap.String("call_id", r.sess.CallID),
				zap.String("frame_type", frame.Type),
				zap.Int64("dropped", count))
		}
	}
}

// readLoop handles inbound console frames until the socket closes.
func (r *consoleRelay) readLoop(ctx context.Context) {
	r.conn.SetReadLimit(consoleMaxMessageBytes)
	callID := r.sess.CallID

	for {
		var frame ConsoleFrame
		if err := r.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Base().Debug("Console read error", zap.String("call_id", callID), zap.Error(err))
			}
			return
		}

		switch frame.Type {
		case ConsoleFrameAudio:
			payload, err := base64.StdEncoding.DecodeString(frame.Audio)
			if err != nil {
				logger.Base().Debug("Console sent invalid audio payload",
					zap.String("call_id", callID),
					zap.Error(err))
				continue
			}
			if err := r.service.ForwardCallerAudio(ctx, callID, payload); err != nil {
				logger.Base().Debug("Caller audio dropped", zap.String("call_id", callID), zap.Error(err))
			}
		case ConsoleFrameAgentMessage:
			if err := r.service.SendAgentMessage(callID, frame.Text); err != nil {
				r.enqueue(ConsoleFrame{Type: ConsoleFrameError, CallID: callID, Message: err.Error()})
			}
		case ConsoleFrameStop:
			if err := r.service.RequestStop(ctx, callID); err != nil {
				r.enqueue(ConsoleFrame{Type: ConsoleFrameError, CallID: callID, Message: err.Error()})
			}
		case ConsoleFramePing:
			r.enqueue(ConsoleFrame{Type: ConsoleFramePong})
		default:
			logger.Base().Debug("Unknown console frame type",
				zap.String("call_id", callID),
				zap.String("frame_type", frame.Type))
		}
	}
}

// teardown unsubscribes from the bus and closes the socket. Idempotent; the
// read loop, write pump and route handler can all race into it.
func (r *consoleRelay) teardown() {
	r.closeOnce.Do(func() {
		close(r.done)
		bus := r.service.GetEventBus()
		for _, id := range r.subs {
			if err := bus.Unsubscribe(id); err != nil {
				logger.Base().Debug("Console unsubscribe failed",
					zap.String("subscription_id", id),
					zap.Error(err))
			}
		}
		r.conn.Close()
		logger.Base().Info("Console detached from call", zap.String("call_id", r.sess.CallID))
	})
}

// SetupConsoleWSRoutes sets up the console WebSocket route
func (h *ConsoleWSHandler) SetupConsoleWSRoutes(router *mux.Router) {
	router.HandleFunc("/console/{call_id}", h.StreamConsole).Methods("GET")

	logger.Base().Info("Console websocket routes registered")
}
