// Package stream implements the client side of the vendor telephony stream:
// one WebSocket per active call, carrying JSON text frames tagged by a type
// discriminator. The client owns the socket lifecycle, including the single
// reconnect attempt scheduled per unexpected closure.
package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/errtrack"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers receives decoded frames and lifecycle notifications. Nil handlers
// are skipped. Handlers run on the read loop goroutine, so frames for one
// call are delivered in arrival order.
type Handlers struct {
	OnConnected    func(frame *ConnectedFrame)
	OnStatus       func(frame *StatusFrame)
	OnTranscript   func(sender domain.MessageSender, frame *TranscriptFrame)
	OnTTSAudio     func(payload []byte, frame *TTSAudioFrame)
	OnSpeechStart  func(frame *BoundaryFrame)
	OnUtteranceEnd func(frame *BoundaryFrame)
	OnStreamError  func(frame *ErrorFrame)
	OnDisconnected func(closeCode int, reconnecting bool)
	OnReconnected  func(attempt int)
}

// ClientStats is a snapshot of stream counters.
type ClientStats struct {
	Connected      bool      `json:"connected"`
	FramesReceived int64     `json:"frames_received"`
	Reconnects     int       `json:"reconnects"`
	LastPongAt     time.Time `json:"last_pong_at,omitempty"`
}

// Client is the stream connection for one call. It is owned exclusively by
// that call's session; there is no cross-call sharing.
type Client struct {
	cfg      *config.StreamConfig
	token    string
	callID   string
	language string
	model    string
	handlers Handlers

	writeMutex     sync.Mutex
	mutex          sync.RWMutex
	conn           *websocket.Conn
	reconnectTimer *time.Timer

	// stopped is the owned cancellation flag for this call: it is checked
	// before every timer-fired action and gates all writes.
	stopped        int32
	active         int32
	started        int32
	framesReceived int64
	reconnects     int32
	lastPongNano   int64
}

// NewClient creates a stream client for one call. The call is considered
// active until a terminal status frame arrives or Stop is called.
func NewClient(cfg *config.StreamConfig, token, callID, language, model string, handlers Handlers) *Client {
	return &Client{
		cfg:      cfg,
		token:    token,
		callID:   callID,
		language: language,
		model:    model,
		handlers: handlers,
		active:   1,
	}
}

// Start opens the stream, sends the init frame and begins dispatching. It
// reports success as a boolean: connect failures and timeouts are tracked
// and logged so the caller can surface them and retry manually.
func (c *Client) Start(ctx context.Context) bool {
	if atomic.LoadInt32(&c.stopped) == 1 {
		logger.Base().Warn("Start called on stopped stream", zap.String("call_id", c.callID))
		return false
	}
	if !atomic.CompareAndSwapInt32(&c.started, 0, 1) {
		logger.Base().Debug("Stream already started", zap.String("call_id", c.callID))
		return true
	}

	conn, err := c.dial(ctx)
	if err != nil {
		atomic.StoreInt32(&c.started, 0)
		errtrack.Track(errtrack.CategoryConnection, c.callID, err)
		logger.Base().Error("Failed to open telephony stream", zap.String("call_id", c.callID), zap.Error(err))
		return false
	}

	if err := c.attach(conn); err != nil {
		conn.Close()
		atomic.StoreInt32(&c.started, 0)
		errtrack.Track(errtrack.CategoryConnection, c.callID, err)
		logger.Base().Error("Failed to initialize telephony stream", zap.String("call_id", c.callID), zap.Error(err))
		return false
	}

	return true
}

// Stop ends the stream. Only the first call sends the stop frame and closes
// the socket; a pending reconnect timer is cleared before it can fire.
func (c *Client) Stop() {
	if !atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		return
	}

	c.mutex.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mutex.Unlock()

	if conn == nil {
		logger.Base().Info("Telephony stream stopped before connect", zap.String("call_id", c.callID))
		return
	}

	if err := c.writeJSON(conn, StopFrame{Type: FrameStop, CallID: c.callID}); err != nil {
		logger.Base().Debug("Stop frame write failed", zap.String("call_id", c.callID), zap.Error(err))
	}

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "operator stop"), deadline); err != nil {
		logger.Base().Debug("Close message write failed", zap.String("call_id", c.callID), zap.Error(err))
	}
	conn.Close()

	logger.Base().Info("Telephony stream stopped", zap.String("call_id", c.callID))
}

// SendAgentMessage injects an agent text message into the call.
func (c *Client) SendAgentMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("agent message cannot be empty")
	}

	conn, err := c.liveConn()
	if err != nil {
		return err
	}
	return c.writeJSON(conn, AgentMessageFrame{Type: FrameAgentMessage, CallID: c.callID, Text: text})
}

// SendAudio sends one captured audio segment upstream, base64 encoded.
func (c *Client) SendAudio(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	conn, err := c.liveConn()
	if err != nil {
		return err
	}
	return c.writeJSON(conn, AudioFrame{Type: FrameAudio, Audio: base64.StdEncoding.EncodeToString(payload)})
}

// CallID returns the call this stream belongs to.
func (c *Client) CallID() string {
	return c.callID
}

// IsStopped reports whether Stop has been called.
func (c *Client) IsStopped() bool {
	return atomic.LoadInt32(&c.stopped) == 1
}

// IsConnected reports whether a socket is currently attached.
func (c *Client) IsConnected() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.conn != nil
}

// GetStats returns a snapshot of the stream counters.
func (c *Client) GetStats() ClientStats {
	stats := ClientStats{
		Connected:      c.IsConnected(),
		FramesReceived: atomic.LoadInt64(&c.framesReceived),
		Reconnects:     int(atomic.LoadInt32(&c.reconnects)),
	}
	if nano := atomic.LoadInt64(&c.lastPongNano); nano > 0 {
		stats.LastPongAt = time.Unix(0, nano)
	}
	return stats
}

func (c *Client) streamURL() string {
	q := url.Values{}
	q.Set("token", c.token)
	q.Set("call_id", c.callID)
	if c.language != "" {
		q.Set("language", c.language)
	}
	if c.model != "" {
		q.Set("model", c.model)
	}
	return c.cfg.WSBaseURL + c.cfg.StreamPath + "?" + q.Encode()
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(dialCtx, c.streamURL(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stream dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("stream dial failed: %w", err)
	}
	if c.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(c.cfg.MaxMessageBytes)
	}
	return conn, nil
}

// attach stores the socket, sends the init frame and starts the read and
// ping loops. The stopped flag is re-checked under the lock so a reconnect
// that lost the race to Stop cannot revive the stream.
func (c *Client) attach(conn *websocket.Conn) error {
	c.mutex.Lock()
	if atomic.LoadInt32(&c.stopped) == 1 {
		c.mutex.Unlock()
		return fmt.Errorf("stream is stopped")
	}
	c.conn = conn
	c.mutex.Unlock()

	init := InitFrame{Type: FrameInit, CallID: c.callID, Language: c.language, Model: c.model}
	if err := c.writeJSON(conn, init); err != nil {
		c.mutex.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mutex.Unlock()
		return fmt.Errorf("failed to send init frame: %w", err)
	}

	done := make(chan struct{})
	go c.readLoop(conn, done)
	go c.pingLoop(conn, done)

	logger.Base().Info("Telephony stream connected",
		zap.String("call_id", c.callID),
		zap.String("language", c.language),
		zap.String("model", c.model))
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClosure(err)
			return
		}
		atomic.AddInt64(&c.framesReceived, 1)
		c.dispatch(data)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done chan struct{}) {
	if c.cfg.PingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if atomic.LoadInt32(&c.stopped) == 1 {
				return
			}
			if err := c.writeJSON(conn, PingFrame{Type: FramePing, Timestamp: time.Now().UnixMilli()}); err != nil {
				logger.Base().Debug("Ping write failed", zap.String("call_id", c.callID), zap.Error(err))
				return
			}
		}
	}
}

// dispatch routes one frame by its type discriminator. Malformed frames are
// tracked and dropped; they never kill the read loop.
func (c *Client) dispatch(data []byte) {
	var head frameHead
	if err := json.Unmarshal(data, &head); err != nil {
		errtrack.Track(errtrack.CategoryProtocol, c.callID, fmt.Errorf("undecodable frame: %w", err))
		logger.Base().Warn("Dropping undecodable frame", zap.String("call_id", c.callID), zap.Error(err))
		return
	}

	switch head.Type {
	case FrameTelephonyConnected:
		var frame ConnectedFrame
		if !c.decode(data, &frame) {
			return
		}
		logger.Base().Info("Telephony stream ready", zap.String("call_id", c.callID), zap.String("session_id", frame.SessionID))
		if c.handlers.OnConnected != nil {
			c.handlers.OnConnected(&frame)
		}

	case FrameCallStatusUpdate:
		var frame StatusFrame
		if !c.decode(data, &frame) {
			return
		}
		if domain.CallStatus(frame.Status).IsTerminal() {
			atomic.StoreInt32(&c.active, 0)
		}
		if c.handlers.OnStatus != nil {
			c.handlers.OnStatus(&frame)
		}

	case FrameCustomerTranscript:
		var frame TranscriptFrame
		if !c.decode(data, &frame) {
			return
		}
		if c.handlers.OnTranscript != nil {
			c.handlers.OnTranscript(domain.MessageSenderCustomer, &frame)
		}

	case FrameAgentTranscript:
		var frame TranscriptFrame
		if !c.decode(data, &frame) {
			return
		}
		if c.handlers.OnTranscript != nil {
			c.handlers.OnTranscript(domain.MessageSenderAgent, &frame)
		}

	case FrameAgentTTSAudio:
		var frame TTSAudioFrame
		if !c.decode(data, &frame) {
			return
		}
		payload, err := base64.StdEncoding.DecodeString(frame.Audio)
		if err != nil {
			errtrack.Track(errtrack.CategoryProtocol, c.callID, fmt.Errorf("undecodable tts audio: %w", err))
			logger.Base().Warn("Dropping TTS segment with invalid base64", zap.String("call_id", c.callID), zap.Error(err))
			return
		}
		if c.handlers.OnTTSAudio != nil {
			c.handlers.OnTTSAudio(payload, &frame)
		}

	case FrameSpeechStart:
		var frame BoundaryFrame
		if !c.decode(data, &frame) {
			return
		}
		if c.handlers.OnSpeechStart != nil {
			c.handlers.OnSpeechStart(&frame)
		}

	case FrameUtteranceEnd:
		var frame BoundaryFrame
		if !c.decode(data, &frame) {
			return
		}
		if c.handlers.OnUtteranceEnd != nil {
			c.handlers.OnUtteranceEnd(&frame)
		}

	case FrameTelephonyError:
		var frame ErrorFrame
		if !c.decode(data, &frame) {
			return
		}
		errtrack.Track(errtrack.CategoryProtocol, c.callID, fmt.Errorf("backend error %s: %s", frame.Code, frame.Message))
		logger.Base().Error("Telephony backend error",
			zap.String("call_id", c.callID),
			zap.String("code", frame.Code),
			zap.String("message", frame.Message))
		if c.handlers.OnStreamError != nil {
			c.handlers.OnStreamError(&frame)
		}

	case FramePong:
		atomic.StoreInt64(&c.lastPongNano, time.Now().UnixNano())

	default:
		logger.Base().Debug("Ignoring unknown frame type", zap.String("call_id", c.callID), zap.String("type", head.Type))
	}
}

func (c *Client) decode(data []byte, v interface{}) bool {
	if err := json.Unmarshal(data, v); err != nil {
		errtrack.Track(errtrack.CategoryProtocol, c.callID, fmt.Errorf("malformed frame: %w", err))
		logger.Base().Warn("Dropping malformed frame", zap.String("call_id", c.callID), zap.Error(err))
		return false
	}
	return true
}

// handleClosure runs when the read loop ends. At most one reconnect attempt
// is scheduled per closure, and only while the call is still active and the
// operator has not stopped the stream.
func (c *Client) handleClosure(err error) {
	code := closeCode(err)

	if atomic.LoadInt32(&c.stopped) == 1 {
		logger.Base().Info("Telephony stream closed", zap.String("call_id", c.callID))
		c.notifyDisconnected(code, false)
		return
	}

	if atomic.LoadInt32(&c.active) == 0 {
		logger.Base().Info("Telephony stream closed after call end", zap.String("call_id", c.callID), zap.Int("close_code", code))
		c.clearConn()
		c.notifyDisconnected(code, false)
		return
	}

	errtrack.Track(errtrack.CategoryConnection, c.callID, fmt.Errorf("stream closed with code %d: %v", code, err))

	delay := c.cfg.ReconnectDelayNormal
	if abnormalClose(code) {
		delay = c.cfg.ReconnectDelayAbnormal
	}

	logger.Base().Warn("Telephony stream lost, scheduling reconnect",
		zap.String("call_id", c.callID),
		zap.Int("close_code", code),
		zap.Duration("delay", delay))

	c.mutex.Lock()
	c.conn = nil
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(delay, c.reconnect)
	c.mutex.Unlock()

	c.notifyDisconnected(code, true)
}

// reconnect is timer-fired: the stopped flag decides whether it still runs.
func (c *Client) reconnect() {
	if atomic.LoadInt32(&c.stopped) == 1 || atomic.LoadInt32(&c.active) == 0 {
		return
	}

	attempt := int(atomic.AddInt32(&c.reconnects, 1))
	logger.Base().Info("Reconnecting telephony stream", zap.String("call_id", c.callID), zap.Int("attempt", attempt))

	conn, err := c.dial(context.Background())
	if err != nil {
		errtrack.Track(errtrack.CategoryConnection, c.callID, err)
		logger.Base().Error("Reconnect failed", zap.String("call_id", c.callID), zap.Error(err))
		return
	}

	if err := c.attach(conn); err != nil {
		conn.Close()
		errtrack.Track(errtrack.CategoryConnection, c.callID, err)
		logger.Base().Error("Reconnect initialization failed", zap.String("call_id", c.callID), zap.Error(err))
		return
	}

	if c.handlers.OnReconnected != nil {
		c.handlers.OnReconnected(attempt)
	}
}

func (c *Client) liveConn() (*websocket.Conn, error) {
	if atomic.LoadInt32(&c.stopped) == 1 {
		return nil, fmt.Errorf("stream is stopped")
	}

	c.mutex.RLock()
	conn := c.conn
	c.mutex.RUnlock()

	if conn == nil {
		return nil, fmt.Errorf("stream is not connected")
	}
	return conn, nil
}

func (c *Client) clearConn() {
	c.mutex.Lock()
	c.conn = nil
	c.mutex.Unlock()
}

func (c *Client) writeJSON(conn *websocket.Conn, v interface{}) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func (c *Client) notifyDisconnected(code int, reconnecting bool) {
	if c.handlers.OnDisconnected != nil {
		c.handlers.OnDisconnected(code, reconnecting)
	}
}

func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}

// abnormalClose treats anything other than a clean normal or going-away
// close as abnormal for backoff purposes.
func abnormalClose(code int) bool {
	return code != websocket.CloseNormalClosure && code != websocket.CloseGoingAway
}
