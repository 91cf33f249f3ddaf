package transcript

import (
	"testing"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(timeout time.Duration) *config.TranscriptConfig {
	return &config.TranscriptConfig{
		SilenceTimeout: timeout,
		TerminalRunes:  config.DefaultTerminalRunes,
		Separator:      " ",
		InsertPeriod:   true,
	}
}

func TestJoinPolicy_Join(t *testing.T) {
	policy := DefaultJoinPolicy()

	tests := []struct {
		name     string
		buffer   string
		fragment string
		want     string
	}{
		{"unterminated buffer gets period", "Hello", "there", "Hello. there"},
		{"period already present", "Hello.", "there", "Hello. there"},
		{"exclamation counts as terminal", "Hi!", "there", "Hi! there"},
		{"question mark counts as terminal", "Ready?", "Yes", "Ready? Yes"},
		{"cjk full stop counts as terminal", "你好。", "是的", "你好。 是的"},
		{"empty buffer takes fragment as-is", "", "Hello", "Hello"},
		{"whitespace fragment leaves buffer unchanged", "Hello", "   ", "Hello"},
		{"fragment whitespace trimmed", "Hello", "  there  ", "Hello. there"},
		{"trailing buffer space ignored for terminal check", "Done. ", "Next", "Done.  Next"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Join(tt.buffer, tt.fragment))
		})
	}
}

func TestJoinPolicy_NoPeriodInsertion(t *testing.T) {
	policy := JoinPolicy{TerminalRunes: ".", Separator: " ", InsertPeriod: false}
	assert.Equal(t, "Hello there", policy.Join("Hello", "there"))
}

func TestAccumulator_OneMessagePerSpeakerRun(t *testing.T) {
	flushes := make(chan Message, 8)
	acc := NewAccumulator("call-1", testConfig(time.Minute), func(msg Message) {
		flushes <- msg
	})

	acc.Add(Fragment{Sender: "customer", Text: "Hello", Confidence: 0.9})
	acc.Add(Fragment{Sender: "customer", Text: "there", Confidence: 0.7})

	// Same-speaker fragments must not flush on their own.
	select {
	case msg := <-flushes:
		t.Fatalf("unexpected flush before speaker change: %+v", msg)
	default:
	}

	acc.Add(Fragment{Sender: "agent", Text: "Hi, how can I help?", Confidence: 1})

	var first Message
	select {
	case first = <-flushes:
	default:
		t.Fatal("expected flush on speaker change")
	}
	require.Equal(t, "customer", first.Sender)
	require.Equal(t, "Hello. there", first.Content)
	assert.Equal(t, FlushSpeakerChange, first.Reason)
	assert.Equal(t, 2, first.Fragments)
	assert.InDelta(t, 0.8, first.Confidence, 1e-9)

	acc.Close()

	var second Message
	select {
	case second = <-flushes:
	default:
		t.Fatal("expected flush on close")
	}
	require.Equal(t, "agent", second.Sender)
	require.Equal(t, "Hi, how can I help?", second.Content)
	assert.Equal(t, FlushClose, second.Reason)
}

func TestAccumulator_SilenceTimeoutFlushes(t *testing.T) {
	flushes := make(chan Message, 1)
	acc := NewAccumulator("call-1", testConfig(50*time.Millisecond), func(msg Message) {
		flushes <- msg
	})
	defer acc.Close()

	acc.Add(Fragment{Sender: "customer", Text: "Hello", AudioStartMs: 100, AudioEndMs: 400})
	acc.Add(Fragment{Sender: "customer", Text: "there", AudioStartMs: 450, AudioEndMs: 900})

	select {
	case msg := <-flushes:
		require.Equal(t, "Hello. there", msg.Content)
		require.Equal(t, FlushSilence, msg.Reason)
		assert.Equal(t, int64(100), msg.AudioStartMs)
		assert.Equal(t, int64(900), msg.AudioEndMs)
	case <-time.After(time.Second):
		t.Fatal("expected silence flush")
	}

	_, open := acc.Pending()
	assert.False(t, open, "buffer should be reset after flush")
}

func TestAccumulator_WhitespaceFragmentsDoNotResetTimer(t *testing.T) {
	flushes := make(chan Message, 1)
	acc := NewAccumulator("call-1", testConfig(200*time.Millisecond), func(msg Message) {
		flushes <- msg
	})
	defer acc.Close()

	acc.Add(Fragment{Sender: "customer", Text: "Hello"})
	time.Sleep(100 * time.Millisecond)
	acc.Add(Fragment{Sender: "customer", Text: "   "})

	// If the whitespace fragment had re-armed the timer, the flush would
	// land at ~300ms instead of ~200ms after the first fragment.
	select {
	case msg := <-flushes:
		require.Equal(t, "Hello", msg.Content)
		require.Equal(t, 1, msg.Fragments)
	case <-time.After(160 * time.Millisecond):
		t.Fatal("silence timer was reset by a whitespace fragment")
	}
}

func TestAccumulator_WhitespaceNeverOpensBuffer(t *testing.T) {
	flushes := make(chan Message, 1)
	acc := NewAccumulator("call-1", testConfig(30*time.Millisecond), func(msg Message) {
		flushes <- msg
	})

	acc.Add(Fragment{Sender: "customer", Text: "\t "})
	_, open := acc.Pending()
	assert.False(t, open)

	time.Sleep(80 * time.Millisecond)
	acc.Close()

	select {
	case msg := <-flushes:
		t.Fatalf("unexpected flush: %+v", msg)
	default:
	}
}

func TestAccumulator_CloseIsIdempotentAndStopsIntake(t *testing.T) {
	flushes := make(chan Message, 4)
	acc := NewAccumulator("call-1", testConfig(time.Minute), func(msg Message) {
		flushes <- msg
	})

	acc.Add(Fragment{Sender: "agent", Text: "Goodbye"})
	acc.Close()
	acc.Close()
	acc.Add(Fragment{Sender: "customer", Text: "late fragment"})

	require.Len(t, flushes, 1)
	msg := <-flushes
	assert.Equal(t, "Goodbye", msg.Content)
	assert.Equal(t, FlushClose, msg.Reason)
}
