package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anoixa/eatinator/cache/memory"
	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelay(t *testing.T, handler http.HandlerFunc, opts Options) *Relay {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts.Endpoint = srv.URL
	if opts.Model == "" {
		opts.Model = "test-model"
	}
	return NewRelay(opts, nil, nil)
}

func decodeRequest(t *testing.T, r *http.Request) generateRequest {
	var req generateRequest
	assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestDecodeContext(t *testing.T) {
	cc := DecodeContext(map[string]interface{}{
		"language":   "DE",
		"restaurant": "Eurest",
		"date":       "2024-01-15",
		"items":      []interface{}{map[string]interface{}{"name": "Pasta", "price": 7.5}, "Salat", map[string]interface{}{"name": " "}},
		"unexpected": true,
	})

	assert.Equal(t, "de", cc.Language)
	assert.Equal(t, "Eurest", cc.Restaurant)
	assert.Equal(t, "lunch", cc.Category)
	assert.Equal(t, []MenuItem{{Name: "Pasta"}, {Name: "Salat"}}, cc.Items)
}

func TestDecodeContext_Defaults(t *testing.T) {
	assert.Equal(t, DefaultContext(), DecodeContext(nil))

	cc := DecodeContext(map[string]interface{}{"language": "it"})
	assert.Equal(t, LangEnglish, cc.Language)

	cc = DecodeContext(map[string]interface{}{"items": 42})
	assert.Equal(t, DefaultContext(), cc)
}

func TestSystemInstruction(t *testing.T) {
	withMenu := SystemInstruction(ChatContext{
		Language:   LangEnglish,
		Restaurant: "Eurest",
		Category:   "lunch",
		Items:      []MenuItem{{Name: "Pasta"}, {Name: "Curry"}},
	})
	assert.Contains(t, withMenu, `You are a personal menu advisor for "Eurest".`)
	assert.Contains(t, withMenu, "Today's dishes (lunch): Pasta, Curry")

	empty := SystemInstruction(ChatContext{Language: LangGerman, Restaurant: "R", Category: "dinner", Date: "2024-01-15"})
	assert.Contains(t, empty, "Keine Menüdaten verfügbar für dinner am 2024-01-15")

	fr := SystemInstruction(ChatContext{Language: LangFrench, Restaurant: "R", Category: "lunch", Items: []MenuItem{{Name: "Quiche"}}})
	assert.Contains(t, fr, "Plats du jour (lunch): Quiche")
}

func TestFallbackMessage(t *testing.T) {
	assert.True(t, strings.HasPrefix(FallbackMessage("de"), "Entschuldigung"))
	assert.True(t, strings.HasPrefix(FallbackMessage("fr"), "Désolé"))
	assert.True(t, strings.HasPrefix(FallbackMessage("xx"), "Sorry"))
}

func TestAsk_Success(t *testing.T) {
	relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "What is vegan?", req.Prompt)
		assert.Contains(t, req.System, "Today's dishes (lunch): Pasta")
		assert.Equal(t, 300, req.Options.NumPredict)

		_ = json.NewEncoder(w).Encode(generateResponse{Response: "  Try the Pasta.  ", Done: true})
	}, Options{})

	cc := DefaultContext()
	cc.Items = []MenuItem{{Name: "Pasta"}}
	answer, err := relay.Ask(context.Background(), "What is vegan?", cc)
	require.NoError(t, err)
	assert.Equal(t, "Try the Pasta.", answer)
}

func TestAsk_InvalidMessage(t *testing.T) {
	relay := NewRelay(Options{Endpoint: "http://127.0.0.1:1"}, nil, nil)
	_, err := relay.Ask(context.Background(), "   ", DefaultContext())
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = relay.Ask(context.Background(), strings.Repeat("a", MaxMessageLength+1), DefaultContext())
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestAsk_Errors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}, Options{})
		_, err := relay.Ask(context.Background(), "hi", DefaultContext())
		assert.ErrorIs(t, err, apperr.ErrRelayUnreachable)
	})

	t.Run("empty answer", func(t *testing.T) {
		relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(generateResponse{Response: " ", Done: true})
		}, Options{})
		_, err := relay.Ask(context.Background(), "hi", DefaultContext())
		assert.ErrorIs(t, err, apperr.ErrRelayUnreachable)
	})

	t.Run("timeout", func(t *testing.T) {
		relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}, Options{Timeout: 50 * time.Millisecond})
		_, err := relay.Ask(context.Background(), "hi", DefaultContext())
		assert.ErrorIs(t, err, apperr.ErrRelayTimeout)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		endpoint := srv.URL
		srv.Close()

		relay := NewRelay(Options{Endpoint: endpoint}, nil, nil)
		_, err := relay.Ask(context.Background(), "hi", DefaultContext())
		assert.ErrorIs(t, err, apperr.ErrRelayUnreachable)
	})
}

func TestAsk_Cache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: fmt.Sprintf("answer %d", n), Done: true})
	}))
	defer srv.Close()

	mem, err := memory.NewMemory(memory.DefaultConfig())
	require.NoError(t, err)
	defer mem.Close()

	relay := NewRelay(Options{Endpoint: srv.URL, CacheTTL: time.Minute}, mem, nil)
	ctx := context.Background()

	first, err := relay.Ask(ctx, "hi", DefaultContext())
	require.NoError(t, err)
	second, err := relay.Ask(ctx, "hi", DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	other := DefaultContext()
	other.Language = LangGerman
	_, err = relay.Ask(ctx, "hi", other)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAsk_SharedCallSurvivesCallerCancel(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "Soup", Done: true})
	}, Options{Timeout: 5 * time.Second})

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := relay.Ask(leaderCtx, "what is good?", DefaultContext())
		leaderErr <- err
	}()
	<-started

	type result struct {
		answer string
		err    error
	}
	follower := make(chan result, 1)
	go func() {
		answer, err := relay.Ask(context.Background(), "what is good?", DefaultContext())
		follower <- result{answer, err}
	}()
	// 等待 follower 加入同一个共享调用
	time.Sleep(100 * time.Millisecond)

	cancelLeader()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, apperr.ErrRelayUnreachable)
	case <-time.After(2 * time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	close(release)
	select {
	case res := <-follower:
		require.NoError(t, res.err)
		assert.Equal(t, "Soup", res.answer)
	case <-time.After(3 * time.Second):
		t.Fatal("follower did not finish")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not finish")
			return out
		}
	}
}

func TestAskStream(t *testing.T) {
	relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.True(t, req.Stream)
		flusher := w.(http.Flusher)
		for _, line := range []string{
			`{"response":"Try ","done":false}`,
			`not json at all`,
			``,
			`{"response":"the soup","done":false}`,
			`{"response":"","done":true}`,
			`{"response":"ignored","done":false}`,
		} {
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	}, Options{})

	events, err := relay.AskStream(context.Background(), "hi", DefaultContext())
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, Event{Type: EventChunk, Text: "Try "}, got[0])
	assert.Equal(t, Event{Type: EventChunk, Text: "the soup"}, got[1])
	assert.Equal(t, EventDone, got[2].Type)
}

func TestAskStream_UpstreamError(t *testing.T) {
	relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"partial","done":false}`)
		fmt.Fprintln(w, `{"error":"model crashed"}`)
	}, Options{})

	events, err := relay.AskStream(context.Background(), "hi", DefaultContext())
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, EventChunk, got[0].Type)
	assert.Equal(t, EventError, got[1].Type)
	assert.ErrorIs(t, got[1].Err, apperr.ErrRelayUnreachable)
}

func TestAskStream_EOFWithoutDone(t *testing.T) {
	relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"partial","done":false}`)
	}, Options{})

	events, err := relay.AskStream(context.Background(), "hi", DefaultContext())
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, EventError, got[1].Type)
}

func TestAskStream_NonOK(t *testing.T) {
	relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, Options{})

	events, err := relay.AskStream(context.Background(), "hi", DefaultContext())
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].Err, apperr.ErrRelayUnreachable)
}

func TestAskStream_CancelClosesUpstream(t *testing.T) {
	upstreamDone := make(chan struct{})
	relay := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		defer close(upstreamDone)
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"response":"first","done":false}`)
		flusher.Flush()
		<-r.Context().Done()
	}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	events, err := relay.AskStream(ctx, "hi", DefaultContext())
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, "first", ev.Text)
	cancel()

	collect(t, events)
	select {
	case <-upstreamDone:
	case <-time.After(3 * time.Second):
		t.Fatal("upstream request was not canceled")
	}
}

func TestAskStream_InvalidMessage(t *testing.T) {
	relay := NewRelay(Options{}, nil, nil)
	_, err := relay.AskStream(context.Background(), "", DefaultContext())
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestHealth(t *testing.T) {
	healthy := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, 10, req.Options.NumPredict)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "Hello!", Done: true})
	}, Options{})

	status := healthy.Health(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "available", status.AIService)
	assert.Equal(t, "test-model", status.Model)
	assert.Empty(t, status.Error)

	broken := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, Options{})
	status = broken.Health(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unavailable", status.AIService)
	assert.Equal(t, "AI service is currently unavailable", status.Error)
}

func TestHealth_HidesUpstreamAddress(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	relay := NewRelay(Options{Endpoint: endpoint, Model: "test-model"}, nil, nil)
	status := relay.Health(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.NotContains(t, status.Error, endpoint)
	assert.NotContains(t, status.Error, "dial")
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "AI service timed out, please try again", PublicMessage(fmt.Errorf("%w: slow", apperr.ErrRelayTimeout)))
	assert.Equal(t, "AI service is currently unavailable", PublicMessage(fmt.Errorf("%w: Post \"http://x\"", apperr.ErrRelayUnreachable)))
}
