package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/anoixa/eatinator/utils/logger"
	"go.uber.org/zap"
)

// EventType 流式事件类型
type EventType string

const (
	EventChunk EventType = "chunk"
	EventError EventType = "error"
	EventDone  EventType = "done"
)

// Event 流式事件，error 和 done 之后通道关闭
type Event struct {
	Type EventType
	Text string
	Err  error
}

// 单行 NDJSON 上限
const maxLineSize = 1 << 20

// AskStream 流式回答，ctx 取消时关闭上游连接
// 入参错误直接返回，上游错误以 EventError 送出
func (r *Relay) AskStream(ctx context.Context, message string, cc ChatContext) (<-chan Event, error) {
	if err := ValidateMessage(message); err != nil {
		return nil, err
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		result := r.stream(ctx, message, cc, events)
		r.metrics.AIRequest("stream", result)
	}()
	return events, nil
}

func (r *Relay) stream(parent context.Context, message string, cc ChatContext, events chan<- Event) string {
	ctx, cancel := context.WithTimeout(parent, r.opts.Timeout)
	defer cancel()

	// 调用方断开后不再投递
	send := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-parent.Done():
			return false
		}
	}
	fail := func(err error) string {
		send(Event{Type: EventError, Err: err})
		return "error"
	}

	resp, err := r.post(ctx, generateRequest{
		Model:  r.opts.Model,
		System: SystemInstruction(cc),
		Prompt: message,
		Stream: true,
		Options: generateOptions{
			NumPredict:  r.opts.MaxTokens,
			Temperature: r.opts.Temperature,
		},
	})
	if err != nil {
		if parent.Err() != nil {
			return "canceled"
		}
		return fail(err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var part generateResponse
		if err := json.Unmarshal(line, &part); err != nil {
			logger.Debug("[AI] Skipping malformed stream line", zap.Error(err))
			continue
		}
		if part.Error != "" {
			return fail(fmt.Errorf("%w: %s", apperr.ErrRelayUnreachable, part.Error))
		}
		if part.Response != "" {
			if !send(Event{Type: EventChunk, Text: part.Response}) {
				return "canceled"
			}
		}
		if part.Done {
			send(Event{Type: EventDone})
			return "ok"
		}
	}

	if parent.Err() != nil {
		return "canceled"
	}
	if ctx.Err() != nil {
		return fail(fmt.Errorf("%w: stream timed out", apperr.ErrRelayTimeout))
	}
	if err := scanner.Err(); err != nil {
		return fail(relayError(ctx, err))
	}
	return fail(fmt.Errorf("%w: stream ended unexpectedly", apperr.ErrRelayUnreachable))
}
