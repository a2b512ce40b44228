// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind distinguishes stream events.
type EventKind int

const (
	// EventChunk carries one non-empty fragment of assistant text.
	EventChunk EventKind = iota

	// EventDone ends the stream successfully.
	EventDone

	// EventError ends the stream with Err set.
	EventError
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventChunk:
		return "chunk"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one step of a stream. A stream yields zero or more chunks
// followed by exactly one Done or Error, unless it is cancelled, in which
// case it yields nothing further.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// IsTerminal reports whether the event ends the stream.
func (e Event) IsTerminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is an in-flight streaming generation.
type Stream struct {
	events chan Event
	cancel context.CancelFunc
	once   sync.Once
}

// Events returns the event channel. It is closed after the terminal event
// or after cancellation.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Cancel aborts the stream. It is idempotent and safe after completion.
// No error event is produced by cancellation. A receive that races with
// Cancel may still yield one event before the channel closes; callers that
// need a hard cutoff use StreamFunc or discard events after cancelling.
func (s *Stream) Cancel() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Stream starts a streaming generation and returns immediately. Without an
// API key the stream yields a single ConfigError and Cancel does nothing.
func (c *Client) Stream(ctx context.Context, r Request) *Stream {
	if !c.IsConfigured() {
		events := make(chan Event, 1)
		events <- Event{Kind: EventError, Err: MissingKeyError()}
		close(events)
		return &Stream{events: events}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		events: make(chan Event),
		cancel: cancel,
	}
	go c.run(ctx, r, s.events)
	return s
}

// run performs the request and feeds events until a terminal event or
// cancellation.
func (c *Client) run(ctx context.Context, r Request, events chan<- Event) {
	defer close(events)

	emit := func(ev Event) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case events <- ev:
			return true
		}
	}
	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		emit(Event{Kind: EventError, Err: err})
	}

	resp, err := c.post(ctx, c.streamClient, r.body(true))
	if err != nil {
		fail(transportError(err))
		return
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body, _ := readResponse(resp)
		apiErr := errorFromResponse(resp.StatusCode, body)
		c.logger.Warn("chat stream rejected", "status", resp.StatusCode, "error", apiErr.Message)
		fail(apiErr)
		return
	}

	frames := newFrameReader(resp.Body)
	for {
		payload, err := frames.Next()
		if err == io.EOF {
			// Body closed without the sentinel.
			emit(Event{Kind: EventDone})
			return
		}
		if err != nil {
			fail(transportError(err))
			return
		}

		if payload == doneSentinel {
			emit(Event{Kind: EventDone})
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			perr := &ParseError{Frame: payload, Err: err}
			c.logger.Warn("skipping stream frame", "error", perr)
			continue
		}
		if text := chunk.content(); text != "" {
			if !emit(Event{Kind: EventChunk, Text: text}) {
				return
			}
		}
	}
}

// =============================================================================
// CALLBACK FORM
// =============================================================================

// Handlers receive the events of a callback-form stream. Nil handlers are
// skipped. Handlers run on a single goroutine, one at a time.
type Handlers struct {
	OnChunk func(text string)
	OnError func(err error)
	OnDone  func()
}

func (hs Handlers) call(ev Event) {
	switch ev.Kind {
	case EventChunk:
		if hs.OnChunk != nil {
			hs.OnChunk(ev.Text)
		}
	case EventDone:
		if hs.OnDone != nil {
			hs.OnDone()
		}
	case EventError:
		if hs.OnError != nil {
			hs.OnError(ev.Err)
		}
	}
}

// Handle controls a callback-form stream.
type Handle struct {
	stream *Stream

	// mu is held while a handler runs. Cancel takes it to wait out a
	// handler started before the cancellation.
	mu         sync.Mutex
	cancelled  atomic.Bool
	dispatcher atomic.Uint64
	finished   chan struct{}
}

// StreamFunc starts a streaming generation and dispatches its events to h.
// Without an API key OnError is called before StreamFunc returns and the
// returned handle's Cancel does nothing.
func (c *Client) StreamFunc(ctx context.Context, r Request, h Handlers) *Handle {
	if !c.IsConfigured() {
		if h.OnError != nil {
			h.OnError(MissingKeyError())
		}
		done := make(chan struct{})
		close(done)
		return &Handle{finished: done}
	}

	hd := &Handle{stream: c.Stream(ctx, r), finished: make(chan struct{})}
	go hd.dispatch(h)
	return hd
}

func (h *Handle) dispatch(hs Handlers) {
	defer close(h.finished)
	h.dispatcher.Store(goroutineID())
	for ev := range h.stream.Events() {
		h.deliver(hs, ev)
	}
}

func (h *Handle) deliver(hs Handlers, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled.Load() {
		return
	}
	hs.call(ev)
}

// Cancel aborts the stream. When Cancel returns no handler is running and
// none will be started, except the handler Cancel was called from. It is
// idempotent and may be called from inside a handler.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
	if h.stream == nil {
		return
	}
	h.stream.Cancel()
	if h.dispatcher.Load() == goroutineID() {
		return
	}
	h.mu.Lock()
	h.mu.Unlock()
}

// Wait blocks until the stream has ended and its last handler returned.
func (h *Handle) Wait() {
	<-h.finished
}

// goroutineID returns the id of the calling goroutine, parsed from the
// "goroutine N [state]:" header of its stack trace.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
