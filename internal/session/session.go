// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
)

var (
	// ErrEmptyMessage rejects a blank send.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy rejects a send while a reply is being generated.
	ErrBusy = errors.New("a reply is already being generated")
)

// =============================================================================
// STATE
// =============================================================================

// State is the session state.
type State int

const (
	Idle State = iota
	Generating
)

// String returns the state name.
func (s State) String() string {
	if s == Generating {
		return "generating"
	}
	return "idle"
}

// =============================================================================
// PORTS
// =============================================================================

// Streamer starts streaming generations. *cloud.Client implements it.
type Streamer interface {
	Stream(ctx context.Context, r cloud.Request) *cloud.Stream
}

// Persister saves a conversation. *storage.Manager implements it.
type Persister interface {
	Save(conv *model.Conversation) error
}

// =============================================================================
// SESSION
// =============================================================================

// Config holds the dependencies of a Session.
type Config struct {
	Conversation *model.Conversation
	Client       Streamer
	Store        Persister
	Settings     config.Settings

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Generation is one in-flight request.
type Generation struct {
	ID     uint64
	stream *cloud.Stream
}

// Events returns the stream's event channel.
func (g *Generation) Events() <-chan cloud.Event {
	return g.stream.Events()
}

// Result reports what Handle did with an event.
type Result struct {
	// Applied is false for events of a stale generation.
	Applied bool

	// Done is true when the event ended the generation.
	Done bool

	// Message is the committed assistant message, if any.
	Message *model.Message

	// Err is the stream error, or a persistence error on commit.
	Err error
}

// Session is the state machine for one conversation. Methods are safe to
// call from multiple goroutines, but events should be fed by one owner.
type Session struct {
	mu       sync.Mutex
	conv     *model.Conversation
	client   Streamer
	store    Persister
	settings config.Settings
	logger   *slog.Logger

	state   State
	active  *Generation
	nextID  uint64
	partial strings.Builder
	lastErr error
}

// New creates an idle session.
func New(cfg Config) *Session {
	conv := cfg.Conversation
	if conv == nil {
		conv = model.NewConversation()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		conv:     conv.Clone(),
		client:   cfg.Client,
		store:    cfg.Store,
		settings: cfg.Settings,
		logger:   logger.With("conversation", conv.ID),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generating reports whether a reply is in flight.
func (s *Session) Generating() bool {
	return s.State() == Generating
}

// Conversation returns a copy of the conversation.
func (s *Session) Conversation() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Clone()
}

// Partial returns the text accumulated for the current or last generation.
// After an error or Stop it still holds the uncommitted text.
func (s *Session) Partial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partial.String()
}

// LastError returns the error that ended the last generation, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Settings returns the settings the next Send will use.
func (s *Session) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the settings used by the next Send.
func (s *Session) SetSettings(settings config.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Send appends text as a user message, persists the conversation and
// starts a generation. Blank text, a busy session and a missing API key
// are rejected before anything is appended.
func (s *Session) Send(ctx context.Context, text string) (*Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.state == Generating {
		return nil, ErrBusy
	}
	if !s.settings.HasAPIKey() {
		return nil, cloud.MissingKeyError()
	}

	before := s.conv.Clone()
	s.conv.AddMessage(model.NewMessage(model.RoleUser, text))
	if s.store != nil {
		if err := s.store.Save(s.conv); err != nil {
			s.conv = before
			return nil, fmt.Errorf("failed to save conversation: %w", err)
		}
	}

	s.nextID++
	gen := &Generation{ID: s.nextID, stream: s.client.Stream(ctx, s.requestLocked())}
	s.active = gen
	s.state = Generating
	s.partial.Reset()
	s.lastErr = nil

	s.logger.Debug("generation started", "generation", gen.ID, "model", s.settings.Model, "messages", len(s.conv.Messages))
	return gen, nil
}

// requestLocked builds the prompt: the system prompt followed by the
// whole log.
func (s *Session) requestLocked() cloud.Request {
	msgs := make([]model.Message, 0, len(s.conv.Messages)+1)
	if prompt := strings.TrimSpace(s.settings.SystemPrompt); prompt != "" {
		msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: prompt})
	}
	msgs = append(msgs, s.conv.Messages...)

	return cloud.Request{
		Model:       s.settings.Model,
		Messages:    msgs,
		Temperature: s.settings.Temperature,
		MaxTokens:   s.settings.MaxTokens,
		Search:      s.settings.EnableSearch,
		Models:      s.settings.Models(),
	}
}

// Handle applies one event of gen. Events of any generation other than
// the active one are ignored.
func (s *Session) Handle(gen *Generation, ev cloud.Event) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen == nil || s.active == nil || s.active.ID != gen.ID {
		return Result{}
	}

	switch ev.Kind {
	case cloud.EventChunk:
		s.partial.WriteString(ev.Text)
		return Result{Applied: true}

	case cloud.EventDone:
		s.finishLocked()
		text := s.partial.String()
		if text == "" {
			s.logger.Debug("generation finished without content", "generation", gen.ID)
			return Result{Applied: true, Done: true}
		}
		msg := model.NewMessage(model.RoleAssistant, text)
		s.conv.AddMessage(msg)
		var err error
		if s.store != nil {
			if err = s.store.Save(s.conv); err != nil {
				s.logger.Error("failed to save reply", "error", err)
				err = fmt.Errorf("failed to save conversation: %w", err)
			}
		}
		s.logger.Debug("generation committed", "generation", gen.ID, "chars", len(text))
		return Result{Applied: true, Done: true, Message: &msg, Err: err}

	case cloud.EventError:
		s.finishLocked()
		s.lastErr = ev.Err
		s.logger.Warn("generation failed", "generation", gen.ID, "error", ev.Err)
		return Result{Applied: true, Done: true, Err: ev.Err}
	}
	return Result{}
}

// Stop cancels the active generation without committing anything.
// It is a no-op when idle.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return
	}
	s.active.stream.Cancel()
	s.logger.Debug("generation stopped", "generation", s.active.ID)
	s.finishLocked()
}

func (s *Session) finishLocked() {
	s.active = nil
	s.state = Idle
}

// Run sends text and drives the generation to completion on the calling
// goroutine. onChunk, if set, sees every applied fragment. The committed
// reply is returned; it is nil when the reply was empty. A cancelled
// context stops the generation and returns an error matching
// cloud.ErrAborted.
func (s *Session) Run(ctx context.Context, text string, onChunk func(string)) (*model.Message, error) {
	gen, err := s.Send(ctx, text)
	if err != nil {
		return nil, err
	}
	for ev := range gen.Events() {
		res := s.Handle(gen, ev)
		if !res.Applied {
			continue
		}
		if ev.Kind == cloud.EventChunk && onChunk != nil {
			onChunk(ev.Text)
		}
		if res.Done {
			return res.Message, res.Err
		}
	}
	s.Stop()
	return nil, fmt.Errorf("%w: %v", cloud.ErrAborted, context.Cause(ctx))
}
