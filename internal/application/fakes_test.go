package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"unified-control/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingLink is an in-memory DeviceLink.
type recordingLink struct {
	mu       sync.Mutex
	role     domain.Role
	state    domain.LinkState
	sent     []string
	sendErr  error
	closes   int
	closeErr error
}

func newRecordingLink(role domain.Role) *recordingLink {
	return &recordingLink{role: role, state: domain.LinkConnected}
}

func (l *recordingLink) Role() domain.Role { return l.role }

func (l *recordingLink) State() domain.LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *recordingLink) Send(payload string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != domain.LinkConnected {
		return domain.ErrLinkUnavailable
	}
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, payload)
	return nil
}

func (l *recordingLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	l.state = domain.LinkClosed
	return l.closeErr
}

func (l *recordingLink) payloads() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sent...)
}

// scriptedSource replays fixed commands, then reports io.EOF.
type scriptedSource struct {
	commands []string
	index    int
	started  bool
	stopped  bool
}

func (s *scriptedSource) Start(_ context.Context) error { s.started = true; return nil }
func (s *scriptedSource) Stop() error                   { s.stopped = true; return nil }
func (s *scriptedSource) Name() string                  { return "scripted" }

func (s *scriptedSource) NextCommand(_ context.Context) (string, error) {
	if s.index >= len(s.commands) {
		return "", io.EOF
	}
	cmd := s.commands[s.index]
	s.index++
	return cmd, nil
}

type countingRecorder struct {
	mu         sync.Mutex
	dispatches map[domain.DispatchKind]int
	sends      map[domain.SendOutcome]int
	dropped    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		dispatches: make(map[domain.DispatchKind]int),
		sends:      make(map[domain.SendOutcome]int),
	}
}

func (r *countingRecorder) RecordDispatch(kind domain.DispatchKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches[kind]++
}

func (r *countingRecorder) RecordSend(_ domain.Role, outcome domain.SendOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends[outcome]++
}

func (r *countingRecorder) RecordInbox(_ domain.Role, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !accepted {
		r.dropped++
	}
}
