package link

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"unified-control/internal/domain"
	"unified-control/internal/infra/serialport"
)

type Options struct {
	Serial serialport.Config

	// SettleDelay gives the firmware time to reboot after the port opens.
	SettleDelay time.Duration

	// HandshakeTimeout bounds the greeting drain for firmware that never
	// goes quiet.
	HandshakeTimeout time.Duration

	// PollInterval is the idle backoff between empty reads.
	PollInterval time.Duration

	// Opener defaults to serialport.Open.
	Opener serialport.Opener
}

func DefaultOptions() Options {
	return Options{
		Serial:           serialport.DefaultConfig(""),
		SettleDelay:      2 * time.Second,
		HandshakeTimeout: time.Second,
		PollInterval:     50 * time.Millisecond,
	}
}

// Link owns one serial connection to a peripheral. It has a single writer
// (Send) and a single reader (Lines); only the state is shared between them.
type Link struct {
	role    domain.Role
	locator string
	port    serialport.Port
	decoder lineDecoder
	poll    time.Duration
	logger  *slog.Logger

	state     atomic.Int32
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open connects to the peripheral at locator, waits for it to settle and
// discards its boot greeting.
func Open(ctx context.Context, role domain.Role, locator string, opts Options, logger *slog.Logger) (*Link, error) {
	cfg := opts.Serial
	cfg.Device = locator

	open := opts.Opener
	if open == nil {
		open = serialport.Open
	}

	port, err := open(cfg)
	if err != nil {
		return nil, &domain.ConnectError{Role: role, Locator: locator, Err: err}
	}

	l := &Link{
		role:    role,
		locator: locator,
		port:    port,
		poll:    opts.PollInterval,
		logger:  logger.With("role", role, "port", locator),
		closed:  make(chan struct{}),
	}
	l.state.Store(int32(domain.LinkDisconnected))

	l.logger.Info("port open, waiting for firmware", "settle", opts.SettleDelay)
	if err := sleepCtx(ctx, opts.SettleDelay); err != nil {
		port.Close()
		return nil, &domain.ConnectError{Role: role, Locator: locator, Err: err}
	}

	if err := l.drainHandshake(opts.HandshakeTimeout); err != nil {
		port.Close()
		return nil, &domain.ConnectError{Role: role, Locator: locator, Err: err}
	}

	l.state.Store(int32(domain.LinkConnected))
	l.logger.Info("connected")
	return l, nil
}

func (l *Link) drainHandshake(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 256)

	for timeout <= 0 || time.Now().Before(deadline) {
		n, err := l.port.Read(buf)
		if err != nil {
			return fmt.Errorf("draining greeting: %w", err)
		}
		if n == 0 {
			return nil
		}
		for _, line := range l.decoder.feed(buf[:n]) {
			l.logger.Info("greeting", "text", line)
		}
	}

	l.logger.Warn("greeting drain timed out, firmware still talking", "timeout", timeout)
	return nil
}

func (l *Link) Role() domain.Role { return l.role }

func (l *Link) Locator() string { return l.locator }

func (l *Link) State() domain.LinkState {
	return domain.LinkState(l.state.Load())
}

// Send writes payload followed by the line terminator. Nothing is queued or
// retried; a write error leaves the link connected.
func (l *Link) Send(payload string) error {
	if l.State() != domain.LinkConnected {
		return fmt.Errorf("%s: %w", l.role, domain.ErrLinkUnavailable)
	}

	frame := []byte(payload + "\n")
	for len(frame) > 0 {
		n, err := l.port.Write(frame)
		if err != nil {
			return &domain.SendError{Role: l.role, Payload: payload, Err: err}
		}
		if n == 0 {
			return &domain.SendError{Role: l.role, Payload: payload, Err: io.ErrShortWrite}
		}
		frame = frame[n:]
	}

	return nil
}

// Close is idempotent.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.state.Store(int32(domain.LinkClosed))
		close(l.closed)
		l.closeErr = l.port.Close()
		l.logger.Info("closed")
	})
	return l.closeErr
}

// Lines yields decoded, non-blank lines as they arrive. The sequence ends
// when the link closes; a read error closes the link.
func (l *Link) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		buf := make([]byte, 256)
		for {
			if l.State() == domain.LinkClosed {
				return
			}

			n, err := l.port.Read(buf)
			if n > 0 {
				for _, line := range l.decoder.feed(buf[:n]) {
					if !yield(line) {
						return
					}
				}
			}

			if err != nil {
				if l.State() != domain.LinkClosed {
					l.logger.Warn("read failed, closing link", "error", err)
					l.Close()
				}
				return
			}

			if n == 0 {
				select {
				case <-l.closed:
					return
				case <-time.After(l.poll):
				}
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
