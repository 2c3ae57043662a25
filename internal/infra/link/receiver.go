package link

import (
	"log/slog"
	"time"

	"unified-control/internal/domain"
)

type Publisher interface {
	Publish(line domain.InboxLine) bool
}

// Receiver drains one link into the inbox on its own goroutine. It never
// touches the write side of the link.
type Receiver struct {
	link   *Link
	inbox  Publisher
	logger *slog.Logger
	done   chan struct{}
}

func StartReceiver(l *Link, inbox Publisher, logger *slog.Logger) *Receiver {
	r := &Receiver{
		link:   l,
		inbox:  inbox,
		logger: logger.With("role", l.Role()),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Receiver) run() {
	defer close(r.done)

	for text := range r.link.Lines() {
		line := domain.InboxLine{Role: r.link.Role(), Text: text, Time: time.Now()}
		if !r.inbox.Publish(line) {
			r.logger.Warn("inbox full, dropping line", "text", text)
		}
	}

	r.logger.Debug("receiver stopped")
}

// Done is closed once the link has closed and the receiver has exited.
func (r *Receiver) Done() <-chan struct{} {
	return r.done
}
