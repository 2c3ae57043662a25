package application

import (
	"sync/atomic"

	"unified-control/internal/domain"
)

// Inbox carries decoded peripheral lines from the receivers to the session.
// Publishing never blocks: when the queue is full the line is dropped.
type Inbox struct {
	lines    chan domain.InboxLine
	dropped  atomic.Uint64
	recorder Recorder
}

func NewInbox(size int, recorder Recorder) *Inbox {
	if size <= 0 {
		size = 1
	}
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	return &Inbox{
		lines:    make(chan domain.InboxLine, size),
		recorder: recorder,
	}
}

func (i *Inbox) Publish(line domain.InboxLine) bool {
	select {
	case i.lines <- line:
		i.recorder.RecordInbox(line.Role, true)
		return true
	default:
		i.dropped.Add(1)
		i.recorder.RecordInbox(line.Role, false)
		return false
	}
}

// Lines exposes the queue for select-based consumption.
func (i *Inbox) Lines() <-chan domain.InboxLine {
	return i.lines
}

// Drain returns everything currently queued without waiting.
func (i *Inbox) Drain() []domain.InboxLine {
	var out []domain.InboxLine
	for {
		select {
		case line := <-i.lines:
			out = append(out, line)
		default:
			return out
		}
	}
}

func (i *Inbox) Dropped() uint64 {
	return i.dropped.Load()
}
