package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"unified-control/internal/domain"
)

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\x1b[K"

type SessionConfig struct {
	// ResponseWindow is how long the session keeps printing peripheral
	// output after a dispatch before it asks for the next command.
	ResponseWindow time.Duration
}

// Session is the operator loop. It is the only goroutine that dispatches to
// the links and the only one that writes to out.
type Session struct {
	orchestrator *Orchestrator
	inbox        *Inbox
	sources      []CommandSource
	out          io.Writer
	cfg          SessionConfig
	logger       *slog.Logger
}

type incoming struct {
	source string
	text   string
	err    error
	done   chan struct{}
}

func NewSession(
	orchestrator *Orchestrator,
	inbox *Inbox,
	out io.Writer,
	cfg SessionConfig,
	logger *slog.Logger,
	sources ...CommandSource,
) *Session {
	return &Session{
		orchestrator: orchestrator,
		inbox:        inbox,
		sources:      sources,
		out:          out,
		cfg:          cfg,
		logger:       logger,
	}
}

// Run processes commands until a source is exhausted, the quit command is
// entered, or ctx is cancelled. It does not shut the links down; the caller
// owns that.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, src := range s.sources {
		s.logger.Info("starting command source", "source", src.Name())
		if err := src.Start(ctx); err != nil {
			return fmt.Errorf("starting %s source: %w", src.Name(), err)
		}
		defer src.Stop()
	}

	s.printBanner()
	fmt.Fprint(s.out, helpText)

	commands := make(chan incoming)
	for _, src := range s.sources {
		go s.pump(ctx, src, commands)
	}

	for {
		select {
		case <-ctx.Done():
			s.printLines(s.inbox.Drain())
			return ctx.Err()

		case line := <-s.inbox.Lines():
			prompt, active := s.activePrompt()
			if active {
				fmt.Fprint(s.out, clearLine)
			}
			s.printLine(line)
			s.printLines(s.inbox.Drain())
			if active {
				fmt.Fprint(s.out, prompt)
			}

		case in := <-commands:
			quit, err := s.accept(in)
			close(in.done)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// pump forwards commands from one source and waits until the session has
// handled each one, so a console prompt is never redrawn mid-output.
func (s *Session) pump(ctx context.Context, src CommandSource, out chan<- incoming) {
	for {
		text, err := src.NextCommand(ctx)
		in := incoming{source: src.Name(), text: text, err: err, done: make(chan struct{})}

		select {
		case out <- in:
		case <-ctx.Done():
			return
		}

		select {
		case <-in.done:
		case <-ctx.Done():
			return
		}

		if err != nil {
			return
		}
	}
}

func (s *Session) accept(in incoming) (bool, error) {
	if in.err != nil {
		if errors.Is(in.err, io.EOF) {
			s.logger.Info("command source finished", "source", in.source)
			return true, nil
		}
		if errors.Is(in.err, context.Canceled) || errors.Is(in.err, context.DeadlineExceeded) {
			return true, in.err
		}
		return true, fmt.Errorf("reading from %s: %w", in.source, in.err)
	}

	return s.Handle(in.text), nil
}

// Handle processes one raw command and reports whether the session should end.
func (s *Session) Handle(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}

	d := s.orchestrator.Parse(raw)

	switch d.Kind {
	case domain.DispatchHelp:
		fmt.Fprint(s.out, helpText)
		return false
	case domain.DispatchError:
		fmt.Fprintf(s.out, "error: malformed command: %s\nhint: type 'h' for help\n", d.Reason)
		return false
	case domain.DispatchUnknown:
		fmt.Fprintf(s.out, "error: unrecognized command %q\nhint: type 'h' for help\n", d.Raw)
		return false
	}

	if d.Terminal {
		fmt.Fprintln(s.out, "exiting...")
		return true
	}

	fmt.Fprintf(s.out, "\n[exec %s]\n", d.Raw)
	report := s.orchestrator.Dispatch(d)
	for _, del := range report.Deliveries {
		switch del.Outcome {
		case domain.OutcomeSent:
			fmt.Fprintf(s.out, "  -> %s: %s\n", del.Role, del.Payload)
		case domain.OutcomeSkipped:
			fmt.Fprintf(s.out, "  warning: %s not connected, skipped %q\n", del.Role, del.Payload)
		case domain.OutcomeFailed:
			fmt.Fprintf(s.out, "  error: %v\n", del.Err)
		}
	}

	s.awaitResponses()
	return false
}

func (s *Session) awaitResponses() {
	if s.cfg.ResponseWindow <= 0 {
		s.printLines(s.inbox.Drain())
		return
	}

	timer := time.NewTimer(s.cfg.ResponseWindow)
	defer timer.Stop()

	for {
		select {
		case line := <-s.inbox.Lines():
			s.printLine(line)
		case <-timer.C:
			return
		}
	}
}

func (s *Session) activePrompt() (string, bool) {
	for _, src := range s.sources {
		ps, ok := src.(PromptSource)
		if !ok {
			continue
		}
		if prompt, active := ps.Prompting(); active {
			return prompt, true
		}
	}
	return "", false
}

func (s *Session) printBanner() {
	states := s.orchestrator.LinkStates()
	fmt.Fprintln(s.out, "Unified control - actuator + lighting")
	for _, role := range domain.Roles {
		fmt.Fprintf(s.out, "  %-9s %s\n", role, states[role])
	}
	if states[domain.RoleActuator] != domain.LinkConnected && states[domain.RoleLighting] != domain.LinkConnected {
		fmt.Fprintln(s.out, "warning: no device connected, commands will be skipped")
	}
}

func (s *Session) printLines(lines []domain.InboxLine) {
	for _, line := range lines {
		s.printLine(line)
	}
}

func (s *Session) printLine(line domain.InboxLine) {
	if wave, ok := domain.ParseWaveSpawn(line.Text); ok {
		fmt.Fprintf(s.out, "  <- %s: ~ [wave] n=%s, speed=%s, phase=%s\n", line.Role, wave.N, wave.Speed, wave.Phase)
		return
	}
	fmt.Fprintf(s.out, "  <- %s: %s\n", line.Role, line.Text)
}
