package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/peterh/liner"
)

var completions = []string{
	"f,", "b,", "s", "q", "quit", "h", "help",
	"START", "START,ALL", "START,ACTUATORS", "START,STEPPER", "START,SERVO",
	"GROUP1,", "GROUP2,", "STEPPER,", "SERVO,",
}

// Complete returns the known commands that start with line, ignoring case.
func Complete(line string) []string {
	prefix := strings.ToLower(strings.TrimSpace(line))
	var c []string
	for _, name := range completions {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			c = append(c, name)
		}
	}
	return c
}

type promptResult struct {
	text string
	err  error
}

// Source reads operator commands from the terminal with line editing and
// history. Ctrl-C at the prompt and Ctrl-D both end the session.
type Source struct {
	prompt      string
	historyFile string
	logger      *slog.Logger

	mu     sync.Mutex
	state  *liner.State
	active atomic.Bool
}

func NewSource(prompt, historyFile string, logger *slog.Logger) *Source {
	return &Source{
		prompt:      prompt,
		historyFile: historyFile,
		logger:      logger,
	}
}

func (s *Source) Name() string {
	return "console"
}

func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		return nil
	}

	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(Complete)

	if s.historyFile != "" {
		if f, err := os.Open(s.historyFile); err == nil {
			if _, err := state.ReadHistory(f); err != nil {
				s.logger.Warn("reading history", "file", s.historyFile, "error", err)
			}
			f.Close()
		}
	}

	s.state = state
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil
	}

	if s.historyFile != "" {
		if f, err := os.Create(s.historyFile); err == nil {
			if _, err := s.state.WriteHistory(f); err != nil {
				s.logger.Warn("writing history", "file", s.historyFile, "error", err)
			}
			f.Close()
		}
	}

	err := s.state.Close()
	s.state = nil
	if err != nil {
		return fmt.Errorf("restoring terminal: %w", err)
	}
	return nil
}

// Prompting reports whether the prompt currently owns the terminal line.
func (s *Source) Prompting() (string, bool) {
	return s.prompt, s.active.Load()
}

func (s *Source) NextCommand(ctx context.Context) (string, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == nil {
		return "", io.EOF
	}

	result := make(chan promptResult, 1)
	go func() {
		s.active.Store(true)
		text, err := state.Prompt(s.prompt)
		s.active.Store(false)
		result <- promptResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-result:
		if errors.Is(r.err, liner.ErrPromptAborted) || errors.Is(r.err, io.EOF) {
			return "", io.EOF
		}
		if r.err != nil {
			return "", fmt.Errorf("reading prompt: %w", r.err)
		}
		text := strings.TrimSpace(r.text)
		if text != "" {
			state.AppendHistory(text)
		}
		return text, nil
	}
}
