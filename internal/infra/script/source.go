package script

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Source replays operator commands from a text file, one per line. Blank
// lines and lines starting with '#' are skipped.
type Source struct {
	path     string
	interval time.Duration
	mu       sync.Mutex
	commands []string
	next     int
}

// NewSource returns a script source. interval is the pause before each
// command after the first; zero replays as fast as the session accepts.
func NewSource(path string, interval time.Duration) *Source {
	return &Source{
		path:     path,
		interval: interval,
	}
}

func (s *Source) Name() string {
	return "script"
}

func (s *Source) Start(_ context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("opening script: %w", err)
	}
	defer f.Close()

	commands, err := readCommands(f)
	if err != nil {
		return fmt.Errorf("reading script %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.commands = commands
	s.next = 0
	s.mu.Unlock()
	return nil
}

func (s *Source) Stop() error {
	return nil
}

func (s *Source) NextCommand(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.next >= len(s.commands) {
		s.mu.Unlock()
		return "", io.EOF
	}
	cmd := s.commands[s.next]
	first := s.next == 0
	s.next++
	s.mu.Unlock()

	if !first && s.interval > 0 {
		timer := time.NewTimer(s.interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return cmd, nil
}

func readCommands(r io.Reader) ([]string, error) {
	var commands []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		commands = append(commands, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return commands, nil
}
