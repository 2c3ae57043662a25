package application

import "context"

// CommandSource yields raw operator commands. NextCommand returns io.EOF once
// the source is exhausted (end of input, aborted prompt, end of script).
type CommandSource interface {
	Start(ctx context.Context) error
	Stop() error
	NextCommand(ctx context.Context) (string, error)
	Name() string
}

// PromptSource is a CommandSource that draws an interactive prompt. While the
// prompt is active the session clears the edit line before printing device
// output and redraws the prompt afterwards.
type PromptSource interface {
	CommandSource
	Prompting() (prompt string, active bool)
}
