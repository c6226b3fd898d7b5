// Package agent integrates an optional external AI command-line tool that
// can interpret natural-language schedule commands.
package agent

import (
	"context"
	"errors"
	"fmt"
)

// Typed failures let the daemon distinguish "agent broken, fall back to the
// simple processor" from ordinary command errors.
var (
	ErrUnavailable   = errors.New("agent unavailable")
	ErrStartup       = errors.New("agent startup failed")
	ErrShutdown      = errors.New("agent shutdown failed")
	ErrCommunication = errors.New("agent communication failed")
)

// Agent is the capability the daemon needs from an external AI tool: a
// lifecycle, a health check, and one-command processing.
type Agent interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) error
	// ProcessCommand interprets one natural-language command and returns
	// the response text for the user.
	ProcessCommand(ctx context.Context, message string) (string, error)
}

// IsAgentError reports whether err belongs to the agent failure taxonomy.
func IsAgentError(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrStartup) ||
		errors.Is(err, ErrShutdown) ||
		errors.Is(err, ErrCommunication)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
