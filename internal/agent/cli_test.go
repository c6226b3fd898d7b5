package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"\x1b[32mgreen\x1b[0m text", "green text"},
		{"\x1b[1;31mbold red\x1b[m", "bold red"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripANSI(tt.in); got != tt.want {
			t.Errorf("stripANSI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractResult(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain response", "Task added for tomorrow.", "Task added for tomorrow."},
		{
			"tool trace lines dropped",
			"| calling add_task\n| done\nTask added for tomorrow.",
			"Task added for tomorrow.",
		},
		{
			"leading blanks dropped",
			"\n\n  \nTask added.\nSee you!",
			"Task added.\nSee you!",
		},
		{
			"interior blank lines kept",
			"First paragraph.\n\nSecond paragraph.",
			"First paragraph.\n\nSecond paragraph.",
		},
		{"only trace lines", "| calling\n| done", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractResult(tt.in); got != tt.want {
				t.Errorf("extractResult(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCLIAgentProcessCommand(t *testing.T) {
	// echo reflects the arguments, which is enough to verify the invocation
	// shape and the output path.
	a := NewCLIAgent("echo", "helper", "fast", time.Minute, zap.NewNop().Sugar())

	got, err := a.ProcessCommand(context.Background(), "add: call mom")
	if err != nil {
		t.Fatalf("process command: %v", err)
	}
	want := "--agent=helper --model=fast run add: call mom"
	if got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
}

func TestCLIAgentNoModelFlag(t *testing.T) {
	a := NewCLIAgent("echo", "helper", "", time.Minute, zap.NewNop().Sugar())
	got, err := a.ProcessCommand(context.Background(), "help")
	if err != nil {
		t.Fatalf("process command: %v", err)
	}
	if want := "--agent=helper run help"; got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
}

func TestCLIAgentMissingBinary(t *testing.T) {
	a := NewCLIAgent("definitely-not-a-real-binary-zzz", "helper", "", time.Minute, zap.NewNop().Sugar())

	if err := a.Start(context.Background()); !errors.Is(err, ErrStartup) {
		t.Errorf("Start error = %v, want ErrStartup", err)
	}
	if err := a.Health(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Health error = %v, want ErrUnavailable", err)
	}
	if _, err := a.ProcessCommand(context.Background(), "help"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("ProcessCommand error = %v, want ErrUnavailable", err)
	}
}

func TestCLIAgentCommandFailure(t *testing.T) {
	// false exits non-zero regardless of arguments.
	a := NewCLIAgent("false", "helper", "", time.Minute, zap.NewNop().Sugar())
	_, err := a.ProcessCommand(context.Background(), "help")
	if !errors.Is(err, ErrCommunication) {
		t.Errorf("error = %v, want ErrCommunication", err)
	}
}

func TestIsAgentError(t *testing.T) {
	for _, err := range []error{ErrUnavailable, ErrStartup, ErrShutdown, ErrCommunication} {
		if !IsAgentError(fmt.Errorf("wrapped: %w", err)) {
			t.Errorf("IsAgentError(%v) = false", err)
		}
	}
	if IsAgentError(errors.New("ordinary")) {
		t.Error("IsAgentError matched an ordinary error")
	}
	if IsAgentError(nil) {
		t.Error("IsAgentError matched nil")
	}
}
