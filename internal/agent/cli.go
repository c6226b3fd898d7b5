package agent

import (
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// CLIAgent runs the external tool once per command: no persistent server,
// just a fresh subprocess with a bounded runtime.
type CLIAgent struct {
	binary    string
	agentName string
	model     string
	timeout   time.Duration
	log       *zap.SugaredLogger
}

func NewCLIAgent(binary, agentName, model string, timeout time.Duration, log *zap.SugaredLogger) *CLIAgent {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &CLIAgent{
		binary:    binary,
		agentName: agentName,
		model:     model,
		timeout:   timeout,
		log:       log,
	}
}

// Start verifies the binary is runnable. There is no process to launch in
// per-command mode.
func (a *CLIAgent) Start(ctx context.Context) error {
	if _, err := exec.LookPath(a.binary); err != nil {
		return wrap(ErrStartup, "%s not found in PATH", a.binary)
	}
	a.log.Infow("agent ready", "binary", a.binary, "agent", a.agentName, "model", a.model, "timeout", a.timeout)
	return nil
}

// Stop is a no-op: each command's subprocess ends with the command.
func (a *CLIAgent) Stop(ctx context.Context) error {
	return nil
}

// Health re-checks that the binary is still reachable.
func (a *CLIAgent) Health(ctx context.Context) error {
	if _, err := exec.LookPath(a.binary); err != nil {
		return wrap(ErrUnavailable, "%s not found in PATH", a.binary)
	}
	return nil
}

// ProcessCommand spawns one subprocess for the command and extracts the
// user-facing result from its output.
func (a *CLIAgent) ProcessCommand(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	args := []string{"--agent=" + a.agentName}
	if a.model != "" {
		args = append(args, "--model="+a.model)
	}
	args = append(args, "run", message)

	cmd := exec.CommandContext(ctx, a.binary, args...)
	// The tool writes to both streams; the result may land on either.
	raw, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", wrap(ErrCommunication, "command timed out after %s", a.timeout)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", wrap(ErrUnavailable, "%s not found - is it installed?", a.binary)
		}
		return "", wrap(ErrCommunication, "command failed: %v", err)
	}

	result := extractResult(stripANSI(string(raw)))
	a.log.Debugw("agent command completed", "result", truncate(result, 100))
	return result, nil
}

func stripANSI(text string) string {
	return ansiRe.ReplaceAllString(text, "")
}

// extractResult drops tool-call trace lines (prefixed with '|') and leading
// blank lines, keeping just the response text.
func extractResult(output string) string {
	var kept []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "|") {
			continue
		}
		if len(kept) == 0 && stripped == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
