// Package buildtool runs the external build tool as a child process.
package buildtool

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

// DefaultCommand is the Maven executable looked up on PATH.
const DefaultCommand = "mvn"

// maxOutput bounds the captured stdout and stderr of one invocation.
const maxOutput = 64 * 1024

// Maven implements domain.BuildTool by spawning Maven.
type Maven struct {
	command string
	log     *slog.Logger
}

// New creates a Maven runner for command (DefaultCommand when empty).
// A nil logger discards output.
func New(command string, logger *slog.Logger) *Maven {
	if command == "" {
		command = DefaultCommand
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Maven{command: command, log: logger}
}

// Run executes the tool with args in dir and waits for it. A non-zero exit,
// a spawn failure or an expired context is reported as *domain.ToolError;
// the captured output is returned in every case.
func (m *Maven) Run(ctx context.Context, dir string, args []string) (domain.ToolResult, error) {
	step := strings.Join(append([]string{m.command}, args...), " ")
	m.log.Info("running build tool", "cmd", step, "dir", dir)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.command, args...)
	cmd.Dir = dir
	cmd.Stdout = &limitedWriter{buf: &stdout, max: maxOutput}
	cmd.Stderr = &limitedWriter{buf: &stderr, max: maxOutput}
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err := cmd.Run()
	res := domain.ToolResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	m.log.Debug("build tool finished", "cmd", step, "exit_code", res.ExitCode, "elapsed", time.Since(start))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, &domain.ToolError{Step: step, ExitCode: res.ExitCode, Err: ctxErr}
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		return res, &domain.ToolError{Step: step, ExitCode: res.ExitCode}
	default:
		res.ExitCode = -1
		return res, &domain.ToolError{Step: step, ExitCode: -1, Err: err}
	}
}

// limitedWriter keeps the first max bytes and discards the rest so a chatty
// build cannot exhaust memory.
type limitedWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if room := w.max - w.buf.Len(); room > 0 {
		if len(p) > room {
			w.buf.Write(p[:room])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}
