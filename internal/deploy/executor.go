package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Executor runs a deployment command.
type Executor interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// DeployExecutionError is returned when the command exits unsuccessfully.
type DeployExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *DeployExecutionError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Err.Error()
}

func (e *DeployExecutionError) Unwrap() error { return e.Err }

const waitDelay = 2 * time.Second

// ShellExecutor runs commands through "sh -c".
type ShellExecutor struct {
	shell   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewShellExecutor creates an executor. A zero timeout leaves the
// deadline to the caller's context.
func NewShellExecutor(shell string, timeout time.Duration, logger *zap.Logger) *ShellExecutor {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &ShellExecutor{shell: shell, timeout: timeout, logger: logger}
}

// Run executes cmd and returns its trimmed stdout. Cancelling ctx kills
// the process.
func (e *ShellExecutor) Run(ctx context.Context, cmd Command) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, e.shell, "-c", cmd.Command)
	// Children of the shell may keep the output pipes open after a kill.
	c.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	e.logger.Info("Running deployment command",
		zap.String("endpoint", cmd.Endpoint),
		zap.String("command", cmd.Command))

	err := c.Run()
	if err != nil {
		execErr := &DeployExecutionError{
			Command:  cmd.Command,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			execErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			execErr.Err = fmt.Errorf("%w: %v", ctxErr, err)
		}

		e.logger.Warn("Deployment command failed",
			zap.Int("exit_code", execErr.ExitCode),
			zap.Duration("duration", time.Since(start)),
			zap.Error(execErr))
		return strings.TrimSpace(stdout.String()), execErr
	}

	e.logger.Info("Deployment command finished", zap.Duration("duration", time.Since(start)))
	return strings.TrimSpace(stdout.String()), nil
}
