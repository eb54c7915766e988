package deploy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShellExecutor_Success(t *testing.T) {
	e := NewShellExecutor("", 0, zap.NewNop())
	out, err := e.Run(context.Background(), Command{Command: "echo '  flashed  '"})
	require.NoError(t, err)
	require.Equal(t, "flashed", out)
}

func TestShellExecutor_FailureCarriesStderr(t *testing.T) {
	e := NewShellExecutor("", 0, zap.NewNop())
	_, err := e.Run(context.Background(), Command{Command: "echo 'no such port' >&2; exit 3"})

	var execErr *DeployExecutionError
	require.True(t, errors.As(err, &execErr))
	require.Equal(t, 3, execErr.ExitCode)
	require.Equal(t, "no such port", execErr.Error())
}

func TestShellExecutor_FailureWithoutStderr(t *testing.T) {
	e := NewShellExecutor("", 0, zap.NewNop())
	_, err := e.Run(context.Background(), Command{Command: "exit 1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exit status 1")
}

func TestShellExecutor_Cancellation(t *testing.T) {
	e := NewShellExecutor("", 50*time.Millisecond, zap.NewNop())

	start := time.Now()
	_, err := e.Run(context.Background(), Command{Command: "exec sleep 5"})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Less(t, time.Since(start), 4*time.Second)
}
