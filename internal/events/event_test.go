package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBus_FansOutAndIsolatesFailures(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	var got []Event
	bus.Attach(SinkFunc(func(ctx context.Context, ev Event) error {
		return errors.New("broker down")
	}))
	bus.Attach(SinkFunc(func(ctx context.Context, ev Event) error {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		return nil
	}))

	bus.Emit(context.Background(), Event{Type: TypeDeploymentStarted, DeploymentID: "d1"})

	require.Len(t, got, 1)
	require.Equal(t, "d1", got[0].DeploymentID)
	require.False(t, got[0].Timestamp.IsZero())
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus
	bus.Emit(context.Background(), Event{Type: TypeCatalogReloaded})
}

func TestAMQPPublisher_NotConnected(t *testing.T) {
	p := NewAMQPPublisher("amqp://localhost:1/", "flasher.events", zap.NewNop())
	err := p.Publish(context.Background(), Event{Type: TypeDeploymentFinished})
	require.ErrorIs(t, err, ErrNotConnected)
	p.Stop()
	p.Stop()
}

func TestAMQPPublisher_StartHonoursContext(t *testing.T) {
	p := NewAMQPPublisher("amqp://127.0.0.1:1/", "flasher.events", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, p.Start(ctx))
}
