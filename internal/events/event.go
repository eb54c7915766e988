package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Type names a lifecycle event.
type Type string

const (
	TypeDeploymentStarted  Type = "deployment.started"
	TypeDeploymentRejected Type = "deployment.rejected"
	TypeDeploymentFinished Type = "deployment.finished"
	TypeDeploymentFailed   Type = "deployment.failed"
	TypeNodeInitialized    Type = "node.initialized"
	TypeCatalogReloaded    Type = "catalog.reloaded"
)

// Event is published to every registered sink.
type Event struct {
	Type         Type      `json:"type"`
	DeploymentID string    `json:"deployment_id,omitempty"`
	Folder       string    `json:"folder,omitempty"`
	NodeName     string    `json:"node_name,omitempty"`
	Stage        string    `json:"stage,omitempty"`
	Endpoint     string    `json:"endpoint,omitempty"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Sink receives events. Implementations must not block for long.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Bus fans events out to its sinks. Sink failures are logged and never
// reach the publisher.
type Bus struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{logger: logger}
}

// Attach registers a sink.
func (b *Bus) Attach(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

// Emit stamps and publishes ev.
func (b *Bus) Emit(ctx context.Context, ev Event) {
	if b == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Publish(ctx, ev); err != nil {
			b.logger.Warn("Event sink failed",
				zap.String("event", string(ev.Type)),
				zap.Error(err))
		}
	}
}
