package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown deployment IDs.
var ErrNotFound = errors.New("not found")

// History stores deployment records.
type History interface {
	Record(ctx context.Context, rec *DeploymentRecord) error
	Get(ctx context.Context, id uuid.UUID) (*DeploymentRecord, error)
	List(ctx context.Context, limit int) ([]*DeploymentRecord, error)
}
