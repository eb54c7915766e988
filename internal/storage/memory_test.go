package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryHistory(t *testing.T) {
	ctx := context.Background()
	h := NewMemoryHistory(time.Hour, time.Hour)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, h.Record(ctx, &DeploymentRecord{
			ID:        ids[i],
			NodeName:  "node",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec, err := h.Get(ctx, ids[1])
	require.NoError(t, err)
	require.Equal(t, ids[1], rec.ID)

	rec.NodeName = "mutated"
	again, err := h.Get(ctx, ids[1])
	require.NoError(t, err)
	require.Equal(t, "node", again.NodeName, "records are copied")

	list, err := h.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, ids[2], list[0].ID)
	require.Equal(t, ids[1], list[1].ID)

	_, err = h.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, h.Record(ctx, &DeploymentRecord{}))
}

func TestMemoryHistory_Expiry(t *testing.T) {
	ctx := context.Background()
	h := NewMemoryHistory(10*time.Millisecond, time.Hour)

	id := uuid.New()
	require.NoError(t, h.Record(ctx, &DeploymentRecord{ID: id}))
	time.Sleep(30 * time.Millisecond)

	_, err := h.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}
