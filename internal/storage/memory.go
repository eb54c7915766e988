package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryHistory keeps deployment records in process memory with a TTL.
type MemoryHistory struct {
	cache *gocache.Cache
}

func NewMemoryHistory(ttl, cleanupInterval time.Duration) *MemoryHistory {
	return &MemoryHistory{cache: gocache.New(ttl, cleanupInterval)}
}

func (m *MemoryHistory) Record(ctx context.Context, rec *DeploymentRecord) error {
	if rec.ID == uuid.Nil {
		return fmt.Errorf("deployment record without id")
	}
	cp := *rec
	m.cache.Set(rec.ID.String(), &cp, gocache.DefaultExpiration)
	return nil
}

func (m *MemoryHistory) Get(ctx context.Context, id uuid.UUID) (*DeploymentRecord, error) {
	value, found := m.cache.Get(id.String())
	if !found {
		return nil, fmt.Errorf("deployment %s: %w", id, ErrNotFound)
	}
	rec, ok := value.(*DeploymentRecord)
	if !ok {
		return nil, fmt.Errorf("deployment %s: unexpected cache entry %T", id, value)
	}
	cp := *rec
	return &cp, nil
}

// List returns the newest records first.
func (m *MemoryHistory) List(ctx context.Context, limit int) ([]*DeploymentRecord, error) {
	items := m.cache.Items()
	out := make([]*DeploymentRecord, 0, len(items))
	for _, item := range items {
		if rec, ok := item.Object.(*DeploymentRecord); ok {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
