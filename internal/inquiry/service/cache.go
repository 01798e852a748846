package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"smartapp/internal/store"
	"smartapp/internal/synonyms"
)

// Datasets is the read side of the dataset store used by inquiry.
type Datasets interface {
	Load(ctx context.Context, category string, userID uint) (store.Dataset, error)
	LoadShared(ctx context.Context, category string) (store.Dataset, error)
	LoadAll(ctx context.Context, category string) ([]store.Dataset, error)
	Stamp(ctx context.Context, category string, userID uint) (store.Stamp, error)
	Categories(ctx context.Context, prefix string) ([]string, error)
}

// IndexCache keeps one snapshot per stored dataset and rebuilds it when that
// dataset's version changes. Users without their own dataset share the
// snapshot of the fallback one. Concurrent rebuilds of a dataset are collapsed.
type IndexCache struct {
	ds  Datasets
	syn *synonyms.Config
	log zerolog.Logger

	mu    sync.RWMutex
	snaps map[uint]*Snapshot
	group singleflight.Group
}

func NewIndexCache(ds Datasets, syn *synonyms.Config, log zerolog.Logger) *IndexCache {
	return &IndexCache{
		ds:    ds,
		syn:   syn,
		log:   log.With().Str("component", "index_cache").Logger(),
		snaps: map[uint]*Snapshot{},
	}
}

// Get returns a snapshot of the dataset userID resolves to for category.
// A category with no stored dataset yields store.ErrNotFound.
func (c *IndexCache) Get(ctx context.Context, category string, userID uint) (*Snapshot, error) {
	stamp, err := c.ds.Stamp(ctx, category, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.Invalidate(category)
		}
		return nil, err
	}

	c.mu.RLock()
	snap := c.snaps[stamp.ID]
	c.mu.RUnlock()
	if snap != nil && snap.Stamp.Equal(stamp) {
		return snap, nil
	}

	// Waiters share one rebuild; it must outlive any single caller.
	bg := context.WithoutCancel(ctx)
	key := category + "/" + strconv.FormatUint(uint64(userID), 10)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		ds, err := c.ds.Load(bg, category, userID)
		if err != nil {
			return nil, err
		}
		s := BuildSnapshot(ds, c.syn)
		c.mu.Lock()
		c.snaps[ds.ID] = s
		c.mu.Unlock()
		c.log.Info().
			Str("category", category).
			Uint("dataset", ds.ID).
			Uint("owner", ds.UserID).
			Int("rows", s.Table.Len()).
			Int("skipped", s.Skipped()).
			Msg("index rebuilt")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops every cached snapshot of category.
func (c *IndexCache) Invalidate(category string) {
	c.mu.Lock()
	for id, s := range c.snaps {
		if s.Category == category {
			delete(c.snaps, id)
		}
	}
	c.mu.Unlock()
}
