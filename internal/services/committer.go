package services

import (
	"sladash-backend/internal/bus"
	"sladash-backend/internal/invalidation"

	"go.uber.org/zap"
)

// Refresher is the slice of the data cache the write path needs.
type Refresher interface {
	Refresh() error
}

// WriteCommitter runs the post-commit sequence shared by every mutation
// endpoint: resolve the blast radius, refresh the server snapshot, then
// broadcast the invalidation event. Keeping it in one place means a new
// mutation cannot forget to invalidate a dependent key.
type WriteCommitter struct {
	catalog     *invalidation.Catalog
	broadcaster bus.Broadcaster
	cache       Refresher
	logger      *zap.Logger
}

func NewWriteCommitter(catalog *invalidation.Catalog, broadcaster bus.Broadcaster, cache Refresher, logger *zap.Logger) *WriteCommitter {
	return &WriteCommitter{
		catalog:     catalog,
		broadcaster: broadcaster,
		cache:       cache,
		logger:      logger,
	}
}

// Committed is called after the store write succeeded. Failures here are
// logged, never propagated: the write is durable, and clients degrade to
// TTL-based refetch if an event is lost.
func (w *WriteCommitter) Committed(scenario invalidation.Scenario, params invalidation.Params, context map[string]string) {
	keys, err := w.catalog.Resolve(scenario, params)
	if err != nil {
		w.logger.Error("resolving invalidation scenario",
			zap.String("scenario", string(scenario)), zap.Error(err))
		keys = []string{invalidation.KeyEverything}
	}

	// Refresh before broadcasting so client refetches land on the new
	// snapshot, not the one the write just outdated.
	if err := w.cache.Refresh(); err != nil {
		w.logger.Error("post-write cache refresh failed", zap.Error(err))
	}

	if err := w.broadcaster.Publish(bus.Event{
		Event:        string(scenario),
		AffectedKeys: keys,
		Context:      context,
	}); err != nil {
		w.logger.Warn("publishing invalidation event",
			zap.String("scenario", string(scenario)), zap.Error(err))
	}
}
