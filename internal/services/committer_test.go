package services

import (
	"errors"
	"sync"
	"testing"

	"sladash-backend/internal/bus"
	"sladash-backend/internal/invalidation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingBus captures published events and the order of operations
// relative to cache refreshes.
type recordingBus struct {
	mu     sync.Mutex
	events []bus.Event
	order  *[]string
}

func (b *recordingBus) Publish(event bus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	if b.order != nil {
		*b.order = append(*b.order, "publish")
	}
	return nil
}

func (b *recordingBus) ConnectedClients() int { return 0 }
func (b *recordingBus) Start() error          { return nil }
func (b *recordingBus) Stop() error           { return nil }

type recordingRefresher struct {
	calls int
	err   error
	order *[]string
}

func (r *recordingRefresher) Refresh() error {
	r.calls++
	if r.order != nil {
		*r.order = append(*r.order, "refresh")
	}
	return r.err
}

func TestCommittedRefreshesThenPublishes(t *testing.T) {
	var order []string
	broadcaster := &recordingBus{order: &order}
	refresher := &recordingRefresher{order: &order}
	committer := NewWriteCommitter(invalidation.NewCatalog(true, zap.NewNop()), broadcaster, refresher, zap.NewNop())

	committer.Committed(invalidation.ScenarioEntityUpdated,
		invalidation.Params{EntityID: "e1", Tenant: "acme", TeamID: "team-1"},
		map[string]string{"entityId": "e1"})

	require.Equal(t, []string{"refresh", "publish"}, order,
		"snapshot must be refreshed before clients are told to refetch")

	require.Len(t, broadcaster.events, 1)
	event := broadcaster.events[0]
	assert.Equal(t, "ENTITY_UPDATED", event.Event)
	assert.Contains(t, event.AffectedKeys, "entity:e1")
	assert.Contains(t, event.AffectedKeys, "dashboard:tenant:acme")
	assert.Equal(t, "e1", event.Context["entityId"])
}

func TestCommittedPublishesDespiteRefreshFailure(t *testing.T) {
	broadcaster := &recordingBus{}
	refresher := &recordingRefresher{err: errors.New("store down")}
	committer := NewWriteCommitter(invalidation.NewCatalog(true, zap.NewNop()), broadcaster, refresher, zap.NewNop())

	committer.Committed(invalidation.ScenarioEntityDeleted,
		invalidation.Params{EntityID: "e1", Tenant: "acme", TeamID: "team-1"}, nil)

	assert.Len(t, broadcaster.events, 1,
		"a degraded refresh must not suppress the invalidation event")
}

func TestCommittedUnregisteredScenarioBroadcastsEverything(t *testing.T) {
	broadcaster := &recordingBus{}
	committer := NewWriteCommitter(invalidation.NewCatalog(true, zap.NewNop()), broadcaster, &recordingRefresher{}, zap.NewNop())

	committer.Committed(invalidation.Scenario("BRAND_NEW_WRITE"), invalidation.Params{}, nil)

	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, []string{invalidation.KeyEverything}, broadcaster.events[0].AffectedKeys)
}
