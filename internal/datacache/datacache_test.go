package datacache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"sladash-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore serves a swappable dataset and can be forced to fail.
type fakeStore struct {
	mu       sync.Mutex
	entities []*models.Entity
	teams    []*models.Team
	tenants  []*models.Tenant
	failing  bool
	calls    int
}

func (f *fakeStore) setEntities(entities []*models.Entity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities = entities
}

func (f *fakeStore) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *fakeStore) ListEntities() ([]*models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing {
		return nil, errors.New("connection refused")
	}
	return f.entities, nil
}

func (f *fakeStore) ListTeams() ([]*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("connection refused")
	}
	return f.teams, nil
}

func (f *fakeStore) ListTenants() ([]*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("connection refused")
	}
	return f.tenants, nil
}

func testEntities(tenant string, slas ...float64) []*models.Entity {
	entities := make([]*models.Entity, 0, len(slas))
	for _, sla := range slas {
		entities = append(entities, &models.Entity{
			Name:       "orders",
			Type:       models.EntityTypeTable,
			Tenant:     tenant,
			TeamID:     "team-1",
			CurrentSLA: sla,
		})
	}
	return entities
}

func newTestStore() *fakeStore {
	return &fakeStore{
		entities: testEntities("acme", 90, 95),
		teams:    []*models.Team{{ID: "team-1", Name: "Data Platform", Tenant: "acme"}},
		tenants:  []*models.Tenant{{Name: "acme"}},
	}
}

func TestReadBeforeFirstLoad(t *testing.T) {
	cache := New(newTestStore(), time.Hour, zap.NewNop())

	_, err := cache.AllEntities()
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = cache.MetricsByTenant("acme")
	assert.ErrorIs(t, err, ErrNotReady)

	status := cache.Status()
	assert.False(t, status.IsLoaded)
}

func TestStartLoadsSnapshot(t *testing.T) {
	cache := New(newTestStore(), time.Hour, zap.NewNop())
	require.NoError(t, cache.Start())
	defer cache.Stop()

	entities, err := cache.AllEntities()
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	m, err := cache.MetricsByTenant("acme")
	require.NoError(t, err)
	assert.Equal(t, 92.5, m.OverallCompliance)
	assert.Equal(t, 2, m.EntitiesCount)

	status := cache.Status()
	assert.True(t, status.IsLoaded)
	assert.Equal(t, 2, status.EntitiesCount)
	assert.Equal(t, 1, status.TeamsCount)
	assert.Equal(t, 1, status.TenantsCount)
	assert.False(t, status.LastUpdated.IsZero())
}

func TestInitialLoadFailureServesNotReady(t *testing.T) {
	store := newTestStore()
	store.setFailing(true)
	cache := New(store, time.Hour, zap.NewNop())

	err := cache.Start()
	defer cache.Stop()
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = cache.AllEntities()
	assert.ErrorIs(t, err, ErrNotReady)

	// Store recovers; forced refresh makes the cache ready.
	store.setFailing(false)
	require.NoError(t, cache.Refresh())

	entities, err := cache.AllEntities()
	require.NoError(t, err)
	assert.Len(t, entities, 2)
}

func TestRefreshFailureRetainsPreviousSnapshot(t *testing.T) {
	store := newTestStore()
	cache := New(store, time.Hour, zap.NewNop())
	require.NoError(t, cache.Start())
	defer cache.Stop()

	before, err := cache.Snapshot()
	require.NoError(t, err)

	store.setFailing(true)
	err = cache.Refresh()
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	after, err := cache.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Len(t, after.Entities, 2)
}

func TestForcedRefreshPicksUpNewData(t *testing.T) {
	store := newTestStore()
	cache := New(store, time.Hour, zap.NewNop())
	require.NoError(t, cache.Start())
	defer cache.Stop()

	first, err := cache.Snapshot()
	require.NoError(t, err)

	store.setEntities(testEntities("acme", 70, 80, 90))
	require.NoError(t, cache.Refresh())

	second, err := cache.Snapshot()
	require.NoError(t, err)
	assert.Greater(t, second.Version, first.Version)
	assert.True(t, second.LastUpdated.After(first.LastUpdated) || second.LastUpdated.Equal(first.LastUpdated))

	m, err := cache.MetricsByTenant("acme")
	require.NoError(t, err)
	assert.Equal(t, 3, m.EntitiesCount)
	assert.Equal(t, 80.0, m.OverallCompliance)
}

// A snapshot observed mid-refresh must have metrics derived from its own
// entity list, never a mix of old entities and new metrics.
func TestSnapshotNeverTorn(t *testing.T) {
	store := newTestStore()
	cache := New(store, time.Hour, zap.NewNop())
	require.NoError(t, cache.Start())
	defer cache.Stop()

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		n := 2
		for {
			select {
			case <-stop:
				return
			default:
			}
			n++
			slas := make([]float64, n)
			for i := range slas {
				slas[i] = 90
			}
			store.setEntities(testEntities("acme", slas...))
			_ = cache.Refresh()
		}
	}()

	for i := 0; i < 500; i++ {
		snap, err := cache.Snapshot()
		require.NoError(t, err)
		m := snap.MetricsByTenant["acme"]
		assert.Equal(t, len(snap.Entities), m.EntitiesCount,
			"metrics must be derived from the same snapshot's entities")
	}

	close(stop)
	wg.Wait()
}

// Concurrent forced refreshes serialize; exactly one snapshot per refresh is
// installed and versions only move forward.
func TestConcurrentForcedRefreshes(t *testing.T) {
	store := newTestStore()
	cache := New(store, time.Hour, zap.NewNop())
	require.NoError(t, cache.Start())
	defer cache.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cache.Refresh()
		}()
	}
	wg.Wait()

	snap, err := cache.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(11), snap.Version) // initial load + 10 forced
}

func TestScheduledRefreshFires(t *testing.T) {
	store := newTestStore()
	cache := New(store, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, cache.Start())
	defer cache.Stop()

	first, err := cache.Snapshot()
	require.NoError(t, err)

	store.setEntities(testEntities("acme", 50))

	assert.Eventually(t, func() bool {
		snap, err := cache.Snapshot()
		if err != nil {
			return false
		}
		return snap.Version > first.Version && len(snap.Entities) == 1
	}, time.Second, 5*time.Millisecond)

	m, err := cache.MetricsByTenant("acme")
	require.NoError(t, err)
	assert.Equal(t, 50.0, m.OverallCompliance)
}

func TestTeamsByTenant(t *testing.T) {
	store := newTestStore()
	store.teams = []*models.Team{
		{ID: "team-1", Name: "Data Platform", Tenant: "acme"},
		{ID: "team-2", Name: "ML Infra", Tenant: "globex"},
	}
	cache := New(store, time.Hour, zap.NewNop())
	require.NoError(t, cache.Start())
	defer cache.Stop()

	teams, err := cache.TeamsByTenant("acme")
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "team-1", teams[0].ID)

	teams, err = cache.TeamsByTenant("unknown")
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestMetricsForRange(t *testing.T) {
	now := time.Now()
	recent := testEntities("acme", 90)[0]
	recent.LastRefresh = now
	old := testEntities("acme", 10)[0]
	old.LastRefresh = now.Add(-72 * time.Hour)

	store := newTestStore()
	store.setEntities([]*models.Entity{recent, old})
	cache := New(store, time.Hour, zap.NewNop())
	require.NoError(t, cache.Start())
	defer cache.Stop()

	m, err := cache.MetricsForRange("acme", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, m.EntitiesCount)
	assert.Equal(t, 90.0, m.OverallCompliance)
}

func TestRefreshAfterStop(t *testing.T) {
	cache := New(newTestStore(), time.Hour, zap.NewNop())
	require.NoError(t, cache.Start())
	cache.Stop()

	assert.ErrorIs(t, cache.Refresh(), ErrStopped)
	assert.Equal(t, "stopped", cache.Status().State)
}
