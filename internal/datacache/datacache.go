package datacache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sladash-backend/internal/metrics"
	"sladash-backend/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrNotReady signals a read before the first successful load. Callers
	// must not confuse this with an empty dataset.
	ErrNotReady = errors.New("data cache not loaded yet")

	// ErrStoreUnavailable wraps refresh failures; the previous snapshot is
	// retained and served.
	ErrStoreUnavailable = errors.New("entity store unavailable")

	ErrStopped = errors.New("data cache stopped")
)

// Store is the read surface of the system of record. The cache is strictly
// derived from it and can be thrown away and rebuilt at any time.
type Store interface {
	ListEntities() ([]*models.Entity, error)
	ListTeams() ([]*models.Team, error)
	ListTenants() ([]*models.Tenant, error)
}

// State of the cache lifecycle.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateRefreshing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is the operational view exposed by the cache status endpoint.
type Status struct {
	IsLoaded      bool      `json:"isLoaded"`
	State         string    `json:"state"`
	LastUpdated   time.Time `json:"lastUpdated"`
	EntitiesCount int       `json:"entitiesCount"`
	TeamsCount    int       `json:"teamsCount"`
	TenantsCount  int       `json:"tenantsCount"`
}

// DataCache owns a single in-memory snapshot of all entities, teams and
// tenants plus precomputed per-tenant metrics. The snapshot is replaced by
// atomic pointer swap; readers never block on a refresh.
type DataCache struct {
	store    Store
	interval time.Duration
	logger   *zap.Logger

	snapshot atomic.Pointer[models.CacheSnapshot]
	state    atomic.Int32
	version  atomic.Int64

	// refreshMu serializes scheduled and forced refreshes; it guards the
	// swap path only, never reads.
	refreshMu sync.Mutex

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func New(store Store, interval time.Duration, logger *zap.Logger) *DataCache {
	return &DataCache{
		store:    store,
		interval: interval,
		logger:   logger,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start performs the initial load and launches the refresh schedule. A
// failed initial load is returned to the caller but the schedule still
// starts, so the cache recovers on a later cycle.
func (c *DataCache) Start() error {
	c.state.Store(int32(StateLoading))

	err := c.refresh()
	if err != nil {
		c.logger.Warn("initial cache load failed, serving not-ready until next cycle", zap.Error(err))
	}

	c.wg.Add(1)
	go c.run()
	return err
}

// Stop halts the refresh schedule. The last installed snapshot remains
// readable until the process exits.
func (c *DataCache) Stop() {
	close(c.done)
	c.wg.Wait()
	c.state.Store(int32(StateStopped))
	c.logger.Info("data cache stopped")
}

// Refresh forces an out-of-band refresh and resets the schedule's next fire
// time. It returns once the new snapshot is installed or the attempt failed.
func (c *DataCache) Refresh() error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}

	err := c.refresh()

	// Reset the scheduled timer so the next automatic refresh fires a full
	// interval from now.
	select {
	case c.kick <- struct{}{}:
	default:
	}
	return err
}

func (c *DataCache) run() {
	defer c.wg.Done()

	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if err := c.refresh(); err != nil {
				c.logger.Error("scheduled cache refresh failed", zap.Error(err))
			}
			timer.Reset(c.interval)

		case <-c.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(c.interval)

		case <-c.done:
			return
		}
	}
}

// refresh fetches the full dataset, derives per-tenant metrics from it, and
// installs the result as one snapshot. On any fetch error the previous
// snapshot is retained untouched.
func (c *DataCache) refresh() error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if State(c.state.Load()) == StateReady {
		c.state.Store(int32(StateRefreshing))
		defer c.state.Store(int32(StateReady))
	}

	entities, err := c.store.ListEntities()
	if err != nil {
		return fmt.Errorf("%w: listing entities: %v", ErrStoreUnavailable, err)
	}
	teams, err := c.store.ListTeams()
	if err != nil {
		return fmt.Errorf("%w: listing teams: %v", ErrStoreUnavailable, err)
	}
	tenants, err := c.store.ListTenants()
	if err != nil {
		return fmt.Errorf("%w: listing tenants: %v", ErrStoreUnavailable, err)
	}

	snap := &models.CacheSnapshot{
		Entities:        entities,
		Teams:           teams,
		Tenants:         tenants,
		MetricsByTenant: metrics.ComputeByTenant(entities, tenants),
		Version:         c.version.Add(1),
		LastUpdated:     time.Now(),
	}

	// The mutex already orders refreshes, but only ever install a snapshot
	// newer than the current one.
	if cur := c.snapshot.Load(); cur == nil || snap.Version > cur.Version {
		c.snapshot.Store(snap)
	}
	c.state.Store(int32(StateReady))

	c.logger.Info("cache snapshot installed",
		zap.Int64("version", snap.Version),
		zap.Int("entities", len(entities)),
		zap.Int("teams", len(teams)),
		zap.Int("tenants", len(tenants)),
	)
	return nil
}

// Snapshot returns the current snapshot, or ErrNotReady before the first
// successful load.
func (c *DataCache) Snapshot() (*models.CacheSnapshot, error) {
	snap := c.snapshot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}

func (c *DataCache) AllEntities() ([]*models.Entity, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Entities, nil
}

func (c *DataCache) EntitiesByTenant(tenant string) ([]*models.Entity, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return nil, err
	}

	var out []*models.Entity
	for _, e := range snap.Entities {
		if e.Tenant == tenant {
			out = append(out, e)
		}
	}
	return out, nil
}

// TeamsByTenant returns the teams referenced by the tenant's entities or
// declared under the tenant.
func (c *DataCache) TeamsByTenant(tenant string) ([]*models.Team, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool)
	for _, e := range snap.Entities {
		if e.Tenant == tenant {
			referenced[e.TeamID] = true
		}
	}

	var out []*models.Team
	for _, t := range snap.Teams {
		if t.Tenant == tenant || referenced[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

// MetricsByTenant is an O(1) lookup of metrics precomputed at refresh time.
// An unknown tenant yields zero metrics, distinct from ErrNotReady.
func (c *DataCache) MetricsByTenant(tenant string) (models.DashboardMetrics, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return models.DashboardMetrics{}, err
	}
	return snap.MetricsByTenant[tenant], nil
}

// MetricsForRange computes metrics for an arbitrary window on demand from
// the current snapshot. The range space is unbounded, so these results are
// never cached.
func (c *DataCache) MetricsForRange(tenant string, from, to time.Time) (models.DashboardMetrics, error) {
	entities, err := c.EntitiesByTenant(tenant)
	if err != nil {
		return models.DashboardMetrics{}, err
	}
	return metrics.Compute(metrics.FilterByRange(entities, from, to)), nil
}

func (c *DataCache) Status() Status {
	st := Status{State: State(c.state.Load()).String()}

	snap := c.snapshot.Load()
	if snap == nil {
		return st
	}

	st.IsLoaded = true
	st.LastUpdated = snap.LastUpdated
	st.EntitiesCount = len(snap.Entities)
	st.TeamsCount = len(snap.Teams)
	st.TenantsCount = len(snap.Tenants)
	return st
}
