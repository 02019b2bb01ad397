package invalidation

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Scenario names a class of write event with a deterministic set of
// affected cache keys.
type Scenario string

const (
	ScenarioEntityCreated        Scenario = "ENTITY_CREATED"
	ScenarioEntityUpdated        Scenario = "ENTITY_UPDATED"
	ScenarioEntityDeleted        Scenario = "ENTITY_DELETED"
	ScenarioTaskPriorityChanged  Scenario = "TASK_PRIORITY_CHANGED"
	ScenarioNotificationsChanged Scenario = "NOTIFICATION_CONFIG_CHANGED"
)

// ErrScenarioUnregistered marks a resolve against a scenario missing from
// the catalog. This is a programming error: some write path was added
// without registering its blast radius.
var ErrScenarioUnregistered = errors.New("invalidation scenario not registered")

// Params carries the write event context a resolver needs. Unused fields
// stay empty.
type Params struct {
	EntityID string
	DagID    string
	TaskID   string
	TeamID   string
	Tenant   string
}

type resolver func(Params) []string

// Catalog maps every write scenario to the cache keys it invalidates. All
// mutation endpoints must resolve through it; resolvers lean toward
// over-invalidation when a scenario's blast radius is ambiguous.
type Catalog struct {
	scenarios map[Scenario]resolver

	// strict fails loudly on unregistered scenarios. Non-strict (release)
	// degrades to invalidating everything, preserving correctness over
	// precision.
	strict bool
	logger *zap.Logger
}

func NewCatalog(strict bool, logger *zap.Logger) *Catalog {
	c := &Catalog{
		scenarios: make(map[Scenario]resolver),
		strict:    strict,
		logger:    logger,
	}
	c.registerDefaults()
	return c
}

func (c *Catalog) register(s Scenario, fn resolver) {
	c.scenarios[s] = fn
}

func (c *Catalog) registerDefaults() {
	c.register(ScenarioEntityCreated, func(p Params) []string {
		return []string{
			KeyAllEntities,
			KeyEntitiesByTenant(p.Tenant),
			KeyDashboardByTenant(p.Tenant),
			KeyDashboardByTeam(p.TeamID),
		}
	})

	c.register(ScenarioEntityUpdated, func(p Params) []string {
		return []string{
			KeyEntity(p.EntityID),
			KeyAllEntities,
			KeyEntitiesByTenant(p.Tenant),
			KeyDashboardByTenant(p.Tenant),
			KeyDashboardByTeam(p.TeamID),
		}
	})

	c.register(ScenarioEntityDeleted, func(p Params) []string {
		return []string{
			KeyEntity(p.EntityID),
			KeyAllEntities,
			KeyEntitiesByTenant(p.Tenant),
			KeyDashboardByTenant(p.Tenant),
			KeyDashboardByTeam(p.TeamID),
			KeyNotificationsByEntity(p.EntityID),
		}
	})

	// A priority change touches the DAG's task list, and team-level
	// aggregates may depend on task counts, so the owning team's dashboard
	// is invalidated too.
	c.register(ScenarioTaskPriorityChanged, func(p Params) []string {
		return []string{
			KeyTasksByDag(p.DagID),
			KeyDashboardByTeam(p.TeamID),
			KeyDashboardByTenant(p.Tenant),
		}
	})

	c.register(ScenarioNotificationsChanged, func(p Params) []string {
		return []string{
			KeyNotificationsByEntity(p.EntityID),
		}
	})
}

// Resolve returns the cache keys invalidated by a scenario. Unregistered
// scenarios fail in strict mode; otherwise everything is invalidated and
// the miss is logged.
func (c *Catalog) Resolve(s Scenario, p Params) ([]string, error) {
	fn, ok := c.scenarios[s]
	if !ok {
		if c.strict {
			return nil, fmt.Errorf("%w: %s", ErrScenarioUnregistered, s)
		}
		c.logger.Error("unregistered invalidation scenario, invalidating everything",
			zap.String("scenario", string(s)))
		return []string{KeyEverything}, nil
	}
	return fn(p), nil
}

// Registered reports whether a scenario has a catalog entry. Exposed so
// wiring tests can assert the catalog covers the whole write surface.
func (c *Catalog) Registered(s Scenario) bool {
	_, ok := c.scenarios[s]
	return ok
}
