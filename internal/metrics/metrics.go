package metrics

import (
	"math"
	"time"

	"sladash-backend/internal/models"
)

// Round1 rounds to one decimal place, half away from zero. The same rounding
// runs on every consumer of compliance figures so optimistic values never
// drift cosmetically from authoritative ones.
func Round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// Compute reduces an entity list to dashboard metrics in a single pass.
// An empty (or nil) list yields all-zero metrics.
func Compute(entities []*models.Entity) models.DashboardMetrics {
	var (
		sumAll, sumTables, sumDags float64
		tables, dags               int
	)

	for _, e := range entities {
		sumAll += e.CurrentSLA
		switch e.Type {
		case models.EntityTypeTable:
			sumTables += e.CurrentSLA
			tables++
		case models.EntityTypeDag:
			sumDags += e.CurrentSLA
			dags++
		}
	}

	m := models.DashboardMetrics{
		EntitiesCount: len(entities),
		TablesCount:   tables,
		DagsCount:     dags,
	}
	if len(entities) > 0 {
		m.OverallCompliance = Round1(sumAll / float64(len(entities)))
	}
	if tables > 0 {
		m.TablesCompliance = Round1(sumTables / float64(tables))
	}
	if dags > 0 {
		m.DagsCompliance = Round1(sumDags / float64(dags))
	}
	return m
}

// ComputeByTenant groups entities by tenant and computes metrics per group.
// Tenants with no entities get zero metrics so dashboard lookups stay O(1).
func ComputeByTenant(entities []*models.Entity, tenants []*models.Tenant) map[string]models.DashboardMetrics {
	grouped := make(map[string][]*models.Entity)
	for _, e := range entities {
		grouped[e.Tenant] = append(grouped[e.Tenant], e)
	}

	out := make(map[string]models.DashboardMetrics, len(tenants))
	for _, t := range tenants {
		out[t.Name] = Compute(grouped[t.Name])
	}
	// Entities referencing a tenant missing from the tenant list still get
	// an aggregate; over-reporting beats a silent hole in the dashboard.
	for tenant, group := range grouped {
		if _, ok := out[tenant]; !ok {
			out[tenant] = Compute(group)
		}
	}
	return out
}

// FilterByRange returns the entities whose last refresh falls inside
// [from, to]. Used for on-demand range metrics, which are computed from the
// current snapshot rather than cached.
func FilterByRange(entities []*models.Entity, from, to time.Time) []*models.Entity {
	var out []*models.Entity
	for _, e := range entities {
		if e.LastRefresh.Before(from) || e.LastRefresh.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}
