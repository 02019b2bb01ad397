package metrics

import (
	"testing"
	"time"

	"sladash-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func entity(typ, tenant string, sla float64) *models.Entity {
	return &models.Entity{
		Name:       "e",
		Type:       typ,
		Tenant:     tenant,
		TeamID:     "team-1",
		CurrentSLA: sla,
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		name     string
		in       float64
		expected float64
	}{
		{"exact", 92.0, 92.0},
		{"half rounds up", 91.25, 91.3},
		{"below half rounds down", 91.24, 91.2},
		{"repeating mean", 92.333333, 92.3},
		{"zero", 0, 0},
		{"hundred", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Round1(tt.in))
		})
	}
}

func TestCompute_EmptyList(t *testing.T) {
	m := Compute(nil)

	assert.Equal(t, 0, m.EntitiesCount)
	assert.Equal(t, 0, m.TablesCount)
	assert.Equal(t, 0, m.DagsCount)
	assert.Equal(t, 0.0, m.OverallCompliance)
	assert.Equal(t, 0.0, m.TablesCompliance)
	assert.Equal(t, 0.0, m.DagsCompliance)
}

func TestCompute_MixedEntities(t *testing.T) {
	entities := []*models.Entity{
		entity(models.EntityTypeTable, "acme", 90),
		entity(models.EntityTypeTable, "acme", 95),
		entity(models.EntityTypeDag, "acme", 80),
	}

	m := Compute(entities)

	assert.Equal(t, 3, m.EntitiesCount)
	assert.Equal(t, 2, m.TablesCount)
	assert.Equal(t, 1, m.DagsCount)
	assert.Equal(t, 88.3, m.OverallCompliance) // (90+95+80)/3 = 88.33...
	assert.Equal(t, 92.5, m.TablesCompliance)
	assert.Equal(t, 80.0, m.DagsCompliance)
}

func TestCompute_TablesOnly(t *testing.T) {
	entities := []*models.Entity{
		entity(models.EntityTypeTable, "acme", 99.95),
	}

	m := Compute(entities)

	assert.Equal(t, 100.0, m.TablesCompliance)
	assert.Equal(t, 0.0, m.DagsCompliance)
	assert.Equal(t, 0, m.DagsCount)
}

func TestCompute_CountMatchesInput(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100} {
		entities := make([]*models.Entity, 0, n)
		for i := 0; i < n; i++ {
			entities = append(entities, entity(models.EntityTypeDag, "acme", float64(i%101)))
		}

		m := Compute(entities)

		assert.Equal(t, n, m.EntitiesCount)
		assert.GreaterOrEqual(t, m.OverallCompliance, 0.0)
		assert.LessOrEqual(t, m.OverallCompliance, 100.0)
	}
}

func TestComputeByTenant(t *testing.T) {
	entities := []*models.Entity{
		entity(models.EntityTypeTable, "acme", 90),
		entity(models.EntityTypeDag, "acme", 70),
		entity(models.EntityTypeTable, "globex", 100),
	}
	tenants := []*models.Tenant{{Name: "acme"}, {Name: "globex"}, {Name: "initech"}}

	byTenant := ComputeByTenant(entities, tenants)

	assert.Len(t, byTenant, 3)
	assert.Equal(t, 80.0, byTenant["acme"].OverallCompliance)
	assert.Equal(t, 100.0, byTenant["globex"].OverallCompliance)
	assert.Equal(t, 0, byTenant["initech"].EntitiesCount)
}

func TestComputeByTenant_UnlistedTenantStillAggregated(t *testing.T) {
	entities := []*models.Entity{entity(models.EntityTypeTable, "shadow", 88)}

	byTenant := ComputeByTenant(entities, nil)

	assert.Equal(t, 88.0, byTenant["shadow"].OverallCompliance)
}

func TestFilterByRange(t *testing.T) {
	now := time.Now()
	inside := entity(models.EntityTypeTable, "acme", 90)
	inside.LastRefresh = now
	before := entity(models.EntityTypeTable, "acme", 10)
	before.LastRefresh = now.Add(-48 * time.Hour)
	after := entity(models.EntityTypeTable, "acme", 10)
	after.LastRefresh = now.Add(48 * time.Hour)

	got := FilterByRange([]*models.Entity{inside, before, after}, now.Add(-time.Hour), now.Add(time.Hour))

	assert.Len(t, got, 1)
	assert.Equal(t, inside, got[0])
}
