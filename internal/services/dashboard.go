package services

import (
	"time"

	"sladash-backend/internal/models"
)

// SnapshotReader is the read surface of the server cache consumed by
// dashboard queries.
type SnapshotReader interface {
	AllEntities() ([]*models.Entity, error)
	EntitiesByTenant(tenant string) ([]*models.Entity, error)
	TeamsByTenant(tenant string) ([]*models.Team, error)
	MetricsByTenant(tenant string) (models.DashboardMetrics, error)
	MetricsForRange(tenant string, from, to time.Time) (models.DashboardMetrics, error)
}

// DashboardService serves all dashboard reads from the cached snapshot. It
// never reaches the system of record directly.
type DashboardService struct {
	cache SnapshotReader
}

func NewDashboardService(cache SnapshotReader) *DashboardService {
	return &DashboardService{cache: cache}
}

func (s *DashboardService) GetAllEntities() ([]*models.Entity, error) {
	return s.cache.AllEntities()
}

func (s *DashboardService) GetEntitiesByTenant(tenant string) ([]*models.Entity, error) {
	return s.cache.EntitiesByTenant(tenant)
}

func (s *DashboardService) GetTeamsByTenant(tenant string) ([]*models.Team, error) {
	return s.cache.TeamsByTenant(tenant)
}

func (s *DashboardService) GetMetricsByTenant(tenant string) (models.DashboardMetrics, error) {
	return s.cache.MetricsByTenant(tenant)
}

func (s *DashboardService) GetMetricsForRange(tenant string, from, to time.Time) (models.DashboardMetrics, error) {
	return s.cache.MetricsForRange(tenant, from, to)
}
