package models

import "time"

// DashboardMetrics holds derived compliance figures for a scope (tenant or
// team). Always recomputed from an entity snapshot, never mutated in place.
type DashboardMetrics struct {
	OverallCompliance float64 `json:"overallCompliance"`
	TablesCompliance  float64 `json:"tablesCompliance"`
	DagsCompliance    float64 `json:"dagsCompliance"`
	EntitiesCount     int     `json:"entitiesCount"`
	TablesCount       int     `json:"tablesCount"`
	DagsCount         int     `json:"dagsCount"`
}

// CacheSnapshot is an immutable point-in-time copy of the full dataset plus
// derived metrics. MetricsByTenant is always computed from Entities in the
// same snapshot; a snapshot is replaced wholesale, never patched.
type CacheSnapshot struct {
	Entities        []*Entity                   `json:"entities"`
	Teams           []*Team                     `json:"teams"`
	Tenants         []*Tenant                   `json:"tenants"`
	MetricsByTenant map[string]DashboardMetrics `json:"metricsByTenant"`
	Version         int64                       `json:"version"`
	LastUpdated     time.Time                   `json:"lastUpdated"`
}
