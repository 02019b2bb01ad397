package handlers

import (
	"errors"
	"net/http"
	"time"

	"sladash-backend/internal/datacache"
	"sladash-backend/internal/services"
	"sladash-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// notReady distinguishes a warming cache from a server fault. An empty
// snapshot is a valid result and is never reported as an error.
func notReady(c *gin.Context, err error) bool {
	if errors.Is(err, datacache.ErrNotReady) {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Dashboard data is still loading", err)
		return true
	}
	return false
}

// GetDashboardEntities serves the cached entity list, optionally scoped to
// a tenant
func (h *DashboardHandler) GetDashboardEntities(c *gin.Context) {
	tenant := c.Query("tenant")

	var (
		entities interface{}
		err      error
	)
	if tenant != "" {
		entities, err = h.dashboardService.GetEntitiesByTenant(tenant)
	} else {
		entities, err = h.dashboardService.GetAllEntities()
	}
	if err != nil {
		if notReady(c, err) {
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve entities", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Entities retrieved successfully", entities)
}

// GetTenantMetrics serves the precomputed compliance rollup for a tenant
func (h *DashboardHandler) GetTenantMetrics(c *gin.Context) {
	tenant := c.Param("tenant")
	if tenant == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Tenant is required", nil)
		return
	}

	from, to, err := parseRange(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid time range", err)
		return
	}

	if !from.IsZero() || !to.IsZero() {
		metrics, err := h.dashboardService.GetMetricsForRange(tenant, from, to)
		if err != nil {
			if notReady(c, err) {
				return
			}
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute metrics", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Metrics retrieved successfully", metrics)
		return
	}

	metrics, err := h.dashboardService.GetMetricsByTenant(tenant)
	if err != nil {
		if notReady(c, err) {
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve metrics", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Metrics retrieved successfully", metrics)
}

// GetTenantTeams serves the teams visible under a tenant
func (h *DashboardHandler) GetTenantTeams(c *gin.Context) {
	tenant := c.Param("tenant")
	if tenant == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Tenant is required", nil)
		return
	}

	teams, err := h.dashboardService.GetTeamsByTenant(tenant)
	if err != nil {
		if notReady(c, err) {
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve teams", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Teams retrieved successfully", teams)
}

func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}
	return from, to, nil
}
