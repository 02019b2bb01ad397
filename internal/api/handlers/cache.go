package handlers

import (
	"errors"
	"net/http"

	"sladash-backend/internal/datacache"
	"sladash-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type CacheHandler struct {
	cache *datacache.DataCache
}

func NewCacheHandler(cache *datacache.DataCache) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// GetCacheStatus reports the snapshot state without touching the system of
// record
func (h *CacheHandler) GetCacheStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Cache status retrieved successfully", h.cache.Status())
}

// RefreshCache forces an immediate snapshot rebuild and resets the refresh
// schedule. Safe to call repeatedly.
func (h *CacheHandler) RefreshCache(c *gin.Context) {
	if err := h.cache.Refresh(); err != nil {
		if errors.Is(err, datacache.ErrStoreUnavailable) {
			utils.ErrorResponse(c, http.StatusBadGateway, "System of record is unavailable, serving previous snapshot", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to refresh cache", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Cache refreshed successfully", h.cache.Status())
}
