package handlers

import (
	"errors"
	"net/http"

	"sladash-backend/internal/repository"
	"sladash-backend/internal/services"
	"sladash-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type EntityHandler struct {
	entityService *services.EntityService
	validator     *validator.Validate
}

func NewEntityHandler(entityService *services.EntityService) *EntityHandler {
	return &EntityHandler{
		entityService: entityService,
		validator:     validator.New(),
	}
}

// GetEntities retrieves all tracked entities, optionally filtered by tenant
func (h *EntityHandler) GetEntities(c *gin.Context) {
	if tenant := c.Query("tenant"); tenant != "" {
		entities, err := h.entityService.GetEntitiesByTenant(tenant)
		if err != nil {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve entities", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Entities retrieved successfully", entities)
		return
	}

	entities, err := h.entityService.GetAllEntities()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve entities", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Entities retrieved successfully", entities)
}

// GetEntity retrieves a specific entity by ID
func (h *EntityHandler) GetEntity(c *gin.Context) {
	entityID := c.Param("id")
	if entityID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Entity ID is required", nil)
		return
	}

	entity, err := h.entityService.GetEntityByID(entityID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Entity not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Entity retrieved successfully", entity)
}

// CreateEntity registers a new table or DAG for tracking
func (h *EntityHandler) CreateEntity(c *gin.Context) {
	var req services.CreateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	entity, err := h.entityService.CreateEntity(&req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to create entity", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Entity created successfully", entity)
}

// UpdateEntity updates an existing entity
func (h *EntityHandler) UpdateEntity(c *gin.Context) {
	entityID := c.Param("id")
	if entityID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Entity ID is required", nil)
		return
	}

	var req services.UpdateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	entity, err := h.entityService.UpdateEntity(entityID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Entity not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to update entity", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Entity updated successfully", entity)
}

// DeleteEntity stops tracking an entity
func (h *EntityHandler) DeleteEntity(c *gin.Context) {
	entityID := c.Param("id")
	if entityID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Entity ID is required", nil)
		return
	}

	if err := h.entityService.DeleteEntity(entityID); err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Entity not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to delete entity", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Entity deleted successfully", nil)
}
