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

type NotificationHandler struct {
	notificationService *services.NotificationService
	validator           *validator.Validate
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		validator:           validator.New(),
	}
}

// GetNotifications retrieves the notification configs of an entity
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	entityID := c.Param("entityId")
	if entityID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Entity ID is required", nil)
		return
	}

	configs, err := h.notificationService.GetByEntity(entityID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve notification configs", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Notification configs retrieved successfully", configs)
}

// CreateNotification creates a notification config for an entity
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req services.NotificationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	cfg, err := h.notificationService.Create(&req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to create notification config", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Notification config created successfully", cfg)
}

// UpdateNotification updates a notification config
func (h *NotificationHandler) UpdateNotification(c *gin.Context) {
	configID := c.Param("id")
	if configID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Config ID is required", nil)
		return
	}

	var req services.NotificationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	cfg, err := h.notificationService.Update(configID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Notification config not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to update notification config", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Notification config updated successfully", cfg)
}

// DeleteNotification removes a notification config
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	configID := c.Param("id")
	entityID := c.Query("entityId")
	if configID == "" || entityID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Config ID and entity ID are required", nil)
		return
	}

	if err := h.notificationService.Delete(configID, entityID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Notification config not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to delete notification config", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Notification config deleted successfully", nil)
}
