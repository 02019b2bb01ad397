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

type TaskHandler struct {
	taskService *services.TaskService
	validator   *validator.Validate
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validator:   validator.New(),
	}
}

// GetTasksByDag retrieves the tasks of a DAG entity
func (h *TaskHandler) GetTasksByDag(c *gin.Context) {
	dagID := c.Param("dagId")
	if dagID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "DAG ID is required", nil)
		return
	}

	tasks, err := h.taskService.GetTasksByDag(dagID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve tasks", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Tasks retrieved successfully", tasks)
}

// CreateTask adds a task to a DAG
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	task, err := h.taskService.CreateTask(&req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to create task", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Task created successfully", task)
}

// UpdateTaskPriority changes a task's priority
func (h *TaskHandler) UpdateTaskPriority(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	var req services.UpdateTaskPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	task, err := h.taskService.UpdateTaskPriority(taskID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Task not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to update task priority", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Task priority updated successfully", task)
}
