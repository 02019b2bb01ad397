package services

import (
	"sladash-backend/internal/invalidation"
	"sladash-backend/internal/models"
)

type TaskRepo interface {
	Create(task *models.Task) (*models.Task, error)
	FindByDag(dagID string) ([]*models.Task, error)
	FindByID(id string) (*models.Task, error)
	UpdatePriority(id, priority string) (*models.Task, error)
}

// EntityResolver looks up the DAG entity owning a task, for invalidation
// context.
type EntityResolver interface {
	FindByID(id string) (*models.Entity, error)
}

type TaskService struct {
	repo      TaskRepo
	entities  EntityResolver
	committer *WriteCommitter
}

func NewTaskService(repo TaskRepo, entities EntityResolver, committer *WriteCommitter) *TaskService {
	return &TaskService{repo: repo, entities: entities, committer: committer}
}

type CreateTaskRequest struct {
	DagID    string `json:"dagId" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Priority string `json:"priority" validate:"required,oneof=p0 p1 p2 p3"`
}

type UpdateTaskPriorityRequest struct {
	Priority string `json:"priority" validate:"required,oneof=p0 p1 p2 p3"`
}

func (s *TaskService) GetTasksByDag(dagID string) ([]*models.Task, error) {
	return s.repo.FindByDag(dagID)
}

func (s *TaskService) CreateTask(req *CreateTaskRequest) (*models.Task, error) {
	task := &models.Task{
		DagID:    req.DagID,
		Name:     req.Name,
		Priority: req.Priority,
	}

	created, err := s.repo.Create(task)
	if err != nil {
		return nil, err
	}

	params := invalidation.Params{TaskID: created.ID.Hex(), DagID: created.DagID}
	if dag, err := s.entities.FindByID(created.DagID); err == nil {
		params.TeamID = dag.TeamID
		params.Tenant = dag.Tenant
	}

	s.committer.Committed(invalidation.ScenarioTaskPriorityChanged, params,
		map[string]string{"taskId": created.ID.Hex(), "dagId": created.DagID})
	return created, nil
}

func (s *TaskService) UpdateTaskPriority(id string, req *UpdateTaskPriorityRequest) (*models.Task, error) {
	updated, err := s.repo.UpdatePriority(id, req.Priority)
	if err != nil {
		return nil, err
	}

	params := invalidation.Params{TaskID: id, DagID: updated.DagID}
	if dag, err := s.entities.FindByID(updated.DagID); err == nil {
		params.TeamID = dag.TeamID
		params.Tenant = dag.Tenant
	}

	s.committer.Committed(invalidation.ScenarioTaskPriorityChanged, params,
		map[string]string{"taskId": id, "dagId": updated.DagID, "priority": req.Priority})
	return updated, nil
}
