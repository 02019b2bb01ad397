package services

import (
	"time"

	"sladash-backend/internal/invalidation"
	"sladash-backend/internal/models"
)

// EntityRepo is the entity slice of the system of record's write surface.
type EntityRepo interface {
	Create(entity *models.Entity) (*models.Entity, error)
	FindByID(id string) (*models.Entity, error)
	FindAll() ([]*models.Entity, error)
	FindByTenant(tenant string) ([]*models.Entity, error)
	Update(id string, entity *models.Entity) (*models.Entity, error)
	Delete(id string) error
}

type EntityService struct {
	repo      EntityRepo
	committer *WriteCommitter
}

func NewEntityService(repo EntityRepo, committer *WriteCommitter) *EntityService {
	return &EntityService{repo: repo, committer: committer}
}

type CreateEntityRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=200"`
	Type      string  `json:"type" validate:"required,oneof=table dag"`
	Tenant    string  `json:"tenant" validate:"required,min=1,max=100"`
	TeamID    string  `json:"teamId" validate:"required"`
	TargetSLA float64 `json:"targetSla" validate:"required,min=0,max=100"`
}

type UpdateEntityRequest struct {
	Name       string   `json:"name,omitempty"`
	TargetSLA  *float64 `json:"targetSla,omitempty" validate:"omitempty,min=0,max=100"`
	CurrentSLA *float64 `json:"currentSla,omitempty" validate:"omitempty,min=0,max=100"`
	Status     string   `json:"status,omitempty" validate:"omitempty,oneof=healthy warning breached paused"`
}

func (s *EntityService) GetAllEntities() ([]*models.Entity, error) {
	return s.repo.FindAll()
}

func (s *EntityService) GetEntityByID(id string) (*models.Entity, error) {
	return s.repo.FindByID(id)
}

func (s *EntityService) GetEntitiesByTenant(tenant string) ([]*models.Entity, error) {
	return s.repo.FindByTenant(tenant)
}

func (s *EntityService) CreateEntity(req *CreateEntityRequest) (*models.Entity, error) {
	now := time.Now()
	entity := &models.Entity{
		Name:        req.Name,
		Type:        req.Type,
		Tenant:      req.Tenant,
		TeamID:      req.TeamID,
		TargetSLA:   req.TargetSLA,
		CurrentSLA:  0,
		Status:      models.EntityStatusHealthy,
		LastRefresh: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(entity)
	if err != nil {
		return nil, err
	}

	s.committer.Committed(invalidation.ScenarioEntityCreated,
		invalidation.Params{EntityID: created.ID.Hex(), Tenant: created.Tenant, TeamID: created.TeamID},
		map[string]string{"entityId": created.ID.Hex(), "tenant": created.Tenant},
	)
	return created, nil
}

func (s *EntityService) UpdateEntity(id string, req *UpdateEntityRequest) (*models.Entity, error) {
	entity, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		entity.Name = req.Name
	}
	if req.TargetSLA != nil {
		entity.TargetSLA = *req.TargetSLA
	}
	if req.CurrentSLA != nil {
		entity.CurrentSLA = *req.CurrentSLA
		entity.LastRefresh = time.Now()
	}
	if req.Status != "" {
		entity.Status = req.Status
	}

	updated, err := s.repo.Update(id, entity)
	if err != nil {
		return nil, err
	}

	s.committer.Committed(invalidation.ScenarioEntityUpdated,
		invalidation.Params{EntityID: id, Tenant: updated.Tenant, TeamID: updated.TeamID},
		map[string]string{"entityId": id, "tenant": updated.Tenant},
	)
	return updated, nil
}

func (s *EntityService) DeleteEntity(id string) error {
	// Fetch first: the invalidation scenario needs tenant and team context.
	entity, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.committer.Committed(invalidation.ScenarioEntityDeleted,
		invalidation.Params{EntityID: id, Tenant: entity.Tenant, TeamID: entity.TeamID},
		map[string]string{"entityId": id, "tenant": entity.Tenant},
	)
	return nil
}
