package services

import (
	"sladash-backend/internal/invalidation"
	"sladash-backend/internal/models"
)

type NotificationRepo interface {
	Create(cfg *models.NotificationConfig) (*models.NotificationConfig, error)
	FindByEntity(entityID string) ([]*models.NotificationConfig, error)
	Update(id string, cfg *models.NotificationConfig) (*models.NotificationConfig, error)
	Delete(id string) error
}

// NotificationService manages per-entity notification settings. Delivery is
// an external service; only the configuration lives here.
type NotificationService struct {
	repo      NotificationRepo
	committer *WriteCommitter
}

func NewNotificationService(repo NotificationRepo, committer *WriteCommitter) *NotificationService {
	return &NotificationService{repo: repo, committer: committer}
}

type NotificationConfigRequest struct {
	EntityID string `json:"entityId" validate:"required"`
	Channel  string `json:"channel" validate:"required,oneof=email slack"`
	Target   string `json:"target" validate:"required,min=1,max=500"`
	Enabled  bool   `json:"enabled"`
}

func (s *NotificationService) GetByEntity(entityID string) ([]*models.NotificationConfig, error) {
	return s.repo.FindByEntity(entityID)
}

func (s *NotificationService) Create(req *NotificationConfigRequest) (*models.NotificationConfig, error) {
	created, err := s.repo.Create(&models.NotificationConfig{
		EntityID: req.EntityID,
		Channel:  req.Channel,
		Target:   req.Target,
		Enabled:  req.Enabled,
	})
	if err != nil {
		return nil, err
	}

	s.committer.Committed(invalidation.ScenarioNotificationsChanged,
		invalidation.Params{EntityID: created.EntityID},
		map[string]string{"entityId": created.EntityID})
	return created, nil
}

func (s *NotificationService) Update(id string, req *NotificationConfigRequest) (*models.NotificationConfig, error) {
	updated, err := s.repo.Update(id, &models.NotificationConfig{
		EntityID: req.EntityID,
		Channel:  req.Channel,
		Target:   req.Target,
		Enabled:  req.Enabled,
	})
	if err != nil {
		return nil, err
	}

	s.committer.Committed(invalidation.ScenarioNotificationsChanged,
		invalidation.Params{EntityID: updated.EntityID},
		map[string]string{"entityId": updated.EntityID})
	return updated, nil
}

func (s *NotificationService) Delete(id, entityID string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.committer.Committed(invalidation.ScenarioNotificationsChanged,
		invalidation.Params{EntityID: entityID},
		map[string]string{"entityId": entityID})
	return nil
}
