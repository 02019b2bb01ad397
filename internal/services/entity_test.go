package services

import (
	"errors"
	"testing"

	"sladash-backend/internal/invalidation"
	"sladash-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mockEntityRepo struct {
	mock.Mock
}

func (m *mockEntityRepo) Create(entity *models.Entity) (*models.Entity, error) {
	args := m.Called(entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

func (m *mockEntityRepo) FindByID(id string) (*models.Entity, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

func (m *mockEntityRepo) FindAll() ([]*models.Entity, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Entity), args.Error(1)
}

func (m *mockEntityRepo) FindByTenant(tenant string) ([]*models.Entity, error) {
	args := m.Called(tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Entity), args.Error(1)
}

func (m *mockEntityRepo) Update(id string, entity *models.Entity) (*models.Entity, error) {
	args := m.Called(id, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entity), args.Error(1)
}

func (m *mockEntityRepo) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func newTestCommitter(broadcaster *recordingBus, refresher *recordingRefresher) *WriteCommitter {
	return NewWriteCommitter(invalidation.NewCatalog(true, zap.NewNop()), broadcaster, refresher, zap.NewNop())
}

func TestCreateEntityCommitsScenario(t *testing.T) {
	repo := new(mockEntityRepo)
	broadcaster := &recordingBus{}
	refresher := &recordingRefresher{}
	svc := NewEntityService(repo, newTestCommitter(broadcaster, refresher))

	id := primitive.NewObjectID()
	repo.On("Create", mock.AnythingOfType("*models.Entity")).Return(&models.Entity{
		ID:     id,
		Name:   "orders",
		Type:   models.EntityTypeTable,
		Tenant: "acme",
		TeamID: "team-1",
	}, nil)

	created, err := svc.CreateEntity(&CreateEntityRequest{
		Name:      "orders",
		Type:      models.EntityTypeTable,
		Tenant:    "acme",
		TeamID:    "team-1",
		TargetSLA: 99.5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EntityStatusHealthy, created.Status)

	assert.Equal(t, 1, refresher.calls)
	require.Len(t, broadcaster.events, 1)
	event := broadcaster.events[0]
	assert.Equal(t, string(invalidation.ScenarioEntityCreated), event.Event)
	assert.Contains(t, event.AffectedKeys, invalidation.KeyAllEntities)
	assert.Contains(t, event.AffectedKeys, invalidation.KeyDashboardByTenant("acme"))
	repo.AssertExpectations(t)
}

func TestCreateEntityRepoFailureDoesNotCommit(t *testing.T) {
	repo := new(mockEntityRepo)
	broadcaster := &recordingBus{}
	refresher := &recordingRefresher{}
	svc := NewEntityService(repo, newTestCommitter(broadcaster, refresher))

	repo.On("Create", mock.Anything).Return(nil, errors.New("write failed"))

	_, err := svc.CreateEntity(&CreateEntityRequest{
		Name: "orders", Type: models.EntityTypeTable, Tenant: "acme", TeamID: "team-1", TargetSLA: 99,
	})
	require.Error(t, err)
	assert.Zero(t, refresher.calls, "a failed write must not refresh the cache")
	assert.Empty(t, broadcaster.events, "a failed write must not invalidate anything")
}

func TestUpdateEntityMergesAndCommits(t *testing.T) {
	repo := new(mockEntityRepo)
	broadcaster := &recordingBus{}
	svc := NewEntityService(repo, newTestCommitter(broadcaster, &recordingRefresher{}))

	id := primitive.NewObjectID()
	existing := &models.Entity{ID: id, Name: "orders", Tenant: "acme", TeamID: "team-1", TargetSLA: 99, CurrentSLA: 97}
	repo.On("FindByID", id.Hex()).Return(existing, nil)
	repo.On("Update", id.Hex(), mock.AnythingOfType("*models.Entity")).Return(existing, nil)

	sla := 91.4
	_, err := svc.UpdateEntity(id.Hex(), &UpdateEntityRequest{CurrentSLA: &sla, Status: models.EntityStatusWarning})
	require.NoError(t, err)

	assert.Equal(t, 91.4, existing.CurrentSLA)
	assert.Equal(t, models.EntityStatusWarning, existing.Status)
	assert.False(t, existing.LastRefresh.IsZero())

	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, string(invalidation.ScenarioEntityUpdated), broadcaster.events[0].Event)
	assert.Contains(t, broadcaster.events[0].AffectedKeys, invalidation.KeyEntity(id.Hex()))
}

func TestDeleteEntityUsesPreDeleteContext(t *testing.T) {
	repo := new(mockEntityRepo)
	broadcaster := &recordingBus{}
	svc := NewEntityService(repo, newTestCommitter(broadcaster, &recordingRefresher{}))

	id := primitive.NewObjectID()
	repo.On("FindByID", id.Hex()).Return(&models.Entity{ID: id, Tenant: "acme", TeamID: "team-1"}, nil)
	repo.On("Delete", id.Hex()).Return(nil)

	require.NoError(t, svc.DeleteEntity(id.Hex()))

	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, string(invalidation.ScenarioEntityDeleted), broadcaster.events[0].Event)
	assert.Contains(t, broadcaster.events[0].AffectedKeys, invalidation.KeyEntitiesByTenant("acme"))
	assert.Contains(t, broadcaster.events[0].AffectedKeys, invalidation.KeyDashboardByTeam("team-1"))
}
