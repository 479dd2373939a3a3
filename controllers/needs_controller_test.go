package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/errbus"
	"github.com/meatvault/stock-service/models"
	"github.com/meatvault/stock-service/realtime"
	"github.com/meatvault/stock-service/repository"
	"github.com/meatvault/stock-service/services"
)

type MockNeedsRepo struct{ mock.Mock }

func (m *MockNeedsRepo) Subscribe(ctx context.Context, userID string) (<-chan realtime.Snapshot[models.NeedItem], error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan realtime.Snapshot[models.NeedItem]), args.Error(1)
}

func (m *MockNeedsRepo) List(ctx context.Context, userID string) ([]models.NeedItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NeedItem), args.Error(1)
}

func (m *MockNeedsRepo) Create(ctx context.Context, need *models.NeedItem) (string, error) {
	args := m.Called(ctx, need)
	return args.String(0), args.Error(1)
}

func (m *MockNeedsRepo) Update(ctx context.Context, id string, updates bson.M) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockNeedsRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newNeedsRouter(repo repository.NeedsRepository, user *models.AppUser) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := services.NewNeedsService(repo, errbus.New(), zap.NewNop())
	ctrl := NewNeedsController(svc, zap.NewNop())

	r := gin.New()
	r.Use(asUser(user))
	r.GET("/needs", ctrl.GetNeeds)
	r.POST("/needs", ctrl.CreateNeed)
	r.PATCH("/needs/:id", ctrl.UpdateNeed)
	r.DELETE("/needs/:id", ctrl.DeleteNeed)
	return r
}

func TestGetNeeds(t *testing.T) {
	repo := new(MockNeedsRepo)
	repo.On("List", mock.Anything, "user-1").Return([]models.NeedItem{
		{ItemName: "Bacon", Category: "Pork", AddedBy: "user-1", AddedByName: "Sam Butcher"},
	}, nil)
	r := newNeedsRouter(repo, testUser)

	w := doJSON(r, http.MethodGet, "/needs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Needs []models.NeedItem `json:"needs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Needs, 1)
	assert.Equal(t, "Bacon", resp.Needs[0].ItemName)
}

func TestCreateNeedStampsActingUser(t *testing.T) {
	repo := new(MockNeedsRepo)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.NeedItem")).Return("6650c0ffee", nil)
	r := newNeedsRouter(repo, testUser)

	w := doJSON(r, http.MethodPost, "/needs", gin.H{"itemName": "Bacon", "category": "Pork"})
	require.Equal(t, http.StatusCreated, w.Code)

	var need models.NeedItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &need))
	assert.Equal(t, "user-1", need.AddedBy)
	assert.Equal(t, "Sam Butcher", need.AddedByName)
}

func TestCreateNeedRequiresUser(t *testing.T) {
	r := newNeedsRouter(new(MockNeedsRepo), nil)

	w := doJSON(r, http.MethodPost, "/needs", gin.H{"itemName": "Bacon", "category": "Pork"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateNeedNotFound(t *testing.T) {
	repo := new(MockNeedsRepo)
	repo.On("Update", mock.Anything, "missing", mock.Anything).Return(repository.ErrNotFound)
	r := newNeedsRouter(repo, testUser)

	w := doJSON(r, http.MethodPatch, "/needs/missing", gin.H{"itemName": "Bacon"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteNeedAcceptedOnStoreFailure(t *testing.T) {
	repo := new(MockNeedsRepo)
	repo.On("Delete", mock.Anything, "abc123").Return(errors.New("permission denied"))
	r := newNeedsRouter(repo, testUser)

	w := doJSON(r, http.MethodDelete, "/needs/abc123", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
}
