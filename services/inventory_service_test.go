package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/errbus"
	"github.com/meatvault/stock-service/models"
	"github.com/meatvault/stock-service/realtime"
	"github.com/meatvault/stock-service/repository"
)

// --- Mocks ---

type MockInventoryRepo struct{ mock.Mock }

func (m *MockInventoryRepo) Subscribe(ctx context.Context, userID string) (<-chan realtime.Snapshot[models.InventoryItem], error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan realtime.Snapshot[models.InventoryItem]), args.Error(1)
}

func (m *MockInventoryRepo) List(ctx context.Context, userID string) ([]models.InventoryItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepo) Create(ctx context.Context, item *models.InventoryItem) (string, error) {
	args := m.Called(ctx, item)
	return args.String(0), args.Error(1)
}

func (m *MockInventoryRepo) Update(ctx context.Context, id string, updates bson.M) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockInventoryRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func collectFailures(bus *errbus.Bus) *[]errbus.WriteFailure {
	var failures []errbus.WriteFailure
	bus.Subscribe(func(f errbus.WriteFailure) { failures = append(failures, f) })
	return &failures
}

var testUser = &models.AppUser{UID: "user-1", DisplayName: "Sam Butcher", Email: "sam@example.com"}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func newInventoryService(repo repository.InventoryRepository, bus *errbus.Bus) *InventoryService {
	return NewInventoryService(repo, bus, zap.NewNop())
}

// --- Create ---

func TestCreateRequiresSignedInUser(t *testing.T) {
	repo := new(MockInventoryRepo)
	bus := errbus.New()
	failures := collectFailures(bus)
	svc := newInventoryService(repo, bus)

	_, err := svc.Create(context.Background(), nil, models.CreateItemRequest{
		ItemName: "Ribeye Steak",
		Category: "Beef",
		Quantity: intPtr(2),
	})

	assert.ErrorIs(t, err, ErrNotSignedIn)
	repo.AssertNotCalled(t, "Create")
	assert.Empty(t, *failures, "local validation failures never reach the bus")
}

func TestCreateRejectsEmptyName(t *testing.T) {
	repo := new(MockInventoryRepo)
	svc := newInventoryService(repo, errbus.New())

	_, err := svc.Create(context.Background(), testUser, models.CreateItemRequest{
		ItemName: "   ",
		Category: "Beef",
		Quantity: intPtr(2),
	})

	assert.ErrorIs(t, err, ErrEmptyName)
	repo.AssertNotCalled(t, "Create")
}

func TestCreateStampsActingUser(t *testing.T) {
	repo := new(MockInventoryRepo)
	svc := newInventoryService(repo, errbus.New())

	var created *models.InventoryItem
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.InventoryItem")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*models.InventoryItem) }).
		Return("abc123", nil)

	_, err := svc.Create(context.Background(), testUser, models.CreateItemRequest{
		ItemName: "  Ribeye Steak  ",
		Category: "Beef",
		Quantity: intPtr(2),
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Ribeye Steak", created.ItemName)
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, "user-1", created.LastUpdatedBy)
}

// A rejected create produces both effects: the caller gets the error and
// exactly one create failure lands on the bus, payload included.
func TestCreateRejectionReportsTwice(t *testing.T) {
	repo := new(MockInventoryRepo)
	bus := errbus.New()
	failures := collectFailures(bus)
	svc := newInventoryService(repo, bus)

	repo.On("Create", mock.Anything, mock.Anything).Return("", errors.New("permission denied"))

	_, err := svc.Create(context.Background(), testUser, models.CreateItemRequest{
		ItemName: "Ribeye Steak",
		Category: "Beef",
		Quantity: intPtr(2),
	})

	assert.Error(t, err)
	require.Len(t, *failures, 1)
	assert.Equal(t, errbus.OpCreate, (*failures)[0].Operation)
	assert.Equal(t, repository.InventoryCollection, (*failures)[0].Path)
	assert.NotNil(t, (*failures)[0].Payload, "rejected payload travels with the event")
}

// --- Update ---

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	repo := new(MockInventoryRepo)
	svc := newInventoryService(repo, errbus.New())

	var updates bson.M
	repo.On("Update", mock.Anything, "abc123", mock.AnythingOfType("primitive.M")).
		Run(func(args mock.Arguments) { updates = args.Get(2).(bson.M) }).
		Return(nil)

	err := svc.Update(context.Background(), testUser, "abc123", models.UpdateItemRequest{
		Quantity: intPtr(7),
	})

	require.NoError(t, err)
	assert.Equal(t, bson.M{"quantity": 7, "lastUpdatedBy": "user-1"}, updates)
}

func TestUpdateRejectionReportsTwice(t *testing.T) {
	repo := new(MockInventoryRepo)
	bus := errbus.New()
	failures := collectFailures(bus)
	svc := newInventoryService(repo, bus)

	repo.On("Update", mock.Anything, "abc123", mock.Anything).Return(errors.New("permission denied"))

	err := svc.Update(context.Background(), testUser, "abc123", models.UpdateItemRequest{
		ItemName: strPtr("Pork Belly"),
	})

	assert.Error(t, err)
	require.Len(t, *failures, 1)
	assert.Equal(t, errbus.OpUpdate, (*failures)[0].Operation)
}

func TestUpdateNotFoundIsNotAPermissionFailure(t *testing.T) {
	repo := new(MockInventoryRepo)
	bus := errbus.New()
	failures := collectFailures(bus)
	svc := newInventoryService(repo, bus)

	repo.On("Update", mock.Anything, "missing", mock.Anything).Return(repository.ErrNotFound)

	err := svc.Update(context.Background(), testUser, "missing", models.UpdateItemRequest{
		Quantity: intPtr(1),
	})

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, *failures)
}

// --- Delete ---

func TestDeleteSwallowsStoreFailureButPublishes(t *testing.T) {
	repo := new(MockInventoryRepo)
	bus := errbus.New()
	failures := collectFailures(bus)
	svc := newInventoryService(repo, bus)

	repo.On("Delete", mock.Anything, "abc123").Return(errors.New("permission denied"))

	err := svc.Delete(context.Background(), testUser, "abc123")

	assert.NoError(t, err, "delete outcome is fire-and-forget")
	require.Len(t, *failures, 1)
	assert.Equal(t, errbus.OpDelete, (*failures)[0].Operation)
}

func TestDeleteRequiresSignedInUser(t *testing.T) {
	repo := new(MockInventoryRepo)
	svc := newInventoryService(repo, errbus.New())

	err := svc.Delete(context.Background(), nil, "abc123")

	assert.ErrorIs(t, err, ErrNotSignedIn)
	repo.AssertNotCalled(t, "Delete")
}

// --- Read paths ---

func TestListClassifiesAtReadTime(t *testing.T) {
	repo := new(MockInventoryRepo)
	svc := newInventoryService(repo, errbus.New())

	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.Local)
	expiry := time.Date(2025, 6, 15, 18, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return base }

	repo.On("List", mock.Anything, "user-1").Return([]models.InventoryItem{
		{ItemName: "Ribeye Steak", Quantity: 1, ExpiryDate: &expiry},
	}, nil)

	items, err := svc.List(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusExpiringSoon, items[0].Status)

	// Same stored data, three days later: the projection moves on its own.
	svc.now = func() time.Time { return base.AddDate(0, 0, 3) }
	items, err = svc.List(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, items[0].Status)
}

func TestListFailurePublishesOnBus(t *testing.T) {
	repo := new(MockInventoryRepo)
	bus := errbus.New()
	failures := collectFailures(bus)
	svc := newInventoryService(repo, bus)

	repo.On("List", mock.Anything, "user-1").Return(nil, errors.New("permission denied"))

	_, err := svc.List(context.Background(), testUser)

	assert.Error(t, err)
	require.Len(t, *failures, 1)
	assert.Equal(t, errbus.OpList, (*failures)[0].Operation)
	assert.Equal(t, repository.InventoryCollection, (*failures)[0].Path)
}

func TestListRequiresSignedInUser(t *testing.T) {
	repo := new(MockInventoryRepo)
	svc := newInventoryService(repo, errbus.New())

	_, err := svc.List(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotSignedIn)
}
