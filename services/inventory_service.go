package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/errbus"
	"github.com/meatvault/stock-service/models"
	"github.com/meatvault/stock-service/realtime"
	"github.com/meatvault/stock-service/repository"
)

var (
	// ErrNotSignedIn is a local validation failure: the write never reaches
	// the store.
	ErrNotSignedIn = errors.New("you must be signed in")

	// ErrEmptyName rejects blank item names before any network call.
	ErrEmptyName = errors.New("item name must not be empty")
)

// InventoryService owns inventory reads and writes. Writes go straight to
// the store and never touch any in-memory snapshot; their effect becomes
// visible when the live subscription delivers the next snapshot. A rejected
// create or update produces two independent effects: the error returns to
// the caller AND a failure event goes out on the bus. Neither implies the
// absence of the other.
type InventoryService struct {
	repo repository.InventoryRepository
	bus  *errbus.Bus
	log  *zap.Logger
	now  func() time.Time
}

func NewInventoryService(repo repository.InventoryRepository, bus *errbus.Bus, log *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, bus: bus, log: log, now: time.Now}
}

// OpenSync starts a live subscription for the user and returns the sync that
// owns its snapshot. The caller tears it down via sync.Stop or by cancelling
// ctx. On a subscription failure the sync is still returned (empty, not
// loading); the failure has already been published on the bus.
func (s *InventoryService) OpenSync(ctx context.Context, user *models.AppUser) (*realtime.CollectionSync[models.InventoryItem], error) {
	sync := realtime.NewCollectionSync[models.InventoryItem](s.repo, s.bus, repository.InventoryCollection, s.log)

	uid := ""
	if user != nil {
		uid = user.UID
	}
	if err := sync.Start(ctx, uid); err != nil {
		return sync, err
	}
	return sync, nil
}

// Classify maps raw records to view items using one wall-clock reading for
// the whole batch. Callers re-classify on every read; an unchanged snapshot
// can legitimately yield different statuses as time passes.
func (s *InventoryService) Classify(items []models.InventoryItem) []models.InventoryItemWithStatus {
	now := s.now()
	out := make([]models.InventoryItemWithStatus, len(items))
	for i, item := range items {
		out[i] = item.WithStatus(now)
	}
	return out
}

// List is the one-shot read path: the user's full classified set, newest
// created first.
func (s *InventoryService) List(ctx context.Context, user *models.AppUser) ([]models.InventoryItemWithStatus, error) {
	if user == nil {
		return nil, ErrNotSignedIn
	}

	raw, err := s.repo.List(ctx, user.UID)
	if err != nil {
		s.bus.Publish(errbus.WriteFailure{
			Path:      repository.InventoryCollection,
			Operation: errbus.OpList,
			Err:       err,
		})
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return s.Classify(raw), nil
}

// Create adds an item stamped with the acting user's identity. Requires a
// signed-in user; that check never contacts the store.
func (s *InventoryService) Create(ctx context.Context, user *models.AppUser, req models.CreateItemRequest) (*models.InventoryItem, error) {
	if user == nil {
		return nil, ErrNotSignedIn
	}
	name := strings.TrimSpace(req.ItemName)
	if name == "" {
		return nil, ErrEmptyName
	}

	item := &models.InventoryItem{
		ItemName:      name,
		Category:      req.Category,
		Quantity:      *req.Quantity,
		PurchaseDate:  req.PurchaseDate,
		ExpiryDate:    req.ExpiryDate,
		Notes:         req.Notes,
		ImageURL:      req.ImageURL,
		UserID:        user.UID,
		LastUpdatedBy: user.UID,
	}

	if _, err := s.repo.Create(ctx, item); err != nil {
		s.bus.Publish(errbus.WriteFailure{
			Path:      repository.InventoryCollection,
			Operation: errbus.OpCreate,
			Payload:   item,
			Err:       err,
		})
		return nil, fmt.Errorf("failed to add item: %w", err)
	}

	s.log.Info("inventory item added",
		zap.String("id", item.ID.Hex()),
		zap.String("itemName", item.ItemName),
		zap.String("user", user.UID))
	return item, nil
}

// Update applies the provided fields only, restamping lastUpdatedBy (and
// updatedAt, at the store layer) on every write.
func (s *InventoryService) Update(ctx context.Context, user *models.AppUser, id string, req models.UpdateItemRequest) error {
	if user == nil {
		return ErrNotSignedIn
	}

	updates := bson.M{"lastUpdatedBy": user.UID}
	if req.ItemName != nil {
		name := strings.TrimSpace(*req.ItemName)
		if name == "" {
			return ErrEmptyName
		}
		updates["itemName"] = name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Quantity != nil {
		updates["quantity"] = *req.Quantity
	}
	if req.PurchaseDate != nil {
		updates["purchaseDate"] = *req.PurchaseDate
	}
	if req.ExpiryDate != nil {
		updates["expiryDate"] = *req.ExpiryDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.ImageURL != nil {
		updates["imageUrl"] = *req.ImageURL
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		s.bus.Publish(errbus.WriteFailure{
			Path:      repository.InventoryCollection + "/" + id,
			Operation: errbus.OpUpdate,
			Payload:   updates,
			Err:       err,
		})
		return fmt.Errorf("failed to update item: %w", err)
	}

	s.log.Info("inventory item updated", zap.String("id", id), zap.String("user", user.UID))
	return nil
}

// Delete is fire-and-forget: apart from the signed-in check, the outcome is
// observable only through logs and the bus, never as a returned error.
func (s *InventoryService) Delete(ctx context.Context, user *models.AppUser, id string) error {
	if user == nil {
		return ErrNotSignedIn
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.bus.Publish(errbus.WriteFailure{
				Path:      repository.InventoryCollection + "/" + id,
				Operation: errbus.OpDelete,
				Err:       err,
			})
		}
		s.log.Warn("failed to delete inventory item",
			zap.String("id", id), zap.String("user", user.UID), zap.Error(err))
		return nil
	}

	s.log.Info("inventory item deleted", zap.String("id", id), zap.String("user", user.UID))
	return nil
}
