package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/errbus"
	"github.com/meatvault/stock-service/models"
	"github.com/meatvault/stock-service/realtime"
	"github.com/meatvault/stock-service/repository"
)

// NeedsService owns the reorder list. Same write protocol as inventory,
// minus status derivation.
type NeedsService struct {
	repo repository.NeedsRepository
	bus  *errbus.Bus
	log  *zap.Logger
}

func NewNeedsService(repo repository.NeedsRepository, bus *errbus.Bus, log *zap.Logger) *NeedsService {
	return &NeedsService{repo: repo, bus: bus, log: log}
}

func (s *NeedsService) OpenSync(ctx context.Context, user *models.AppUser) (*realtime.CollectionSync[models.NeedItem], error) {
	sync := realtime.NewCollectionSync[models.NeedItem](s.repo, s.bus, repository.NeedsCollection, s.log)

	uid := ""
	if user != nil {
		uid = user.UID
	}
	if err := sync.Start(ctx, uid); err != nil {
		return sync, err
	}
	return sync, nil
}

func (s *NeedsService) List(ctx context.Context, user *models.AppUser) ([]models.NeedItem, error) {
	if user == nil {
		return nil, ErrNotSignedIn
	}

	needs, err := s.repo.List(ctx, user.UID)
	if err != nil {
		s.bus.Publish(errbus.WriteFailure{
			Path:      repository.NeedsCollection,
			Operation: errbus.OpList,
			Err:       err,
		})
		return nil, fmt.Errorf("failed to list needs: %w", err)
	}
	return needs, nil
}

// AddNeed stamps addedBy and a snapshot of the user's display name at this
// moment. Later display-name changes do not rewrite historical entries.
func (s *NeedsService) AddNeed(ctx context.Context, user *models.AppUser, req models.CreateNeedRequest) (*models.NeedItem, error) {
	if user == nil {
		return nil, ErrNotSignedIn
	}
	name := strings.TrimSpace(req.ItemName)
	if name == "" {
		return nil, ErrEmptyName
	}

	displayName := user.DisplayName
	if displayName == "" {
		displayName = "Anonymous"
	}

	need := &models.NeedItem{
		ItemName:    name,
		Category:    req.Category,
		AddedBy:     user.UID,
		AddedByName: displayName,
	}

	if _, err := s.repo.Create(ctx, need); err != nil {
		s.bus.Publish(errbus.WriteFailure{
			Path:      repository.NeedsCollection,
			Operation: errbus.OpCreate,
			Payload:   need,
			Err:       err,
		})
		return nil, fmt.Errorf("failed to add need: %w", err)
	}

	s.log.Info("need added",
		zap.String("id", need.ID.Hex()),
		zap.String("itemName", need.ItemName),
		zap.String("user", user.UID))
	return need, nil
}

func (s *NeedsService) UpdateNeed(ctx context.Context, user *models.AppUser, id string, req models.UpdateNeedRequest) error {
	if user == nil {
		return ErrNotSignedIn
	}

	updates := bson.M{}
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

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		s.bus.Publish(errbus.WriteFailure{
			Path:      repository.NeedsCollection + "/" + id,
			Operation: errbus.OpUpdate,
			Payload:   updates,
			Err:       err,
		})
		return fmt.Errorf("failed to update need: %w", err)
	}

	s.log.Info("need updated", zap.String("id", id), zap.String("user", user.UID))
	return nil
}

// DeleteNeed is fire-and-forget, matching inventory deletes.
func (s *NeedsService) DeleteNeed(ctx context.Context, user *models.AppUser, id string) error {
	if user == nil {
		return ErrNotSignedIn
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.bus.Publish(errbus.WriteFailure{
				Path:      repository.NeedsCollection + "/" + id,
				Operation: errbus.OpDelete,
				Err:       err,
			})
		}
		s.log.Warn("failed to delete need",
			zap.String("id", id), zap.String("user", user.UID), zap.Error(err))
		return nil
	}

	s.log.Info("need deleted", zap.String("id", id), zap.String("user", user.UID))
	return nil
}
