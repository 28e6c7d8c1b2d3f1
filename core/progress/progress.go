// Package progress records which materials a participant has viewed.
package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var ErrMaterialNotFound = core.NewNotFoundError("material")

type MaterialProgress struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	MaterialID string    `json:"material_id" db:"material_id"`
	ViewedAt   time.Time `json:"viewed_at" db:"viewed_at"`
}

type (
	Repository interface {
		// MarkViewed inserts the progress of (userID, materialID) unless it exists.
		MarkViewed(ctx context.Context, userID, materialID string, at time.Time) (MaterialProgress, bool, error)
		ListViewedMaterialIDs(ctx context.Context, userID string) ([]string, error)
	}

	MaterialChecker interface {
		MaterialExists(ctx context.Context, id string) (bool, error)
	}

	Service struct {
		repo      Repository
		materials MaterialChecker
	}
)

func NewService(repo Repository, materials MaterialChecker) *Service {
	return &Service{repo: repo, materials: materials}
}

// MarkViewed is idempotent: viewing a material twice keeps the first viewing time.
func (svc *Service) MarkViewed(ctx context.Context, actor user.Actor, materialID string) (MaterialProgress, error) {
	if err := actor.Require("track materials", user.RoleParticipant); err != nil {
		return MaterialProgress{}, err
	}
	exists, err := svc.materials.MaterialExists(ctx, materialID)
	if err != nil {
		return MaterialProgress{}, errors.Wrap(err, "checking material")
	}
	if !exists {
		return MaterialProgress{}, ErrMaterialNotFound
	}

	mp, _, err := svc.repo.MarkViewed(ctx, actor.UserID, materialID, time.Now().UTC())
	return mp, errors.Wrap(err, "marking material viewed")
}

func (svc *Service) Viewed(ctx context.Context, actor user.Actor) ([]string, error) {
	return svc.repo.ListViewedMaterialIDs(ctx, actor.UserID)
}
