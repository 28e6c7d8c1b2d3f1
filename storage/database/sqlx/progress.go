package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/progress"
)

type progressRepository struct {
	db core.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db core.DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) MarkViewed(ctx context.Context, userID, materialID string, at time.Time) (progress.MaterialProgress, bool, error) {
	inserted, err := exec(ctx, repo.db, `
		INSERT INTO material_progress (id, user_id, material_id, viewed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, material_id) DO NOTHING`,
		newID(), userID, materialID, at,
	)
	if err != nil {
		return progress.MaterialProgress{}, false, errors.Wrap(err, "inserting material progress")
	}

	var mp progress.MaterialProgress
	err = get(ctx, repo.db, &mp,
		"SELECT id, user_id, material_id, viewed_at FROM material_progress WHERE user_id = ? AND material_id = ?",
		userID, materialID,
	)
	if err != nil {
		return progress.MaterialProgress{}, false, errors.Wrap(err, "selecting material progress")
	}
	return mp, inserted > 0, nil
}

func (repo *progressRepository) ListViewedMaterialIDs(ctx context.Context, userID string) ([]string, error) {
	ids := make([]string, 0)
	err := sel(ctx, repo.db, &ids,
		"SELECT material_id FROM material_progress WHERE user_id = ? ORDER BY viewed_at, material_id", userID,
	)
	return ids, errors.Wrap(err, "selecting viewed materials")
}
