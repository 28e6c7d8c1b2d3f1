package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academia/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) MarkViewed(_ context.Context, userID, materialID string, at time.Time) (progress.MaterialProgress, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, mp := range repo.db.progress {
		if mp.UserID == userID && mp.MaterialID == materialID {
			return *mp, false, nil
		}
	}
	mp := progress.MaterialProgress{ID: newID(), UserID: userID, MaterialID: materialID, ViewedAt: at}
	stored := mp
	repo.db.progress[mp.ID] = &stored
	return mp, true, nil
}

func (repo *progressRepository) ListViewedMaterialIDs(_ context.Context, userID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	viewed := make([]progress.MaterialProgress, 0)
	for _, mp := range repo.db.progress {
		if mp.UserID == userID {
			viewed = append(viewed, *mp)
		}
	}
	sort.Slice(viewed, func(i, j int) bool {
		if viewed[i].ViewedAt.Equal(viewed[j].ViewedAt) {
			return viewed[i].MaterialID < viewed[j].MaterialID
		}
		return viewed[i].ViewedAt.Before(viewed[j].ViewedAt)
	})

	ids := make([]string, 0, len(viewed))
	for _, mp := range viewed {
		ids = append(ids, mp.MaterialID)
	}
	return ids, nil
}
