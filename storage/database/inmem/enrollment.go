package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academia/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) GetOrCreate(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, stored := range repo.db.enrollments {
		if stored.UserID == enr.UserID && stored.ProgramID == enr.ProgramID {
			return *stored, false, nil
		}
	}
	enr.ID = newID()
	stored := enr
	repo.db.enrollments[enr.ID] = &stored
	return enr, true, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return *enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) update(id string, at time.Time, fn func(enr *enrollment.Enrollment)) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr, ok := repo.db.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	fn(enr)
	enr.UpdatedAt = at
	return *enr, nil
}

func (repo *enrollmentRepository) SetApproval(_ context.Context, id string, approved bool, at time.Time) (enrollment.Enrollment, error) {
	return repo.update(id, at, func(enr *enrollment.Enrollment) { enr.IsApproved = approved })
}

func (repo *enrollmentRepository) ToggleApproval(_ context.Context, id string, at time.Time) (enrollment.Enrollment, error) {
	return repo.update(id, at, func(enr *enrollment.Enrollment) { enr.IsApproved = !enr.IsApproved })
}

func (repo *enrollmentRepository) FilterEnrollments(_ context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if filter.ProgramID != "" && enr.ProgramID != filter.ProgramID {
			continue
		}
		if filter.UserID != "" && enr.UserID != filter.UserID {
			continue
		}
		if filter.Pending && enr.IsApproved {
			continue
		}
		enrs = append(enrs, *enr)
	}
	sort.Slice(enrs, func(i, j int) bool {
		if enrs[i].CreatedAt.Equal(enrs[j].CreatedAt) {
			return enrs[i].ID < enrs[j].ID
		}
		return enrs[i].CreatedAt.Before(enrs[j].CreatedAt)
	})
	return enrs, nil
}
