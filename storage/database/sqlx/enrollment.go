package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
)

const enrollmentColumns = `id, user_id, program_id, is_approved, created_at, updated_at`

type enrollmentRepository struct {
	db core.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db core.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) GetOrCreate(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, bool, error) {
	inserted, err := exec(ctx, repo.db, `
		INSERT INTO enrollments (`+enrollmentColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, program_id) DO NOTHING`,
		newID(), enr.UserID, enr.ProgramID, enr.IsApproved, enr.CreatedAt, enr.UpdatedAt,
	)
	if err != nil {
		return enrollment.Enrollment{}, false, errors.Wrap(err, "inserting enrollment")
	}

	var stored enrollment.Enrollment
	err = get(ctx, repo.db, &stored,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE user_id = ? AND program_id = ?",
		enr.UserID, enr.ProgramID,
	)
	if err != nil {
		return enrollment.Enrollment{}, false, errors.Wrap(err, "selecting enrollment")
	}
	return stored, inserted > 0, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	err := get(ctx, repo.db, &enr, "SELECT "+enrollmentColumns+" FROM enrollments WHERE id = ?", id)
	return enr, trapNoRowsErr(err, enrollment.ErrNotFound)
}

func (repo *enrollmentRepository) updateAndGet(ctx context.Context, id, query string, args ...interface{}) (enrollment.Enrollment, error) {
	updated, err := exec(ctx, repo.db, query, args...)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if updated == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return repo.GetEnrollment(ctx, id)
}

func (repo *enrollmentRepository) SetApproval(ctx context.Context, id string, approved bool, at time.Time) (enrollment.Enrollment, error) {
	return repo.updateAndGet(ctx, id,
		"UPDATE enrollments SET is_approved = ?, updated_at = ? WHERE id = ?",
		approved, at, id,
	)
}

func (repo *enrollmentRepository) ToggleApproval(ctx context.Context, id string, at time.Time) (enrollment.Enrollment, error) {
	return repo.updateAndGet(ctx, id,
		"UPDATE enrollments SET is_approved = NOT is_approved, updated_at = ? WHERE id = ?",
		at, id,
	)
}

func (repo *enrollmentRepository) FilterEnrollments(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.ProgramID != "" {
		where = append(where, "program_id = ?")
		args = append(args, filter.ProgramID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Pending {
		where = append(where, "is_approved = ?")
		args = append(args, false)
	}

	query := "SELECT " + enrollmentColumns + " FROM enrollments"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	enrs := make([]enrollment.Enrollment, 0)
	err := sel(ctx, repo.db, &enrs, query, args...)
	return enrs, errors.Wrap(err, "selecting enrollments")
}
