package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/completion"
	"github.com/trezcool/academia/core/submission"
)

type completionRepository struct {
	db core.DB
}

var _ completion.Repository = (*completionRepository)(nil) // interface compliance check

func NewCompletionRepository(db core.DB) *completionRepository {
	return &completionRepository{db: db}
}

func (repo *completionRepository) ApprovedPrograms(ctx context.Context, userID string) ([]completion.ProgramRef, error) {
	refs := make([]completion.ProgramRef, 0)
	err := sel(ctx, repo.db, &refs, `
		SELECT p.id AS program_id, p.section_id
		FROM enrollments e
		JOIN programs p ON p.id = e.program_id
		WHERE e.user_id = ? AND e.is_approved = ?
		ORDER BY e.created_at, p.id`,
		userID, true,
	)
	return refs, errors.Wrap(err, "selecting approved programs")
}

func (repo *completionRepository) SectionAssignmentIDs(ctx context.Context, sectionID string) ([]string, error) {
	ids := make([]string, 0)
	err := sel(ctx, repo.db, &ids, `
		SELECT a.id
		FROM assignments a
		JOIN modules m ON m.id = a.module_id
		WHERE m.section_id = ?
		ORDER BY a.id`,
		sectionID,
	)
	return ids, errors.Wrap(err, "selecting section assignments")
}

func (repo *completionRepository) CountAccepted(ctx context.Context, userID string, assignmentIDs []string) (int, error) {
	if len(assignmentIDs) == 0 {
		return 0, nil
	}
	query, args, err := in(`
		SELECT COUNT(*) FROM submissions
		WHERE user_id = ? AND status = ? AND assignment_id IN (?)`,
		userID, string(submission.StatusAccepted), assignmentIDs,
	)
	if err != nil {
		return 0, errors.Wrap(err, "building accepted count query")
	}

	var count int
	err = get(ctx, repo.db, &count, query, args...)
	return count, errors.Wrap(err, "counting accepted submissions")
}
