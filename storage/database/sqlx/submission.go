package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/submission"
)

const submissionColumns = `id, assignment_id, user_id, answer_text, answer_file, status, submitted_at,
	reviewed_at, reviewer_id`

// saveAnswerAttempts bounds the update/insert race of SaveAnswer: an insert can only lose to a
// concurrent insert, after which the update is expected to succeed.
const saveAnswerAttempts = 3

type submissionRepository struct {
	db core.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db core.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) getWhere(ctx context.Context, where string, args ...interface{}) (submission.Submission, error) {
	var sub submission.Submission
	err := get(ctx, repo.db, &sub, "SELECT "+submissionColumns+" FROM submissions WHERE "+where, args...)
	return sub, trapNoRowsErr(err, submission.ErrNotFound)
}

func (repo *submissionRepository) SaveAnswer(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	for attempt := 0; attempt < saveAnswerAttempts; attempt++ {
		// overwrite any operative submission that is not accepted
		updated, err := exec(ctx, repo.db, `
			UPDATE submissions
			SET answer_text = ?, answer_file = ?, status = ?, submitted_at = ?, reviewed_at = NULL, reviewer_id = NULL
			WHERE assignment_id = ? AND user_id = ? AND status <> ?`,
			sub.AnswerText, sub.AnswerFile, string(submission.StatusSubmitted), sub.SubmittedAt,
			sub.AssignmentID, sub.UserID, string(submission.StatusAccepted),
		)
		if err != nil {
			return submission.Submission{}, errors.Wrap(err, "updating submission")
		}

		if updated == 0 {
			var inserted int64
			inserted, err = exec(ctx, repo.db, `
				INSERT INTO submissions (id, assignment_id, user_id, answer_text, answer_file, status, submitted_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (assignment_id, user_id) DO NOTHING`,
				newID(), sub.AssignmentID, sub.UserID, sub.AnswerText, sub.AnswerFile,
				string(submission.StatusSubmitted), sub.SubmittedAt,
			)
			if err != nil {
				return submission.Submission{}, errors.Wrap(err, "inserting submission")
			}
			updated = inserted
		}

		stored, err := repo.getWhere(ctx, "assignment_id = ? AND user_id = ?", sub.AssignmentID, sub.UserID)
		if err != nil {
			return submission.Submission{}, err
		}
		if updated > 0 {
			return stored, nil
		}
		if stored.IsAccepted() {
			return submission.Submission{}, submission.ErrLocked
		}
		// lost to a concurrent first submission: overwrite it
	}
	return submission.Submission{}, errors.New("saving submission: too much contention")
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	return repo.getWhere(ctx, "id = ?", id)
}

func (repo *submissionRepository) TransitionStatus(
	ctx context.Context, id string, from, to submission.Status, reviewerID string, at time.Time,
) (submission.Submission, bool, error) {
	updated, err := exec(ctx, repo.db,
		"UPDATE submissions SET status = ?, reviewed_at = ?, reviewer_id = ? WHERE id = ? AND status = ?",
		string(to), at, reviewerID, id, string(from),
	)
	if err != nil {
		return submission.Submission{}, false, errors.Wrap(err, "updating submission status")
	}
	sub, err := repo.GetSubmission(ctx, id)
	if err != nil {
		return submission.Submission{}, false, err
	}
	return sub, updated > 0, nil
}

func (repo *submissionRepository) FilterSubmissions(ctx context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.AssignmentID != "" {
		where = append(where, "assignment_id = ?")
		args = append(args, filter.AssignmentID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT " + submissionColumns + " FROM submissions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY submitted_at, id"

	subs := make([]submission.Submission, 0)
	err := sel(ctx, repo.db, &subs, query, args...)
	return subs, errors.Wrap(err, "selecting submissions")
}
