package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) SaveAnswer(_ context.Context, sub submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, stored := range repo.db.submissions {
		if stored.AssignmentID != sub.AssignmentID || stored.UserID != sub.UserID {
			continue
		}
		if stored.IsAccepted() {
			return submission.Submission{}, submission.ErrLocked
		}
		stored.AnswerText = sub.AnswerText
		stored.AnswerFile = sub.AnswerFile
		stored.Status = submission.StatusSubmitted
		stored.SubmittedAt = sub.SubmittedAt
		stored.ReviewedAt = null.Time{}
		stored.ReviewerID = null.String{}
		return *stored, nil
	}

	sub.ID = newID()
	sub.Status = submission.StatusSubmitted
	stored := sub
	repo.db.submissions[sub.ID] = &stored
	return sub, nil
}

func (repo *submissionRepository) GetSubmission(_ context.Context, id string) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return *sub, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) TransitionStatus(
	_ context.Context, id string, from, to submission.Status, reviewerID string, at time.Time,
) (submission.Submission, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, ok := repo.db.submissions[id]
	if !ok {
		return submission.Submission{}, false, submission.ErrNotFound
	}
	if sub.Status != from {
		return *sub, false, nil
	}
	sub.Status = to
	sub.ReviewedAt = null.TimeFrom(at)
	sub.ReviewerID = null.StringFrom(reviewerID)
	return *sub, true, nil
}

func (repo *submissionRepository) FilterSubmissions(_ context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.submissions {
		if filter.UserID != "" && sub.UserID != filter.UserID {
			continue
		}
		if filter.AssignmentID != "" && sub.AssignmentID != filter.AssignmentID {
			continue
		}
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})
	return subs, nil
}
