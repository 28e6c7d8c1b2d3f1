package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/completion"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/submission"
)

type completionRepository struct {
	db *DB
}

var _ completion.Repository = (*completionRepository)(nil) // interface compliance check

func NewCompletionRepository(db *DB) *completionRepository {
	return &completionRepository{db: db}
}

func (repo *completionRepository) ApprovedPrograms(_ context.Context, userID string) ([]completion.ProgramRef, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID && enr.IsApproved {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool {
		if enrs[i].CreatedAt.Equal(enrs[j].CreatedAt) {
			return enrs[i].ProgramID < enrs[j].ProgramID
		}
		return enrs[i].CreatedAt.Before(enrs[j].CreatedAt)
	})

	refs := make([]completion.ProgramRef, 0, len(enrs))
	for _, enr := range enrs {
		if prog, ok := repo.db.programs[enr.ProgramID]; ok {
			refs = append(refs, completion.ProgramRef{ProgramID: prog.ID, SectionID: prog.SectionID})
		}
	}
	return refs, nil
}

func (repo *completionRepository) SectionAssignmentIDs(_ context.Context, sectionID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0)
	for _, asg := range repo.db.assignments {
		if mod, ok := repo.db.modules[asg.ModuleID]; ok && mod.SectionID == sectionID {
			ids = append(ids, asg.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *completionRepository) CountAccepted(_ context.Context, userID string, assignmentIDs []string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]bool, len(assignmentIDs))
	for _, id := range assignmentIDs {
		wanted[id] = true
	}
	var count int
	for _, sub := range repo.db.submissions {
		if sub.UserID == userID && sub.Status == submission.StatusAccepted && wanted[sub.AssignmentID] {
			count++
		}
	}
	return count, nil
}
