// Package enrollment is the ledger of participants' requests to join programs
// and of the curators' approval decisions.
package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("enrollment")
	ErrProgramNotFound = core.NewNotFoundError("program")

	approverRoles = []user.Role{user.RoleCurator, user.RoleAdmin}
)

type Enrollment struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	ProgramID  string    `json:"program_id" db:"program_id"`
	IsApproved bool      `json:"is_approved" db:"is_approved"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type QueryFilter struct {
	ProgramID string `query:"program"`
	UserID    string `query:"user"`
	Pending   bool   `query:"pending"`
}

type (
	Repository interface {
		// GetOrCreate inserts enr unless an enrollment exists for (enr.UserID, enr.ProgramID).
		// It returns the stored enrollment and whether it was created.
		GetOrCreate(ctx context.Context, enr Enrollment) (Enrollment, bool, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		SetApproval(ctx context.Context, id string, approved bool, at time.Time) (Enrollment, error)
		// ToggleApproval flips is_approved in a single statement.
		ToggleApproval(ctx context.Context, id string, at time.Time) (Enrollment, error)
		FilterEnrollments(ctx context.Context, filter QueryFilter) ([]Enrollment, error)
	}

	// ProgramChecker reports whether a program exists.
	ProgramChecker interface {
		ProgramExists(ctx context.Context, id string) (bool, error)
	}

	Ledger struct {
		repo     Repository
		programs ProgramChecker
	}
)

func NewLedger(repo Repository, programs ProgramChecker) *Ledger {
	return &Ledger{repo: repo, programs: programs}
}

// Request records the participant's request to join a program.
// A second request for the same program returns the existing enrollment unchanged.
func (l *Ledger) Request(ctx context.Context, actor user.Actor, programID string) (Enrollment, error) {
	if err := actor.Require("enroll", user.RoleParticipant); err != nil {
		return Enrollment{}, err
	}
	exists, err := l.programs.ProgramExists(ctx, programID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking program")
	}
	if !exists {
		return Enrollment{}, ErrProgramNotFound
	}

	now := time.Now().UTC()
	enr, _, err := l.repo.GetOrCreate(ctx, Enrollment{
		UserID:    actor.UserID,
		ProgramID: programID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return enr, errors.Wrap(err, "getting or creating enrollment")
}

// SetApproval sets the approval flag. It has no other side effect.
func (l *Ledger) SetApproval(ctx context.Context, actor user.Actor, id string, approved bool) (Enrollment, error) {
	if err := actor.Require("approve enrollments", approverRoles...); err != nil {
		return Enrollment{}, err
	}
	return l.repo.SetApproval(ctx, id, approved, time.Now().UTC())
}

// ToggleApproval flips the approval flag. It has no other side effect.
func (l *Ledger) ToggleApproval(ctx context.Context, actor user.Actor, id string) (Enrollment, error) {
	if err := actor.Require("approve enrollments", approverRoles...); err != nil {
		return Enrollment{}, err
	}
	return l.repo.ToggleApproval(ctx, id, time.Now().UTC())
}

func (l *Ledger) Get(ctx context.Context, actor user.Actor, id string) (Enrollment, error) {
	enr, err := l.repo.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.UserID != actor.UserID && !actor.Is(approverRoles...) {
		return Enrollment{}, ErrNotFound
	}
	return enr, nil
}

// Filter lists enrollments. Participants only ever see their own.
func (l *Ledger) Filter(ctx context.Context, actor user.Actor, filter QueryFilter) ([]Enrollment, error) {
	if !actor.Is(approverRoles...) {
		filter.UserID = actor.UserID
	}
	return l.repo.FilterEnrollments(ctx, filter)
}
