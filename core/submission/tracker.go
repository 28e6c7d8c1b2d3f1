// Package submission tracks the answers of participants to assignments and their review.
package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("submission")
	ErrAssignmentNotFound = core.NewNotFoundError("assignment")
	ErrLocked             = core.NewLockedError("an accepted submission cannot be changed")

	errEmptyAnswer = core.NewValidationError(
		errors.New("an answer text or file is required"),
		core.FieldError{Field: "answer_text", Error: "an answer text or file is required"},
	)
	errNotResubmitted = core.NewValidationError(errors.New("the submission has not been resubmitted since it was rejected"))
	errBadDecision    = core.NewValidationError(
		errors.New("invalid decision"),
		core.FieldError{Field: "decision", Error: "decision must be one of: accepted rejected"},
	)
)

type (
	Repository interface {
		// SaveAnswer creates the submission of (sub.AssignmentID, sub.UserID) or overwrites its answer,
		// resetting it to StatusSubmitted. It returns ErrLocked, and changes nothing, when the
		// stored submission is accepted.
		SaveAnswer(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// TransitionStatus moves a submission from status `from` to status `to` in a single statement.
		// ok is false, and the current submission is returned, when it was not in status `from`.
		TransitionStatus(ctx context.Context, id string, from, to Status, reviewerID string, at time.Time) (sub Submission, ok bool, err error)
		FilterSubmissions(ctx context.Context, filter QueryFilter) ([]Submission, error)
	}

	QueryFilter struct {
		UserID       string
		AssignmentID string
		Status       Status
	}

	// AssignmentChecker reports whether an assignment exists.
	AssignmentChecker interface {
		AssignmentExists(ctx context.Context, id string) (bool, error)
	}

	// AcceptanceHook is notified, synchronously, every time a submission becomes accepted.
	AcceptanceHook interface {
		OnSubmissionAccepted(ctx context.Context, sub Submission) error
	}

	AcceptanceHookFunc func(ctx context.Context, sub Submission) error

	Tracker struct {
		repo        Repository
		assignments AssignmentChecker
		logger      core.Logger
		hooks       []AcceptanceHook
	}
)

func (f AcceptanceHookFunc) OnSubmissionAccepted(ctx context.Context, sub Submission) error {
	return f(ctx, sub)
}

func NewTracker(repo Repository, assignments AssignmentChecker, logger core.Logger) *Tracker {
	return &Tracker{repo: repo, assignments: assignments, logger: logger}
}

// OnSubmissionAccepted registers hooks run after each acceptance, in registration order.
// Registration is not safe for concurrent use and is expected to happen while wiring the app.
func (t *Tracker) OnSubmissionAccepted(hooks ...AcceptanceHook) {
	t.hooks = append(t.hooks, hooks...)
}

// Submit records the participant's answer to an assignment.
func (t *Tracker) Submit(ctx context.Context, actor user.Actor, assignmentID string, answer Answer) (Submission, error) {
	if err := actor.Require("submit assignments", user.RoleParticipant); err != nil {
		return Submission{}, err
	}
	answer.Clean()
	if answer.IsEmpty() {
		return Submission{}, errEmptyAnswer
	}

	exists, err := t.assignments.AssignmentExists(ctx, assignmentID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "checking assignment")
	}
	if !exists {
		return Submission{}, ErrAssignmentNotFound
	}

	return t.repo.SaveAnswer(ctx, Submission{
		AssignmentID: assignmentID,
		UserID:       actor.UserID,
		AnswerText:   answer.Text,
		AnswerFile:   answer.File,
		Status:       StatusSubmitted,
		SubmittedAt:  time.Now().UTC(),
	})
}

// Review applies a curator's decision to a submitted answer.
// Applying the decision a submission already holds is a no-op.
func (t *Tracker) Review(ctx context.Context, actor user.Actor, id string, decision Status) (Submission, error) {
	if err := actor.Require("review submissions", user.RoleCurator); err != nil {
		return Submission{}, err
	}
	if !decision.IsDecision() {
		return Submission{}, errBadDecision
	}

	sub, ok, err := t.repo.TransitionStatus(ctx, id, StatusSubmitted, decision, actor.UserID, time.Now().UTC())
	if err != nil {
		return Submission{}, err
	}
	if !ok {
		switch {
		case sub.Status == decision:
			return sub, nil
		case sub.IsAccepted():
			return Submission{}, ErrLocked
		default:
			return Submission{}, errNotResubmitted
		}
	}

	if sub.IsAccepted() {
		t.notifyAccepted(ctx, sub)
	}
	return sub, nil
}

// notifyAccepted runs the acceptance hooks. Their failures are logged and never reach the reviewer.
func (t *Tracker) notifyAccepted(ctx context.Context, sub Submission) {
	for _, hook := range t.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("submission: acceptance hook panicked", fmt.Errorf("%v", r), hookExtras(sub))
				}
			}()
			if err := hook.OnSubmissionAccepted(ctx, sub); err != nil {
				t.logger.Error("submission: acceptance hook failed", err, hookExtras(sub))
			}
		}()
	}
}

func hookExtras(sub Submission) map[string]interface{} {
	return map[string]interface{}{
		"submission_id": sub.ID,
		"assignment_id": sub.AssignmentID,
		"user_id":       sub.UserID,
	}
}

func (t *Tracker) Get(ctx context.Context, actor user.Actor, id string) (Submission, error) {
	sub, err := t.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if sub.UserID != actor.UserID && !actor.Is(user.RoleCurator) {
		return Submission{}, ErrNotFound
	}
	return sub, nil
}

// Pending returns the review queue, oldest submission first.
func (t *Tracker) Pending(ctx context.Context, actor user.Actor) ([]Submission, error) {
	if err := actor.Require("review submissions", user.RoleCurator); err != nil {
		return nil, err
	}
	return t.repo.FilterSubmissions(ctx, QueryFilter{Status: StatusSubmitted})
}

// Mine returns the actor's own submissions.
func (t *Tracker) Mine(ctx context.Context, actor user.Actor) ([]Submission, error) {
	return t.repo.FilterSubmissions(ctx, QueryFilter{UserID: actor.UserID})
}
