// Package completion decides when a user has completed a program and issues the certificate.
//
// The assignments required by a program are all the assignments of all the modules of the
// program's section. The program's own syllabus (catalog.Program.ModuleIDs) is not consulted.
package completion

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/submission"
)

// Trigger names what caused an evaluation.
type Trigger string

// Triggers is the complete list of events that evaluate a user.
// Approving an enrollment or viewing a material does not evaluate anyone.
const (
	TriggerSubmissionAccepted Trigger = "submission_accepted"
	TriggerRetry              Trigger = "retry"
	TriggerManual             Trigger = "manual"
)

var Triggers = []Trigger{TriggerSubmissionAccepted, TriggerRetry, TriggerManual}

// ProgramRef is an approved enrollment's program and its section.
type ProgramRef struct {
	ProgramID string `db:"program_id"`
	SectionID string `db:"section_id"`
}

type ProgramProgress struct {
	ProgramID string `json:"program_id"`
	Required  int    `json:"required"`
	Accepted  int    `json:"accepted"`
}

func (pp ProgramProgress) IsComplete() bool {
	return pp.Required > 0 && pp.Accepted == pp.Required
}

type (
	Repository interface {
		// ApprovedPrograms lists the programs the user holds an approved enrollment for.
		ApprovedPrograms(ctx context.Context, userID string) ([]ProgramRef, error)
		// SectionAssignmentIDs lists the assignments of every module of the section.
		SectionAssignmentIDs(ctx context.Context, sectionID string) ([]string, error)
		// CountAccepted counts the user's accepted submissions among assignmentIDs.
		CountAccepted(ctx context.Context, userID string, assignmentIDs []string) (int, error)
	}

	Issuer interface {
		Issue(ctx context.Context, userID, programID string) (certificate.Certificate, bool, error)
	}

	Evaluator struct {
		repo   Repository
		issuer Issuer
		retry  RetryQueue
		logger core.Logger
	}
)

var _ submission.AcceptanceHook = (*Evaluator)(nil)

func NewEvaluator(repo Repository, issuer Issuer, retry RetryQueue, logger core.Logger) *Evaluator {
	return &Evaluator{repo: repo, issuer: issuer, retry: retry, logger: logger}
}

func (e *Evaluator) programProgress(ctx context.Context, userID string, ref ProgramRef) (ProgramProgress, error) {
	pp := ProgramProgress{ProgramID: ref.ProgramID}
	asgIDs, err := e.repo.SectionAssignmentIDs(ctx, ref.SectionID)
	if err != nil {
		return pp, errors.Wrap(err, "listing section assignments")
	}
	pp.Required = len(asgIDs)
	if pp.Required == 0 {
		return pp, nil
	}
	pp.Accepted, err = e.repo.CountAccepted(ctx, userID, asgIDs)
	return pp, errors.Wrap(err, "counting accepted submissions")
}

// Evaluate issues a certificate for every approved program the user has completed and
// returns the certificates created by this call. It never revokes a certificate.
// A failing program does not prevent the evaluation of the others; the first error is returned.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, trigger Trigger) ([]certificate.Certificate, error) {
	refs, err := e.repo.ApprovedPrograms(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing approved programs")
	}

	var (
		issued   []certificate.Certificate
		firstErr error
	)
	for _, ref := range refs {
		cert, created, err := e.evaluateProgram(ctx, userID, ref)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if created {
			e.logger.Info("completion: certificate issued", map[string]interface{}{
				"user_id":        userID,
				"program_id":     ref.ProgramID,
				"certificate_id": cert.ID,
				"trigger":        string(trigger),
			})
			issued = append(issued, cert)
		}
	}
	return issued, firstErr
}

// evaluateProgram issues the certificate of a completed program. A panic is returned as an error.
func (e *Evaluator) evaluateProgram(ctx context.Context, userID string, ref ProgramRef) (cert certificate.Certificate, created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("evaluating program %s: panic: %v", ref.ProgramID, r)
		}
	}()

	pp, err := e.programProgress(ctx, userID, ref)
	if err != nil {
		return cert, false, errors.Wrapf(err, "evaluating program %s", ref.ProgramID)
	}
	if !pp.IsComplete() {
		return cert, false, nil
	}

	cert, created, err = e.issuer.Issue(ctx, userID, ref.ProgramID)
	if err != nil {
		return cert, false, errors.Wrapf(err, "issuing certificate of program %s", ref.ProgramID)
	}
	return cert, created, nil
}

// OnSubmissionAccepted evaluates the submission's user. On failure the user is queued for a retry.
func (e *Evaluator) OnSubmissionAccepted(ctx context.Context, sub submission.Submission) error {
	if _, err := e.Evaluate(ctx, sub.UserID, TriggerSubmissionAccepted); err != nil {
		if qErr := e.retry.Push(context.WithoutCancel(ctx), sub.UserID); qErr != nil {
			e.logger.Error("completion: queueing retry", qErr, map[string]interface{}{"user_id": sub.UserID})
		}
		return err
	}
	return nil
}

// RetryPending re-evaluates every queued user. Users whose evaluation fails again are re-queued.
// It returns the number of users evaluated successfully.
func (e *Evaluator) RetryPending(ctx context.Context) (int, error) {
	userIDs, err := e.retry.PopAll(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "popping retry queue")
	}

	var done int
	for _, userID := range userIDs {
		if _, err := e.Evaluate(ctx, userID, TriggerRetry); err != nil {
			e.logger.Warn("completion: retry failed", err, map[string]interface{}{"user_id": userID})
			if qErr := e.retry.Push(ctx, userID); qErr != nil {
				e.logger.Error("completion: re-queueing retry", qErr, map[string]interface{}{"user_id": userID})
			}
			continue
		}
		done++
	}
	return done, nil
}

// Progress reports, per approved program, how many required assignments the user got accepted.
func (e *Evaluator) Progress(ctx context.Context, userID string) ([]ProgramProgress, error) {
	refs, err := e.repo.ApprovedPrograms(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing approved programs")
	}
	progress := make([]ProgramProgress, 0, len(refs))
	for _, ref := range refs {
		pp, err := e.programProgress(ctx, userID, ref)
		if err != nil {
			return nil, err
		}
		progress = append(progress, pp)
	}
	return progress, nil
}

// ProgressPercent is the share of the distinct required assignments, over all approved
// programs, that the user got accepted.
func (e *Evaluator) ProgressPercent(ctx context.Context, userID string) (int, error) {
	refs, err := e.repo.ApprovedPrograms(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "listing approved programs")
	}

	seenSections := make(map[string]bool, len(refs))
	var asgIDs []string
	for _, ref := range refs {
		if seenSections[ref.SectionID] {
			continue
		}
		seenSections[ref.SectionID] = true
		ids, err := e.repo.SectionAssignmentIDs(ctx, ref.SectionID)
		if err != nil {
			return 0, errors.Wrap(err, "listing section assignments")
		}
		asgIDs = append(asgIDs, ids...)
	}
	if len(asgIDs) == 0 {
		return 0, nil
	}

	accepted, err := e.repo.CountAccepted(ctx, userID, asgIDs)
	if err != nil {
		return 0, errors.Wrap(err, "counting accepted submissions")
	}
	return accepted * 100 / len(asgIDs), nil
}
