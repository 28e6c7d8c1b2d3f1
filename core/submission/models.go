package submission

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
)

type Status string

// Submission statuses. A missing submission is the implicit initial state.
//
//	(none) -> submitted -> accepted | rejected
//	rejected -> submitted
//	accepted is terminal
const (
	StatusSubmitted Status = "submitted"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

func (s Status) IsDecision() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Submission is the operative answer of a user to an assignment.
// There is at most one per (assignment, user); resubmitting overwrites it.
type Submission struct {
	ID           string      `json:"id" db:"id"`
	AssignmentID string      `json:"assignment_id" db:"assignment_id"`
	UserID       string      `json:"user_id" db:"user_id"`
	AnswerText   string      `json:"answer_text" db:"answer_text"`
	AnswerFile   string      `json:"answer_file" db:"answer_file"` // reference to the stored file
	Status       Status      `json:"status" db:"status"`
	SubmittedAt  time.Time   `json:"submitted_at" db:"submitted_at"`
	ReviewedAt   null.Time   `json:"reviewed_at" db:"reviewed_at"`
	ReviewerID   null.String `json:"reviewer_id" db:"reviewer_id"`
}

func (s Submission) IsAccepted() bool {
	return s.Status == StatusAccepted
}

// Answer is the user's input to submit an assignment: text, a file reference or both.
type Answer struct {
	Text string `json:"answer_text"`
	File string `json:"answer_file" validate:"max=255"`
}

func (a *Answer) Clean() {
	a.Text = core.CleanString(a.Text)
	a.File = core.CleanString(a.File)
}

func (a Answer) IsEmpty() bool {
	return a.Text == "" && a.File == ""
}

func (a *Answer) Validate(validate *validator.Validate) error {
	a.Clean()
	if err := validate.Struct(a); err != nil {
		return err
	}
	if a.IsEmpty() {
		return errEmptyAnswer
	}
	return nil
}

// Review is a curator's decision on a submission.
type Review struct {
	Decision Status `json:"decision" validate:"required,oneof=accepted rejected"`
}

func (r *Review) Validate(validate *validator.Validate) error {
	r.Decision = Status(core.CleanString(string(r.Decision), true /* lower */))
	return validate.Struct(r)
}
