package completion_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/academia/apps/di"
	"github.com/trezcool/academia/core/catalog"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/completion"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/submission"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/tests"
)

var engines = []string{database.EngineMemory, database.EngineSQLite}

type fixture struct {
	c           *di.Container
	curator     user.Actor
	participant user.Actor
	cat         testutil.Catalog
}

func newFixture(t *testing.T, engine string, assignments int) fixture {
	c := testutil.NewContainer(t, engine)
	f := fixture{
		c:           c,
		curator:     testutil.CreateActor(t, c.Repos.Users, "cura", user.RoleCurator),
		participant: testutil.CreateActor(t, c.Repos.Users, "alice", user.RoleParticipant),
	}
	f.cat = testutil.CreateCatalog(t, c.Repos.Catalog, "golang", assignments, f.curator.UserID)
	return f
}

func (f fixture) enroll(t *testing.T, approved bool) {
	ctx := context.Background()
	enr, err := f.c.Ledger.Request(ctx, f.participant, f.cat.Program.ID)
	require.NoError(t, err)
	_, err = f.c.Ledger.SetApproval(ctx, f.curator, enr.ID, approved)
	require.NoError(t, err)
}

// accept submits and accepts an answer through the tracker, which evaluates the participant.
func (f fixture) accept(t *testing.T, assignmentID string) {
	ctx := context.Background()
	sub, err := f.c.Tracker.Submit(ctx, f.participant, assignmentID, submission.Answer{Text: "42"})
	require.NoError(t, err)
	_, err = f.c.Tracker.Review(ctx, f.curator, sub.ID, submission.StatusAccepted)
	require.NoError(t, err)
}

func (f fixture) certificates(t *testing.T) []certificate.Certificate {
	certs, err := f.c.Certificates.ListForUser(context.Background(), f.participant.UserID)
	require.NoError(t, err)
	return certs
}

func TestEvaluator_acceptanceIssuesCertificate(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			f := newFixture(t, engine, 2)
			f.enroll(t, true)

			f.accept(t, f.cat.Assignments[0].ID)
			assert.Empty(t, f.certificates(t), "issued with a required assignment left")

			pct, err := f.c.Evaluator.ProgressPercent(context.Background(), f.participant.UserID)
			require.NoError(t, err)
			assert.Equal(t, 50, pct)

			f.accept(t, f.cat.Assignments[1].ID)
			certs := f.certificates(t)
			require.Len(t, certs, 1)
			assert.Equal(t, f.cat.Program.ID, certs[0].ProgramID)

			progress, err := f.c.Evaluator.Progress(context.Background(), f.participant.UserID)
			require.NoError(t, err)
			require.Len(t, progress, 1)
			assert.True(t, progress[0].IsComplete())
			assert.Equal(t, 2, progress[0].Required)

			// a certificate is never revoked
			enrs, err := f.c.Ledger.Filter(context.Background(), f.participant, enrollment.QueryFilter{})
			require.NoError(t, err)
			_, err = f.c.Ledger.ToggleApproval(context.Background(), f.curator, enrs[0].ID)
			require.NoError(t, err)
			issued, err := f.c.Evaluator.Evaluate(context.Background(), f.participant.UserID, completion.TriggerManual)
			require.NoError(t, err)
			assert.Empty(t, issued)
			assert.Len(t, f.certificates(t), 1)
		})
	}
}

func TestEvaluator_requiresApproval(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			f := newFixture(t, engine, 1)
			f.enroll(t, false)

			f.accept(t, f.cat.Assignments[0].ID)
			assert.Empty(t, f.certificates(t))

			// approving does not evaluate
			f.enroll(t, true)
			assert.Empty(t, f.certificates(t))

			issued, err := f.c.Evaluator.Evaluate(context.Background(), f.participant.UserID, completion.TriggerManual)
			require.NoError(t, err)
			assert.Len(t, issued, 1)
			assert.Len(t, f.certificates(t), 1)
		})
	}
}

func TestEvaluator_emptySectionNeverCompletes(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			f := newFixture(t, engine, 0)
			f.enroll(t, true)

			issued, err := f.c.Evaluator.Evaluate(context.Background(), f.participant.UserID, completion.TriggerManual)
			require.NoError(t, err)
			assert.Empty(t, issued)

			pct, err := f.c.Evaluator.ProgressPercent(context.Background(), f.participant.UserID)
			require.NoError(t, err)
			assert.Zero(t, pct)
		})
	}
}

// The required assignments are those of every module of the section, in the syllabus or not.
func TestEvaluator_sectionModulesOutsideSyllabus(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, engine, 2)
			now := time.Now().UTC()

			extraMod, err := f.c.Repos.Catalog.CreateModule(ctx, catalog.Module{
				SectionID: f.cat.Section.ID, Name: "golang extras", Position: 1, CreatedAt: now,
			})
			require.NoError(t, err)
			extra, err := f.c.Repos.Catalog.CreateAssignment(ctx, catalog.Assignment{
				ModuleID: extraMod.ID, Title: "golang extra assignment", CreatedAt: now,
			})
			require.NoError(t, err)

			prog, err := f.c.CatalogSvc.GetProgram(ctx, f.cat.Program.ID)
			require.NoError(t, err)
			require.Equal(t, []string{f.cat.Module.ID}, prog.ModuleIDs, "extra module must stay out of the syllabus")

			f.enroll(t, true)
			for _, id := range f.cat.AssignmentIDs() {
				f.accept(t, id)
			}
			assert.Empty(t, f.certificates(t), "syllabus assignments alone do not complete the program")

			progress, err := f.c.Evaluator.Progress(ctx, f.participant.UserID)
			require.NoError(t, err)
			require.Len(t, progress, 1)
			assert.Equal(t, 3, progress[0].Required)
			assert.Equal(t, 2, progress[0].Accepted)

			f.accept(t, extra.ID)
			certs := f.certificates(t)
			if assert.Len(t, certs, 1) {
				assert.Equal(t, f.cat.Program.ID, certs[0].ProgramID)
			}
		})
	}
}

func TestEvaluator_concurrentEvaluationsIssueOnce(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			f := newFixture(t, engine, 1)
			f.enroll(t, true)

			// accepted straight in the store so that no evaluation runs yet
			ctx := context.Background()
			sub, err := f.c.Repos.Submissions.SaveAnswer(ctx, submission.Submission{
				AssignmentID: f.cat.Assignments[0].ID,
				UserID:       f.participant.UserID,
				AnswerText:   "42",
				Status:       submission.StatusSubmitted,
				SubmittedAt:  time.Now().UTC(),
			})
			require.NoError(t, err)
			_, ok, err := f.c.Repos.Submissions.TransitionStatus(ctx, sub.ID, submission.StatusSubmitted, submission.StatusAccepted, f.curator.UserID, sub.SubmittedAt)
			require.NoError(t, err)
			require.True(t, ok)

			var created int32
			var g errgroup.Group
			for i := 0; i < 10; i++ {
				g.Go(func() error {
					issued, err := f.c.Evaluator.Evaluate(ctx, f.participant.UserID, completion.TriggerManual)
					atomic.AddInt32(&created, int32(len(issued)))
					return err
				})
			}
			require.NoError(t, g.Wait())
			assert.Equal(t, int32(1), created)
			assert.Len(t, f.certificates(t), 1)
		})
	}
}

// flakyIssuer fails until healed.
type flakyIssuer struct {
	mu      sync.Mutex
	healed  bool
	issued  map[string]bool
	attempt int
}

func (fi *flakyIssuer) Issue(_ context.Context, userID, programID string) (certificate.Certificate, bool, error) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.attempt++
	if !fi.healed {
		return certificate.Certificate{}, false, errors.New("storage unavailable")
	}
	key := userID + "/" + programID
	if fi.issued[key] {
		return certificate.Certificate{UserID: userID, ProgramID: programID}, false, nil
	}
	fi.issued[key] = true
	return certificate.Certificate{ID: key, UserID: userID, ProgramID: programID}, true, nil
}

// staticRepo reports one approved program whose single assignment is accepted.
type staticRepo struct{}

func (staticRepo) ApprovedPrograms(context.Context, string) ([]completion.ProgramRef, error) {
	return []completion.ProgramRef{{ProgramID: "p1", SectionID: "s1"}}, nil
}

func (staticRepo) SectionAssignmentIDs(context.Context, string) ([]string, error) {
	return []string{"a1"}, nil
}

func (staticRepo) CountAccepted(context.Context, string, []string) (int, error) {
	return 1, nil
}

func TestEvaluator_retry(t *testing.T) {
	ctx := context.Background()
	conf := testutil.NewConfig(t)
	issuer := &flakyIssuer{issued: make(map[string]bool)}
	queue := completion.NewMemoryRetryQueue()
	evaluator := completion.NewEvaluator(staticRepo{}, issuer, queue, testutil.NewLogger(conf))

	err := evaluator.OnSubmissionAccepted(ctx, submission.Submission{UserID: "u1"})
	assert.Error(t, err)
	err = evaluator.OnSubmissionAccepted(ctx, submission.Submission{UserID: "u1"})
	assert.Error(t, err)

	// still failing: re-queued
	done, err := evaluator.RetryPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, done)

	issuer.mu.Lock()
	issuer.healed = true
	issuer.mu.Unlock()

	done, err = evaluator.RetryPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, done, "a user queued twice is evaluated once")
	assert.True(t, issuer.issued["u1/p1"])

	done, err = evaluator.RetryPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, done)
}

// twoProgramsRepo reports two approved, completed programs.
type twoProgramsRepo struct{ staticRepo }

func (twoProgramsRepo) ApprovedPrograms(context.Context, string) ([]completion.ProgramRef, error) {
	return []completion.ProgramRef{{ProgramID: "p1", SectionID: "s1"}, {ProgramID: "p2", SectionID: "s2"}}, nil
}

// panickyIssuer panics on p1 and issues everything else.
type panickyIssuer struct {
	issued []string
}

func (pi *panickyIssuer) Issue(_ context.Context, userID, programID string) (certificate.Certificate, bool, error) {
	if programID == "p1" {
		panic("index out of range")
	}
	pi.issued = append(pi.issued, programID)
	return certificate.Certificate{ID: userID + "/" + programID, UserID: userID, ProgramID: programID}, true, nil
}

func TestEvaluator_panicQueuesRetry(t *testing.T) {
	ctx := context.Background()
	conf := testutil.NewConfig(t)
	issuer := &panickyIssuer{}
	queue := completion.NewMemoryRetryQueue()
	evaluator := completion.NewEvaluator(twoProgramsRepo{}, issuer, queue, testutil.NewLogger(conf))

	var err error
	require.NotPanics(t, func() {
		err = evaluator.OnSubmissionAccepted(ctx, submission.Submission{UserID: "u1"})
	})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "p1")
	}
	assert.Equal(t, []string{"p2"}, issuer.issued, "the other programs are still evaluated")

	ids, err := queue.PopAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}

func TestMemoryRetryQueue(t *testing.T) {
	ctx := context.Background()
	queue := completion.NewMemoryRetryQueue()

	for _, id := range []string{"u2", "u1", "u2", "u3"} {
		require.NoError(t, queue.Push(ctx, id))
	}
	ids, err := queue.PopAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3"}, ids)

	ids, err = queue.PopAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
