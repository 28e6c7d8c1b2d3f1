package submission_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/submission"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/tests"
)

var engines = []string{database.EngineMemory, database.EngineSQLite}

func TestTracker(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			c := testutil.NewContainer(t, engine)
			ctx := context.Background()

			// a tracker of its own, to count the acceptance notifications
			var accepted int32
			tracker := submission.NewTracker(c.Repos.Submissions, c.Repos.Catalog, c.Logger)
			tracker.OnSubmissionAccepted(submission.AcceptanceHookFunc(func(ctx context.Context, sub submission.Submission) error {
				atomic.AddInt32(&accepted, 1)
				return nil
			}))

			curator := testutil.CreateActor(t, c.Repos.Users, "cura", user.RoleCurator)
			admin := testutil.CreateActor(t, c.Repos.Users, "boss", user.RoleAdmin)
			alice := testutil.CreateActor(t, c.Repos.Users, "alice", user.RoleParticipant)
			bob := testutil.CreateActor(t, c.Repos.Users, "bob", user.RoleParticipant)
			cat := testutil.CreateCatalog(t, c.Repos.Catalog, "golang", 3, curator.UserID)
			asg1, asg2, asg3 := cat.Assignments[0].ID, cat.Assignments[1].ID, cat.Assignments[2].ID

			t.Run("submit", func(t *testing.T) {
				_, err := tracker.Submit(ctx, curator, asg1, submission.Answer{Text: "42"})
				assert.True(t, core.IsPermission(err), "unexpected error = %v", err)

				_, err = tracker.Submit(ctx, alice, asg1, submission.Answer{Text: "   "})
				assert.True(t, core.IsValidation(err), "unexpected error = %v", err)

				_, err = tracker.Submit(ctx, alice, "lol", submission.Answer{Text: "42"})
				assert.Equal(t, submission.ErrAssignmentNotFound, err)

				first, err := tracker.Submit(ctx, alice, asg1, submission.Answer{Text: "41"})
				require.NoError(t, err)
				assert.Equal(t, submission.StatusSubmitted, first.Status)

				// resubmitting overwrites the single submission
				second, err := tracker.Submit(ctx, alice, asg1, submission.Answer{Text: "42", File: "answers/42.pdf"})
				require.NoError(t, err)
				assert.Equal(t, first.ID, second.ID)
				assert.Equal(t, "42", second.AnswerText)
				assert.Equal(t, "answers/42.pdf", second.AnswerFile)

				mine, err := tracker.Mine(ctx, alice)
				require.NoError(t, err)
				assert.Len(t, mine, 1)
			})

			t.Run("review", func(t *testing.T) {
				sub, err := tracker.Submit(ctx, alice, asg2, submission.Answer{Text: "draft"})
				require.NoError(t, err)

				_, err = tracker.Review(ctx, alice, sub.ID, submission.StatusAccepted)
				assert.True(t, core.IsPermission(err), "unexpected error = %v", err)
				_, err = tracker.Review(ctx, admin, sub.ID, submission.StatusAccepted)
				assert.True(t, core.IsPermission(err), "only curators review, got %v", err)
				_, err = tracker.Review(ctx, curator, sub.ID, submission.StatusSubmitted)
				assert.True(t, core.IsValidation(err), "unexpected error = %v", err)
				_, err = tracker.Review(ctx, curator, "lol", submission.StatusAccepted)
				assert.True(t, core.IsNotFound(err), "unexpected error = %v", err)

				sub, err = tracker.Review(ctx, curator, sub.ID, submission.StatusRejected)
				require.NoError(t, err)
				assert.Equal(t, submission.StatusRejected, sub.Status)
				assert.Equal(t, curator.UserID, sub.ReviewerID.String)
				assert.True(t, sub.ReviewedAt.Valid)

				// replaying a decision is a no-op
				sub, err = tracker.Review(ctx, curator, sub.ID, submission.StatusRejected)
				require.NoError(t, err)
				assert.Equal(t, submission.StatusRejected, sub.Status)

				// a rejected answer must be resubmitted before it is accepted
				_, err = tracker.Review(ctx, curator, sub.ID, submission.StatusAccepted)
				assert.True(t, core.IsValidation(err), "unexpected error = %v", err)

				sub, err = tracker.Submit(ctx, alice, asg2, submission.Answer{Text: "final"})
				require.NoError(t, err)
				assert.Equal(t, submission.StatusSubmitted, sub.Status)
				assert.False(t, sub.ReviewedAt.Valid)

				before := atomic.LoadInt32(&accepted)
				sub, err = tracker.Review(ctx, curator, sub.ID, submission.StatusAccepted)
				require.NoError(t, err)
				assert.True(t, sub.IsAccepted())
				assert.Equal(t, before+1, atomic.LoadInt32(&accepted))

				// accepted is terminal
				sub, err = tracker.Review(ctx, curator, sub.ID, submission.StatusAccepted)
				require.NoError(t, err)
				assert.Equal(t, before+1, atomic.LoadInt32(&accepted), "replayed acceptance notified twice")

				_, err = tracker.Review(ctx, curator, sub.ID, submission.StatusRejected)
				assert.Equal(t, submission.ErrLocked, err)

				_, err = tracker.Submit(ctx, alice, asg2, submission.Answer{Text: "changed my mind"})
				assert.Equal(t, submission.ErrLocked, err)

				got, err := tracker.Get(ctx, alice, sub.ID)
				require.NoError(t, err)
				assert.Equal(t, "final", got.AnswerText)
			})

			t.Run("concurrent reviews accept once", func(t *testing.T) {
				sub, err := tracker.Submit(ctx, bob, asg3, submission.Answer{Text: "race"})
				require.NoError(t, err)

				before := atomic.LoadInt32(&accepted)
				var g errgroup.Group
				for i := 0; i < 8; i++ {
					g.Go(func() error {
						_, err := tracker.Review(ctx, curator, sub.ID, submission.StatusAccepted)
						return err
					})
				}
				require.NoError(t, g.Wait())
				assert.Equal(t, before+1, atomic.LoadInt32(&accepted))
			})

			t.Run("visibility", func(t *testing.T) {
				mine, err := tracker.Mine(ctx, bob)
				require.NoError(t, err)
				require.Len(t, mine, 1)

				_, err = tracker.Get(ctx, alice, mine[0].ID)
				assert.Equal(t, submission.ErrNotFound, err)
				_, err = tracker.Get(ctx, curator, mine[0].ID)
				assert.NoError(t, err)

				_, err = tracker.Pending(ctx, alice)
				assert.True(t, core.IsPermission(err), "unexpected error = %v", err)

				pending, err := tracker.Pending(ctx, curator)
				require.NoError(t, err)
				for _, sub := range pending {
					assert.Equal(t, submission.StatusSubmitted, sub.Status)
				}
			})

			t.Run("failing hooks never reach the reviewer", func(t *testing.T) {
				failing := submission.NewTracker(c.Repos.Submissions, c.Repos.Catalog, c.Logger)
				failing.OnSubmissionAccepted(submission.AcceptanceHookFunc(func(ctx context.Context, sub submission.Submission) error {
					panic("boom")
				}))
				carol := testutil.CreateActor(t, c.Repos.Users, "carol", user.RoleParticipant)
				sub, err := failing.Submit(ctx, carol, asg1, submission.Answer{Text: "42"})
				require.NoError(t, err)
				sub, err = failing.Review(ctx, curator, sub.ID, submission.StatusAccepted)
				require.NoError(t, err)
				assert.True(t, sub.IsAccepted())
			})
		})
	}
}
