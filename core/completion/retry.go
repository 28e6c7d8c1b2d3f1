package completion

import (
	"context"
	"sort"
	"sync"
)

// RetryQueue holds the users whose evaluation failed and must be evaluated again.
// A user queued several times is evaluated once.
type RetryQueue interface {
	Push(ctx context.Context, userID string) error
	// PopAll removes and returns every queued user.
	PopAll(ctx context.Context) ([]string, error)
}

type memoryRetryQueue struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

var _ RetryQueue = (*memoryRetryQueue)(nil)

// NewMemoryRetryQueue returns a process-local RetryQueue.
func NewMemoryRetryQueue() RetryQueue {
	return &memoryRetryQueue{pending: make(map[string]struct{})}
}

func (q *memoryRetryQueue) Push(_ context.Context, userID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[userID] = struct{}{}
	return nil
}

func (q *memoryRetryQueue) PopAll(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	userIDs := make([]string, 0, len(q.pending))
	for id := range q.pending {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	q.pending = make(map[string]struct{})
	return userIDs, nil
}
