package task

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Queue is the producer side of the task store.
type Queue struct {
	store *Store
}

func NewQueue(store *Store) *Queue {
	return &Queue{store: store}
}

// Enqueue marshals payload and queues it for handler. Returns the task ID.
func (q *Queue) Enqueue(ctx context.Context, handler string, payload any) (string, error) {
	return q.EnqueueAfter(ctx, handler, payload, "")
}

// EnqueueAfter queues a task that runs only after dependsOn completes.
// An empty dependsOn means no dependency.
func (q *Queue) EnqueueAfter(ctx context.Context, handler string, payload any, dependsOn string) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshal task payload")
	}
	t := &Task{Handler: handler, Payload: raw, DependsOn: dependsOn}
	if err := q.store.Create(ctx, t); err != nil {
		return "", err
	}
	return t.ID, nil
}
