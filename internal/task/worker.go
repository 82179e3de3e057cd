package task

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollInterval = time.Second
	defaultMaxAttempts  = 3
)

// Pool polls the store and executes runnable tasks on a fixed number of
// workers. Run blocks until ctx is canceled.
type Pool struct {
	store *Store
	reg   *Registry
	log   *zap.SugaredLogger

	workers      int
	pollInterval time.Duration
	maxAttempts  int
}

func NewPool(store *Store, reg *Registry, log *zap.SugaredLogger, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		store:        store,
		reg:          reg,
		log:          log.Named("tasks"),
		workers:      workers,
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
	}
}

func (p *Pool) Run(ctx context.Context) error {
	orphans, err := p.store.RequeueOrphans(ctx)
	if err != nil {
		return err
	}
	if orphans > 0 {
		p.log.Infow("requeued orphaned tasks", "count", orphans)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			return p.worker(ctx)
		})
	}
	return g.Wait()
}

func (p *Pool) worker(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		// Drain everything runnable before sleeping.
		for {
			t, err := p.store.NextRunnable(ctx)
			if err != nil {
				p.log.Warnw("claim failed", "err", err)
				break
			}
			if t == nil {
				break
			}
			p.execute(ctx, t)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Drain runs tasks until the queue is empty. Intended for tests and one-shot
// invocations; the regular pool uses Run.
func (p *Pool) Drain(ctx context.Context) error {
	for {
		t, err := p.store.NextRunnable(ctx)
		if err != nil {
			return err
		}
		if t == nil {
			return nil
		}
		p.execute(ctx, t)
	}
}

func (p *Pool) execute(ctx context.Context, t *Task) {
	h, ok := p.reg.lookup(t.Handler)
	if !ok {
		p.log.Warnw("no handler registered", "task_id", t.ID, "handler", t.Handler)
		if err := p.store.MarkFailed(ctx, t.ID, "unknown handler "+t.Handler); err != nil {
			p.log.Warnw("mark failed", "task_id", t.ID, "err", err)
		}
		return
	}

	err := p.run(ctx, h, t)
	switch {
	case err == nil:
		if err := p.store.MarkCompleted(ctx, t.ID); err != nil {
			p.log.Warnw("mark completed", "task_id", t.ID, "err", err)
		}
	case t.Attempts >= p.maxAttempts:
		p.log.Warnw("task failed", "task_id", t.ID, "handler", t.Handler,
			"attempts", t.Attempts, "err", err)
		if err := p.store.MarkFailed(ctx, t.ID, err.Error()); err != nil {
			p.log.Warnw("mark failed", "task_id", t.ID, "err", err)
		}
	default:
		p.log.Infow("task requeued", "task_id", t.ID, "handler", t.Handler,
			"attempt", t.Attempts, "err", err)
		if err := p.store.Requeue(ctx, t.ID, err.Error()); err != nil {
			p.log.Warnw("requeue", "task_id", t.ID, "err", err)
		}
	}
}

func (p *Pool) run(ctx context.Context, h Handler, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, t.Payload)
}
