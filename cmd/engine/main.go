package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobtriage-engine/internal/config"
	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/events"
	"jobtriage-engine/internal/httpapi"
	"jobtriage-engine/internal/lifecycle"
	"jobtriage-engine/internal/pipeline"
	"jobtriage-engine/internal/rules"
	"jobtriage-engine/internal/schedule"
	"jobtriage-engine/internal/score"
	"jobtriage-engine/internal/scrape"
	"jobtriage-engine/internal/store"
	"jobtriage-engine/internal/task"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := run(log); err != nil {
		log.Fatalw("engine exited", "err", err)
	}
}

func run(log *zap.SugaredLogger) error {
	// Engine data dir: use env if provided (the desktop shell passes one),
	// else local folder.
	dataDir := os.Getenv("JOBTRIAGE_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// One engine per data dir; a second instance would fight over sqlite.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		log.Warnw("another engine instance holds the lock, exiting", "dir", dataDir)
		return nil
	}
	defer lock.Unlock()

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(userCfgPath)
	if err != nil {
		return err
	}
	cfg, res := config.NormalizeAndValidate(cfg)
	for _, warning := range res.Warnings {
		log.Warnw("config warning", "msg", warning)
	}
	if !res.OK() {
		return errors.Newf("config invalid: %v", res.Errors)
	}
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "jobtriage.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	hub := events.NewHub()

	lc := lifecycle.NewService(db, log)
	// Every first transition into applied gets a companion application record.
	lc.OnApplied(func(ctx context.Context, job *domain.Job) {
		if _, created, err := db.GetOrCreateApplication(ctx, job.ID); err != nil {
			log.Warnw("create application", "job_id", job.ID, "err", err)
		} else if created {
			log.Infow("application created", "job_id", job.ID)
		}
	})

	rl := rules.NewService(db, lc, log)

	taskStore := task.NewStore(db.Pool)
	queue := task.NewQueue(taskStore)
	registry := task.NewRegistry()

	var completer score.Completer
	if cfg.Scoring.Enabled {
		apiKey, err := config.ScoringAPIKey()
		if err != nil {
			log.Warnw("scoring API key unavailable", "err", err)
		}
		completer = score.NewChatClient(cfg.Scoring.BaseURL, cfg.Scoring.Model, apiKey)
	} else {
		completer = score.Disabled{}
	}
	sc := score.NewService(db, taskStore, completer, hub, log)
	sc.RegisterHandlers(registry)

	limiter := scrape.NewHostLimiter(cfg.Scrape.RequestsPerSecond, cfg.Scrape.Burst)
	fetcher := scrape.NewHTTPFetcher(limiter, log)

	runner := pipeline.NewRunner(db, queue, lc, rl, sc, fetcher, hub, log)
	runner.RegisterHandlers(registry)

	pool := task.NewPool(taskStore, registry, log, cfg.Workers.Count)
	sched := schedule.New(db, runner, log)

	deps := httpapi.Deps{
		DB:          db,
		Hub:         hub,
		Log:         log,
		Lifecycle:   lc,
		Rules:       rl,
		Runner:      runner,
		Owner:       cfg.Owner.Name,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
	}
	mux := httpapi.NewMux(deps)

	shutdownToken, err := randomToken(16)
	if err != nil {
		return err
	}
	// The desktop shell reads this to be able to stop us later.
	log.Infow("shutdown token", "token", shutdownToken)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	srv := &http.Server{
		Addr: addr,
		Handler: httpapi.Chain(mux,
			httpapi.Cors,
			httpapi.RequestID,
			httpapi.Recover(log),
			httpapi.AccessLog(log),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("engine listening", "addr", addr, "data_dir", dataDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	})
	g.Go(func() error {
		err := pool.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := sched.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	return g.Wait()
}
