package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

const refreshTimeout = time.Minute

// RefreshFunc reloads the home feed.
type RefreshFunc func(ctx context.Context) error

// Scheduler refreshes the feed on a cron spec. An empty spec disables it.
type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	spec    string
	refresh RefreshFunc
	log     *slog.Logger
	running atomic.Bool
}

func New(ctx context.Context, spec string, refresh RefreshFunc, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.UTC))

	return &Scheduler{
		ctx:     ctx,
		cron:    c,
		spec:    spec,
		refresh: refresh,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if s.spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return err
	}

	s.cron.Start()
	s.log.InfoContext(s.ctx, "Auto refresh scheduled",
		"spec", s.spec)

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	// skip when the previous refresh is still running
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(s.ctx, refreshTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	if err := s.refresh(ctx); err != nil {
		s.log.WarnContext(ctx, "Auto refresh failed",
			"error", err)
	}
}
