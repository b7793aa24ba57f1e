package scheduler

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/limbo/routinely/internal/service"
	"github.com/limbo/routinely/pkg/cleanup"
)

// Hourly tick source. Constructed once in main and injected where needed;
// there is deliberately no package-level instance.

const tickTimeout = 5 * time.Minute

type Scheduler struct {
	scheduler *gocron.Scheduler
	dispatch  service.DispatchServiceI
	logger    *slog.Logger
}

func New(dispatch service.DispatchServiceI, logger *slog.Logger) *Scheduler {
	if dispatch == nil {
		log.Fatal("on scheduler provided nil dispatch service")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		dispatch:  dispatch,
		logger:    logger,
	}
	cleanup.Register(&cleanup.Job{
		Name: "stopping reminder scheduler",
		F: func() error {
			s.Stop()
			return nil
		},
	})
	return s
}

// Start schedules the hourly reminder tick and returns immediately.
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.runTick)
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) runTick() {
	// A tick abandoned at the deadline is safe: ledger markers are only
	// written after confirmed sends, the next tick resumes the rest.
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()
	report, err := s.dispatch.RunTick(ctx, time.Now())
	if err != nil {
		s.logger.Error("scheduled tick failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled tick completed",
		slog.Int("eligible", report.Eligible),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
	)
}
