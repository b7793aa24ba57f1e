package service

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/internal/notify"
	"github.com/limbo/routinely/internal/repository"
	"github.com/limbo/routinely/internal/schedule"
	"github.com/limbo/routinely/pkg/entity"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize caps simultaneous outbound mail connections. Sends
	// inside a batch run concurrently, batches run one after another.
	DefaultBatchSize = 5

	maxFailureSamples = 10

	reminderChannel = "email"
)

type DispatchService struct {
	habitsRepo repository.HabitsRepositoryI
	usersRepo  repository.UsersRepositoryI
	ledgerRepo repository.LedgerRepositoryI
	matcher    *schedule.Matcher
	sender     notify.Sender
	batchSize  int
	logger     *slog.Logger
}

func NewDispatchService(
	habitsRepo repository.HabitsRepositoryI,
	usersRepo repository.UsersRepositoryI,
	ledgerRepo repository.LedgerRepositoryI,
	matcher *schedule.Matcher,
	sender notify.Sender,
	batchSize int,
	logger *slog.Logger,
) *DispatchService {
	if habitsRepo == nil || usersRepo == nil || ledgerRepo == nil {
		log.Fatal("on dispatch service provided nil repos")
	}
	if matcher == nil || sender == nil {
		log.Fatal("on dispatch service provided nil matcher or sender")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchService{
		habitsRepo: habitsRepo,
		usersRepo:  usersRepo,
		ledgerRepo: ledgerRepo,
		matcher:    matcher,
		sender:     sender,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// RunTick runs one full evaluation-and-dispatch pass for the instant now.
// Safe to invoke concurrently or more often than hourly: the ledger's
// unique constraint keeps each habit at one reminder per day. Only a
// failure of the initial habit load returns an error; everything after is
// isolated per habit and reported.
func (ds *DispatchService) RunTick(ctx context.Context, now time.Time) (*entity.TickReport, error) {
	report := &entity.TickReport{RanAt: now}
	candidates, err := ds.habitsRepo.ListDueCandidates(ctx)
	if err != nil {
		return nil, errors.New("loading tick candidates error: " + err.Error())
	}

	now = now.UTC()
	day := entity.DayOf(now)
	due := make([]*entity.Habit, 0, len(candidates))
	for _, h := range candidates {
		if err := schedule.ValidateWindows(h.Reminder.Windows); err != nil {
			ds.logger.Warn("habit has malformed reminder windows, skipping",
				slog.String("habit_id", h.ID.String()), slog.String("error", err.Error()))
			report.Skipped++
			continue
		}
		if ds.matcher.IsDue(h, now.Hour(), now.Weekday()) {
			due = append(due, h)
		}
	}
	report.Eligible = len(due)

	var mu sync.Mutex
	pending := make([]*entity.Habit, 0, len(due))
	for _, h := range due {
		sent, err := ds.ledgerRepo.Exists(ctx, h.ID, day)
		if err != nil {
			ds.fail(report, &mu, h.ID, "ledger lookup failed: "+err.Error())
			continue
		}
		if sent {
			report.Deduped++
			continue
		}
		pending = append(pending, h)
	}

	users, err := ds.resolveOwners(ctx, pending)
	if err != nil {
		return nil, errors.New("resolving habit owners error: " + err.Error())
	}

	for batch := range slices.Chunk(pending, ds.batchSize) {
		g := new(errgroup.Group)
		for _, habit := range batch {
			g.Go(func() error {
				ds.processHabit(ctx, habit, users[habit.UserID], day, report, &mu)
				// Sibling sends must finish regardless of this habit's
				// outcome, so failures stay out of the group error.
				return nil
			})
		}
		g.Wait()
	}

	ds.logger.Info("tick finished",
		slog.Int("eligible", report.Eligible),
		slog.Int("deduped", report.Deduped),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Int("orphaned", report.Orphaned),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

// resolveOwners turns the pending set into one batched user lookup.
// Missing owners stay absent from the map; processHabit treats them as
// orphans.
func (ds *DispatchService) resolveOwners(ctx context.Context, pending []*entity.Habit) (map[uuid.UUID]*entity.User, error) {
	ids := make([]uuid.UUID, 0, len(pending))
	seen := make(map[uuid.UUID]struct{}, len(pending))
	for _, h := range pending {
		if _, ok := seen[h.UserID]; ok {
			continue
		}
		seen[h.UserID] = struct{}{}
		ids = append(ids, h.UserID)
	}
	return ds.usersRepo.ResolveByIDs(ctx, ids)
}

func (ds *DispatchService) processHabit(ctx context.Context, habit *entity.Habit, owner *entity.User, day time.Time, report *entity.TickReport, mu *sync.Mutex) {
	if owner == nil {
		// Permanent: the account is gone. Disable so the habit stops
		// showing up every tick.
		if err := ds.habitsRepo.DisableReminder(ctx, habit.ID); err != nil {
			ds.logger.Error("disabling orphaned habit failed",
				slog.String("habit_id", habit.ID.String()), slog.String("error", err.Error()))
		}
		mu.Lock()
		report.Orphaned++
		sampleFailure(report, habit.ID, "owner not found, reminder disabled")
		mu.Unlock()
		return
	}
	if owner.Email == "" {
		// Transient data-quality problem, not orphaning: keep the habit
		// enabled and try again next tick.
		mu.Lock()
		report.Skipped++
		mu.Unlock()
		return
	}
	if err := ds.sender.Send(ctx, owner.Email, notify.ReminderMessage(habit, owner)); err != nil {
		// No ledger write, so a later tick can retry.
		ds.fail(report, mu, habit.ID, "send failed: "+err.Error())
		return
	}
	err := ds.ledgerRepo.Create(ctx, &entity.LedgerEntry{
		HabitID: habit.ID,
		UserID:  owner.ID,
		SentOn:  day,
		Channel: reminderChannel,
	})
	mu.Lock()
	defer mu.Unlock()
	switch {
	case err == nil:
		report.Sent++
	case errors.Is(err, errorvalues.ErrReminderAlreadySent):
		// A concurrent tick won the insert. The send was duplicated but
		// the day stays single-marked.
		report.Deduped++
	default:
		// Send confirmed, marker lost. Accepted duplicate risk; the next
		// tick may send again.
		ds.logger.Error("ledger write failed after send",
			slog.String("habit_id", habit.ID.String()), slog.String("error", err.Error()))
		report.Sent++
	}
}

func (ds *DispatchService) fail(report *entity.TickReport, mu *sync.Mutex, habitID uuid.UUID, reason string) {
	ds.logger.Error("habit dispatch failed",
		slog.String("habit_id", habitID.String()), slog.String("reason", reason))
	mu.Lock()
	report.Failed++
	sampleFailure(report, habitID, reason)
	mu.Unlock()
}

func sampleFailure(report *entity.TickReport, habitID uuid.UUID, reason string) {
	if len(report.Failures) >= maxFailureSamples {
		return
	}
	report.Failures = append(report.Failures, entity.FailureSample{
		HabitID: habitID.String(),
		Reason:  reason,
	})
}
