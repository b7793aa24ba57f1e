package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/limbo/routinely/pkg/entity"
	"github.com/limbo/routinely/pkg/httputil"
)

const recentMarkersLimit = 20

// TriggerTick runs one dispatch pass immediately. The optional "at" query
// parameter (RFC3339) substitutes the evaluation instant, which makes the
// endpoint usable for replaying a missed hour.
func (s *Server) TriggerTick(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	now := time.Now().UTC()
	if v := r.URL.Query().Get("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			logger.Error("tick trigger error: invalid at parameter")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "at must be formatted as RFC3339", nil)
			return
		}
		now = parsed.UTC()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute*5)
	defer cancel()
	report, err := s.dispatchService.RunTick(ctx, now)
	if err != nil {
		logger.Error("tick trigger error: tick could not run", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "tick could not run", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, report)
	logger.Info("manual tick finished",
		slog.Int("eligible", report.Eligible),
		slog.Int("sent", report.Sent),
		slog.Int("deduped", report.Deduped),
		slog.Int("failed", report.Failed))
}

// TickStatus reports today's ledger activity, mostly for operators checking
// whether reminders actually went out.
func (s *Server) TickStatus(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	today := entity.DayOf(time.Now())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	sentToday, err := s.ledgerRepo.CountOn(ctx, today)
	if err != nil {
		logger.Error("tick status error: counting markers", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error reading ledger", nil)
		return
	}
	recent, err := s.ledgerRepo.ListRecent(ctx, recentMarkersLimit)
	if err != nil {
		logger.Error("tick status error: listing markers", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error reading ledger", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"day":        today.Format(dayLayout),
		"sent_today": sentToday,
		"recent":     recent,
	})
	logger.Info("tick status provided")
}
