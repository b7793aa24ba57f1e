package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/internal/service"
	"github.com/limbo/routinely/pkg/entity"
	"github.com/limbo/routinely/pkg/httputil"
)

const dayLayout = "2006-01-02"

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type ReminderOpts struct {
	Enabled      bool     `json:"enabled"`
	Windows      []string `json:"windows"`
	Weekdays     []int    `json:"weekdays"`
	TimesPerWeek int      `json:"times_per_week"`
}

type HabitRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"desc"`
	Category    string       `json:"category"`
	Reminder    ReminderOpts `json:"reminder"`
}

type CompleteRequest struct {
	Day          string `json:"day"`
	Mood         *int   `json:"mood"`
	Productivity *int   `json:"productivity"`
	MinutesSpent int    `json:"minutes_spent"`
	Note         string `json:"note"`
}

type GetHabitsResponse struct {
	UserID string          `json:"uid"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
	Habits []*entity.Habit `json:"habits"`
}

func isValidationError(err error) bool {
	var fieldErr validator.FieldError
	return errors.As(err, &fieldErr)
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req RegisterRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("registering error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	user, err := s.userService.Register(ctx, &service.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrUserExists):
			logger.Error("registering error: existed user")
			httputil.WriteErrorResponse(w, http.StatusConflict, "user with such name already exists", nil)
		case isValidationError(err):
			logger.Error("registering error: invalid credentials", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
		default:
			logger.Error("registering error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error during registration", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"uid": user.ID.String(),
	})
	logger.Info("successful registration")
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req LoginRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("login error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	user, err := s.userService.Login(ctx, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrUserNotFound):
			logger.Error("login error: unexist user")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "user with such name doesn't exist", nil)
			return
		case errors.Is(err, errorvalues.ErrWrongCredentials):
			logger.Error("login error: wrong password")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "invalid username or password", nil)
			return
		default:
			logger.Error("login error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error during login", nil)
			return
		}
	}
	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		logger.Error("login error: generating token error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error creating token", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"uid":   user.ID.String(),
		"token": token,
	})
	logger.Info("successful login")
}

func (s *Server) CreateHabit(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("create habit error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req HabitRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("create habit error: invalid request body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	habit, err := s.habitService.CreateHabit(ctx, uid, serviceHabitRequest(&req))
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrUserHasHabit):
			logger.Error("create habit error: attempt to create existed habit")
			httputil.WriteErrorResponse(w, http.StatusConflict, "habit already exists", nil)
		case errors.Is(err, errorvalues.ErrUserNotFound):
			logger.Error("create habit error: unexist user")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "couldn't create habit: user doesn't exists", nil)
		case isValidationError(err):
			logger.Error("create habit error: invalid fields", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
		default:
			logger.Error("create habit error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while creating habit", nil)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, map[string]any{"habit_id": habit.ID.String()})
	logger.Info("habit created")
}

func (s *Server) GetHabits(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("get habits error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 || limit > 50 {
		limit = 10
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	habits, err := s.habitService.GetUserHabits(ctx, uid, service.PaginationOpts{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logger.Error("getting habits list error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while getting habits list", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, GetHabitsResponse{
		UserID: uid.String(),
		Page:   page,
		Limit:  limit,
		Habits: habits,
	})
	logger.Info("habits provided")
}

func (s *Server) GetHabit(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	habit, err := s.habitService.GetHabit(ctx, id, uid)
	if err != nil {
		s.writeHabitLookupError(w, logger, "get habit", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, habit)
	logger.Info("habit provided")
}

func (s *Server) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	var req HabitRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("update habit error: invalid request body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	habit, err := s.habitService.UpdateHabit(ctx, id, uid, serviceHabitRequest(&req))
	if err != nil {
		if isValidationError(err) {
			logger.Error("update habit error: invalid fields", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		s.writeHabitLookupError(w, logger, "update habit", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, habit)
	logger.Info("habit updated")
}

func (s *Server) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := s.habitService.DeleteHabit(ctx, id, uid)
	if err != nil {
		s.writeHabitLookupError(w, logger, "habit deletion", err)
		return
	}
	logger.Info("habit deleted")
}

func (s *Server) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	var req CompleteRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("record completion error: invalid request body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	day := time.Now().UTC()
	if req.Day != "" {
		day, err = time.Parse(dayLayout, req.Day)
		if err != nil {
			logger.Error("record completion error: invalid day")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "day must be formatted as YYYY-MM-DD", nil)
			return
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	event, err := s.completionService.Record(ctx, id, uid, day, &service.CompletionOpts{
		Mood:         req.Mood,
		Productivity: req.Productivity,
		MinutesSpent: req.MinutesSpent,
		Note:         req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrCompletionInFuture):
			logger.Error("record completion error: future day")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "cannot complete a habit for a future day", nil)
		case isValidationError(err):
			logger.Error("record completion error: invalid fields", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
		default:
			s.writeHabitLookupError(w, logger, "record completion", err)
		}
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, event)
	logger.Info("completion recorded")
}

func (s *Server) UncheckCompletion(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := s.completionService.Uncheck(ctx, id, uid, time.Now().UTC())
	if err != nil {
		if errors.Is(err, errorvalues.ErrCompletionNotFound) {
			logger.Error("uncheck error: no completion for today")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "no completion recorded for today", nil)
			return
		}
		s.writeHabitLookupError(w, logger, "uncheck", err)
		return
	}
	logger.Info("completion removed")
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -29)
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(dayLayout, v)
		if err != nil {
			logger.Error("history error: invalid from date")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "from must be formatted as YYYY-MM-DD", nil)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse(dayLayout, v)
		if err != nil {
			logger.Error("history error: invalid to date")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "to must be formatted as YYYY-MM-DD", nil)
			return
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	events, err := s.completionService.History(ctx, id, uid, from, to)
	if err != nil {
		s.writeHabitLookupError(w, logger, "history", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"habit_id": id.String(),
		"from":     entity.DayOf(from).Format(dayLayout),
		"to":       entity.DayOf(to).Format(dayLayout),
		"events":   events,
	})
	logger.Info("history provided")
}

func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	stats, err := s.completionService.Stats(ctx, id, uid)
	if err != nil {
		s.writeHabitLookupError(w, logger, "stats", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, stats)
	logger.Info("stats provided")
}

func (s *Server) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, id, ok := s.habitRequestIDs(w, r)
	if !ok {
		return
	}
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days < 1 || days > 365 {
		days = 30
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	report, err := s.completionService.Analytics(ctx, id, uid, days)
	if err != nil {
		s.writeHabitLookupError(w, logger, "analytics", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, report)
	logger.Info("analytics provided")
}

// habitRequestIDs pulls the acting user from the request context and the
// habit id from the path. On failure the response is already written.
func (s *Server) habitRequestIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("unauthorized request")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return uuid.UUID{}, uuid.UUID{}, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		logger.Error("invalid habit id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid habit id in path value", nil)
		return uuid.UUID{}, uuid.UUID{}, false
	}
	return uid, id, true
}

func (s *Server) writeHabitLookupError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, errorvalues.ErrHabitNotFound):
		logger.Error(op + " error: unexist habit")
		httputil.WriteErrorResponse(w, http.StatusNotFound, "habit doesn't exist", nil)
	case errors.Is(err, errorvalues.ErrWrongOwner):
		logger.Error(op + " error: habit has different owner")
		httputil.WriteErrorResponse(w, http.StatusNotFound, "habit doesn't exist", nil)
	default:
		logger.Error(op+" error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func serviceHabitRequest(req *HabitRequest) *service.CreateHabitRequest {
	return &service.CreateHabitRequest{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Reminder: service.ReminderOpts{
			Enabled:      req.Reminder.Enabled,
			Windows:      req.Reminder.Windows,
			Weekdays:     req.Reminder.Weekdays,
			TimesPerWeek: req.Reminder.TimesPerWeek,
		},
	}
}
