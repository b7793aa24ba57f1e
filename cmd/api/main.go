// @title Routinely API
// @description Habit reminder scheduling and analytics service
// @BasePath /api/v1
// @schemes http
package main

import (
	"log"
	"log/slog"

	"github.com/limbo/routinely/internal/api"
	"github.com/limbo/routinely/internal/notify"
	"github.com/limbo/routinely/internal/repository"
	"github.com/limbo/routinely/internal/schedule"
	"github.com/limbo/routinely/internal/scheduler"
	"github.com/limbo/routinely/internal/service"
	"github.com/limbo/routinely/pkg/cleanup"
	"github.com/limbo/routinely/pkg/config"
	jwtservice "github.com/limbo/routinely/pkg/jwt_service"
)

func init() {
	service.InitValidator()
}

func main() {
	defer cleanup.CleanUp()
	cfg := config.New()
	dbCfg := repository.PGCfg{
		Address:  cfg.GetString("POSTGRES_DB_ADDRESS"),
		Username: cfg.GetString("POSTGRES_USER"),
		Password: cfg.GetString("POSTGRES_PASSWORD"),
		DB:       cfg.GetString("POSTGRES_DB"),
	}
	usersRepo := repository.NewUsersRepo(&dbCfg)
	habitsRepo := repository.NewHabitsRepo(&dbCfg)
	completionsRepo := repository.NewCompletionsRepo(&dbCfg)
	ledgerRepo := repository.NewLedgerRepo(&dbCfg)

	var sender notify.Sender
	if smtpAddress := cfg.GetString("SMTP_ADDRESS"); smtpAddress != "" {
		sender = notify.NewSMTPSender(notify.SMTPCfg{
			Address:  smtpAddress,
			Username: cfg.GetString("SMTP_USERNAME"),
			Password: cfg.GetString("SMTP_PASSWORD"),
			From:     cfg.GetString("SMTP_FROM"),
		})
	} else {
		slog.Warn("SMTP_ADDRESS is not set, reminders go to the log only")
		sender = notify.NewLogSender(slog.Default())
	}

	userService := service.NewUserService(usersRepo)
	habitService := service.NewHabitsService(habitsRepo)
	completionService := service.NewCompletionService(habitsRepo, completionsRepo, usersRepo)
	matcher := schedule.NewMatcher(cfg.GetBool("REMINDER_EMPTY_WINDOWS_MATCH", true))
	dispatchService := service.NewDispatchService(
		habitsRepo,
		usersRepo,
		ledgerRepo,
		matcher,
		sender,
		cfg.GetInt("REMINDER_BATCH_SIZE", service.DefaultBatchSize),
		slog.Default(),
	)

	ticker := scheduler.New(dispatchService, slog.Default())
	ticker.Start()

	serv := api.New(&api.ServicesList{
		UserService:       userService,
		HabitsService:     habitService,
		CompletionService: completionService,
		DispatchService:   dispatchService,
		LedgerRepo:        ledgerRepo,
		JwtService:        jwtservice.New(cfg.GetString("JWT_SECRET")),
		TriggerSecret:     cfg.GetString("TICK_TRIGGER_SECRET"),
	})
	err := serv.Run(cfg.GetString("API_ADDRESS"))
	if err != nil {
		log.Println("Server error: " + err.Error())
	}
}
