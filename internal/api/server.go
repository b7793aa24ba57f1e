package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/limbo/routinely/internal/repository"
	"github.com/limbo/routinely/internal/service"
)

type Server struct {
	mx                *chi.Mux
	userService       service.UserServiceI
	habitService      service.HabitsServiceI
	completionService service.CompletionServiceI
	dispatchService   service.DispatchServiceI
	ledgerRepo        repository.LedgerRepositoryI
	jwtService        JWTServiceI
	triggerSecret     string
}

type ServicesList struct {
	UserService       service.UserServiceI
	HabitsService     service.HabitsServiceI
	CompletionService service.CompletionServiceI
	DispatchService   service.DispatchServiceI
	LedgerRepo        repository.LedgerRepositoryI
	JwtService        JWTServiceI
	TriggerSecret     string
}

func New(servicesOptions *ServicesList) *Server {
	return &Server{
		mx:                chi.NewMux(),
		userService:       servicesOptions.UserService,
		habitService:      servicesOptions.HabitsService,
		completionService: servicesOptions.CompletionService,
		dispatchService:   servicesOptions.DispatchService,
		ledgerRepo:        servicesOptions.LedgerRepo,
		jwtService:        servicesOptions.JwtService,
		triggerSecret:     servicesOptions.TriggerSecret,
	}
}

func (s *Server) registerRoutes() {
	s.mx.Use(s.RequestIDMiddleware, s.SettingUpLoggerMiddleware)
	s.mx.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.Register)
			r.Post("/login", s.Login)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.AuthMiddleware, s.LoggerExtensionMiddleware)
			r.Route("/habits", func(r chi.Router) {
				r.Post("/", s.CreateHabit)
				r.Get("/", s.GetHabits)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.GetHabit)
					r.Put("/", s.UpdateHabit)
					r.Delete("/", s.DeleteHabit)
					r.Post("/complete", s.RecordCompletion)
					r.Delete("/complete", s.UncheckCompletion)
					r.Get("/history", s.GetHistory)
					r.Get("/stats", s.GetStats)
					r.Get("/analytics", s.GetAnalytics)
				})
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(s.TriggerSecretMiddleware)
			r.Post("/tick", s.TriggerTick)
			r.Get("/tick/status", s.TickStatus)
		})
	})
}

func (s *Server) Run(address string) error {
	s.registerRoutes()
	server := &http.Server{
		Addr:              address,
		Handler:           s.mx,
		ReadHeaderTimeout: time.Second * 10,
	}
	return server.ListenAndServe()
}
