package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"smartapp/internal/config"
	"smartapp/internal/identity"
	inqHnd "smartapp/internal/inquiry/handler"
	"smartapp/internal/middleware"
	repHnd "smartapp/internal/reports/handler"
	reports "smartapp/internal/reports/service"
	tckHnd "smartapp/internal/tickets/handler"
	trdHnd "smartapp/internal/traders/handler"
	traders "smartapp/internal/traders/service"
	"smartapp/server/http/handlers"
)

// Services are the wired domain services the routes serve.
type Services struct {
	DB      handlers.Pinger
	Inquiry inqHnd.Searcher
	Tickets tckHnd.Saver
	Reports *reports.Service
	Traders *traders.Service
}

func NewRouter(cfg config.Config, logger zerolog.Logger, svc Services) *chi.Mux {
	r := chi.NewRouter()

	// order matters: recover -> requestID -> logging -> cors -> limit -> identity
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(cfg.MaxUploadBytes()))
	r.Use(middleware.Identity())

	r.Get("/health", handlers.Health(svc.DB, logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth())

		r.With(middleware.RequirePermission(identity.PermInquiry)).
			Post("/api/inquiry/search", inqHnd.Search(svc.Inquiry, logger))
		r.With(middleware.RequireRole(identity.RoleAdmin, identity.RoleDataEntry, identity.RoleUser)).
			Post("/api/service_tickets/save", tckHnd.Save(svc.Tickets, logger))
		r.With(middleware.RequireRole(identity.RoleAdmin)).
			Post("/api/recent_program/reset", trdHnd.ResetRecent(svc.Traders, logger))

		r.Route("/reports/{category}", func(r chi.Router) {
			r.Get("/export", repHnd.Export(svc.Reports, logger))
			r.With(middleware.RequirePermission(identity.PermGeneralReports)).
				Get("/", repHnd.View(svc.Reports, logger))
			r.With(
				middleware.RequireRole(identity.RoleAdmin, identity.RoleDataEntry),
				middleware.RequirePermission(identity.PermGeneralReports),
			).Post("/import", repHnd.Import(cfg, svc.Reports, logger))
			r.With(middleware.RequireRole(identity.RoleAdmin)).
				Post("/mapping", repHnd.SaveMapping(svc.Reports, logger))
		})

		r.Route("/traders/primary", func(r chi.Router) {
			r.With(middleware.RequireRole(identity.RoleAdmin)).
				Post("/mapping", trdHnd.SavePrimaryMapping(svc.Traders, logger))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(identity.PermTraderPrimary))
				r.Get("/", trdHnd.ViewPrimary(svc.Traders, logger))
				r.Get("/export", trdHnd.ExportPrimary(svc.Traders, logger))
				r.Post("/import", trdHnd.ImportPrimary(cfg, svc.Traders, logger))
			})
		})

		r.Route("/traders/frequent", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(identity.RoleAdmin))
				r.Post("/mapping", trdHnd.SaveFrequentMapping(svc.Traders, logger))
				r.Delete("/recent/{order}", trdHnd.DeleteRecent(svc.Traders, logger))
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(identity.PermTraderFrequent))
				r.Get("/", trdHnd.ViewFrequent(svc.Traders, logger))
				r.Get("/periods", trdHnd.Periods(svc.Traders, logger))
				r.Get("/export", trdHnd.ExportFrequent(svc.Traders, logger))
				r.Post("/import", trdHnd.ImportFrequent(cfg, svc.Traders, logger))
				r.Post("/recent", trdHnd.AddRecent(svc.Traders, logger))
				r.Get("/recent/count", trdHnd.RecentCount(svc.Traders, logger))
				r.Get("/{label}", trdHnd.ViewFrequent(svc.Traders, logger))
			})
		})
	})

	return r
}
