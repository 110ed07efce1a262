package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"hallbooking/internal/api"
	"hallbooking/internal/scheduling"
	"hallbooking/pkg/config"
)

type Dependencies struct {
	Cfg config.Config
	Log *logrus.Logger
	Svc *scheduling.Service
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(api.RequestLogger(deps.Log))
	r.Use(api.CORSMiddleware(api.CORSOptions{
		AllowedOrigins: deps.Cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAgeSeconds:  600,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := scheduling.NewHandlers(deps.Svc)

	// v1
	r.Route("/v1", func(r chi.Router) {
		r.Use(api.BearerAuth(deps.Cfg.JWT))

		r.Route("/halls", func(r chi.Router) {
			r.Get("/", h.ListHalls)
			r.Post("/", h.CreateHall)
			r.Get("/{id}", h.GetHall)
			r.Put("/{id}", h.UpdateHall)
			r.Delete("/{id}", h.DeleteHall)
			r.Get("/{id}/availability", h.Availability)
			r.Get("/{id}/usage", h.Usage)
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.Submit)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Delete("/{id}", h.Withdraw)
			r.Get("/{id}/events", h.Events)
			r.Post("/{id}/approve", h.Approve)
			r.Post("/{id}/reject", h.Reject)
			r.Post("/{id}/cancel", h.Cancel)
			r.Post("/{id}/cancellation", h.RequestCancellation)
			r.Post("/{id}/cancellation/resolve", h.ResolveCancellation)
		})
	})

	return r
}
