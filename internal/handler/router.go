package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icloudbridge/bridge/internal/auth"
	"github.com/icloudbridge/bridge/internal/metrics"
	"github.com/icloudbridge/bridge/internal/middleware"
	"github.com/icloudbridge/bridge/internal/model"
	"github.com/icloudbridge/bridge/internal/store"
)

// RouterConfig carries the transport policy of the API.
type RouterConfig struct {
	Authorizer *auth.Authorizer
	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables cross-origin access.
	CORSOrigins []string
	// RateLimitRPS and RateLimitBurst limit remote callers. Zero disables.
	RateLimitRPS   float64
	RateLimitBurst int
	// AssetPollLimit caps asset requests per caller and minute. Zero disables.
	AssetPollLimit int
}

// Handlers groups the resource handlers mounted under /api/v1.
type Handlers struct {
	Reminders *ReminderHandler
	Calendars *CalendarHandler
	Photos    *PhotoHandler
}

// NewRouter builds the HTTP surface: /health without auth, /api/v1 and
// /metrics behind the auth decision.
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.Authorizer))
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.RemoteRateLimit(cfg.RateLimitRPS, max(cfg.RateLimitBurst, 1)))
		}

		r.Handle("/metrics", promhttp.Handler())

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/lists", h.Reminders.HandleLists)
			r.Get("/lists/{id}", h.Reminders.HandleList)
			r.Get("/lists/{id}/reminders", h.Reminders.HandleReminders)
			r.Post("/lists/{id}/reminders", h.Reminders.HandleCreateReminder)
			r.Get("/reminders/{id}", h.Reminders.HandleReminder)
			r.Put("/reminders/{id}", h.Reminders.HandleUpdateReminder)
			r.Delete("/reminders/{id}", h.Reminders.HandleDeleteReminder)

			r.Get("/calendars", h.Calendars.HandleCalendars)
			r.Get("/calendars/{id}", h.Calendars.HandleCalendar)
			r.Get("/calendars/{id}/events", h.Calendars.HandleEvents)
			r.Get("/calendars/{id}/events.ics", h.Calendars.HandleEventsICS)
			r.Post("/calendars/{id}/events", h.Calendars.HandleCreateEvent)
			r.Get("/events/{id}", h.Calendars.HandleEvent)
			r.Put("/events/{id}", h.Calendars.HandleUpdateEvent)
			r.Delete("/events/{id}", h.Calendars.HandleDeleteEvent)

			r.Get("/albums", h.Photos.HandleAlbums)
			r.Get("/albums/{id}", h.Photos.HandleAlbum)
			r.Get("/albums/{id}/photos", h.Photos.HandlePhotos)
			r.Get("/photos/{id}", h.Photos.HandlePhoto)

			r.Group(func(r chi.Router) {
				if cfg.AssetPollLimit > 0 {
					r.Use(httprate.Limit(cfg.AssetPollLimit, time.Minute,
						httprate.WithKeyFuncs(httprate.KeyByIP),
						httprate.WithLimitHandler(tooManyRequests),
					))
				}
				r.Get("/photos/{id}/thumbnail", h.Photos.HandleAsset(store.AssetThumbnail))
				r.Get("/photos/{id}/image", h.Photos.HandleAsset(store.AssetImage))
				r.Get("/photos/{id}/video", h.Photos.HandleAsset(store.AssetVideo))
				r.Get("/photos/{id}/live-video", h.Photos.HandleAsset(store.AssetLiveVideo))
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse("method not allowed"))
	})

	return r
}

// HandleHealth handles GET /health requests.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{Status: "ok"})
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	metrics.RateLimitHits.Inc()
	writeJSON(w, http.StatusTooManyRequests, errorResponse("too many requests"))
}
