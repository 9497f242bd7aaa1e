package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"

	"liondance/internal/delivery/http/controllers"
	"liondance/internal/delivery/http/helpers"
	"liondance/internal/delivery/http/middleware"
	"liondance/internal/domain"
	"liondance/internal/metrics"
)

// RouterConfig holds cross-cutting HTTP settings.
type RouterConfig struct {
	Logger             *slog.Logger
	Sessions           domain.SessionVerifier
	Staff              middleware.StaffDirectory
	CORSAllowedOrigins []string
	ContactRateLimit   int
	ContactRateWindow  time.Duration
}

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Events  *controllers.EventController
	Admins  *controllers.AdminController
	Auth    *controllers.AuthController
	Contact *controllers.ContactController
	Media   *controllers.MediaController
	Health  *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(cfg RouterConfig, c Controllers) http.Handler {
	sessions := &middleware.Sessions{Verifier: cfg.Sessions, Staff: cfg.Staff, LoginPath: "/auth/google", Logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONError(w, http.StatusMethodNotAllowed, helpers.ErrCodeBadRequest, "method not allowed")
	})

	// Public
	r.Get("/health", c.Health.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/events", c.Events.ListEvents)
	r.With(sessions.OptionalStaff).Get("/event/{id}", c.Events.GetEvent)
	r.With(sessions.OptionalStaff).Get("/session-info", c.Auth.SessionInfo)
	r.Route("/media/years", func(r chi.Router) {
		r.Get("/", c.Media.ListYears)
		r.Get("/{year}", c.Media.ListShoots)
		r.Get("/{year}/{shoot}", c.Media.ListPhotos)
	})
	r.With(contactLimiter(cfg)).Post("/contact", c.Contact.SendMessage)

	// OAuth
	r.Get("/auth/{provider}", c.Auth.BeginAuth)
	r.Get("/auth/{provider}/callback", c.Auth.Callback)
	r.Get("/logout/{provider}", c.Auth.Logout)

	// Staff
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireStaff)

		r.Post("/event", c.Events.CreateEvent)
		r.Post("/event/images/upload-url", c.Events.PresignImageUpload)
		r.Post("/event/{id}", c.Events.UpdateEvent)
		r.Delete("/event/{id}", c.Events.DeleteEvent)

		r.Get("/admin", c.Admins.ListAdmins)
		r.Post("/admin", c.Admins.CreateAdmin)
		r.Get("/admin/events", c.Events.ListAdminEvents)
		r.Get("/admin/{param}", c.Admins.GetAdmin)
		r.Patch("/admin/{param}", c.Admins.UpdateAdmin)
		r.Delete("/admin/{param}", c.Admins.DeleteAdmin)
	})

	return r
}

func contactLimiter(cfg RouterConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.ContactRateLimit,
		cfg.ContactRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			helpers.WriteJSONError(w, http.StatusTooManyRequests, helpers.ErrCodeTooManyRequests, "too many messages, try again later")
		}),
	)
}
