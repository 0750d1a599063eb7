package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/talentgate/internal/metrics"
)

// Limits for the built-in rate limiters, per client IP and RateWindow.
const (
	RateWindow       = 15 * time.Minute
	AuthLimitProd    = 5
	AuthLimitDev     = 100
	APILimitProd     = 100
	APILimitDev      = 1000
	msgTooManyAuth   = "too many authentication attempts, try again later"
	msgTooManyAPI    = "too many requests, try again later"
	msgRouteNotFound = "route not found"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger     *zap.Logger
	Service    AuthService
	Metrics    *metrics.Metrics
	Production bool
	// Health reports readiness for /healthz. Nil means always ready.
	Health func(r *http.Request) error
	// AuthLimit and APILimit override the environment defaults when positive.
	AuthLimit int
	APILimit  int
}

// NewRouter constructs the chi router.
func NewRouter(p RouterParams) http.Handler {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	authLimit, apiLimit := AuthLimitDev, APILimitDev
	if p.Production {
		authLimit, apiLimit = AuthLimitProd, APILimitProd
	}
	if p.AuthLimit > 0 {
		authLimit = p.AuthLimit
	}
	if p.APILimit > 0 {
		apiLimit = p.APILimit
	}

	h := NewHandler(p.Service, log)
	gate := Authenticate(p.Service, log)

	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.RequestID)
	r.Use(RequestLogger(log))
	r.Use(Recoverer(log))
	r.Use(SecureHeaders(p.Production, log))
	r.Use(p.Metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if p.Health != nil {
			if err := p.Health(r); err != nil {
				log.Warn("health check failed", zap.Error(err))
				Fail(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		JSON(w, http.StatusOK, Envelope{Success: true, Message: "ok"})
	})
	r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(RateLimit(apiLimit, RateWindow, msgTooManyAPI, log))
		api.Route("/auth", func(ar chi.Router) {
			ar.Group(func(pub chi.Router) {
				pub.Use(RateLimit(authLimit, RateWindow, msgTooManyAuth, log))
				pub.Post("/register", h.register)
				pub.Post("/login", h.login)
			})
			ar.Group(func(priv chi.Router) {
				priv.Use(gate)
				priv.Get("/validate", h.validateSession)
				priv.Post("/logout", h.logout)
				priv.Post("/refresh", h.refresh)
				priv.Delete("/users/{email}", h.deleteUser)
				priv.With(RequireAdmin).Patch("/users/{id}/deactivate", h.deactivateUser)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		Fail(w, http.StatusNotFound, msgRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		Fail(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})
	return r
}
