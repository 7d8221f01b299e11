package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/userbridge-backend/api/controllers"
	"github.com/angelmondragon/userbridge-backend/api/middleware"
	"github.com/angelmondragon/userbridge-backend/internal/auth"
	"github.com/angelmondragon/userbridge-backend/internal/roles"
	"github.com/angelmondragon/userbridge-backend/internal/users"
	pkgAuth "github.com/angelmondragon/userbridge-backend/pkg/auth"
	"github.com/angelmondragon/userbridge-backend/pkg/config"
	"github.com/angelmondragon/userbridge-backend/pkg/logger"
	"github.com/angelmondragon/userbridge-backend/pkg/metrics"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        controllers.Pinger
	RateLimiter  middleware.RateLimiterStore
	SigningKeys  middleware.SigningKeySource
	Verifier     *pkgAuth.Verifier
	Gatherer     prometheus.Gatherer
	HTTPMetrics  *metrics.HTTPMetrics
	AuthService  auth.Service
	UserService  users.Service
	RolesService roles.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
		r.Post("/token/validate", controllers.AuthIntrospect(deps.AuthService, logg))
		if !cfg.App.IsProd() {
			r.Get("/token/client", controllers.AuthClientToken(deps.AuthService, logg))
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.SigningKeys, deps.Verifier, logg))

		r.Route("/api/v1/users", func(r chi.Router) {
			r.Post("/", controllers.UsersCreate(deps.UserService, logg))
			r.Get("/", controllers.UsersList(deps.UserService, logg))
			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", controllers.UsersGet(deps.UserService, logg))
				r.Patch("/", controllers.UsersUpdate(deps.UserService, logg))
				r.Delete("/", controllers.UsersDelete(deps.UserService, logg))
				r.Post("/password", controllers.UsersResetPassword(deps.UserService, logg))
				r.Get("/roles", controllers.UsersRoles(deps.UserService, deps.RolesService, logg))
			})
		})

		r.Get("/api/v1/roles", controllers.RolesList(deps.RolesService, logg))
	})

	return r
}
