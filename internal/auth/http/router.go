package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/harborauth/harbor/internal/auth/domain"
	"github.com/harborauth/harbor/internal/auth/service"
	"github.com/harborauth/harbor/internal/auth/store"
	"github.com/harborauth/harbor/pkg/httpx"
	"github.com/harborauth/harbor/pkg/jwtx"
	"github.com/harborauth/harbor/pkg/slogx"

	_ "github.com/harborauth/harbor/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	AccountService *service.AccountService
	UserService    *service.UserService
	RoleService    *service.RoleService

	// AdminPassword is the secret used when seeding the admin account.
	AdminPassword string
}

func NewRouter(
	codec *jwtx.Codec,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerRoles()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Harbor Authentication Service API
//	@version		0.1.0
//	@description	Bearer-token authentication service issuing JWT access tokens with
//	@description	rotating single-use refresh tokens. Access tokens are signed with
//	@description	HS256 using a shared service secret.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AccountService: r.AccountService,
		AdminPassword:  r.AdminPassword,
	}

	// POST /login - strict rate limit (credential attempts)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /refresh - moderate rate limit; well-behaved clients only hit
	// this when an access token expires
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /admin - idempotent admin seed, strict rate limit
	r.Mux.Handle("POST /v1/auth/admin",
		httpx.Chain(http.HandlerFunc(h.HandleSeedAdmin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	userinfo := &UserInfoHandler{
		UserService: r.UserService,
	}

	// Authenticated endpoint - lenient rate limit by user
	r.Mux.Handle("GET /v1/userinfo", httpx.Chain(userinfo,
		httpx.AuthnMiddleware(r.codec),
		httpx.RateLimitByUser(httpx.LenientLimit),
	))

	users := &UsersHandler{RoleService: r.RoleService}

	// Admin listing and role assignment - moderate rate limit by user
	r.Mux.Handle("GET /v1/users", httpx.Chain(http.HandlerFunc(users.HandleList),
		httpx.AuthnMiddleware(r.codec),
		httpx.RequireRole(domain.RoleAdmin),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	))
	r.Mux.Handle("POST /v1/users/role", httpx.Chain(http.HandlerFunc(users.HandleChangeRole),
		httpx.AuthnMiddleware(r.codec),
		httpx.RequireRole(domain.RoleAdmin),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RoleService: r.RoleService}

	r.Mux.Handle("GET /v1/roles", httpx.Chain(http.HandlerFunc(h.HandleList),
		httpx.AuthnMiddleware(r.codec),
		httpx.RequireRole(domain.RoleAdmin),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	))
	r.Mux.Handle("POST /v1/roles", httpx.Chain(http.HandlerFunc(h.HandleCreate),
		httpx.AuthnMiddleware(r.codec),
		httpx.RequireRole(domain.RoleAdmin),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
