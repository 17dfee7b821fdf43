package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/config"
	"github.com/deukmosi-create/task-earning-platform/controllers/auth"
	"github.com/deukmosi-create/task-earning-platform/controllers/users"
	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/notify"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

// Deps is everything the HTTP surface needs. Files may be nil.
type Deps struct {
	Config        *config.Config
	DB            *gorm.DB
	Services      *services.Services
	Notifications *notify.Store
	Tokens        *utils.Tokens
	Guard         *middleware.LoginGuard
	Files         users.FileStore
	Log           *zap.Logger
}

// Server is the routed API together with the limiters that need stopping.
type Server struct {
	Handler  http.Handler
	limiters []interface{ Stop() }
}

func (s *Server) Close() {
	for _, l := range s.limiters {
		l.Stop()
	}
}

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func healthHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if sqlDB, err := db.DB(); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		} else {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		utils.WriteJSON(w, code, utils.APIResponse{
			Success: code == http.StatusOK,
			Message: status,
			Data: map[string]interface{}{
				"status":    status,
				"timestamp": time.Now().Unix(),
				"service":   "task-earning-api",
			},
		})
	}
}

// InitRouter registers every endpoint under /v1.
func InitRouter(d Deps) (*mux.Router, *Server) {
	srv := &Server{}
	r := mux.NewRouter()
	r.Handle("/health", healthHandler(d.DB)).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)
	api.Handle("/health", healthHandler(d.DB)).Methods(http.MethodGet)

	// login/register: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute, d.Config.App.TrustedProxies)
	userLimiter := middleware.NewUserRateLimiter(middleware.UserLimits{API: 120, Submit: 10, Admin: 500})
	srv.limiters = append(srv.limiters, loginLimiter, userLimiter)

	authH := auth.NewHandler(d.Services.Users, d.Tokens, d.Guard, d.Log)
	api.Handle("/auth/register", loginLimiter.Middleware(http.HandlerFunc(authH.Register))).Methods(http.MethodPost)
	api.Handle("/auth/login", loginLimiter.Middleware(http.HandlerFunc(authH.Login))).Methods(http.MethodPost)

	secured := api.NewRoute().Subrouter()
	secured.Use(middleware.Auth(d.Tokens), userLimiter.Middleware)
	secured.HandleFunc("/auth/logout", authH.Logout).Methods(http.MethodPost)

	usersRoutes(secured, d)
	adminRoutes(secured.PathPrefix("/admin").Subrouter(), d)

	return r, srv
}

// NewServer wraps the router with the global middleware chain:
// logging, security headers, CORS, request id, body limit, timeout, recovery.
func NewServer(d Deps) *Server {
	router, srv := InitRouter(d)
	app := d.Config.App

	cors := handlers.CORS(
		handlers.AllowedOrigins(app.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
		handlers.AllowCredentials(),
	)
	srv.Handler = middleware.RequestLog(d.Log)(
		middleware.SecurityHeaders(d.Config.IsDevelopment(), !d.Config.IsDevelopment())(
			cors(
				middleware.RequestID(
					middleware.MaxBody(app.MaxBodyBytes)(
						middleware.Timeout(app.RequestTimeout)(
							middleware.Recovery(d.Log)(router),
						),
					),
				),
			),
		),
	)
	return srv
}
