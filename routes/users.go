package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/deukmosi-create/task-earning-platform/controllers/users"
	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/services"
)

func usersRoutes(api *mux.Router, d Deps) {
	h := users.NewHandler(d.Services, d.Notifications, d.Files, d.Log)
	can := func(c services.Capability, fn http.HandlerFunc) http.Handler {
		return middleware.RequireCapability(d.Services.Authz, c, d.Log)(fn)
	}

	api.HandleFunc("/users/me", h.Me).Methods(http.MethodGet)

	// Task feed and lifecycle
	api.HandleFunc("/tasks", h.AvailableTasks).Methods(http.MethodGet)
	api.Handle("/tasks", can(services.CapCreateTasks, h.CreateTask)).Methods(http.MethodPost)
	api.Handle("/tasks/{id:[0-9]+}/claim", can(services.CapClaimTasks, h.ClaimTask)).Methods(http.MethodPost)
	api.HandleFunc("/assignments", h.Assignments).Methods(http.MethodGet)
	api.Handle("/assignments/{id:[0-9]+}/submit", can(services.CapClaimTasks, h.Submit)).Methods(http.MethodPost)

	// Wallet
	api.HandleFunc("/wallet", h.Wallet).Methods(http.MethodGet)
	api.HandleFunc("/wallet/transactions", h.Transactions).Methods(http.MethodGet)
	api.HandleFunc("/wallet/withdrawals", h.Withdrawals).Methods(http.MethodGet)
	api.HandleFunc("/wallet/withdrawals", h.Withdraw).Methods(http.MethodPost)

	// Plans
	api.HandleFunc("/plans", h.Plans).Methods(http.MethodGet)
	api.HandleFunc("/plans/{id:[0-9]+}/upgrade", h.UpgradePlan).Methods(http.MethodPost)

	api.HandleFunc("/notifications", h.Notifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id:[0-9]+}/read", h.MarkNotificationRead).Methods(http.MethodPut)
}
