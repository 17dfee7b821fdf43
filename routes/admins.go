package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/deukmosi-create/task-earning-platform/controllers/admins"
	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/services"
)

func adminRoutes(admin *mux.Router, d Deps) {
	h := admins.NewHandler(d.Services, d.Files, d.Log)
	group := func(c services.Capability) *mux.Router {
		sub := admin.NewRoute().Subrouter()
		sub.Use(middleware.RequireCapability(d.Services.Authz, c, d.Log))
		return sub
	}

	tasks := group(services.CapManageTasks)
	tasks.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	tasks.HandleFunc("/tasks", h.CreateTask).Methods(http.MethodPost)
	tasks.HandleFunc("/tasks/simulated", h.CreateSimulatedTask).Methods(http.MethodPost)
	tasks.HandleFunc("/tasks/{id:[0-9]+}", h.GetTask).Methods(http.MethodGet)
	tasks.HandleFunc("/tasks/{id:[0-9]+}/status", h.SetTaskStatus).Methods(http.MethodPut)
	tasks.HandleFunc("/tasks/{id:[0-9]+}/offer", h.OfferTask).Methods(http.MethodPost)
	tasks.HandleFunc("/tasks/{id:[0-9]+}/activity", h.TaskActivity).Methods(http.MethodGet)
	tasks.HandleFunc("/assignments/{id:[0-9]+}/withdraw", h.WithdrawOffer).Methods(http.MethodPost)

	review := group(services.CapReviewSubmissions)
	review.HandleFunc("/submissions", h.PendingSubmissions).Methods(http.MethodGet)
	review.HandleFunc("/submissions/{id:[0-9]+}/review", h.Review).Methods(http.MethodPost)

	people := group(services.CapManageUsers)
	people.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	people.HandleFunc("/users/{id:[0-9]+}", h.GetUser).Methods(http.MethodGet)
	people.HandleFunc("/users/{id:[0-9]+}/status", h.SetUserStatus).Methods(http.MethodPut)

	wallets := group(services.CapManageWallets)
	wallets.HandleFunc("/users/{id:[0-9]+}/deposit", h.Deposit).Methods(http.MethodPost)
	wallets.HandleFunc("/wallets/reconcile", h.ReconcileAll).Methods(http.MethodPost)
	wallets.HandleFunc("/wallets/{id:[0-9]+}/reconcile", h.ReconcileWallet).Methods(http.MethodGet)
}
