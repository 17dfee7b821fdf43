package utils

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/services"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrNotFound, http.StatusNotFound},
	{gorm.ErrRecordNotFound, http.StatusNotFound},
	{services.ErrPermissionDenied, http.StatusForbidden},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrTaskUnavailable, http.StatusConflict},
	{services.ErrAlreadyAssigned, http.StatusConflict},
	{services.ErrInvalidState, http.StatusConflict},
	{services.ErrConcurrencyLimitExceeded, http.StatusUnprocessableEntity},
	{services.ErrPlanInsufficient, http.StatusForbidden},
	{services.ErrInsufficientBalance, http.StatusUnprocessableEntity},
	{services.ErrInvalidAmount, http.StatusBadRequest},
	{services.ErrInvalidInput, http.StatusBadRequest},
}

// StatusFor maps a service error onto an HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// WriteError writes err as a failed APIResponse. Internal errors never leak
// their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	WriteJSON(w, status, APIResponse{Success: false, Message: msg})
}
