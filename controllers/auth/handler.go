// Package auth serves registration, login and logout.
package auth

import (
	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

type Handler struct {
	users  *services.Users
	tokens *utils.Tokens
	guard  *middleware.LoginGuard
	log    *zap.Logger
}

func NewHandler(users *services.Users, tokens *utils.Tokens, guard *middleware.LoginGuard, log *zap.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, guard: guard, log: log}
}
