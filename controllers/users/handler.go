// Package users serves the freelancer and client side of the API.
package users

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/notify"
	"github.com/deukmosi-create/task-earning-platform/services"
)

// FileStore holds submission uploads. Reviewers read them through short-lived
// signed URLs.
type FileStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string) (string, error)
}

type Handler struct {
	svc           *services.Services
	notifications *notify.Store
	files         FileStore
	log           *zap.Logger
}

// NewHandler wires the user endpoints. files may be nil, in which case
// submissions only accept file references in JSON.
func NewHandler(svc *services.Services, notifications *notify.Store, files FileStore, log *zap.Logger) *Handler {
	return &Handler{svc: svc, notifications: notifications, files: files, log: log}
}
