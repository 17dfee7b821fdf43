// Package admins serves the staff surface: task moderation, review and
// wallet administration.
package admins

import (
	"context"

	"go.uber.org/zap"

	"github.com/deukmosi-create/task-earning-platform/services"
)

// FileSigner hands out temporary read links for stored uploads.
type FileSigner interface {
	SignedURL(ctx context.Context, key string) (string, error)
}

type Handler struct {
	svc   *services.Services
	files FileSigner
	log   *zap.Logger
}

// NewHandler wires the staff endpoints. files may be nil when object storage
// is disabled; submissions then list their raw file references only.
func NewHandler(svc *services.Services, files FileSigner, log *zap.Logger) *Handler {
	return &Handler{svc: svc, files: files, log: log}
}
