// Package audit records who changed what, as structured log lines.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/deliveryhub/internal/observability/requestid"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit"))}
}

// Entry is one audited action
type Entry struct {
	OrganizationID string
	UserID         string
	Action         string
	Resource       string
	ResourceID     string
	Status         string
	Details        string
}

func (al *Logger) Log(ctx context.Context, e Entry) {
	al.logger.Info("audit",
		slog.String("action", e.Action),
		slog.String("resource", e.Resource),
		slog.String("resource_id", e.ResourceID),
		slog.String("organization_id", e.OrganizationID),
		slog.String("user_id", e.UserID),
		slog.String("status", e.Status),
		slog.String("details", e.Details),
		slog.String("request_id", requestid.FromContext(ctx)),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

func (al *Logger) LogDenied(ctx context.Context, organizationID, userID, reason string) {
	al.Log(ctx, Entry{
		OrganizationID: organizationID,
		UserID:         userID,
		Action:         "access_denied",
		Resource:       "api",
		Status:         "denied",
		Details:        reason,
	})
}
