package notifier

import (
	"context"

	"github.com/tiffinbox/tiffinbox-backend/pkg/logger"
)

// Dispatcher wraps Service with best-effort semantics: core flows that send
// side-channel notifications must never fail because dispatch did.
type Dispatcher struct {
	svc  Service
	logg *logger.Logger
}

// NewDispatcher builds a fire-and-forget wrapper around the notification service.
func NewDispatcher(svc Service, logg *logger.Logger) *Dispatcher {
	return &Dispatcher{svc: svc, logg: logg}
}

// TryNotifyUser sends a notification, logging and swallowing any failure.
func (d *Dispatcher) TryNotifyUser(ctx context.Context, input NotifyInput) {
	if d == nil || d.svc == nil {
		return
	}
	if err := d.svc.NotifyUser(ctx, input); err != nil && d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"recipient_id":      input.UserID.String(),
			"notification_type": input.Type,
		})
		d.logg.Error(logCtx, "notification dispatch failed", err)
	}
}

// TryNotifyAdmins broadcasts to admins, logging and swallowing any failure.
func (d *Dispatcher) TryNotifyAdmins(ctx context.Context, input BroadcastInput) {
	if d == nil || d.svc == nil {
		return
	}
	if err := d.svc.NotifyAdmins(ctx, input); err != nil && d.logg != nil {
		logCtx := d.logg.WithField(ctx, "notification_type", input.Type)
		d.logg.Error(logCtx, "admin notification dispatch failed", err)
	}
}
