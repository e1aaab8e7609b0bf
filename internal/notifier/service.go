package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/tiffinbox/tiffinbox-backend/pkg/errors"
	"github.com/tiffinbox/tiffinbox-backend/pkg/outbox"
	"github.com/tiffinbox/tiffinbox-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service persists in-app notifications and queues their push delivery.
type Service interface {
	NotifyUser(ctx context.Context, input NotifyInput) error
	NotifyUserTx(ctx context.Context, tx *gorm.DB, input NotifyInput) error
	NotifyAdmins(ctx context.Context, input BroadcastInput) error
	NotifyAllUsers(ctx context.Context, input BroadcastInput) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkPushSent(ctx context.Context, notificationID uuid.UUID) (bool, error)
}

// NotifyInput describes a single-recipient notification.
type NotifyInput struct {
	UserID   uuid.UUID
	Type     enums.NotificationType
	Title    string
	Message  string
	ImageURL *string
	DeepLink *string
	Actor    *outbox.ActorRef
}

// BroadcastInput describes a notification fanned out to a user cohort.
type BroadcastInput struct {
	Type     enums.NotificationType
	Title    string
	Message  string
	ImageURL *string
	DeepLink *string
	Actor    *outbox.ActorRef
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// PushEvent is the outbox payload consumed by the push worker.
type PushEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	ImageURL       *string                `json:"image_url,omitempty"`
	DeepLink       *string                `json:"deep_link,omitempty"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires notification dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if outboxSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) NotifyUser(ctx context.Context, input NotifyInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.NotifyUserTx(ctx, tx, input)
	})
}

// NotifyUserTx writes the notification row and its push event inside the
// caller's transaction, so dispatch shares the caller's commit fate.
func (s *service) NotifyUserTx(ctx context.Context, tx *gorm.DB, input NotifyInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient user id required")
	}
	if input.Title == "" || input.Message == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title and message required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}

	notification := models.Notification{
		UserID:   input.UserID,
		Type:     input.Type,
		Title:    input.Title,
		Message:  input.Message,
		ImageURL: input.ImageURL,
		DeepLink: input.DeepLink,
	}
	if err := s.repo.WithTx(tx).Create(ctx, &notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventNotificationPush,
		AggregateType: enums.AggregateNotification,
		AggregateID:   notification.ID,
		Version:       1,
		Actor:         input.Actor,
		Data: PushEvent{
			NotificationID: notification.ID,
			UserID:         notification.UserID,
			Type:           notification.Type,
			Title:          notification.Title,
			Message:        notification.Message,
			ImageURL:       notification.ImageURL,
			DeepLink:       notification.DeepLink,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

func (s *service) NotifyAdmins(ctx context.Context, input BroadcastInput) error {
	return s.broadcast(ctx, []enums.UserRole{enums.UserRoleAdmin}, input)
}

// NotifyAllUsers fans out across every role, so a broadcast reaches
// delivery partners and admins alongside customers.
func (s *service) NotifyAllUsers(ctx context.Context, input BroadcastInput) error {
	return s.broadcast(ctx, []enums.UserRole{
		enums.UserRoleCustomer,
		enums.UserRoleDelivery,
		enums.UserRoleAdmin,
	}, input)
}

func (s *service) broadcast(ctx context.Context, roles []enums.UserRole, input BroadcastInput) error {
	ids, err := s.repo.FindUserIDsByRoles(ctx, roles)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find broadcast recipients")
	}
	if len(ids) == 0 {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, id := range ids {
			err := s.NotifyUserTx(ctx, tx, NotifyInput{
				UserID:   id,
				Type:     input.Type,
				Title:    input.Title,
				Message:  input.Message,
				ImageURL: input.ImageURL,
				DeepLink: input.DeepLink,
				Actor:    input.Actor,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listNotificationsParams{
		UserID:     params.UserID,
		Limit:      pagination.LimitWithBuffer(params.Limit),
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) MarkPushSent(ctx context.Context, notificationID uuid.UUID) (bool, error) {
	if notificationID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	sent, err := s.repo.MarkPushSent(ctx, notificationID, time.Now().UTC())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark push sent")
	}
	return sent, nil
}
