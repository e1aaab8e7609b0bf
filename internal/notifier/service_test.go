package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/tiffinbox/tiffinbox-backend/pkg/errors"
	"github.com/tiffinbox/tiffinbox-backend/pkg/outbox"
	"github.com/tiffinbox/tiffinbox-backend/pkg/pagination"
)

type stubNotificationsRepo struct {
	created      []*models.Notification
	usersByRole  map[enums.UserRole][]uuid.UUID
	rolesQueried []enums.UserRole
	markResult   notificationMarkResult
	markAllRows  int64
	pushSent     bool
}

func (s *stubNotificationsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubNotificationsRepo) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = uuid.New()
	notification.CreatedAt = time.Now().UTC()
	s.created = append(s.created, notification)
	return nil
}

func (s *stubNotificationsRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubNotificationsRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	return s.markResult, nil
}

func (s *stubNotificationsRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	return s.markAllRows, nil
}

func (s *stubNotificationsRepo) MarkPushSent(ctx context.Context, notificationID uuid.UUID, now time.Time) (bool, error) {
	return s.pushSent, nil
}

func (s *stubNotificationsRepo) FindUserIDsByRoles(ctx context.Context, roles []enums.UserRole) ([]uuid.UUID, error) {
	s.rolesQueried = append(s.rolesQueried, roles...)
	var ids []uuid.UUID
	for _, role := range roles {
		ids = append(ids, s.usersByRole[role]...)
	}
	return ids, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func buildService(t *testing.T, repo Repository, publisher outboxPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, publisher)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNotifyUserPersistsRowAndQueuesPush(t *testing.T) {
	repo := &stubNotificationsRepo{}
	publisher := &stubOutbox{}
	svc := buildService(t, repo, publisher)

	userID := uuid.New()
	err := svc.NotifyUser(context.Background(), NotifyInput{
		UserID:  userID,
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   "Order delivered",
		Message: "Your order #1007 has been delivered.",
	})
	if err != nil {
		t.Fatalf("NotifyUser: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one notification row, got %d", len(repo.created))
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one queued push event, got %d", len(publisher.events))
	}

	event := publisher.events[0]
	if event.EventType != enums.EventNotificationPush {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	push, ok := event.Data.(PushEvent)
	if !ok {
		t.Fatalf("expected PushEvent payload, got %T", event.Data)
	}
	if push.UserID != userID || push.NotificationID != repo.created[0].ID {
		t.Fatalf("push event must reference the stored row: %+v", push)
	}
}

func TestNotifyUserValidatesInput(t *testing.T) {
	svc := buildService(t, &stubNotificationsRepo{}, &stubOutbox{})

	tests := []struct {
		name  string
		input NotifyInput
	}{
		{"missing recipient", NotifyInput{Type: enums.NotificationTypePromo, Title: "t", Message: "m"}},
		{"missing title", NotifyInput{UserID: uuid.New(), Type: enums.NotificationTypePromo, Message: "m"}},
		{"bad type", NotifyInput{UserID: uuid.New(), Type: "mystery", Title: "t", Message: "m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.NotifyUser(context.Background(), tt.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNotifyAdminsFansOutToEveryAdmin(t *testing.T) {
	admins := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	repo := &stubNotificationsRepo{usersByRole: map[enums.UserRole][]uuid.UUID{
		enums.UserRoleAdmin: admins,
	}}
	publisher := &stubOutbox{}
	svc := buildService(t, repo, publisher)

	err := svc.NotifyAdmins(context.Background(), BroadcastInput{
		Type:    enums.NotificationTypeDepositUpdate,
		Title:   "Deposit request submitted",
		Message: "Ravi Kumar requested to deposit ₹650.",
	})
	if err != nil {
		t.Fatalf("NotifyAdmins: %v", err)
	}
	if len(repo.created) != len(admins) {
		t.Fatalf("expected %d rows, got %d", len(admins), len(repo.created))
	}
	if len(publisher.events) != len(admins) {
		t.Fatalf("expected %d push events, got %d", len(admins), len(publisher.events))
	}
}

func TestNotifyAllUsersReachesEveryRole(t *testing.T) {
	customers := []uuid.UUID{uuid.New(), uuid.New()}
	partner := uuid.New()
	admin := uuid.New()
	repo := &stubNotificationsRepo{usersByRole: map[enums.UserRole][]uuid.UUID{
		enums.UserRoleCustomer: customers,
		enums.UserRoleDelivery: {partner},
		enums.UserRoleAdmin:    {admin},
	}}
	publisher := &stubOutbox{}
	svc := buildService(t, repo, publisher)

	err := svc.NotifyAllUsers(context.Background(), BroadcastInput{
		Type:    enums.NotificationTypePromo,
		Title:   "Weekend thali offer",
		Message: "Flat ₹50 off on every thali this weekend.",
	})
	if err != nil {
		t.Fatalf("NotifyAllUsers: %v", err)
	}

	if len(repo.created) != 4 {
		t.Fatalf("broadcast must reach all 4 users, wrote %d rows", len(repo.created))
	}
	recipients := make(map[uuid.UUID]bool, len(repo.created))
	for _, row := range repo.created {
		recipients[row.UserID] = true
	}
	if !recipients[partner] || !recipients[admin] {
		t.Fatalf("broadcast skipped non-customer recipients: %+v", repo.created)
	}
	queried := make(map[enums.UserRole]bool, len(repo.rolesQueried))
	for _, role := range repo.rolesQueried {
		queried[role] = true
	}
	for _, role := range []enums.UserRole{enums.UserRoleCustomer, enums.UserRoleDelivery, enums.UserRoleAdmin} {
		if !queried[role] {
			t.Fatalf("broadcast never queried role %s (queried: %v)", role, repo.rolesQueried)
		}
	}
}

func TestNotifyAdminsNoRecipientsIsNoOp(t *testing.T) {
	repo := &stubNotificationsRepo{}
	publisher := &stubOutbox{}
	svc := buildService(t, repo, publisher)

	err := svc.NotifyAdmins(context.Background(), BroadcastInput{
		Type:    enums.NotificationTypeDepositUpdate,
		Title:   "t",
		Message: "m",
	})
	if err != nil {
		t.Fatalf("NotifyAdmins: %v", err)
	}
	if len(repo.created) != 0 || len(publisher.events) != 0 {
		t.Fatal("broadcast with no recipients must write nothing")
	}
}

func TestMarkReadUnknownNotificationNotFound(t *testing.T) {
	repo := &stubNotificationsRepo{markResult: notificationMarkResult{Found: false}}
	svc := buildService(t, repo, &stubOutbox{})

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestMarkReadAlreadyReadIsIdempotent(t *testing.T) {
	repo := &stubNotificationsRepo{markResult: notificationMarkResult{Found: true, Updated: false}}
	svc := buildService(t, repo, &stubOutbox{})

	if err := svc.MarkRead(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("marking an already-read notification must succeed, got %v", err)
	}
}
