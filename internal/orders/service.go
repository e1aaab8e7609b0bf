package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/internal/notifier"
	"github.com/tiffinbox/tiffinbox-backend/internal/rewards"
	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/tiffinbox/tiffinbox-backend/pkg/errors"
	"github.com/tiffinbox/tiffinbox-backend/pkg/metrics"
	"github.com/tiffinbox/tiffinbox-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the order state machine: received → delivered | cancelled.
type Service interface {
	VerifyDeliveryOTP(ctx context.Context, code string) (*OrderPayload, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*ConfirmDeliveryResult, error)
	ResendDeliveryOTP(ctx context.Context, input ResendOTPInput) error
	CancelOrder(ctx context.Context, input CancelOrderInput) error
}

// ConfirmDeliveryInput identifies the order and the partner completing it.
type ConfirmDeliveryInput struct {
	OrderID   uuid.UUID
	PartnerID uuid.UUID
}

// ConfirmDeliveryResult reports the post-confirmation order state.
type ConfirmDeliveryResult struct {
	Order            *OrderPayload
	CoinsCredited    int
	AlreadyDelivered bool
}

// ResendOTPInput carries the resend request context.
type ResendOTPInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// CancelOrderInput carries the admin cancellation context.
type CancelOrderInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	Reason      string
}

type service struct {
	repo       Repository
	tx         txRunner
	rewards    rewards.Service
	notify     notifier.Service
	dispatcher *notifier.Dispatcher
	metrics    *metrics.SettlementMetrics
}

// NewService builds the order lifecycle service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	rewardsSvc rewards.Service,
	notifySvc notifier.Service,
	dispatcher *notifier.Dispatcher,
	settlementMetrics *metrics.SettlementMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if rewardsSvc == nil {
		return nil, fmt.Errorf("rewards service required")
	}
	if notifySvc == nil {
		return nil, fmt.Errorf("notification service required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		rewards:    rewardsSvc,
		notify:     notifySvc,
		dispatcher: dispatcher,
		metrics:    settlementMetrics,
	}, nil
}

// VerifyDeliveryOTP resolves the order behind a delivery code. Unknown codes
// and codes whose order already left the received state answer identically.
func (s *service) VerifyDeliveryOTP(ctx context.Context, code string) (*OrderPayload, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery code required")
	}

	order, err := s.repo.FindByActiveOTP(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up delivery code")
	}
	return NewOrderPayload(order), nil
}

func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*ConfirmDeliveryResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.PartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "partner identity missing")
	}

	start := time.Now()
	var result ConfirmDeliveryResult

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status == enums.OrderStatusDelivered {
			// Retry after a successful confirmation: the wallet credit is
			// protected by its own unique index, so just report the state.
			if order.DeliveredBy != nil && *order.DeliveredBy == input.PartnerID {
				result.Order = NewOrderPayload(order)
				result.AlreadyDelivered = true
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already delivered by another partner")
		}
		if order.Status != enums.OrderStatusReceived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting delivery")
		}

		now := time.Now().UTC()
		rows, err := repo.MarkDelivered(ctx, order.ID, input.PartnerID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting delivery")
		}

		order.Status = enums.OrderStatusDelivered
		order.DeliveredBy = &input.PartnerID
		order.DeliveredAt = &now
		order.PaymentCollected = true
		order.CashDeposited = false
		order.DeliveryOTP = nil

		accrual, err := s.rewards.AccrueTx(ctx, tx, order)
		if err != nil {
			return err
		}

		result.Order = NewOrderPayload(order)
		result.CoinsCredited = accrual.Coins
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyDelivered {
		s.metrics.IncDeliveryConfirmed(result.Order.PaymentMethod.String())
		s.metrics.AddCoinsCredited(result.CoinsCredited)
		s.metrics.ObserveConfirmDuration(time.Since(start))

		if result.Order.CustomerID != nil {
			s.dispatcher.TryNotifyUser(ctx, notifier.NotifyInput{
				UserID:  *result.Order.CustomerID,
				Type:    enums.NotificationTypeOrderUpdate,
				Title:   "Order delivered",
				Message: fmt.Sprintf("Your order #%d has been delivered. Enjoy your meal!", result.Order.OrderNumber),
				Actor:   &outbox.ActorRef{UserID: input.PartnerID, Role: enums.UserRoleDelivery.String()},
			})
		}
	}

	return &result, nil
}

// ResendDeliveryOTP re-sends the existing delivery code to the order's
// customer. It never regenerates the code.
func (s *service) ResendDeliveryOTP(ctx context.Context, input ResendOTPInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.Status != enums.OrderStatusReceived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not active")
	}
	if order.CustomerID == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no linked customer")
	}
	if order.DeliveryOTP == nil || *order.DeliveryOTP == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no delivery code")
	}

	return s.notify.NotifyUser(ctx, notifier.NotifyInput{
		UserID:  *order.CustomerID,
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   "Your delivery code",
		Message: fmt.Sprintf("Share code %s with the delivery partner for order #%d.", *order.DeliveryOTP, order.OrderNumber),
		Actor:   buildActor(input.ActorUserID, input.ActorRole),
	})
}

func (s *service) CancelOrder(ctx context.Context, input CancelOrderInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusReceived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only received orders can be cancelled")
		}

		rows, err := repo.MarkCancelled(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only received orders can be cancelled")
		}

		order.Status = enums.OrderStatusCancelled
		order.DeliveryOTP = nil
		cancelled = order
		return nil
	})
	if err != nil {
		return err
	}

	if cancelled.CustomerID != nil {
		message := fmt.Sprintf("Your order #%d was cancelled.", cancelled.OrderNumber)
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			message = fmt.Sprintf("Your order #%d was cancelled: %s", cancelled.OrderNumber, reason)
		}
		s.dispatcher.TryNotifyUser(ctx, notifier.NotifyInput{
			UserID:  *cancelled.CustomerID,
			Type:    enums.NotificationTypeOrderUpdate,
			Title:   "Order cancelled",
			Message: message,
			Actor:   &outbox.ActorRef{UserID: input.ActorUserID, Role: enums.UserRoleAdmin.String()},
		})
	}
	return nil
}

func buildActor(userID uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role.String()}
}
