package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/internal/notifier"
	"github.com/tiffinbox/tiffinbox-backend/pkg/db"
	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/tiffinbox/tiffinbox-backend/pkg/errors"
	"github.com/tiffinbox/tiffinbox-backend/pkg/metrics"
	"github.com/tiffinbox/tiffinbox-backend/pkg/outbox"
	"github.com/tiffinbox/tiffinbox-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service reconciles the cash delivery partners collect on COD orders.
type Service interface {
	CashInHand(ctx context.Context, partnerID uuid.UUID) (*CashInHandPayload, error)
	CreateDepositRequest(ctx context.Context, partnerID uuid.UUID) (*DepositRequestPayload, error)
	ResolveDepositRequest(ctx context.Context, input ResolveDepositInput) (*DepositRequestPayload, error)
	ListDepositRequests(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*DepositRequestListResult, error)
	ListPendingDepositRequests(ctx context.Context, params pagination.Params) (*DepositRequestListResult, error)
}

// ResolveDepositInput carries the admin decision on a pending request.
type ResolveDepositInput struct {
	RequestID uuid.UUID
	AdminID   uuid.UUID
	Approve   bool
}

type service struct {
	repo       Repository
	tx         txRunner
	dispatcher *notifier.Dispatcher
	metrics    *metrics.SettlementMetrics
}

// NewService builds the settlement service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	dispatcher *notifier.Dispatcher,
	settlementMetrics *metrics.SettlementMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		dispatcher: dispatcher,
		metrics:    settlementMetrics,
	}, nil
}

// CashInHand sums the undeposited COD orders the partner has delivered.
func (s *service) CashInHand(ctx context.Context, partnerID uuid.UUID) (*CashInHandPayload, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "partner identity missing")
	}

	orders, err := s.repo.ListUndepositedOrders(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list undeposited orders")
	}
	return buildCashInHand(orders), nil
}

// CreateDepositRequest snapshots the partner's current cash-in-hand into a
// pending request. The order set and amount are frozen here; deliveries
// confirmed afterwards belong to the next request.
func (s *service) CreateDepositRequest(ctx context.Context, partnerID uuid.UUID) (*DepositRequestPayload, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "partner identity missing")
	}

	var created *models.DepositRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		partner, err := repo.FindPartner(ctx, partnerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "delivery partner not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery partner")
		}

		orders, err := repo.ListUndepositedOrdersForUpdate(ctx, partnerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot undeposited orders")
		}
		if len(orders) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no cash to deposit")
		}

		request := &models.DepositRequest{
			DeliveryPartnerID: partnerID,
			PartnerName:       partner.Name,
			Status:            enums.DepositStatusPending,
		}
		for _, order := range orders {
			request.AmountPaise += int64(order.FinalPricePaise)
			request.OrderIDs = append(request.OrderIDs, order.ID)
		}

		if err := repo.InsertDepositRequest(ctx, request); err != nil {
			if db.IsUniqueViolation(err, "ux_deposit_requests_pending") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a pending deposit request already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deposit request")
		}

		created = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncDepositCreated()
	s.dispatcher.TryNotifyAdmins(ctx, notifier.BroadcastInput{
		Type:  enums.NotificationTypeDepositUpdate,
		Title: "Deposit request submitted",
		Message: fmt.Sprintf("%s requested to deposit ₹%s across %d orders.",
			created.PartnerName, paiseToRupees(created.AmountPaise), len(created.OrderIDs)),
		Actor: &outbox.ActorRef{UserID: partnerID, Role: enums.UserRoleDelivery.String()},
	})

	return NewDepositRequestPayload(created), nil
}

// ResolveDepositRequest applies the admin decision. Approval marks the
// snapshot's orders deposited; rejection leaves the cash outstanding so the
// partner can submit again.
func (s *service) ResolveDepositRequest(ctx context.Context, input ResolveDepositInput) (*DepositRequestPayload, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit request id required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}

	decision := enums.DepositStatusRejected
	if input.Approve {
		decision = enums.DepositStatusApproved
	}

	var resolved *models.DepositRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.FindDepositRequestForUpdate(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "deposit request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deposit request")
		}
		if request.Status != enums.DepositStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deposit request already resolved")
		}

		now := time.Now().UTC()
		rows, err := repo.ResolveDepositRequest(ctx, request.ID, decision, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve deposit request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deposit request already resolved")
		}

		if decision == enums.DepositStatusApproved {
			if _, err := repo.MarkOrdersDeposited(ctx, request.OrderIDs, request.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark orders deposited")
			}
		}

		request.Status = decision
		request.ResolvedAt = &now
		resolved = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncDepositResolved(decision.String())

	title := "Deposit rejected"
	message := fmt.Sprintf("Your deposit of ₹%s was rejected. Please contact the store.", paiseToRupees(resolved.AmountPaise))
	if decision == enums.DepositStatusApproved {
		title = "Deposit approved"
		message = fmt.Sprintf("Your deposit of ₹%s was approved. Your cash-in-hand is settled.", paiseToRupees(resolved.AmountPaise))
	}
	s.dispatcher.TryNotifyUser(ctx, notifier.NotifyInput{
		UserID:  resolved.DeliveryPartnerID,
		Type:    enums.NotificationTypeDepositUpdate,
		Title:   title,
		Message: message,
		Actor:   &outbox.ActorRef{UserID: input.AdminID, Role: enums.UserRoleAdmin.String()},
	})

	return NewDepositRequestPayload(resolved), nil
}

func (s *service) ListDepositRequests(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*DepositRequestListResult, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "partner identity missing")
	}
	return s.listRequests(ctx, params, func(limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error) {
		return s.repo.ListByPartner(ctx, partnerID, limit, cursor)
	})
}

func (s *service) ListPendingDepositRequests(ctx context.Context, params pagination.Params) (*DepositRequestListResult, error) {
	return s.listRequests(ctx, params, func(limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error) {
		return s.repo.ListByStatus(ctx, enums.DepositStatusPending, limit, cursor)
	})
}

func (s *service) listRequests(
	ctx context.Context,
	params pagination.Params,
	fetch func(limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error),
) (*DepositRequestListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := fetch(pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deposit requests")
	}

	result := &DepositRequestListResult{Items: make([]DepositRequestPayload, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		result.Items = append(result.Items, *NewDepositRequestPayload(&rows[i]))
	}
	if hasMore {
		last := rows[len(rows)-1]
		result.Cursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

func buildCashInHand(orders []models.Order) *CashInHandPayload {
	payload := &CashInHandPayload{
		Orders:     make([]CashOrderPayload, 0, len(orders)),
		OrderCount: len(orders),
	}
	for _, order := range orders {
		payload.AmountPaise += int64(order.FinalPricePaise)
		payload.Orders = append(payload.Orders, CashOrderPayload{
			ID:           order.ID,
			OrderNumber:  order.OrderNumber,
			AmountPaise:  order.FinalPricePaise,
			AmountRupees: paiseToRupees(int64(order.FinalPricePaise)),
			DeliveredAt:  order.DeliveredAt,
		})
	}
	payload.AmountRupees = paiseToRupees(payload.AmountPaise)
	return payload
}
