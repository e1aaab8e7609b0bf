package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	"github.com/tiffinbox/tiffinbox-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND role = ?", partnerID, enums.UserRoleDelivery).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) ListUndepositedOrders(ctx context.Context, partnerID uuid.UUID) ([]models.Order, error) {
	return r.listUndeposited(ctx, partnerID, false)
}

// ListUndepositedOrdersForUpdate locks the rows so a concurrent confirmation
// cannot slip an order into the snapshot mid-flight.
func (r *repository) ListUndepositedOrdersForUpdate(ctx context.Context, partnerID uuid.UUID) ([]models.Order, error) {
	return r.listUndeposited(ctx, partnerID, true)
}

func (r *repository) listUndeposited(ctx context.Context, partnerID uuid.UUID, lock bool) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("delivered_by = ?", partnerID).
		Where("payment_method = ?", enums.PaymentMethodCOD).
		Where("status = ?", enums.OrderStatusDelivered).
		Where("cash_deposited = FALSE").
		Order("delivered_at ASC")
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) InsertDepositRequest(ctx context.Context, row *models.DepositRequest) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindDepositRequestForUpdate(ctx context.Context, requestID uuid.UUID) (*models.DepositRequest, error) {
	var request models.DepositRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", requestID).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ResolveDepositRequest flips a pending request to its decision. The status
// predicate makes double-resolution affect zero rows.
func (r *repository) ResolveDepositRequest(ctx context.Context, requestID uuid.UUID, decision enums.DepositStatus, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DepositRequest{}).
		Where("id = ? AND status = ?", requestID, enums.DepositStatusPending).
		Updates(map[string]any{
			"status":      decision,
			"resolved_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkOrdersDeposited(ctx context.Context, orderIDs []uuid.UUID, requestID uuid.UUID) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ? AND cash_deposited = FALSE", orderIDs).
		Updates(map[string]any{
			"cash_deposited":     true,
			"deposit_request_id": requestID,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) ListByPartner(ctx context.Context, partnerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error) {
	query := r.db.WithContext(ctx).
		Where("delivery_partner_id = ?", partnerID)
	return r.listRequests(ctx, query, limit, cursor)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.DepositStatus, limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", status)
	return r.listRequests(ctx, query, limit, cursor)
}

func (r *repository) listRequests(ctx context.Context, query *gorm.DB, limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error) {
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var requests []models.DepositRequest
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
