package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByActiveOTP resolves an order by its delivery code, but only while the
// order still awaits delivery. A consumed or cancelled order is invisible
// here, which keeps wrong-code and wrong-state responses identical.
func (r *repository) FindByActiveOTP(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("delivery_otp = ? AND status = ?", code, enums.OrderStatusReceived).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkDelivered flips a received order to delivered. The status predicate is
// the guard: a retry after success affects zero rows.
func (r *repository) MarkDelivered(ctx context.Context, orderID, partnerID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusReceived).
		Updates(map[string]any{
			"status":            enums.OrderStatusDelivered,
			"delivered_by":      partnerID,
			"delivered_at":      now,
			"payment_collected": true,
			"cash_deposited":    false,
			"delivery_otp":      nil,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkCancelled(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusReceived).
		Updates(map[string]any{
			"status":       enums.OrderStatusCancelled,
			"delivery_otp": nil,
		})
	return result.RowsAffected, result.Error
}
