package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
)

// Repository defines persistence operations for the order lifecycle.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByActiveOTP(ctx context.Context, code string) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID, partnerID uuid.UUID, now time.Time) (int64, error)
	MarkCancelled(ctx context.Context, orderID uuid.UUID) (int64, error)
}
