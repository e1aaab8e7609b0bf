package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	"github.com/tiffinbox/tiffinbox-backend/pkg/pagination"
)

// Repository defines persistence operations for cash-deposit reconciliation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.User, error)
	ListUndepositedOrders(ctx context.Context, partnerID uuid.UUID) ([]models.Order, error)
	ListUndepositedOrdersForUpdate(ctx context.Context, partnerID uuid.UUID) ([]models.Order, error)

	InsertDepositRequest(ctx context.Context, row *models.DepositRequest) error
	FindDepositRequestForUpdate(ctx context.Context, requestID uuid.UUID) (*models.DepositRequest, error)
	ResolveDepositRequest(ctx context.Context, requestID uuid.UUID, decision enums.DepositStatus, now time.Time) (int64, error)
	MarkOrdersDeposited(ctx context.Context, orderIDs []uuid.UUID, requestID uuid.UUID) (int64, error)

	ListByPartner(ctx context.Context, partnerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error)
	ListByStatus(ctx context.Context, status enums.DepositStatus, limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error)
}
