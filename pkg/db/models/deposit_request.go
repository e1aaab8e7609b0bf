package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/tiffinbox/tiffinbox-backend/pkg/db/types"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
)

// DepositRequest snapshots the cash a delivery partner owes at the moment
// they request a deposit. The order set is frozen at creation; the
// ux_deposit_requests_pending partial unique index keeps at most one pending
// request per partner.
type DepositRequest struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DeliveryPartnerID uuid.UUID           `gorm:"column:delivery_partner_id;type:uuid;not null"`
	PartnerName       string              `gorm:"column:partner_name;type:text;not null"`
	AmountPaise       int64               `gorm:"column:amount_paise;not null"`
	OrderIDs          dbtypes.UUIDArray   `gorm:"column:order_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	Status            enums.DepositStatus `gorm:"column:status;type:deposit_status;not null;default:'pending'"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	ResolvedAt        *time.Time          `gorm:"column:resolved_at"`
}
