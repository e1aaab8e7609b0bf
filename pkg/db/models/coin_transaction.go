package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
)

// CoinTransaction is an append-only wallet ledger entry. Amount is signed
// coins: positive for credits, negative for redemptions. The
// ux_coin_tx_order_reward partial unique index on (user_id, order_id)
// guarantees at most one order_reward row per order.
type CoinTransaction struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID                 `gorm:"column:user_id;type:uuid;not null"`
	Type        enums.CoinTransactionType `gorm:"column:type;type:coin_transaction_type;not null"`
	Amount      int                       `gorm:"column:amount;not null"`
	OrderID     *uuid.UUID                `gorm:"column:order_id;type:uuid"`
	Description string                    `gorm:"column:description;type:text;not null"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
