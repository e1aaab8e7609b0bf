package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
)

// User is the canonical identity row. Wallet state is embedded: the balance
// and tier move only inside the same transaction as their ledger entry.
type User struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string           `gorm:"column:name;type:text;not null"`
	Phone           string           `gorm:"column:phone;type:text;not null;uniqueIndex"`
	Role            enums.UserRole   `gorm:"column:role;type:user_role;not null;default:'customer'"`
	WalletBalance   int              `gorm:"column:wallet_balance;not null;default:0"`
	WalletTier      enums.WalletTier `gorm:"column:wallet_tier;type:wallet_tier;not null;default:'bronze'"`
	TotalSpentPaise int64            `gorm:"column:total_spent_paise;not null;default:0"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
