package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	"github.com/tiffinbox/tiffinbox-backend/pkg/types"
)

// Order is the storefront order with its delivery and settlement state.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      int64               `gorm:"column:order_number;not null"`
	CustomerID       *uuid.UUID          `gorm:"column:customer_id;type:uuid"`
	DeliveryAddress  *types.Address      `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	FinalPricePaise  int                 `gorm:"column:final_price_paise;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'cod'"`
	Status           enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'received'"`
	DeliveryOTP      *string             `gorm:"column:delivery_otp"`
	DeliveredBy      *uuid.UUID          `gorm:"column:delivered_by;type:uuid"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at"`
	PaymentCollected bool                `gorm:"column:payment_collected;not null;default:false"`
	CashDeposited    bool                `gorm:"column:cash_deposited;not null;default:false"`
	DepositRequestID *uuid.UUID          `gorm:"column:deposit_request_id;type:uuid"`
	Items            []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
