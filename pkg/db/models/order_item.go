package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a priced line on an order, frozen at checkout.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;type:text;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPricePaise int       `gorm:"column:unit_price_paise;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
