package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	"github.com/tiffinbox/tiffinbox-backend/pkg/types"
)

// OrderPayload is the API-facing projection of an order.
type OrderPayload struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      int64               `json:"order_number"`
	CustomerID       *uuid.UUID          `json:"customer_id,omitempty"`
	DeliveryAddress  *types.Address      `json:"delivery_address,omitempty"`
	Items            []OrderItemPayload  `json:"items"`
	FinalPricePaise  int                 `json:"final_price_paise"`
	FinalPriceRupees decimal.Decimal     `json:"final_price_rupees"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentCollected bool                `json:"payment_collected"`
	CashDeposited    bool                `json:"cash_deposited"`
	DeliveredBy      *uuid.UUID          `json:"delivered_by,omitempty"`
	DeliveredAt      *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// OrderItemPayload is a single priced line on an order payload.
type OrderItemPayload struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Quantity        int             `json:"quantity"`
	UnitPricePaise  int             `json:"unit_price_paise"`
	UnitPriceRupees decimal.Decimal `json:"unit_price_rupees"`
}

// NewOrderPayload projects an order row into its API shape.
func NewOrderPayload(order *models.Order) *OrderPayload {
	if order == nil {
		return nil
	}
	items := make([]OrderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemPayload{
			ID:              item.ID,
			Name:            item.Name,
			Quantity:        item.Quantity,
			UnitPricePaise:  item.UnitPricePaise,
			UnitPriceRupees: paiseToRupees(item.UnitPricePaise),
		})
	}
	return &OrderPayload{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		CustomerID:       order.CustomerID,
		DeliveryAddress:  order.DeliveryAddress,
		Items:            items,
		FinalPricePaise:  order.FinalPricePaise,
		FinalPriceRupees: paiseToRupees(order.FinalPricePaise),
		PaymentMethod:    order.PaymentMethod,
		Status:           order.Status,
		PaymentCollected: order.PaymentCollected,
		CashDeposited:    order.CashDeposited,
		DeliveredBy:      order.DeliveredBy,
		DeliveredAt:      order.DeliveredAt,
		CreatedAt:        order.CreatedAt,
	}
}

func paiseToRupees(paise int) decimal.Decimal {
	return decimal.NewFromInt(int64(paise)).Div(decimal.NewFromInt(100))
}
