package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
)

// CashInHandPayload summarizes the cash a delivery partner is carrying.
type CashInHandPayload struct {
	AmountPaise  int64              `json:"amount_paise"`
	AmountRupees decimal.Decimal    `json:"amount_rupees"`
	OrderCount   int                `json:"order_count"`
	Orders       []CashOrderPayload `json:"orders"`
}

// CashOrderPayload is one undeposited cash order in the partner's summary.
type CashOrderPayload struct {
	ID           uuid.UUID       `json:"id"`
	OrderNumber  int64           `json:"order_number"`
	AmountPaise  int             `json:"amount_paise"`
	AmountRupees decimal.Decimal `json:"amount_rupees"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
}

// DepositRequestPayload is the API-facing projection of a deposit request.
type DepositRequestPayload struct {
	ID                uuid.UUID           `json:"id"`
	DeliveryPartnerID uuid.UUID           `json:"delivery_partner_id"`
	PartnerName       string              `json:"partner_name"`
	AmountPaise       int64               `json:"amount_paise"`
	AmountRupees      decimal.Decimal     `json:"amount_rupees"`
	OrderIDs          []uuid.UUID         `json:"order_ids"`
	OrderCount        int                 `json:"order_count"`
	Status            enums.DepositStatus `json:"status"`
	CreatedAt         time.Time           `json:"created_at"`
	ResolvedAt        *time.Time          `json:"resolved_at,omitempty"`
}

// DepositRequestListResult wraps a page of deposit requests and the cursor
// for the next page.
type DepositRequestListResult struct {
	Items  []DepositRequestPayload `json:"items"`
	Cursor string                  `json:"cursor"`
}

// NewDepositRequestPayload projects a deposit request row into its API shape.
func NewDepositRequestPayload(request *models.DepositRequest) *DepositRequestPayload {
	if request == nil {
		return nil
	}
	return &DepositRequestPayload{
		ID:                request.ID,
		DeliveryPartnerID: request.DeliveryPartnerID,
		PartnerName:       request.PartnerName,
		AmountPaise:       request.AmountPaise,
		AmountRupees:      paiseToRupees(request.AmountPaise),
		OrderIDs:          request.OrderIDs,
		OrderCount:        len(request.OrderIDs),
		Status:            request.Status,
		CreatedAt:         request.CreatedAt,
		ResolvedAt:        request.ResolvedAt,
	}
}

func paiseToRupees(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100))
}
