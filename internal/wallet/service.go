package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/tiffinbox/tiffinbox-backend/pkg/errors"
	"github.com/tiffinbox/tiffinbox-backend/pkg/pagination"
)

// Service exposes read-side wallet state to customers.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (*BalancePayload, error)
	Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionListResult, error)
}

// BalancePayload is the customer-facing wallet summary.
type BalancePayload struct {
	Balance          int              `json:"balance"`
	Tier             enums.WalletTier `json:"tier"`
	TotalSpentPaise  int64            `json:"total_spent_paise"`
	TotalSpentRupees decimal.Decimal  `json:"total_spent_rupees"`
}

// TransactionPayload is one ledger entry in the wallet history.
type TransactionPayload struct {
	ID          uuid.UUID                 `json:"id"`
	Type        enums.CoinTransactionType `json:"type"`
	Amount      int                       `json:"amount"`
	OrderID     *uuid.UUID                `json:"order_id,omitempty"`
	Description string                    `json:"description"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// TransactionListResult wraps a ledger page and the cursor for the next one.
type TransactionListResult struct {
	Items  []TransactionPayload `json:"items"`
	Cursor string               `json:"cursor"`
}

type service struct {
	repo Repository
}

// NewService builds the wallet read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*BalancePayload, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	return &BalancePayload{
		Balance:          user.WalletBalance,
		Tier:             user.WalletTier,
		TotalSpentPaise:  user.TotalSpentPaise,
		TotalSpentRupees: decimal.NewFromInt(user.TotalSpentPaise).Div(decimal.NewFromInt(100)),
	}, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListTransactions(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	result := &TransactionListResult{Items: make([]TransactionPayload, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for _, row := range rows {
		result.Items = append(result.Items, newTransactionPayload(row))
	}
	if hasMore {
		last := rows[len(rows)-1]
		result.Cursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

func newTransactionPayload(row models.CoinTransaction) TransactionPayload {
	return TransactionPayload{
		ID:          row.ID,
		Type:        row.Type,
		Amount:      row.Amount,
		OrderID:     row.OrderID,
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
	}
}
