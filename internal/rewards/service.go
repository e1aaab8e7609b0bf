package rewards

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/tiffinbox/tiffinbox-backend/pkg/db"
	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/tiffinbox/tiffinbox-backend/pkg/errors"
)

const (
	rewardConstraint = "ux_coin_tx_order_reward"

	// Cumulative-spend tier boundaries in paise.
	silverThresholdPaise = 500_000
	goldThresholdPaise   = 2_000_000
)

// AccrualResult reports what a single accrual attempt did.
type AccrualResult struct {
	Coins          int
	Tier           enums.WalletTier
	AlreadyAccrued bool
}

// Service credits wallet coins for delivered orders. Accrual always runs
// inside the delivery transaction so a rollback reverts the credit too.
type Service interface {
	AccrueTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*AccrualResult, error)
}

type service struct {
	repo         Repository
	paisePerCoin int
}

// NewService builds the accrual service. paisePerCoin is the spend required
// per coin earned.
func NewService(repo Repository, paisePerCoin int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if paisePerCoin <= 0 {
		return nil, fmt.Errorf("paise per coin must be positive")
	}
	return &service{repo: repo, paisePerCoin: paisePerCoin}, nil
}

func (s *service) AccrueTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*AccrualResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for accrual")
	}
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required for accrual")
	}
	if order.CustomerID == nil {
		// Guest orders earn nothing.
		return &AccrualResult{}, nil
	}

	repo := s.repo.WithTx(tx)
	coins := order.FinalPricePaise / s.paisePerCoin

	orderID := order.ID
	row := models.CoinTransaction{
		UserID:      *order.CustomerID,
		Type:        enums.CoinTxOrderReward,
		Amount:      coins,
		OrderID:     &orderID,
		Description: fmt.Sprintf("Reward for order #%d", order.OrderNumber),
	}
	if err := repo.InsertCoinTransaction(ctx, &row); err != nil {
		// The partial unique index is the arbiter: a second attempt for the
		// same order means the reward is already on the ledger.
		if dbpkg.IsUniqueViolation(err, rewardConstraint) {
			return &AccrualResult{AlreadyAccrued: true}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert reward transaction")
	}

	user, err := repo.FindUserForUpdate(ctx, *order.CustomerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer wallet")
	}

	totalSpent := user.TotalSpentPaise + int64(order.FinalPricePaise)
	tier := TierForSpend(totalSpent)
	updates := map[string]any{
		"wallet_balance":    user.WalletBalance + coins,
		"total_spent_paise": totalSpent,
		"wallet_tier":       tier,
	}
	if err := repo.UpdateWallet(ctx, user.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet")
	}

	return &AccrualResult{Coins: coins, Tier: tier}, nil
}

// TierForSpend maps cumulative spend to a loyalty tier.
func TierForSpend(totalSpentPaise int64) enums.WalletTier {
	switch {
	case totalSpentPaise >= goldThresholdPaise:
		return enums.WalletTierGold
	case totalSpentPaise >= silverThresholdPaise:
		return enums.WalletTierSilver
	default:
		return enums.WalletTierBronze
	}
}
