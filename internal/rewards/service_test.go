package rewards

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/tiffinbox/tiffinbox-backend/pkg/errors"
)

type stubRewardsRepo struct {
	user          *models.User
	insertedTx    *models.CoinTransaction
	insertErr     error
	walletUpdates map[string]any
}

func (s *stubRewardsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRewardsRepo) InsertCoinTransaction(ctx context.Context, row *models.CoinTransaction) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	row.ID = uuid.New()
	s.insertedTx = row
	return nil
}

func (s *stubRewardsRepo) FindUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubRewardsRepo) UpdateWallet(ctx context.Context, userID uuid.UUID, updates map[string]any) error {
	s.walletUpdates = updates
	return nil
}

func deliveredOrder(customerID uuid.UUID, pricePaise int) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		OrderNumber:     42,
		CustomerID:      &customerID,
		FinalPricePaise: pricePaise,
		PaymentMethod:   enums.PaymentMethodCOD,
		Status:          enums.OrderStatusDelivered,
	}
}

func TestAccrueCreditsCoinsAndRecomputesTier(t *testing.T) {
	customerID := uuid.New()
	repo := &stubRewardsRepo{
		user: &models.User{
			ID:              customerID,
			WalletBalance:   10,
			WalletTier:      enums.WalletTierBronze,
			TotalSpentPaise: 450_000,
		},
	}
	svc, err := NewService(repo, 2000)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	// ₹600 order: 30 coins, and spend crosses the silver boundary.
	result, err := svc.AccrueTx(context.Background(), &gorm.DB{}, deliveredOrder(customerID, 60_000))
	if err != nil {
		t.Fatalf("AccrueTx: %v", err)
	}
	if result.AlreadyAccrued {
		t.Fatal("fresh accrual should not report already-accrued")
	}
	if result.Coins != 30 {
		t.Fatalf("expected 30 coins, got %d", result.Coins)
	}
	if result.Tier != enums.WalletTierSilver {
		t.Fatalf("expected silver tier, got %s", result.Tier)
	}

	if repo.insertedTx == nil || repo.insertedTx.Type != enums.CoinTxOrderReward {
		t.Fatalf("expected order_reward ledger row, got %+v", repo.insertedTx)
	}
	if repo.insertedTx.Amount != 30 {
		t.Fatalf("ledger amount mismatch: %d", repo.insertedTx.Amount)
	}
	if got := repo.walletUpdates["wallet_balance"]; got != 40 {
		t.Fatalf("expected balance 40, got %v", got)
	}
	if got := repo.walletUpdates["total_spent_paise"]; got != int64(510_000) {
		t.Fatalf("expected total spent 510000, got %v", got)
	}
}

func TestAccrueIsIdempotentOnUniqueViolation(t *testing.T) {
	customerID := uuid.New()
	repo := &stubRewardsRepo{
		insertErr: errors.New(`duplicate key value violates unique constraint "ux_coin_tx_order_reward"`),
	}
	svc, err := NewService(repo, 2000)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	result, err := svc.AccrueTx(context.Background(), &gorm.DB{}, deliveredOrder(customerID, 60_000))
	if err != nil {
		t.Fatalf("duplicate accrual should be a no-op, got %v", err)
	}
	if !result.AlreadyAccrued {
		t.Fatal("expected already-accrued result")
	}
	if result.Coins != 0 {
		t.Fatalf("duplicate accrual must not credit coins, got %d", result.Coins)
	}
	if repo.walletUpdates != nil {
		t.Fatal("wallet must not be touched on duplicate accrual")
	}
}

func TestAccrueSkipsGuestOrders(t *testing.T) {
	repo := &stubRewardsRepo{}
	svc, err := NewService(repo, 2000)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	order := deliveredOrder(uuid.New(), 60_000)
	order.CustomerID = nil
	result, err := svc.AccrueTx(context.Background(), &gorm.DB{}, order)
	if err != nil {
		t.Fatalf("AccrueTx: %v", err)
	}
	if result.Coins != 0 || repo.insertedTx != nil {
		t.Fatal("guest order should not produce a ledger row")
	}
}

func TestAccrueRequiresTransaction(t *testing.T) {
	svc, err := NewService(&stubRewardsRepo{}, 2000)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	_, err = svc.AccrueTx(context.Background(), nil, deliveredOrder(uuid.New(), 100))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestTierForSpendBoundaries(t *testing.T) {
	tests := []struct {
		spend int64
		want  enums.WalletTier
	}{
		{0, enums.WalletTierBronze},
		{499_999, enums.WalletTierBronze},
		{500_000, enums.WalletTierSilver},
		{1_999_999, enums.WalletTierSilver},
		{2_000_000, enums.WalletTierGold},
	}
	for _, tt := range tests {
		if got := TierForSpend(tt.spend); got != tt.want {
			t.Fatalf("spend %d: expected %s got %s", tt.spend, tt.want, got)
		}
	}
}
