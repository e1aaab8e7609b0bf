package rewards

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
)

// Repository exposes the wallet persistence surface used by accrual.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertCoinTransaction(ctx context.Context, row *models.CoinTransaction) error
	FindUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateWallet(ctx context.Context, userID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rewards repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertCoinTransaction(ctx context.Context, row *models.CoinTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateWallet(ctx context.Context, userID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}
