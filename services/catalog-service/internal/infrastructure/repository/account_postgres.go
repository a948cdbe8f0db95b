package repository

import (
	"context"

	"knowhow/services/catalog-service/internal/domain"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores the account together with its public profile.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account, username *string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Account{}).Where("email = ?", account.Email).Count(&n).Error; err != nil {
			return errors.Wrap(err, "check email")
		}
		if n > 0 {
			return domain.ErrAccountAlreadyExists
		}
		if err := tx.Create(account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAccountAlreadyExists
			}
			return errors.Wrap(err, "create account")
		}
		profile := &domain.Profile{ID: account.ID, Username: username}
		if err := tx.Create(profile).Error; err != nil {
			return errors.Wrap(err, "create profile")
		}
		return nil
	})
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "get account")
	}
	return &account, nil
}
