package usecase

import (
	"context"
	"strings"
	"time"

	"knowhow/pkg/logger"
	"knowhow/services/catalog-service/internal/domain"
	"knowhow/services/catalog-service/internal/infrastructure/security"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type AccountStore interface {
	Create(ctx context.Context, account *domain.Account, username *string) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type Revocations interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthUseCase struct {
	accounts     AccountStore
	revocations  Revocations
	hasher       *security.PasswordHasher
	tokenManager *security.TokenManager
	log          *logger.Logger
}

func NewAuthUseCase(
	accounts AccountStore,
	revocations Revocations,
	hasher *security.PasswordHasher,
	tokenManager *security.TokenManager,
	log *logger.Logger,
) *AuthUseCase {
	return &AuthUseCase{
		accounts:     accounts,
		revocations:  revocations,
		hasher:       hasher,
		tokenManager: tokenManager,
		log:          log.With("usecase", "auth"),
	}
}

func (uc *AuthUseCase) SignUp(ctx context.Context, email, password, username string) (uuid.UUID, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return uuid.Nil, errors.Wrap(domain.ErrInvalidPayload, "email is required")
	}
	hash, err := uc.hasher.Hash(password)
	if err != nil {
		return uuid.Nil, err
	}

	account := &domain.Account{
		ID:       uuid.New(),
		Email:    email,
		Password: hash,
	}
	var name *string
	if u := strings.TrimSpace(username); u != "" {
		name = &u
	}
	if err := uc.accounts.Create(ctx, account, name); err != nil {
		return uuid.Nil, err
	}
	uc.log.Info("account created", "user_id", account.ID.String())
	return account.ID, nil
}

func (uc *AuthUseCase) SignIn(ctx context.Context, email, password string) (string, security.Claims, error) {
	account, err := uc.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", security.Claims{}, domain.ErrInvalidCredentials
		}
		return "", security.Claims{}, err
	}
	if err := uc.hasher.Compare(account.Password, password); err != nil {
		return "", security.Claims{}, domain.ErrInvalidCredentials
	}
	return uc.tokenManager.Generate(account.ID)
}

// SignOut revokes the token. An already invalid token is treated as signed out.
func (uc *AuthUseCase) SignOut(ctx context.Context, token string) error {
	claims, err := uc.tokenManager.Validate(token)
	if err != nil {
		return nil
	}
	return uc.revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt)
}

func (uc *AuthUseCase) Validate(ctx context.Context, token string) (security.Claims, error) {
	claims, err := uc.tokenManager.Validate(token)
	if err != nil {
		return security.Claims{}, err
	}
	revoked, err := uc.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return security.Claims{}, errors.Wrap(err, "check revocation")
	}
	if revoked {
		return security.Claims{}, security.ErrInvalidToken
	}
	return claims, nil
}
