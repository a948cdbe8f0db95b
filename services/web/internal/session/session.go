// Package session signs viewers in and out against the catalog identity API and
// carries the signed-in user through request contexts.
package session

import (
	"context"
	"strings"
	"time"

	"knowhow/pkg/logger"
	"knowhow/services/catalog-service/pkg/catalogpb"
	"knowhow/services/web/internal/domain"
	"knowhow/services/web/internal/querycache"
	"knowhow/services/web/internal/remote"
)

type userKey struct{}

func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the signed-in user, or nil.
func UserFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey{}).(*domain.User)
	return u
}

// Forgetter is satisfied by *querycache.Cache.
type Forgetter interface {
	Forget(patterns ...querycache.Pattern) int
}

// Session is the result of signing in.
type Session struct {
	User      domain.User
	ExpiresAt time.Time
}

type Service struct {
	auth  catalogpb.AuthServiceClient
	cache Forgetter
	log   *logger.Logger
}

func NewService(auth catalogpb.AuthServiceClient, cache Forgetter, log *logger.Logger) *Service {
	return &Service{auth: auth, cache: cache, log: log.With("component", "Session")}
}

func (s *Service) SignUp(ctx context.Context, email, password, username string) (string, error) {
	res, err := s.auth.SignUp(ctx, &catalogpb.SignUpRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
		Username: strings.TrimSpace(username),
	})
	if err != nil {
		return "", remote.FromStatus("sign-up", "auth", err)
	}
	s.log.Info("account created", "user_id", res.UserID)
	return res.UserID, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	res, err := s.auth.SignIn(ctx, &catalogpb.SignInRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return Session{}, remote.FromStatus("sign-in", "auth", err)
	}
	return Session{
		User:      domain.User{ID: res.UserID, Token: res.AccessToken},
		ExpiresAt: time.Unix(res.ExpiresAt, 0),
	}, nil
}

// SignOut revokes the token and drops everything cached for the user, so the
// next viewer on this front end sees nothing of theirs.
func (s *Service) SignOut(ctx context.Context, u *domain.User) error {
	if u == nil {
		return nil
	}
	n := s.cache.Forget(querycache.OwnedBy(u.ID))
	if _, err := s.auth.SignOut(ctx, &catalogpb.SignOutRequest{AccessToken: u.Token}); err != nil {
		return remote.FromStatus("sign-out", "auth", err)
	}
	s.log.Debug("signed out", "user_id", u.ID, "forgotten", n)
	return nil
}

// Validate resolves a bearer token to its user.
func (s *Service) Validate(ctx context.Context, token string) (*domain.User, error) {
	res, err := s.auth.Validate(ctx, &catalogpb.ValidateRequest{AccessToken: token})
	if err != nil {
		return nil, remote.FromStatus("validate", "auth", err)
	}
	return &domain.User{ID: res.UserID, Token: token}, nil
}
