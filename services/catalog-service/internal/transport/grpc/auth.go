package grpc_server

import (
	"context"
	"crypto/subtle"
	"strings"

	"knowhow/pkg/logger"
	"knowhow/services/catalog-service/internal/domain"
	"knowhow/services/catalog-service/internal/infrastructure/security"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller attached by the interceptor, anonymous if none.
func PrincipalFrom(ctx context.Context) domain.Principal {
	if p, ok := ctx.Value(principalKey{}).(domain.Principal); ok {
		return p
	}
	return domain.Anonymous()
}

type TokenValidator interface {
	Validate(ctx context.Context, token string) (security.Claims, error)
}

// AuthInterceptor resolves the bearer token of every call into a principal.
// No token is an anonymous call; a token that fails validation is rejected.
func AuthInterceptor(validator TokenValidator, serviceKey string, log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := bearer(ctx)
		switch {
		case token == "":
			ctx = WithPrincipal(ctx, domain.Anonymous())
		case serviceKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(serviceKey)) == 1:
			ctx = WithPrincipal(ctx, domain.ServiceRole())
		default:
			claims, err := validator.Validate(ctx, token)
			if err != nil {
				log.Debug("rejected token", "method", info.FullMethod, "error", err)
				return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
			}
			ctx = WithPrincipal(ctx, domain.User(claims.UserID))
		}
		return handler(ctx, req)
	}
}

func bearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	parts := strings.SplitN(values[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
