package grpc_server

import (
	"context"

	"knowhow/services/catalog-service/internal/application/usecase"
	"knowhow/services/catalog-service/internal/domain"
	"knowhow/services/catalog-service/internal/infrastructure/repository"
	"knowhow/services/catalog-service/internal/infrastructure/security"
	"knowhow/services/catalog-service/pkg/catalogpb"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type CollectionServer struct {
	catalogpb.UnimplementedCollectionServiceServer
	useCase *usecase.CollectionUseCase
}

func NewCollectionServer(uc *usecase.CollectionUseCase) *CollectionServer {
	return &CollectionServer{useCase: uc}
}

func (s *CollectionServer) Select(ctx context.Context, req *catalogpb.SelectRequest) (*catalogpb.SelectResponse, error) {
	q := repository.Query{
		Filters:   conditions(req.Filters),
		AnyOf:     conditions(req.AnyOf),
		Limit:     int(req.Limit),
		CountOnly: req.CountOnly,
		Embed:     req.Embed,
	}
	for _, o := range req.Order {
		q.Order = append(q.Order, repository.OrderBy{Field: o.Field, Desc: o.Desc})
	}
	records, count, err := s.useCase.Select(ctx, PrincipalFrom(ctx), req.Collection, q)
	if err != nil {
		return nil, toStatus(err)
	}
	return &catalogpb.SelectResponse{Records: records, Count: count}, nil
}

func (s *CollectionServer) Insert(ctx context.Context, req *catalogpb.InsertRequest) (*catalogpb.InsertResponse, error) {
	record, err := s.useCase.Insert(ctx, PrincipalFrom(ctx), req.Collection, req.Record)
	if err != nil {
		return nil, toStatus(err)
	}
	return &catalogpb.InsertResponse{Record: record}, nil
}

func (s *CollectionServer) Delete(ctx context.Context, req *catalogpb.DeleteRequest) (*catalogpb.DeleteResponse, error) {
	n, err := s.useCase.Delete(ctx, PrincipalFrom(ctx), req.Collection, conditions(req.Filters))
	if err != nil {
		return nil, toStatus(err)
	}
	return &catalogpb.DeleteResponse{Deleted: n}, nil
}

func (s *CollectionServer) Call(ctx context.Context, req *catalogpb.CallRequest) (*catalogpb.CallResponse, error) {
	result, err := s.useCase.Call(ctx, PrincipalFrom(ctx), req.Procedure, req.Payload)
	if err != nil {
		return nil, toStatus(err)
	}
	return &catalogpb.CallResponse{Result: result}, nil
}

type AuthServer struct {
	catalogpb.UnimplementedAuthServiceServer
	useCase *usecase.AuthUseCase
}

func NewAuthServer(uc *usecase.AuthUseCase) *AuthServer {
	return &AuthServer{useCase: uc}
}

func (s *AuthServer) SignUp(ctx context.Context, req *catalogpb.SignUpRequest) (*catalogpb.SignUpResponse, error) {
	id, err := s.useCase.SignUp(ctx, req.Email, req.Password, req.Username)
	if err != nil {
		return nil, toStatus(err)
	}
	return &catalogpb.SignUpResponse{UserID: id.String()}, nil
}

func (s *AuthServer) SignIn(ctx context.Context, req *catalogpb.SignInRequest) (*catalogpb.SignInResponse, error) {
	token, claims, err := s.useCase.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &catalogpb.SignInResponse{
		AccessToken: token,
		UserID:      claims.UserID.String(),
		ExpiresAt:   claims.ExpiresAt.Unix(),
	}, nil
}

func (s *AuthServer) SignOut(ctx context.Context, req *catalogpb.SignOutRequest) (*catalogpb.SignOutResponse, error) {
	if err := s.useCase.SignOut(ctx, req.AccessToken); err != nil {
		return nil, toStatus(err)
	}
	return &catalogpb.SignOutResponse{}, nil
}

func (s *AuthServer) Validate(ctx context.Context, req *catalogpb.ValidateRequest) (*catalogpb.ValidateResponse, error) {
	claims, err := s.useCase.Validate(ctx, req.AccessToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return &catalogpb.ValidateResponse{UserID: claims.UserID.String()}, nil
}

func conditions(filters []catalogpb.Filter) []repository.Condition {
	if len(filters) == 0 {
		return nil
	}
	out := make([]repository.Condition, 0, len(filters))
	for _, f := range filters {
		values := f.Values
		if f.Op != catalogpb.OpIn {
			values = []string{f.Value}
		}
		out = append(out, repository.Condition{Field: f.Field, Op: f.Op, Values: values})
	}
	return out
}

func toStatus(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, domain.ErrAccountAlreadyExists):
		return status.Error(codes.AlreadyExists, msg)
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, msg)
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, repository.ErrOwnerMismatch):
		return status.Error(codes.PermissionDenied, msg)
	case errors.Is(err, repository.ErrConstraint):
		return status.Error(codes.FailedPrecondition, msg)
	case errors.Is(err, repository.ErrUnknownCollection), errors.Is(err, domain.ErrUnknownProcedure):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, repository.ErrUnknownField),
		errors.Is(err, repository.ErrInvalidFilter),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, security.ErrWeakPassword):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, msg)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
