package grpc_server

import (
	"knowhow/pkg/logger"
	"knowhow/services/catalog-service/internal/application/usecase"
	"knowhow/services/catalog-service/pkg/catalogpb"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds the catalog gRPC server: the collection and identity APIs
// behind the auth interceptor, plus the standard health service.
func NewServer(auth *usecase.AuthUseCase, collections *usecase.CollectionUseCase, serviceKey string, log *logger.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.UnaryInterceptor(AuthInterceptor(auth, serviceKey, log))}, opts...)
	s := grpc.NewServer(opts...)
	catalogpb.RegisterCollectionServiceServer(s, NewCollectionServer(collections))
	catalogpb.RegisterAuthServiceServer(s, NewAuthServer(auth))

	hs := health.NewServer()
	hs.SetServingStatus(catalogpb.CollectionService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(catalogpb.AuthService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}
