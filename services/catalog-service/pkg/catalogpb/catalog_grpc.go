package catalogpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	CollectionService_Select_FullMethodName = "/catalog.CollectionService/Select"
	CollectionService_Insert_FullMethodName = "/catalog.CollectionService/Insert"
	CollectionService_Delete_FullMethodName = "/catalog.CollectionService/Delete"
	CollectionService_Call_FullMethodName   = "/catalog.CollectionService/Call"

	AuthService_SignUp_FullMethodName   = "/catalog.AuthService/SignUp"
	AuthService_SignIn_FullMethodName   = "/catalog.AuthService/SignIn"
	AuthService_SignOut_FullMethodName  = "/catalog.AuthService/SignOut"
	AuthService_Validate_FullMethodName = "/catalog.AuthService/Validate"
)

// CollectionService

type CollectionServiceClient interface {
	Select(ctx context.Context, in *SelectRequest, opts ...grpc.CallOption) (*SelectResponse, error)
	Insert(ctx context.Context, in *InsertRequest, opts ...grpc.CallOption) (*InsertResponse, error)
	Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error)
	Call(ctx context.Context, in *CallRequest, opts ...grpc.CallOption) (*CallResponse, error)
}

type collectionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCollectionServiceClient(cc grpc.ClientConnInterface) CollectionServiceClient {
	return &collectionServiceClient{cc: cc}
}

func (c *collectionServiceClient) Select(ctx context.Context, in *SelectRequest, opts ...grpc.CallOption) (*SelectResponse, error) {
	return invoke[SelectResponse](ctx, c.cc, CollectionService_Select_FullMethodName, in, opts)
}

func (c *collectionServiceClient) Insert(ctx context.Context, in *InsertRequest, opts ...grpc.CallOption) (*InsertResponse, error) {
	return invoke[InsertResponse](ctx, c.cc, CollectionService_Insert_FullMethodName, in, opts)
}

func (c *collectionServiceClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c.cc, CollectionService_Delete_FullMethodName, in, opts)
}

func (c *collectionServiceClient) Call(ctx context.Context, in *CallRequest, opts ...grpc.CallOption) (*CallResponse, error) {
	return invoke[CallResponse](ctx, c.cc, CollectionService_Call_FullMethodName, in, opts)
}

type CollectionServiceServer interface {
	Select(context.Context, *SelectRequest) (*SelectResponse, error)
	Insert(context.Context, *InsertRequest) (*InsertResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	Call(context.Context, *CallRequest) (*CallResponse, error)
}

type UnimplementedCollectionServiceServer struct{}

func (UnimplementedCollectionServiceServer) Select(context.Context, *SelectRequest) (*SelectResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Select not implemented")
}

func (UnimplementedCollectionServiceServer) Insert(context.Context, *InsertRequest) (*InsertResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Insert not implemented")
}

func (UnimplementedCollectionServiceServer) Delete(context.Context, *DeleteRequest) (*DeleteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}

func (UnimplementedCollectionServiceServer) Call(context.Context, *CallRequest) (*CallResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Call not implemented")
}

func RegisterCollectionServiceServer(s grpc.ServiceRegistrar, srv CollectionServiceServer) {
	s.RegisterService(&CollectionService_ServiceDesc, srv)
}

var CollectionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "catalog.CollectionService",
	HandlerType: (*CollectionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Select",
			Handler: unaryHandler(CollectionService_Select_FullMethodName, func(srv interface{}, ctx context.Context, in *SelectRequest) (*SelectResponse, error) {
				return srv.(CollectionServiceServer).Select(ctx, in)
			}),
		},
		{
			MethodName: "Insert",
			Handler: unaryHandler(CollectionService_Insert_FullMethodName, func(srv interface{}, ctx context.Context, in *InsertRequest) (*InsertResponse, error) {
				return srv.(CollectionServiceServer).Insert(ctx, in)
			}),
		},
		{
			MethodName: "Delete",
			Handler: unaryHandler(CollectionService_Delete_FullMethodName, func(srv interface{}, ctx context.Context, in *DeleteRequest) (*DeleteResponse, error) {
				return srv.(CollectionServiceServer).Delete(ctx, in)
			}),
		},
		{
			MethodName: "Call",
			Handler: unaryHandler(CollectionService_Call_FullMethodName, func(srv interface{}, ctx context.Context, in *CallRequest) (*CallResponse, error) {
				return srv.(CollectionServiceServer).Call(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog.proto",
}

// AuthService

type AuthServiceClient interface {
	SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*SignUpResponse, error)
	SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*SignInResponse, error)
	SignOut(ctx context.Context, in *SignOutRequest, opts ...grpc.CallOption) (*SignOutResponse, error)
	Validate(ctx context.Context, in *ValidateRequest, opts ...grpc.CallOption) (*ValidateResponse, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc: cc}
}

func (c *authServiceClient) SignUp(ctx context.Context, in *SignUpRequest, opts ...grpc.CallOption) (*SignUpResponse, error) {
	return invoke[SignUpResponse](ctx, c.cc, AuthService_SignUp_FullMethodName, in, opts)
}

func (c *authServiceClient) SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*SignInResponse, error) {
	return invoke[SignInResponse](ctx, c.cc, AuthService_SignIn_FullMethodName, in, opts)
}

func (c *authServiceClient) SignOut(ctx context.Context, in *SignOutRequest, opts ...grpc.CallOption) (*SignOutResponse, error) {
	return invoke[SignOutResponse](ctx, c.cc, AuthService_SignOut_FullMethodName, in, opts)
}

func (c *authServiceClient) Validate(ctx context.Context, in *ValidateRequest, opts ...grpc.CallOption) (*ValidateResponse, error) {
	return invoke[ValidateResponse](ctx, c.cc, AuthService_Validate_FullMethodName, in, opts)
}

type AuthServiceServer interface {
	SignUp(context.Context, *SignUpRequest) (*SignUpResponse, error)
	SignIn(context.Context, *SignInRequest) (*SignInResponse, error)
	SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error)
	Validate(context.Context, *ValidateRequest) (*ValidateResponse, error)
}

type UnimplementedAuthServiceServer struct{}

func (UnimplementedAuthServiceServer) SignUp(context.Context, *SignUpRequest) (*SignUpResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignUp not implemented")
}

func (UnimplementedAuthServiceServer) SignIn(context.Context, *SignInRequest) (*SignInResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignIn not implemented")
}

func (UnimplementedAuthServiceServer) SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignOut not implemented")
}

func (UnimplementedAuthServiceServer) Validate(context.Context, *ValidateRequest) (*ValidateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Validate not implemented")
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "catalog.AuthService",
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SignUp",
			Handler: unaryHandler(AuthService_SignUp_FullMethodName, func(srv interface{}, ctx context.Context, in *SignUpRequest) (*SignUpResponse, error) {
				return srv.(AuthServiceServer).SignUp(ctx, in)
			}),
		},
		{
			MethodName: "SignIn",
			Handler: unaryHandler(AuthService_SignIn_FullMethodName, func(srv interface{}, ctx context.Context, in *SignInRequest) (*SignInResponse, error) {
				return srv.(AuthServiceServer).SignIn(ctx, in)
			}),
		},
		{
			MethodName: "SignOut",
			Handler: unaryHandler(AuthService_SignOut_FullMethodName, func(srv interface{}, ctx context.Context, in *SignOutRequest) (*SignOutResponse, error) {
				return srv.(AuthServiceServer).SignOut(ctx, in)
			}),
		},
		{
			MethodName: "Validate",
			Handler: unaryHandler(AuthService_Validate_FullMethodName, func(srv interface{}, ctx context.Context, in *ValidateRequest) (*ValidateResponse, error) {
				return srv.(AuthServiceServer).Validate(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog.proto",
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func unaryHandler[Req any, Resp any](fullMethod string, call func(srv interface{}, ctx context.Context, in *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
