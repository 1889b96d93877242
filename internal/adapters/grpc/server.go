package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/shieldops/auth/internal/application"
)

// ServiceName is the fully qualified gRPC service exposed to sibling services.
const ServiceName = "shieldops.auth.v1.AuthInternalService"

// AuthInternalService is the internal token-introspection contract. Sibling
// services call ValidateToken instead of verifying secrets themselves, so the
// revocation and single-session checks stay in one place.
type AuthInternalService interface {
	ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type AuthInternalServer struct {
	service *application.Service
}

func NewAuthInternalServer(service *application.Service) *AuthInternalServer {
	return &AuthInternalServer{service: service}
}

func (s *AuthInternalServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := req.GetFields()["access_token"].GetStringValue()
	if raw == "" {
		return nil, status.Error(codes.InvalidArgument, "access_token is required")
	}

	user, claims, err := s.service.ValidateAccessToken(ctx, raw)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"user_id":    user.UserID.String(),
		"email":      user.Email,
		"session_id": claims.SessionID,
		"expires_at": claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return resp, nil
}

// Register wires the server onto a grpc.Server with a hand-rolled descriptor.
// The message types are structpb so the contract needs no generated stubs.
func Register(server *grpc.Server, impl AuthInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*AuthInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    validateTokenHandler,
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "auth_internal.proto",
	}, impl)
}

func validateTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthInternalService).ValidateToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/ValidateToken",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthInternalService).ValidateToken(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
