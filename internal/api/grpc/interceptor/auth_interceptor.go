package interceptor

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apigrpc "rental-escrow-backend/internal/api/grpc"
	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/security"
)

type AuthInterceptor struct {
	tokenManager security.TokenManager
}

func NewAuthInterceptor(tm security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm}
}

// Unary returns a server interceptor function to authenticate unary RPCs
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		// Never trust a client-supplied caller header.
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			md = metadata.New(nil)
		} else {
			md = md.Copy()
		}
		md.Delete(apigrpc.CallerAddressKey)

		level := config.GetSecurityLevel(info.FullMethod)
		token, err := i.extractToken(md)
		if err != nil {
			// Public endpoint - anonymous callers allowed
			if level == config.SecurityPublic {
				return handler(metadata.NewIncomingContext(ctx, md), req)
			}
			return nil, err
		}

		claims, err := i.tokenManager.ValidateToken(token)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		if claims.Type != security.TokenTypeAccess {
			return nil, status.Error(codes.PermissionDenied, "access token required")
		}

		md.Set(apigrpc.CallerAddressKey, claims.Address)
		return handler(metadata.NewIncomingContext(ctx, md), req)
	}
}

func (i *AuthInterceptor) extractToken(md metadata.MD) (string, error) {
	authHeader := md.Get("authorization")
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	token := authHeader[0]
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	if token == "" {
		return "", status.Error(codes.Unauthenticated, "authorization token is empty")
	}
	return token, nil
}
