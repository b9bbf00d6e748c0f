package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rental-escrow-backend/internal/domain"
)

// CallerAddressKey is the metadata header the auth interceptor writes the
// authenticated address into.
const CallerAddressKey = "caller-address"

// GetCallerFromContext extracts the caller's address from the gRPC metadata.
func GetCallerFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	addresses := md.Get(CallerAddressKey)
	if len(addresses) == 0 {
		return "", status.Errorf(codes.Unauthenticated, "caller address is not provided in metadata")
	}

	address := domain.NormalizeAddress(addresses[0])
	if address == "" {
		return "", status.Errorf(codes.Unauthenticated, "caller address is empty")
	}
	return address, nil
}
