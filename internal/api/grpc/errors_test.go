package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rental-escrow-backend/internal/domain"
)

var fixedEnd = time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"NotFound", domain.ErrEscrowNotFound(4), codes.NotFound},
		{"WrongState", domain.ErrInvalidEscrowState(4, domain.EscrowStateActive, domain.EscrowStateCreated), codes.FailedPrecondition},
		{"NotEnded", domain.ErrRentalNotEnded(4, fixedEnd), codes.FailedPrecondition},
		{"Unauthorized", domain.ErrUnauthorized(4, "only the lender can release"), codes.PermissionDenied},
		{"BadDeposit", domain.ErrInsufficientDeposit(4, 10, 9), codes.InvalidArgument},
		{"BadAmount", domain.ErrInvalidAmount("rental amount must be positive"), codes.InvalidArgument},
		{"RateLimited", domain.ErrRateLimited("alice"), codes.ResourceExhausted},
		{"TransferFailed", domain.ErrTransferFailed(4, domain.EscrowStateActive, errors.New("disk full")), codes.Aborted},
		{"Wrapped", fmt.Errorf("outer: %w", domain.ErrEscrowNotFound(9)), codes.NotFound},
		{"Unknown", errors.New("boom"), codes.Internal},
		{"Canceled", context.Canceled, codes.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(ToStatus(tt.err)))
		})
	}

	assert.NoError(t, ToStatus(nil))
}

func TestToStatus_Details(t *testing.T) {
	err := ToStatus(domain.ErrInvalidEscrowState(4, domain.EscrowStateActive, domain.EscrowStateCompleted))

	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Len(t, st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, string(domain.CodeInvalidEscrowState), info.Reason)
	assert.Equal(t, ErrorDomain, info.Domain)
	assert.Equal(t, "4", info.Metadata["escrow_id"])
	assert.Equal(t, "ACTIVE", info.Metadata["expected_state"])
	assert.Equal(t, "COMPLETED", info.Metadata["actual_state"])
	assert.Equal(t, domain.CodeInvalidEscrowState, CodeFromStatus(err))
}

func TestToStatus_HidesInternals(t *testing.T) {
	err := ToStatus(domain.ErrTransferFailed(4, domain.EscrowStateActive, errors.New("pq: relation custody_holds is locked")))
	assert.NotContains(t, status.Convert(err).Message(), "custody_holds")

	err = ToStatus(errors.New("sql: connection refused"))
	assert.Equal(t, "internal error", status.Convert(err).Message())
}

func TestGetCallerFromContext(t *testing.T) {
	_, err := GetCallerFromContext(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(CallerAddressKey, " Alice "))
	caller, err := GetCallerFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", caller)

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("other", "x"))
	_, err = GetCallerFromContext(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
