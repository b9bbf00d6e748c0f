package grpc

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
)

// ErrorDomain identifies escrow errors in ErrorInfo details.
const ErrorDomain = "rentalescrow.v1"

func grpcCode(code domain.ErrorCode) codes.Code {
	switch code {
	case domain.CodeInvalidAmount, domain.CodeInvalidDuration, domain.CodeInvalidDescription,
		domain.CodeInvalidReason, domain.CodeInvalidFeePercentage, domain.CodeInsufficientDeposit:
		return codes.InvalidArgument
	case domain.CodeInvalidEscrowState, domain.CodeRentalNotEnded, domain.CodeDisputeTimeoutExceeded,
		domain.CodeInsufficientFees:
		return codes.FailedPrecondition
	case domain.CodeUnauthorizedAccess:
		return codes.PermissionDenied
	case domain.CodeEscrowNotFound:
		return codes.NotFound
	case domain.CodeRateLimited:
		return codes.ResourceExhausted
	case domain.CodeTransferFailed:
		return codes.Aborted
	}
	return codes.Internal
}

// ToStatus converts a service error into a gRPC status error. Escrow errors carry an
// ErrorInfo detail whose Reason is the error code; anything else is reported as
// Internal without leaking its message.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}

	var e *domain.Error
	if !errors.As(err, &e) {
		logger.Error("Unhandled service error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}

	code := grpcCode(e.Code)
	msg := e.Error()
	if e.Code == domain.CodeTransferFailed {
		// The cause may describe storage internals.
		msg = string(e.Code) + ": " + e.Message
	}
	st, detailErr := status.New(code, msg).WithDetails(&errdetails.ErrorInfo{
		Reason:   string(e.Code),
		Domain:   ErrorDomain,
		Metadata: e.Metadata(),
	})
	if detailErr != nil {
		return status.Error(code, msg)
	}
	return st.Err()
}

// CodeFromStatus recovers the escrow error code from a status produced by ToStatus.
func CodeFromStatus(err error) domain.ErrorCode {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.Domain == ErrorDomain {
			return domain.ErrorCode(info.Reason)
		}
	}
	return ""
}
