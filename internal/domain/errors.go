package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrorCode is a machine-readable escrow error code.
type ErrorCode string

const (
	CodeInvalidAmount          ErrorCode = "INVALID_AMOUNT"
	CodeInvalidDuration        ErrorCode = "INVALID_DURATION"
	CodeInvalidDescription     ErrorCode = "INVALID_DESCRIPTION"
	CodeInvalidReason          ErrorCode = "INVALID_REASON"
	CodeInvalidFeePercentage   ErrorCode = "INVALID_FEE_PERCENTAGE"
	CodeInvalidEscrowState     ErrorCode = "INVALID_ESCROW_STATE"
	CodeUnauthorizedAccess     ErrorCode = "UNAUTHORIZED_ACCESS"
	CodeInsufficientDeposit    ErrorCode = "INSUFFICIENT_DEPOSIT"
	CodeRentalNotEnded         ErrorCode = "RENTAL_NOT_ENDED"
	CodeDisputeTimeoutExceeded ErrorCode = "DISPUTE_TIMEOUT_EXCEEDED"
	CodeEscrowNotFound         ErrorCode = "ESCROW_NOT_FOUND"
	CodeTransferFailed         ErrorCode = "TRANSFER_FAILED"
	CodeInsufficientFees       ErrorCode = "INSUFFICIENT_FEES"
	CodeRateLimited            ErrorCode = "RATE_LIMITED"
)

// Error is returned by every escrow operation that rejects a request. It carries
// enough context for the caller to decide whether to retry, dispute or abandon.
type Error struct {
	Code     ErrorCode
	Message  string
	EscrowID int64
	Expected EscrowState
	Actual   EscrowState
	Cause    error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.EscrowID != 0 {
		msg += " (escrow " + strconv.FormatInt(e.EscrowID, 10) + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Metadata flattens the error context for transports.
func (e *Error) Metadata() map[string]string {
	md := map[string]string{}
	if e.EscrowID != 0 {
		md["escrow_id"] = strconv.FormatInt(e.EscrowID, 10)
	}
	if e.Expected != "" {
		md["expected_state"] = string(e.Expected)
	}
	if e.Actual != "" {
		md["actual_state"] = string(e.Actual)
	}
	return md
}

// CodeOf returns the escrow error code carried by err, or "" for other errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func ErrInvalidAmount(msg string) *Error {
	return &Error{Code: CodeInvalidAmount, Message: msg}
}

func ErrInvalidDuration(d, min, max time.Duration) *Error {
	return &Error{
		Code:    CodeInvalidDuration,
		Message: fmt.Sprintf("duration %s outside [%s, %s]", d, min, max),
	}
}

func ErrInvalidDescription(msg string) *Error {
	return &Error{Code: CodeInvalidDescription, Message: msg}
}

func ErrInvalidReason(id int64, msg string) *Error {
	return &Error{Code: CodeInvalidReason, Message: msg, EscrowID: id}
}

func ErrInvalidFeePercentage(bps uint32, max uint32) *Error {
	return &Error{
		Code:    CodeInvalidFeePercentage,
		Message: fmt.Sprintf("fee %d bps exceeds maximum %d bps", bps, max),
	}
}

func ErrInvalidEscrowState(id int64, expected, actual EscrowState) *Error {
	return &Error{
		Code:     CodeInvalidEscrowState,
		Message:  fmt.Sprintf("expected state %s, got %s", expected, actual),
		EscrowID: id,
		Expected: expected,
		Actual:   actual,
	}
}

func ErrUnauthorized(id int64, msg string) *Error {
	return &Error{Code: CodeUnauthorizedAccess, Message: msg, EscrowID: id}
}

func ErrInsufficientDeposit(id int64, want, got int64) *Error {
	return &Error{
		Code:     CodeInsufficientDeposit,
		Message:  fmt.Sprintf("deposit must be exactly %d, got %d", want, got),
		EscrowID: id,
		Expected: EscrowStateCreated,
		Actual:   EscrowStateCreated,
	}
}

func ErrRentalNotEnded(id int64, endTime time.Time) *Error {
	return &Error{
		Code:     CodeRentalNotEnded,
		Message:  "rental ends at " + endTime.UTC().Format(time.RFC3339),
		EscrowID: id,
		Actual:   EscrowStateActive,
	}
}

func ErrDisputeTimeoutExceeded(id int64, deadline time.Time) *Error {
	return &Error{
		Code:     CodeDisputeTimeoutExceeded,
		Message:  "dispute window closed at " + deadline.UTC().Format(time.RFC3339),
		EscrowID: id,
		Actual:   EscrowStateActive,
	}
}

func ErrEscrowNotFound(id int64) *Error {
	return &Error{Code: CodeEscrowNotFound, Message: "no escrow with this id", EscrowID: id}
}

func ErrTransferFailed(id int64, actual EscrowState, cause error) *Error {
	return &Error{
		Code:     CodeTransferFailed,
		Message:  "funds transfer failed, operation rolled back",
		EscrowID: id,
		Actual:   actual,
		Cause:    cause,
	}
}

func ErrInsufficientFees(available, requested int64) *Error {
	return &Error{
		Code:    CodeInsufficientFees,
		Message: fmt.Sprintf("fee pool holds %d, requested %d", available, requested),
	}
}

func ErrRateLimited(caller string) *Error {
	return &Error{Code: CodeRateLimited, Message: "too many requests from " + caller}
}
