package grpc

import (
	"context"
	"math"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	escrowv1 "rental-escrow-backend/api/escrow/v1"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/service"
)

type EscrowHandler struct {
	escrowv1.UnimplementedEscrowServiceServer
	escrowSvc   service.EscrowService
	accountSvc  service.AccountService
	platformSvc service.PlatformService
}

func NewEscrowHandler(escrowSvc service.EscrowService, accountSvc service.AccountService, platformSvc service.PlatformService) *EscrowHandler {
	return &EscrowHandler{
		escrowSvc:   escrowSvc,
		accountSvc:  accountSvc,
		platformSvc: platformSvc,
	}
}

func (h *EscrowHandler) CreateEscrow(ctx context.Context, req *escrowv1.CreateEscrowRequest) (*escrowv1.EscrowResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	a, err := h.escrowSvc.CreateEscrow(ctx, caller, service.CreateEscrowRequest{
		Borrower:        req.Borrower,
		Lender:          req.Lender,
		RentalAmount:    req.RentalAmount,
		SecurityDeposit: req.SecurityDeposit,
		Duration:        secondsToDuration(req.DurationSeconds),
		Description:     req.ItemDescription,
	})
	return escrowResponse(a, err)
}

func (h *EscrowHandler) Deposit(ctx context.Context, req *escrowv1.DepositRequest) (*escrowv1.EscrowResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return escrowResponse(h.escrowSvc.Deposit(ctx, caller, req.EscrowId, req.Amount))
}

func (h *EscrowHandler) ActivateRental(ctx context.Context, req *escrowv1.EscrowIdRequest) (*escrowv1.EscrowResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return escrowResponse(h.escrowSvc.ActivateRental(ctx, caller, req.EscrowId))
}

func (h *EscrowHandler) ReleaseToLender(ctx context.Context, req *escrowv1.EscrowIdRequest) (*escrowv1.EscrowResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return escrowResponse(h.escrowSvc.ReleaseToLender(ctx, caller, req.EscrowId))
}

func (h *EscrowHandler) RaiseDispute(ctx context.Context, req *escrowv1.RaiseDisputeRequest) (*escrowv1.EscrowResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return escrowResponse(h.escrowSvc.RaiseDispute(ctx, caller, req.EscrowId, req.Reason))
}

func (h *EscrowHandler) ResolveDispute(ctx context.Context, req *escrowv1.ResolveDisputeRequest) (*escrowv1.EscrowResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return escrowResponse(h.escrowSvc.ResolveDispute(ctx, caller, req.EscrowId, req.FavorBorrower))
}

func (h *EscrowHandler) CancelEscrow(ctx context.Context, req *escrowv1.EscrowIdRequest) (*escrowv1.EscrowResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return escrowResponse(h.escrowSvc.CancelEscrow(ctx, caller, req.EscrowId))
}

func (h *EscrowHandler) GetEscrow(ctx context.Context, req *escrowv1.EscrowIdRequest) (*escrowv1.EscrowResponse, error) {
	return escrowResponse(h.escrowSvc.GetEscrow(ctx, req.EscrowId))
}

func (h *EscrowHandler) GetUserEscrows(ctx context.Context, req *escrowv1.GetUserEscrowsRequest) (*escrowv1.GetUserEscrowsResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	agreements, err := h.escrowSvc.GetUserEscrows(ctx, caller, req.Address)
	if err != nil {
		return nil, ToStatus(err)
	}
	return &escrowv1.GetUserEscrowsResponse{Escrows: MapDomainEscrowsToProto(agreements)}, nil
}

func (h *EscrowHandler) ListEvents(ctx context.Context, req *escrowv1.EscrowIdRequest) (*escrowv1.ListEventsResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	events, err := h.escrowSvc.ListEvents(ctx, caller, req.EscrowId)
	if err != nil {
		return nil, ToStatus(err)
	}
	return &escrowv1.ListEventsResponse{Events: MapDomainEventsToProto(events)}, nil
}

func (h *EscrowHandler) GetBalance(ctx context.Context, req *escrowv1.GetBalanceRequest) (*escrowv1.GetBalanceResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := h.accountSvc.GetBalance(ctx, caller, req.Address)
	if err != nil {
		return nil, ToStatus(err)
	}
	return &escrowv1.GetBalanceResponse{Address: caller, Balance: balance}, nil
}

func (h *EscrowHandler) ListEntries(ctx context.Context, req *escrowv1.ListEntriesRequest) (*escrowv1.ListEntriesResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	entries, total, err := h.accountSvc.ListEntries(ctx, caller, req.Address, req.Page, req.PageSize)
	if err != nil {
		return nil, ToStatus(err)
	}
	resp := &escrowv1.ListEntriesResponse{TotalCount: total, Entries: make([]*escrowv1.LedgerEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, MapDomainEntryToProto(e))
	}
	return resp, nil
}

func (h *EscrowHandler) SetFeePercentage(ctx context.Context, req *escrowv1.FeePercentage) (*escrowv1.FeePercentage, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.platformSvc.SetFeePercentage(ctx, caller, req.FeeBps); err != nil {
		return nil, ToStatus(err)
	}
	return &escrowv1.FeePercentage{FeeBps: req.FeeBps}, nil
}

func (h *EscrowHandler) GetFeePercentage(ctx context.Context, _ *emptypb.Empty) (*escrowv1.FeePercentage, error) {
	bps, err := h.platformSvc.GetFeePercentage(ctx)
	if err != nil {
		return nil, ToStatus(err)
	}
	return &escrowv1.FeePercentage{FeeBps: bps}, nil
}

func (h *EscrowHandler) GetFeePool(ctx context.Context, _ *emptypb.Empty) (*escrowv1.FeePoolResponse, error) {
	if _, err := GetCallerFromContext(ctx); err != nil {
		return nil, err
	}
	pool, err := h.platformSvc.GetFeePool(ctx)
	if err != nil {
		return nil, ToStatus(err)
	}
	return &escrowv1.FeePoolResponse{FeePool: pool}, nil
}

func (h *EscrowHandler) WithdrawFees(ctx context.Context, req *escrowv1.WithdrawFeesRequest) (*escrowv1.FeePoolResponse, error) {
	caller, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.platformSvc.WithdrawFees(ctx, caller, req.To, req.Amount); err != nil {
		return nil, ToStatus(err)
	}
	pool, err := h.platformSvc.GetFeePool(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "fees withdrawn but pool could not be read")
	}
	return &escrowv1.FeePoolResponse{FeePool: pool}, nil
}

// secondsToDuration saturates instead of overflowing so oversized requests are
// rejected as out of range by the ledger.
func secondsToDuration(seconds int64) time.Duration {
	const maxSeconds = math.MaxInt64 / int64(time.Second)
	if seconds > maxSeconds {
		return time.Duration(math.MaxInt64)
	}
	if seconds < -maxSeconds {
		return time.Duration(math.MinInt64)
	}
	return time.Duration(seconds) * time.Second
}

func escrowResponse(a *domain.EscrowAgreement, err error) (*escrowv1.EscrowResponse, error) {
	if err != nil {
		return nil, ToStatus(err)
	}
	return &escrowv1.EscrowResponse{Escrow: MapDomainEscrowToProto(a)}, nil
}
