package service

import (
	"context"
	"fmt"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/ledger"
	"rental-escrow-backend/internal/logger"
)

type escrowService struct {
	ledger Ledger
}

func NewEscrowService(l Ledger) EscrowService {
	return &escrowService{ledger: l}
}

func (s *escrowService) CreateEscrow(ctx context.Context, caller string, req CreateEscrowRequest) (*domain.EscrowAgreement, error) {
	logger.EnterMethod("escrowService.CreateEscrow", "caller", caller, "borrower", req.Borrower, "lender", req.Lender)

	caller = domain.NormalizeAddress(caller)
	if caller == "" || (caller != domain.NormalizeAddress(req.Borrower) && caller != domain.NormalizeAddress(req.Lender)) {
		err := domain.ErrUnauthorized(0, "only a party to the rental can open its escrow")
		logger.ExitMethodWithError("escrowService.CreateEscrow", err, "caller", caller)
		return nil, err
	}

	id, err := s.ledger.CreateEscrow(ctx, ledger.CreateEscrowParams{
		Borrower:        req.Borrower,
		Lender:          req.Lender,
		RentalAmount:    req.RentalAmount,
		SecurityDeposit: req.SecurityDeposit,
		Duration:        req.Duration,
		Description:     req.Description,
	})
	if err != nil {
		logger.ExitMethodWithError("escrowService.CreateEscrow", err, "caller", caller)
		return nil, err
	}

	agreement, err := s.ledger.GetEscrow(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("escrowService.CreateEscrow", err, "escrowID", id)
		return nil, fmt.Errorf("failed to reload escrow %d: %w", id, err)
	}

	logger.ExitMethod("escrowService.CreateEscrow", "escrowID", id)
	return agreement, nil
}

func (s *escrowService) Deposit(ctx context.Context, caller string, id int64, amount int64) (*domain.EscrowAgreement, error) {
	return s.transition("Deposit", caller, id, func() (*domain.EscrowAgreement, error) {
		return s.ledger.Deposit(ctx, id, caller, amount)
	})
}

func (s *escrowService) ActivateRental(ctx context.Context, caller string, id int64) (*domain.EscrowAgreement, error) {
	return s.transition("ActivateRental", caller, id, func() (*domain.EscrowAgreement, error) {
		return s.ledger.ActivateRental(ctx, id, caller)
	})
}

func (s *escrowService) ReleaseToLender(ctx context.Context, caller string, id int64) (*domain.EscrowAgreement, error) {
	return s.transition("ReleaseToLender", caller, id, func() (*domain.EscrowAgreement, error) {
		return s.ledger.ReleaseToLender(ctx, id, caller)
	})
}

func (s *escrowService) RaiseDispute(ctx context.Context, caller string, id int64, reason string) (*domain.EscrowAgreement, error) {
	return s.transition("RaiseDispute", caller, id, func() (*domain.EscrowAgreement, error) {
		return s.ledger.RaiseDispute(ctx, id, caller, reason)
	})
}

func (s *escrowService) ResolveDispute(ctx context.Context, caller string, id int64, favorBorrower bool) (*domain.EscrowAgreement, error) {
	return s.transition("ResolveDispute", caller, id, func() (*domain.EscrowAgreement, error) {
		return s.ledger.ResolveDispute(ctx, id, caller, favorBorrower)
	})
}

func (s *escrowService) CancelEscrow(ctx context.Context, caller string, id int64) (*domain.EscrowAgreement, error) {
	return s.transition("CancelEscrow", caller, id, func() (*domain.EscrowAgreement, error) {
		return s.ledger.CancelEscrow(ctx, id, caller)
	})
}

func (s *escrowService) transition(op, caller string, id int64, fn func() (*domain.EscrowAgreement, error)) (*domain.EscrowAgreement, error) {
	method := "escrowService." + op
	logger.EnterMethod(method, "caller", caller, "escrowID", id)
	if domain.NormalizeAddress(caller) == "" {
		err := domain.ErrUnauthorized(id, "caller identity is required")
		logger.ExitMethodWithError(method, err, "escrowID", id)
		return nil, err
	}

	agreement, err := fn()
	if err != nil {
		logger.ExitMethodWithError(method, err, "caller", caller, "escrowID", id)
		return nil, err
	}
	logger.ExitMethod(method, "escrowID", id, "state", agreement.State)
	return agreement, nil
}

func (s *escrowService) GetEscrow(ctx context.Context, id int64) (*domain.EscrowAgreement, error) {
	return s.ledger.GetEscrow(ctx, id)
}

func (s *escrowService) GetUserEscrows(ctx context.Context, caller, address string) ([]domain.EscrowAgreement, error) {
	logger.EnterMethod("escrowService.GetUserEscrows", "caller", caller, "address", address)

	caller = domain.NormalizeAddress(caller)
	address = domain.NormalizeAddress(address)
	if address == "" {
		address = caller
	}
	if err := s.authorizeView(0, caller, address); err != nil {
		logger.ExitMethodWithError("escrowService.GetUserEscrows", err, "caller", caller, "address", address)
		return nil, err
	}

	agreements, err := s.ledger.GetUserEscrows(ctx, address)
	if err != nil {
		logger.ExitMethodWithError("escrowService.GetUserEscrows", err, "address", address)
		return nil, err
	}
	logger.ExitMethod("escrowService.GetUserEscrows", "address", address, "count", len(agreements))
	return agreements, nil
}

func (s *escrowService) ListEvents(ctx context.Context, caller string, id int64) ([]domain.EscrowEvent, error) {
	logger.EnterMethod("escrowService.ListEvents", "caller", caller, "escrowID", id)

	caller = domain.NormalizeAddress(caller)
	if caller == "" {
		err := domain.ErrUnauthorized(id, "caller identity is required")
		logger.ExitMethodWithError("escrowService.ListEvents", err, "escrowID", id)
		return nil, err
	}
	agreement, err := s.ledger.GetEscrow(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("escrowService.ListEvents", err, "escrowID", id)
		return nil, err
	}
	if err := s.authorizeView(id, caller, agreement.Borrower, agreement.Lender); err != nil {
		logger.ExitMethodWithError("escrowService.ListEvents", err, "caller", caller, "escrowID", id)
		return nil, err
	}

	events, err := s.ledger.ListEvents(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("escrowService.ListEvents", err, "escrowID", id)
		return nil, err
	}
	logger.ExitMethod("escrowService.ListEvents", "escrowID", id, "count", len(events))
	return events, nil
}

// authorizeView admits caller when it is one of owners or a platform admin.
func (s *escrowService) authorizeView(id int64, caller string, owners ...string) error {
	if caller == "" {
		return domain.ErrUnauthorized(id, "caller identity is required")
	}
	for _, owner := range owners {
		if caller == domain.NormalizeAddress(owner) {
			return nil
		}
	}
	if s.ledger.IsAdmin(caller) {
		return nil
	}
	return domain.ErrUnauthorized(id, "only a party or a platform admin can view these records")
}
