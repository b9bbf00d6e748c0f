package service

import (
	"context"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
)

type platformService struct {
	ledger Ledger
}

func NewPlatformService(l Ledger) PlatformService {
	return &platformService{ledger: l}
}

func (s *platformService) SetFeePercentage(ctx context.Context, caller string, bps uint32) error {
	logger.EnterMethod("platformService.SetFeePercentage", "caller", caller, "bps", bps)
	if err := s.ledger.SetFeePercentage(ctx, caller, bps); err != nil {
		logger.ExitMethodWithError("platformService.SetFeePercentage", err, "caller", caller)
		return err
	}
	logger.Info("Platform fee updated", "caller", caller, "bps", bps)
	logger.ExitMethod("platformService.SetFeePercentage")
	return nil
}

func (s *platformService) GetFeePercentage(ctx context.Context) (uint32, error) {
	return s.ledger.GetFeePercentage(ctx)
}

func (s *platformService) GetFeePool(ctx context.Context) (int64, error) {
	return s.ledger.GetFeePool(ctx)
}

func (s *platformService) WithdrawFees(ctx context.Context, caller, to string, amount int64) error {
	logger.EnterMethod("platformService.WithdrawFees", "caller", caller, "to", to, "amount", amount)
	if err := s.ledger.WithdrawFees(ctx, caller, to, amount); err != nil {
		logger.ExitMethodWithError("platformService.WithdrawFees", err, "caller", caller)
		return err
	}
	logger.Info("Platform fees withdrawn", "caller", caller, "to", to, "amount", amount)
	logger.ExitMethod("platformService.WithdrawFees")
	return nil
}

type accountService struct {
	ledger Ledger
}

func NewAccountService(l Ledger) AccountService {
	return &accountService{ledger: l}
}

// GetBalance returns the caller's own balance. An empty address means the caller.
func (s *accountService) GetBalance(ctx context.Context, caller, address string) (int64, error) {
	address, err := ownAccount(caller, address)
	if err != nil {
		return 0, err
	}
	return s.ledger.GetBalance(ctx, address)
}

func (s *accountService) ListEntries(ctx context.Context, caller, address string, page, pageSize int32) ([]domain.LedgerEntry, int32, error) {
	address, err := ownAccount(caller, address)
	if err != nil {
		return nil, 0, err
	}
	return s.ledger.ListEntries(ctx, address, page, pageSize)
}

func ownAccount(caller, address string) (string, error) {
	caller = domain.NormalizeAddress(caller)
	address = domain.NormalizeAddress(address)
	if address == "" {
		address = caller
	}
	if caller == "" || address != caller {
		return "", domain.ErrUnauthorized(0, "accounts are only visible to their holder")
	}
	return address, nil
}
