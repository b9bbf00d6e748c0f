package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/ledger"
)

// MockLedger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) agreement(args mock.Arguments) (*domain.EscrowAgreement, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EscrowAgreement), args.Error(1)
}

func (m *MockLedger) CreateEscrow(ctx context.Context, p ledger.CreateEscrowParams) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockLedger) Deposit(ctx context.Context, id int64, payer string, amount int64) (*domain.EscrowAgreement, error) {
	return m.agreement(m.Called(ctx, id, payer, amount))
}
func (m *MockLedger) ActivateRental(ctx context.Context, id int64, caller string) (*domain.EscrowAgreement, error) {
	return m.agreement(m.Called(ctx, id, caller))
}
func (m *MockLedger) ReleaseToLender(ctx context.Context, id int64, caller string) (*domain.EscrowAgreement, error) {
	return m.agreement(m.Called(ctx, id, caller))
}
func (m *MockLedger) RaiseDispute(ctx context.Context, id int64, caller, reason string) (*domain.EscrowAgreement, error) {
	return m.agreement(m.Called(ctx, id, caller, reason))
}
func (m *MockLedger) ResolveDispute(ctx context.Context, id int64, caller string, favorBorrower bool) (*domain.EscrowAgreement, error) {
	return m.agreement(m.Called(ctx, id, caller, favorBorrower))
}
func (m *MockLedger) CancelEscrow(ctx context.Context, id int64, caller string) (*domain.EscrowAgreement, error) {
	return m.agreement(m.Called(ctx, id, caller))
}
func (m *MockLedger) GetEscrow(ctx context.Context, id int64) (*domain.EscrowAgreement, error) {
	return m.agreement(m.Called(ctx, id))
}
func (m *MockLedger) GetUserEscrows(ctx context.Context, address string) ([]domain.EscrowAgreement, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EscrowAgreement), args.Error(1)
}
func (m *MockLedger) ListEvents(ctx context.Context, id int64) ([]domain.EscrowEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EscrowEvent), args.Error(1)
}
func (m *MockLedger) IsAdmin(address string) bool {
	return m.Called(address).Bool(0)
}
func (m *MockLedger) SetFeePercentage(ctx context.Context, caller string, bps uint32) error {
	return m.Called(ctx, caller, bps).Error(0)
}
func (m *MockLedger) GetFeePercentage(ctx context.Context) (uint32, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint32), args.Error(1)
}
func (m *MockLedger) GetFeePool(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockLedger) WithdrawFees(ctx context.Context, caller, to string, amount int64) error {
	return m.Called(ctx, caller, to, amount).Error(0)
}
func (m *MockLedger) GetBalance(ctx context.Context, address string) (int64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockLedger) ListEntries(ctx context.Context, address string, page, pageSize int32) ([]domain.LedgerEntry, int32, error) {
	args := m.Called(ctx, address, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int32), args.Error(2)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Get(1).(int32), args.Error(2)
}
