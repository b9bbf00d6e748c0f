package grpc

import (
	escrowv1 "rental-escrow-backend/api/escrow/v1"
	"rental-escrow-backend/internal/domain"
)

func MapDomainEscrowToProto(a *domain.EscrowAgreement) *escrowv1.Escrow {
	if a == nil {
		return nil
	}
	return &escrowv1.Escrow{
		Id:                a.ID,
		Borrower:          a.Borrower,
		Lender:            a.Lender,
		RentalAmount:      a.RentalAmount,
		SecurityDeposit:   a.SecurityDeposit,
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
		State:             string(a.State),
		ItemDescription:   a.ItemDescription,
		BorrowerConfirmed: a.BorrowerConfirmed,
		LenderConfirmed:   a.LenderConfirmed,
		FeeCharged:        a.FeeCharged,
		Dispute:           MapDomainDisputeToProto(a.Dispute),
	}
}

func MapDomainDisputeToProto(d *domain.Dispute) *escrowv1.Dispute {
	if d == nil {
		return nil
	}
	return &escrowv1.Dispute{
		Reason:        d.Reason,
		RaisedBy:      d.RaisedBy,
		RaisedAt:      d.RaisedAt,
		ResolvedBy:    d.ResolvedBy,
		ResolvedAt:    d.ResolvedAt,
		FavorBorrower: d.FavorBorrower,
	}
}

func MapDomainEscrowsToProto(agreements []domain.EscrowAgreement) []*escrowv1.Escrow {
	out := make([]*escrowv1.Escrow, 0, len(agreements))
	for i := range agreements {
		out = append(out, MapDomainEscrowToProto(&agreements[i]))
	}
	return out
}

func MapDomainEventToProto(e domain.EscrowEvent) *escrowv1.Event {
	return &escrowv1.Event{
		Id:         e.ID,
		EscrowId:   e.EscrowID,
		Type:       string(e.Type),
		Actor:      e.Actor,
		Attributes: e.Attributes,
		CreatedAt:  e.CreatedAt,
	}
}

func MapDomainEventsToProto(events []domain.EscrowEvent) []*escrowv1.Event {
	out := make([]*escrowv1.Event, 0, len(events))
	for _, e := range events {
		out = append(out, MapDomainEventToProto(e))
	}
	return out
}

func MapDomainEntryToProto(e domain.LedgerEntry) *escrowv1.LedgerEntry {
	entry := &escrowv1.LedgerEntry{
		Id:          e.ID,
		Address:     e.Address,
		Amount:      e.Amount,
		Type:        string(e.Type),
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
	if e.EscrowID != nil {
		entry.EscrowId = *e.EscrowID
	}
	return entry
}
