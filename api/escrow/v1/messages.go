package escrowv1

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

type Dispute struct {
	Reason        string     `json:"reason"`
	RaisedBy      string     `json:"raised_by"`
	RaisedAt      time.Time  `json:"raised_at"`
	ResolvedBy    string     `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	FavorBorrower *bool      `json:"favor_borrower,omitempty"`
}

func (m *Dispute) ToStruct() *structpb.Struct {
	f := map[string]*structpb.Value{
		"reason":    structpb.NewStringValue(m.Reason),
		"raised_by": structpb.NewStringValue(m.RaisedBy),
		"raised_at": timeValue(m.RaisedAt),
	}
	if m.ResolvedBy != "" {
		f["resolved_by"] = structpb.NewStringValue(m.ResolvedBy)
	}
	if m.ResolvedAt != nil {
		f["resolved_at"] = timeValue(*m.ResolvedAt)
	}
	if m.FavorBorrower != nil {
		f["favor_borrower"] = structpb.NewBoolValue(*m.FavorBorrower)
	}
	return &structpb.Struct{Fields: f}
}

func (m *Dispute) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Reason = r.str("reason")
	m.RaisedBy = r.str("raised_by")
	m.RaisedAt = r.when("raised_at")
	m.ResolvedBy = r.str("resolved_by")
	m.ResolvedAt = r.optWhen("resolved_at")
	m.FavorBorrower = r.optFlag("favor_borrower")
	return r.err
}

type Escrow struct {
	Id                int64     `json:"id"`
	Borrower          string    `json:"borrower"`
	Lender            string    `json:"lender"`
	RentalAmount      int64     `json:"rental_amount"`
	SecurityDeposit   int64     `json:"security_deposit"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	State             string    `json:"state"`
	ItemDescription   string    `json:"item_description"`
	BorrowerConfirmed bool      `json:"borrower_confirmed"`
	LenderConfirmed   bool      `json:"lender_confirmed"`
	FeeCharged        int64     `json:"fee_charged"`
	Dispute           *Dispute  `json:"dispute,omitempty"`
}

func (m *Escrow) ToStruct() *structpb.Struct {
	f := map[string]*structpb.Value{
		"id":                 int64Value(m.Id),
		"borrower":           structpb.NewStringValue(m.Borrower),
		"lender":             structpb.NewStringValue(m.Lender),
		"rental_amount":      int64Value(m.RentalAmount),
		"security_deposit":   int64Value(m.SecurityDeposit),
		"start_time":         timeValue(m.StartTime),
		"end_time":           timeValue(m.EndTime),
		"created_at":         timeValue(m.CreatedAt),
		"updated_at":         timeValue(m.UpdatedAt),
		"state":              structpb.NewStringValue(m.State),
		"item_description":   structpb.NewStringValue(m.ItemDescription),
		"borrower_confirmed": structpb.NewBoolValue(m.BorrowerConfirmed),
		"lender_confirmed":   structpb.NewBoolValue(m.LenderConfirmed),
		"fee_charged":        int64Value(m.FeeCharged),
	}
	if m.Dispute != nil {
		f["dispute"] = structpb.NewStructValue(m.Dispute.ToStruct())
	}
	return &structpb.Struct{Fields: f}
}

func (m *Escrow) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Id = r.i64("id")
	m.Borrower = r.str("borrower")
	m.Lender = r.str("lender")
	m.RentalAmount = r.i64("rental_amount")
	m.SecurityDeposit = r.i64("security_deposit")
	m.StartTime = r.when("start_time")
	m.EndTime = r.when("end_time")
	m.CreatedAt = r.when("created_at")
	m.UpdatedAt = r.when("updated_at")
	m.State = r.str("state")
	m.ItemDescription = r.str("item_description")
	m.BorrowerConfirmed = r.flag("borrower_confirmed")
	m.LenderConfirmed = r.flag("lender_confirmed")
	m.FeeCharged = r.i64("fee_charged")
	m.Dispute = nil
	if d := r.object("dispute"); d != nil {
		m.Dispute = new(Dispute)
		r.nested("dispute", d, m.Dispute)
	}
	return r.err
}

type Event struct {
	Id         int64             `json:"id"`
	EscrowId   int64             `json:"escrow_id"`
	Type       string            `json:"type"`
	Actor      string            `json:"actor"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (m *Event) ToStruct() *structpb.Struct {
	f := map[string]*structpb.Value{
		"id":         int64Value(m.Id),
		"escrow_id":  int64Value(m.EscrowId),
		"type":       structpb.NewStringValue(m.Type),
		"actor":      structpb.NewStringValue(m.Actor),
		"created_at": timeValue(m.CreatedAt),
	}
	if len(m.Attributes) > 0 {
		f["attributes"] = stringMapValue(m.Attributes)
	}
	return &structpb.Struct{Fields: f}
}

func (m *Event) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Id = r.i64("id")
	m.EscrowId = r.i64("escrow_id")
	m.Type = r.str("type")
	m.Actor = r.str("actor")
	m.Attributes = r.strMap("attributes")
	m.CreatedAt = r.when("created_at")
	return r.err
}

type LedgerEntry struct {
	Id          int64     `json:"id"`
	EscrowId    int64     `json:"escrow_id,omitempty"`
	Address     string    `json:"address"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m *LedgerEntry) ToStruct() *structpb.Struct {
	f := map[string]*structpb.Value{
		"id":          int64Value(m.Id),
		"address":     structpb.NewStringValue(m.Address),
		"amount":      int64Value(m.Amount),
		"type":        structpb.NewStringValue(m.Type),
		"description": structpb.NewStringValue(m.Description),
		"created_at":  timeValue(m.CreatedAt),
	}
	if m.EscrowId != 0 {
		f["escrow_id"] = int64Value(m.EscrowId)
	}
	return &structpb.Struct{Fields: f}
}

func (m *LedgerEntry) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Id = r.i64("id")
	m.EscrowId = r.i64("escrow_id")
	m.Address = r.str("address")
	m.Amount = r.i64("amount")
	m.Type = r.str("type")
	m.Description = r.str("description")
	m.CreatedAt = r.when("created_at")
	return r.err
}

type CreateEscrowRequest struct {
	Borrower        string `json:"borrower"`
	Lender          string `json:"lender"`
	RentalAmount    int64  `json:"rental_amount"`
	SecurityDeposit int64  `json:"security_deposit"`
	DurationSeconds int64  `json:"duration_seconds"`
	ItemDescription string `json:"item_description"`
}

func (m *CreateEscrowRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"borrower":         structpb.NewStringValue(m.Borrower),
		"lender":           structpb.NewStringValue(m.Lender),
		"rental_amount":    int64Value(m.RentalAmount),
		"security_deposit": int64Value(m.SecurityDeposit),
		"duration_seconds": int64Value(m.DurationSeconds),
		"item_description": structpb.NewStringValue(m.ItemDescription),
	}}
}

func (m *CreateEscrowRequest) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Borrower = r.str("borrower")
	m.Lender = r.str("lender")
	m.RentalAmount = r.i64("rental_amount")
	m.SecurityDeposit = r.i64("security_deposit")
	m.DurationSeconds = r.i64("duration_seconds")
	m.ItemDescription = r.str("item_description")
	return r.err
}

type EscrowResponse struct {
	Escrow *Escrow `json:"escrow"`
}

func (m *EscrowResponse) ToStruct() *structpb.Struct {
	f := map[string]*structpb.Value{}
	if m.Escrow != nil {
		f["escrow"] = structpb.NewStructValue(m.Escrow.ToStruct())
	}
	return &structpb.Struct{Fields: f}
}

func (m *EscrowResponse) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Escrow = nil
	if e := r.object("escrow"); e != nil {
		m.Escrow = new(Escrow)
		r.nested("escrow", e, m.Escrow)
	}
	return r.err
}

// EscrowIdRequest addresses a single agreement.
type EscrowIdRequest struct {
	EscrowId int64 `json:"escrow_id"`
}

func (m *EscrowIdRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"escrow_id": int64Value(m.EscrowId),
	}}
}

func (m *EscrowIdRequest) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.EscrowId = r.i64("escrow_id")
	return r.err
}

type DepositRequest struct {
	EscrowId int64 `json:"escrow_id"`
	Amount   int64 `json:"amount"`
}

func (m *DepositRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"escrow_id": int64Value(m.EscrowId),
		"amount":    int64Value(m.Amount),
	}}
}

func (m *DepositRequest) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.EscrowId = r.i64("escrow_id")
	m.Amount = r.i64("amount")
	return r.err
}

type RaiseDisputeRequest struct {
	EscrowId int64  `json:"escrow_id"`
	Reason   string `json:"reason"`
}

func (m *RaiseDisputeRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"escrow_id": int64Value(m.EscrowId),
		"reason":    structpb.NewStringValue(m.Reason),
	}}
}

func (m *RaiseDisputeRequest) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.EscrowId = r.i64("escrow_id")
	m.Reason = r.str("reason")
	return r.err
}

type ResolveDisputeRequest struct {
	EscrowId      int64 `json:"escrow_id"`
	FavorBorrower bool  `json:"favor_borrower"`
}

func (m *ResolveDisputeRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"escrow_id":      int64Value(m.EscrowId),
		"favor_borrower": structpb.NewBoolValue(m.FavorBorrower),
	}}
}

func (m *ResolveDisputeRequest) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.EscrowId = r.i64("escrow_id")
	m.FavorBorrower = r.flag("favor_borrower")
	return r.err
}

type GetUserEscrowsRequest struct {
	Address string `json:"address"`
}

func (m *GetUserEscrowsRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"address": structpb.NewStringValue(m.Address),
	}}
}

func (m *GetUserEscrowsRequest) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Address = r.str("address")
	return r.err
}

type GetUserEscrowsResponse struct {
	Escrows []*Escrow `json:"escrows"`
}

func (m *GetUserEscrowsResponse) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"escrows": listValue(m.Escrows),
	}}
}

func (m *GetUserEscrowsResponse) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	items := r.objects("escrows")
	m.Escrows = make([]*Escrow, 0, len(items))
	for _, item := range items {
		e := new(Escrow)
		r.nested("escrows", item, e)
		m.Escrows = append(m.Escrows, e)
	}
	return r.err
}

type ListEventsResponse struct {
	Events []*Event `json:"events"`
}

func (m *ListEventsResponse) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"events": listValue(m.Events),
	}}
}

func (m *ListEventsResponse) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	items := r.objects("events")
	m.Events = make([]*Event, 0, len(items))
	for _, item := range items {
		e := new(Event)
		r.nested("events", item, e)
		m.Events = append(m.Events, e)
	}
	return r.err
}

type GetBalanceRequest struct {
	Address string `json:"address,omitempty"`
}

func (m *GetBalanceRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"address": structpb.NewStringValue(m.Address),
	}}
}

func (m *GetBalanceRequest) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Address = r.str("address")
	return r.err
}

type GetBalanceResponse struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

func (m *GetBalanceResponse) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"address": structpb.NewStringValue(m.Address),
		"balance": int64Value(m.Balance),
	}}
}

func (m *GetBalanceResponse) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Address = r.str("address")
	m.Balance = r.i64("balance")
	return r.err
}

type ListEntriesRequest struct {
	Address  string `json:"address,omitempty"`
	Page     int32  `json:"page"`
	PageSize int32  `json:"page_size"`
}

func (m *ListEntriesRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"address":   structpb.NewStringValue(m.Address),
		"page":      structpb.NewNumberValue(float64(m.Page)),
		"page_size": structpb.NewNumberValue(float64(m.PageSize)),
	}}
}

func (m *ListEntriesRequest) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.Address = r.str("address")
	m.Page = r.i32("page")
	m.PageSize = r.i32("page_size")
	return r.err
}

type ListEntriesResponse struct {
	Entries    []*LedgerEntry `json:"entries"`
	TotalCount int32          `json:"total_count"`
}

func (m *ListEntriesResponse) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"entries":     listValue(m.Entries),
		"total_count": structpb.NewNumberValue(float64(m.TotalCount)),
	}}
}

func (m *ListEntriesResponse) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	items := r.objects("entries")
	m.Entries = make([]*LedgerEntry, 0, len(items))
	for _, item := range items {
		e := new(LedgerEntry)
		r.nested("entries", item, e)
		m.Entries = append(m.Entries, e)
	}
	m.TotalCount = r.i32("total_count")
	return r.err
}

// FeePercentage is both the SetFeePercentage request and the fee-rate response.
type FeePercentage struct {
	FeeBps uint32 `json:"fee_bps"`
}

func (m *FeePercentage) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"fee_bps": structpb.NewNumberValue(float64(m.FeeBps)),
	}}
}

func (m *FeePercentage) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.FeeBps = r.u32("fee_bps")
	return r.err
}

type FeePoolResponse struct {
	FeePool int64 `json:"fee_pool"`
}

func (m *FeePoolResponse) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"fee_pool": int64Value(m.FeePool),
	}}
}

func (m *FeePoolResponse) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.FeePool = r.i64("fee_pool")
	return r.err
}

type WithdrawFeesRequest struct {
	To     string `json:"to,omitempty"`
	Amount int64  `json:"amount"`
}

func (m *WithdrawFeesRequest) ToStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"to":     structpb.NewStringValue(m.To),
		"amount": int64Value(m.Amount),
	}}
}

func (m *WithdrawFeesRequest) FromStruct(s *structpb.Struct) error {
	r := newFieldReader(s)
	m.To = r.str("to")
	m.Amount = r.i64("amount")
	return r.err
}
