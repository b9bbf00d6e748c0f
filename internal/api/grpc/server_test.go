package grpc_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	escrowv1 "rental-escrow-backend/api/escrow/v1"
	apigrpc "rental-escrow-backend/internal/api/grpc"
	"rental-escrow-backend/internal/api/grpc/interceptor"
	"rental-escrow-backend/internal/arbiter"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/ledger"
	"rental-escrow-backend/internal/repository/sqlstore"
	"rental-escrow-backend/internal/security"
	"rental-escrow-backend/internal/service"
	"rental-escrow-backend/internal/verification"
)

type harness struct {
	conn   *grpc.ClientConn
	client *escrowv1.EscrowServiceClient
	tokens security.TokenManager
	clock  *clock.Mock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "grpc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	arb, err := arbiter.New("judge")
	require.NoError(t, err)

	l, err := ledger.New(store, verification.NewStaticGate(false, "alice", "bob"), arb, ledger.Config{
		MinDuration:          time.Hour,
		MaxDuration:          365 * 24 * time.Hour,
		DisputeTimeout:       7 * 24 * time.Hour,
		MaxDescriptionLength: 500,
		MaxReasonLength:      500,
		DefaultFeeBps:        250,
		Owner:                "owner",
	}, ledger.WithClock(mock))
	require.NoError(t, err)

	handler := apigrpc.NewEscrowHandler(
		service.NewEscrowService(l),
		service.NewAccountService(l),
		service.NewPlatformService(l),
	)
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", "escrow-test", time.Hour)

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptor.NewAuthInterceptor(tokens).Unary()))
	escrowv1.RegisterEscrowServiceServer(server, handler)

	lis := bufconn.Listen(1 << 20)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &harness{conn: conn, client: escrowv1.NewEscrowServiceClient(conn), tokens: tokens, clock: mock}
}

func (h *harness) as(t *testing.T, address string) context.Context {
	t.Helper()
	token, err := h.tokens.GenerateAccessToken(address, nil)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestEscrowServer_ReleaseFlow(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.as(t, "alice"), h.as(t, "bob")

	created, err := h.client.CreateEscrow(alice, &escrowv1.CreateEscrowRequest{
		Borrower:        "alice",
		Lender:          "bob",
		RentalAmount:    1_000_000,
		SecurityDeposit: 500_000,
		DurationSeconds: 86400,
		ItemDescription: "mirrorless camera",
	})
	require.NoError(t, err)
	id := created.Escrow.Id
	assert.Equal(t, string(domain.EscrowStateCreated), created.Escrow.State)

	_, err = h.client.Deposit(alice, &escrowv1.DepositRequest{EscrowId: id, Amount: 1_500_000})
	require.NoError(t, err)
	activated, err := h.client.ActivateRental(bob, &escrowv1.EscrowIdRequest{EscrowId: id})
	require.NoError(t, err)
	assert.True(t, activated.Escrow.LenderConfirmed)

	_, err = h.client.ReleaseToLender(bob, &escrowv1.EscrowIdRequest{EscrowId: id})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, domain.CodeRentalNotEnded, apigrpc.CodeFromStatus(err))

	h.clock.Add(25 * time.Hour)
	released, err := h.client.ReleaseToLender(bob, &escrowv1.EscrowIdRequest{EscrowId: id})
	require.NoError(t, err)
	assert.Equal(t, string(domain.EscrowStateCompleted), released.Escrow.State)
	assert.Equal(t, int64(25_000), released.Escrow.FeeCharged)

	bal, err := h.client.GetBalance(bob, &escrowv1.GetBalanceRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(975_000), bal.Balance)

	events, err := h.client.ListEvents(alice, &escrowv1.EscrowIdRequest{EscrowId: id})
	require.NoError(t, err)
	require.NotEmpty(t, events.Events)
	assert.Equal(t, string(domain.EventEscrowCreated), events.Events[0].Type)

	mine, err := h.client.GetUserEscrows(alice, &escrowv1.GetUserEscrowsRequest{})
	require.NoError(t, err)
	require.Len(t, mine.Escrows, 1)
	assert.Equal(t, id, mine.Escrows[0].Id)
}

func TestEscrowServer_Errors(t *testing.T) {
	h := newHarness(t)
	alice := h.as(t, "alice")

	t.Run("Unauthenticated", func(t *testing.T) {
		_, err := h.client.Deposit(context.Background(), &escrowv1.DepositRequest{EscrowId: 1, Amount: 1})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("PublicReadNotFound", func(t *testing.T) {
		_, err := h.client.GetEscrow(context.Background(), &escrowv1.EscrowIdRequest{EscrowId: 999})
		assert.Equal(t, codes.NotFound, status.Code(err))
		assert.Equal(t, domain.CodeEscrowNotFound, apigrpc.CodeFromStatus(err))
	})

	t.Run("OutsiderCannotOpen", func(t *testing.T) {
		_, err := h.client.CreateEscrow(h.as(t, "mallory"), &escrowv1.CreateEscrowRequest{
			Borrower: "alice", Lender: "bob", RentalAmount: 10, DurationSeconds: 7200, ItemDescription: "drill",
		})
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("WrongDeposit", func(t *testing.T) {
		created, err := h.client.CreateEscrow(alice, &escrowv1.CreateEscrowRequest{
			Borrower: "alice", Lender: "bob", RentalAmount: 100, SecurityDeposit: 50, DurationSeconds: 7200, ItemDescription: "drill",
		})
		require.NoError(t, err)
		_, err = h.client.Deposit(alice, &escrowv1.DepositRequest{EscrowId: created.Escrow.Id, Amount: 149})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.Equal(t, domain.CodeInsufficientDeposit, apigrpc.CodeFromStatus(err))
	})

	t.Run("OversizedDuration", func(t *testing.T) {
		_, err := h.client.CreateEscrow(alice, &escrowv1.CreateEscrowRequest{
			Borrower: "alice", Lender: "bob", RentalAmount: 100, DurationSeconds: 1 << 62, ItemDescription: "drill",
		})
		assert.Equal(t, domain.CodeInvalidDuration, apigrpc.CodeFromStatus(err))
	})

	t.Run("MalformedPayload", func(t *testing.T) {
		wire, err := structpb.NewStruct(map[string]any{"escrow_id": "one"})
		require.NoError(t, err)
		err = h.conn.Invoke(context.Background(), escrowv1.FullMethod("GetEscrow"), wire, &structpb.Struct{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("FeeAdministration", func(t *testing.T) {
		_, err := h.client.SetFeePercentage(alice, &escrowv1.FeePercentage{FeeBps: 100})
		assert.Equal(t, codes.PermissionDenied, status.Code(err))

		_, err = h.client.SetFeePercentage(h.as(t, "owner"), &escrowv1.FeePercentage{FeeBps: 100})
		require.NoError(t, err)
		fee, err := h.client.GetFeePercentage(context.Background(), &emptypb.Empty{})
		require.NoError(t, err)
		assert.Equal(t, uint32(100), fee.FeeBps)
	})
}

func TestEscrowServer_PrivateViews(t *testing.T) {
	h := newHarness(t)
	alice, mallory := h.as(t, "alice"), h.as(t, "mallory")

	created, err := h.client.CreateEscrow(alice, &escrowv1.CreateEscrowRequest{
		Borrower: "alice", Lender: "bob", RentalAmount: 100, DurationSeconds: 7200, ItemDescription: "drill",
	})
	require.NoError(t, err)
	id := created.Escrow.Id

	_, err = h.client.ListEvents(mallory, &escrowv1.EscrowIdRequest{EscrowId: id})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, domain.CodeUnauthorizedAccess, apigrpc.CodeFromStatus(err))

	_, err = h.client.GetUserEscrows(mallory, &escrowv1.GetUserEscrowsRequest{Address: "alice"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	events, err := h.client.ListEvents(h.as(t, "judge"), &escrowv1.EscrowIdRequest{EscrowId: id})
	require.NoError(t, err)
	assert.NotEmpty(t, events.Events)

	theirs, err := h.client.GetUserEscrows(h.as(t, "owner"), &escrowv1.GetUserEscrowsRequest{Address: "bob"})
	require.NoError(t, err)
	assert.Len(t, theirs.Escrows, 1)
}
