package interceptor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apigrpc "rental-escrow-backend/internal/api/grpc"
	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/metrics"
	"rental-escrow-backend/internal/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func callerOf(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(apigrpc.CallerAddressKey); len(v) > 0 {
		return v[0]
	}
	return ""
}

func TestAuthInterceptor(t *testing.T) {
	tm := security.NewTokenManager(testSecret, "escrow-test", time.Hour)
	auth := NewAuthInterceptor(tm).Unary()
	token, err := tm.GenerateAccessToken("alice", nil)
	require.NoError(t, err)

	var seen string
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = callerOf(ctx)
		return "ok", nil
	}
	protected := &grpc.UnaryServerInfo{FullMethod: "/rentalescrow.v1.EscrowService/Deposit"}
	public := &grpc.UnaryServerInfo{FullMethod: "/rentalescrow.v1.EscrowService/GetEscrow"}

	t.Run("ValidTokenInjectsCaller", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
		_, err := auth(ctx, nil, protected, handler)
		require.NoError(t, err)
		assert.Equal(t, "alice", seen)
	})

	t.Run("SpoofedCallerHeaderIgnored", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
			"authorization", "Bearer "+token,
			apigrpc.CallerAddressKey, "judge",
		))
		_, err := auth(ctx, nil, protected, handler)
		require.NoError(t, err)
		assert.Equal(t, "alice", seen)
	})

	t.Run("MissingToken", func(t *testing.T) {
		_, err := auth(context.Background(), nil, protected, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("InvalidToken", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer garbage"))
		_, err := auth(ctx, nil, protected, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("PublicWithoutToken", func(t *testing.T) {
		seen = "unset"
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(apigrpc.CallerAddressKey, "judge"))
		_, err := auth(ctx, nil, public, handler)
		require.NoError(t, err)
		assert.Equal(t, "", seen)
	})
}

func TestCallerLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("DisabledIsNil", func(t *testing.T) {
		l := NewCallerLimiter(config.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1})
		assert.Nil(t, l)
		assert.True(t, l.Allow("alice", now))
	})

	t.Run("BurstThenRefill", func(t *testing.T) {
		l := NewCallerLimiter(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2})
		assert.True(t, l.Allow("alice", now))
		assert.True(t, l.Allow("alice", now))
		assert.False(t, l.Allow("alice", now))
		assert.True(t, l.Allow("bob", now))
		assert.True(t, l.Allow("alice", now.Add(time.Second)))
	})

	t.Run("IdleCallersEvictedAtCapacity", func(t *testing.T) {
		l := NewCallerLimiter(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1, MaxCallers: 2, IdleTTL: time.Minute})
		l.Allow("a", now)
		l.Allow("b", now)
		assert.Equal(t, 2, l.size())
		l.Allow("c", now.Add(2*time.Minute))
		assert.Equal(t, 1, l.size())
	})
}

func TestRateLimitInterceptor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	l := NewCallerLimiter(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1})
	rl := NewRateLimitInterceptor(l, m)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }
	unary := rl.Unary()

	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }
	deposit := &grpc.UnaryServerInfo{FullMethod: "/rentalescrow.v1.EscrowService/Deposit"}
	read := &grpc.UnaryServerInfo{FullMethod: "/rentalescrow.v1.EscrowService/GetEscrow"}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(apigrpc.CallerAddressKey, "alice"))

	_, err := unary(ctx, nil, deposit, handler)
	require.NoError(t, err)

	_, err = unary(ctx, nil, deposit, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, domain.CodeRateLimited, apigrpc.CodeFromStatus(err))

	_, err = unary(ctx, nil, read, handler)
	assert.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var limited float64
	for _, f := range families {
		if f.GetName() == "escrow_rate_limited_total" {
			for _, mtr := range f.GetMetric() {
				limited += mtr.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), limited)
}
