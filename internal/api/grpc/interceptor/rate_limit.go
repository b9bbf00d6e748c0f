package interceptor

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	apigrpc "rental-escrow-backend/internal/api/grpc"
	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/metrics"
)

// CallerLimiter applies a token bucket per caller address and periodically evicts
// idle callers.
type CallerLimiter struct {
	limit      rate.Limit
	burst      int
	maxCallers int
	idleTTL    time.Duration

	mu       sync.Mutex
	byCaller map[string]*bucket
	hits     uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewCallerLimiter returns nil when limiting is disabled or misconfigured; a nil
// limiter allows everything.
func NewCallerLimiter(cfg config.RateLimitConfig) *CallerLimiter {
	if !cfg.Enabled || cfg.RPS <= 0 || cfg.Burst <= 0 {
		return nil
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &CallerLimiter{
		limit:      rate.Limit(cfg.RPS),
		burst:      cfg.Burst,
		maxCallers: cfg.MaxCallers,
		idleTTL:    idleTTL,
		byCaller:   make(map[string]*bucket),
	}
}

// Allow reports whether caller may spend one token at now.
func (l *CallerLimiter) Allow(caller string, now time.Time) bool {
	if l == nil {
		return true
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byCaller[caller]
	if !ok {
		if l.maxCallers > 0 && len(l.byCaller) >= l.maxCallers {
			l.evictIdle(now)
		}
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byCaller[caller] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		l.evictIdle(now)
	}
	return allowed
}

func (l *CallerLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for k, v := range l.byCaller {
		if v.lastSeen.Before(cutoff) {
			delete(l.byCaller, k)
		}
	}
}

func (l *CallerLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byCaller)
}

type RateLimitInterceptor struct {
	limiter *CallerLimiter
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRateLimitInterceptor(limiter *CallerLimiter, m *metrics.Metrics) *RateLimitInterceptor {
	return &RateLimitInterceptor{limiter: limiter, metrics: m, now: time.Now}
}

// Unary rejects state-changing calls from callers that exceeded their budget. It
// must run after the auth interceptor so the caller address is known.
func (i *RateLimitInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if i.limiter == nil || !config.RateLimitedMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		caller := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(apigrpc.CallerAddressKey); len(values) > 0 {
				caller = values[0]
			}
		}

		if !i.limiter.Allow(caller, i.now()) {
			i.metrics.RateLimited(info.FullMethod)
			logger.Warn("Rate limit exceeded", "caller", caller, "method", info.FullMethod)
			return nil, apigrpc.ToStatus(domain.ErrRateLimited(caller))
		}
		return handler(ctx, req)
	}
}
