// Package verification answers whether an address has passed identity verification.
// The verification process itself lives outside this service.
package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
)

type Gate interface {
	IsAuthorized(ctx context.Context, address string) (bool, error)
}

// StaticGate authorizes a fixed set of addresses, or everyone when allowAll is set.
type StaticGate struct {
	allowAll bool
	allowed  map[string]struct{}
}

func NewStaticGate(allowAll bool, addresses ...string) *StaticGate {
	g := &StaticGate{allowAll: allowAll, allowed: make(map[string]struct{}, len(addresses))}
	for _, a := range addresses {
		g.allowed[domain.NormalizeAddress(a)] = struct{}{}
	}
	return g
}

func (g *StaticGate) IsAuthorized(_ context.Context, address string) (bool, error) {
	if g.allowAll {
		return true, nil
	}
	_, ok := g.allowed[domain.NormalizeAddress(address)]
	return ok, nil
}

// RepositoryGate reads verification status from the verified_identities table.
type RepositoryGate struct {
	identities repository.IdentityRepository
}

func NewRepositoryGate(identities repository.IdentityRepository) *RepositoryGate {
	return &RepositoryGate{identities: identities}
}

func (g *RepositoryGate) IsAuthorized(ctx context.Context, address string) (bool, error) {
	logger.DatabaseCall("SELECT", "verified_identities", "address", address)
	ok, err := g.identities.IsVerified(ctx, domain.NormalizeAddress(address))
	if err != nil {
		return false, fmt.Errorf("lookup verification for %s: %w", address, err)
	}
	return ok, nil
}

// CachedGate remembers positive and negative answers of another gate for ttl.
// Errors are not cached.
type CachedGate struct {
	next  Gate
	cache *expirable.LRU[string, bool]
}

func NewCachedGate(next Gate, size int, ttl time.Duration) *CachedGate {
	return &CachedGate{next: next, cache: expirable.NewLRU[string, bool](size, nil, ttl)}
}

func (g *CachedGate) IsAuthorized(ctx context.Context, address string) (bool, error) {
	key := domain.NormalizeAddress(address)
	if ok, hit := g.cache.Get(key); hit {
		return ok, nil
	}
	ok, err := g.next.IsAuthorized(ctx, key)
	if err != nil {
		return false, err
	}
	g.cache.Add(key, ok)
	return ok, nil
}

// forget drops a cached answer. Status changes made outside this process reach the
// cache only through ttl.
func (g *CachedGate) forget(address string) {
	g.cache.Remove(domain.NormalizeAddress(address))
}

// NewFromConfig builds the configured gate. Database lookups are always cached.
func NewFromConfig(cfg config.VerificationConfig, identities repository.IdentityRepository) Gate {
	if cfg.Mode == "database" {
		return NewCachedGate(NewRepositoryGate(identities), cfg.CacheSize, cfg.CacheTTL)
	}
	return NewStaticGate(cfg.AllowAll, cfg.Allowlist...)
}
