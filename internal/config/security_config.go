package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

const escrowServicePrefix = "/rentalescrow.v1.EscrowService/"

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,

	// EscrowService - Public reads
	escrowServicePrefix + "GetEscrow":        SecurityPublic,
	escrowServicePrefix + "GetFeePercentage": SecurityPublic,

	// EscrowService - Access Protected
	escrowServicePrefix + "CreateEscrow":    SecurityAccess,
	escrowServicePrefix + "Deposit":         SecurityAccess,
	escrowServicePrefix + "ActivateRental":  SecurityAccess,
	escrowServicePrefix + "ReleaseToLender": SecurityAccess,
	escrowServicePrefix + "RaiseDispute":    SecurityAccess,
	escrowServicePrefix + "ResolveDispute":  SecurityAccess,
	escrowServicePrefix + "CancelEscrow":    SecurityAccess,
	escrowServicePrefix + "GetUserEscrows":  SecurityAccess,
	escrowServicePrefix + "ListEvents":      SecurityAccess,
	escrowServicePrefix + "GetBalance":      SecurityAccess,
	escrowServicePrefix + "ListEntries":     SecurityAccess,

	// EscrowService - Owner operations, authorized again by the ledger
	escrowServicePrefix + "SetFeePercentage": SecurityAccess,
	escrowServicePrefix + "GetFeePool":       SecurityAccess,
	escrowServicePrefix + "WithdrawFees":     SecurityAccess,
}

// RateLimitedMethods are the state-changing RPCs subject to the per-caller token bucket
var RateLimitedMethods = map[string]bool{
	escrowServicePrefix + "CreateEscrow":     true,
	escrowServicePrefix + "Deposit":          true,
	escrowServicePrefix + "ActivateRental":   true,
	escrowServicePrefix + "ReleaseToLender":  true,
	escrowServicePrefix + "RaiseDispute":     true,
	escrowServicePrefix + "ResolveDispute":   true,
	escrowServicePrefix + "CancelEscrow":     true,
	escrowServicePrefix + "SetFeePercentage": true,
	escrowServicePrefix + "WithdrawFees":     true,
}

// GetSecurityLevel returns the level for a method; unknown methods require an access token
func GetSecurityLevel(method string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[method]; ok {
		return level
	}
	return SecurityAccess
}
