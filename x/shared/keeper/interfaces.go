// Package keeper provides shared keeper interfaces for cross-module communication.
package keeper

import (
	"context"

	sdkmath "cosmossdk.io/math"
)

// =============================================================================
// Aggregator Keeper Interfaces (Versioned)
// =============================================================================

// AggregatorKeeperV1 is the read-only feed interface for modules consuming
// aggregator answers. Modules should depend on this interface rather than
// the concrete keeper.
type AggregatorKeeperV1 interface {
	// LatestRound returns the most recently answered round.
	// Returns false when no round has been answered yet.
	LatestRound(ctx context.Context) (RoundInfo, bool)

	// Round returns a round by id and whether it exists.
	Round(ctx context.Context, roundID uint64) (RoundInfo, bool)
}

// RoundInfo holds round data returned by aggregator queries.
type RoundInfo struct {
	RoundID         uint64
	Answer          []sdkmath.Uint
	Decimals        uint32
	StartedAt       uint64
	UpdatedAt       uint64
	AnsweredInRound uint64
}

// Stale reports whether the answer was carried forward from an earlier round.
func (r RoundInfo) Stale() bool {
	return r.AnsweredInRound < r.RoundID
}

// =============================================================================
// Version Constants
// =============================================================================

const (
	// AggregatorKeeperVersion is the current aggregator keeper interface version.
	AggregatorKeeperVersion = "v1.0.0"
)

/*
API Versioning Guidelines:

1. MINOR VERSION BUMP (v1.0 -> v1.1):
   - Add new methods to Extended interfaces
   - Never remove or change existing method signatures

2. MAJOR VERSION BUMP (v1 -> v2):
   - Create new interface (e.g., AggregatorKeeperV2)
   - Old interfaces remain for backwards compatibility

3. ADAPTER PATTERN:
   - If keeper doesn't match interface exactly, create an adapter
   - Adapters live in the module using the interface
*/
