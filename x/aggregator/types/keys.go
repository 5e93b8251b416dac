package types

import (
	"encoding/binary"
)

const (
	// ModuleName defines the module name
	ModuleName = "aggregator"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// ReserveRounds is the number of full payout rounds that must be pre-funded
	// before a round configuration is accepted or funds are withdrawn.
	ReserveRounds uint64 = 2

	// RoundMax is the ending round of an oracle that has not been scheduled for removal.
	RoundMax = ^uint64(0)
)

var (
	// ModuleNamespace is the namespace byte for the aggregator module (0x05)
	// All store keys are prefixed with this byte to prevent collisions with other modules
	ModuleNamespace = byte(0x05)

	// ConfigKey is the key for the immutable module configuration
	ConfigKey = []byte{0x05, 0x01}

	// RoundParamsKey is the key for the parameters applied to future rounds
	RoundParamsKey = []byte{0x05, 0x02}

	// ReportingRoundKey stores the id of the round currently collecting submissions
	ReportingRoundKey = []byte{0x05, 0x03}

	// LatestRoundKey stores the id of the most recently answered round
	LatestRoundKey = []byte{0x05, 0x04}

	// FundsKey stores the available/allocated totals
	FundsKey = []byte{0x05, 0x05}

	// RoundKeyPrefix is the prefix for the permanent round ledger
	RoundKeyPrefix = []byte{0x05, 0x06}

	// RoundDetailsKeyPrefix is the prefix for per-round aggregation buffers
	RoundDetailsKeyPrefix = []byte{0x05, 0x07}

	// OracleKeyPrefix is the prefix for oracle status records
	OracleKeyPrefix = []byte{0x05, 0x08}

	// RequesterKeyPrefix is the prefix for requester permissions
	RequesterKeyPrefix = []byte{0x05, 0x09}

	// DepositKeyPrefix is the prefix for depositor balances keyed by address
	DepositKeyPrefix = []byte{0x05, 0x0A}

	// DepositOrderKeyPrefix indexes depositors by insertion sequence so draw-down
	// can walk them oldest first
	DepositOrderKeyPrefix = []byte{0x05, 0x0B}

	// DepositSequenceKey stores the next deposit insertion sequence
	DepositSequenceKey = []byte{0x05, 0x0C}
)

// Uint64ToBytes encodes a uint64 big-endian so keys sort numerically.
func Uint64ToBytes(n uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, n)
	return bz
}

// BytesToUint64 decodes a big-endian uint64; short input decodes to 0.
func BytesToUint64(bz []byte) uint64 {
	if len(bz) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

func prefixed(prefix []byte, suffix []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(suffix))
	key = append(key, prefix...)
	return append(key, suffix...)
}

// GetRoundKey returns the store key for a round
func GetRoundKey(roundID uint64) []byte {
	return prefixed(RoundKeyPrefix, Uint64ToBytes(roundID))
}

// GetRoundDetailsKey returns the store key for a round's aggregation buffer
func GetRoundDetailsKey(roundID uint64) []byte {
	return prefixed(RoundDetailsKeyPrefix, Uint64ToBytes(roundID))
}

// GetOracleKey returns the store key for an oracle status
func GetOracleKey(oracle []byte) []byte {
	return prefixed(OracleKeyPrefix, oracle)
}

// GetRequesterKey returns the store key for a requester
func GetRequesterKey(requester []byte) []byte {
	return prefixed(RequesterKeyPrefix, requester)
}

// GetDepositKey returns the store key for a depositor balance
func GetDepositKey(depositor []byte) []byte {
	return prefixed(DepositKeyPrefix, depositor)
}

// GetDepositOrderKey returns the index key for a deposit insertion sequence
func GetDepositOrderKey(sequence uint64) []byte {
	return prefixed(DepositOrderKeyPrefix, Uint64ToBytes(sequence))
}
