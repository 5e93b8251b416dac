package types

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// GenesisState is the complete aggregator state. An empty Rounds list means a
// fresh deployment: InitGenesis initializes the aggregator and opens round 0.
type GenesisState struct {
	Config           Config              `json:"config"`
	RoundParams      RoundParams         `json:"round_params"`
	ReportingRoundID uint64              `json:"reporting_round_id"`
	LatestRoundID    uint64              `json:"latest_round_id"`
	Funds            Funds               `json:"funds"`
	Rounds           []Round             `json:"rounds"`
	RoundDetails     []RoundDetailsEntry `json:"round_details"`
	Oracles          []OracleEntry       `json:"oracles"`
	Requesters       []RequesterEntry    `json:"requesters"`
	Deposits         []Deposit           `json:"deposits"`
}

// RoundDetailsEntry pairs an aggregation buffer with its round id.
type RoundDetailsEntry struct {
	RoundID uint64       `json:"round_id"`
	Details RoundDetails `json:"details"`
}

// OracleEntry pairs an oracle address with its status.
type OracleEntry struct {
	Address string       `json:"address"`
	Status  OracleStatus `json:"status"`
}

// RequesterEntry pairs a requester address with its permissions.
type RequesterEntry struct {
	Address   string    `json:"address"`
	Requester Requester `json:"requester"`
}

// DefaultGenesis returns the default genesis state for the aggregator module.
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Config:       DefaultConfig(),
		RoundParams:  DefaultRoundParams(),
		Funds:        ZeroFunds(),
		Rounds:       []Round{},
		RoundDetails: []RoundDetailsEntry{},
		Oracles:      []OracleEntry{},
		Requesters:   []RequesterEntry{},
		Deposits:     []Deposit{},
	}
}

// Validate ensures the genesis state is well-formed.
func (gs GenesisState) Validate() error {
	if err := gs.Config.Validate(); err != nil {
		return err
	}
	if err := gs.RoundParams.Validate(); err != nil {
		return err
	}
	if gs.Funds.Available.IsNil() || gs.Funds.Allocated.IsNil() {
		return fmt.Errorf("funds must be set")
	}
	if gs.Funds.Available.IsNegative() || gs.Funds.Allocated.IsNegative() {
		return fmt.Errorf("funds cannot be negative")
	}

	rounds := make(map[uint64]bool, len(gs.Rounds))
	for _, r := range gs.Rounds {
		if rounds[r.RoundID] {
			return fmt.Errorf("duplicate round %d", r.RoundID)
		}
		rounds[r.RoundID] = true
	}
	if len(gs.Rounds) > 0 && !rounds[gs.ReportingRoundID] {
		return fmt.Errorf("reporting round %d missing from rounds", gs.ReportingRoundID)
	}
	if gs.LatestRoundID > gs.ReportingRoundID {
		return fmt.Errorf("latest round %d ahead of reporting round %d", gs.LatestRoundID, gs.ReportingRoundID)
	}
	for _, d := range gs.RoundDetails {
		if !rounds[d.RoundID] {
			return fmt.Errorf("round details for unknown round %d", d.RoundID)
		}
	}

	withdrawable := math.ZeroInt()
	seen := make(map[string]bool, len(gs.Oracles))
	for _, o := range gs.Oracles {
		if _, err := sdk.AccAddressFromBech32(o.Address); err != nil {
			return fmt.Errorf("invalid oracle address %q: %w", o.Address, err)
		}
		if seen[o.Address] {
			return fmt.Errorf("duplicate oracle %s", o.Address)
		}
		seen[o.Address] = true
		if o.Status.Withdrawable.IsNil() || o.Status.Withdrawable.IsNegative() {
			return fmt.Errorf("oracle %s has invalid withdrawable", o.Address)
		}
		withdrawable = withdrawable.Add(o.Status.Withdrawable)
	}
	if !withdrawable.Equal(gs.Funds.Allocated) {
		return fmt.Errorf("allocated funds %s do not match oracle withdrawable total %s", gs.Funds.Allocated, withdrawable)
	}
	if uint64(len(gs.Oracles)) < gs.RoundParams.MaxSubmissions {
		return fmt.Errorf("max submissions %d exceeds oracle count %d", gs.RoundParams.MaxSubmissions, len(gs.Oracles))
	}

	requesters := make(map[string]bool, len(gs.Requesters))
	for _, r := range gs.Requesters {
		if _, err := sdk.AccAddressFromBech32(r.Address); err != nil {
			return fmt.Errorf("invalid requester address %q: %w", r.Address, err)
		}
		if requesters[r.Address] {
			return fmt.Errorf("duplicate requester %s", r.Address)
		}
		requesters[r.Address] = true
	}

	deposited := math.ZeroInt()
	depositors := make(map[string]bool, len(gs.Deposits))
	for _, d := range gs.Deposits {
		if _, err := sdk.AccAddressFromBech32(d.Depositor); err != nil {
			return fmt.Errorf("invalid depositor address %q: %w", d.Depositor, err)
		}
		if depositors[d.Depositor] {
			return fmt.Errorf("duplicate depositor %s", d.Depositor)
		}
		depositors[d.Depositor] = true
		if d.Amount.IsNil() || !d.Amount.IsPositive() {
			return fmt.Errorf("depositor %s has non-positive deposit", d.Depositor)
		}
		deposited = deposited.Add(d.Amount)
	}
	if deposited.GT(gs.Funds.Available) {
		return fmt.Errorf("deposits %s exceed available funds %s", deposited, gs.Funds.Available)
	}

	return nil
}
