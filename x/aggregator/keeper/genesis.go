package keeper

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// Initialize fixes the configuration, sets the payment amount and timeout for
// future rounds and opens round 0. It can run only once.
func (k Keeper) Initialize(ctx context.Context, cfg types.Config, paymentAmount math.Int, timeout uint64) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	err := k.atomically(ctx, func(ctx sdk.Context) error {
		if k.IsInitialized(ctx) {
			return types.ErrAlreadyInitialized
		}
		if err := k.setConfig(ctx, cfg); err != nil {
			return err
		}
		if err := k.setFunds(ctx, types.ZeroFunds()); err != nil {
			return err
		}
		params := types.RoundParams{PaymentAmount: paymentAmount, Timeout: timeout}
		if err := k.updateFutureRounds(ctx, params); err != nil {
			return err
		}
		return k.initializeNewRound(ctx, 0, types.ModuleName)
	})
	if err != nil {
		return err
	}

	k.Logger(ctx).Info("aggregator initialized",
		"denom", cfg.Denom,
		"description", cfg.Description,
		"values_count", cfg.ValuesCount,
	)
	return nil
}

// InitGenesis imports the aggregator state. A genesis without rounds opens
// round 0 with the given parameters.
func (k Keeper) InitGenesis(ctx context.Context, gs types.GenesisState) error {
	if err := gs.Validate(); err != nil {
		return errorsmod.Wrap(types.ErrInvalidConfig, err.Error())
	}

	return k.atomically(ctx, func(ctx sdk.Context) error {
		if k.IsInitialized(ctx) {
			return types.ErrAlreadyInitialized
		}
		if err := k.setConfig(ctx, gs.Config); err != nil {
			return err
		}
		if err := k.SetRoundParams(ctx, gs.RoundParams); err != nil {
			return err
		}
		if err := k.setFunds(ctx, gs.Funds); err != nil {
			return err
		}

		for _, entry := range gs.Oracles {
			oracle, err := sdk.AccAddressFromBech32(entry.Address)
			if err != nil {
				return err
			}
			if err := k.SetOracleStatus(ctx, oracle, entry.Status); err != nil {
				return err
			}
		}
		for _, entry := range gs.Requesters {
			requester, err := sdk.AccAddressFromBech32(entry.Address)
			if err != nil {
				return err
			}
			if err := k.setRequester(ctx, requester, entry.Requester); err != nil {
				return err
			}
		}
		// deposits are listed oldest first and keep that order
		for _, d := range gs.Deposits {
			depositor, err := sdk.AccAddressFromBech32(d.Depositor)
			if err != nil {
				return err
			}
			if err := k.setDeposit(ctx, depositor, d.Amount); err != nil {
				return err
			}
		}

		if len(gs.Rounds) == 0 {
			return k.initializeNewRound(ctx, 0, types.ModuleName)
		}

		for _, round := range gs.Rounds {
			if err := k.SetRound(ctx, round); err != nil {
				return err
			}
		}
		for _, entry := range gs.RoundDetails {
			if err := k.SetRoundDetails(ctx, entry.RoundID, entry.Details); err != nil {
				return err
			}
		}
		k.setReportingRoundID(ctx, gs.ReportingRoundID)
		k.setLatestRoundID(ctx, gs.LatestRoundID)
		return nil
	})
}

// ExportGenesis exports the complete aggregator state
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	cfg, err := k.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	params, err := k.GetRoundParams(ctx)
	if err != nil {
		return nil, err
	}

	gs := &types.GenesisState{
		Config:           cfg,
		RoundParams:      params,
		ReportingRoundID: k.GetReportingRoundID(ctx),
		LatestRoundID:    k.GetLatestRoundID(ctx),
		Funds:            k.GetFunds(ctx),
		Rounds:           []types.Round{},
		RoundDetails:     []types.RoundDetailsEntry{},
		Oracles:          []types.OracleEntry{},
		Requesters:       []types.RequesterEntry{},
		Deposits:         []types.Deposit{},
	}

	if err := k.IterateRounds(ctx, func(round types.Round) bool {
		gs.Rounds = append(gs.Rounds, round)
		return false
	}); err != nil {
		return nil, fmt.Errorf("export rounds: %w", err)
	}
	if err := k.IterateRoundDetails(ctx, func(roundID uint64, details types.RoundDetails) bool {
		gs.RoundDetails = append(gs.RoundDetails, types.RoundDetailsEntry{RoundID: roundID, Details: details})
		return false
	}); err != nil {
		return nil, fmt.Errorf("export round details: %w", err)
	}
	if err := k.IterateOracles(ctx, func(oracle sdk.AccAddress, status types.OracleStatus) bool {
		gs.Oracles = append(gs.Oracles, types.OracleEntry{Address: oracle.String(), Status: status})
		return false
	}); err != nil {
		return nil, fmt.Errorf("export oracles: %w", err)
	}
	if err := k.IterateRequesters(ctx, func(requester sdk.AccAddress, r types.Requester) bool {
		gs.Requesters = append(gs.Requesters, types.RequesterEntry{Address: requester.String(), Requester: r})
		return false
	}); err != nil {
		return nil, fmt.Errorf("export requesters: %w", err)
	}
	if err := k.IterateDeposits(ctx, func(_ sdk.AccAddress, d types.Deposit) bool {
		gs.Deposits = append(gs.Deposits, d)
		return false
	}); err != nil {
		return nil, fmt.Errorf("export deposits: %w", err)
	}

	return gs, nil
}
