package keeper

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// GetConfig returns the configuration fixed at initialization
func (k Keeper) GetConfig(ctx context.Context) (types.Config, error) {
	var cfg types.Config
	found, err := k.getRecord(ctx, types.ConfigKey, &cfg)
	if err != nil {
		return types.Config{}, err
	}
	if !found {
		return types.Config{}, types.ErrNotInitialized
	}
	return cfg, nil
}

func (k Keeper) setConfig(ctx context.Context, cfg types.Config) error {
	return k.setRecord(ctx, types.ConfigKey, cfg)
}

// IsInitialized reports whether Initialize has run
func (k Keeper) IsInitialized(ctx context.Context) bool {
	return k.getStore(ctx).Has(types.ConfigKey)
}

// GetRoundParams returns the parameters applied to future rounds
func (k Keeper) GetRoundParams(ctx context.Context) (types.RoundParams, error) {
	var params types.RoundParams
	found, err := k.getRecord(ctx, types.RoundParamsKey, &params)
	if err != nil {
		return types.RoundParams{}, err
	}
	if !found {
		return types.RoundParams{}, types.ErrNotInitialized
	}
	return params, nil
}

// SetRoundParams stores round parameters without the funding checks of
// UpdateFutureRounds. Used by genesis import.
func (k Keeper) SetRoundParams(ctx context.Context, params types.RoundParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return k.setRecord(ctx, types.RoundParamsKey, params)
}

// UpdateFutureRounds replaces the parameters used by rounds that start from now on.
// Owner only.
func (k Keeper) UpdateFutureRounds(
	ctx context.Context,
	caller sdk.AccAddress,
	paymentAmount math.Int,
	minSubmissions, maxSubmissions, restartDelay, timeout uint64,
) error {
	params := types.RoundParams{
		PaymentAmount:  paymentAmount,
		MinSubmissions: minSubmissions,
		MaxSubmissions: maxSubmissions,
		RestartDelay:   restartDelay,
		Timeout:        timeout,
	}
	err := k.atomically(ctx, func(ctx sdk.Context) error {
		if err := k.requireOwner(caller); err != nil {
			return err
		}
		return k.updateFutureRounds(ctx, params)
	})
	if err != nil {
		return err
	}

	k.Logger(ctx).Info("round parameters updated", "params", params.String())
	return nil
}

// updateFutureRounds validates params against the current oracle set and
// funding level before storing them.
func (k Keeper) updateFutureRounds(ctx sdk.Context, params types.RoundParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	oracleCount, err := k.OracleCount(ctx)
	if err != nil {
		return err
	}
	if params.MaxSubmissions > oracleCount {
		return errorsmod.Wrapf(types.ErrInvalidRoundParams,
			"max submissions %d cannot exceed oracle count %d", params.MaxSubmissions, oracleCount)
	}
	if oracleCount > 0 && params.RestartDelay >= oracleCount {
		return errorsmod.Wrapf(types.ErrInvalidRoundParams,
			"restart delay %d must be less than oracle count %d", params.RestartDelay, oracleCount)
	}
	if oracleCount > 0 && params.MinSubmissions == 0 {
		return errorsmod.Wrap(types.ErrInvalidRoundParams, "min submissions must be greater than 0")
	}

	funds := k.GetFunds(ctx)
	reserve := requiredReserve(params.PaymentAmount, oracleCount)
	if funds.Available.LT(reserve) {
		return errorsmod.Wrapf(types.ErrInsufficientReserve,
			"available %s below required reserve %s", funds.Available, reserve)
	}

	if err := k.setRecord(ctx, types.RoundParamsKey, params); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeRoundParamsUpdated,
			sdk.NewAttribute(types.AttributeKeyPaymentAmount, params.PaymentAmount.String()),
			sdk.NewAttribute(types.AttributeKeyMinSubmissions, fmt.Sprintf("%d", params.MinSubmissions)),
			sdk.NewAttribute(types.AttributeKeyMaxSubmissions, fmt.Sprintf("%d", params.MaxSubmissions)),
			sdk.NewAttribute(types.AttributeKeyRestartDelay, fmt.Sprintf("%d", params.RestartDelay)),
			sdk.NewAttribute(types.AttributeKeyTimeout, fmt.Sprintf("%d", params.Timeout)),
		),
	)
	return nil
}

// requiredReserve is payment * oracle count * ReserveRounds.
func requiredReserve(payment math.Int, oracleCount uint64) math.Int {
	return payment.Mul(math.NewIntFromUint64(oracleCount)).Mul(math.NewIntFromUint64(types.ReserveRounds))
}
