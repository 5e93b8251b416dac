package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// GetOracleStatus returns the registry entry of an oracle
func (k Keeper) GetOracleStatus(ctx context.Context, oracle sdk.AccAddress) (types.OracleStatus, error) {
	var status types.OracleStatus
	found, err := k.getRecord(ctx, types.GetOracleKey(oracle), &status)
	if err != nil {
		return types.OracleStatus{}, err
	}
	if !found {
		return types.OracleStatus{}, errorsmod.Wrapf(types.ErrOracleNotFound, "oracle %s", oracle)
	}
	return status, nil
}

// SetOracleStatus stores the registry entry of an oracle
func (k Keeper) SetOracleStatus(ctx context.Context, oracle sdk.AccAddress, status types.OracleStatus) error {
	return k.setRecord(ctx, types.GetOracleKey(oracle), status)
}

func (k Keeper) hasOracle(ctx context.Context, oracle sdk.AccAddress) bool {
	return k.getStore(ctx).Has(types.GetOracleKey(oracle))
}

// IterateOracles walks the registry in address byte order
func (k Keeper) IterateOracles(ctx context.Context, cb func(oracle sdk.AccAddress, status types.OracleStatus) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.OracleKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		oracle := sdk.AccAddress(iterator.Key()[len(types.OracleKeyPrefix):])
		var status types.OracleStatus
		if err := json.Unmarshal(iterator.Value(), &status); err != nil {
			return fmt.Errorf("failed to unmarshal oracle status %s: %w", oracle, err)
		}
		if cb(oracle, status) {
			break
		}
	}
	return nil
}

// ChangeOracles removes and adds oracles, then reconfigures future rounds with
// the existing payment amount and timeout. Owner only.
func (k Keeper) ChangeOracles(
	ctx context.Context,
	caller sdk.AccAddress,
	removed, added, addedAdmins []sdk.AccAddress,
	minSubmissions, maxSubmissions, restartDelay uint64,
) error {
	err := k.atomically(ctx, func(ctx sdk.Context) error {
		if err := k.requireOwner(caller); err != nil {
			return err
		}
		if len(added) != len(addedAdmins) {
			return errorsmod.Wrapf(types.ErrAdminCountMismatch,
				"%d oracles added with %d admins", len(added), len(addedAdmins))
		}
		for _, oracle := range removed {
			if err := k.removeOracle(ctx, oracle); err != nil {
				return err
			}
		}
		for i, oracle := range added {
			if err := k.addOracle(ctx, oracle, addedAdmins[i]); err != nil {
				return err
			}
		}

		params, err := k.GetRoundParams(ctx)
		if err != nil {
			return err
		}
		params.MinSubmissions = minSubmissions
		params.MaxSubmissions = maxSubmissions
		params.RestartDelay = restartDelay
		return k.updateFutureRounds(ctx, params)
	})
	if err != nil {
		return err
	}

	k.Logger(ctx).Info("oracle set changed",
		"removed", len(removed),
		"added", len(added),
		"min_submissions", minSubmissions,
		"max_submissions", maxSubmissions,
	)
	return nil
}

// addOracle registers an oracle from the round after the reporting round.
// Removal erases the entry, so a re-added oracle starts fresh.
func (k Keeper) addOracle(ctx sdk.Context, oracle, admin sdk.AccAddress) error {
	if k.hasOracle(ctx, oracle) {
		return errorsmod.Wrapf(types.ErrAlreadyEnabled, "oracle %s", oracle)
	}
	if admin.Empty() {
		return errorsmod.Wrapf(types.ErrValidation, "empty admin for oracle %s", oracle)
	}

	status := types.OracleStatus{
		Withdrawable:  math.ZeroInt(),
		StartingRound: k.GetReportingRoundID(ctx) + 1,
		EndingRound:   types.RoundMax,
		Admin:         admin.String(),
	}
	if err := k.SetOracleStatus(ctx, oracle, status); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeOracleAdded,
			sdk.NewAttribute(types.AttributeKeyOracle, oracle.String()),
			sdk.NewAttribute(types.AttributeKeyAdmin, admin.String()),
			sdk.NewAttribute(types.AttributeKeyStartingRound, fmt.Sprintf("%d", status.StartingRound)),
		),
	)
	return nil
}

// removeOracle erases the registry entry. Earnings still owed to the oracle
// are paid to its admin first so allocated stays equal to the sum of
// withdrawable balances.
func (k Keeper) removeOracle(ctx sdk.Context, oracle sdk.AccAddress) error {
	status, err := k.GetOracleStatus(ctx, oracle)
	if err != nil {
		return err
	}

	if status.Withdrawable.IsPositive() {
		admin, err := sdk.AccAddressFromBech32(status.Admin)
		if err != nil {
			return errorsmod.Wrapf(types.ErrValidation, "oracle %s admin: %s", oracle, err)
		}
		if err := k.releaseAllocated(ctx, status.Withdrawable, admin); err != nil {
			return err
		}
	}

	k.getStore(ctx).Delete(types.GetOracleKey(oracle))

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeOracleRemoved,
			sdk.NewAttribute(types.AttributeKeyOracle, oracle.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, status.Withdrawable.String()),
		),
	)
	return nil
}

// TransferAdmin proposes a new admin for an oracle. Only the current admin may call it.
func (k Keeper) TransferAdmin(ctx context.Context, caller, oracle, newAdmin sdk.AccAddress) error {
	return k.atomically(ctx, func(ctx sdk.Context) error {
		status, err := k.GetOracleStatus(ctx, oracle)
		if err != nil {
			return err
		}
		if status.Admin != caller.String() {
			return types.WrapWithRecovery(types.ErrNotAdmin, "%s is not admin of oracle %s", caller, oracle)
		}
		if newAdmin.Empty() {
			return errorsmod.Wrap(types.ErrValidation, "empty pending admin")
		}

		status.PendingAdmin = newAdmin.String()
		if err := k.SetOracleStatus(ctx, oracle, status); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOracleAdminProposed,
				sdk.NewAttribute(types.AttributeKeyOracle, oracle.String()),
				sdk.NewAttribute(types.AttributeKeyAdmin, status.Admin),
				sdk.NewAttribute(types.AttributeKeyPendingAdmin, status.PendingAdmin),
			),
		)
		return nil
	})
}

// AcceptAdmin completes an admin handoff. Only the pending admin may call it.
func (k Keeper) AcceptAdmin(ctx context.Context, caller, oracle sdk.AccAddress) error {
	return k.atomically(ctx, func(ctx sdk.Context) error {
		status, err := k.GetOracleStatus(ctx, oracle)
		if err != nil {
			return err
		}
		if !status.HasPendingAdmin() || status.PendingAdmin != caller.String() {
			return types.WrapWithRecovery(types.ErrNotPendingAdmin, "%s is not pending admin of oracle %s", caller, oracle)
		}

		status.Admin = status.PendingAdmin
		status.PendingAdmin = ""
		if err := k.SetOracleStatus(ctx, oracle, status); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOracleAdminAccepted,
				sdk.NewAttribute(types.AttributeKeyOracle, oracle.String()),
				sdk.NewAttribute(types.AttributeKeyAdmin, status.Admin),
			),
		)
		return nil
	})
}

// WithdrawPayment transfers accrued oracle earnings to recipient. Only the
// oracle's admin may call it.
func (k Keeper) WithdrawPayment(ctx context.Context, caller, oracle, recipient sdk.AccAddress, amount math.Int) error {
	err := k.atomically(ctx, func(ctx sdk.Context) error {
		status, err := k.GetOracleStatus(ctx, oracle)
		if err != nil {
			return err
		}
		if status.Admin != caller.String() {
			return types.WrapWithRecovery(types.ErrNotAdmin, "%s is not admin of oracle %s", caller, oracle)
		}
		if amount.IsNil() || !amount.IsPositive() {
			return errorsmod.Wrapf(types.ErrInvalidAmount, "withdrawal amount %s", amount)
		}
		if status.Withdrawable.LT(amount) {
			return errorsmod.Wrapf(types.ErrInsufficientWithdrawable,
				"requested %s, withdrawable %s", amount, status.Withdrawable)
		}

		status.Withdrawable = status.Withdrawable.Sub(amount)
		if err := k.SetOracleStatus(ctx, oracle, status); err != nil {
			return err
		}
		if err := k.releaseAllocated(ctx, amount, recipient); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypePaymentWithdrawn,
				sdk.NewAttribute(types.AttributeKeyOracle, oracle.String()),
				sdk.NewAttribute(types.AttributeKeyRecipient, recipient.String()),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}

	k.Logger(ctx).Info("oracle payment withdrawn",
		"oracle", oracle.String(),
		"recipient", recipient.String(),
		"amount", amount.String(),
	)
	return nil
}
