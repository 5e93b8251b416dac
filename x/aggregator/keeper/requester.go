package keeper

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// GetRequester returns the permissions of a requester
func (k Keeper) GetRequester(ctx context.Context, requester sdk.AccAddress) (types.Requester, error) {
	var r types.Requester
	found, err := k.getRecord(ctx, types.GetRequesterKey(requester), &r)
	if err != nil {
		return types.Requester{}, err
	}
	if !found {
		return types.Requester{}, errorsmod.Wrapf(types.ErrRequesterNotFound, "requester %s", requester)
	}
	return r, nil
}

func (k Keeper) setRequester(ctx context.Context, requester sdk.AccAddress, r types.Requester) error {
	return k.setRecord(ctx, types.GetRequesterKey(requester), r)
}

// IterateRequesters walks all authorized requesters
func (k Keeper) IterateRequesters(ctx context.Context, cb func(requester sdk.AccAddress, r types.Requester) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.RequesterKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		requester := sdk.AccAddress(iterator.Key()[len(types.RequesterKeyPrefix):])
		var r types.Requester
		if err := json.Unmarshal(iterator.Value(), &r); err != nil {
			return fmt.Errorf("failed to unmarshal requester %s: %w", requester, err)
		}
		if cb(requester, r) {
			break
		}
	}
	return nil
}

// SetRequesterPermissions grants or revokes the right to request new rounds.
// Re-authorizing an existing requester updates its delay and keeps its
// last started round. Owner only.
func (k Keeper) SetRequesterPermissions(
	ctx context.Context,
	caller, requester sdk.AccAddress,
	authorized bool,
	delay uint64,
) error {
	return k.atomically(ctx, func(ctx sdk.Context) error {
		if err := k.requireOwner(caller); err != nil {
			return err
		}
		if !authorized {
			k.getStore(ctx).Delete(types.GetRequesterKey(requester))
		} else {
			r, err := k.GetRequester(ctx, requester)
			if err != nil && !errorsmod.IsOf(err, types.ErrRequesterNotFound) {
				return err
			}
			r.Authorized = true
			r.Delay = delay
			if err := k.setRequester(ctx, requester, r); err != nil {
				return err
			}
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeRequesterPermissionsSet,
				sdk.NewAttribute(types.AttributeKeyRequester, requester.String()),
				sdk.NewAttribute(types.AttributeKeyAuthorized, strconv.FormatBool(authorized)),
				sdk.NewAttribute(types.AttributeKeyDelay, fmt.Sprintf("%d", delay)),
			),
		)
		return nil
	})
}

// RequestNewRound starts the round after the current one on behalf of an
// authorized requester and returns its id.
func (k Keeper) RequestNewRound(ctx context.Context, caller sdk.AccAddress) (uint64, error) {
	var roundID uint64
	err := k.atomically(ctx, func(ctx sdk.Context) error {
		r, err := k.GetRequester(ctx, caller)
		if err != nil && !errorsmod.IsOf(err, types.ErrRequesterNotFound) {
			return err
		}
		if !r.Authorized {
			return types.WrapWithRecovery(types.ErrNotAuthorizedRequester, "%s", caller)
		}

		current := k.GetReportingRoundID(ctx)
		ok, err := k.supersedable(ctx, current)
		if err != nil {
			return err
		}
		if !ok {
			return errorsmod.Wrapf(types.ErrRoundNotSupersedable, "round %d is neither answered nor timed out", current)
		}

		roundID = current + 1
		if r.LastStartedRound != 0 && roundID <= r.LastStartedRound+r.Delay {
			return errorsmod.Wrapf(types.ErrRequestDelay,
				"last started round %d, delay %d", r.LastStartedRound, r.Delay)
		}

		if err := k.initializeNewRound(ctx, roundID, caller.String()); err != nil {
			return err
		}
		r.LastStartedRound = roundID
		return k.setRequester(ctx, caller, r)
	})
	if err != nil {
		return 0, err
	}

	k.Logger(ctx).Info("round requested", "requester", caller.String(), "round_id", roundID)
	return roundID, nil
}
