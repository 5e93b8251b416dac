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

// GetReportingRoundID returns the id of the round currently collecting submissions
func (k Keeper) GetReportingRoundID(ctx context.Context) uint64 {
	return k.getUint64(ctx, types.ReportingRoundKey)
}

func (k Keeper) setReportingRoundID(ctx context.Context, roundID uint64) {
	k.setUint64(ctx, types.ReportingRoundKey, roundID)
}

// GetLatestRoundID returns the id of the most recently answered round
func (k Keeper) GetLatestRoundID(ctx context.Context) uint64 {
	return k.getUint64(ctx, types.LatestRoundKey)
}

func (k Keeper) setLatestRoundID(ctx context.Context, roundID uint64) {
	k.setUint64(ctx, types.LatestRoundKey, roundID)
}

// SetRound stores a round ledger entry
func (k Keeper) SetRound(ctx context.Context, round types.Round) error {
	return k.setRecord(ctx, types.GetRoundKey(round.RoundID), round)
}

// GetRound returns a round ledger entry
func (k Keeper) GetRound(ctx context.Context, roundID uint64) (types.Round, error) {
	var round types.Round
	found, err := k.getRecord(ctx, types.GetRoundKey(roundID), &round)
	if err != nil {
		return types.Round{}, err
	}
	if !found {
		return types.Round{}, errorsmod.Wrapf(types.ErrRoundNotFound, "round %d", roundID)
	}
	return round, nil
}

// getRoundOrEmpty reads a round that may not have started; a missing round
// reads as the zero value with its id set.
func (k Keeper) getRoundOrEmpty(ctx context.Context, roundID uint64) (types.Round, error) {
	round, err := k.GetRound(ctx, roundID)
	if errorsmod.IsOf(err, types.ErrRoundNotFound) {
		return types.Round{RoundID: roundID}, nil
	}
	return round, err
}

// IterateRounds walks the round ledger in ascending id order
func (k Keeper) IterateRounds(ctx context.Context, cb func(round types.Round) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.RoundKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var round types.Round
		if err := json.Unmarshal(iterator.Value(), &round); err != nil {
			return fmt.Errorf("failed to unmarshal round: %w", err)
		}
		if cb(round) {
			break
		}
	}
	return nil
}

// SetRoundDetails stores a round's aggregation buffer
func (k Keeper) SetRoundDetails(ctx context.Context, roundID uint64, details types.RoundDetails) error {
	return k.setRecord(ctx, types.GetRoundDetailsKey(roundID), details)
}

// GetRoundDetails returns a round's aggregation buffer and whether it exists
func (k Keeper) GetRoundDetails(ctx context.Context, roundID uint64) (types.RoundDetails, bool, error) {
	var details types.RoundDetails
	found, err := k.getRecord(ctx, types.GetRoundDetailsKey(roundID), &details)
	if err != nil || !found {
		return emptyRoundDetails(), false, err
	}
	return details, true, nil
}

// getRoundDetailsOrEmpty treats a pruned or never created buffer as closed:
// max submissions 0 (not accepting), timeout 0 (never times out).
func (k Keeper) getRoundDetailsOrEmpty(ctx context.Context, roundID uint64) (types.RoundDetails, error) {
	details, _, err := k.GetRoundDetails(ctx, roundID)
	return details, err
}

func emptyRoundDetails() types.RoundDetails {
	return types.RoundDetails{PaymentAmount: math.ZeroInt()}
}

func (k Keeper) deleteRoundDetails(ctx context.Context, roundID uint64) {
	k.getStore(ctx).Delete(types.GetRoundDetailsKey(roundID))
}

// IterateRoundDetails walks the live aggregation buffers in ascending round order
func (k Keeper) IterateRoundDetails(ctx context.Context, cb func(roundID uint64, details types.RoundDetails) (stop bool)) error {
	iterator := storetypes.KVStorePrefixIterator(k.getStore(ctx), types.RoundDetailsKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		roundID := types.BytesToUint64(iterator.Key()[len(types.RoundDetailsKeyPrefix):])
		var details types.RoundDetails
		if err := json.Unmarshal(iterator.Value(), &details); err != nil {
			return fmt.Errorf("failed to unmarshal round details %d: %w", roundID, err)
		}
		if cb(roundID, details) {
			break
		}
	}
	return nil
}

// timedOut reports whether a round has run past its timeout. Round 0 always
// counts as timed out so round 1 can supersede it.
func (k Keeper) timedOut(ctx context.Context, roundID uint64) (bool, error) {
	if roundID == 0 {
		return true, nil
	}
	round, err := k.getRoundOrEmpty(ctx, roundID)
	if err != nil {
		return false, err
	}
	details, err := k.getRoundDetailsOrEmpty(ctx, roundID)
	if err != nil {
		return false, err
	}
	return round.StartedAt > 0 &&
		details.Timeout > 0 &&
		round.StartedAt+details.Timeout < k.now(ctx), nil
}

// GetRoundStatus derives the status of a round from its ledger entry and buffer
func (k Keeper) GetRoundStatus(ctx context.Context, roundID uint64) (types.RoundStatus, error) {
	round, err := k.getRoundOrEmpty(ctx, roundID)
	if err != nil {
		return types.RoundStatusOpen, err
	}
	if round.UpdatedAt > 0 {
		return types.RoundStatusAnswered, nil
	}
	timedOut, err := k.timedOut(ctx, roundID)
	if err != nil {
		return types.RoundStatusOpen, err
	}
	if timedOut {
		return types.RoundStatusTimedOut, nil
	}
	return types.RoundStatusOpen, nil
}

func (k Keeper) supersedable(ctx context.Context, roundID uint64) (bool, error) {
	status, err := k.GetRoundStatus(ctx, roundID)
	if err != nil {
		return false, err
	}
	return status.Supersedable(), nil
}

func (k Keeper) acceptingSubmissions(ctx context.Context, roundID uint64) (bool, error) {
	details, err := k.getRoundDetailsOrEmpty(ctx, roundID)
	if err != nil {
		return false, err
	}
	return details.MaxSubmissions != 0, nil
}

// initializeNewRound closes out the previous round if it timed out unanswered,
// then opens roundID with a snapshot of the current round parameters.
func (k Keeper) initializeNewRound(ctx sdk.Context, roundID uint64, startedBy string) error {
	if roundID > 0 {
		if err := k.closeTimedOutRound(ctx, roundID-1); err != nil {
			return err
		}
	}

	cfg, err := k.GetConfig(ctx)
	if err != nil {
		return err
	}
	params, err := k.GetRoundParams(ctx)
	if err != nil {
		return err
	}

	now := k.now(ctx)
	k.setReportingRoundID(ctx, roundID)

	round := types.Round{
		RoundID:     roundID,
		Decimals:    cfg.Decimals,
		Description: cfg.Description,
		StartedAt:   now,
	}
	if err := k.SetRound(ctx, round); err != nil {
		return err
	}

	details := types.RoundDetails{
		Submissions:    []types.Submission{},
		MaxSubmissions: params.MaxSubmissions,
		MinSubmissions: params.MinSubmissions,
		Timeout:        params.Timeout,
		PaymentAmount:  params.PaymentAmount,
	}
	if err := k.SetRoundDetails(ctx, roundID, details); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeRoundStarted,
			sdk.NewAttribute(types.AttributeKeyRoundID, fmt.Sprintf("%d", roundID)),
			sdk.NewAttribute(types.AttributeKeyStartedBy, startedBy),
			sdk.NewAttribute(types.AttributeKeyStartedAt, fmt.Sprintf("%d", now)),
		),
	)
	return nil
}

// closeTimedOutRound carries the previous answer forward into an unanswered
// timed-out round and prunes its buffer. Answered rounds are left as they are.
func (k Keeper) closeTimedOutRound(ctx sdk.Context, roundID uint64) error {
	status, err := k.GetRoundStatus(ctx, roundID)
	if err != nil {
		return err
	}
	if status != types.RoundStatusTimedOut {
		return nil
	}

	round, err := k.getRoundOrEmpty(ctx, roundID)
	if err != nil {
		return err
	}
	round.Answer = nil
	round.AnsweredInRound = 0
	if roundID > 0 {
		prev, err := k.getRoundOrEmpty(ctx, roundID-1)
		if err != nil {
			return err
		}
		round.Answer = prev.Answer
		round.AnsweredInRound = prev.AnsweredInRound
	}
	round.UpdatedAt = k.now(ctx)
	if err := k.SetRound(ctx, round); err != nil {
		return err
	}
	k.deleteRoundDetails(ctx, roundID)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeRoundTimedOut,
			sdk.NewAttribute(types.AttributeKeyRoundID, fmt.Sprintf("%d", roundID)),
			sdk.NewAttribute(types.AttributeKeyAnsweredInRound, fmt.Sprintf("%d", round.AnsweredInRound)),
			sdk.NewAttribute(types.AttributeKeyUpdatedAt, fmt.Sprintf("%d", round.UpdatedAt)),
		),
	)
	return nil
}
