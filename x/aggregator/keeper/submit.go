package keeper

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// Submit records an oracle observation for roundID. It may start the round,
// finalize it once min submissions are in, pay the oracle and prune the
// round buffer once it is full. Nothing is written if any step fails.
func (k Keeper) Submit(ctx context.Context, caller sdk.AccAddress, roundID uint64, values []math.Uint) error {
	var answer *types.Submission
	err := k.atomically(ctx, func(ctx sdk.Context) error {
		var err error
		answer, err = k.submit(ctx, caller, roundID, types.Submission{Values: values})
		return err
	})
	if err != nil {
		k.Logger(ctx).Debug("submission rejected",
			"oracle", caller.String(),
			"round_id", roundID,
			"error", err,
			"recovery", types.GetRecoverySuggestion(err),
		)
		return err
	}

	if answer != nil {
		k.Logger(ctx).Info("round answered",
			"round_id", roundID,
			"answer", answer.String(),
		)
	}
	return nil
}

// submit returns the round answer when this submission finalized the round.
func (k Keeper) submit(ctx sdk.Context, oracle sdk.AccAddress, roundID uint64, submission types.Submission) (*types.Submission, error) {
	cfg, err := k.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if len(submission.Values) != int(cfg.ValuesCount) {
		return nil, errorsmod.Wrapf(types.ErrWrongValuesCount,
			"got %d values, expected %d", len(submission.Values), cfg.ValuesCount)
	}

	if err := k.validateOracleRound(ctx, oracle, roundID); err != nil {
		return nil, err
	}
	if err := k.oracleInitializeNewRound(ctx, oracle, roundID); err != nil {
		return nil, err
	}
	if err := validateSubmissionBounds(cfg, submission); err != nil {
		return nil, err
	}
	if err := k.recordSubmission(ctx, oracle, roundID, submission); err != nil {
		return nil, err
	}
	answer, err := k.updateRoundAnswer(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if _, err := k.accruePayment(ctx, oracle, roundID); err != nil {
		return nil, err
	}
	if err := k.pruneFullRound(ctx, roundID); err != nil {
		return nil, err
	}
	return answer, nil
}

func validateSubmissionBounds(cfg types.Config, submission types.Submission) error {
	for i, v := range submission.Values {
		if v.LT(cfg.MinSubmissionValue) {
			return errorsmod.Wrapf(types.ErrValueBelowMin,
				"value %d is %s, min %s", i, v, cfg.MinSubmissionValue)
		}
		if v.GT(cfg.MaxSubmissionValue) {
			return errorsmod.Wrapf(types.ErrValueAboveMax,
				"value %d is %s, max %s", i, v, cfg.MaxSubmissionValue)
		}
	}
	return nil
}

// validateOracleRound checks that oracle may report into roundID.
func (k Keeper) validateOracleRound(ctx context.Context, oracle sdk.AccAddress, roundID uint64) error {
	status, err := k.GetOracleStatus(ctx, oracle)
	if errorsmod.IsOf(err, types.ErrOracleNotFound) {
		return errorsmod.Wrapf(types.ErrOracleNotEnabled, "%s is not a registered oracle", oracle)
	}
	if err != nil {
		return err
	}

	if status.StartingRound == 0 {
		return errorsmod.Wrapf(types.ErrOracleNotEnabled, "oracle %s", oracle)
	}
	if status.StartingRound > roundID {
		return errorsmod.Wrapf(types.ErrOracleNotYetEnabled,
			"oracle %s starts at round %d", oracle, status.StartingRound)
	}
	if status.EndingRound < roundID {
		return errorsmod.Wrapf(types.ErrOracleNoLongerAllowed,
			"oracle %s ended at round %d", oracle, status.EndingRound)
	}
	if status.LastReportedRound >= roundID {
		return errorsmod.Wrapf(types.ErrAlreadyReported,
			"oracle %s last reported round %d", oracle, status.LastReportedRound)
	}

	current := k.GetReportingRoundID(ctx)
	if roundID != current && roundID != current+1 {
		unanswered, err := k.previousAndCurrentUnanswered(ctx, roundID, current)
		if err != nil {
			return err
		}
		if !unanswered {
			return errorsmod.Wrapf(types.ErrInvalidRound,
				"round %d, reporting round %d", roundID, current)
		}
	}

	if roundID > 1 {
		ok, err := k.supersedable(ctx, roundID-1)
		if err != nil {
			return err
		}
		if !ok {
			return errorsmod.Wrapf(types.ErrPreviousNotSupersedable, "round %d", roundID-1)
		}
	}
	return nil
}

// previousAndCurrentUnanswered lets a late oracle report one round behind
// while the current round has no answer yet.
func (k Keeper) previousAndCurrentUnanswered(ctx context.Context, roundID, current uint64) (bool, error) {
	if roundID+1 != current {
		return false, nil
	}
	round, err := k.getRoundOrEmpty(ctx, current)
	if err != nil {
		return false, err
	}
	return round.UpdatedAt == 0, nil
}

// oracleInitializeNewRound starts roundID when it is the next round. An oracle
// inside its restart delay does not start the round; that is not an error.
func (k Keeper) oracleInitializeNewRound(ctx sdk.Context, oracle sdk.AccAddress, roundID uint64) error {
	if roundID != k.GetReportingRoundID(ctx)+1 {
		return nil
	}

	status, err := k.GetOracleStatus(ctx, oracle)
	if err != nil {
		return err
	}
	params, err := k.GetRoundParams(ctx)
	if err != nil {
		return err
	}
	if !delayed(status, params, roundID) {
		return nil
	}

	if err := k.initializeNewRound(ctx, roundID, oracle.String()); err != nil {
		return err
	}
	status.LastStartedRound = roundID
	return k.SetOracleStatus(ctx, oracle, status)
}

func (k Keeper) recordSubmission(ctx sdk.Context, oracle sdk.AccAddress, roundID uint64, submission types.Submission) error {
	details, found, err := k.GetRoundDetails(ctx, roundID)
	if err != nil {
		return err
	}
	if !found || details.MaxSubmissions == 0 {
		return errorsmod.Wrapf(types.ErrNotAcceptingSubmissions, "round %d", roundID)
	}

	details.Submissions = append(details.Submissions, submission)
	if err := k.SetRoundDetails(ctx, roundID, details); err != nil {
		return err
	}

	status, err := k.GetOracleStatus(ctx, oracle)
	if err != nil {
		return err
	}
	status.LastReportedRound = roundID
	status.LatestSubmission = &submission
	if err := k.SetOracleStatus(ctx, oracle, status); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeSubmission,
			sdk.NewAttribute(types.AttributeKeyRoundID, fmt.Sprintf("%d", roundID)),
			sdk.NewAttribute(types.AttributeKeyOracle, oracle.String()),
			sdk.NewAttribute(types.AttributeKeyValues, submission.String()),
			sdk.NewAttribute(types.AttributeKeyNumSubmissions, fmt.Sprintf("%d", len(details.Submissions))),
		),
	)
	return nil
}

// updateRoundAnswer finalizes the round once it holds min submissions. Every
// later submission into the same round recomputes the answer.
func (k Keeper) updateRoundAnswer(ctx sdk.Context, roundID uint64) (*types.Submission, error) {
	details, err := k.getRoundDetailsOrEmpty(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if uint64(len(details.Submissions)) < details.MinSubmissions {
		return nil, nil
	}

	answer, err := types.CalculateSubmissionMedian(details.Submissions)
	if err != nil {
		return nil, err
	}

	round, err := k.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	round.Answer = &answer
	round.UpdatedAt = k.now(ctx)
	round.AnsweredInRound = roundID
	if err := k.SetRound(ctx, round); err != nil {
		return nil, err
	}
	k.setLatestRoundID(ctx, roundID)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeAnswerUpdated,
			sdk.NewAttribute(types.AttributeKeyRoundID, fmt.Sprintf("%d", roundID)),
			sdk.NewAttribute(types.AttributeKeyAnswer, answer.String()),
			sdk.NewAttribute(types.AttributeKeyUpdatedAt, fmt.Sprintf("%d", round.UpdatedAt)),
			sdk.NewAttribute(types.AttributeKeyNumSubmissions, fmt.Sprintf("%d", len(details.Submissions))),
		),
	)
	return &answer, nil
}

// pruneFullRound drops the buffer of a round that reached max submissions.
func (k Keeper) pruneFullRound(ctx sdk.Context, roundID uint64) error {
	details, found, err := k.GetRoundDetails(ctx, roundID)
	if err != nil || !found {
		return err
	}
	if uint64(len(details.Submissions)) < details.MaxSubmissions {
		return nil
	}

	k.deleteRoundDetails(ctx, roundID)
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeRoundDetailsPruned,
			sdk.NewAttribute(types.AttributeKeyRoundID, fmt.Sprintf("%d", roundID)),
			sdk.NewAttribute(types.AttributeKeyNumSubmissions, fmt.Sprintf("%d", len(details.Submissions))),
		),
	)
	return nil
}
