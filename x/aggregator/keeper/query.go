package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
	sharedkeeper "github.com/paw-chain/aggregator/x/shared/keeper"
)

// GetRoundData returns a snapshot of a round
func (k Keeper) GetRoundData(ctx context.Context, roundID uint64) (types.Round, error) {
	return k.GetRound(ctx, roundID)
}

// LatestRoundData returns the most recently answered round
func (k Keeper) LatestRoundData(ctx context.Context) (types.Round, error) {
	return k.GetRound(ctx, k.GetLatestRoundID(ctx))
}

// GetOracles returns all registered oracle addresses
func (k Keeper) GetOracles(ctx context.Context) ([]sdk.AccAddress, error) {
	var oracles []sdk.AccAddress
	err := k.IterateOracles(ctx, func(oracle sdk.AccAddress, _ types.OracleStatus) bool {
		oracles = append(oracles, oracle)
		return false
	})
	return oracles, err
}

// OracleCount returns the number of registered oracles
func (k Keeper) OracleCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := k.IterateOracles(ctx, func(sdk.AccAddress, types.OracleStatus) bool {
		count++
		return false
	})
	return count, err
}

// AllocatedFunds returns the total owed to oracles
func (k Keeper) AllocatedFunds(ctx context.Context) math.Int {
	return k.GetFunds(ctx).Allocated
}

// AvailableFunds returns the total backing future payments
func (k Keeper) AvailableFunds(ctx context.Context) math.Int {
	return k.GetFunds(ctx).Available
}

// WithdrawablePayment returns an oracle's accrued, unpaid earnings
func (k Keeper) WithdrawablePayment(ctx context.Context, oracle sdk.AccAddress) (math.Int, error) {
	status, err := k.GetOracleStatus(ctx, oracle)
	if err != nil {
		return math.Int{}, err
	}
	return status.Withdrawable, nil
}

// GetAdmin returns the admin of an oracle
func (k Keeper) GetAdmin(ctx context.Context, oracle sdk.AccAddress) (sdk.AccAddress, error) {
	status, err := k.GetOracleStatus(ctx, oracle)
	if err != nil {
		return nil, err
	}
	return sdk.AccAddressFromBech32(status.Admin)
}

// OracleRoundState reports whether oracle may submit into roundID along with
// the round's state. A roundID of 0 asks for the round the oracle should
// report into next.
func (k Keeper) OracleRoundState(ctx context.Context, oracle sdk.AccAddress, roundID uint64) (types.OracleRoundState, error) {
	status, err := k.GetOracleStatus(ctx, oracle)
	if err != nil {
		return types.OracleRoundState{}, err
	}
	params, err := k.GetRoundParams(ctx)
	if err != nil {
		return types.OracleRoundState{}, err
	}

	var eligible bool
	if roundID == 0 {
		roundID, eligible, err = k.suggestRound(ctx, status, params)
	} else {
		eligible, err = k.eligibleForSpecificRound(ctx, status, params, roundID)
	}
	if err != nil {
		return types.OracleRoundState{}, err
	}
	if k.validateOracleRound(ctx, oracle, roundID) != nil {
		eligible = false
	}

	round, err := k.getRoundOrEmpty(ctx, roundID)
	if err != nil {
		return types.OracleRoundState{}, err
	}
	details, err := k.getRoundDetailsOrEmpty(ctx, roundID)
	if err != nil {
		return types.OracleRoundState{}, err
	}
	oracleCount, err := k.OracleCount(ctx)
	if err != nil {
		return types.OracleRoundState{}, err
	}

	// started rounds report their frozen parameters
	payment, timeout := details.PaymentAmount, details.Timeout
	if round.StartedAt == 0 {
		payment, timeout = params.PaymentAmount, params.Timeout
	}

	return types.OracleRoundState{
		EligibleToSubmit: eligible,
		RoundID:          roundID,
		LatestSubmission: status.LatestSubmission,
		StartedAt:        round.StartedAt,
		Timeout:          timeout,
		AvailableFunds:   k.AvailableFunds(ctx),
		OracleCount:      oracleCount,
		PaymentAmount:    payment,
	}, nil
}

// suggestRound prefers the open reporting round unless the oracle already
// reported into it or it stopped accepting, in which case the next round is
// suggested once the current one can be superseded.
func (k Keeper) suggestRound(ctx context.Context, status types.OracleStatus, params types.RoundParams) (uint64, bool, error) {
	current := k.GetReportingRoundID(ctx)
	accepting, err := k.acceptingSubmissions(ctx, current)
	if err != nil {
		return 0, false, err
	}
	ok, err := k.supersedable(ctx, current)
	if err != nil {
		return 0, false, err
	}

	shouldSupersede := status.LastReportedRound == current || !accepting
	if ok && shouldSupersede {
		next := current + 1
		return next, delayed(status, params, next), nil
	}
	return current, accepting, nil
}

func (k Keeper) eligibleForSpecificRound(ctx context.Context, status types.OracleStatus, params types.RoundParams, roundID uint64) (bool, error) {
	round, err := k.getRoundOrEmpty(ctx, roundID)
	if err != nil {
		return false, err
	}
	if round.StartedAt > 0 {
		return k.acceptingSubmissions(ctx, roundID)
	}
	return delayed(status, params, roundID), nil
}

// delayed reports whether the oracle is outside its restart delay for roundID.
func delayed(status types.OracleStatus, params types.RoundParams, roundID uint64) bool {
	return status.LastStartedRound == 0 || roundID > status.LastStartedRound+params.RestartDelay
}

var _ sharedkeeper.AggregatorKeeperV1 = Keeper{}

// LatestRound implements sharedkeeper.AggregatorKeeperV1
func (k Keeper) LatestRound(ctx context.Context) (sharedkeeper.RoundInfo, bool) {
	latest := k.GetLatestRoundID(ctx)
	if latest == 0 {
		return sharedkeeper.RoundInfo{}, false
	}
	return k.Round(ctx, latest)
}

// Round implements sharedkeeper.AggregatorKeeperV1
func (k Keeper) Round(ctx context.Context, roundID uint64) (sharedkeeper.RoundInfo, bool) {
	round, err := k.GetRound(ctx, roundID)
	if err != nil {
		return sharedkeeper.RoundInfo{}, false
	}
	info := sharedkeeper.RoundInfo{
		RoundID:         round.RoundID,
		Decimals:        round.Decimals,
		StartedAt:       round.StartedAt,
		UpdatedAt:       round.UpdatedAt,
		AnsweredInRound: round.AnsweredInRound,
	}
	if round.Answer != nil {
		info.Answer = round.Answer.Values
	}
	return info, true
}
