package keeper_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/aggregator/testutil/keeper"
	"github.com/paw-chain/aggregator/x/aggregator/types"
)

func TestOracleRoundStateSuggestsNextRound(t *testing.T) {
	f := setupOracles(t, 0)

	state, err := f.Keeper.OracleRoundState(f.Ctx, oracleA, 0)
	require.NoError(t, err)
	require.True(t, state.EligibleToSubmit)
	require.Equal(t, uint64(1), state.RoundID)
	require.Zero(t, state.StartedAt)
	require.Equal(t, uint64(testTimeout), state.Timeout)
	require.Equal(t, int64(testPayment), state.PaymentAmount.Int64())
	require.Equal(t, int64(1000), state.AvailableFunds.Int64())
	require.Equal(t, uint64(3), state.OracleCount)
	require.Nil(t, state.LatestSubmission)
}

func TestOracleRoundStatePrefersOpenRound(t *testing.T) {
	f := setupOracles(t, 0)
	require.NoError(t, submit(f, oracleA, 1, 100))

	// A already reported and round 1 cannot be superseded yet
	state, err := f.Keeper.OracleRoundState(f.Ctx, oracleA, 0)
	require.NoError(t, err)
	require.False(t, state.EligibleToSubmit)
	require.Equal(t, uint64(1), state.RoundID)
	require.Equal(t, uint64(keepertest.GenesisTime.Unix()), state.StartedAt)
	require.Equal(t, "[100]", state.LatestSubmission.String())

	state, err = f.Keeper.OracleRoundState(f.Ctx, oracleB, 0)
	require.NoError(t, err)
	require.True(t, state.EligibleToSubmit)
	require.Equal(t, uint64(1), state.RoundID)
	require.Equal(t, int64(testPayment), state.PaymentAmount.Int64())

	require.NoError(t, submit(f, oracleB, 1, 200))

	// C can still add to the answered round while it accepts submissions
	state, err = f.Keeper.OracleRoundState(f.Ctx, oracleC, 0)
	require.NoError(t, err)
	require.True(t, state.EligibleToSubmit)
	require.Equal(t, uint64(1), state.RoundID)

	// A moves on to round 2
	state, err = f.Keeper.OracleRoundState(f.Ctx, oracleA, 0)
	require.NoError(t, err)
	require.True(t, state.EligibleToSubmit)
	require.Equal(t, uint64(2), state.RoundID)
	require.Zero(t, state.StartedAt)
}

func TestOracleRoundStateRespectsRestartDelay(t *testing.T) {
	f := setupOracles(t, 1)
	require.NoError(t, submit(f, oracleA, 1, 100))
	require.NoError(t, submit(f, oracleB, 1, 200))

	state, err := f.Keeper.OracleRoundState(f.Ctx, oracleA, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), state.RoundID)
	require.False(t, state.EligibleToSubmit)

	state, err = f.Keeper.OracleRoundState(f.Ctx, oracleB, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), state.RoundID)
	require.True(t, state.EligibleToSubmit)
}

func TestOracleRoundStateForSpecificRound(t *testing.T) {
	f := setupOracles(t, 0)
	require.NoError(t, submit(f, oracleA, 1, 100))

	state, err := f.Keeper.OracleRoundState(f.Ctx, oracleB, 1)
	require.NoError(t, err)
	require.True(t, state.EligibleToSubmit)

	state, err = f.Keeper.OracleRoundState(f.Ctx, oracleB, 5)
	require.NoError(t, err)
	require.False(t, state.EligibleToSubmit)
	require.Equal(t, uint64(5), state.RoundID)

	_, err = f.Keeper.OracleRoundState(f.Ctx, stranger, 0)
	require.ErrorIs(t, err, types.ErrOracleNotFound)
}

func TestRoundDataViews(t *testing.T) {
	f := setupOracles(t, 0)

	_, err := f.Keeper.GetRoundData(f.Ctx, 99)
	require.ErrorIs(t, err, types.ErrRoundNotFound)
	require.Equal(t, types.ErrNotFound, types.ErrorClass(err))

	_, ok := f.Keeper.LatestRound(f.Ctx)
	require.False(t, ok)

	require.NoError(t, submit(f, oracleA, 1, 100))
	status, err := f.Keeper.GetRoundStatus(f.Ctx, 1)
	require.NoError(t, err)
	require.Equal(t, types.RoundStatusOpen, status)

	require.NoError(t, submit(f, oracleB, 1, 200))
	status, err = f.Keeper.GetRoundStatus(f.Ctx, 1)
	require.NoError(t, err)
	require.Equal(t, types.RoundStatusAnswered, status)

	info, ok := f.Keeper.LatestRound(f.Ctx)
	require.True(t, ok)
	require.Equal(t, uint64(1), info.RoundID)
	require.Len(t, info.Answer, 1)
	require.Equal(t, uint64(150), info.Answer[0].Uint64())
	require.False(t, info.Stale())

	status, err = f.Keeper.GetRoundStatus(f.Ctx, 0)
	require.NoError(t, err)
	require.Equal(t, types.RoundStatusAnswered, status)
}
