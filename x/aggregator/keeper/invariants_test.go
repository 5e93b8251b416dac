package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/aggregator/testutil/keeper"
	"github.com/paw-chain/aggregator/x/aggregator/keeper"
	"github.com/paw-chain/aggregator/x/aggregator/types"
)

func runningAggregator(t *testing.T) *keepertest.AggregatorFixture {
	f := setupOracles(t, 0)
	require.NoError(t, submit(f, oracleA, 1, 100))
	require.NoError(t, submit(f, oracleB, 1, 200))
	require.NoError(t, submit(f, oracleC, 1, 300))
	require.NoError(t, submit(f, oracleA, 2, 110))
	return f
}

func TestInvariantsHoldAfterActivity(t *testing.T) {
	f := runningAggregator(t)
	require.NoError(t, f.Keeper.WithdrawPayment(f.Ctx, oracleA, oracleA, oracleA, math.NewInt(15)))

	msg, broken := keeper.AllInvariants(*f.Keeper)(f.Ctx)
	require.False(t, broken, msg)
}

func TestFundsConservationInvariantBroken(t *testing.T) {
	f := runningAggregator(t)

	drain := sdk.NewCoins(sdk.NewInt64Coin(sdk.DefaultBondDenom, 500))
	require.NoError(t, f.Bank.SendCoinsFromModuleToAccount(f.Ctx, types.ModuleName, stranger, drain))

	_, broken := keeper.FundsConservationInvariant(*f.Keeper)(f.Ctx)
	require.True(t, broken)
	_, broken = keeper.AllInvariants(*f.Keeper)(f.Ctx)
	require.True(t, broken)
}

func TestFundsConservationToleratesUntrackedTokens(t *testing.T) {
	f := runningAggregator(t)
	f.Bank.Fund(f.Keeper.ModuleAddress(), sdk.NewInt64Coin(sdk.DefaultBondDenom, 7))

	_, broken := keeper.FundsConservationInvariant(*f.Keeper)(f.Ctx)
	require.False(t, broken)
}

func TestAllocatedWithdrawableInvariantBroken(t *testing.T) {
	f := runningAggregator(t)

	status, err := f.Keeper.GetOracleStatus(f.Ctx, oracleB)
	require.NoError(t, err)
	status.Withdrawable = status.Withdrawable.AddRaw(5)
	require.NoError(t, f.Keeper.SetOracleStatus(f.Ctx, oracleB, status))

	msg, broken := keeper.AllocatedWithdrawableInvariant(*f.Keeper)(f.Ctx)
	require.True(t, broken)
	require.Contains(t, msg, "sum of withdrawable")
}

func TestRoundAnswerInvariantBroken(t *testing.T) {
	f := runningAggregator(t)

	round := requireRound(t, f, 1)
	round.AnsweredInRound = 9
	require.NoError(t, f.Keeper.SetRound(f.Ctx, round))

	msg, broken := keeper.RoundAnswerInvariant(*f.Keeper)(f.Ctx)
	require.True(t, broken)
	require.Contains(t, msg, "answered in later round")
}
