package keeper_test

import (
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/aggregator/testutil/keeper"
	"github.com/paw-chain/aggregator/x/aggregator/types"
)

const (
	testPayment = 10
	testTimeout = 60
)

var (
	oracleA    = keepertest.Addr("oracle_a")
	oracleB    = keepertest.Addr("oracle_b")
	oracleC    = keepertest.Addr("oracle_c")
	depositor1 = keepertest.Addr("depositor_1")
	depositor2 = keepertest.Addr("depositor_2")
	requester  = keepertest.Addr("requester")
	stranger   = keepertest.Addr("stranger")

	afterTimeout = (testTimeout + 1) * time.Second
)

// setupOracles returns an aggregator paying testPayment per submission with
// oracles A, B and C, min 2 / max 3 submissions and 1000 deposited.
func setupOracles(t testing.TB, restartDelay uint64) *keepertest.AggregatorFixture {
	f := keepertest.InitializedAggregatorKeeper(t, testPayment, testTimeout)
	f.Deposit(t, depositor1, 1000)
	f.AddOracles(t, []sdk.AccAddress{oracleA, oracleB, oracleC}, 2, 3, restartDelay)
	return f
}

func submit(f *keepertest.AggregatorFixture, oracle sdk.AccAddress, roundID uint64, values ...uint64) error {
	return f.Keeper.Submit(f.Ctx, oracle, roundID, keepertest.Values(values...))
}

func requireRound(t testing.TB, f *keepertest.AggregatorFixture, roundID uint64) types.Round {
	round, err := f.Keeper.GetRoundData(f.Ctx, roundID)
	require.NoError(t, err)
	return round
}

func requireAnswer(t testing.TB, f *keepertest.AggregatorFixture, roundID uint64, want string) {
	round := requireRound(t, f, roundID)
	require.NotNil(t, round.Answer, "round %d has no answer", roundID)
	require.Equal(t, want, round.Answer.String())
}

func withdrawable(t testing.TB, f *keepertest.AggregatorFixture, oracle sdk.AccAddress) int64 {
	amount, err := f.Keeper.WithdrawablePayment(f.Ctx, oracle)
	require.NoError(t, err)
	return amount.Int64()
}

func deposit(t testing.TB, f *keepertest.AggregatorFixture, depositor sdk.AccAddress) int64 {
	amount, err := f.Keeper.WithdrawableAddedFunds(f.Ctx, depositor)
	require.NoError(t, err)
	return amount.Int64()
}
