package keeper_test

import (
	"math/big"
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/suite"

	keepertest "github.com/paw-chain/aggregator/testutil/keeper"
	"github.com/paw-chain/aggregator/x/aggregator/types"
)

type KeeperTestSuite struct {
	suite.Suite
	f *keepertest.AggregatorFixture
}

func (suite *KeeperTestSuite) SetupTest() {
	suite.f = setupOracles(suite.T(), 0)
}

func TestKeeperTestSuite(t *testing.T) {
	suite.Run(t, new(KeeperTestSuite))
}

func (suite *KeeperTestSuite) TestInitializeOpensRoundZero() {
	f := suite.f
	require := suite.Require()

	require.Equal(uint64(0), f.Keeper.GetReportingRoundID(f.Ctx))
	round := requireRound(suite.T(), f, 0)
	require.Equal(uint64(keepertest.GenesisTime.Unix()), round.StartedAt)
	require.Equal(types.DefaultConfig().Description, round.Description)
	require.Nil(round.Answer)

	err := f.Keeper.Initialize(f.Ctx, types.DefaultConfig(), math.NewInt(testPayment), testTimeout)
	require.ErrorIs(err, types.ErrAlreadyInitialized)
}

func (suite *KeeperTestSuite) TestTwoOfThreeFinalizesWithMeanOfTwo() {
	f := suite.f
	require := suite.Require()

	require.NoError(submit(f, oracleA, 1, 100))
	round := requireRound(suite.T(), f, 1)
	require.Nil(round.Answer)
	require.Zero(round.UpdatedAt)
	require.Equal(uint64(1), f.Keeper.GetReportingRoundID(f.Ctx))

	require.NoError(submit(f, oracleB, 1, 200))
	round = requireRound(suite.T(), f, 1)
	require.NotNil(round.Answer)
	require.Equal("[150]", round.Answer.String())
	require.Equal(uint64(1), round.AnsweredInRound)
	require.Equal(uint64(keepertest.GenesisTime.Unix()), round.UpdatedAt)

	latest, err := f.Keeper.LatestRoundData(f.Ctx)
	require.NoError(err)
	require.Equal(uint64(1), latest.RoundID)

	require.Equal(int64(testPayment), withdrawable(suite.T(), f, oracleA))
	require.Equal(int64(testPayment), withdrawable(suite.T(), f, oracleB))
	require.Equal(int64(0), withdrawable(suite.T(), f, oracleC))
	require.Equal(int64(2*testPayment), f.Keeper.AllocatedFunds(f.Ctx).Int64())
	require.Equal(int64(1000-2*testPayment), f.Keeper.AvailableFunds(f.Ctx).Int64())

	// buffer stays open for the third oracle
	_, found, err := f.Keeper.GetRoundDetails(f.Ctx, 1)
	require.NoError(err)
	require.True(found)
}

func (suite *KeeperTestSuite) TestFullRoundIsPruned() {
	f := suite.f
	require := suite.Require()

	require.NoError(submit(f, oracleA, 1, 100))
	require.NoError(submit(f, oracleB, 1, 200))
	require.NoError(submit(f, oracleC, 1, 300))

	requireAnswer(suite.T(), f, 1, "[200]")
	_, found, err := f.Keeper.GetRoundDetails(f.Ctx, 1)
	require.NoError(err)
	require.False(found)
}

func (suite *KeeperTestSuite) TestSubmitRejections() {
	f := suite.f
	require := suite.Require()
	require.NoError(submit(f, oracleA, 1, 100))

	tests := []struct {
		name   string
		oracle sdk.AccAddress
		round  uint64
		values []uint64
		err    error
		class  error
	}{
		{"double report", oracleA, 1, []uint64{100}, types.ErrAlreadyReported, types.ErrState},
		{"wrong values count", oracleB, 1, []uint64{1, 2}, types.ErrWrongValuesCount, types.ErrValidation},
		{"value above max", oracleB, 1, []uint64{2_000_000_000_000_000}, types.ErrValueAboveMax, types.ErrValidation},
		{"unregistered oracle", stranger, 1, []uint64{100}, types.ErrOracleNotEnabled, types.ErrState},
		{"round too far ahead", oracleB, 3, []uint64{100}, types.ErrInvalidRound, types.ErrState},
		{"previous round still open", oracleB, 2, []uint64{100}, types.ErrPreviousNotSupersedable, types.ErrState},
		{"round zero", oracleB, 0, []uint64{100}, types.ErrOracleNotYetEnabled, types.ErrState},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			err := f.Keeper.Submit(f.Ctx, tt.oracle, tt.round, keepertest.Values(tt.values...))
			suite.Require().ErrorIs(err, tt.err)
			suite.Require().ErrorIs(err, tt.class)
			suite.Require().Equal(tt.class, types.ErrorClass(err))
		})
	}

	// nothing was written by the rejected submissions
	details, found, err := f.Keeper.GetRoundDetails(f.Ctx, 1)
	require.NoError(err)
	require.True(found)
	require.Len(details.Submissions, 1)
	require.Equal(uint64(1), f.Keeper.GetReportingRoundID(f.Ctx))
	require.Equal(int64(testPayment), f.Keeper.AllocatedFunds(f.Ctx).Int64())
}

func (suite *KeeperTestSuite) TestValueBelowMin() {
	f := keepertest.AggregatorKeeper(suite.T())
	cfg := types.DefaultConfig()
	cfg.MinSubmissionValue = math.NewUint(50)
	suite.Require().NoError(f.Keeper.Initialize(f.Ctx, cfg, math.ZeroInt(), testTimeout))
	f.AddOracles(suite.T(), []sdk.AccAddress{oracleA}, 1, 1, 0)

	err := submit(f, oracleA, 1, 49)
	suite.Require().ErrorIs(err, types.ErrValueBelowMin)
	suite.Require().NoError(submit(f, oracleA, 1, 50))
}

func (suite *KeeperTestSuite) TestTimedOutRoundInheritsPreviousAnswer() {
	f := suite.f
	require := suite.Require()

	require.NoError(submit(f, oracleA, 1, 100))
	require.NoError(submit(f, oracleB, 1, 200))
	require.NoError(submit(f, oracleA, 2, 500))

	status, err := f.Keeper.GetRoundStatus(f.Ctx, 2)
	require.NoError(err)
	require.Equal(types.RoundStatusOpen, status)

	f.Advance(afterTimeout)
	status, err = f.Keeper.GetRoundStatus(f.Ctx, 2)
	require.NoError(err)
	require.Equal(types.RoundStatusTimedOut, status)

	require.NoError(submit(f, oracleB, 3, 300))

	round2 := requireRound(suite.T(), f, 2)
	require.NotNil(round2.Answer)
	require.Equal("[150]", round2.Answer.String())
	require.Equal(uint64(1), round2.AnsweredInRound)
	require.Equal(uint64(f.Ctx.BlockTime().Unix()), round2.UpdatedAt)
	_, found, err := f.Keeper.GetRoundDetails(f.Ctx, 2)
	require.NoError(err)
	require.False(found)
	require.Equal(uint64(1), f.Keeper.GetLatestRoundID(f.Ctx))

	require.NoError(submit(f, oracleA, 3, 400))
	requireAnswer(suite.T(), f, 3, "[350]")
	require.Equal(uint64(3), f.Keeper.GetLatestRoundID(f.Ctx))

	// every accepted submission is paid, including the one into the timed-out round
	require.Equal(int64(3*testPayment), withdrawable(suite.T(), f, oracleA))
	require.Equal(int64(2*testPayment), withdrawable(suite.T(), f, oracleB))
}

func (suite *KeeperTestSuite) TestAnsweredRoundIsNotOverwrittenOnTimeout() {
	f := suite.f
	require := suite.Require()

	require.NoError(submit(f, oracleA, 1, 100))
	require.NoError(submit(f, oracleB, 1, 200))
	f.Advance(afterTimeout)
	require.NoError(submit(f, oracleA, 2, 500))

	round1 := requireRound(suite.T(), f, 1)
	require.Equal("[150]", round1.Answer.String())
	require.Equal(uint64(keepertest.GenesisTime.Unix()), round1.UpdatedAt)
}

func (suite *KeeperTestSuite) TestLateOracleReportsOneRoundBehind() {
	f := suite.f
	require := suite.Require()

	require.NoError(submit(f, oracleA, 1, 100))
	require.NoError(submit(f, oracleB, 1, 200))
	require.NoError(submit(f, oracleA, 2, 600))

	require.NoError(submit(f, oracleC, 1, 300))
	requireAnswer(suite.T(), f, 1, "[200]")
	_, found, err := f.Keeper.GetRoundDetails(f.Ctx, 1)
	require.NoError(err)
	require.False(found)

	// once round 2 is answered, round 1 is closed to catch-up
	require.NoError(submit(f, oracleB, 2, 700))
	requireAnswer(suite.T(), f, 2, "[650]")
}

func (suite *KeeperTestSuite) TestRestartDelayThrottlesRoundStart() {
	f := setupOracles(suite.T(), 1)
	require := suite.Require()

	require.NoError(submit(f, oracleA, 1, 100))
	require.NoError(submit(f, oracleB, 1, 200))

	// A started round 1 and may not start round 2 with a restart delay of 1
	err := submit(f, oracleA, 2, 100)
	require.ErrorIs(err, types.ErrNotAcceptingSubmissions)
	require.Equal(uint64(1), f.Keeper.GetReportingRoundID(f.Ctx))

	require.NoError(submit(f, oracleB, 2, 300))
	require.Equal(uint64(2), f.Keeper.GetReportingRoundID(f.Ctx))
	require.NoError(submit(f, oracleA, 2, 100))
	requireAnswer(suite.T(), f, 2, "[200]")

	status, err := f.Keeper.GetOracleStatus(f.Ctx, oracleB)
	require.NoError(err)
	require.Equal(uint64(2), status.LastStartedRound)
}

func (suite *KeeperTestSuite) TestFailedSubmitLeavesNoTrace() {
	f := keepertest.InitializedAggregatorKeeper(suite.T(), testPayment, testTimeout)
	require := suite.Require()
	f.Deposit(suite.T(), depositor1, 2*testPayment)
	f.AddOracles(suite.T(), []sdk.AccAddress{oracleA}, 1, 1, 0)

	require.NoError(submit(f, oracleA, 1, 100))
	require.NoError(submit(f, oracleA, 2, 200))
	require.True(f.Keeper.AvailableFunds(f.Ctx).IsZero())

	err := submit(f, oracleA, 3, 300)
	require.ErrorIs(err, types.ErrInsufficientPayment)
	require.ErrorIs(err, types.ErrInsufficientFunds)

	require.Equal(uint64(2), f.Keeper.GetReportingRoundID(f.Ctx))
	require.Equal(uint64(2), f.Keeper.GetLatestRoundID(f.Ctx))
	_, err = f.Keeper.GetRoundData(f.Ctx, 3)
	require.ErrorIs(err, types.ErrRoundNotFound)

	status, err := f.Keeper.GetOracleStatus(f.Ctx, oracleA)
	require.NoError(err)
	require.Equal(uint64(2), status.LastReportedRound)
	require.Equal(uint64(2), status.LastStartedRound)
	require.Equal("[200]", status.LatestSubmission.String())
	require.Equal(int64(2*testPayment), status.Withdrawable.Int64())
}

func (suite *KeeperTestSuite) TestMultiValueSubmissions() {
	f := keepertest.AggregatorKeeper(suite.T())
	require := suite.Require()
	cfg := types.DefaultConfig()
	cfg.ValuesCount = 2
	require.NoError(f.Keeper.Initialize(f.Ctx, cfg, math.ZeroInt(), testTimeout))
	f.AddOracles(suite.T(), []sdk.AccAddress{oracleA, oracleB, oracleC}, 3, 3, 0)

	require.NoError(submit(f, oracleA, 1, 10, 1000))
	require.NoError(submit(f, oracleB, 1, 30, 3000))
	require.NoError(submit(f, oracleC, 1, 20, 2000))
	requireAnswer(suite.T(), f, 1, "[20,2000]")

	require.ErrorIs(submit(f, oracleA, 2, 10), types.ErrWrongValuesCount)
}

func (suite *KeeperTestSuite) TestFullWidthValuesAggregate() {
	f := keepertest.AggregatorKeeper(suite.T())
	require := suite.Require()
	maxUint := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	half := math.NewUintFromBigInt(new(big.Int).Lsh(big.NewInt(1), 255))

	cfg := types.DefaultConfig()
	cfg.MaxSubmissionValue = math.NewUintFromBigInt(maxUint)
	require.NoError(f.Keeper.Initialize(f.Ctx, cfg, math.ZeroInt(), testTimeout))
	f.AddOracles(suite.T(), []sdk.AccAddress{oracleA, oracleB}, 2, 2, 0)

	require.NoError(f.Keeper.Submit(f.Ctx, oracleA, 1, []math.Uint{half}))
	require.NoError(f.Keeper.Submit(f.Ctx, oracleB, 1, []math.Uint{half}))
	requireAnswer(suite.T(), f, 1, "["+half.String()+"]")

	top := math.NewUintFromBigInt(maxUint)
	require.NoError(f.Keeper.Submit(f.Ctx, oracleA, 2, []math.Uint{top}))
	require.NoError(f.Keeper.Submit(f.Ctx, oracleB, 2, []math.Uint{top}))
	requireAnswer(suite.T(), f, 2, "["+maxUint.String()+"]")
}
