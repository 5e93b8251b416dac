package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/aggregator/testutil/keeper"
	"github.com/paw-chain/aggregator/x/aggregator/types"
)

func TestChangeOraclesValidation(t *testing.T) {
	f := setupOracles(t, 0)
	oracleD := keepertest.Addr("oracle_d")

	tests := []struct {
		name    string
		caller  sdk.AccAddress
		removed []sdk.AccAddress
		added   []sdk.AccAddress
		admins  []sdk.AccAddress
		min     uint64
		max     uint64
		delay   uint64
		err     error
		class   error
	}{
		{
			name:   "not owner",
			caller: oracleA,
			added:  []sdk.AccAddress{oracleD}, admins: []sdk.AccAddress{oracleD},
			min: 2, max: 3,
			err: types.ErrNotOwner, class: types.ErrAuthorization,
		},
		{
			name:   "admin count mismatch",
			caller: f.Authority,
			added:  []sdk.AccAddress{oracleD}, admins: nil,
			min: 2, max: 3,
			err: types.ErrAdminCountMismatch, class: types.ErrValidation,
		},
		{
			name:   "already enabled",
			caller: f.Authority,
			added:  []sdk.AccAddress{oracleA}, admins: []sdk.AccAddress{oracleA},
			min: 2, max: 3,
			err: types.ErrAlreadyEnabled, class: types.ErrValidation,
		},
		{
			name:    "remove unknown oracle",
			caller:  f.Authority,
			removed: []sdk.AccAddress{oracleD},
			min:     2, max: 3,
			err: types.ErrOracleNotFound, class: types.ErrNotFound,
		},
		{
			name:   "max above oracle count",
			caller: f.Authority,
			min:    2, max: 4,
			err: types.ErrInvalidRoundParams, class: types.ErrValidation,
		},
		{
			name:   "min above max",
			caller: f.Authority,
			min:    3, max: 2,
			err: types.ErrInvalidRoundParams, class: types.ErrValidation,
		},
		{
			name:   "restart delay not below oracle count",
			caller: f.Authority,
			min:    2, max: 3, delay: 3,
			err: types.ErrInvalidRoundParams, class: types.ErrValidation,
		},
		{
			name:   "zero min with oracles",
			caller: f.Authority,
			min:    0, max: 3,
			err: types.ErrInvalidRoundParams, class: types.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Keeper.ChangeOracles(f.Ctx, tt.caller, tt.removed, tt.added, tt.admins, tt.min, tt.max, tt.delay)
			require.ErrorIs(t, err, tt.err)
			require.ErrorIs(t, err, tt.class)

			count, err := f.Keeper.OracleCount(f.Ctx)
			require.NoError(t, err)
			require.Equal(t, uint64(3), count)
		})
	}
}

func TestUpdateFutureRoundsMaxAboveOracleCount(t *testing.T) {
	f := setupOracles(t, 0)

	err := f.Keeper.UpdateFutureRounds(f.Ctx, f.Authority, math.NewInt(testPayment), 2, 4, 0, testTimeout)
	require.ErrorIs(t, err, types.ErrInvalidRoundParams)
	require.ErrorIs(t, err, types.ErrValidation)

	err = f.Keeper.UpdateFutureRounds(f.Ctx, oracleA, math.NewInt(testPayment), 2, 3, 0, testTimeout)
	require.ErrorIs(t, err, types.ErrNotOwner)
}

func TestOracleStartingRound(t *testing.T) {
	f := setupOracles(t, 0)
	oracleD := keepertest.Addr("oracle_d")

	status, err := f.Keeper.GetOracleStatus(f.Ctx, oracleA)
	require.NoError(t, err)
	require.Equal(t, uint64(1), status.StartingRound)
	require.Equal(t, types.RoundMax, status.EndingRound)
	require.Equal(t, oracleA.String(), status.Admin)

	require.NoError(t, submit(f, oracleA, 1, 100))
	require.NoError(t, f.Keeper.ChangeOracles(f.Ctx, f.Authority, nil,
		[]sdk.AccAddress{oracleD}, []sdk.AccAddress{oracleA}, 2, 3, 0))

	status, err = f.Keeper.GetOracleStatus(f.Ctx, oracleD)
	require.NoError(t, err)
	require.Equal(t, uint64(2), status.StartingRound)

	// D joined during round 1 and reports from round 2 on
	err = submit(f, oracleD, 1, 100)
	require.ErrorIs(t, err, types.ErrOracleNotYetEnabled)

	oracles, err := f.Keeper.GetOracles(f.Ctx)
	require.NoError(t, err)
	require.Len(t, oracles, 4)
	admin, err := f.Keeper.GetAdmin(f.Ctx, oracleD)
	require.NoError(t, err)
	require.Equal(t, oracleA, admin)
}

func TestReaddedOracleStartsAfterReportingRound(t *testing.T) {
	f := setupOracles(t, 0)
	require.NoError(t, submit(f, oracleA, 1, 100))
	require.NoError(t, submit(f, oracleB, 1, 200))

	require.NoError(t, f.Keeper.ChangeOracles(f.Ctx, f.Authority,
		[]sdk.AccAddress{oracleC}, []sdk.AccAddress{oracleC}, []sdk.AccAddress{oracleC}, 2, 3, 0))

	status, err := f.Keeper.GetOracleStatus(f.Ctx, oracleC)
	require.NoError(t, err)
	require.Equal(t, uint64(2), status.StartingRound)
	require.Equal(t, types.RoundMax, status.EndingRound)
	require.Zero(t, status.LastReportedRound)

	// round 1 still has room but C was re-registered during it
	require.ErrorIs(t, submit(f, oracleC, 1, 300), types.ErrOracleNotYetEnabled)
	require.NoError(t, submit(f, oracleC, 2, 300))
}

func TestRemoveOraclePaysOutToAdmin(t *testing.T) {
	f := setupOracles(t, 0)
	require.NoError(t, submit(f, oracleA, 1, 100))
	require.NoError(t, submit(f, oracleB, 1, 200))

	require.NoError(t, f.Keeper.ChangeOracles(f.Ctx, f.Authority,
		[]sdk.AccAddress{oracleA}, nil, nil, 1, 2, 0))

	_, err := f.Keeper.GetOracleStatus(f.Ctx, oracleA)
	require.ErrorIs(t, err, types.ErrOracleNotFound)
	require.Equal(t, int64(testPayment), f.Bank.GetBalance(f.Ctx, oracleA, sdk.DefaultBondDenom).Amount.Int64())
	require.Equal(t, int64(testPayment), f.Keeper.AllocatedFunds(f.Ctx).Int64())

	count, err := f.Keeper.OracleCount(f.Ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	err = submit(f, oracleA, 2, 100)
	require.ErrorIs(t, err, types.ErrOracleNotEnabled)
}

func TestAdminHandoff(t *testing.T) {
	f := setupOracles(t, 0)
	newAdmin := keepertest.Addr("new_admin")

	err := f.Keeper.TransferAdmin(f.Ctx, oracleB, oracleA, newAdmin)
	require.ErrorIs(t, err, types.ErrNotAdmin)

	require.NoError(t, f.Keeper.TransferAdmin(f.Ctx, oracleA, oracleA, newAdmin))
	status, err := f.Keeper.GetOracleStatus(f.Ctx, oracleA)
	require.NoError(t, err)
	require.True(t, status.HasPendingAdmin())
	require.Equal(t, oracleA.String(), status.Admin)

	err = f.Keeper.AcceptAdmin(f.Ctx, stranger, oracleA)
	require.ErrorIs(t, err, types.ErrNotPendingAdmin)
	require.ErrorIs(t, err, types.ErrAuthorization)

	require.NoError(t, f.Keeper.AcceptAdmin(f.Ctx, newAdmin, oracleA))
	admin, err := f.Keeper.GetAdmin(f.Ctx, oracleA)
	require.NoError(t, err)
	require.Equal(t, newAdmin, admin)

	status, err = f.Keeper.GetOracleStatus(f.Ctx, oracleA)
	require.NoError(t, err)
	require.False(t, status.HasPendingAdmin())

	// the handoff cannot be replayed
	err = f.Keeper.AcceptAdmin(f.Ctx, newAdmin, oracleA)
	require.ErrorIs(t, err, types.ErrNotPendingAdmin)

	// only the new admin can withdraw
	require.NoError(t, submit(f, oracleA, 1, 100))
	err = f.Keeper.WithdrawPayment(f.Ctx, oracleA, oracleA, oracleA, math.NewInt(1))
	require.ErrorIs(t, err, types.ErrNotAdmin)
	require.NoError(t, f.Keeper.WithdrawPayment(f.Ctx, newAdmin, oracleA, newAdmin, math.NewInt(1)))
}

func TestRoundParametersFrozenAtStart(t *testing.T) {
	f := setupOracles(t, 0)
	require.NoError(t, submit(f, oracleA, 1, 100))

	require.NoError(t, f.Keeper.UpdateFutureRounds(f.Ctx, f.Authority, math.NewInt(20), 2, 2, 0, testTimeout))

	// round 1 keeps its payment and max submissions
	require.NoError(t, submit(f, oracleB, 1, 200))
	require.NoError(t, submit(f, oracleC, 1, 300))
	require.Equal(t, int64(testPayment), withdrawable(t, f, oracleC))
	requireAnswer(t, f, 1, "[200]")

	require.NoError(t, submit(f, oracleA, 2, 100))
	require.Equal(t, int64(testPayment+20), withdrawable(t, f, oracleA))
	details, found, err := f.Keeper.GetRoundDetails(f.Ctx, 2)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(2), details.MaxSubmissions)
}
