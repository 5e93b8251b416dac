package keeper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/aggregator/x/aggregator/keeper"
	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// GenesisTime is the block time of contexts built by AggregatorKeeper.
var GenesisTime = time.Unix(1_700_000_000, 0).UTC()

// MockBankKeeper is an in-memory bank. Transfers either move the full amount
// or fail without effect.
type MockBankKeeper struct {
	mu       sync.Mutex
	balances map[string]sdk.Coins
}

// NewMockBankKeeper creates an empty bank
func NewMockBankKeeper() *MockBankKeeper {
	return &MockBankKeeper{balances: make(map[string]sdk.Coins)}
}

// Fund credits coins to an account out of thin air
func (m *MockBankKeeper) Fund(addr sdk.AccAddress, coins ...sdk.Coin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr.String()] = m.balances[addr.String()].Add(coins...)
}

// GetBalance implements types.BankKeeper
func (m *MockBankKeeper) GetBalance(_ context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sdk.NewCoin(denom, m.balances[addr.String()].AmountOf(denom))
}

// SendCoinsFromAccountToModule implements types.BankKeeper
func (m *MockBankKeeper) SendCoinsFromAccountToModule(_ context.Context, sender sdk.AccAddress, module string, amt sdk.Coins) error {
	return m.send(sender, authtypes.NewModuleAddress(module), amt)
}

// SendCoinsFromModuleToAccount implements types.BankKeeper
func (m *MockBankKeeper) SendCoinsFromModuleToAccount(_ context.Context, module string, recipient sdk.AccAddress, amt sdk.Coins) error {
	return m.send(authtypes.NewModuleAddress(module), recipient, amt)
}

func (m *MockBankKeeper) send(from, to sdk.AccAddress, amt sdk.Coins) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance := m.balances[from.String()]
	if !balance.IsAllGTE(amt) {
		return fmt.Errorf("insufficient funds: %s has %s, needs %s", from, balance, amt)
	}
	m.balances[from.String()] = balance.Sub(amt...)
	m.balances[to.String()] = m.balances[to.String()].Add(amt...)
	return nil
}

// AggregatorFixture bundles a keeper with its context and mock bank.
type AggregatorFixture struct {
	Keeper    *keeper.Keeper
	Ctx       sdk.Context
	Bank      *MockBankKeeper
	Authority sdk.AccAddress
}

// AggregatorKeeper creates an uninitialized aggregator keeper over an
// in-memory store, a mock bank and a context at GenesisTime.
func AggregatorKeeper(t testing.TB) *AggregatorFixture {
	storeKey := storetypes.NewKVStoreKey(types.StoreKey)

	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	require.NoError(t, stateStore.LoadLatestVersion())

	authority := authtypes.NewModuleAddress(govtypes.ModuleName)
	bank := NewMockBankKeeper()
	k := keeper.NewKeeper(storeKey, bank, authority.String())

	ctx := sdk.NewContext(stateStore, cmtproto.Header{}, false, log.NewNopLogger()).
		WithBlockTime(GenesisTime)

	return &AggregatorFixture{
		Keeper:    k,
		Ctx:       ctx,
		Bank:      bank,
		Authority: authority,
	}
}

// InitializedAggregatorKeeper returns a keeper initialized with the default
// configuration, the given payment per submission and timeout.
func InitializedAggregatorKeeper(t testing.TB, payment int64, timeout uint64) *AggregatorFixture {
	f := AggregatorKeeper(t)
	require.NoError(t, f.Keeper.Initialize(f.Ctx, types.DefaultConfig(), math.NewInt(payment), timeout))
	return f
}

// Advance moves block time forward.
func (f *AggregatorFixture) Advance(d time.Duration) {
	f.Ctx = f.Ctx.WithBlockTime(f.Ctx.BlockTime().Add(d))
}

// Deposit funds depositor in the mock bank and adds the amount to the aggregator.
func (f *AggregatorFixture) Deposit(t testing.TB, depositor sdk.AccAddress, amount int64) {
	coin := sdk.NewInt64Coin(sdk.DefaultBondDenom, amount)
	f.Bank.Fund(depositor, coin)
	require.NoError(t, f.Keeper.AddFunds(f.Ctx, depositor, coin))
}

// AddOracles registers oracles (each its own admin) and sets round limits.
func (f *AggregatorFixture) AddOracles(t testing.TB, oracles []sdk.AccAddress, minSubmissions, maxSubmissions, restartDelay uint64) {
	require.NoError(t, f.Keeper.ChangeOracles(f.Ctx, f.Authority, nil, oracles, oracles, minSubmissions, maxSubmissions, restartDelay))
}

// Values converts plain integers to submission values.
func Values(values ...uint64) []math.Uint {
	return types.NewSubmission(values...).Values
}

// Addr returns a deterministic test address.
func Addr(name string) sdk.AccAddress {
	bz := make([]byte, 20)
	copy(bz, name)
	return sdk.AccAddress(bz)
}
