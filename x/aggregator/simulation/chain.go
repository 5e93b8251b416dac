package simulation

import (
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	"github.com/cosmos/cosmos-sdk/codec/address"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/runtime"
	sdkstd "github.com/cosmos/cosmos-sdk/std"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authkeeper "github.com/cosmos/cosmos-sdk/x/auth/keeper"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	bankkeeper "github.com/cosmos/cosmos-sdk/x/bank/keeper"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	"github.com/paw-chain/aggregator/x/aggregator/keeper"
	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// FaucetName is the module account that mints simulation tokens.
const FaucetName = "faucet"

// Chain is a single-node ledger held in memory: the aggregator keeper wired to
// real auth and bank keepers. Every keeper call goes through Exec, which
// serializes access to the shared context.
type Chain struct {
	mu  sync.Mutex
	ctx sdk.Context

	Keeper *keeper.Keeper
	Bank   bankkeeper.BaseKeeper
	Owner  sdk.AccAddress
}

// NewChain mounts the aggregator, auth and bank stores over a memory database
// and returns a chain whose block time starts at genesis.
func NewChain(logger log.Logger, owner sdk.AccAddress, genesis time.Time) (*Chain, error) {
	storeKey := storetypes.NewKVStoreKey(types.StoreKey)
	authStoreKey := storetypes.NewKVStoreKey(authtypes.StoreKey)
	bankStoreKey := storetypes.NewKVStoreKey(banktypes.StoreKey)

	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(authStoreKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(bankStoreKey, storetypes.StoreTypeIAVL, db)
	if err := stateStore.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}

	registry := codectypes.NewInterfaceRegistry()
	sdkstd.RegisterInterfaces(registry)
	authtypes.RegisterInterfaces(registry)
	banktypes.RegisterInterfaces(registry)
	cdc := codec.NewProtoCodec(registry)

	maccPerms := map[string][]string{
		FaucetName:       {authtypes.Minter},
		types.ModuleName: nil,
	}
	bech32Prefix := sdk.GetConfig().GetBech32AccountAddrPrefix()

	accountKeeper := authkeeper.NewAccountKeeper(
		cdc,
		runtime.NewKVStoreService(authStoreKey),
		authtypes.ProtoBaseAccount,
		maccPerms,
		address.NewBech32Codec(bech32Prefix),
		bech32Prefix,
		owner.String(),
	)

	bankKeeper := bankkeeper.NewBaseKeeper(
		cdc,
		runtime.NewKVStoreService(bankStoreKey),
		accountKeeper,
		map[string]bool{},
		owner.String(),
		logger,
	)

	ctx := sdk.NewContext(stateStore, cmtproto.Header{Height: 1, Time: genesis}, false, logger)
	if err := bankKeeper.SetParams(ctx, banktypes.DefaultParams()); err != nil {
		return nil, fmt.Errorf("bank params: %w", err)
	}

	return &Chain{
		ctx:    ctx,
		Keeper: keeper.NewKeeper(storeKey, bankKeeper, owner.String()),
		Bank:   bankKeeper,
		Owner:  owner,
	}, nil
}

// Exec runs fn against the chain context while holding the chain lock.
func (c *Chain) Exec(fn func(ctx sdk.Context) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.ctx)
}

// Advance moves to the next block d later.
func (c *Chain) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = c.ctx.
		WithBlockHeight(c.ctx.BlockHeight() + 1).
		WithBlockTime(c.ctx.BlockTime().Add(d))
}

// BlockTime returns the current block time.
func (c *Chain) BlockTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx.BlockTime()
}

// Fund mints coins through the faucet and sends them to addr.
func (c *Chain) Fund(addr sdk.AccAddress, coins sdk.Coins) error {
	return c.Exec(func(ctx sdk.Context) error {
		if err := c.Bank.MintCoins(ctx, FaucetName, coins); err != nil {
			return fmt.Errorf("mint %s: %w", coins, err)
		}
		return c.Bank.SendCoinsFromModuleToAccount(ctx, FaucetName, addr, coins)
	})
}

// Balance returns the balance of addr in denom.
func (c *Chain) Balance(addr sdk.AccAddress, denom string) sdk.Coin {
	var coin sdk.Coin
	_ = c.Exec(func(ctx sdk.Context) error {
		coin = c.Bank.GetBalance(ctx, addr, denom)
		return nil
	})
	return coin
}
