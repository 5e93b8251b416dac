package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
	sharedkeeper "github.com/paw-chain/aggregator/x/shared/keeper"
)

// Keeper is the round lifecycle controller. It is the only writer of the
// aggregator store: rounds, aggregation buffers, oracles, requesters, funds
// and deposits.
type Keeper struct {
	storeKey   storetypes.StoreKey
	bankKeeper types.BankKeeper
	authority  string // owner of the aggregator (usually governance module account)
	metrics    *AggregatorMetrics
}

// NewKeeper creates a new aggregator Keeper instance
func NewKeeper(
	key storetypes.StoreKey,
	bankKeeper types.BankKeeper,
	authority string,
) *Keeper {
	if err := sharedkeeper.ValidateAuthorityAddress(authority); err != nil {
		panic(err)
	}

	return &Keeper{
		storeKey:   key,
		bankKeeper: bankKeeper,
		authority:  authority,
		metrics:    NewAggregatorMetrics(),
	}
}

// getStore returns the KVStore for the aggregator module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return sdkCtx.KVStore(k.storeKey)
}

// Logger returns a module-specific logger
func (k Keeper) Logger(ctx context.Context) log.Logger {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return sdkCtx.Logger().With("module", fmt.Sprintf("x/%s", types.ModuleName))
}

// GetAuthority returns the owner address
func (k Keeper) GetAuthority() string {
	return k.authority
}

// ModuleAddress is the account holding deposited funds and unpaid oracle earnings.
func (k Keeper) ModuleAddress() sdk.AccAddress {
	return authtypes.NewModuleAddress(types.ModuleName)
}

// atomically runs fn on a branch of the store and writes the branch back only
// if fn succeeds, so a failed entry point leaves no trace.
func (k Keeper) atomically(ctx context.Context, fn func(ctx sdk.Context) error) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	cacheCtx, write := sdkCtx.CacheContext()
	if err := fn(cacheCtx); err != nil {
		k.metrics.observeRejection(err)
		return err
	}
	write()
	k.metrics.observeEvents(cacheCtx.EventManager().Events())
	return nil
}

func (k Keeper) requireOwner(caller sdk.AccAddress) error {
	if err := sharedkeeper.ValidateAuthority(k.authority, caller.String()); err != nil {
		return types.WrapWithRecovery(types.ErrNotOwner, "%s", err)
	}
	return nil
}

// now is the block time in unix seconds.
func (k Keeper) now(ctx context.Context) uint64 {
	t := sdk.UnwrapSDKContext(ctx).BlockTime().Unix()
	if t < 0 {
		return 0
	}
	return uint64(t)
}

func (k Keeper) setRecord(ctx context.Context, key []byte, record interface{}) error {
	bz, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", record, err)
	}
	k.getStore(ctx).Set(key, bz)
	return nil
}

func (k Keeper) getRecord(ctx context.Context, key []byte, record interface{}) (bool, error) {
	bz := k.getStore(ctx).Get(key)
	if bz == nil {
		return false, nil
	}
	if err := json.Unmarshal(bz, record); err != nil {
		return false, fmt.Errorf("failed to unmarshal %T: %w", record, err)
	}
	return true, nil
}

func (k Keeper) setUint64(ctx context.Context, key []byte, value uint64) {
	k.getStore(ctx).Set(key, types.Uint64ToBytes(value))
}

func (k Keeper) getUint64(ctx context.Context, key []byte) uint64 {
	return types.BytesToUint64(k.getStore(ctx).Get(key))
}
