package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// GetFunds returns the available/allocated totals
func (k Keeper) GetFunds(ctx context.Context) types.Funds {
	var funds types.Funds
	found, err := k.getRecord(ctx, types.FundsKey, &funds)
	if err != nil || !found {
		if err != nil {
			k.Logger(ctx).Error("failed to read funds", "error", err)
		}
		return types.ZeroFunds()
	}
	return funds
}

func (k Keeper) setFunds(ctx context.Context, funds types.Funds) error {
	return k.setRecord(ctx, types.FundsKey, funds)
}

// AddFunds moves coins from caller into the module account and credits them
// to available funds and the caller's deposit.
func (k Keeper) AddFunds(ctx context.Context, caller sdk.AccAddress, amount sdk.Coin) error {
	err := k.atomically(ctx, func(ctx sdk.Context) error {
		cfg, err := k.GetConfig(ctx)
		if err != nil {
			return err
		}
		if amount.Denom != cfg.Denom {
			return errorsmod.Wrapf(types.ErrWrongToken, "got %s, expected %s", amount.Denom, cfg.Denom)
		}
		if amount.Amount.IsNil() || !amount.Amount.IsPositive() {
			return errorsmod.Wrapf(types.ErrInvalidAmount, "deposit %s", amount)
		}

		if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, caller, types.ModuleName, sdk.NewCoins(amount)); err != nil {
			return errorsmod.Wrapf(types.ErrInsufficientFunds, "transfer from %s: %s", caller, err)
		}

		funds := k.GetFunds(ctx)
		funds.Available = funds.Available.Add(amount.Amount)
		if err := k.setFunds(ctx, funds); err != nil {
			return err
		}

		deposit, err := k.WithdrawableAddedFunds(ctx, caller)
		if err != nil {
			return err
		}
		if err := k.setDeposit(ctx, caller, deposit.Add(amount.Amount)); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeFundsAdded,
				sdk.NewAttribute(types.AttributeKeyDepositor, caller.String()),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.Amount.String()),
				sdk.NewAttribute(types.AttributeKeyAvailable, funds.Available.String()),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}

	k.Logger(ctx).Info("funds added", "depositor", caller.String(), "amount", amount.String())
	return nil
}

// WithdrawFunds returns part of the caller's unspent deposit. The remaining
// available funds must still cover the reserve for the current configuration.
func (k Keeper) WithdrawFunds(ctx context.Context, caller sdk.AccAddress, amount math.Int) error {
	err := k.atomically(ctx, func(ctx sdk.Context) error {
		if amount.IsNil() || !amount.IsPositive() {
			return errorsmod.Wrapf(types.ErrInvalidAmount, "withdrawal amount %s", amount)
		}

		deposit, err := k.WithdrawableAddedFunds(ctx, caller)
		if err != nil {
			return err
		}
		if deposit.LT(amount) {
			return errorsmod.Wrapf(types.ErrInsufficientDeposit, "requested %s, deposited %s", amount, deposit)
		}

		params, err := k.GetRoundParams(ctx)
		if err != nil {
			return err
		}
		reserve, err := k.RequiredReserve(ctx, params.PaymentAmount)
		if err != nil {
			return err
		}
		funds := k.GetFunds(ctx)
		if funds.Available.LT(reserve.Add(amount)) {
			return errorsmod.Wrapf(types.ErrInsufficientReserve,
				"available %s minus %s would fall below reserve %s", funds.Available, amount, reserve)
		}

		funds.Available = funds.Available.Sub(amount)
		if err := k.setFunds(ctx, funds); err != nil {
			return err
		}
		if err := k.setDeposit(ctx, caller, deposit.Sub(amount)); err != nil {
			return err
		}
		if err := k.send(ctx, caller, amount); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeFundsWithdrawn,
				sdk.NewAttribute(types.AttributeKeyDepositor, caller.String()),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
				sdk.NewAttribute(types.AttributeKeyAvailable, funds.Available.String()),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}

	k.Logger(ctx).Info("funds withdrawn", "depositor", caller.String(), "amount", amount.String())
	return nil
}

// RequiredReserve is the available balance needed to pre-fund ReserveRounds
// full rounds at the given payment with the current oracle set.
func (k Keeper) RequiredReserve(ctx context.Context, payment math.Int) (math.Int, error) {
	oracleCount, err := k.OracleCount(ctx)
	if err != nil {
		return math.Int{}, err
	}
	return requiredReserve(payment, oracleCount), nil
}

// accruePayment moves the round's frozen payment from available to the
// oracle's withdrawable balance, drawing deposits down oldest first.
func (k Keeper) accruePayment(ctx sdk.Context, oracle sdk.AccAddress, roundID uint64) (math.Int, error) {
	details, err := k.getRoundDetailsOrEmpty(ctx, roundID)
	if err != nil {
		return math.Int{}, err
	}
	payment := details.PaymentAmount

	funds := k.GetFunds(ctx)
	if funds.Available.LT(payment) {
		return math.Int{}, errorsmod.Wrapf(types.ErrInsufficientPayment,
			"round %d pays %s, available %s", roundID, payment, funds.Available)
	}
	funds.Available = funds.Available.Sub(payment)
	funds.Allocated = funds.Allocated.Add(payment)
	if err := k.setFunds(ctx, funds); err != nil {
		return math.Int{}, err
	}
	if err := k.drawDownDeposits(ctx, payment); err != nil {
		return math.Int{}, err
	}

	status, err := k.GetOracleStatus(ctx, oracle)
	if err != nil {
		return math.Int{}, err
	}
	status.Withdrawable = status.Withdrawable.Add(payment)
	if err := k.SetOracleStatus(ctx, oracle, status); err != nil {
		return math.Int{}, err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeOraclePaid,
			sdk.NewAttribute(types.AttributeKeyOracle, oracle.String()),
			sdk.NewAttribute(types.AttributeKeyRoundID, fmt.Sprintf("%d", roundID)),
			sdk.NewAttribute(types.AttributeKeyAmount, payment.String()),
			sdk.NewAttribute(types.AttributeKeyAllocated, funds.Allocated.String()),
		),
	)
	return payment, nil
}

// releaseAllocated pays allocated funds out of the module account.
func (k Keeper) releaseAllocated(ctx sdk.Context, amount math.Int, recipient sdk.AccAddress) error {
	funds := k.GetFunds(ctx)
	if funds.Allocated.LT(amount) {
		return errorsmod.Wrapf(types.ErrInsufficientFunds, "allocated %s, releasing %s", funds.Allocated, amount)
	}
	funds.Allocated = funds.Allocated.Sub(amount)
	if err := k.setFunds(ctx, funds); err != nil {
		return err
	}
	return k.send(ctx, recipient, amount)
}

func (k Keeper) send(ctx sdk.Context, recipient sdk.AccAddress, amount math.Int) error {
	cfg, err := k.GetConfig(ctx)
	if err != nil {
		return err
	}
	coins := sdk.NewCoins(sdk.NewCoin(cfg.Denom, amount))
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, recipient, coins); err != nil {
		return errorsmod.Wrapf(types.ErrInsufficientFunds, "transfer to %s: %s", recipient, err)
	}
	return nil
}

// GetDeposit returns a depositor's record and whether it exists
func (k Keeper) GetDeposit(ctx context.Context, depositor sdk.AccAddress) (types.Deposit, bool, error) {
	var deposit types.Deposit
	found, err := k.getRecord(ctx, types.GetDepositKey(depositor), &deposit)
	if err != nil || !found {
		return types.Deposit{}, false, err
	}
	return deposit, true, nil
}

// WithdrawableAddedFunds returns the unspent part of a depositor's contributions
func (k Keeper) WithdrawableAddedFunds(ctx context.Context, depositor sdk.AccAddress) (math.Int, error) {
	deposit, found, err := k.GetDeposit(ctx, depositor)
	if err != nil {
		return math.Int{}, err
	}
	if !found {
		return math.ZeroInt(), nil
	}
	return deposit.Amount, nil
}

// setDeposit writes a depositor balance. A zero balance deletes the record and
// its order entry; a new depositor is appended to the draw-down order.
func (k Keeper) setDeposit(ctx context.Context, depositor sdk.AccAddress, amount math.Int) error {
	store := k.getStore(ctx)
	existing, found, err := k.GetDeposit(ctx, depositor)
	if err != nil {
		return err
	}

	if amount.IsZero() {
		if found {
			store.Delete(types.GetDepositKey(depositor))
			store.Delete(types.GetDepositOrderKey(existing.Sequence))
		}
		return nil
	}

	sequence := existing.Sequence
	if !found {
		sequence = k.nextDepositSequence(ctx)
		store.Set(types.GetDepositOrderKey(sequence), depositor)
	}
	return k.setRecord(ctx, types.GetDepositKey(depositor), types.Deposit{
		Depositor: depositor.String(),
		Amount:    amount,
		Sequence:  sequence,
	})
}

func (k Keeper) nextDepositSequence(ctx context.Context) uint64 {
	sequence := k.getUint64(ctx, types.DepositSequenceKey)
	k.setUint64(ctx, types.DepositSequenceKey, sequence+1)
	return sequence
}

// IterateDeposits walks deposits oldest first
func (k Keeper) IterateDeposits(ctx context.Context, cb func(depositor sdk.AccAddress, deposit types.Deposit) (stop bool)) error {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, types.DepositOrderKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		depositor := sdk.AccAddress(iterator.Value())
		bz := store.Get(types.GetDepositKey(depositor))
		if bz == nil {
			return fmt.Errorf("deposit order entry without deposit for %s", depositor)
		}
		var deposit types.Deposit
		if err := json.Unmarshal(bz, &deposit); err != nil {
			return fmt.Errorf("failed to unmarshal deposit %s: %w", depositor, err)
		}
		if cb(depositor, deposit) {
			break
		}
	}
	return nil
}

// drawDownDeposits consumes amount from deposits oldest first, zeroing each
// before touching the next.
func (k Keeper) drawDownDeposits(ctx context.Context, amount math.Int) error {
	type drawn struct {
		depositor sdk.AccAddress
		remaining math.Int
	}

	var updates []drawn
	outstanding := amount
	err := k.IterateDeposits(ctx, func(depositor sdk.AccAddress, deposit types.Deposit) bool {
		if !outstanding.IsPositive() {
			return true
		}
		take := math.MinInt(deposit.Amount, outstanding)
		outstanding = outstanding.Sub(take)
		updates = append(updates, drawn{depositor: depositor, remaining: deposit.Amount.Sub(take)})
		return false
	})
	if err != nil {
		return err
	}

	for _, u := range updates {
		if err := k.setDeposit(ctx, u.depositor, u.remaining); err != nil {
			return err
		}
	}
	return nil
}
