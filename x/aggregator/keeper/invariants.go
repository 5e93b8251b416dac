package keeper

import (
	"fmt"
	"strings"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// RegisterInvariants registers all aggregator module invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "funds-conservation",
		FundsConservationInvariant(k))
	ir.RegisterRoute(types.ModuleName, "allocated-withdrawable",
		AllocatedWithdrawableInvariant(k))
	ir.RegisterRoute(types.ModuleName, "deposits-backed",
		DepositsBackedInvariant(k))
	ir.RegisterRoute(types.ModuleName, "round-answers",
		RoundAnswerInvariant(k))
}

// AllInvariants runs all invariants of the aggregator module
func AllInvariants(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		res, stop := FundsConservationInvariant(k)(ctx)
		if stop {
			return res, stop
		}
		res, stop = AllocatedWithdrawableInvariant(k)(ctx)
		if stop {
			return res, stop
		}
		res, stop = DepositsBackedInvariant(k)(ctx)
		if stop {
			return res, stop
		}
		return RoundAnswerInvariant(k)(ctx)
	}
}

// FundsConservationInvariant checks that the module account holds at least
// available + allocated. Tokens sent to the module account outside AddFunds
// are not tracked, so the balance may exceed the total.
func FundsConservationInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		cfg, err := k.GetConfig(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "funds-conservation", "aggregator not initialized\n"), false
		}

		funds := k.GetFunds(ctx)
		balance := k.bankKeeper.GetBalance(ctx, k.ModuleAddress(), cfg.Denom)
		broken := balance.Amount.LT(funds.Total())

		return sdk.FormatInvariant(
			types.ModuleName, "funds-conservation",
			fmt.Sprintf("module balance %s, available %s, allocated %s\n",
				balance.Amount, funds.Available, funds.Allocated),
		), broken
	}
}

// AllocatedWithdrawableInvariant checks that allocated equals the sum of
// oracle withdrawable balances.
func AllocatedWithdrawableInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		total := math.ZeroInt()
		var issues []string
		err := k.IterateOracles(ctx, func(oracle sdk.AccAddress, status types.OracleStatus) bool {
			if status.Withdrawable.IsNil() || status.Withdrawable.IsNegative() {
				issues = append(issues, fmt.Sprintf("oracle %s has invalid withdrawable", oracle))
				return false
			}
			total = total.Add(status.Withdrawable)
			return false
		})
		if err != nil {
			issues = append(issues, err.Error())
		}

		allocated := k.GetFunds(ctx).Allocated
		if !total.Equal(allocated) {
			issues = append(issues, fmt.Sprintf("allocated %s, sum of withdrawable %s", allocated, total))
		}

		return formatIssues("allocated-withdrawable", issues)
	}
}

// DepositsBackedInvariant checks that deposits never exceed available funds.
func DepositsBackedInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		total := math.ZeroInt()
		var issues []string
		err := k.IterateDeposits(ctx, func(depositor sdk.AccAddress, d types.Deposit) bool {
			if !d.Amount.IsPositive() {
				issues = append(issues, fmt.Sprintf("depositor %s has non-positive deposit %s", depositor, d.Amount))
			}
			total = total.Add(d.Amount)
			return false
		})
		if err != nil {
			issues = append(issues, err.Error())
		}

		available := k.GetFunds(ctx).Available
		if total.GT(available) {
			issues = append(issues, fmt.Sprintf("deposits %s exceed available %s", total, available))
		}

		return formatIssues("deposits-backed", issues)
	}
}

// RoundAnswerInvariant checks round provenance: an answer never comes from a
// later round, a live buffer below min submissions has not finalized its
// round, and the latest round is answered.
func RoundAnswerInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var issues []string
		err := k.IterateRounds(ctx, func(round types.Round) bool {
			if round.AnsweredInRound > round.RoundID {
				issues = append(issues, fmt.Sprintf("round %d answered in later round %d", round.RoundID, round.AnsweredInRound))
			}
			if round.UpdatedAt > 0 && round.UpdatedAt < round.StartedAt {
				issues = append(issues, fmt.Sprintf("round %d updated before it started", round.RoundID))
			}
			return false
		})
		if err != nil {
			issues = append(issues, err.Error())
		}

		err = k.IterateRoundDetails(ctx, func(roundID uint64, details types.RoundDetails) bool {
			n := uint64(len(details.Submissions))
			if n > details.MaxSubmissions {
				issues = append(issues, fmt.Sprintf("round %d holds %d submissions, max %d", roundID, n, details.MaxSubmissions))
			}
			if n < details.MinSubmissions {
				round, err := k.GetRound(ctx, roundID)
				if err == nil && round.AnsweredInRound == roundID {
					issues = append(issues, fmt.Sprintf("round %d answered with %d of %d submissions", roundID, n, details.MinSubmissions))
				}
			}
			return false
		})
		if err != nil {
			issues = append(issues, err.Error())
		}

		if latest := k.GetLatestRoundID(ctx); latest > 0 {
			round, err := k.GetRound(ctx, latest)
			if err != nil || round.Answer == nil {
				issues = append(issues, fmt.Sprintf("latest round %d has no answer", latest))
			}
		}

		return formatIssues("round-answers", issues)
	}
}

func formatIssues(route string, issues []string) (string, bool) {
	msg := "no issues\n"
	if len(issues) > 0 {
		msg = strings.Join(issues, "\n") + "\n"
	}
	return sdk.FormatInvariant(types.ModuleName, route, msg), len(issues) > 0
}
