package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	simtypes "github.com/cosmos/cosmos-sdk/types/simulation"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/paw-chain/aggregator/x/aggregator/keeper"
	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// GenesisTime is the block time simulations start at.
var GenesisTime = time.Unix(1_700_000_000, 0).UTC()

// Oracle is a simulated oracle node. Offline oracles never report.
type Oracle struct {
	Address sdk.AccAddress
	Online  bool

	rng *rand.Rand
}

// Simulator drives an aggregator on an in-memory chain: each tick advances
// block time and lets every online oracle report into its suggested round.
type Simulator struct {
	cfg    Config
	logger log.Logger
	chain  *Chain

	oracles   []*Oracle
	depositor sdk.AccAddress
	requester sdk.AccAddress

	limiter    *rate.Limiter
	rejections atomic.Int64
}

// NewSimulator builds the chain and sets up the aggregator: initialization,
// the depositor's funds, the oracle set and, when configured, a requester.
func NewSimulator(cfg Config, logger log.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}

	r := rand.New(rand.NewSource(cfg.Seed))
	accounts := simtypes.RandomAccounts(r, cfg.Oracles+3)
	owner, depositor, requester := accounts[0].Address, accounts[1].Address, accounts[2].Address

	chain, err := NewChain(logger, owner, GenesisTime)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:       cfg,
		logger:    logger.With("module", "simulation"),
		chain:     chain,
		depositor: depositor,
		requester: requester,
		limiter:   rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.Pace > 0 {
		s.limiter = rate.NewLimiter(rate.Every(cfg.Pace), 1)
	}
	for i, acc := range accounts[3:] {
		s.oracles = append(s.oracles, &Oracle{
			Address: acc.Address,
			Online:  i >= cfg.Offline,
			rng:     rand.New(rand.NewSource(cfg.Seed + int64(i) + 1)),
		})
	}

	if err := s.setup(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulator) setup() error {
	k := s.chain.Keeper
	cfg := s.cfg

	err := s.chain.Exec(func(ctx sdk.Context) error {
		return k.Initialize(ctx, cfg.AggregatorConfig(), math.NewInt(cfg.Payment), cfg.Timeout)
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if cfg.Deposit > 0 {
		coin := sdk.NewInt64Coin(cfg.Denom, cfg.Deposit)
		if err := s.chain.Fund(s.depositor, sdk.NewCoins(coin)); err != nil {
			return fmt.Errorf("fund depositor: %w", err)
		}
		err = s.chain.Exec(func(ctx sdk.Context) error {
			return k.AddFunds(ctx, s.depositor, coin)
		})
		if err != nil {
			return fmt.Errorf("add funds: %w", err)
		}
	}

	addrs := make([]sdk.AccAddress, len(s.oracles))
	for i, o := range s.oracles {
		addrs[i] = o.Address
	}
	err = s.chain.Exec(func(ctx sdk.Context) error {
		return k.ChangeOracles(ctx, s.chain.Owner, nil, addrs, addrs,
			cfg.MinSubmissions, cfg.MaxSubmissions, cfg.RestartDelay)
	})
	if err != nil {
		return fmt.Errorf("register oracles: %w", err)
	}

	if cfg.RequestEvery > 0 {
		err = s.chain.Exec(func(ctx sdk.Context) error {
			return k.SetRequesterPermissions(ctx, s.chain.Owner, s.requester, true, 0)
		})
		if err != nil {
			return fmt.Errorf("authorize requester: %w", err)
		}
	}

	s.logger.Info("simulation ready",
		"oracles", len(s.oracles),
		"offline", cfg.Offline,
		"deposit", cfg.Deposit,
		"payment", cfg.Payment,
	)
	return nil
}

// Chain returns the simulated chain.
func (s *Simulator) Chain() *Chain {
	return s.chain
}

// Oracles returns the simulated oracles.
func (s *Simulator) Oracles() []*Oracle {
	return s.oracles
}

// LatestRound returns the most recently answered round, if any.
func (s *Simulator) LatestRound() (types.Round, bool) {
	var (
		round types.Round
		found bool
	)
	_ = s.chain.Exec(func(ctx sdk.Context) error {
		if s.chain.Keeper.GetLatestRoundID(ctx) == 0 {
			return nil
		}
		r, err := s.chain.Keeper.LatestRoundData(ctx)
		round, found = r, err == nil
		return nil
	})
	return round, found
}

// Now returns the chain block time.
func (s *Simulator) Now() time.Time {
	return s.chain.BlockTime()
}

// Timeout returns the configured round timeout.
func (s *Simulator) Timeout() time.Duration {
	return time.Duration(s.cfg.Timeout) * time.Second
}

// Run executes the configured number of ticks and returns the final report.
// The ledger invariants are checked after every tick.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	for tick := 1; tick <= s.cfg.Rounds; tick++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		s.chain.Advance(s.cfg.RoundInterval)

		if s.cfg.RequestEvery > 0 && tick%s.cfg.RequestEvery == 0 {
			if err := s.requestRound(); err != nil {
				return nil, err
			}
		}

		observations, err := s.observeAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", tick, err)
		}
		for i, o := range s.oracles {
			if !o.Online {
				continue
			}
			if err := s.report(o, observations[i]); err != nil {
				return nil, fmt.Errorf("tick %d: %w", tick, err)
			}
		}

		if err := s.checkInvariants(); err != nil {
			return nil, fmt.Errorf("tick %d: %w", tick, err)
		}
	}

	if s.cfg.WithdrawAtEnd {
		if err := s.withdrawAll(); err != nil {
			return nil, err
		}
	}
	return s.Report()
}

// observeAll lets every online oracle draw its observation for the tick.
// Each oracle draws from its own seeded source, so the values do not depend
// on scheduling. Submissions then go in oracle order.
func (s *Simulator) observeAll(ctx context.Context) ([][]math.Uint, error) {
	observations := make([][]math.Uint, len(s.oracles))
	g, ctx := errgroup.WithContext(ctx)
	for i, o := range s.oracles {
		if !o.Online {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			observations[i] = s.observe(o)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return observations, nil
}

// report lets an oracle ask for its suggested round and submit its
// observation into it.
func (s *Simulator) report(o *Oracle, values []math.Uint) error {
	k := s.chain.Keeper
	return s.chain.Exec(func(ctx sdk.Context) error {
		state, err := k.OracleRoundState(ctx, o.Address, 0)
		if err != nil {
			return err
		}
		if !state.EligibleToSubmit {
			s.logger.Debug("oracle not eligible", "oracle", o.Address.String(), "round", state.RoundID)
			return nil
		}

		if err := k.Submit(ctx, o.Address, state.RoundID, values); err != nil {
			return s.tolerate(err, "submission rejected", "oracle", o.Address.String(), "round", state.RoundID)
		}
		return nil
	})
}

func (s *Simulator) requestRound() error {
	return s.chain.Exec(func(ctx sdk.Context) error {
		roundID, err := s.chain.Keeper.RequestNewRound(ctx, s.requester)
		if err != nil {
			return s.tolerate(err, "round request rejected")
		}
		s.logger.Debug("round requested", "round", roundID)
		return nil
	})
}

// tolerate counts and logs rejections raised by the aggregator itself and
// passes through anything else.
func (s *Simulator) tolerate(err error, msg string, keyvals ...interface{}) error {
	if types.ErrorClass(err) == nil {
		return err
	}
	s.rejections.Add(1)
	s.logger.Debug(msg, append(keyvals,
		"error", err.Error(),
		"recovery", types.GetRecoverySuggestion(err),
	)...)
	return nil
}

// observe draws one value per slot within JitterBps of the base price.
func (s *Simulator) observe(o *Oracle) []math.Uint {
	values := make([]math.Uint, s.cfg.ValuesCount)
	for i := range values {
		base := s.cfg.basePrice(i)
		spread := base * s.cfg.JitterBps / 10_000
		v := base
		if spread > 0 {
			v = base - spread + uint64(o.rng.Int63n(int64(2*spread+1)))
		}
		if v < s.cfg.MinValue {
			v = s.cfg.MinValue
		}
		if v > s.cfg.MaxValue {
			v = s.cfg.MaxValue
		}
		values[i] = math.NewUint(v)
	}
	return values
}

func (s *Simulator) withdrawAll() error {
	k := s.chain.Keeper
	for _, o := range s.oracles {
		err := s.chain.Exec(func(ctx sdk.Context) error {
			owed, err := k.WithdrawablePayment(ctx, o.Address)
			if err != nil || !owed.IsPositive() {
				return err
			}
			return k.WithdrawPayment(ctx, o.Address, o.Address, o.Address, owed)
		})
		if err != nil {
			return fmt.Errorf("withdraw payment of %s: %w", o.Address, err)
		}
	}
	return nil
}

func (s *Simulator) checkInvariants() error {
	return s.chain.Exec(func(ctx sdk.Context) error {
		if msg, broken := keeper.AllInvariants(*s.chain.Keeper)(ctx); broken {
			return fmt.Errorf("invariant broken: %s", msg)
		}
		return nil
	})
}

// Report summarizes the current ledger.
func (s *Simulator) Report() (*Report, error) {
	k := s.chain.Keeper
	report := &Report{
		RunID:      uuid.NewString(),
		Ticks:      s.cfg.Rounds,
		Rejections: int(s.rejections.Load()),
		Rounds:     []RoundSummary{},
		Oracles:    []OracleSummary{},
	}

	err := s.chain.Exec(func(ctx sdk.Context) error {
		report.ReportingRound = k.GetReportingRoundID(ctx)
		report.LatestRound = k.GetLatestRoundID(ctx)

		var iterErr error
		err := k.IterateRounds(ctx, func(round types.Round) bool {
			status, err := k.GetRoundStatus(ctx, round.RoundID)
			if err != nil {
				iterErr = err
				return true
			}
			summary := RoundSummary{
				RoundID:         round.RoundID,
				Status:          status.String(),
				StartedAt:       round.StartedAt,
				UpdatedAt:       round.UpdatedAt,
				AnsweredInRound: round.AnsweredInRound,
				TimedOut:        round.RoundID > 0 && round.UpdatedAt > 0 && round.AnsweredInRound != round.RoundID,
			}
			if round.Answer != nil {
				summary.Answer = round.Answer.String()
			}
			switch {
			case summary.TimedOut:
				report.TimedOut++
			case round.RoundID > 0 && round.UpdatedAt > 0:
				report.Answered++
			}
			report.Rounds = append(report.Rounds, summary)
			return false
		})
		if err != nil {
			return err
		}
		if iterErr != nil {
			return iterErr
		}

		for _, o := range s.oracles {
			status, err := k.GetOracleStatus(ctx, o.Address)
			if err != nil {
				return err
			}
			report.Oracles = append(report.Oracles, OracleSummary{
				Address:           o.Address.String(),
				Online:            o.Online,
				LastReportedRound: status.LastReportedRound,
				Withdrawable:      status.Withdrawable.String(),
				Balance:           s.chain.Bank.GetBalance(ctx, o.Address, s.cfg.Denom).Amount.String(),
			})
		}

		funds := k.GetFunds(ctx)
		report.Funds = FundsSummary{
			Available:     funds.Available.String(),
			Allocated:     funds.Allocated.String(),
			ModuleBalance: s.chain.Bank.GetBalance(ctx, k.ModuleAddress(), s.cfg.Denom).Amount.String(),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	return report, nil
}
