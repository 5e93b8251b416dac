package simulation

import (
	"fmt"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// Config describes one simulation run.
type Config struct {
	// feed configuration
	Denom       string `mapstructure:"denom" yaml:"denom"`
	Description string `mapstructure:"description" yaml:"description"`
	Decimals    uint32 `mapstructure:"decimals" yaml:"decimals"`
	ValuesCount uint32 `mapstructure:"values_count" yaml:"values_count"`
	MinValue    uint64 `mapstructure:"min_value" yaml:"min_value"`
	MaxValue    uint64 `mapstructure:"max_value" yaml:"max_value"`

	// round parameters
	Payment        int64  `mapstructure:"payment" yaml:"payment"`
	Timeout        uint64 `mapstructure:"timeout" yaml:"timeout"`
	MinSubmissions uint64 `mapstructure:"min_submissions" yaml:"min_submissions"`
	MaxSubmissions uint64 `mapstructure:"max_submissions" yaml:"max_submissions"`
	RestartDelay   uint64 `mapstructure:"restart_delay" yaml:"restart_delay"`

	// participants
	Deposit      int64 `mapstructure:"deposit" yaml:"deposit"`
	Oracles      int   `mapstructure:"oracles" yaml:"oracles"`
	Offline      int   `mapstructure:"offline" yaml:"offline"`
	RequestEvery int   `mapstructure:"request_every" yaml:"request_every"`

	// observations
	BasePrices []uint64 `mapstructure:"base_prices" yaml:"base_prices"`
	JitterBps  uint64   `mapstructure:"jitter_bps" yaml:"jitter_bps"`

	// run control
	Rounds        int           `mapstructure:"rounds" yaml:"rounds"`
	RoundInterval time.Duration `mapstructure:"round_interval" yaml:"round_interval"`
	Pace          time.Duration `mapstructure:"pace" yaml:"pace"`
	Seed          int64         `mapstructure:"seed" yaml:"seed"`
	WithdrawAtEnd bool          `mapstructure:"withdraw_at_end" yaml:"withdraw_at_end"`
}

// DefaultConfig returns a three oracle single-value feed paying 10 tokens per
// submission.
func DefaultConfig() Config {
	return Config{
		Denom:          sdk.DefaultBondDenom,
		Description:    "PRICE/USD",
		Decimals:       8,
		ValuesCount:    1,
		MinValue:       0,
		MaxValue:       1_000_000_000_000_000,
		Payment:        10,
		Timeout:        60,
		MinSubmissions: 2,
		MaxSubmissions: 3,
		RestartDelay:   0,
		Deposit:        100_000,
		Oracles:        3,
		Offline:        0,
		RequestEvery:   0,
		BasePrices:     []uint64{100_000_000},
		JitterBps:      50,
		Rounds:         10,
		RoundInterval:  30 * time.Second,
		Pace:           0,
		Seed:           1,
		WithdrawAtEnd:  false,
	}
}

// Validate checks the run shape. Parameter combinations the keeper itself
// rejects are reported when the simulation sets up the aggregator.
func (c Config) Validate() error {
	if c.Oracles <= 0 {
		return fmt.Errorf("oracles must be positive, got %d", c.Oracles)
	}
	if c.Offline < 0 || c.Offline > c.Oracles {
		return fmt.Errorf("offline must be in [0,%d], got %d", c.Oracles, c.Offline)
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	if c.RoundInterval <= 0 {
		return fmt.Errorf("round interval must be positive, got %s", c.RoundInterval)
	}
	if c.Pace < 0 {
		return fmt.Errorf("pace cannot be negative, got %s", c.Pace)
	}
	if c.Deposit < 0 || c.Payment < 0 {
		return fmt.Errorf("deposit and payment cannot be negative")
	}
	if c.RequestEvery < 0 {
		return fmt.Errorf("request every cannot be negative, got %d", c.RequestEvery)
	}
	if len(c.BasePrices) != 1 && len(c.BasePrices) != int(c.ValuesCount) {
		return fmt.Errorf("need 1 or %d base prices, got %d", c.ValuesCount, len(c.BasePrices))
	}
	if c.JitterBps > 10_000 {
		return fmt.Errorf("jitter cannot exceed 10000 bps, got %d", c.JitterBps)
	}
	return c.AggregatorConfig().Validate()
}

// AggregatorConfig returns the module configuration the run initializes with.
func (c Config) AggregatorConfig() types.Config {
	return types.Config{
		Denom:              c.Denom,
		MinSubmissionValue: math.NewUint(c.MinValue),
		MaxSubmissionValue: math.NewUint(c.MaxValue),
		Decimals:           c.Decimals,
		Description:        c.Description,
		ValuesCount:        c.ValuesCount,
	}
}

// basePrice returns the reference value of the i-th submission slot.
func (c Config) basePrice(i int) uint64 {
	if len(c.BasePrices) == 1 {
		return c.BasePrices[0]
	}
	return c.BasePrices[i]
}
