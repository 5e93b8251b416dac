package types

import (
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	// MaxDescriptionLength bounds the feed description stored on every round.
	MaxDescriptionLength = 256

	// MaxValuesCount bounds the number of values in one submission.
	MaxValuesCount = 64

	// MaxPaymentBitLen bounds payment_amount so the reserve
	// payment x oracle count x ReserveRounds stays within a 256-bit Int.
	MaxPaymentBitLen = 192
)

// Config is fixed when the aggregator is initialized.
type Config struct {
	Denom              string    `json:"denom"`
	MinSubmissionValue math.Uint `json:"min_submission_value"`
	MaxSubmissionValue math.Uint `json:"max_submission_value"`
	Decimals           uint32    `json:"decimals"`
	Description        string    `json:"description"`
	ValuesCount        uint32    `json:"values_count"`
}

// RoundParams apply to rounds that have not started yet. A started round keeps
// the snapshot copied into its RoundDetails.
type RoundParams struct {
	PaymentAmount  math.Int `json:"payment_amount"`
	MinSubmissions uint64   `json:"min_submissions"`
	MaxSubmissions uint64   `json:"max_submissions"`
	RestartDelay   uint64   `json:"restart_delay"`
	Timeout        uint64   `json:"timeout"`
}

// DefaultConfig returns a single-value feed configuration
func DefaultConfig() Config {
	return Config{
		Denom:              sdk.DefaultBondDenom,
		MinSubmissionValue: math.ZeroUint(),
		MaxSubmissionValue: math.NewUint(1_000_000_000_000_000),
		Decimals:           8,
		Description:        "PRICE/USD",
		ValuesCount:        1,
	}
}

// DefaultRoundParams returns the parameters of an aggregator without oracles
func DefaultRoundParams() RoundParams {
	return RoundParams{
		PaymentAmount:  math.ZeroInt(),
		MinSubmissions: 0,
		MaxSubmissions: 0,
		RestartDelay:   0,
		Timeout:        1800,
	}
}

// Validate checks the static configuration.
func (c Config) Validate() error {
	if err := sdk.ValidateDenom(c.Denom); err != nil {
		return errorsmod.Wrapf(ErrInvalidConfig, "denom: %s", err)
	}
	if c.MinSubmissionValue.GT(c.MaxSubmissionValue) {
		return errorsmod.Wrapf(ErrInvalidConfig, "min submission value %s exceeds max %s", c.MinSubmissionValue, c.MaxSubmissionValue)
	}
	if c.ValuesCount == 0 || c.ValuesCount > MaxValuesCount {
		return errorsmod.Wrapf(ErrInvalidConfig, "values count must be in [1,%d], got %d", MaxValuesCount, c.ValuesCount)
	}
	if len(c.Description) > MaxDescriptionLength {
		return errorsmod.Wrapf(ErrInvalidConfig, "description longer than %d bytes", MaxDescriptionLength)
	}
	if strings.TrimSpace(c.Description) != c.Description {
		return errorsmod.Wrap(ErrInvalidConfig, "description has leading or trailing whitespace")
	}
	return nil
}

// Validate checks the parameters that do not depend on ledger state. The
// oracle count and reserve checks live in the keeper.
func (p RoundParams) Validate() error {
	if p.PaymentAmount.IsNil() || p.PaymentAmount.IsNegative() {
		return errorsmod.Wrap(ErrInvalidRoundParams, "payment amount must be non-negative")
	}
	if p.PaymentAmount.BigInt().BitLen() > MaxPaymentBitLen {
		return errorsmod.Wrapf(ErrInvalidRoundParams, "payment amount exceeds %d bits", MaxPaymentBitLen)
	}
	if p.MaxSubmissions < p.MinSubmissions {
		return errorsmod.Wrap(ErrInvalidRoundParams, "max must equal/exceed min")
	}
	return nil
}

func (p RoundParams) String() string {
	return fmt.Sprintf("payment=%s min=%d max=%d delay=%d timeout=%d",
		p.PaymentAmount, p.MinSubmissions, p.MaxSubmissions, p.RestartDelay, p.Timeout)
}
