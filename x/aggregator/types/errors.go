package types

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Error classes. Every aggregator error wraps exactly one of these, so callers
// can match either the specific error or its class with errors.Is.
var (
	ErrAuthorization     = errorsmod.Register(ModuleName, 2, "unauthorized")
	ErrValidation        = errorsmod.Register(ModuleName, 3, "validation failed")
	ErrState             = errorsmod.Register(ModuleName, 4, "invalid round state")
	ErrInsufficientFunds = errorsmod.Register(ModuleName, 5, "insufficient funds")
	ErrNotFound          = errorsmod.Register(ModuleName, 6, "not found")
)

// Authorization errors
var (
	ErrNotOwner               = errorsmod.Wrap(ErrAuthorization, "only callable by owner")
	ErrNotAdmin               = errorsmod.Wrap(ErrAuthorization, "only callable by admin")
	ErrNotPendingAdmin        = errorsmod.Wrap(ErrAuthorization, "only callable by pending admin")
	ErrNotAuthorizedRequester = errorsmod.Wrap(ErrAuthorization, "not authorized requester")
)

// Validation errors
var (
	ErrWrongValuesCount   = errorsmod.Wrap(ErrValidation, "incorrect number of values in submission")
	ErrValueBelowMin      = errorsmod.Wrap(ErrValidation, "value below min submission value")
	ErrValueAboveMax      = errorsmod.Wrap(ErrValidation, "value above max submission value")
	ErrWrongToken         = errorsmod.Wrap(ErrValidation, "wrong token type")
	ErrAdminCountMismatch = errorsmod.Wrap(ErrValidation, "need same oracle and admin count")
	ErrInvalidRoundParams = errorsmod.Wrap(ErrValidation, "invalid round parameters")
	ErrInvalidAmount      = errorsmod.Wrap(ErrValidation, "invalid amount")
	ErrEmptyInput         = errorsmod.Wrap(ErrValidation, "no submissions to aggregate")
	ErrAlreadyEnabled     = errorsmod.Wrap(ErrValidation, "oracle already enabled")
	ErrInvalidConfig      = errorsmod.Wrap(ErrValidation, "invalid configuration")
)

// Round state errors
var (
	ErrAlreadyInitialized      = errorsmod.Wrap(ErrState, "aggregator already initialized")
	ErrNotInitialized          = errorsmod.Wrap(ErrState, "aggregator not initialized")
	ErrOracleNotEnabled        = errorsmod.Wrap(ErrState, "not enabled oracle")
	ErrOracleNotYetEnabled     = errorsmod.Wrap(ErrState, "not yet enabled oracle")
	ErrOracleNoLongerAllowed   = errorsmod.Wrap(ErrState, "no longer allowed oracle")
	ErrAlreadyReported         = errorsmod.Wrap(ErrState, "cannot report on previous rounds")
	ErrInvalidRound            = errorsmod.Wrap(ErrState, "invalid round to report")
	ErrPreviousNotSupersedable = errorsmod.Wrap(ErrState, "previous round not supersedable")
	ErrNotAcceptingSubmissions = errorsmod.Wrap(ErrState, "round not accepting submissions")
	ErrRoundNotSupersedable    = errorsmod.Wrap(ErrState, "prev round must be supersedable")
	ErrRequestDelay            = errorsmod.Wrap(ErrState, "must delay requests")
)

// Funds errors
var (
	ErrInsufficientWithdrawable = errorsmod.Wrap(ErrInsufficientFunds, "insufficient withdrawable funds")
	ErrInsufficientReserve      = errorsmod.Wrap(ErrInsufficientFunds, "insufficient reserve funds")
	ErrInsufficientDeposit      = errorsmod.Wrap(ErrInsufficientFunds, "insufficient deposit to withdraw")
	ErrInsufficientPayment      = errorsmod.Wrap(ErrInsufficientFunds, "insufficient funds for payment")
)

// Lookup errors
var (
	ErrOracleNotFound    = errorsmod.Wrap(ErrNotFound, "no oracle at given address")
	ErrRoundNotFound     = errorsmod.Wrap(ErrNotFound, "no round for given round id")
	ErrRequesterNotFound = errorsmod.Wrap(ErrNotFound, "no requester has the given address")
)

var errorClasses = []error{
	ErrAuthorization,
	ErrValidation,
	ErrState,
	ErrInsufficientFunds,
	ErrNotFound,
}

// ErrorClass returns the taxonomy class an error belongs to, or nil when the
// error did not originate in this module.
func ErrorClass(err error) error {
	if err == nil {
		return nil
	}
	for _, class := range errorClasses {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

// ErrorWithRecovery wraps an error with recovery suggestions
type ErrorWithRecovery struct {
	Err      error
	Recovery string
}

func (e *ErrorWithRecovery) Error() string {
	return e.Err.Error()
}

func (e *ErrorWithRecovery) Unwrap() error {
	return e.Err
}

// RecoverySuggestions provides actionable recovery steps for errors that
// operators and oracle node runners commonly hit.
var RecoverySuggestions = map[error]string{
	ErrNotOwner:                 "Only the configured owner may change oracles, round parameters or requester permissions.",
	ErrNotAdmin:                 "Withdrawals and admin transfers must be signed by the oracle's current admin. Query getAdmin for the oracle.",
	ErrNotPendingAdmin:          "Only the address proposed with transferAdmin may accept the admin role.",
	ErrNotAuthorizedRequester:   "Ask the owner to grant requester permissions with setRequesterPermissions.",
	ErrWrongValuesCount:         "Submit exactly values_count values. Query the module config for the expected count.",
	ErrValueBelowMin:            "Every submitted value must be at least min_submission_value.",
	ErrValueAboveMax:            "Every submitted value must be at most max_submission_value.",
	ErrWrongToken:               "Only the configured payment denom can fund the aggregator.",
	ErrAlreadyReported:          "The oracle already reported into this or a later round. Query oracleRoundState with round 0 for the suggested round.",
	ErrInvalidRound:             "Oracles may report into the reporting round, the next round, or one round behind while the reporting round is unanswered.",
	ErrPreviousNotSupersedable:  "Wait until the previous round is answered or times out.",
	ErrNotAcceptingSubmissions:  "The round is closed or was not started. Query oracleRoundState with round 0 for the suggested round.",
	ErrRoundNotSupersedable:     "A new round can be requested once the reporting round is answered or timed out.",
	ErrRequestDelay:             "The requester must wait delay rounds between requests.",
	ErrInsufficientWithdrawable: "Amount exceeds the oracle's accrued payment. Query withdrawablePayment.",
	ErrInsufficientReserve:      "Withdrawal would leave less than payment_amount x oracle_count x 2 available. Add funds or withdraw less.",
	ErrInsufficientDeposit:      "Depositors may withdraw only their own unspent contribution. Query withdrawableAddedFunds.",
	ErrInsufficientPayment:      "Available funds cannot cover the round payment. Add funds before reporting.",
}

// WrapWithRecovery wraps an error with recovery suggestion
func WrapWithRecovery(err error, msg string, args ...interface{}) error {
	wrapped := errorsmod.Wrapf(err, msg, args...)

	if suggestion := GetRecoverySuggestion(err); suggestion != "" {
		return &ErrorWithRecovery{
			Err:      wrapped,
			Recovery: suggestion,
		}
	}

	return wrapped
}

// GetRecoverySuggestion returns the recovery suggestion for the first
// registered error in err's unwrap chain, or an empty string when none is
// registered. Errors are matched by identity: errorsmod's Is treats errors
// sharing a class as equal.
func GetRecoverySuggestion(err error) string {
	for ; err != nil; err = errors.Unwrap(err) {
		for target, suggestion := range RecoverySuggestions {
			if err == target {
				return suggestion
			}
		}
	}
	return ""
}
