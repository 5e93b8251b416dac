package types

import (
	"strings"

	"cosmossdk.io/math"
)

// Submission is one oracle observation: a fixed-length vector of values.
type Submission struct {
	Values []math.Uint `json:"values"`
}

// NewSubmission builds a submission from plain integers.
func NewSubmission(values ...uint64) Submission {
	s := Submission{Values: make([]math.Uint, len(values))}
	for i, v := range values {
		s.Values[i] = math.NewUint(v)
	}
	return s
}

// Equal reports whether two submissions carry the same values in the same order.
func (s Submission) Equal(other Submission) bool {
	if len(s.Values) != len(other.Values) {
		return false
	}
	for i := range s.Values {
		if !s.Values[i].Equal(other.Values[i]) {
			return false
		}
	}
	return true
}

func (s Submission) String() string {
	parts := make([]string, len(s.Values))
	for i, v := range s.Values {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Round is the permanent ledger entry of one aggregation cycle.
type Round struct {
	RoundID         uint64      `json:"round_id"`
	Answer          *Submission `json:"answer,omitempty"`
	Decimals        uint32      `json:"decimals"`
	Description     string      `json:"description"`
	StartedAt       uint64      `json:"started_at"`
	UpdatedAt       uint64      `json:"updated_at"`
	AnsweredInRound uint64      `json:"answered_in_round"`
}

// RoundDetails is the aggregation buffer of a round. The round parameters are
// copied in when the round starts and never change afterwards.
type RoundDetails struct {
	Submissions    []Submission `json:"submissions"`
	MaxSubmissions uint64       `json:"max_submissions"`
	MinSubmissions uint64       `json:"min_submissions"`
	Timeout        uint64       `json:"timeout"`
	PaymentAmount  math.Int     `json:"payment_amount"`
}

// OracleStatus is the registry entry of an oracle.
type OracleStatus struct {
	Withdrawable      math.Int    `json:"withdrawable"`
	StartingRound     uint64      `json:"starting_round"`
	EndingRound       uint64      `json:"ending_round"`
	LastReportedRound uint64      `json:"last_reported_round"`
	LastStartedRound  uint64      `json:"last_started_round"`
	LatestSubmission  *Submission `json:"latest_submission,omitempty"`
	Admin             string      `json:"admin"`
	PendingAdmin      string      `json:"pending_admin,omitempty"`
}

// HasPendingAdmin reports whether an admin transfer has been proposed.
func (o OracleStatus) HasPendingAdmin() bool {
	return o.PendingAdmin != ""
}

// Requester holds the permissions of an address allowed to request rounds.
type Requester struct {
	Authorized       bool   `json:"authorized"`
	Delay            uint64 `json:"delay"`
	LastStartedRound uint64 `json:"last_started_round"`
}

// Funds tracks tokens held by the module. Available backs future payments,
// allocated is owed to oracles.
type Funds struct {
	Available math.Int `json:"available"`
	Allocated math.Int `json:"allocated"`
}

// ZeroFunds returns an empty funds record.
func ZeroFunds() Funds {
	return Funds{Available: math.ZeroInt(), Allocated: math.ZeroInt()}
}

// Total returns the amount of tokens the module must hold.
func (f Funds) Total() math.Int {
	return f.Available.Add(f.Allocated)
}

// Deposit is a depositor's unspent contribution to available funds.
type Deposit struct {
	Depositor string   `json:"depositor"`
	Amount    math.Int `json:"amount"`
	Sequence  uint64   `json:"sequence"`
}

// OracleRoundState is the read-only view an oracle node polls to decide
// whether and where to report.
type OracleRoundState struct {
	EligibleToSubmit bool        `json:"eligible_to_submit"`
	RoundID          uint64      `json:"round_id"`
	LatestSubmission *Submission `json:"latest_submission,omitempty"`
	StartedAt        uint64      `json:"started_at"`
	Timeout          uint64      `json:"timeout"`
	AvailableFunds   math.Int    `json:"available_funds"`
	OracleCount      uint64      `json:"oracle_count"`
	PaymentAmount    math.Int    `json:"payment_amount"`
}

// RoundStatus is derived from a round and its details on every read.
type RoundStatus int

const (
	// RoundStatusOpen is a started round that is neither answered nor timed out.
	RoundStatusOpen RoundStatus = iota
	// RoundStatusAnswered is a round whose answer has been written, either by
	// finalization or by timeout carry-forward.
	RoundStatusAnswered
	// RoundStatusTimedOut is an unanswered round past its timeout.
	RoundStatusTimedOut
)

func (s RoundStatus) String() string {
	switch s {
	case RoundStatusOpen:
		return "open"
	case RoundStatusAnswered:
		return "answered"
	case RoundStatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Supersedable reports whether the next round may follow a round in this status.
func (s RoundStatus) Supersedable() bool {
	return s == RoundStatusAnswered || s == RoundStatusTimedOut
}
