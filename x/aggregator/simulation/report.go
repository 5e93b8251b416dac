package simulation

// Report summarizes the ledger at the end of a run.
type Report struct {
	RunID          string          `json:"run_id" yaml:"run_id"`
	Ticks          int             `json:"ticks" yaml:"ticks"`
	ReportingRound uint64          `json:"reporting_round" yaml:"reporting_round"`
	LatestRound    uint64          `json:"latest_round" yaml:"latest_round"`
	Answered       int             `json:"answered" yaml:"answered"`
	TimedOut       int             `json:"timed_out" yaml:"timed_out"`
	Rejections     int             `json:"rejections" yaml:"rejections"`
	Rounds         []RoundSummary  `json:"rounds" yaml:"rounds"`
	Oracles        []OracleSummary `json:"oracles" yaml:"oracles"`
	Funds          FundsSummary    `json:"funds" yaml:"funds"`
}

// RoundSummary is one round as stored by the aggregator.
type RoundSummary struct {
	RoundID         uint64 `json:"round_id" yaml:"round_id"`
	Status          string `json:"status" yaml:"status"`
	Answer          string `json:"answer,omitempty" yaml:"answer,omitempty"`
	StartedAt       uint64 `json:"started_at" yaml:"started_at"`
	UpdatedAt       uint64 `json:"updated_at" yaml:"updated_at"`
	AnsweredInRound uint64 `json:"answered_in_round" yaml:"answered_in_round"`
	TimedOut        bool   `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
}

// OracleSummary is an oracle's standing at the end of the run.
type OracleSummary struct {
	Address           string `json:"address" yaml:"address"`
	Online            bool   `json:"online" yaml:"online"`
	LastReportedRound uint64 `json:"last_reported_round" yaml:"last_reported_round"`
	Withdrawable      string `json:"withdrawable" yaml:"withdrawable"`
	Balance           string `json:"balance" yaml:"balance"`
}

// FundsSummary compares the aggregator's books with the module account.
type FundsSummary struct {
	Available     string `json:"available" yaml:"available"`
	Allocated     string `json:"allocated" yaml:"allocated"`
	ModuleBalance string `json:"module_balance" yaml:"module_balance"`
}
