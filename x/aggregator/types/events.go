package types

// Event types for the aggregator module
// All event types use lowercase with underscore separator (module_action format)
const (
	// Round events
	EventTypeRoundStarted       = "aggregator_round_started"
	EventTypeRoundTimedOut      = "aggregator_round_timed_out"
	EventTypeAnswerUpdated      = "aggregator_answer_updated"
	EventTypeSubmission         = "aggregator_submission_received"
	EventTypeRoundDetailsPruned = "aggregator_round_details_pruned"

	// Oracle events
	EventTypeOracleAdded         = "aggregator_oracle_added"
	EventTypeOracleRemoved       = "aggregator_oracle_removed"
	EventTypeOracleAdminProposed = "aggregator_oracle_admin_proposed"
	EventTypeOracleAdminAccepted = "aggregator_oracle_admin_accepted"
	EventTypeOraclePaid          = "aggregator_oracle_paid"
	EventTypePaymentWithdrawn    = "aggregator_payment_withdrawn"

	// Funds events
	EventTypeFundsAdded     = "aggregator_funds_added"
	EventTypeFundsWithdrawn = "aggregator_funds_withdrawn"

	// Configuration events
	EventTypeRoundParamsUpdated      = "aggregator_round_params_updated"
	EventTypeRequesterPermissionsSet = "aggregator_requester_permissions_set"
)

// Event attribute keys for the aggregator module
const (
	AttributeKeyRoundID         = "round_id"
	AttributeKeyStartedBy       = "started_by"
	AttributeKeyStartedAt       = "started_at"
	AttributeKeyUpdatedAt       = "updated_at"
	AttributeKeyAnswer          = "answer"
	AttributeKeyAnsweredInRound = "answered_in_round"
	AttributeKeyNumSubmissions  = "num_submissions"

	AttributeKeyOracle        = "oracle"
	AttributeKeyAdmin         = "admin"
	AttributeKeyPendingAdmin  = "pending_admin"
	AttributeKeyRecipient     = "recipient"
	AttributeKeyValues        = "values"
	AttributeKeyAmount        = "amount"
	AttributeKeyStartingRound = "starting_round"

	AttributeKeyDepositor = "depositor"
	AttributeKeyAvailable = "available"
	AttributeKeyAllocated = "allocated"

	AttributeKeyPaymentAmount  = "payment_amount"
	AttributeKeyMinSubmissions = "min_submissions"
	AttributeKeyMaxSubmissions = "max_submissions"
	AttributeKeyRestartDelay   = "restart_delay"
	AttributeKeyTimeout        = "timeout"

	AttributeKeyRequester  = "requester"
	AttributeKeyAuthorized = "authorized"
	AttributeKeyDelay      = "delay"
)
