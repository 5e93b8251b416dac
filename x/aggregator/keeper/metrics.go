package keeper

import (
	"strconv"
	"sync"

	"github.com/cosmos/cosmos-sdk/telemetry"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/hashicorp/go-metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/paw-chain/aggregator/x/aggregator/types"
)

// AggregatorMetrics holds all Prometheus metrics for the aggregator module
type AggregatorMetrics struct {
	// Round metrics
	Submissions    prometheus.Counter
	RoundsStarted  prometheus.Counter
	RoundsAnswered prometheus.Counter
	RoundsTimedOut prometheus.Counter
	RoundsPruned   prometheus.Counter
	LatestAnswered prometheus.Gauge

	// Oracle metrics
	OracleSetChanges *prometheus.CounterVec
	OraclePayments   prometheus.Counter

	// Funds metrics
	AvailableFunds prometheus.Gauge
	AllocatedFunds prometheus.Gauge

	// Rejected transitions by error class
	Rejections *prometheus.CounterVec
}

var (
	aggregatorMetricsOnce sync.Once
	aggregatorMetrics     *AggregatorMetrics
)

func newCounter(name, help string) prometheus.Counter {
	return promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paw",
		Subsystem: types.ModuleName,
		Name:      name,
		Help:      help,
	})
}

func newGauge(name, help string) prometheus.Gauge {
	return promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "paw",
		Subsystem: types.ModuleName,
		Name:      name,
		Help:      help,
	})
}

// NewAggregatorMetrics creates and registers aggregator metrics (singleton pattern)
func NewAggregatorMetrics() *AggregatorMetrics {
	aggregatorMetricsOnce.Do(func() {
		aggregatorMetrics = &AggregatorMetrics{
			Submissions:    newCounter("submissions_total", "Accepted oracle submissions"),
			RoundsStarted:  newCounter("rounds_started_total", "Rounds opened by oracles, requesters or initialization"),
			RoundsAnswered: newCounter("rounds_answered_total", "Answer updates from median aggregation"),
			RoundsTimedOut: newCounter("rounds_timed_out_total", "Rounds closed out with a carried-forward answer"),
			RoundsPruned:   newCounter("round_details_pruned_total", "Aggregation buffers dropped after reaching max submissions"),
			LatestAnswered: newGauge("latest_answered_round", "Id of the most recently answered round"),

			OracleSetChanges: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "paw",
					Subsystem: types.ModuleName,
					Name:      "oracle_set_changes_total",
					Help:      "Oracles added or removed",
				},
				[]string{"change"},
			),
			OraclePayments: newCounter("oracle_payments_total", "Payments accrued to oracles"),

			AvailableFunds: newGauge("available_funds", "Funds backing future payments"),
			AllocatedFunds: newGauge("allocated_funds", "Funds owed to oracles"),

			Rejections: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "paw",
					Subsystem: types.ModuleName,
					Name:      "rejections_total",
					Help:      "Rejected state transitions by error class",
				},
				[]string{"class"},
			),
		}
	})
	return aggregatorMetrics
}

// observeEvents updates metrics from the events of a committed transition.
func (m *AggregatorMetrics) observeEvents(events sdk.Events) {
	if m == nil {
		return
	}
	for _, ev := range events {
		switch ev.Type {
		case types.EventTypeSubmission:
			m.Submissions.Inc()
		case types.EventTypeRoundStarted:
			m.RoundsStarted.Inc()
		case types.EventTypeAnswerUpdated:
			m.RoundsAnswered.Inc()
			telemetry.IncrCounter(1, types.ModuleName, "round", "answered")
			setGaugeFromAttribute(m.LatestAnswered, ev, types.AttributeKeyRoundID)
		case types.EventTypeRoundTimedOut:
			m.RoundsTimedOut.Inc()
			telemetry.IncrCounter(1, types.ModuleName, "round", "timed_out")
		case types.EventTypeRoundDetailsPruned:
			m.RoundsPruned.Inc()
		case types.EventTypeOracleAdded:
			m.OracleSetChanges.WithLabelValues("added").Inc()
		case types.EventTypeOracleRemoved:
			m.OracleSetChanges.WithLabelValues("removed").Inc()
		case types.EventTypeOraclePaid:
			m.OraclePayments.Inc()
			setGaugeFromAttribute(m.AllocatedFunds, ev, types.AttributeKeyAllocated)
		case types.EventTypeFundsAdded, types.EventTypeFundsWithdrawn:
			setGaugeFromAttribute(m.AvailableFunds, ev, types.AttributeKeyAvailable)
		}
	}
}

func (m *AggregatorMetrics) observeRejection(err error) {
	if m == nil {
		return
	}
	class := "internal"
	if c := types.ErrorClass(err); c != nil {
		class = c.Error()
	}
	m.Rejections.WithLabelValues(class).Inc()

	// mirrored into the SDK telemetry sink for nodes that export it
	telemetry.IncrCounterWithLabels(
		[]string{types.ModuleName, "rejected"},
		1,
		[]metrics.Label{telemetry.NewLabel("class", class)},
	)
}

func setGaugeFromAttribute(g prometheus.Gauge, ev sdk.Event, key string) {
	for _, attr := range ev.Attributes {
		if attr.Key != key {
			continue
		}
		if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
			g.Set(v)
		}
		return
	}
}
