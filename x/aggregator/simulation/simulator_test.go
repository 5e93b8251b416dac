package simulation_test

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/aggregator/x/aggregator/simulation"
)

func runSimulation(t *testing.T, cfg simulation.Config) *simulation.Report {
	t.Helper()
	sim, err := simulation.NewSimulator(cfg, log.NewNopLogger())
	require.NoError(t, err)
	report, err := sim.Run(context.Background())
	require.NoError(t, err)
	return report
}

func TestSimulationAllOraclesOnline(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Rounds = 5

	report := runSimulation(t, cfg)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, uint64(5), report.ReportingRound)
	require.Equal(t, uint64(5), report.LatestRound)
	require.Equal(t, 5, report.Answered)
	require.Zero(t, report.TimedOut)
	require.Zero(t, report.Rejections)
	require.Len(t, report.Rounds, 6)

	for _, o := range report.Oracles {
		require.True(t, o.Online)
		require.Equal(t, uint64(5), o.LastReportedRound)
		require.Equal(t, "50", o.Withdrawable)
	}
	require.Equal(t, "99850", report.Funds.Available)
	require.Equal(t, "150", report.Funds.Allocated)
	require.Equal(t, "100000", report.Funds.ModuleBalance)
}

func TestSimulationOfflineOraclesTimeOut(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Offline = 2
	cfg.Rounds = 3
	cfg.RoundInterval = 90 * time.Second

	report := runSimulation(t, cfg)
	require.Equal(t, uint64(3), report.ReportingRound)
	require.Zero(t, report.LatestRound)
	require.Zero(t, report.Answered)
	require.Equal(t, 2, report.TimedOut)

	require.False(t, report.Oracles[0].Online)
	require.Zero(t, report.Oracles[0].LastReportedRound)
	require.True(t, report.Oracles[2].Online)
	require.Equal(t, "30", report.Oracles[2].Withdrawable)
}

func TestSimulationWithdrawAtEnd(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Rounds = 2
	cfg.WithdrawAtEnd = true

	report := runSimulation(t, cfg)
	for _, o := range report.Oracles {
		require.Equal(t, "0", o.Withdrawable)
		require.Equal(t, "20", o.Balance)
	}
	require.Equal(t, "0", report.Funds.Allocated)
	require.Equal(t, "99940", report.Funds.ModuleBalance)
}

func TestSimulationRunsOutOfFunds(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Deposit = 60
	cfg.Rounds = 5

	report := runSimulation(t, cfg)
	require.Equal(t, uint64(2), report.LatestRound)
	require.Equal(t, 9, report.Rejections)
	require.Equal(t, "0", report.Funds.Available)
	require.Equal(t, "60", report.Funds.Allocated)
}

func TestSimulationWithRequester(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Rounds = 4
	cfg.RequestEvery = 1

	report := runSimulation(t, cfg)
	require.Equal(t, uint64(4), report.ReportingRound)
	require.Equal(t, uint64(4), report.LatestRound)
	require.Zero(t, report.Rejections)
}

func TestSimulationIsDeterministic(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Rounds = 4
	cfg.ValuesCount = 2
	cfg.BasePrices = []uint64{100_000_000, 2_500_000}

	first := runSimulation(t, cfg)
	second := runSimulation(t, cfg)
	require.Equal(t, len(first.Rounds), len(second.Rounds))
	for i := range first.Rounds {
		require.Equal(t, first.Rounds[i].Answer, second.Rounds[i].Answer)
	}
	require.NotEqual(t, first.RunID, second.RunID)
}

func TestSimulationIsDeterministicWhenOraclesCompete(t *testing.T) {
	tests := []struct {
		name         string
		max          uint64
		restartDelay uint64
	}{
		{"fewer slots than oracles", 2, 0},
		{"restart delay", 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := simulation.DefaultConfig()
			cfg.Oracles = 5
			cfg.Rounds = 6
			cfg.MinSubmissions = 2
			cfg.MaxSubmissions = tt.max
			cfg.RestartDelay = tt.restartDelay

			first := runSimulation(t, cfg)
			for i := 0; i < 3; i++ {
				again := runSimulation(t, cfg)
				require.Equal(t, first.Rounds, again.Rounds)
				require.Equal(t, first.Oracles, again.Oracles)
				require.Equal(t, first.Funds, again.Funds)
			}
		})
	}
}

func TestSimulationLatestRound(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Rounds = 1

	sim, err := simulation.NewSimulator(cfg, log.NewNopLogger())
	require.NoError(t, err)
	_, ok := sim.LatestRound()
	require.False(t, ok)

	_, err = sim.Run(context.Background())
	require.NoError(t, err)
	round, ok := sim.LatestRound()
	require.True(t, ok)
	require.Equal(t, uint64(1), round.RoundID)
	require.Equal(t, uint64(simulation.GenesisTime.Add(cfg.RoundInterval).Unix()), round.UpdatedAt)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*simulation.Config)
	}{
		{"no oracles", func(c *simulation.Config) { c.Oracles = 0 }},
		{"too many offline", func(c *simulation.Config) { c.Offline = 4 }},
		{"no rounds", func(c *simulation.Config) { c.Rounds = 0 }},
		{"zero interval", func(c *simulation.Config) { c.RoundInterval = 0 }},
		{"negative deposit", func(c *simulation.Config) { c.Deposit = -1 }},
		{"base prices mismatch", func(c *simulation.Config) { c.ValuesCount = 3; c.BasePrices = []uint64{1, 2} }},
		{"jitter too wide", func(c *simulation.Config) { c.JitterBps = 20_000 }},
		{"bad denom", func(c *simulation.Config) { c.Denom = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := simulation.DefaultConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, simulation.DefaultConfig().Validate())
}

func TestSetupRejectsUnfundedOracleSet(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Deposit = 59

	_, err := simulation.NewSimulator(cfg, log.NewNopLogger())
	require.ErrorContains(t, err, "register oracles")
}
