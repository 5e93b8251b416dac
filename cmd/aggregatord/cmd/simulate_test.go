package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/paw-chain/aggregator/x/aggregator/simulation"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	root.SetContext(context.Background())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSimulateJSON(t *testing.T) {
	out, err := execute(t, "simulate", "--rounds", "3", "--output", "json", "--log-level", "error")
	require.NoError(t, err)

	var report simulation.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, uint64(3), report.LatestRound)
	require.Equal(t, 3, report.Answered)
	require.Len(t, report.Oracles, 3)
}

func TestSimulateYAML(t *testing.T) {
	out, err := execute(t, "simulate", "--rounds", "2", "--offline", "3", "--log-level", "error")
	require.NoError(t, err)

	var report simulation.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	require.Zero(t, report.ReportingRound)
	require.Zero(t, report.LatestRound)
	require.Equal(t, "100000", report.Funds.Available)
}

func TestSimulateRejectsBadInput(t *testing.T) {
	_, err := execute(t, "simulate", "--output", "xml")
	require.ErrorContains(t, err, "invalid output format")

	_, err = execute(t, "simulate", "--log-level", "loud")
	require.ErrorContains(t, err, "invalid log level")

	_, err = execute(t, "simulate", "--offline", "9", "--log-level", "error")
	require.ErrorContains(t, err, "invalid simulation config")
}
