package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/paw-chain/aggregator/x/aggregator/simulation"
)

const (
	flagConfig      = "config"
	flagRounds      = "rounds"
	flagSeed        = "seed"
	flagOffline     = "offline"
	flagPace        = "pace"
	flagMetricsPort = "metrics-port"
	flagLinger      = "linger"
	flagOutput      = "output"
)

// SimulateCmd runs an aggregator simulation and prints the final report.
func SimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run oracles against an in-memory aggregator",
		Long: `Initialize an aggregator on an in-memory chain, fund it, register oracles and
let every online oracle report into its suggested round once per tick.

Configuration is read from --config (YAML, TOML or JSON) and overridden by
AGGREGATOR_* environment variables and flags, e.g. AGGREGATOR_OFFLINE=2.`,
		Example: `  aggregatord simulate --config sim.yaml --rounds 50
  aggregatord simulate --offline 2 --output json
  aggregatord simulate --pace 1s --metrics-port 36660 --linger`,
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}

	cmd.Flags().String(flagConfig, "", "simulation config file")
	cmd.Flags().Int(flagRounds, 0, "number of ticks to run")
	cmd.Flags().Int64(flagSeed, 0, "random seed for accounts and observations")
	cmd.Flags().Int(flagOffline, 0, "number of oracles that never report")
	cmd.Flags().Duration(flagPace, 0, "wall-clock delay between ticks")
	cmd.Flags().Int(flagMetricsPort, 0, "serve /metrics and /health on this port (0 disables)")
	cmd.Flags().Bool(flagLinger, false, "keep serving metrics after the run until interrupted")
	cmd.Flags().StringP(flagOutput, "o", "yaml", "report format (yaml|json)")
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString(flagOutput)
	if err != nil {
		return err
	}
	if output != "yaml" && output != "json" {
		return fmt.Errorf("invalid output format %q", output)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	sim, err := simulation.NewSimulator(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port, err := cmd.Flags().GetInt(flagMetricsPort)
	if err != nil {
		return err
	}
	var srv *Server
	if port > 0 {
		srv = NewServer(port, sim)
		srv.Start(func(err error) { logger.Error("server stopped", "error", err) })
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "port", port)
	}

	report, err := sim.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("simulation finished",
		"reporting_round", report.ReportingRound,
		"latest_round", report.LatestRound,
		"answered", report.Answered,
		"timed_out", report.TimedOut,
	)

	if err := writeReport(cmd.OutOrStdout(), report, output); err != nil {
		return err
	}

	linger, err := cmd.Flags().GetBool(flagLinger)
	if err != nil {
		return err
	}
	if srv != nil && linger {
		<-ctx.Done()
	}
	return nil
}

func writeReport(w io.Writer, report *simulation.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}
}
