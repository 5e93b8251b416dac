package cmd

import (
	"fmt"
	"io"

	"cosmossdk.io/log"
	"github.com/cosmos/cosmos-sdk/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

// NewRootCmd creates the aggregatord root command.
func NewRootCmd() *cobra.Command {
	if version.AppName == "" {
		version.AppName = "aggregatord"
	}
	if version.Name == "" {
		version.Name = "aggregator"
	}

	rootCmd := &cobra.Command{
		Use:   "aggregatord",
		Short: "Round-based oracle aggregator",
		Long: `aggregatord drives the round-based oracle aggregator on an in-memory chain.
Oracles report observations into rounds, the median of each round becomes its
answer and every accepted submission is paid from depositor funds.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String(flagLogLevel, "info", "log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().String(flagLogFormat, "plain", "log format (plain|json)")

	rootCmd.AddCommand(
		SimulateCmd(),
		version.NewVersionCommand(),
	)
	return rootCmd
}

// newLogger builds the process logger from the persistent log flags.
func newLogger(cmd *cobra.Command, out io.Writer) (log.Logger, error) {
	levelStr, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}

	opts := []log.Option{log.LevelOption(level)}
	format, err := cmd.Flags().GetString(flagLogFormat)
	if err != nil {
		return nil, err
	}
	switch format {
	case "plain":
	case "json":
		opts = append(opts, log.OutputJSONOption())
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return log.NewLogger(out, opts...), nil
}
