package cmd

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paw-chain/aggregator/x/aggregator/simulation"
)

// EnvPrefix prefixes environment overrides, e.g. AGGREGATOR_ROUNDS=20.
const EnvPrefix = "AGGREGATOR"

// loadConfig layers the simulation configuration: defaults, then the config
// file, then AGGREGATOR_* environment variables, then explicitly set flags.
func loadConfig(cmd *cobra.Command) (simulation.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v, simulation.DefaultConfig())

	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return simulation.Config{}, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return simulation.Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for key, flag := range map[string]string{
		"rounds":  flagRounds,
		"seed":    flagSeed,
		"offline": flagOffline,
		"pace":    flagPace,
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return simulation.Config{}, err
		}
	}

	return decodeConfig(v)
}

func setDefaults(v *viper.Viper, d simulation.Config) {
	v.SetDefault("denom", d.Denom)
	v.SetDefault("description", d.Description)
	v.SetDefault("decimals", d.Decimals)
	v.SetDefault("values_count", d.ValuesCount)
	v.SetDefault("min_value", d.MinValue)
	v.SetDefault("max_value", d.MaxValue)
	v.SetDefault("payment", d.Payment)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("min_submissions", d.MinSubmissions)
	v.SetDefault("max_submissions", d.MaxSubmissions)
	v.SetDefault("restart_delay", d.RestartDelay)
	v.SetDefault("deposit", d.Deposit)
	v.SetDefault("oracles", d.Oracles)
	v.SetDefault("offline", d.Offline)
	v.SetDefault("request_every", d.RequestEvery)
	v.SetDefault("base_prices", d.BasePrices)
	v.SetDefault("jitter_bps", d.JitterBps)
	v.SetDefault("rounds", d.Rounds)
	v.SetDefault("round_interval", d.RoundInterval)
	v.SetDefault("pace", d.Pace)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("withdraw_at_end", d.WithdrawAtEnd)
}

func decodeConfig(v *viper.Viper) (simulation.Config, error) {
	basePrices, err := toUint64Slice(v.Get("base_prices"))
	if err != nil {
		return simulation.Config{}, fmt.Errorf("base_prices: %w", err)
	}

	return simulation.Config{
		Denom:          v.GetString("denom"),
		Description:    v.GetString("description"),
		Decimals:       v.GetUint32("decimals"),
		ValuesCount:    v.GetUint32("values_count"),
		MinValue:       v.GetUint64("min_value"),
		MaxValue:       v.GetUint64("max_value"),
		Payment:        v.GetInt64("payment"),
		Timeout:        v.GetUint64("timeout"),
		MinSubmissions: v.GetUint64("min_submissions"),
		MaxSubmissions: v.GetUint64("max_submissions"),
		RestartDelay:   v.GetUint64("restart_delay"),
		Deposit:        v.GetInt64("deposit"),
		Oracles:        v.GetInt("oracles"),
		Offline:        v.GetInt("offline"),
		RequestEvery:   v.GetInt("request_every"),
		BasePrices:     basePrices,
		JitterBps:      v.GetUint64("jitter_bps"),
		Rounds:         v.GetInt("rounds"),
		RoundInterval:  v.GetDuration("round_interval"),
		Pace:           v.GetDuration("pace"),
		Seed:           v.GetInt64("seed"),
		WithdrawAtEnd:  v.GetBool("withdraw_at_end"),
	}, nil
}

// toUint64Slice accepts a list from a config file or a comma or space
// separated string from the environment.
func toUint64Slice(raw interface{}) ([]uint64, error) {
	if s, ok := raw.(string); ok {
		raw = strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
	}
	if values, ok := raw.([]uint64); ok {
		return values, nil
	}

	items, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil, err
	}
	values := make([]uint64, len(items))
	for i, item := range items {
		if values[i], err = cast.ToUint64E(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return values, nil
}
