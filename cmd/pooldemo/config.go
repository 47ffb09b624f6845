package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jzx17/prioritypool/pkg/types"
)

const envPrefix = "POOLDEMO"

// demoConfig holds the settings shared by every scenario
type demoConfig struct {
	Workers      int           `mapstructure:"workers"`
	Tasks        int           `mapstructure:"tasks"`
	Interval     time.Duration `mapstructure:"interval"`
	TaskDuration time.Duration `mapstructure:"task-duration"`
	Pause        time.Duration `mapstructure:"pause"`
	Priority     string        `mapstructure:"priority"`

	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	LogFile     string `mapstructure:"log-file"`
	MetricsAddr string `mapstructure:"metrics-addr"`
}

func bindFlags(flags *flag.FlagSet) {
	flags.Int("workers", 4, "number of pool workers")
	flags.Int("tasks", 8, "number of tasks in the sequential scenario")
	flags.Duration("interval", 300*time.Millisecond, "delay between submissions in the sequential scenario")
	flags.Duration("task-duration", time.Second, "time each sequential task sleeps")
	flags.String("priority", "normal", "priority of the sequential tasks: low, normal, high")
	flags.Duration("pause", time.Second, "pause between the two waves of the priority scenarios")

	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log encoding: console or json")
	flags.String("log-file", "", "write logs to this file with rotation instead of stderr")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.String("config-file", "", "optional YAML config file")
}

// loadConfig merges flags, POOLDEMO_* environment variables and the optional config file
func loadConfig(cmd *cobra.Command) (*demoConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("error while binding flags: %w", err)
	}

	if cfgFile := v.GetString("config-file"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error while reading the config file: %w", err)
		}
	}

	var cfg demoConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error while unmarshaling config: %w", err)
	}
	if _, err := types.ParsePriority(cfg.Priority); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return &cfg, nil
}
