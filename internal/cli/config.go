package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/rowgrid/internal/paths"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "ROWGRID"
)

// loadConfig reads config.yaml from configDir with Viper, layered over the
// defaults and under ROWGRID_* environment overrides such as
// ROWGRID_STORE_BATCH_SIZE. A missing file is not an error.
func loadConfig(configDir string) (types.Config, error) {
	v := viper.New()
	setDefaults(v, types.DefaultConfig())
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply even
// when the file does not mention the key.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("store.batch_size", d.Store.BatchSize)
	v.SetDefault("store.stream_batch_size", d.Store.StreamBatchSize)
	v.SetDefault("store.parallel_filter_threshold", d.Store.ParallelFilterThreshold)
	v.SetDefault("store.min_row_height", d.Store.MinRowHeight)
	v.SetDefault("store.max_row_height", d.Store.MaxRowHeight)
	v.SetDefault("search.regex_timeout", d.Search.RegexTimeout)
	v.SetDefault("search.fuzzy_threshold", d.Search.FuzzyThreshold)
	v.SetDefault("smart.enabled", d.Smart.Enabled)
	v.SetDefault("smart.minimum_rows", d.Smart.MinimumRows)
	v.SetDefault("smart.auto_expand", d.Smart.AutoExpand)
	v.SetDefault("smart.auto_delete", d.Smart.AutoDelete)
	v.SetDefault("smart.always_keep_last_empty", d.Smart.AlwaysKeepLastEmpty)
	v.SetDefault("notify.mode", string(d.Notify.Mode))
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.jsonMode {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(env.cfg)
			}
			out, err := yaml.Marshal(env.cfg)
			if err != nil {
				return sysError(fmt.Errorf("marshal config: %w", err))
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	var data bool
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path, or the data directory with --data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !data {
				fmt.Fprintln(cmd.OutOrStdout(), paths.ConfigFile(env.configDir))
				return nil
			}
			dir, err := paths.ResolveDataDir(flags.dataDir, "")
			if err != nil {
				return sysError(fmt.Errorf("resolve data dir: %w", err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
	pathCmd.Flags().BoolVar(&data, "data", false, "print the data directory instead")
	cmd.AddCommand(pathCmd)
	return cmd
}
