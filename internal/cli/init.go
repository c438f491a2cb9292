package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/rowgrid/internal/paths"
	"github.com/mesh-intelligence/rowgrid/pkg/types"
)

const configHeader = "# rowgrid configuration\n# Environment variables ROWGRID_<SECTION>_<KEY> override these values.\n\n"

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  "Create the configuration directory and write config.yaml with default settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(env.configDir, 0o755); err != nil {
				return sysError(fmt.Errorf("create config directory: %w", err))
			}
			path := paths.ConfigFile(env.configDir)
			written, err := writeDefaultConfig(path, force)
			if err != nil {
				return sysError(fmt.Errorf("write config: %w", err))
			}
			if !written {
				fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config.yaml")
	return cmd
}

// writeDefaultConfig writes the default configuration to path. Without
// force an existing file is left alone and false is returned.
func writeDefaultConfig(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	data, err := yaml.Marshal(types.DefaultConfig())
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
