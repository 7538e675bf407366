package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gff2seq defaults",
		Long:  "Show, get, or set default flag values. Config is stored in ~/" + configName + ".",
		Example: `  gff2seq config                        # show all config
  gff2seq config set type exon          # assemble exons by default
  gff2seq config set truncate-introns 20
  gff2seq config get type`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, v)
		},
	}

	cmd.AddCommand(newConfigSetCmd(v))
	cmd.AddCommand(newConfigGetCmd(v))

	return cmd
}

func newConfigSetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, v, args[0], args[1])
		},
	}
}

func newConfigGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, v, args[0])
		},
	}
}

// fileSettings returns only the values read from the config file, leaving
// out flag defaults.
func fileSettings(v *viper.Viper) map[string]any {
	settings := make(map[string]any)
	for _, key := range v.AllKeys() {
		if v.InConfig(key) {
			settings[key] = v.Get(key)
		}
	}
	return settings
}

func runConfigShow(cmd *cobra.Command, v *viper.Viper) error {
	settings := fileSettings(v)
	if len(settings) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "# No configuration set. Config file: ~/%s\n", configName)
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, v *viper.Viper, key, value string) error {
	if !isKnownKey(cmd.Root(), key) {
		return usageError{fmt.Errorf("unknown setting %q", key)}
	}

	// Parse boolean-like and numeric values
	settings := fileSettings(v)
	switch value {
	case "true", "yes", "on":
		settings[key] = true
	case "false", "no", "off":
		settings[key] = false
	default:
		if n, err := strconv.Atoi(value); err == nil {
			settings[key] = n
		} else {
			settings[key] = value
		}
	}

	cfgFile := v.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName)
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(cfgFile, out, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(cmd *cobra.Command, v *viper.Viper, key string) error {
	if !v.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Get(key))
	return nil
}

// isKnownKey reports whether key names a flag of the extraction command.
func isKnownKey(root *cobra.Command, key string) bool {
	switch key {
	case "config", "help", "version":
		return false
	}
	return root.Flags().Lookup(key) != nil
}
