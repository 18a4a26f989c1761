package main

import (
	"errors"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "actionvm",
		Short:         "Run and inspect action programs",
		Long:          "actionvm assembles action programs written in YAML and plays them on a minimal stage.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
	}
	cmd.PersistentFlags().String("config", "", "config file (default is $HOME/.actionvm.yaml)")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	_ = v.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("no-color", cmd.PersistentFlags().Lookup("no-color"))

	v.SetEnvPrefix("actionvm")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("no-color", "ACTIONVM_NO_COLOR", "NO_COLOR")

	cmd.AddCommand(newRunCmd(v), newDisCmd(v), newVersionCmd(v))
	return cmd
}

// initConfig reads the config file named by --config, or .actionvm in the
// home directory when present, and applies global flags.
func initConfig(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".actionvm")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || v.GetString("config") != "" {
			return err
		}
	}
	if v.GetBool("no-color") {
		color.NoColor = true
	}
	return nil
}

// bindFlags makes the local flags of cmd visible through v, so config
// file entries and ACTIONVM_* variables act as flag defaults.
func bindFlags(v *viper.Viper) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return v.BindPFlags(cmd.Flags())
	}
}
