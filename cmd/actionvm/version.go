package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

func newVersionCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print version information",
		Args:    cobra.NoArgs,
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{Version: version, Commit: commit, Date: date, Go: runtime.Version()}
			switch v.GetString("output") {
			case "json":
				data, err := marshalJSON(info, color.NoColor)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			case "text", "":
				fmt.Fprintf(cmd.OutOrStdout(), "actionvm %s (%s, %s)\n", info.Version, info.Commit, info.Date)
			default:
				return fmt.Errorf("unknown output format: %s", v.GetString("output"))
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	return cmd
}
