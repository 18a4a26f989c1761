package main

import (
	"fmt"

	"github.com/deepnoodle-ai/actionvm/asm"
	"github.com/deepnoodle-ai/actionvm/dis"
	"github.com/deepnoodle-ai/actionvm/vm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDisCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dis FILE",
		Short:   "Disassemble a program and its clip scripts",
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, args []string) error {
			assembly, err := asm.ParseFile(args[0])
			if err != nil {
				return err
			}
			version := v.GetInt("version")
			if version <= 0 {
				version = assembly.Version
			}
			if version <= 0 {
				version = vm.DefaultVersion
			}
			w := cmd.OutOrStdout()
			if err := dis.Fprint(w, assembly.Program, version, v.GetInt("registers")); err != nil {
				return err
			}
			return disClips(cmd, assembly.Clips, version, v.GetInt("registers"))
		},
	}
	cmd.Flags().Int("version", 0, "Content version (default: the version declared by the file)")
	cmd.Flags().Int("registers", vm.DefaultRegisters, "Register limit outside DefineFunction2 bodies")
	return cmd
}

func disClips(cmd *cobra.Command, clips []*asm.Clip, version, registers int) error {
	w := cmd.OutOrStdout()
	for _, clip := range clips {
		for frame := 1; frame <= clip.Frames; frame++ {
			script, ok := clip.Scripts[frame]
			if !ok {
				continue
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
			if err := dis.Fprint(w, script, version, registers); err != nil {
				return err
			}
		}
		if err := disClips(cmd, clip.Clips, version, registers); err != nil {
			return err
		}
	}
	return nil
}
