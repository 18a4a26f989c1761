package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/deepnoodle-ai/actionvm"
	"github.com/deepnoodle-ai/actionvm/vm"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run FILE",
		Short:   "Run a program and play its frames",
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd, v, args[0])
		},
	}
	flags := cmd.Flags()
	flags.Int("version", 0, "Content version (default: the version declared by the file)")
	flags.Int("frames", 1, "Number of frames to play after the main code")
	flags.Bool("trace", false, "Log every executed action")
	flags.Bool("no-compile", false, "Interpret every program instead of compiling hot ones")
	flags.Duration("hang-timeout", vm.DefaultHangTimeout, "Wall-clock limit of one script entry")
	flags.Bool("step", false, "Pause before each program body")
	flags.Bool("stage", false, "Print the clip hierarchy after playing")
	flags.StringP("output", "o", "text", "Output format (text or json)")
	flags.String("log-level", "error", "Log level (debug, info, warn, error)")
	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(outputFormats, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

var outputFormats = []string{"text", "json"}

func runFile(cmd *cobra.Command, v *viper.Viper, path string) error {
	format := strings.ToLower(v.GetString("output"))
	if indexOf(outputFormats, format) < 0 {
		return fmt.Errorf("unknown output format: %s", format)
	}
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	if v.GetBool("trace") {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:     cmd.ErrOrStderr(),
		NoColor: color.NoColor,
	}).Level(level).With().Timestamp().Logger()

	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := actionvm.Compile(string(source), actionvm.WithFilename(filepath.Base(path)))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Trace output streams to stdout in text mode and is only collected
	// for the report in json mode.
	var out io.Writer
	if format == "text" {
		out = cmd.OutOrStdout()
	}
	opts := []actionvm.Option{
		actionvm.WithOutput(out),
		actionvm.WithLogger(logger),
		actionvm.WithVMOptions(
			vm.WithHangTimeout(v.GetDuration("hang-timeout")),
			vm.WithCompile(!v.GetBool("no-compile")),
			vm.WithTrace(v.GetBool("trace")),
		),
	}
	if version := v.GetInt("version"); version > 0 {
		opts = append(opts, actionvm.WithVersion(version))
	}
	if v.GetBool("step") {
		if !isTerminalIO() {
			return fmt.Errorf("--step requires a terminal")
		}
		opts = append(opts, actionvm.WithDebugger(newStepper(cmd.ErrOrStderr(), readKey, cancel).breakpoints))
	}

	movie, err := actionvm.NewMovie(prog, opts...)
	if err != nil {
		return err
	}
	result, runErr := movie.Start(ctx)
	if runErr == nil {
		runErr = movie.Play(ctx, v.GetInt("frames"))
	}
	rep := newRunReport(movie, result, runErr)

	if format == "json" {
		data, err := marshalJSON(rep, color.NoColor)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return runErr
	}
	rep.printText(cmd.OutOrStdout(), cmd.ErrOrStderr(), v.GetBool("stage"))
	return runErr
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
