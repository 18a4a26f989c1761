package actionvm

import (
	"io"
	"maps"

	"github.com/deepnoodle-ai/actionvm/vm"
	"github.com/rs/zerolog"
)

// Option configures a compilation or execution.
type Option func(*options)

type options struct {
	filename string
	version  int
	frames   int
	out      io.Writer
	globals  map[string]any
	logger   *zerolog.Logger
	observer vm.Observer
	reporter vm.Reporter
	debugger vm.Debugger
	vmOpts   []vm.Option
}

func collectOptions(opts ...Option) *options {
	o := &options{globals: map[string]any{}}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// vmOptions translates the options for a program declaring version.
func (o *options) vmOptions(version int) []vm.Option {
	var opts []vm.Option
	switch {
	case o.version != 0:
		opts = append(opts, vm.WithVersion(o.version))
	case version != 0:
		opts = append(opts, vm.WithVersion(version))
	}
	if o.logger != nil {
		opts = append(opts, vm.WithLogger(*o.logger))
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.debugger != nil {
		opts = append(opts, vm.WithDebugger(o.debugger))
	}
	return append(opts, o.vmOpts...)
}

// WithFilename sets the name used for programs compiled from source.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithVersion overrides the content version declared by the program.
func WithVersion(version int) Option {
	return func(o *options) {
		o.version = version
	}
}

// WithFrames sets how many frames Run plays after the main code.
func WithFrames(frames int) Option {
	return func(o *options) {
		o.frames = frames
	}
}

// WithOutput sets the writer that receives trace output. By default
// trace messages are only recorded.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithGlobals provides values that are made available to scripts as
// properties of _global. This option is additive. Supported values are
// nil, booleans, numbers, strings, object.Value and Go functions of the
// form func(args []object.Value) (object.Value, error).
func WithGlobals(globals map[string]any) Option {
	return func(o *options) {
		maps.Copy(o.globals, globals)
	}
}

// WithLogger sets the logger of the engine.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithObserver sets an observer for execution events.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithReporter sets a reporter that receives warnings and recovered
// errors in addition to the ones recorded by a Movie.
func WithReporter(reporter vm.Reporter) Option {
	return func(o *options) {
		o.reporter = reporter
	}
}

// WithDebugger sets the debugger consulted before program bodies run.
func WithDebugger(debugger vm.Debugger) Option {
	return func(o *options) {
		o.debugger = debugger
	}
}

// WithVMOptions passes options through to the virtual machine, for
// example vm.WithHangTimeout or vm.WithCompile.
func WithVMOptions(opts ...vm.Option) Option {
	return func(o *options) {
		o.vmOpts = append(o.vmOpts, opts...)
	}
}
