package vm

import (
	"time"

	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/rs/zerolog"
)

const (
	// DefaultVersion is the content version assumed when none is given.
	DefaultVersion = 7

	// DefaultHangTimeout bounds the wall-clock time of one top-level entry.
	DefaultHangTimeout = time.Second

	// DefaultHangCheckInterval is the number of actions between hang and
	// context checks.
	DefaultHangCheckInterval = 1000

	// DefaultMaxErrors is the number of recovered errors tolerated per
	// top-level entry.
	DefaultMaxErrors = 1000

	// DefaultMaxRecursion limits the depth of script function calls.
	DefaultMaxRecursion = 256

	// DefaultRegisters is the register file length of top-level code and
	// DefineFunction closures.
	DefaultRegisters = 4

	// MaxRegisters is the largest register file a function may request.
	MaxRegisters = 255

	maxCachedRegisters = 10
)

// Config holds the tunables of a VirtualMachine.
type Config struct {
	Version           int
	HangTimeout       time.Duration
	HangCheckInterval int
	MaxErrors         int
	MaxRecursion      int
	// DisableHangGuard removes the wall-clock deadline.
	DisableHangGuard bool
	// Compile enables the closure compiler.
	Compile bool
	// ErrorsFatal propagates runtime errors instead of recovering them
	// when no script try block is active.
	ErrorsFatal bool
	// Trace logs every executed action at debug level.
	Trace bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Version:           DefaultVersion,
		HangTimeout:       DefaultHangTimeout,
		HangCheckInterval: DefaultHangCheckInterval,
		MaxErrors:         DefaultMaxErrors,
		MaxRecursion:      DefaultMaxRecursion,
		Compile:           true,
	}
}

func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.Version <= 0 {
		c.Version = d.Version
	}
	if c.HangTimeout <= 0 {
		c.HangTimeout = d.HangTimeout
	}
	if c.HangCheckInterval <= 0 {
		c.HangCheckInterval = d.HangCheckInterval
	}
	if c.MaxErrors < 0 {
		c.MaxErrors = 0
	}
	if c.MaxRecursion <= 0 {
		c.MaxRecursion = d.MaxRecursion
	}
	return c
}

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(vm *VirtualMachine) {
		vm.config = cfg
	}
}

// WithVersion sets the content version that selects conversion and
// comparison semantics.
func WithVersion(version int) Option {
	return func(vm *VirtualMachine) {
		vm.config.Version = version
	}
}

// WithHangTimeout sets the wall-clock budget of a top-level entry.
func WithHangTimeout(d time.Duration) Option {
	return func(vm *VirtualMachine) {
		vm.config.HangTimeout = d
	}
}

// WithHangCheckInterval sets how often, in actions, the deadline and the
// context are checked.
func WithHangCheckInterval(n int) Option {
	return func(vm *VirtualMachine) {
		vm.config.HangCheckInterval = n
	}
}

// WithoutHangGuard disables the wall-clock deadline. Context
// cancellation is still honored.
func WithoutHangGuard() Option {
	return func(vm *VirtualMachine) {
		vm.config.DisableHangGuard = true
	}
}

// WithMaxErrors sets the number of recovered errors tolerated per
// top-level entry before execution is disabled.
func WithMaxErrors(n int) Option {
	return func(vm *VirtualMachine) {
		vm.config.MaxErrors = n
	}
}

// WithMaxRecursion sets the script call depth limit.
func WithMaxRecursion(n int) Option {
	return func(vm *VirtualMachine) {
		vm.config.MaxRecursion = n
	}
}

// WithCompile enables or disables the closure compiler.
func WithCompile(enabled bool) Option {
	return func(vm *VirtualMachine) {
		vm.config.Compile = enabled
	}
}

// WithErrorsFatal makes runtime errors propagate to the host.
func WithErrorsFatal(enabled bool) Option {
	return func(vm *VirtualMachine) {
		vm.config.ErrorsFatal = enabled
	}
}

// WithTrace logs every executed action. Tracing runs programs in
// interpreted mode.
func WithTrace(enabled bool) Option {
	return func(vm *VirtualMachine) {
		vm.config.Trace = enabled
	}
}

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithObserver sets an observer for execution events.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}

// WithReporter sets the telemetry hook for warnings and recovered errors.
func WithReporter(reporter Reporter) Option {
	return func(vm *VirtualMachine) {
		vm.reporter = reporter
	}
}

// WithDebugger sets the debugger consulted before each program body.
func WithDebugger(debugger Debugger) Option {
	return func(vm *VirtualMachine) {
		vm.debugger = debugger
	}
}

// WithActions sets the host bridge.
func WithActions(actions Actions) Option {
	return func(vm *VirtualMachine) {
		vm.actions = actions
	}
}

// WithRoot sets the level zero clip.
func WithRoot(root object.Target) Option {
	return func(vm *VirtualMachine) {
		vm.root = root
	}
}

// WithGlobals adds global variables.
func WithGlobals(globals map[string]object.Value) Option {
	return func(vm *VirtualMachine) {
		for name, value := range globals {
			vm.inputGlobals[name] = value
		}
	}
}

// WithSymbolResolver sets the resolver used by RegisterAsset.
func WithSymbolResolver(resolver SymbolResolver) Option {
	return func(vm *VirtualMachine) {
		vm.symbols = resolver
	}
}

// WithClock overrides the time source of the hang guard.
func WithClock(now func() time.Time) Option {
	return func(vm *VirtualMachine) {
		vm.now = now
	}
}
