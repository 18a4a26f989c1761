package vm

import (
	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/op"
)

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every action.
	StepAll StepMode = iota

	// StepNone never calls OnStep.
	// Use for: profilers that only need Call/Return events.
	StepNone

	// StepSampled calls OnStep every N actions.
	// Use for: statistical profiling.
	StepSampled
)

// ObserverConfig specifies what events an observer wants to receive.
// Use NewObserverConfig() to create configs with safe defaults.
type ObserverConfig struct {
	// StepMode controls OnStep callback frequency.
	StepMode StepMode

	// SampleInterval is the number of actions between OnStep calls
	// when StepMode is StepSampled. Values <= 0 are treated as 1.
	SampleInterval int

	// ObserveCalls enables OnCall callbacks.
	ObserveCalls bool

	// ObserveReturns enables OnReturn callbacks.
	ObserveReturns bool
}

// NewObserverConfig creates a config with safe defaults.
// ObserveCalls and ObserveReturns default to true.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: 1000,
		ObserveCalls:   true,
		ObserveReturns: true,
	}
}

// NormalizeConfig validates and clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer receives execution events. Observers that step through
// actions force programs to run in interpreted mode.
//
// Observer methods are called synchronously during execution. Returning
// false from any method halts execution with ErrHalted.
type Observer interface {
	// Config returns the observer's configuration.
	// Called once when the observer is attached.
	Config() ObserverConfig

	// OnStep is called before an action executes, based on StepMode.
	OnStep(event StepEvent) bool

	// OnCall is called when a script function is invoked.
	OnCall(event CallEvent) bool

	// OnReturn is called when a script function returns.
	OnReturn(event ReturnEvent) bool
}

// StepEvent describes a single action step.
type StepEvent struct {
	// Position is the index of the action in its program.
	Position int

	Opcode     op.Code
	OpcodeName string

	Location errz.Location

	// StackDepth is the depth of the operand stack of the running body.
	StackDepth int

	// FrameDepth is the depth of the call frame chain.
	FrameDepth int
}

// CallEvent describes a script function invocation.
type CallEvent struct {
	// FunctionName is empty for anonymous functions.
	FunctionName string
	ArgCount     int
	FrameDepth   int
}

// ReturnEvent describes a script function return.
type ReturnEvent struct {
	FunctionName string
	FrameDepth   int
}

// NoOpObserver is an Observer implementation that does nothing.
// Embed this in your observer to provide default implementations
// for methods you don't need.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}

// Reporter receives warnings and recovered errors. It is the telemetry
// hook of the engine.
type Reporter interface {
	Warning(w *errz.Warning)
	Error(err error)
}

// Debugger is consulted before a program body runs.
type Debugger interface {
	// ShouldBreak reports whether execution pauses before the program.
	ShouldBreak(programID string) bool

	// Break is called when ShouldBreak returned true. It blocks until
	// execution may continue. A non-nil error aborts the body.
	Break(ir *bytecode.IR) error
}

// Breakpoints is a Debugger driven by a set of program identifiers. When
// Pause is set every program breaks.
type Breakpoints struct {
	Pause   bool
	IDs     map[string]bool
	OnBreak func(ir *bytecode.IR) error
}

func (b *Breakpoints) ShouldBreak(programID string) bool {
	return b.Pause || b.IDs[programID]
}

func (b *Breakpoints) Break(ir *bytecode.IR) error {
	if b.OnBreak == nil {
		return nil
	}
	return b.OnBreak(ir)
}
