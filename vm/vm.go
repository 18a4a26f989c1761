// Package vm executes action bytecode against a hierarchy of display
// targets. A VirtualMachine holds the state shared by every script of a
// movie: configuration, globals, the target hierarchy, the call frame
// chain and the hang and error supervisor.
//
// A VirtualMachine is not safe for concurrent use. All scripts of a movie
// run on one goroutine.
package vm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// ErrHalted is returned when an observer stops execution.
var ErrHalted = errors.New("execution halted by observer")

// SymbolResolver looks up library symbols by character id.
type SymbolResolver interface {
	SymbolByID(id int) (any, bool)
}

// Asset is an exported library symbol, optionally bound to a class.
type Asset struct {
	ClassName string
	SymbolID  int
	Symbol    any
	Class     object.Value
}

// EventObserver is notified when an event handler property, such as
// onEnterFrame, is assigned or deleted by script code.
type EventObserver interface {
	OnEventPropertyModified(name string)
}

type pendingScript struct {
	program *bytecode.Program
	target  object.Object
}

// VirtualMachine is the global engine context.
type VirtualMachine struct {
	config   Config
	logger   zerolog.Logger
	observer Observer
	obsCfg   ObserverConfig
	reporter Reporter
	debugger Debugger
	actions  Actions
	symbols  SymbolResolver
	now      func() time.Time

	inputGlobals map[string]object.Value
	globals      *object.PlainObject
	objectProto  *object.PlainObject
	arrayProto   *object.PlainObject
	initialScope *scopeLink

	root          object.Target
	defaultTarget object.Object
	currentTarget object.Object

	frame      *callFrame
	frameDepth int
	stackDepth int

	ctx           context.Context
	active        bool
	prohibited    bool
	abortAt       time.Time
	errorsIgnored int
	tryListening  bool
	stepCount     int

	assets         map[string]*Asset
	eventObservers map[string][]EventObserver
	deferScripts   bool
	pending        []pendingScript

	compiled map[*bytecode.IR]*compiledProgram
}

// New creates a new Virtual Machine.
func New(options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		config:         DefaultConfig(),
		logger:         zerolog.Nop(),
		now:            time.Now,
		inputGlobals:   map[string]object.Value{},
		assets:         map[string]*Asset{},
		eventObservers: map[string][]EventObserver{},
		deferScripts:   true,
		compiled:       map[*bytecode.IR]*compiledProgram{},
	}
	for _, opt := range options {
		opt(vm)
	}
	vm.config = vm.config.normalize()
	if vm.observer != nil {
		vm.obsCfg = NormalizeConfig(vm.observer.Config())
	}
	if vm.actions == nil {
		vm.actions = NewBaseActions(vm.config.Version)
	}
	vm.initGlobals()
	vm.initialScope = &scopeLink{scope: vm.globals}
	return vm
}

// Config returns the effective configuration.
func (vm *VirtualMachine) Config() Config {
	return vm.config
}

// Version returns the content version.
func (vm *VirtualMachine) Version() int {
	return vm.config.Version
}

// Logger returns the engine logger.
func (vm *VirtualMachine) Logger() zerolog.Logger {
	return vm.logger
}

// SetActions replaces the host bridge.
func (vm *VirtualMachine) SetActions(actions Actions) {
	vm.actions = actions
}

// Actions returns the host bridge.
func (vm *VirtualMachine) Actions() Actions {
	return vm.actions
}

// Globals returns the global object at the end of every scope chain.
func (vm *VirtualMachine) Globals() *object.PlainObject {
	return vm.globals
}

// SetRoot sets the level zero clip.
func (vm *VirtualMachine) SetRoot(root object.Target) {
	vm.root = root
}

// Root returns the level zero clip.
func (vm *VirtualMachine) Root() object.Target {
	return vm.root
}

// ResolveLevel returns the root clip of a level. Only level zero exists.
func (vm *VirtualMachine) ResolveLevel(level int) (object.Target, error) {
	if level != 0 || vm.root == nil {
		return nil, fmt.Errorf("level %d is not loaded", level)
	}
	return vm.root, nil
}

// DefaultTarget returns the target of the running top-level entry.
func (vm *VirtualMachine) DefaultTarget() object.Object {
	return vm.defaultTarget
}

// CurrentTarget returns the target selected by SetTarget, or nil.
func (vm *VirtualMachine) CurrentTarget() object.Object {
	return vm.currentTarget
}

// Prohibited reports whether a fatal error disabled execution.
func (vm *VirtualMachine) Prohibited() bool {
	return vm.prohibited
}

// Execute runs a top-level program with target as its default target and
// innermost scope. A nil target selects the root clip. The value left on
// top of the operand stack is returned.
//
// Once a fatal error has been raised, Execute returns immediately without
// running anything.
func (vm *VirtualMachine) Execute(ctx context.Context, prog *bytecode.Program, target object.Object) (object.Value, error) {
	if vm.prohibited {
		return object.Undefined, nil
	}
	if target == nil {
		if vm.root == nil {
			return nil, errors.New("vm: no target and no root clip")
		}
		target = vm.root
	}
	restore := vm.enter(ctx)
	defer restore()

	registers := make([]object.Value, DefaultRegisters)
	scopes := vm.initialScope.create(target)
	vm.pushFrame(target, nil, nil)
	defer vm.popFrame()

	savedDefault, savedCurrent := vm.defaultTarget, vm.currentTarget
	vm.defaultTarget, vm.currentTarget = target, nil
	result, _, err := vm.run(prog, scopes, nil, registers)
	vm.defaultTarget, vm.currentTarget = savedDefault, savedCurrent

	if err != nil && errz.IsFatal(err) {
		vm.disable(err)
	}
	if result == nil {
		result = object.Undefined
	}
	return result, err
}

// Call invokes a script function from the host, for example an event
// handler, as a top-level entry. A this that is a target becomes the
// default target while the function runs.
func (vm *VirtualMachine) Call(ctx context.Context, fn object.Value, this object.Object, args []object.Value) (object.Value, error) {
	if vm.prohibited {
		return object.Undefined, nil
	}
	f, ok := fn.(*object.Function)
	if !ok {
		return nil, fmt.Errorf("vm: cannot call %s", object.TypeOf(fn))
	}
	restore := vm.enter(ctx)
	defer restore()

	savedDefault, savedCurrent := vm.defaultTarget, vm.currentTarget
	if _, ok := this.(object.Target); ok {
		vm.defaultTarget = this
	}
	vm.currentTarget = nil
	var thisArg object.Value = object.Undefined
	if this != nil {
		thisArg = this
	}
	result, err := f.Call(thisArg, args)
	vm.defaultTarget, vm.currentTarget = savedDefault, savedCurrent

	if err != nil {
		if errz.IsFatal(err) {
			vm.disable(err)
		}
		return nil, err
	}
	if result == nil {
		result = object.Undefined
	}
	return result, nil
}

// enter starts a top-level entry. Nested entries share the deadline and
// error budget of the outermost one.
func (vm *VirtualMachine) enter(ctx context.Context) func() {
	wasActive := vm.active
	savedCtx := vm.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	vm.ctx = ctx
	if !wasActive {
		vm.active = true
		vm.errorsIgnored = 0
		vm.stepCount = 0
		if vm.config.DisableHangGuard {
			vm.abortAt = time.Time{}
		} else {
			vm.abortAt = vm.now().Add(vm.config.HangTimeout)
		}
	}
	return func() {
		vm.active = wasActive
		vm.ctx = savedCtx
	}
}

func (vm *VirtualMachine) disable(err error) {
	if vm.prohibited {
		return
	}
	vm.prohibited = true
	vm.logger.Error().Err(err).Msg("disabling script execution")
	if vm.reporter != nil {
		vm.reporter.Error(err)
	}
}

// checkHang fails once the deadline passed or the context is done.
func (vm *VirtualMachine) checkHang() error {
	if vm.ctx != nil {
		select {
		case <-vm.ctx.Done():
			return vm.ctx.Err()
		default:
		}
	}
	if !vm.abortAt.IsZero() && !vm.now().Before(vm.abortAt) {
		return errz.NewFatalError(errz.HangTimeout)
	}
	return nil
}

func (vm *VirtualMachine) warn(format string, args ...any) {
	w := errz.NewWarning(format, args...)
	vm.logger.Warn().Msg(w.Message)
	if vm.reporter != nil {
		vm.reporter.Warning(w)
	}
}

// *****************************************************************************
// Target resolution
// *****************************************************************************

// ResolveTarget converts a target operand to an object. Objects pass
// through, null and undefined select the current or default target and
// anything else is parsed as a target path.
func (vm *VirtualMachine) ResolveTarget(v object.Value) (object.Object, error) {
	switch v := v.(type) {
	case object.Object:
		return v, nil
	case nil, object.UndefinedType, object.NullType:
		if vm.currentTarget != nil {
			return vm.currentTarget, nil
		}
		return vm.defaultTarget, nil
	}
	path, err := object.ToString(v, vm.config.Version)
	if err != nil {
		return nil, err
	}
	obj := vm.lookupChild(path, true)
	if _, ok := obj.(object.Target); !ok {
		return nil, errz.NewRuntimeErrorf("invalid target object: %s", path)
	}
	return obj, nil
}

// lookupChild resolves a slash or dot separated target path. Missing
// clips produce a warning and a placeholder object.
func (vm *VirtualMachine) lookupChild(path string, fromCurrent bool) object.Object {
	var obj object.Object = vm.defaultTarget
	if fromCurrent && vm.currentTarget != nil {
		obj = vm.currentTarget
	}
	if obj == nil {
		obj = vm.root
	}
	switch path {
	case "", ".":
		return obj
	case "..":
		if t, ok := obj.(object.Target); ok && t.Parent() != nil {
			return t.Parent()
		}
		return obj
	}

	var parts []string
	if strings.Contains(path, "/") {
		raw := strings.Split(path, "/")
		if raw[0] == "" {
			raw[0] = "_root"
		}
		for _, p := range raw {
			switch p {
			case "", ".":
			case "..":
				parts = append(parts, "_parent")
			default:
				parts = append(parts, p)
			}
		}
	} else {
		parts = strings.Split(path, ".")
	}

	if len(parts) > 0 && (parts[0] == "_level0" || parts[0] == "_root") {
		if root, err := vm.ResolveLevel(0); err == nil {
			obj = root
			parts = parts[1:]
		}
	}
	for _, name := range parts {
		t, ok := obj.(object.Target)
		var next object.Target
		if ok {
			next = vm.childTarget(t, name)
		}
		if next == nil {
			vm.warn("%s (expr %s) is not found in %s", name, path, describeTarget(obj))
			return object.NewPlainObject(vm.objectProto)
		}
		obj = next
	}
	return obj
}

func (vm *VirtualMachine) childTarget(t object.Target, name string) object.Target {
	switch name {
	case "this", ".":
		return t
	case "_parent", "..":
		return t.Parent()
	case "_root", "_level0":
		return vm.root
	}
	child, ok := t.ChildByName(name)
	if !ok {
		return nil
	}
	return child
}

func describeTarget(obj object.Object) string {
	if t, ok := obj.(object.Target); ok {
		return t.TargetPath()
	}
	if obj == nil {
		return "undefined"
	}
	return obj.Inspect()
}

// setTarget selects the current target by path. The empty path selects
// the default target again.
func (vm *VirtualMachine) setTarget(path string) {
	if path == "" {
		vm.currentTarget = nil
		return
	}
	vm.currentTarget = vm.lookupChild(path, false)
}

// *****************************************************************************
// Assets and events
// *****************************************************************************

// RegisterAsset exports a library symbol under a class name.
func (vm *VirtualMachine) RegisterAsset(className string, symbolID int) error {
	asset := &Asset{ClassName: className, SymbolID: symbolID}
	if vm.symbols != nil {
		symbol, ok := vm.symbols.SymbolByID(symbolID)
		if !ok {
			return fmt.Errorf("symbol %d is not defined", symbolID)
		}
		asset.Symbol = symbol
	}
	vm.assets[vm.eventKey(className)] = asset
	return nil
}

// GetAsset returns the asset exported under className.
func (vm *VirtualMachine) GetAsset(className string) (*Asset, bool) {
	asset, ok := vm.assets[vm.eventKey(className)]
	return asset, ok
}

// BindClass associates a constructor with an exported asset.
func (vm *VirtualMachine) BindClass(className string, class object.Value) {
	asset, ok := vm.GetAsset(className)
	if !ok {
		vm.warn("cannot register %s class for symbol", className)
		return
	}
	asset.Class = class
}

// eventKey folds names for content versions that compare identifiers
// case-insensitively.
func (vm *VirtualMachine) eventKey(name string) string {
	if vm.config.Version < 7 {
		return strings.ToLower(name)
	}
	return name
}

// RegisterEventObserver subscribes observer to assignments of the named
// event property.
func (vm *VirtualMachine) RegisterEventObserver(name string, observer EventObserver) {
	key := vm.eventKey(name)
	vm.eventObservers[key] = append(vm.eventObservers[key], observer)
}

// UnregisterEventObserver removes a subscription.
func (vm *VirtualMachine) UnregisterEventObserver(name string, observer EventObserver) {
	key := vm.eventKey(name)
	list := vm.eventObservers[key]
	for i, o := range list {
		if o == observer {
			vm.eventObservers[key] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(vm.eventObservers[key]) == 0 {
		delete(vm.eventObservers, key)
	}
}

func (vm *VirtualMachine) notifyPropertyChanged(name string) {
	if len(name) < 2 || !strings.EqualFold(name[:2], "on") {
		return
	}
	if vm.config.Version >= 7 && name[:2] != "on" {
		return
	}
	for _, o := range vm.eventObservers[vm.eventKey(name)] {
		o.OnEventPropertyModified(name)
	}
}

// *****************************************************************************
// Pending scripts
// *****************************************************************************

// SetDeferScriptExecution controls whether AddPendingScript queues
// scripts or runs them immediately.
func (vm *VirtualMachine) SetDeferScriptExecution(deferred bool) {
	vm.deferScripts = deferred
}

// AddPendingScript queues a program for target, or runs it immediately
// when scripts are not deferred.
func (vm *VirtualMachine) AddPendingScript(ctx context.Context, prog *bytecode.Program, target object.Object) error {
	if !vm.deferScripts {
		_, err := vm.Execute(ctx, prog, target)
		return err
	}
	vm.pending = append(vm.pending, pendingScript{program: prog, target: target})
	return nil
}

// PendingScripts returns the number of queued scripts.
func (vm *VirtualMachine) PendingScripts() int {
	return len(vm.pending)
}

// FlushPendingScripts runs queued scripts in order, including scripts
// queued while flushing, and stops deferring. Errors of individual
// scripts are collected.
func (vm *VirtualMachine) FlushPendingScripts(ctx context.Context) error {
	var result *multierror.Error
	for len(vm.pending) > 0 {
		next := vm.pending[0]
		vm.pending = vm.pending[1:]
		if _, err := vm.Execute(ctx, next.program, next.target); err != nil {
			result = multierror.Append(result, err)
		}
	}
	vm.pending = nil
	vm.deferScripts = false
	return result.ErrorOrNil()
}
