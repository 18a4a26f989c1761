package vm

import (
	"context"
	"errors"
	"strings"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/object"
)

// execution is the state of one running body: a top-level program, a
// function body, or the block of a With or Try action.
type execution struct {
	vm           *VirtualMachine
	ir           *bytecode.IR
	scopes       *scopeLink
	constantPool []object.Value
	registers    []object.Value
	stack        []object.Value
	recovering   bool
	// ended stops the body; returned additionally unwinds enclosing With
	// and Try blocks up to the function boundary.
	ended    bool
	returned bool
}

func (ex *execution) push(v object.Value) {
	if v == nil {
		v = object.Undefined
	}
	ex.stack = append(ex.stack, v)
}

// pop returns Undefined when the stack is empty.
func (ex *execution) pop() object.Value {
	n := len(ex.stack)
	if n == 0 {
		return object.Undefined
	}
	v := ex.stack[n-1]
	ex.stack[n-1] = nil
	ex.stack = ex.stack[:n-1]
	return v
}

func (ex *execution) peek() object.Value {
	if n := len(ex.stack); n > 0 {
		return ex.stack[n-1]
	}
	return object.Undefined
}

func (ex *execution) scope() object.Object {
	return ex.scopes.scope
}

// run executes a body with a fresh operand stack and returns the value
// left on top of it. The register file and constant pool are shared with
// the caller.
func (vm *VirtualMachine) run(prog *bytecode.Program, scopes *scopeLink, pool []object.Value, registers []object.Value) (object.Value, bool, error) {
	if prog == nil {
		return object.Undefined, false, nil
	}
	ir, err := prog.IR(vm.config.Version, len(registers))
	if err != nil {
		return nil, false, errz.NewRuntimeErrorf("cannot analyze program %s", prog.ID()).WithCause(err)
	}
	if vm.debugger != nil && vm.debugger.ShouldBreak(ir.ID) {
		if err := vm.debugger.Break(ir); err != nil {
			return nil, false, err
		}
	}
	ex := &execution{
		vm:           vm,
		ir:           ir,
		scopes:       scopes,
		constantPool: pool,
		registers:    registers,
	}
	if cp := vm.compiledFor(ir); cp != nil {
		err = cp.run(ex)
	} else {
		err = ex.interpret()
	}
	if err != nil {
		return nil, false, err
	}
	return ex.pop(), ex.returned, nil
}

// interpretsOnly reports whether per-action hooks require the
// interpreter.
func (vm *VirtualMachine) interpretsOnly() bool {
	if !vm.config.Compile || vm.config.Trace {
		return true
	}
	return vm.observer != nil && vm.obsCfg.StepMode != StepNone
}

// interpret walks the items of the IR one action at a time.
func (ex *execution) interpret() error {
	vm := ex.vm
	items := ex.ir.Items
	interval := vm.config.HangCheckInterval
	executed := 0
	pos := 0
	for pos < len(items) && !ex.ended {
		if executed%interval == 0 {
			if err := vm.checkHang(); err != nil {
				return err
			}
		}
		executed++
		item := &items[pos]
		if err := ex.step(item); err != nil {
			return err
		}
		if vm.config.Trace {
			ex.trace(item)
		}
		branch, err := dispatch(ex, item)
		if err = ex.recover(item, err); err != nil {
			return err
		}
		if branch {
			pos = item.Branch
		} else {
			pos = item.Next
		}
	}
	return nil
}

func dispatch(ex *execution, item *bytecode.Item) (bool, error) {
	h := handlers[item.Code]
	if h == nil {
		return false, errz.NewRuntimeErrorf("unknown action %s", item.Code)
	}
	return h(ex, item)
}

func (ex *execution) location(item *bytecode.Item) errz.Location {
	return errz.Location{
		Program:  ex.ir.ID,
		Position: item.Position,
		Action:   item.Code.String(),
	}
}

func (ex *execution) step(item *bytecode.Item) error {
	vm := ex.vm
	if vm.observer == nil {
		return nil
	}
	switch vm.obsCfg.StepMode {
	case StepNone:
		return nil
	case StepSampled:
		vm.stepCount++
		if vm.stepCount%vm.obsCfg.SampleInterval != 0 {
			return nil
		}
	}
	ok := vm.observer.OnStep(StepEvent{
		Position:   item.Position,
		Opcode:     item.Code,
		OpcodeName: item.Code.String(),
		Location:   ex.location(item),
		StackDepth: len(ex.stack),
		FrameDepth: vm.frameDepth,
	})
	if !ok {
		return ErrHalted
	}
	return nil
}

func (ex *execution) trace(item *bytecode.Item) {
	var sb strings.Builder
	for i, v := range ex.stack {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.Inspect())
	}
	ex.vm.logger.Debug().
		Str("program", ex.ir.ID).
		Int("position", item.Position).
		Str("action", item.Code.String()).
		Str("stack", sb.String()).
		Msg("action")
}

// recover applies the error policy to the outcome of one action. Fatal
// errors, script exceptions, cancellation and observer halts unwind.
// Other errors are reported and execution continues with the next
// action; a run of consecutive failures counts once against the error
// budget.
func (ex *execution) recover(item *bytecode.Item, err error) error {
	if err == nil {
		ex.recovering = false
		return nil
	}
	vm := ex.vm
	if unwinds(err) {
		return err
	}
	var rt *errz.RuntimeError
	if errors.As(err, &rt) {
		rt.WithLocation(ex.location(item))
	}
	if vm.config.ErrorsFatal && !vm.tryListening {
		return err
	}
	if vm.reporter != nil {
		vm.reporter.Error(err)
	}
	if !ex.recovering {
		n := vm.errorsIgnored
		vm.errorsIgnored++
		if n >= vm.config.MaxErrors {
			return errz.NewFatalError(errz.ErrorsLimit)
		}
		vm.logger.Error().Err(err).Str("action", item.Code.String()).Msg("error during action")
		ex.recovering = true
	}
	return nil
}

func unwinds(err error) bool {
	if errz.IsFatal(err) || errors.Is(err, ErrHalted) {
		return true
	}
	if _, ok := errz.AsScriptError(err); ok {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// runNested executes the block of a With or Try action. A Return inside
// the block ends the enclosing body with the returned value.
func (ex *execution) runNested(body *bytecode.Program, scopes *scopeLink) (object.Value, bool, error) {
	return ex.vm.run(body, scopes, ex.constantPool, ex.registers)
}

func (ex *execution) propagateReturn(value object.Value) {
	ex.push(value)
	ex.ended = true
	ex.returned = true
}

// Helpers shared by the action handlers.

func (ex *execution) version() int {
	return ex.vm.config.Version
}

func (ex *execution) toNumber(v object.Value) (float64, error) {
	return object.ToNumber(v, ex.vm.config.Version)
}

func (ex *execution) toString(v object.Value) (string, error) {
	return object.ToString(v, ex.vm.config.Version)
}

func (ex *execution) toBoolean(v object.Value) bool {
	return object.ToBoolean(v, ex.vm.config.Version)
}

func (ex *execution) popNumber() (float64, error) {
	return ex.toNumber(ex.pop())
}

func (ex *execution) popString() (string, error) {
	return ex.toString(ex.pop())
}

// pushBool pushes a boolean from content version 5 on and 1 or 0 before.
func (ex *execution) pushBool(b bool) {
	if ex.vm.config.Version >= 5 {
		ex.push(object.Bool(b))
		return
	}
	if b {
		ex.push(object.Number(1))
	} else {
		ex.push(object.Number(0))
	}
}

// clampCount limits a count operand to what the stack can supply and
// warns when it had to.
func (ex *execution) clampCount(n float64, limit int) int {
	if n != n || n < 0 {
		ex.vm.warn("invalid amount of arguments: %s", object.Number(n).Inspect())
		return 0
	}
	if n > float64(limit) {
		ex.vm.warn("truncating amount of arguments from %d to %d", int(n), limit)
		return limit
	}
	return int(n)
}

// popArgs reads a count followed by that many arguments.
func (ex *execution) popArgs() ([]object.Value, error) {
	n, err := ex.popNumber()
	if err != nil {
		return nil, err
	}
	count := ex.clampCount(n, len(ex.stack))
	args := make([]object.Value, count)
	for i := 0; i < count; i++ {
		args[i] = ex.pop()
	}
	return args, nil
}
