package vm

import (
	"fmt"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
)

// step is a compiled action.
type step func(ex *execution) (bool, error)

type compiledBlock struct {
	steps []step
	items []*bytecode.Item
	jump  int
}

// compiledProgram is the closure form of an IR. Blocks are indexed by
// their label; control moves between blocks through the jump of the
// block or the branch target of its last action.
type compiledProgram struct {
	blocks []*compiledBlock
	end    int
}

// compiledFor returns the compiled form of ir, compiling it on first use.
// Programs that fail to compile are remembered and interpreted.
func (vm *VirtualMachine) compiledFor(ir *bytecode.IR) *compiledProgram {
	if vm.interpretsOnly() {
		return nil
	}
	if cp, ok := vm.compiled[ir]; ok {
		return cp
	}
	cp, err := compileIR(ir)
	if err != nil {
		vm.logger.Warn().Err(err).Str("program", ir.ID).Msg("compilation failed, interpreting")
		cp = nil
	}
	vm.compiled[ir] = cp
	return cp
}

func compileIR(ir *bytecode.IR) (*compiledProgram, error) {
	end := ir.End()
	cp := &compiledProgram{
		blocks: make([]*compiledBlock, end),
		end:    end,
	}
	isLabel := func(label int) bool {
		if label == end {
			return true
		}
		_, ok := ir.BlockAt(label)
		return ok
	}
	for bi := range ir.Blocks {
		block := &ir.Blocks[bi]
		if len(block.Items) == 0 {
			return nil, fmt.Errorf("empty block at %d", block.Label)
		}
		if block.Label < 0 || block.Label >= end {
			return nil, fmt.Errorf("block label %d out of range", block.Label)
		}
		if !isLabel(block.Jump) {
			return nil, fmt.Errorf("block %d jumps into the middle of a block", block.Label)
		}
		cb := &compiledBlock{jump: block.Jump}
		for i := range block.Items {
			item := &block.Items[i]
			if op.GetInfo(item.Code).Branches && item.Code != op.Jump && !isLabel(item.Branch) {
				return nil, fmt.Errorf("branch at %d targets the middle of a block", item.Position)
			}
			s, err := compileItem(ir, item)
			if err != nil {
				return nil, err
			}
			cb.steps = append(cb.steps, s)
			cb.items = append(cb.items, item)
		}
		cp.blocks[block.Label] = cb
	}
	if end > 0 && cp.blocks[0] == nil {
		return nil, fmt.Errorf("no block starts the program")
	}
	return cp, nil
}

func compileItem(ir *bytecode.IR, item *bytecode.Item) (step, error) {
	switch item.Code {
	case op.Push:
		if values, ok := inlinePush(ir, item); ok {
			return func(ex *execution) (bool, error) {
				for _, v := range values {
					ex.push(v)
				}
				return false, nil
			}, nil
		}
	case op.Jump:
		return func(*execution) (bool, error) { return false, nil }, nil
	}
	h := handlers[item.Code]
	if h == nil {
		return nil, fmt.Errorf("no handler for action %s", item.Code)
	}
	return func(ex *execution) (bool, error) {
		return h(ex, item)
	}, nil
}

// inlinePush resolves the operands of a Push action at compile time when
// it only references literals and entries of the single constant pool.
func inlinePush(ir *bytecode.IR, item *bytecode.Item) ([]object.Value, bool) {
	values := make([]object.Value, 0, len(item.Push))
	for _, p := range item.Push {
		switch p.Kind {
		case bytecode.PushValue:
			v := p.Value
			if v == nil {
				v = object.Undefined
			}
			values = append(values, v)
		case bytecode.PushConstant:
			pool := ir.SingleConstantPool
			if pool == nil || p.Index < 0 || p.Index >= len(pool) {
				return nil, false
			}
			values = append(values, pool[p.Index])
		default:
			return nil, false
		}
	}
	return values, true
}

// run executes the compiled blocks. The hang guard is checked when a
// block starts after the configured number of actions ran.
func (cp *compiledProgram) run(ex *execution) error {
	vm := ex.vm
	interval := vm.config.HangCheckInterval
	countdown := 0
	label := 0
	for label < cp.end && !ex.ended {
		if countdown <= 0 {
			if err := vm.checkHang(); err != nil {
				return err
			}
			countdown = interval
		}
		b := cp.blocks[label]
		next := b.jump
		executed := len(b.steps)
		for i, s := range b.steps {
			branch, err := s(ex)
			if err = ex.recover(b.items[i], err); err != nil {
				return err
			}
			if ex.ended {
				executed = i + 1
				break
			}
			if branch {
				next = b.items[i].Branch
				executed = i + 1
				break
			}
		}
		countdown -= executed
		label = next
	}
	return nil
}
