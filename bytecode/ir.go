package bytecode

import (
	"fmt"
	"sort"

	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
)

// Analyzer decodes raw action bytes into an IR. Implementations are
// supplied by the host; the result is cached on the Program.
type Analyzer interface {
	Analyze(data []byte, version, registersLimit int, parent *IR) (*IR, error)
}

// Item is an instruction with its resolved successors. Next is the index
// of the item executed when no branch is taken and Branch the index
// executed when the action branches. An index equal to len(IR.Items)
// ends the program.
type Item struct {
	Instruction
	Next   int
	Branch int
}

// Block is a maximal straight-line run of items. Label is the index of
// its first item and Jump the index control reaches after its last item
// when no branch is taken.
type Block struct {
	Label int
	Items []Item
	Jump  int
}

// IR is the analysis result of a Program.
type IR struct {
	// ID identifies the analyzed program.
	ID     string
	Items  []Item
	Blocks []Block
	// SingleConstantPool is set when the program only ever sees one
	// constant pool, either its own leading ConstantPool action or the
	// one inherited from its parent.
	SingleConstantPool []object.Value
	// RegistersLimit is the register file length the program was
	// analyzed for.
	RegistersLimit int
}

// End returns the index that terminates the program.
func (ir *IR) End() int {
	return len(ir.Items)
}

// BlockAt returns the block starting at the given item index.
func (ir *IR) BlockAt(label int) (*Block, bool) {
	i := sort.Search(len(ir.Blocks), func(i int) bool {
		return ir.Blocks[i].Label >= label
	})
	if i < len(ir.Blocks) && ir.Blocks[i].Label == label {
		return &ir.Blocks[i], true
	}
	return nil, false
}

// BuildIR analyzes an already decoded instruction list. Jump targets are
// instruction indexes; targets outside the list end the program.
// Positions are rewritten to the instruction index.
func BuildIR(id string, instructions []Instruction, registersLimit int, parent *IR) (*IR, error) {
	n := len(instructions)
	ir := &IR{
		ID:             id,
		Items:          make([]Item, n),
		RegistersLimit: registersLimit,
	}
	clamp := func(target int) int {
		if target < 0 || target > n {
			return n
		}
		return target
	}
	leaders := map[int]bool{0: true}
	var pools []int
	for i, inst := range instructions {
		if !op.GetInfo(inst.Code).Valid() {
			return nil, fmt.Errorf("bytecode: unknown action code 0x%02X at %d", uint8(inst.Code), i)
		}
		inst.Position = i
		item := Item{Instruction: inst, Next: i + 1, Branch: n}
		switch inst.Code {
		case op.Jump:
			item.Next = clamp(inst.Target)
			leaders[item.Next] = true
			leaders[i+1] = true
		case op.If:
			item.Branch = clamp(inst.Target)
			leaders[item.Branch] = true
			leaders[i+1] = true
		case op.WaitForFrame, op.WaitForFrame2:
			item.Branch = clamp(i + 1 + inst.Int2)
			leaders[item.Branch] = true
			leaders[i+1] = true
		case op.Return, op.End, op.Throw:
			leaders[i+1] = true
		case op.ConstantPool:
			pools = append(pools, i)
		}
		ir.Items[i] = item
	}

	var labels []int
	for label := range leaders {
		if label < n {
			labels = append(labels, label)
		}
	}
	sort.Ints(labels)
	for bi, label := range labels {
		end := n
		if bi+1 < len(labels) {
			end = labels[bi+1]
		}
		items := ir.Items[label:end]
		ir.Blocks = append(ir.Blocks, Block{
			Label: label,
			Items: items,
			Jump:  items[len(items)-1].Next,
		})
	}

	switch {
	case len(pools) == 1 && pools[0] == 0:
		ir.SingleConstantPool = ConstantValues(instructions[0].Strings)
	case len(pools) == 0 && parent != nil:
		ir.SingleConstantPool = parent.SingleConstantPool
	}
	return ir, nil
}

// ConstantValues converts a ConstantPool operand to values.
func ConstantValues(pool []string) []object.Value {
	values := make([]object.Value, len(pool))
	for i, s := range pool {
		values[i] = object.String(s)
	}
	return values
}
