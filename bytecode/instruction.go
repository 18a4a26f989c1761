package bytecode

import (
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
)

// PushKind identifies the source of a Push operand.
type PushKind uint8

const (
	// PushValue pushes a literal value.
	PushValue PushKind = iota
	// PushConstant pushes an entry of the active constant pool.
	PushConstant
	// PushRegister pushes the content of a register.
	PushRegister
)

// PushItem is one operand of a Push action.
type PushItem struct {
	Kind  PushKind
	Value object.Value
	// Index is the constant pool index or register number.
	Index int
}

// Values builds literal push operands.
func Values(values ...object.Value) []PushItem {
	items := make([]PushItem, len(values))
	for i, v := range values {
		items[i] = PushItem{Kind: PushValue, Value: v}
	}
	return items
}

// Constant builds a constant pool push operand.
func Constant(index int) PushItem {
	return PushItem{Kind: PushConstant, Index: index}
}

// Register builds a register push operand.
func Register(number int) PushItem {
	return PushItem{Kind: PushRegister, Index: number}
}

// Instruction is a decoded action. Only the operand fields used by the
// action code are set:
//
//	GotoFrame        Int (frame), Bool (play)
//	GoToLabel        Str (label), Bool (play)
//	GetURL           Str (url), Str2 (window)
//	WaitForFrame     Int (frame), Int2 (actions to skip)
//	WaitForFrame2    Int2 (actions to skip)
//	SetTarget        Str (target path)
//	GetURL2          Int (flags)
//	GotoFrame2       Int (flags), Int2 (scene bias)
//	Jump, If         Target (instruction index)
//	Push             Push
//	StoreRegister    Int (register)
//	ConstantPool     Strings
//	StrictMode       Int (mode)
//	With             Body
//	DefineFunction   Function
//	DefineFunction2  Function
//	Try              Try
type Instruction struct {
	Code     op.Code
	Position int
	Target   int
	Push     []PushItem
	Int      int
	Int2     int
	Bool     bool
	Str      string
	Str2     string
	Strings  []string
	Body     *Program
	Function *FunctionDef
	Try      *TryDef
}

// Name returns the action name.
func (i Instruction) Name() string {
	return i.Code.String()
}

// Bodies returns the nested programs referenced by the instruction.
func (i Instruction) Bodies() []*Program {
	var bodies []*Program
	add := func(p *Program) {
		if p != nil {
			bodies = append(bodies, p)
		}
	}
	add(i.Body)
	if i.Function != nil {
		add(i.Function.Body)
	}
	if i.Try != nil {
		add(i.Try.Try)
		add(i.Try.Catch)
		add(i.Try.Finally)
	}
	return bodies
}

// BindingKind selects what a DefineFunction2 register is preloaded with.
type BindingKind uint8

const (
	BindNone BindingKind = iota
	BindArgument
	BindThis
	BindArguments
	BindSuper
	BindGlobal
	BindParent
	BindRoot
)

var bindingNames = [...]string{"none", "arg", "this", "arguments", "super", "global", "parent", "root"}

func (k BindingKind) String() string {
	if int(k) < len(bindingNames) {
		return bindingNames[k]
	}
	return "unknown"
}

// ParseBindingKind returns the kind with the given name.
func ParseBindingKind(name string) (BindingKind, bool) {
	for i, n := range bindingNames {
		if n == name {
			return BindingKind(i), true
		}
	}
	return BindNone, false
}

// RegisterBinding preloads one register. Index is the argument index
// for BindArgument.
type RegisterBinding struct {
	Kind  BindingKind
	Index int
}

// Suppress flags disable the implicit bindings of a function activation.
type Suppress uint8

const (
	SuppressArguments Suppress = 1 << iota
	SuppressThis
	SuppressSuper
)

// FunctionDef holds the operands of DefineFunction and DefineFunction2.
type FunctionDef struct {
	Name   string
	Params []string
	// RegisterCount is the number of registers requested. Zero selects
	// the default register file of four registers.
	RegisterCount int
	// Allocation is indexed by register number.
	Allocation []RegisterBinding
	Suppress   Suppress
	Body       *Program
}

// TryDef holds the operands of Try. Catch and Finally are nil when the
// corresponding block is absent.
type TryDef struct {
	CatchName       string
	CatchRegister   int
	CatchInRegister bool
	Try             *Program
	Catch           *Program
	Finally         *Program
}
