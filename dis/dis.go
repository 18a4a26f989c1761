// Package dis prints analyzed action programs. Each program is listed as
// a table of its items, annotated with basic block boundaries, resolved
// constants and branch targets. Nested function, with and try bodies are
// listed after the program that defines them.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/internal/table"
	"github.com/deepnoodle-ai/actionvm/op"
	"github.com/fatih/color"
)

// Instruction is one printable item.
type Instruction struct {
	Offset int
	// Block is the index of the basic block the item starts, or -1.
	Block    int
	Name     string
	Code     op.Code
	Operands string
	Info     string
}

// Disassemble returns the items of ir in order.
func Disassemble(ir *bytecode.IR) []Instruction {
	blocks := make(map[int]int, len(ir.Blocks))
	for i, b := range ir.Blocks {
		blocks[b.Label] = i
	}
	instructions := make([]Instruction, 0, len(ir.Items))
	for i, item := range ir.Items {
		block, ok := blocks[i]
		if !ok {
			block = -1
		}
		instructions = append(instructions, Instruction{
			Offset:   i,
			Block:    block,
			Name:     item.Name(),
			Code:     item.Code,
			Operands: operands(item),
			Info:     info(ir, item),
		})
	}
	return instructions
}

var (
	bold    = color.New(color.Bold)
	yellow  = color.New(color.FgYellow)
	green   = color.New(color.FgGreen)
	magenta = color.New(color.FgMagenta)
	cyan    = color.New(color.FgHiCyan)
)

// Print writes instructions as a table.
func Print(instructions []Instruction, w io.Writer) error {
	rows := make([][]string, 0, len(instructions))
	for _, instr := range instructions {
		block := ""
		if instr.Block >= 0 {
			block = yellow.Sprintf("B%d", instr.Block)
		}
		var infoText string
		switch {
		case instr.Info == "":
		case instr.Code == op.Push || instr.Code == op.ConstantPool:
			infoText = green.Sprint(instr.Info)
		case instr.Code == op.DefineFunction || instr.Code == op.DefineFunction2:
			infoText = magenta.Sprint(instr.Info)
		default:
			infoText = cyan.Sprint(instr.Info)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", instr.Offset),
			block,
			bold.Sprint(instr.Name),
			instr.Operands,
			infoText,
		})
	}
	return table.NewTable(w).
		WithHeader([]string{"OFFSET", "BLOCK", "ACTION", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignLeft,
			table.AlignLeft,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(rows).
		Render()
}

// Fprint analyzes prog for the given content version and writes it
// followed by every nested body. Listings are titled with the program
// name, or "main" for unnamed programs.
func Fprint(w io.Writer, prog *bytecode.Program, version, registersLimit int) error {
	title := prog.Name()
	if title == "" {
		title = "main"
	}
	return fprint(w, prog, version, registersLimit, title)
}

func fprint(w io.Writer, prog *bytecode.Program, version, registersLimit int, title string) error {
	ir, err := prog.IR(version, registersLimit)
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", bold.Sprint(title)); err != nil {
		return err
	}
	if err := Print(Disassemble(ir), w); err != nil {
		return err
	}
	for _, item := range ir.Items {
		for _, nested := range nestedBodies(item) {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
			sub := fmt.Sprintf("%s > %s@%d", title, nested.title, item.Position)
			if err := fprint(w, nested.body, version, registersLimit, sub); err != nil {
				return err
			}
		}
	}
	return nil
}

type nestedBody struct {
	title string
	body  *bytecode.Program
}

func nestedBodies(item bytecode.Item) []nestedBody {
	var bodies []nestedBody
	add := func(title string, body *bytecode.Program) {
		if body != nil {
			bodies = append(bodies, nestedBody{title: title, body: body})
		}
	}
	switch {
	case item.Function != nil:
		add(functionName(item.Function), item.Function.Body)
	case item.Try != nil:
		add("try", item.Try.Try)
		add("catch", item.Try.Catch)
		add("finally", item.Try.Finally)
	default:
		add("with", item.Body)
	}
	return bodies
}

func functionName(def *bytecode.FunctionDef) string {
	if def.Name == "" {
		return "<anonymous>"
	}
	return def.Name
}

func operands(item bytecode.Item) string {
	switch item.Code {
	case op.Push:
		parts := make([]string, len(item.Push))
		for i, p := range item.Push {
			switch p.Kind {
			case bytecode.PushConstant:
				parts[i] = fmt.Sprintf("c%d", p.Index)
			case bytecode.PushRegister:
				parts[i] = fmt.Sprintf("r%d", p.Index)
			default:
				parts[i] = p.Value.Inspect()
			}
		}
		return strings.Join(parts, ", ")
	case op.Jump:
		return fmt.Sprintf("-> %d", item.Next)
	case op.If, op.WaitForFrame, op.WaitForFrame2:
		target := fmt.Sprintf("-> %d", item.Branch)
		if item.Code == op.WaitForFrame {
			return fmt.Sprintf("%d, %s", item.Int+1, target)
		}
		return target
	case op.GotoFrame:
		return fmt.Sprintf("%d%s", item.Int+1, playSuffix(item.Bool))
	case op.GoToLabel:
		return fmt.Sprintf("%q%s", item.Str, playSuffix(item.Bool))
	case op.GetURL:
		return fmt.Sprintf("%q, %q", item.Str, item.Str2)
	case op.SetTarget:
		return fmt.Sprintf("%q", item.Str)
	case op.GetURL2:
		return fmt.Sprintf("0x%02X", item.Int)
	case op.GotoFrame2:
		s := fmt.Sprintf("0x%02X", item.Int)
		if item.Int&2 != 0 {
			s += fmt.Sprintf(", bias %d", item.Int2)
		}
		return s
	case op.StoreRegister:
		return fmt.Sprintf("r%d", item.Int)
	case op.ConstantPool:
		return fmt.Sprintf("%d", len(item.Strings))
	case op.StrictMode:
		return fmt.Sprintf("%d", item.Int)
	case op.DefineFunction, op.DefineFunction2:
		def := item.Function
		s := fmt.Sprintf("(%s)", strings.Join(def.Params, ", "))
		if item.Code == op.DefineFunction2 {
			s += fmt.Sprintf(", %d regs", def.RegisterCount)
		}
		return s
	case op.Try:
		switch {
		case item.Try.CatchInRegister:
			return fmt.Sprintf("catch r%d", item.Try.CatchRegister)
		case item.Try.CatchName != "":
			return fmt.Sprintf("catch %s", item.Try.CatchName)
		}
	}
	return ""
}

func playSuffix(play bool) string {
	if play {
		return ", play"
	}
	return ""
}

// info annotates an item with the constants it pushes when the constant
// pool is known statically, and with function names and pool contents.
func info(ir *bytecode.IR, item bytecode.Item) string {
	switch item.Code {
	case op.Push:
		var parts []string
		for _, p := range item.Push {
			if p.Kind != bytecode.PushConstant {
				continue
			}
			if p.Index < len(ir.SingleConstantPool) {
				parts = append(parts, fmt.Sprintf("c%d=%s", p.Index, ir.SingleConstantPool[p.Index].Inspect()))
			}
		}
		return strings.Join(parts, " ")
	case op.ConstantPool:
		s := strings.Join(item.Strings, " ")
		if len(s) > 60 {
			s = s[:57] + "..."
		}
		return s
	case op.DefineFunction, op.DefineFunction2:
		return "func:" + functionName(item.Function)
	}
	return ""
}
