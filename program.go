package actionvm

import (
	"github.com/deepnoodle-ai/actionvm/asm"
	"github.com/deepnoodle-ai/actionvm/bytecode"
)

// Program is an assembled movie: its main code and clip hierarchy. It is
// immutable after creation and may be run by several movies, one at a
// time per movie.
type Program struct {
	assembly *asm.Assembly
	source   string
	filename string
}

// Source returns the assembly source the program was compiled from.
func (p *Program) Source() string {
	return p.source
}

// Filename returns the filename associated with this program, if any.
func (p *Program) Filename() string {
	return p.filename
}

// Version returns the content version declared by the program, or zero.
func (p *Program) Version() int {
	return p.assembly.Version
}

// Code returns the main code of the program.
func (p *Program) Code() *bytecode.Program {
	return p.assembly.Program
}

// Clips returns the clips created on the stage before the main code runs.
func (p *Program) Clips() []*asm.Clip {
	return p.assembly.Clips
}
