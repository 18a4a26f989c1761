package bytecode

import (
	"errors"
	"sync"

	"github.com/gofrs/uuid"
)

// ProgramParams contains parameters for creating a new Program. Either
// Instructions or Data plus Analyzer must be set.
type ProgramParams struct {
	// ID overrides the generated identifier.
	ID           string
	Name         string
	Data         []byte
	Analyzer     Analyzer
	Instructions []Instruction
	Parent       *Program
}

// Program is a unit of action code. It is analyzed on first use and the
// result is shared by every execution. A Program is safe for concurrent
// use.
type Program struct {
	id           string
	name         string
	data         []byte
	analyzer     Analyzer
	instructions []Instruction
	parent       *Program

	mu     sync.Mutex
	ir     *IR
	irErr  error
	loaded bool
}

// NewProgram creates a Program. Input slices are copied.
func NewProgram(params ProgramParams) *Program {
	id := params.ID
	if id == "" {
		id = uuid.Must(uuid.NewV4()).String()
	}
	p := &Program{
		id:       id,
		name:     params.Name,
		analyzer: params.Analyzer,
		parent:   params.Parent,
	}
	if params.Data != nil {
		p.data = make([]byte, len(params.Data))
		copy(p.data, params.Data)
	}
	if params.Instructions != nil {
		p.instructions = make([]Instruction, len(params.Instructions))
		copy(p.instructions, params.Instructions)
	}
	return p
}

// ID returns the unique identifier of the program.
func (p *Program) ID() string {
	return p.id
}

// Name returns the program name, which may be empty.
func (p *Program) Name() string {
	return p.name
}

// Parent returns the enclosing program, or nil.
func (p *Program) Parent() *Program {
	return p.parent
}

// SetParent links a nested body to its enclosing program. It must be
// called before the program is first analyzed.
func (p *Program) SetParent(parent *Program) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parent = parent
}

// Data returns the raw action bytes, if any.
func (p *Program) Data() []byte {
	return p.data
}

// Analyzed returns the cached IR without triggering analysis.
func (p *Program) Analyzed() *IR {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ir
}

// IR returns the analysis result, analyzing the program on first call.
// The version and register limit of the first call are used; analysis
// errors are cached as well.
func (p *Program) IR(version, registersLimit int) (*IR, error) {
	var parentIR *IR
	if p.parent != nil {
		parentIR = p.parent.Analyzed()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.ir, p.irErr
	}
	p.loaded = true
	switch {
	case p.instructions != nil || p.data == nil:
		p.ir, p.irErr = BuildIR(p.id, p.instructions, registersLimit, parentIR)
	case p.analyzer == nil:
		p.irErr = errors.New("bytecode: program has raw data but no analyzer")
	default:
		p.ir, p.irErr = p.analyzer.Analyze(p.data, version, registersLimit, parentIR)
		if p.ir != nil && p.ir.ID == "" {
			p.ir.ID = p.id
		}
	}
	return p.ir, p.irErr
}
