package stage

import (
	"context"
	"fmt"
	"io"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/vm"
	"github.com/hashicorp/go-multierror"
)

// Player runs the scripts of a clip hierarchy. Advance moves every
// playing timeline by one frame and runs the frame scripts and
// onEnterFrame handlers.
type Player struct {
	machine *vm.VirtualMachine
	root    *Clip
	actions *Actions
	library map[int]*Clip

	enterFrameHandlers bool
}

// NewPlayer creates a player for root. Trace output is written to out.
func NewPlayer(root *Clip, out io.Writer, options ...vm.Option) *Player {
	p := &Player{
		root:    root,
		actions: NewActions(out),
		library: map[int]*Clip{},
	}
	opts := []vm.Option{
		vm.WithRoot(root),
		vm.WithActions(p.actions),
		vm.WithSymbolResolver(p),
	}
	p.machine = vm.New(append(opts, options...)...)
	p.actions.Bind(p.machine)
	p.machine.RegisterEventObserver("onEnterFrame", p)
	return p
}

// VM returns the machine running the scripts.
func (p *Player) VM() *vm.VirtualMachine { return p.machine }

// Root returns the level zero clip.
func (p *Player) Root() *Clip { return p.root }

// Actions returns the actions bound to the machine.
func (p *Player) Actions() *Actions { return p.actions }

// Run executes prog with the root clip as its target.
func (p *Player) Run(ctx context.Context, prog *bytecode.Program) (object.Value, error) {
	p.actions.ctx = ctx
	return p.machine.Execute(ctx, prog, p.root)
}

// Define adds a clip template to the library under a character id.
func (p *Player) Define(symbolID int, template *Clip) {
	p.library[symbolID] = template
}

// SymbolByID implements vm.SymbolResolver.
func (p *Player) SymbolByID(id int) (any, bool) {
	template, ok := p.library[id]
	return template, ok
}

// Export makes a library symbol available to Attach under className.
func (p *Player) Export(className string, symbolID int) error {
	return p.machine.RegisterAsset(className, symbolID)
}

// Attach creates an instance of an exported symbol in parent. When a
// class is bound to the symbol the instance inherits its prototype and
// the constructor runs with the instance as this.
func (p *Player) Attach(ctx context.Context, className, name string, parent *Clip, depth int) (*Clip, error) {
	asset, ok := p.machine.GetAsset(className)
	if !ok {
		return nil, fmt.Errorf("stage: %s is not exported", className)
	}
	template, ok := asset.Symbol.(*Clip)
	if !ok {
		return nil, fmt.Errorf("stage: symbol %d is not a clip", asset.SymbolID)
	}
	clip := template.duplicate(name)
	parent.AddChild(clip, depth)
	ctor, ok := asset.Class.(*object.Function)
	if !ok {
		return clip, nil
	}
	if proto := ctor.Prototype(); proto != nil {
		clip.SetProto(proto)
	}
	if _, err := p.machine.Call(ctx, ctor, clip, nil); err != nil {
		return clip, err
	}
	return clip, nil
}

// OnEventPropertyModified implements vm.EventObserver.
func (p *Player) OnEventPropertyModified(name string) {
	p.enterFrameHandlers = true
}

// Advance runs one tick: playing timelines move, scripts of entered
// frames run in hierarchy order and onEnterFrame handlers are called.
// Errors of individual scripts are collected.
func (p *Player) Advance(ctx context.Context) error {
	p.actions.ctx = ctx
	p.machine.SetDeferScriptExecution(true)

	clips := p.clips()
	for _, c := range clips {
		c.step()
	}
	var result *multierror.Error
	for _, c := range clips {
		if !c.takeEntered() {
			continue
		}
		if prog, ok := c.FrameScript(c.currentFrame); ok {
			if err := p.machine.AddPendingScript(ctx, prog, c); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if err := p.machine.FlushPendingScripts(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if p.enterFrameHandlers {
		for _, c := range p.clips() {
			handler, ok := c.PlainObject.Get("onEnterFrame").(*object.Function)
			if !ok {
				continue
			}
			if _, err := p.machine.Call(ctx, handler, c, nil); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// clips lists the hierarchy parents first, children by depth.
func (p *Player) clips() []*Clip {
	var out []*Clip
	var walk func(c *Clip)
	walk = func(c *Clip) {
		out = append(out, c)
		for _, child := range c.Children() {
			walk(child)
		}
	}
	walk(p.root)
	return out
}
