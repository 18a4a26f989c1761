package actionvm

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/actionvm/asm"
	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/stage"
	"github.com/deepnoodle-ai/actionvm/vm"
	"github.com/hashicorp/go-multierror"
)

// Movie provides stateful execution of a Program. Unlike Run, which
// creates a fresh stage on each call, a Movie keeps its stage, so
// variables, clips and timelines persist between calls.
type Movie struct {
	program *Program
	player  *stage.Player
	report  *report
	frames  int
}

// NewMovie builds the stage of prog. The main code is not run until
// Start is called.
func NewMovie(prog *Program, opts ...Option) (*Movie, error) {
	o := collectOptions(opts...)
	globals := make(map[string]object.Value, len(o.globals))
	for name, value := range o.globals {
		v, err := fromGo(value)
		if err != nil {
			return nil, fmt.Errorf("global %s: %w", name, err)
		}
		globals[name] = v
	}
	rep := &report{next: o.reporter}
	vmOpts := append(o.vmOptions(prog.Version()), vm.WithGlobals(globals), vm.WithReporter(rep))

	root := stage.NewClip("", 1)
	addClips(root, prog.Clips())
	return &Movie{
		program: prog,
		player:  stage.NewPlayer(root, o.out, vmOpts...),
		report:  rep,
		frames:  o.frames,
	}, nil
}

func addClips(parent *stage.Clip, defs []*asm.Clip) {
	for _, def := range defs {
		clip := stage.NewClip(def.Name, def.Frames)
		for label, frame := range def.Labels {
			clip.SetLabel(label, frame)
		}
		for frame, script := range def.Scripts {
			clip.SetFrameScript(frame, script)
		}
		parent.AddChild(clip, def.Depth)
		addClips(clip, def.Clips)
	}
}

// Start runs the main code on the root clip and returns the value it
// leaves on the stack.
func (m *Movie) Start(ctx context.Context) (any, error) {
	result, err := m.player.Run(ctx, m.program.Code())
	if err != nil {
		return nil, err
	}
	return toGo(result), nil
}

// Advance plays one frame.
func (m *Movie) Advance(ctx context.Context) error {
	return m.player.Advance(ctx)
}

// Play advances the given number of frames. Script errors of all frames
// are collected; playback stops early once the machine is disabled by a
// fatal error or the context is done.
func (m *Movie) Play(ctx context.Context, frames int) error {
	var result *multierror.Error
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return multierror.Append(result, err).ErrorOrNil()
		}
		if err := m.player.Advance(ctx); err != nil {
			result = multierror.Append(result, err)
		}
		if m.player.VM().Prohibited() {
			break
		}
	}
	return result.ErrorOrNil()
}

// lookup resolves a variable of the root clip, falling back to _global.
func (m *Movie) lookup(name string) (object.Value, bool) {
	root := m.player.Root()
	if root.HasProperty(name) {
		return root.Get(name), true
	}
	globals := m.player.VM().Globals()
	if globals.HasProperty(name) {
		return globals.Get(name), true
	}
	return nil, false
}

// Get returns a variable of the root clip or _global as a Go value.
func (m *Movie) Get(name string) (any, bool) {
	v, ok := m.lookup(name)
	if !ok {
		return nil, false
	}
	return toGo(v), true
}

// Call invokes a function stored in a root clip variable or in _global
// with the root clip as this. Arguments are converted from Go values.
func (m *Movie) Call(ctx context.Context, name string, args ...any) (any, error) {
	fn, ok := m.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s is not defined", name)
	}
	values := make([]object.Value, len(args))
	for i, arg := range args {
		v, err := fromGo(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}
	result, err := m.player.VM().Call(ctx, fn, m.player.Root(), values)
	if err != nil {
		return nil, err
	}
	return toGo(result), nil
}

// Player returns the stage player.
func (m *Movie) Player() *stage.Player { return m.player }

// Traces returns the recorded trace messages.
func (m *Movie) Traces() []string { return m.player.Actions().Traces() }

// Requests returns the network requests issued by scripts.
func (m *Movie) Requests() []stage.Request { return m.player.Actions().Requests() }

// Warnings returns the warnings reported so far.
func (m *Movie) Warnings() []*errz.Warning { return m.report.warnings }

// Errors returns the errors reported so far.
func (m *Movie) Errors() []error { return m.report.errors }

// report records diagnostics and forwards them to the host reporter.
type report struct {
	next     vm.Reporter
	warnings []*errz.Warning
	errors   []error
}

func (r *report) Warning(w *errz.Warning) {
	r.warnings = append(r.warnings, w)
	if r.next != nil {
		r.next.Warning(w)
	}
}

func (r *report) Error(err error) {
	r.errors = append(r.errors, err)
	if r.next != nil {
		r.next.Error(err)
	}
}
