package stage

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/vm"
)

// Request is a network request issued by GetURL, LoadVariables or
// LoadMovie. The stage records requests instead of performing them.
type Request struct {
	Kind   string `json:"kind"`
	URL    string `json:"url"`
	Target string `json:"target"`
	Method string `json:"method,omitempty"`
}

// Actions drives the clips of a stage on behalf of the interpreter.
type Actions struct {
	*vm.BaseActions

	machine  *vm.VirtualMachine
	ctx      context.Context
	out      io.Writer
	traces   []string
	requests []Request
	commands [][]string
	dragging *Clip
	quality  bool
}

// NewActions returns actions that print trace output to out. A nil out
// only records the messages.
func NewActions(out io.Writer) *Actions {
	return &Actions{
		BaseActions: vm.NewBaseActions(vm.DefaultVersion),
		ctx:         context.Background(),
		out:         out,
		quality:     true,
	}
}

var _ vm.Actions = (*Actions)(nil)

// Bind attaches the actions to the machine that resolves their targets.
func (a *Actions) Bind(machine *vm.VirtualMachine) {
	a.machine = machine
	a.Version = machine.Version()
}

// Traces returns the recorded trace messages.
func (a *Actions) Traces() []string { return a.traces }

// Requests returns the recorded network requests.
func (a *Actions) Requests() []Request { return a.requests }

// Commands returns the recorded fscommand calls.
func (a *Actions) Commands() [][]string { return a.commands }

// Dragging returns the clip being dragged, or nil.
func (a *Actions) Dragging() *Clip { return a.dragging }

// HighQuality reports the quality toggled by ToggleHighQuality.
func (a *Actions) HighQuality() bool { return a.quality }

func (a *Actions) toString(v object.Value) string {
	s, err := object.ToString(v, a.Version)
	if err != nil {
		return ""
	}
	return s
}

// current returns the clip addressed by navigation actions.
func (a *Actions) current() (*Clip, error) {
	if a.machine == nil {
		return nil, fmt.Errorf("stage: actions are not bound to a machine")
	}
	target := a.machine.CurrentTarget()
	if target == nil {
		target = a.machine.DefaultTarget()
	}
	clip, ok := target.(*Clip)
	if !ok {
		return nil, fmt.Errorf("stage: current target is not a movie clip")
	}
	return clip, nil
}

func (a *Actions) resolve(v object.Value) (*Clip, error) {
	if a.machine == nil {
		return nil, fmt.Errorf("stage: actions are not bound to a machine")
	}
	target, err := a.machine.ResolveTarget(v)
	if err != nil {
		return nil, err
	}
	clip, ok := target.(*Clip)
	if !ok {
		return nil, fmt.Errorf("stage: %s is not a movie clip", a.toString(v))
	}
	return clip, nil
}

// frameOf converts a frame operand to a frame number of clip. Strings
// may address another clip with a "path:frame" prefix and may name a
// frame label. Unknown labels yield zero.
func (a *Actions) frameOf(clip *Clip, frame object.Value) (*Clip, int, error) {
	if s, ok := frame.(object.String); ok {
		str := string(s)
		if i := strings.LastIndex(str, ":"); i >= 0 {
			target, err := a.resolve(object.String(str[:i]))
			if err != nil {
				return nil, 0, err
			}
			clip, str = target, str[i+1:]
		}
		if n := object.ParseNumber(str, a.Version); !math.IsNaN(n) {
			return clip, int(n), nil
		}
		n, _ := clip.FrameForLabel(str)
		return clip, n, nil
	}
	n, err := object.ToNumber(frame, a.Version)
	if err != nil {
		return nil, 0, err
	}
	if math.IsNaN(n) {
		return clip, 0, nil
	}
	return clip, int(n), nil
}

func (a *Actions) Goto(frame object.Value, sceneBias int, play bool) error {
	clip, err := a.current()
	if err != nil {
		return err
	}
	clip, n, err := a.frameOf(clip, frame)
	if err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}
	clip.GotoFrame(n+sceneBias, play)
	return nil
}

func (a *Actions) NextFrame() error {
	clip, err := a.current()
	if err != nil {
		return err
	}
	clip.GotoFrame(clip.currentFrame+1, false)
	return nil
}

func (a *Actions) PrevFrame() error {
	clip, err := a.current()
	if err != nil {
		return err
	}
	clip.GotoFrame(clip.currentFrame-1, false)
	return nil
}

func (a *Actions) Play() error {
	clip, err := a.current()
	if err != nil {
		return err
	}
	clip.Play()
	return nil
}

func (a *Actions) Stop() error {
	clip, err := a.current()
	if err != nil {
		return err
	}
	clip.Stop()
	return nil
}

func (a *Actions) ToggleHighQuality() error {
	a.quality = !a.quality
	return nil
}

// IfFrameLoaded reports whether the frame exists. Every frame of the
// stage is loaded.
func (a *Actions) IfFrameLoaded(frame object.Value) (bool, error) {
	clip, err := a.current()
	if err != nil {
		return false, err
	}
	clip, n, err := a.frameOf(clip, frame)
	if err != nil {
		return false, err
	}
	return n >= 1 && n <= clip.totalFrames, nil
}

// Call runs the script of a frame without moving the playhead.
func (a *Actions) Call(frame object.Value) error {
	clip, err := a.current()
	if err != nil {
		return err
	}
	clip, n, err := a.frameOf(clip, frame)
	if err != nil {
		return err
	}
	prog, ok := clip.FrameScript(n)
	if !ok {
		return nil
	}
	_, err = a.machine.Execute(a.ctx, prog, clip)
	return err
}

func (a *Actions) record(kind string, url, target object.Value, method string) {
	a.requests = append(a.requests, Request{
		Kind:   kind,
		URL:    a.toString(url),
		Target: a.toString(target),
		Method: method,
	})
}

func (a *Actions) GetURL(url, window object.Value, method string) error {
	a.record("url", url, window, method)
	return nil
}

func (a *Actions) LoadVariables(url, target object.Value, method string) error {
	a.record("variables", url, target, method)
	return nil
}

func (a *Actions) LoadMovie(url, target object.Value, method string) error {
	a.record("movie", url, target, method)
	return nil
}

func (a *Actions) GetProperty(target, index object.Value) (object.Value, error) {
	clip, err := a.resolve(target)
	if err != nil {
		return nil, err
	}
	i, err := object.ToInteger(index, a.Version)
	if err != nil {
		return nil, err
	}
	if _, ok := PropertyName(int(i)); !ok {
		return nil, fmt.Errorf("stage: invalid property index %v", i)
	}
	return clip.property(int(i)), nil
}

func (a *Actions) SetProperty(target, index, value object.Value) error {
	clip, err := a.resolve(target)
	if err != nil {
		return err
	}
	i, err := object.ToInteger(index, a.Version)
	if err != nil {
		return err
	}
	name, ok := PropertyName(int(i))
	if !ok {
		return fmt.Errorf("stage: invalid property index %v", i)
	}
	if !clip.setProperty(int(i), value, a.Version) {
		return fmt.Errorf("stage: property %s is read-only", name)
	}
	return nil
}

// DuplicateMovieClip copies source into its parent under a new name.
func (a *Actions) DuplicateMovieClip(source, target, depth object.Value) error {
	clip, err := a.resolve(source)
	if err != nil {
		return err
	}
	if clip.parent == nil {
		return fmt.Errorf("stage: cannot duplicate the root clip")
	}
	name := a.toString(target)
	if name == "" {
		return fmt.Errorf("stage: duplicate needs a name")
	}
	d, err := object.ToInteger(depth, a.Version)
	if err != nil {
		return err
	}
	clip.parent.AddChild(clip.duplicate(name), int(d))
	return nil
}

func (a *Actions) RemoveMovieClip(target object.Value) error {
	clip, err := a.resolve(target)
	if err != nil {
		return err
	}
	if clip.parent == nil {
		return fmt.Errorf("stage: cannot remove the root clip")
	}
	clip.parent.RemoveChild(clip.name)
	return nil
}

func (a *Actions) StartDrag(target, lockCenter object.Value, constrain []object.Value) error {
	clip, err := a.resolve(target)
	if err != nil {
		return err
	}
	a.dragging = clip
	return nil
}

func (a *Actions) StopDrag() error {
	a.dragging = nil
	return nil
}

func (a *Actions) Trace(message string) error {
	a.traces = append(a.traces, message)
	if a.out != nil {
		if _, err := fmt.Fprintln(a.out, message); err != nil {
			return err
		}
	}
	return nil
}

func (a *Actions) FSCommand(args []object.Value) (object.Value, error) {
	command := make([]string, len(args))
	for i, arg := range args {
		command[i] = a.toString(arg)
	}
	a.commands = append(a.commands, command)
	return object.Undefined, nil
}
