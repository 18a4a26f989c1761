// Package stage provides a minimal display hierarchy for running action
// programs outside of a full player: movie clips with a timeline, frame
// scripts and display properties, and an implementation of vm.Actions
// that drives them.
package stage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
)

// Clip is a movie clip. Script variables live in the embedded object;
// children, the timeline and display properties are exposed as
// properties too.
type Clip struct {
	*object.PlainObject

	name     string
	depth    int
	parent   *Clip
	children map[string]*Clip

	totalFrames  int
	currentFrame int
	playing      bool
	labels       map[string]int
	scripts      map[int]*bytecode.Program
	started      bool
	entered      bool

	x, y            float64
	xscale, yscale  float64
	alpha, rotation float64
	width, height   float64
	visible         bool
}

// NewClip creates a stopped clip positioned on its first frame.
func NewClip(name string, totalFrames int) *Clip {
	if totalFrames < 1 {
		totalFrames = 1
	}
	return &Clip{
		PlainObject:  object.NewPlainObject(nil),
		name:         name,
		children:     map[string]*Clip{},
		totalFrames:  totalFrames,
		currentFrame: 1,
		labels:       map[string]int{},
		scripts:      map[int]*bytecode.Program{},
		entered:      true,
		xscale:       100,
		yscale:       100,
		alpha:        100,
		visible:      true,
	}
}

var _ object.Target = (*Clip)(nil)

// Name returns the instance name.
func (c *Clip) Name() string { return c.name }

// Depth returns the depth of the clip in its parent.
func (c *Clip) Depth() int { return c.depth }

// CurrentFrame returns the one-based frame number of the playhead.
func (c *Clip) CurrentFrame() int { return c.currentFrame }

// TotalFrames returns the length of the timeline.
func (c *Clip) TotalFrames() int { return c.totalFrames }

// Playing reports whether the playhead advances on every tick.
func (c *Clip) Playing() bool { return c.playing }

// Position returns the _x and _y properties.
func (c *Clip) Position() (float64, float64) { return c.x, c.y }

// Visible returns the _visible property.
func (c *Clip) Visible() bool { return c.visible }

// AddChild places child at depth, replacing a child with the same name.
func (c *Clip) AddChild(child *Clip, depth int) {
	if child.parent != nil {
		child.parent.RemoveChild(child.name)
	}
	child.parent = c
	child.depth = depth
	c.children[child.name] = child
}

// RemoveChild detaches the named child.
func (c *Clip) RemoveChild(name string) bool {
	child, ok := c.children[name]
	if !ok {
		return false
	}
	delete(c.children, name)
	child.parent = nil
	return true
}

// Children returns the children ordered by depth.
func (c *Clip) Children() []*Clip {
	children := make([]*Clip, 0, len(c.children))
	for _, child := range c.children {
		children = append(children, child)
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].depth != children[j].depth {
			return children[i].depth < children[j].depth
		}
		return children[i].name < children[j].name
	})
	return children
}

// SetLabel names a frame.
func (c *Clip) SetLabel(label string, frame int) {
	c.labels[strings.ToLower(label)] = frame
}

// SetFrameScript attaches the script run when the playhead enters frame.
func (c *Clip) SetFrameScript(frame int, prog *bytecode.Program) {
	c.scripts[frame] = prog
}

// FrameScript returns the script of a frame.
func (c *Clip) FrameScript(frame int) (*bytecode.Program, bool) {
	prog, ok := c.scripts[frame]
	return prog, ok
}

// FrameForLabel returns the frame with the given label. Labels are
// compared case-insensitively.
func (c *Clip) FrameForLabel(label string) (int, bool) {
	frame, ok := c.labels[strings.ToLower(label)]
	return frame, ok
}

// GotoFrame moves the playhead. Frames out of range are clamped.
func (c *Clip) GotoFrame(frame int, play bool) {
	frame = max(1, min(frame, c.totalFrames))
	if frame != c.currentFrame {
		c.currentFrame = frame
		c.entered = true
	}
	c.playing = play
}

// Play starts the playhead.
func (c *Clip) Play() { c.playing = true }

// Stop stops the playhead.
func (c *Clip) Stop() { c.playing = false }

// step advances a playing clip by one frame, wrapping at the end.
func (c *Clip) step() {
	if !c.started {
		c.started = true
		return
	}
	if !c.playing || c.totalFrames == 1 {
		return
	}
	next := c.currentFrame + 1
	if next > c.totalFrames {
		next = 1
	}
	c.GotoFrame(next, true)
}

// takeEntered reports and clears whether the playhead entered a frame
// since the last call.
func (c *Clip) takeEntered() bool {
	entered := c.entered
	c.entered = false
	return entered
}

// duplicate copies the timeline and display properties of c. Script
// variables are not copied.
func (c *Clip) duplicate(name string) *Clip {
	d := NewClip(name, c.totalFrames)
	for label, frame := range c.labels {
		d.labels[label] = frame
	}
	for frame, prog := range c.scripts {
		d.scripts[frame] = prog
	}
	d.x, d.y = c.x, c.y
	d.xscale, d.yscale = c.xscale, c.yscale
	d.alpha, d.rotation = c.alpha, c.rotation
	d.width, d.height = c.width, c.height
	d.visible = c.visible
	return d
}

// root returns the top of the hierarchy c belongs to.
func (c *Clip) root() *Clip {
	r := c
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// *****************************************************************************
// object.Target
// *****************************************************************************

func (c *Clip) Type() object.Type {
	return object.MOVIECLIP
}

func (c *Clip) Inspect() string {
	return object.DotPath(c)
}

// ChildByName returns the named child clip.
func (c *Clip) ChildByName(name string) (object.Target, bool) {
	child, ok := c.children[name]
	if !ok {
		return nil, false
	}
	return child, true
}

// Parent returns the parent clip, or nil for a root.
func (c *Clip) Parent() object.Target {
	if c.parent == nil {
		return nil
	}
	return c.parent
}

// TargetPath returns the slash path of the clip.
func (c *Clip) TargetPath() string {
	if c.parent == nil {
		return "/"
	}
	parent := c.parent.TargetPath()
	if parent == "/" {
		return "/" + c.name
	}
	return parent + "/" + c.name
}

func (c *Clip) HasProperty(name string) bool {
	if c.HasOwnProperty(name) {
		return true
	}
	return c.PlainObject.HasProperty(name)
}

func (c *Clip) HasOwnProperty(name string) bool {
	if _, ok := c.children[name]; ok {
		return true
	}
	if _, ok := c.builtin(name); ok {
		return true
	}
	return c.PlainObject.HasOwnProperty(name)
}

// Get resolves script variables first, then children, then the
// underscore properties.
func (c *Clip) Get(name string) object.Value {
	if c.PlainObject.HasOwnProperty(name) {
		return c.PlainObject.Get(name)
	}
	if child, ok := c.children[name]; ok {
		return child
	}
	if v, ok := c.builtin(name); ok {
		return v
	}
	return c.PlainObject.Get(name)
}

// Put writes display properties through to the clip and everything else
// to the script variables.
func (c *Clip) Put(name string, value object.Value) {
	if index, ok := propertyIndex[name]; ok {
		if c.setProperty(index, value, 7) {
			return
		}
	}
	c.PlainObject.Put(name, value)
}

// Enumerate lists script variables followed by child names.
func (c *Clip) Enumerate() []string {
	names := c.PlainObject.Enumerate()
	for _, child := range c.Children() {
		names = append(names, child.name)
	}
	return names
}

func (c *Clip) builtin(name string) (object.Value, bool) {
	switch name {
	case "_parent":
		if c.parent == nil {
			return nil, false
		}
		return c.parent, true
	case "_root", "_level0":
		return c.root(), true
	}
	if index, ok := propertyIndex[name]; ok {
		return c.property(index), true
	}
	return nil, false
}

func (c *Clip) String() string {
	return fmt.Sprintf("Clip(%s)", c.TargetPath())
}
