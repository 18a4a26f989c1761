package stage

import (
	"math"

	"github.com/deepnoodle-ai/actionvm/object"
)

// Property indexes used by the GetProperty and SetProperty actions.
const (
	PropX = iota
	PropY
	PropXScale
	PropYScale
	PropCurrentFrame
	PropTotalFrames
	PropAlpha
	PropVisible
	PropWidth
	PropHeight
	PropRotation
	PropTarget
	PropFramesLoaded
	PropName
	PropDropTarget
	PropURL
	PropHighQuality
	PropFocusRect
	PropSoundBufTime
	PropQuality
	PropXMouse
	PropYMouse
)

var propertyNames = [...]string{
	PropX:            "_x",
	PropY:            "_y",
	PropXScale:       "_xscale",
	PropYScale:       "_yscale",
	PropCurrentFrame: "_currentframe",
	PropTotalFrames:  "_totalframes",
	PropAlpha:        "_alpha",
	PropVisible:      "_visible",
	PropWidth:        "_width",
	PropHeight:       "_height",
	PropRotation:     "_rotation",
	PropTarget:       "_target",
	PropFramesLoaded: "_framesloaded",
	PropName:         "_name",
	PropDropTarget:   "_droptarget",
	PropURL:          "_url",
	PropHighQuality:  "_highquality",
	PropFocusRect:    "_focusrect",
	PropSoundBufTime: "_soundbuftime",
	PropQuality:      "_quality",
	PropXMouse:       "_xmouse",
	PropYMouse:       "_ymouse",
}

var propertyIndex = func() map[string]int {
	m := make(map[string]int, len(propertyNames))
	for i, name := range propertyNames {
		m[name] = i
	}
	return m
}()

// PropertyName returns the name of a property index.
func PropertyName(index int) (string, bool) {
	if index < 0 || index >= len(propertyNames) {
		return "", false
	}
	return propertyNames[index], true
}

func (c *Clip) property(index int) object.Value {
	switch index {
	case PropX:
		return object.Number(c.x)
	case PropY:
		return object.Number(c.y)
	case PropXScale:
		return object.Number(c.xscale)
	case PropYScale:
		return object.Number(c.yscale)
	case PropCurrentFrame:
		return object.Number(c.currentFrame)
	case PropTotalFrames, PropFramesLoaded:
		return object.Number(c.totalFrames)
	case PropAlpha:
		return object.Number(c.alpha)
	case PropVisible:
		return object.Bool(c.visible)
	case PropWidth:
		return object.Number(c.width)
	case PropHeight:
		return object.Number(c.height)
	case PropRotation:
		return object.Number(c.rotation)
	case PropTarget:
		return object.String(c.TargetPath())
	case PropName:
		return object.String(c.name)
	case PropDropTarget, PropURL:
		return object.String("")
	case PropHighQuality, PropFocusRect:
		return object.Number(1)
	case PropSoundBufTime:
		return object.Number(5)
	case PropQuality:
		return object.String("HIGH")
	case PropXMouse, PropYMouse:
		return object.Number(0)
	}
	return object.Undefined
}

// setProperty assigns a display property and reports whether the index
// is writable.
func (c *Clip) setProperty(index int, value object.Value, version int) bool {
	if index == PropVisible {
		c.visible = object.ToBoolean(value, version)
		return true
	}
	if index == PropName {
		name, err := object.ToString(value, version)
		if err != nil {
			return false
		}
		c.rename(name)
		return true
	}
	var field *float64
	switch index {
	case PropX:
		field = &c.x
	case PropY:
		field = &c.y
	case PropXScale:
		field = &c.xscale
	case PropYScale:
		field = &c.yscale
	case PropAlpha:
		field = &c.alpha
	case PropWidth:
		field = &c.width
	case PropHeight:
		field = &c.height
	case PropRotation:
		field = &c.rotation
	default:
		return false
	}
	n, err := object.ToNumber(value, version)
	if err != nil || math.IsNaN(n) {
		return true
	}
	*field = n
	return true
}

func (c *Clip) rename(name string) {
	if name == c.name {
		return
	}
	if p := c.parent; p != nil {
		delete(p.children, c.name)
		p.children[name] = c
	}
	c.name = name
}
