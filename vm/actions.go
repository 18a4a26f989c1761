package vm

import (
	"math"
	"math/rand"
	"time"
	"unicode/utf8"

	"github.com/deepnoodle-ai/actionvm/object"
)

// Actions is the bridge to the host player. The interpreter delegates
// timeline navigation, clip control, network loading and the legacy
// string primitives to it. Errors returned by an Actions method are
// ordinary recoverable runtime errors.
type Actions interface {
	// Goto moves the current target's playhead to a frame number or label.
	Goto(frame object.Value, sceneBias int, play bool) error
	NextFrame() error
	PrevFrame() error
	Play() error
	Stop() error
	ToggleHighQuality() error
	StopAllSounds() error
	IfFrameLoaded(frame object.Value) (bool, error)
	Call(frame object.Value) error

	GetURL(url, window object.Value, method string) error
	LoadVariables(url, target object.Value, method string) error
	LoadMovie(url, target object.Value, method string) error

	GetProperty(target, index object.Value) (object.Value, error)
	SetProperty(target, index, value object.Value) error
	DuplicateMovieClip(source, target, depth object.Value) error
	RemoveMovieClip(target object.Value) error
	StartDrag(target, lockCenter object.Value, constrain []object.Value) error
	StopDrag() error

	Trace(message string) error
	GetTimer() object.Value
	Random(max object.Value) object.Value
	FSCommand(args []object.Value) (object.Value, error)

	Length(s string) object.Value
	Substring(s string, index, count object.Value) object.Value
	MBSubstring(s string, index, count object.Value) object.Value
	Int(v object.Value) object.Value
	Ord(v object.Value) object.Value
	MBOrd(v object.Value) object.Value
	Chr(code object.Value) object.Value
	MBChr(code object.Value) object.Value
}

// BaseActions implements the string, math and timer primitives and
// ignores navigation. Embed it to implement only what a host supports.
type BaseActions struct {
	Version int
	start   time.Time
	rnd     *rand.Rand
}

// NewBaseActions returns BaseActions for the given content version.
func NewBaseActions(version int) *BaseActions {
	return &BaseActions{
		Version: version,
		start:   time.Now(),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var _ Actions = (*BaseActions)(nil)

func (a *BaseActions) Goto(frame object.Value, sceneBias int, play bool) error { return nil }
func (a *BaseActions) NextFrame() error                                       { return nil }
func (a *BaseActions) PrevFrame() error                                       { return nil }
func (a *BaseActions) Play() error                                            { return nil }
func (a *BaseActions) Stop() error                                            { return nil }
func (a *BaseActions) ToggleHighQuality() error                               { return nil }
func (a *BaseActions) StopAllSounds() error                                   { return nil }
func (a *BaseActions) IfFrameLoaded(frame object.Value) (bool, error)         { return true, nil }
func (a *BaseActions) Call(frame object.Value) error                          { return nil }

func (a *BaseActions) GetURL(url, window object.Value, method string) error        { return nil }
func (a *BaseActions) LoadVariables(url, target object.Value, method string) error { return nil }
func (a *BaseActions) LoadMovie(url, target object.Value, method string) error     { return nil }

func (a *BaseActions) GetProperty(target, index object.Value) (object.Value, error) {
	return object.Undefined, nil
}
func (a *BaseActions) SetProperty(target, index, value object.Value) error         { return nil }
func (a *BaseActions) DuplicateMovieClip(source, target, depth object.Value) error { return nil }
func (a *BaseActions) RemoveMovieClip(target object.Value) error                   { return nil }
func (a *BaseActions) StartDrag(target, lockCenter object.Value, constrain []object.Value) error {
	return nil
}
func (a *BaseActions) StopDrag() error { return nil }

func (a *BaseActions) Trace(message string) error { return nil }

func (a *BaseActions) FSCommand(args []object.Value) (object.Value, error) {
	return object.Undefined, nil
}

// GetTimer returns the milliseconds elapsed since the actions were created.
func (a *BaseActions) GetTimer() object.Value {
	if a.start.IsZero() {
		a.start = time.Now()
	}
	return object.Number(time.Since(a.start).Milliseconds())
}

// Random returns an integer in [0, max).
func (a *BaseActions) Random(max object.Value) object.Value {
	if a.rnd == nil {
		a.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	n, err := object.ToNumber(max, a.Version)
	if err != nil || math.IsNaN(n) || n <= 0 {
		return object.Number(0)
	}
	return object.Number(math.Floor(a.rnd.Float64() * math.Floor(n)))
}

func (a *BaseActions) Length(s string) object.Value {
	return object.Number(utf8.RuneCountInString(s))
}

// Substring extracts count characters starting at the one-based index.
// A negative count extracts to the end of the string.
func (a *BaseActions) Substring(s string, index, count object.Value) object.Value {
	runes := []rune(s)
	start, _ := object.ToInteger(index, a.Version)
	n, _ := object.ToInteger(count, a.Version)
	if start < 1 {
		start = 1
	}
	from := int(start) - 1
	if from >= len(runes) {
		return object.String("")
	}
	to := len(runes)
	if n >= 0 && from+int(n) < to {
		to = from + int(n)
	}
	return object.String(string(runes[from:to]))
}

func (a *BaseActions) MBSubstring(s string, index, count object.Value) object.Value {
	return a.Substring(s, index, count)
}

func (a *BaseActions) Int(v object.Value) object.Value {
	n, _ := object.ToInteger(v, a.Version)
	return object.Number(n)
}

// Ord returns the code of the first character, or zero.
func (a *BaseActions) Ord(v object.Value) object.Value {
	s, _ := object.ToString(v, a.Version)
	if s == "" {
		return object.Number(0)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return object.Number(r)
}

func (a *BaseActions) MBOrd(v object.Value) object.Value {
	return a.Ord(v)
}

// Chr returns the character with the given code. Code zero yields the
// empty string.
func (a *BaseActions) Chr(code object.Value) object.Value {
	n, _ := object.ToInteger(code, a.Version)
	if n <= 0 || n > utf8.MaxRune {
		return object.String("")
	}
	return object.String(string(rune(n)))
}

func (a *BaseActions) MBChr(code object.Value) object.Value {
	return a.Chr(code)
}
