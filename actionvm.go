// Package actionvm runs action programs written in the asm format on a
// minimal stage.
//
//	prog, err := actionvm.Compile(source)
//	result, err := actionvm.Run(ctx, prog, actionvm.WithFrames(10))
//
// For access to the stage between frames, create a Movie instead.
package actionvm

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/actionvm/asm"
	"github.com/deepnoodle-ai/actionvm/object"
)

// Compile assembles source into a Program.
func Compile(source string, opts ...Option) (*Program, error) {
	o := collectOptions(opts...)
	name := o.filename
	if name == "" {
		name = "main"
	}
	assembly, err := asm.Parse(name, []byte(source))
	if err != nil {
		return nil, err
	}
	return &Program{assembly: assembly, source: source, filename: o.filename}, nil
}

// Run executes the main code of prog on a fresh stage, plays the
// configured number of frames and returns the value left by the main
// code as a Go value.
func Run(ctx context.Context, prog *Program, opts ...Option) (any, error) {
	movie, err := NewMovie(prog, opts...)
	if err != nil {
		return nil, err
	}
	result, err := movie.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := movie.Play(ctx, movie.frames); err != nil {
		return nil, err
	}
	return result, nil
}

// Eval compiles and runs source. It is equivalent to Compile followed
// by Run.
func Eval(ctx context.Context, source string, opts ...Option) (any, error) {
	prog, err := Compile(source, opts...)
	if err != nil {
		return nil, err
	}
	return Run(ctx, prog, opts...)
}

// toGo converts a script value to a Go value. Primitives map to nil,
// bool, float64 and string; objects map to their inspected form.
func toGo(v object.Value) any {
	switch v := v.(type) {
	case nil, object.UndefinedType, object.NullType:
		return nil
	case object.Bool:
		return bool(v)
	case object.Number:
		return float64(v)
	case object.String:
		return string(v)
	}
	return v.Inspect()
}

// fromGo converts a Go value to a script value.
func fromGo(v any) (object.Value, error) {
	switch v := v.(type) {
	case nil:
		return object.Null, nil
	case object.Value:
		return v, nil
	case bool:
		return object.Bool(v), nil
	case int:
		return object.Number(v), nil
	case int32:
		return object.Number(v), nil
	case int64:
		return object.Number(v), nil
	case float32:
		return object.Number(v), nil
	case float64:
		return object.Number(v), nil
	case string:
		return object.String(v), nil
	case func(args []object.Value) (object.Value, error):
		return object.NewNativeFunction("", func(_ object.Value, args []object.Value) (object.Value, error) {
			return v(args)
		}), nil
	}
	return nil, fmt.Errorf("cannot convert %T to a script value", v)
}
