package asm

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

func items(t *testing.T, prog *bytecode.Program) []bytecode.Item {
	t.Helper()
	ir, err := prog.IR(7, 4)
	require.NoError(t, err)
	return ir.Items
}

func TestParseBasic(t *testing.T) {
	a, err := Parse("basic.yaml", []byte(`
version: 6
constants: [a, b]
code:
  - push: [5, 3]
  - op: Add2
  - op: actionTrace
`))
	require.NoError(t, err)
	require.Equal(t, "basic.yaml", a.Name)
	require.Equal(t, 6, a.Version)
	require.Equal(t, "basic.yaml", a.Program.Name())

	got := items(t, a.Program)
	require.Len(t, got, 4)
	require.Equal(t, op.ConstantPool, got[0].Code)
	require.Equal(t, []string{"a", "b"}, got[0].Strings)
	require.Equal(t, op.Push, got[1].Code)
	require.Equal(t, bytecode.Values(object.Number(5), object.Number(3)), got[1].Push)
	require.Equal(t, op.Add2, got[2].Code)
	require.Equal(t, op.Trace, got[3].Code)
}

func TestPushOperands(t *testing.T) {
	a, err := Parse("push.yaml", []byte(`
code:
  - push: [1.5, 0x10, .nan, hello, "undefined", undefined, true, null, ~, {const: 2}, {reg: 3}]
`))
	require.NoError(t, err)
	push := items(t, a.Program)[0].Push
	require.Len(t, push, 11)
	require.Equal(t, object.Number(1.5), push[0].Value)
	require.Equal(t, object.Number(16), push[1].Value)
	require.True(t, math.IsNaN(float64(push[2].Value.(object.Number))))
	require.Equal(t, object.String("hello"), push[3].Value)
	require.Equal(t, object.String("undefined"), push[4].Value)
	require.Equal(t, object.Undefined, push[5].Value)
	require.Equal(t, object.Bool(true), push[6].Value)
	require.Equal(t, object.Null, push[7].Value)
	require.Equal(t, object.Null, push[8].Value)
	require.Equal(t, bytecode.Constant(2), push[9])
	require.Equal(t, bytecode.Register(3), push[10])
}

func TestLabels(t *testing.T) {
	a, err := Parse("loop.yaml", []byte(`
code:
  - label: top
  - push: [1]
  - op: If
    target: done
  - op: Jump
    target: top
  - label: done
  - op: Stop
`))
	require.NoError(t, err)
	got := items(t, a.Program)
	require.Len(t, got, 4)
	require.Equal(t, 3, got[1].Target)
	require.Equal(t, 3, got[1].Branch)
	require.Equal(t, 0, got[2].Target)
	require.Equal(t, 0, got[2].Next)
}

func TestMovieOperands(t *testing.T) {
	a, err := Parse("movie.yaml", []byte(`
code:
  - op: GotoFrame
    frame: 3
    play: true
  - op: GoToLabel
    frame_label: intro
  - op: WaitForFrame
    frame: 2
    skip: 1
  - op: Play
  - op: SetTarget
    path: /ball
  - op: GetURL
    url: http://example.com
    window: _blank
  - push: [2]
  - op: GotoFrame2
    play: true
    bias: 4
  - op: StoreRegister
    register: 2
`))
	require.NoError(t, err)
	got := items(t, a.Program)
	require.Equal(t, 2, got[0].Int)
	require.True(t, got[0].Bool)
	require.Equal(t, "intro", got[1].Str)
	require.Equal(t, 1, got[2].Int)
	require.Equal(t, 1, got[2].Int2)
	require.Equal(t, 4, got[2].Branch)
	require.Equal(t, "/ball", got[4].Str)
	require.Equal(t, "http://example.com", got[5].Str)
	require.Equal(t, "_blank", got[5].Str2)
	require.Equal(t, 3, got[7].Int)
	require.Equal(t, 4, got[7].Int2)
	require.Equal(t, 2, got[8].Int)
}

func TestNestedBodies(t *testing.T) {
	a, err := Parse("func.yaml", []byte(`
constants: [x]
code:
  - op: DefineFunction2
    name: f
    params: [a, b]
    registers: 3
    allocation: [{kind: none}, {kind: this}, {kind: arg, index: 1}]
    suppress: [arguments, super]
    body:
      - push: [{reg: 2}]
      - op: Return
  - op: Try
    catch_register: 1
    try:
      - push: [boom]
      - op: Throw
    catch: []
    finally:
      - op: Stop
  - op: With
    body:
      - op: Play
`))
	require.NoError(t, err)
	got := items(t, a.Program)
	require.Len(t, got, 4)

	def := got[1].Function
	require.Equal(t, "f", def.Name)
	require.Equal(t, []string{"a", "b"}, def.Params)
	require.Equal(t, 3, def.RegisterCount)
	require.Equal(t, []bytecode.RegisterBinding{
		{Kind: bytecode.BindNone},
		{Kind: bytecode.BindThis},
		{Kind: bytecode.BindArgument, Index: 1},
	}, def.Allocation)
	require.Equal(t, bytecode.SuppressArguments|bytecode.SuppressSuper, def.Suppress)
	require.Same(t, a.Program, def.Body.Parent())
	require.Equal(t, "f", def.Body.Name())

	// The nested body inherits the single constant pool of its parent.
	body, err := def.Body.IR(7, 4)
	require.NoError(t, err)
	require.Equal(t, []object.Value{object.String("x")}, body.SingleConstantPool)

	try := got[2].Try
	require.True(t, try.CatchInRegister)
	require.Equal(t, 1, try.CatchRegister)
	require.NotNil(t, try.Catch)
	require.NotNil(t, try.Finally)
	require.Len(t, items(t, try.Try), 2)
	require.Same(t, a.Program, try.Catch.Parent())

	require.NotNil(t, got[3].Body)
	require.Same(t, a.Program, got[3].Body.Parent())
}

func TestTryWithoutCatch(t *testing.T) {
	a, err := Parse("try.yaml", []byte(`
code:
  - op: Try
    catch_name: e
    try: [{op: Stop}]
    finally: [{op: Play}]
`))
	require.NoError(t, err)
	try := items(t, a.Program)[0].Try
	require.Equal(t, "e", try.CatchName)
	require.False(t, try.CatchInRegister)
	require.Nil(t, try.Catch)
}

func TestErrorsAreCollected(t *testing.T) {
	_, err := Parse("bad.yaml", []byte(`
code:
  - op: Frobnicate
  - op: Jump
    target: nowhere
  - push: [{const: 1, reg: 2}]
  - op: DefineFunction
    registers: 2
  - op: Try
    catch_name: e
    catch_register: 1
  - {}
`))
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 6)
	require.Contains(t, merr.Errors[0].Error(), `code[0]: unknown op "Frobnicate"`)
	require.Contains(t, merr.Errors[1].Error(), `code[1]: unknown label "nowhere"`)
	require.Contains(t, merr.Errors[2].Error(), "code[2].push[0]")
}

func TestUnknownField(t *testing.T) {
	_, err := Parse("typo.yaml", []byte(`
code:
  - op: Play
    tagret: x
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "tagret")
}

func TestEmptyDocument(t *testing.T) {
	_, err := Parse("empty.yaml", nil)
	require.EqualError(t, err, "asm: empty.yaml is empty")
}

func TestClips(t *testing.T) {
	a, err := Parse("clips.yaml", []byte(`
code: []
clips:
  - name: ball
    frames: 3
    depth: 2
    labels: {end: 3}
    scripts:
      1: [{push: [hello]}, {op: Trace}]
      3: [{op: Stop}]
    clips:
      - name: shadow
`))
	require.NoError(t, err)
	require.Len(t, a.Clips, 1)
	ball := a.Clips[0]
	require.Equal(t, "ball", ball.Name)
	require.Equal(t, 3, ball.Frames)
	require.Equal(t, 2, ball.Depth)
	require.Equal(t, map[string]int{"end": 3}, ball.Labels)
	require.Len(t, ball.Scripts, 2)
	require.Equal(t, "ball:1", ball.Scripts[1].Name())
	require.Len(t, items(t, ball.Scripts[1]), 2)
	require.Len(t, ball.Clips, 1)
	require.Equal(t, 1, ball.Clips[0].Frames)

	_, err = Parse("clips.yaml", []byte(`
clips:
  - frames: 2
    scripts:
      5: [{op: Stop}]
`))
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.yaml")
	require.NoError(t, os.WriteFile(path, []byte("code: [{push: [hi]}, {op: Trace}]\n"), 0o644))
	a, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello.yaml", a.Name)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
