package actionvm

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/vm"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	result, err := Eval(context.Background(), `
code:
  - push: [5, 3]
  - op: Add2
`)
	require.NoError(t, err)
	require.Equal(t, 8.0, result)
}

func TestDeclaredVersion(t *testing.T) {
	src := `
version: 4
code: [{push: [3, 0]}, {op: Divide}]
`
	prog, err := Compile(src, WithFilename("divide.yaml"))
	require.NoError(t, err)
	require.Equal(t, 4, prog.Version())
	require.Equal(t, "divide.yaml", prog.Filename())
	require.Equal(t, src, prog.Source())
	require.Equal(t, "divide.yaml", prog.Code().Name())

	result, err := Run(context.Background(), prog)
	require.NoError(t, err)
	require.Equal(t, "#ERROR#", result)

	result, err = Run(context.Background(), prog, WithVersion(7))
	require.NoError(t, err)
	require.True(t, math.IsInf(result.(float64), 1))
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(`code: [{op: Nope}, {op: Jump, target: missing}]`)
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown op "Nope"`)
	require.Contains(t, err.Error(), `unknown label "missing"`)
}

func TestRunPlaysFrames(t *testing.T) {
	var out bytes.Buffer
	result, err := Eval(context.Background(), `
code:
  - push: [started]
  - op: Trace
clips:
  - name: ball
    frames: 3
    scripts:
      1: [{push: [one]}, {op: Trace}, {op: Play}]
      2: [{push: [two]}, {op: Trace}]
      3: [{push: [three]}, {op: Trace}, {op: Stop}]
`, WithFrames(5), WithOutput(&out))
	require.NoError(t, err)
	require.Nil(t, result)
	require.Equal(t, "started\none\ntwo\nthree\n", out.String())
}

func TestGlobals(t *testing.T) {
	double := func(args []object.Value) (object.Value, error) {
		n, err := object.ToNumber(args[0], 7)
		if err != nil {
			return nil, err
		}
		return object.Number(n * 2), nil
	}
	result, err := Eval(context.Background(), `
code:
  - push: [21, 1, double]
  - op: CallFunction
  - push: [greeting]
  - op: GetVariable
  - op: Add2
`, WithGlobals(map[string]any{"greeting": "!", "double": double}))
	require.NoError(t, err)
	require.Equal(t, "42!", result)

	_, err = Eval(context.Background(), `code: []`, WithGlobals(map[string]any{"ch": make(chan int)}))
	require.Error(t, err)
}

const adder = `
code:
  - op: DefineFunction2
    name: add
    params: [a, b]
    body:
      - push: [a]
      - op: GetVariable
      - push: [b]
      - op: GetVariable
      - op: Add2
      - op: Return
  - push: [total, 5]
  - op: SetVariable
`

func TestMovie(t *testing.T) {
	ctx := context.Background()
	prog, err := Compile(adder)
	require.NoError(t, err)
	movie, err := NewMovie(prog)
	require.NoError(t, err)

	_, ok := movie.Get("total")
	require.False(t, ok)

	_, err = movie.Start(ctx)
	require.NoError(t, err)
	total, ok := movie.Get("total")
	require.True(t, ok)
	require.Equal(t, 5.0, total)

	sum, err := movie.Call(ctx, "add", 2, 40)
	require.NoError(t, err)
	require.Equal(t, 42.0, sum)

	_, err = movie.Call(ctx, "missing")
	require.Error(t, err)
	_, err = movie.Call(ctx, "total")
	require.Error(t, err)

	nan, ok := movie.Get("NaN")
	require.True(t, ok)
	require.True(t, math.IsNaN(nan.(float64)))
}

type countingReporter struct {
	warnings int
	errors   int
}

func (r *countingReporter) Warning(*errz.Warning) { r.warnings++ }
func (r *countingReporter) Error(error)           { r.errors++ }

func TestReporter(t *testing.T) {
	prog, err := Compile(`
code:
  - push: [missing]
  - op: GetVariable
  - op: Extends
`)
	require.NoError(t, err)
	host := &countingReporter{}
	movie, err := NewMovie(prog, WithReporter(host))
	require.NoError(t, err)
	_, err = movie.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, movie.Warnings(), 1)
	require.Contains(t, movie.Warnings()[0].Message, "missing")
	require.Len(t, movie.Errors(), 1)
	require.Equal(t, 1, host.warnings)
	require.Equal(t, 1, host.errors)
}

func TestHangTimeout(t *testing.T) {
	_, err := Eval(context.Background(), `
code:
  - label: top
  - op: Jump
    target: top
`, WithVMOptions(vm.WithHangTimeout(20*time.Millisecond), vm.WithHangCheckInterval(10)))
	require.Error(t, err)
	require.True(t, errz.IsFatal(err))
}

func TestRequests(t *testing.T) {
	prog, err := Compile(`
code:
  - op: GetURL
    url: http://example.com
    window: _self
`)
	require.NoError(t, err)
	movie, err := NewMovie(prog)
	require.NoError(t, err)
	_, err = movie.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, movie.Requests(), 1)
	require.Equal(t, "http://example.com", movie.Requests()[0].URL)
	require.Empty(t, movie.Traces())
}
