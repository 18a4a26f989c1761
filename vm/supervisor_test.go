package vm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deepnoodle-ai/actionvm/errz"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

func requireFatal(t *testing.T, err error, reason errz.FatalReason) {
	t.Helper()
	var fatal *errz.FatalError
	require.True(t, errors.As(err, &fatal), "expected a fatal error, got %v", err)
	require.Equal(t, reason, fatal.Reason)
}

// fakeClock advances by one millisecond on every reading.
func fakeClock() func() time.Time {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
}

func TestRecursionLimit(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile), WithMaxRecursion(16))
		_, err := h.run(seq(
			setVar("ticks", 0),
			function2("recurse", nil, seq(
				push("/:ticks"), getVar("/:ticks"), act(op.Increment), act(op.SetVariable),
				call("recurse"),
			)...),
			call("recurse"),
		)...)
		requireFatal(t, err, errz.RecursionLimit)
		require.Equal(t, object.Number(15), h.root.Get("ticks"))

		require.True(t, h.vm.Prohibited())
		require.Equal(t, 0, h.vm.stackDepth)
		require.Equal(t, 0, h.vm.frameDepth)
		require.Nil(t, h.vm.frame)
		require.False(t, h.vm.active)
		require.Len(t, h.reporter.errors, 1)

		// Nothing runs once the engine is disabled.
		v, err := h.run(push("after"), act(op.Trace))
		require.NoError(t, err)
		require.Equal(t, object.Undefined, v)
		require.Empty(t, h.actions.traces)
	})
}

func TestHangTimeout(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(
			WithCompile(compile),
			WithClock(fakeClock()),
			WithHangTimeout(50*time.Millisecond),
			WithHangCheckInterval(10),
		)
		_, err := h.run(jump(op.Jump, 0))
		requireFatal(t, err, errz.HangTimeout)
		require.True(t, h.vm.Prohibited())

		_, err = h.run(push("after"), act(op.Trace))
		require.NoError(t, err)
		require.Empty(t, h.actions.traces)
	})
}

func TestHangGuardDisabled(t *testing.T) {
	h := newHarness(WithClock(fakeClock()), WithHangTimeout(time.Millisecond), WithoutHangGuard())
	v := h.exec(t, push(1), push(2), act(op.Add2))
	require.Equal(t, object.Number(3), v)
}

func TestContextCancellation(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile), WithoutHangGuard())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := h.vm.Execute(ctx, program(jump(op.Jump, 0)), h.root)
		require.ErrorIs(t, err, context.Canceled)
		require.False(t, h.vm.Prohibited())

		v := h.exec(t, push(1))
		require.Equal(t, object.Number(1), v)
	})
}

func TestErrorsLimit(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile), WithMaxErrors(2))
		_, err := h.run(
			act(op.Extends), act(op.Pop),
			act(op.Extends), act(op.Pop),
			act(op.Extends), act(op.Pop),
		)
		requireFatal(t, err, errz.ErrorsLimit)
		require.True(t, h.vm.Prohibited())
	})
}

func TestConsecutiveErrorsCountOnce(t *testing.T) {
	h := newHarness(WithMaxErrors(2))
	v := h.exec(t,
		act(op.Extends), act(op.Extends), act(op.Extends), act(op.Extends),
		push("ok"),
	)
	require.Equal(t, object.String("ok"), v)
	require.Len(t, h.reporter.errors, 4)
	require.False(t, h.vm.Prohibited())

	var rt *errz.RuntimeError
	require.True(t, errors.As(h.reporter.errors[0], &rt))
	require.Equal(t, "Extends", rt.Location.Action)
	require.Equal(t, 0, rt.Location.Position)
}

func TestErrorBudgetResetsPerEntry(t *testing.T) {
	h := newHarness(WithMaxErrors(1))
	for i := 0; i < 3; i++ {
		h.exec(t, act(op.Extends), push(1))
	}
	require.False(t, h.vm.Prohibited())
}

func TestErrorsFatal(t *testing.T) {
	h := newHarness(WithErrorsFatal(true))
	_, err := h.run(act(op.Extends), push("unreached"), act(op.Trace))
	var rt *errz.RuntimeError
	require.True(t, errors.As(err, &rt))
	require.Empty(t, h.actions.traces)
	require.False(t, h.vm.Prohibited())
}

func TestPendingScripts(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.vm.Globals().Put("queue", object.NewNativeFunction("queue", func(this object.Value, args []object.Value) (object.Value, error) {
		return object.Undefined, h.vm.AddPendingScript(ctx, program(push("late"), act(op.Trace)), h.root)
	}))

	require.NoError(t, h.vm.AddPendingScript(ctx, program(push("one"), act(op.Trace)), h.root))
	require.NoError(t, h.vm.AddPendingScript(ctx, program(seq(call("queue"), push("two"), act(op.Trace))...), h.root))
	require.NoError(t, h.vm.AddPendingScript(ctx, program(push("boom"), act(op.Throw)), h.root))
	require.NoError(t, h.vm.AddPendingScript(ctx, program(push("bang"), act(op.Throw)), h.root))
	require.Equal(t, 4, h.vm.PendingScripts())
	require.Empty(t, h.actions.traces)

	err := h.vm.FlushPendingScripts(ctx)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2)
	require.Equal(t, []string{"one", "two", "late"}, h.actions.traces)
	require.Equal(t, 0, h.vm.PendingScripts())

	require.NoError(t, h.vm.AddPendingScript(ctx, program(push("now"), act(op.Trace)), h.root))
	require.Equal(t, []string{"one", "two", "late", "now"}, h.actions.traces)
}

type nestedEntry struct {
	h         *harness
	abortAt   time.Time
	errors    int
	nestedErr error
	active    bool
}

func (n *nestedEntry) OnEventPropertyModified(string) {
	vm := n.h.vm
	n.abortAt = vm.abortAt
	_, n.nestedErr = vm.Execute(context.Background(), program(act(op.Extends), act(op.Pop)), n.h.root)
	n.errors = vm.errorsIgnored
	n.active = vm.active
}

func TestNestedEntrySharesBudget(t *testing.T) {
	bothModes(t, func(t *testing.T, compile bool) {
		h := newHarness(WithCompile(compile), WithClock(fakeClock()), WithHangTimeout(time.Hour))
		entry := &nestedEntry{h: h}
		h.vm.RegisterEventObserver("onLoad", entry)

		h.exec(t, seq(act(op.Extends), act(op.Pop), setVar("onLoad", 1))...)
		require.NoError(t, entry.nestedErr)
		require.False(t, entry.abortAt.IsZero())
		// The nested entry keeps the outer deadline and error count.
		require.Equal(t, entry.abortAt, h.vm.abortAt)
		require.Equal(t, 2, entry.errors)
		require.True(t, entry.active)
		require.False(t, h.vm.active)
		require.Len(t, h.reporter.errors, 2)
	})
}
