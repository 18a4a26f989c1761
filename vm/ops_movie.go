package vm

import (
	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
)

// handler executes one action. It reports whether control transfers to
// the item's branch target.
type handler func(ex *execution, item *bytecode.Item) (bool, error)

var handlers [256]handler

func register(code op.Code, h handler) {
	handlers[code] = h
}

func init() {
	register(op.End, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.ended = true
		return false, nil
	})
	register(op.NextFrame, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return false, ex.vm.actions.NextFrame()
	})
	register(op.PreviousFrame, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return false, ex.vm.actions.PrevFrame()
	})
	register(op.Play, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return false, ex.vm.actions.Play()
	})
	register(op.Stop, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return false, ex.vm.actions.Stop()
	})
	register(op.ToggleQuality, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return false, ex.vm.actions.ToggleHighQuality()
	})
	register(op.StopSounds, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return false, ex.vm.actions.StopAllSounds()
	})
	register(op.GotoFrame, opGotoFrame)
	register(op.GetURL, opGetURL)
	register(op.WaitForFrame, opWaitForFrame)
	register(op.SetTarget, opSetTarget)
	register(op.GoToLabel, opGoToLabel)
	register(op.SetTarget2, opSetTarget2)
	register(op.GetProperty, opGetProperty)
	register(op.SetProperty, opSetProperty)
	register(op.CloneSprite, opCloneSprite)
	register(op.RemoveSprite, opRemoveSprite)
	register(op.StartDrag, opStartDrag)
	register(op.EndDrag, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return false, ex.vm.actions.StopDrag()
	})
	register(op.WaitForFrame2, opWaitForFrame2)
	register(op.Trace, opTrace)
	register(op.GetTime, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.push(ex.vm.actions.GetTimer())
		return false, nil
	})
	register(op.RandomNumber, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.push(ex.vm.actions.Random(ex.pop()))
		return false, nil
	})
	register(op.GetURL2, opGetURL2)
	register(op.GotoFrame2, opGotoFrame2)
	register(op.Call, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return false, ex.vm.actions.Call(ex.pop())
	})
	register(op.FSCommand2, opFSCommand2)

	registerStackOps()
	registerObjectOps()
	registerClassOps()
}

func opGotoFrame(ex *execution, item *bytecode.Item) (bool, error) {
	return false, ex.vm.actions.Goto(object.Number(item.Int+1), 0, item.Bool)
}

func opGoToLabel(ex *execution, item *bytecode.Item) (bool, error) {
	return false, ex.vm.actions.Goto(object.String(item.Str), 0, item.Bool)
}

func opGotoFrame2(ex *execution, item *bytecode.Item) (bool, error) {
	frame := ex.pop()
	bias := 0
	if item.Int&2 != 0 {
		bias = item.Int2
	}
	return false, ex.vm.actions.Goto(frame, bias, item.Int&1 != 0)
}

func opGetURL(ex *execution, item *bytecode.Item) (bool, error) {
	return false, ex.vm.actions.GetURL(object.String(item.Str), object.String(item.Str2), "")
}

// opGetURL2 decodes the method and load flags of the action.
func opGetURL2(ex *execution, item *bytecode.Item) (bool, error) {
	flags := item.Int
	target := ex.pop()
	url := ex.pop()
	method := ""
	switch {
	case flags&1 != 0:
		method = "GET"
	case flags&2 != 0:
		method = "POST"
	}
	loadTarget := flags&0x40 != 0
	loadVariables := flags&0x80 != 0
	actions := ex.vm.actions
	switch {
	case loadVariables:
		return false, actions.LoadVariables(url, target, method)
	case !loadTarget:
		return false, actions.GetURL(url, target, method)
	default:
		return false, actions.LoadMovie(url, target, method)
	}
}

func opWaitForFrame(ex *execution, item *bytecode.Item) (bool, error) {
	loaded, err := ex.vm.actions.IfFrameLoaded(object.Number(item.Int + 1))
	return !loaded, err
}

func opWaitForFrame2(ex *execution, _ *bytecode.Item) (bool, error) {
	loaded, err := ex.vm.actions.IfFrameLoaded(ex.pop())
	return !loaded, err
}

func opSetTarget(ex *execution, item *bytecode.Item) (bool, error) {
	ex.vm.setTarget(item.Str)
	return false, nil
}

func opSetTarget2(ex *execution, _ *bytecode.Item) (bool, error) {
	v := ex.pop()
	if t, ok := v.(object.Target); ok {
		ex.vm.currentTarget = t
		return false, nil
	}
	if object.IsNullOrUndefined(v) {
		ex.vm.currentTarget = nil
		return false, nil
	}
	path, err := ex.toString(v)
	if err != nil {
		return false, err
	}
	ex.vm.setTarget(path)
	return false, nil
}

func opGetProperty(ex *execution, _ *bytecode.Item) (bool, error) {
	index := ex.pop()
	target := ex.pop()
	value, err := ex.vm.actions.GetProperty(target, index)
	if err != nil {
		return false, err
	}
	ex.push(value)
	return false, nil
}

func opSetProperty(ex *execution, _ *bytecode.Item) (bool, error) {
	value := ex.pop()
	index := ex.pop()
	target := ex.pop()
	return false, ex.vm.actions.SetProperty(target, index, value)
}

func opCloneSprite(ex *execution, _ *bytecode.Item) (bool, error) {
	depth := ex.pop()
	target := ex.pop()
	source := ex.pop()
	return false, ex.vm.actions.DuplicateMovieClip(source, target, depth)
}

func opRemoveSprite(ex *execution, _ *bytecode.Item) (bool, error) {
	return false, ex.vm.actions.RemoveMovieClip(ex.pop())
}

// opStartDrag pops the target, the lock flag and the constrain flag,
// followed by the constraint rectangle when the flag is set.
func opStartDrag(ex *execution, _ *bytecode.Item) (bool, error) {
	target := ex.pop()
	lockCenter := ex.pop()
	var constrain []object.Value
	if ex.toBoolean(ex.pop()) {
		y2 := ex.pop()
		x2 := ex.pop()
		y1 := ex.pop()
		x1 := ex.pop()
		constrain = []object.Value{x1, y1, x2, y2}
	}
	return false, ex.vm.actions.StartDrag(target, lockCenter, constrain)
}

func opTrace(ex *execution, _ *bytecode.Item) (bool, error) {
	v := ex.pop()
	msg := "undefined"
	if _, ok := v.(object.UndefinedType); !ok {
		s, err := ex.toString(v)
		if err != nil {
			return false, err
		}
		msg = s
	}
	return false, ex.vm.actions.Trace(msg)
}

func opFSCommand2(ex *execution, _ *bytecode.Item) (bool, error) {
	args, err := ex.popArgs()
	if err != nil {
		return false, err
	}
	result, err := ex.vm.actions.FSCommand(args)
	if err != nil {
		return false, err
	}
	ex.push(result)
	return false, nil
}
