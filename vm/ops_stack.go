package vm

import (
	"math"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"github.com/deepnoodle-ai/actionvm/object"
	"github.com/deepnoodle-ai/actionvm/op"
)

func registerStackOps() {
	register(op.Push, opPush)
	register(op.Pop, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.pop()
		return false, nil
	})
	register(op.Jump, func(*execution, *bytecode.Item) (bool, error) {
		return false, nil
	})
	register(op.If, func(ex *execution, _ *bytecode.Item) (bool, error) {
		return ex.toBoolean(ex.pop()), nil
	})
	register(op.PushDuplicate, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.push(ex.peek())
		return false, nil
	})
	register(op.StackSwap, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a := ex.pop()
		b := ex.pop()
		ex.push(a)
		ex.push(b)
		return false, nil
	})
	register(op.StoreRegister, opStoreRegister)
	register(op.ConstantPool, func(ex *execution, item *bytecode.Item) (bool, error) {
		ex.constantPool = bytecode.ConstantValues(item.Strings)
		return false, nil
	})
	register(op.StrictMode, func(*execution, *bytecode.Item) (bool, error) {
		return false, nil
	})
	register(op.Return, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.ended = true
		ex.returned = true
		return false, nil
	})

	register(op.Add, numericOp(func(a, b float64) float64 { return b + a }))
	register(op.Subtract, numericOp(func(a, b float64) float64 { return b - a }))
	register(op.Multiply, numericOp(func(a, b float64) float64 { return b * a }))
	register(op.Modulo, numericOp(func(a, b float64) float64 { return math.Mod(b, a) }))
	register(op.Divide, opDivide)
	register(op.Equals, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a, b, err := ex.popNumbers()
		if err != nil {
			return false, err
		}
		ex.pushBool(a == b)
		return false, nil
	})
	register(op.Less, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a, b, err := ex.popNumbers()
		if err != nil {
			return false, err
		}
		ex.pushBool(b < a)
		return false, nil
	})
	register(op.And, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a := ex.toBoolean(ex.pop())
		b := ex.toBoolean(ex.pop())
		ex.pushBool(a && b)
		return false, nil
	})
	register(op.Or, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a := ex.toBoolean(ex.pop())
		b := ex.toBoolean(ex.pop())
		ex.pushBool(a || b)
		return false, nil
	})
	register(op.Not, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.pushBool(!ex.toBoolean(ex.pop()))
		return false, nil
	})
	register(op.Increment, unaryNumericOp(func(n float64) float64 { return n + 1 }))
	register(op.Decrement, unaryNumericOp(func(n float64) float64 { return n - 1 }))

	register(op.StringEquals, stringCompareOp(func(a, b string) bool { return b == a }))
	register(op.StringLess, stringCompareOp(func(a, b string) bool { return b < a }))
	register(op.StringGreater, stringCompareOp(func(a, b string) bool { return b > a }))
	register(op.StringAdd, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a, err := ex.popString()
		if err != nil {
			return false, err
		}
		b, err := ex.popString()
		if err != nil {
			return false, err
		}
		ex.push(object.String(b + a))
		return false, nil
	})
	register(op.StringLength, opStringLength)
	register(op.MBStringLength, opStringLength)
	register(op.StringExtract, opStringExtract(false))
	register(op.MBStringExtract, opStringExtract(true))
	register(op.ToInteger, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.push(ex.vm.actions.Int(ex.pop()))
		return false, nil
	})
	register(op.CharToAscii, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.push(ex.vm.actions.Ord(ex.pop()))
		return false, nil
	})
	register(op.MBCharToAscii, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.push(ex.vm.actions.MBOrd(ex.pop()))
		return false, nil
	})
	register(op.AsciiToChar, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.push(ex.vm.actions.Chr(ex.pop()))
		return false, nil
	})
	register(op.MBAsciiToChar, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.push(ex.vm.actions.MBChr(ex.pop()))
		return false, nil
	})

	register(op.Add2, opAdd2)
	register(op.Less2, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a := ex.pop()
		b := ex.pop()
		return false, ex.pushCompare(b, a)
	})
	register(op.Greater, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a := ex.pop()
		b := ex.pop()
		return false, ex.pushCompare(a, b)
	})
	register(op.Equals2, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a := ex.pop()
		b := ex.pop()
		eq, err := object.Equals2(b, a, ex.version())
		if err != nil {
			return false, err
		}
		ex.push(object.Bool(eq))
		return false, nil
	})
	register(op.StrictEquals, func(ex *execution, _ *bytecode.Item) (bool, error) {
		a := ex.pop()
		b := ex.pop()
		ex.push(object.Bool(object.StrictEquals(b, a)))
		return false, nil
	})
	register(op.ToNumber, func(ex *execution, _ *bytecode.Item) (bool, error) {
		n, err := ex.popNumber()
		if err != nil {
			return false, err
		}
		ex.push(object.Number(n))
		return false, nil
	})
	register(op.ToString, func(ex *execution, _ *bytecode.Item) (bool, error) {
		s, err := ex.popString()
		if err != nil {
			return false, err
		}
		ex.push(object.String(s))
		return false, nil
	})
	register(op.TypeOf, func(ex *execution, _ *bytecode.Item) (bool, error) {
		ex.push(object.String(object.TypeOf(ex.pop())))
		return false, nil
	})

	register(op.BitAnd, bitOp(func(a, b int32) float64 { return float64(b & a) }))
	register(op.BitOr, bitOp(func(a, b int32) float64 { return float64(b | a) }))
	register(op.BitXor, bitOp(func(a, b int32) float64 { return float64(b ^ a) }))
	register(op.BitLShift, bitOp(func(a, b int32) float64 { return float64(b << (uint32(a) & 31)) }))
	register(op.BitRShift, bitOp(func(a, b int32) float64 { return float64(b >> (uint32(a) & 31)) }))
	register(op.BitURShift, bitOp(func(a, b int32) float64 { return float64(uint32(b) >> (uint32(a) & 31)) }))
}

// opPush pushes literals, constant pool entries and registers. Missing
// constants and registers push undefined.
func opPush(ex *execution, item *bytecode.Item) (bool, error) {
	for _, p := range item.Push {
		switch p.Kind {
		case bytecode.PushConstant:
			if p.Index >= 0 && p.Index < len(ex.constantPool) {
				ex.push(ex.constantPool[p.Index])
			} else {
				ex.push(object.Undefined)
			}
		case bytecode.PushRegister:
			if p.Index >= 0 && p.Index < len(ex.registers) {
				ex.push(ex.registers[p.Index])
			} else {
				ex.push(object.Undefined)
			}
		default:
			ex.push(p.Value)
		}
	}
	return false, nil
}

// opStoreRegister copies the top of the stack into a register. Stores
// outside the register file are ignored.
func opStoreRegister(ex *execution, item *bytecode.Item) (bool, error) {
	if item.Int >= 0 && item.Int < len(ex.registers) {
		ex.registers[item.Int] = ex.peek()
	}
	return false, nil
}

// popNumbers pops a then b and converts both.
func (ex *execution) popNumbers() (float64, float64, error) {
	a, err := ex.popNumber()
	if err != nil {
		return 0, 0, err
	}
	b, err := ex.popNumber()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func numericOp(fn func(a, b float64) float64) handler {
	return func(ex *execution, _ *bytecode.Item) (bool, error) {
		a, b, err := ex.popNumbers()
		if err != nil {
			return false, err
		}
		ex.push(object.Number(fn(a, b)))
		return false, nil
	}
}

func unaryNumericOp(fn func(float64) float64) handler {
	return func(ex *execution, _ *bytecode.Item) (bool, error) {
		n, err := ex.popNumber()
		if err != nil {
			return false, err
		}
		ex.push(object.Number(fn(n)))
		return false, nil
	}
}

// opDivide yields the "#ERROR#" string for non-finite quotients before
// content version 5.
func opDivide(ex *execution, _ *bytecode.Item) (bool, error) {
	a, b, err := ex.popNumbers()
	if err != nil {
		return false, err
	}
	c := b / a
	if ex.version() < 5 && (math.IsInf(c, 0) || math.IsNaN(c)) {
		ex.push(object.String("#ERROR#"))
		return false, nil
	}
	ex.push(object.Number(c))
	return false, nil
}

func stringCompareOp(fn func(a, b string) bool) handler {
	return func(ex *execution, _ *bytecode.Item) (bool, error) {
		a, err := ex.popString()
		if err != nil {
			return false, err
		}
		b, err := ex.popString()
		if err != nil {
			return false, err
		}
		ex.pushBool(fn(a, b))
		return false, nil
	}
}

func opStringLength(ex *execution, _ *bytecode.Item) (bool, error) {
	s, err := ex.popString()
	if err != nil {
		return false, err
	}
	ex.push(ex.vm.actions.Length(s))
	return false, nil
}

func opStringExtract(multibyte bool) handler {
	return func(ex *execution, _ *bytecode.Item) (bool, error) {
		count := ex.pop()
		index := ex.pop()
		s, err := ex.popString()
		if err != nil {
			return false, err
		}
		if multibyte {
			ex.push(ex.vm.actions.MBSubstring(s, index, count))
		} else {
			ex.push(ex.vm.actions.Substring(s, index, count))
		}
		return false, nil
	}
}

// opAdd2 concatenates when either primitive operand is a string and adds
// numerically otherwise.
func opAdd2(ex *execution, _ *bytecode.Item) (bool, error) {
	version := ex.version()
	a, err := object.ToPrimitive(ex.pop(), object.HintNone, version)
	if err != nil {
		return false, err
	}
	b, err := object.ToPrimitive(ex.pop(), object.HintNone, version)
	if err != nil {
		return false, err
	}
	_, aStr := a.(object.String)
	_, bStr := b.(object.String)
	if aStr || bStr {
		sa, err := ex.toString(a)
		if err != nil {
			return false, err
		}
		sb, err := ex.toString(b)
		if err != nil {
			return false, err
		}
		ex.push(object.String(sb + sa))
		return false, nil
	}
	na, err := ex.toNumber(a)
	if err != nil {
		return false, err
	}
	nb, err := ex.toNumber(b)
	if err != nil {
		return false, err
	}
	ex.push(object.Number(nb + na))
	return false, nil
}

// pushCompare pushes x < y, or undefined when the comparison involves NaN.
func (ex *execution) pushCompare(x, y object.Value) error {
	result, err := object.Compare(x, y, ex.version())
	if err != nil {
		return err
	}
	ex.push(result)
	return nil
}

func bitOp(fn func(a, b int32) float64) handler {
	return func(ex *execution, _ *bytecode.Item) (bool, error) {
		a, b, err := ex.popNumbers()
		if err != nil {
			return false, err
		}
		ex.push(object.Number(fn(object.Int32(a), object.Int32(b))))
		return false, nil
	}
}
