// Package op defines the action codes executed by the actionvm engine.
package op

import "strings"

// Code is an action code as it appears in the content's action records.
type Code uint8

const (
	// End marks the end of an action list.
	End Code = 0x00

	// Tier 1: timeline navigation
	NextFrame     Code = 0x04
	PreviousFrame Code = 0x05
	Play          Code = 0x06
	Stop          Code = 0x07
	ToggleQuality Code = 0x08
	StopSounds    Code = 0x09
	GotoFrame     Code = 0x81
	GetURL        Code = 0x83
	WaitForFrame  Code = 0x8A
	SetTarget     Code = 0x8B
	GoToLabel     Code = 0x8C

	// Tier 2: stack machine
	Add             Code = 0x0A
	Subtract        Code = 0x0B
	Multiply        Code = 0x0C
	Divide          Code = 0x0D
	Equals          Code = 0x0E
	Less            Code = 0x0F
	And             Code = 0x10
	Or              Code = 0x11
	Not             Code = 0x12
	StringEquals    Code = 0x13
	StringLength    Code = 0x14
	StringExtract   Code = 0x15
	Pop             Code = 0x17
	ToInteger       Code = 0x18
	GetVariable     Code = 0x1C
	SetVariable     Code = 0x1D
	SetTarget2      Code = 0x20
	StringAdd       Code = 0x21
	GetProperty     Code = 0x22
	SetProperty     Code = 0x23
	CloneSprite     Code = 0x24
	RemoveSprite    Code = 0x25
	Trace           Code = 0x26
	StartDrag       Code = 0x27
	EndDrag         Code = 0x28
	StringLess      Code = 0x29
	RandomNumber    Code = 0x30
	MBStringLength  Code = 0x31
	CharToAscii     Code = 0x32
	AsciiToChar     Code = 0x33
	GetTime         Code = 0x34
	MBStringExtract Code = 0x35
	MBCharToAscii   Code = 0x36
	MBAsciiToChar   Code = 0x37
	WaitForFrame2   Code = 0x8D
	Push            Code = 0x96
	Jump            Code = 0x99
	GetURL2         Code = 0x9A
	If              Code = 0x9D
	Call            Code = 0x9E
	GotoFrame2      Code = 0x9F

	// Tier 3: functions and objects
	Delete         Code = 0x3A
	Delete2        Code = 0x3B
	DefineLocal    Code = 0x3C
	CallFunction   Code = 0x3D
	Return         Code = 0x3E
	Modulo         Code = 0x3F
	NewObject      Code = 0x40
	DefineLocal2   Code = 0x41
	InitArray      Code = 0x42
	InitObject     Code = 0x43
	TypeOf         Code = 0x44
	TargetPath     Code = 0x45
	Enumerate      Code = 0x46
	Add2           Code = 0x47
	Less2          Code = 0x48
	Equals2        Code = 0x49
	ToNumber       Code = 0x4A
	ToString       Code = 0x4B
	PushDuplicate  Code = 0x4C
	StackSwap      Code = 0x4D
	GetMember      Code = 0x4E
	SetMember      Code = 0x4F
	Increment      Code = 0x50
	Decrement      Code = 0x51
	CallMethod     Code = 0x52
	NewMethod      Code = 0x53
	InstanceOf     Code = 0x54
	Enumerate2     Code = 0x55
	BitAnd         Code = 0x60
	BitOr          Code = 0x61
	BitXor         Code = 0x62
	BitLShift      Code = 0x63
	BitRShift      Code = 0x64
	BitURShift     Code = 0x65
	StrictEquals   Code = 0x66
	Greater        Code = 0x67
	StringGreater  Code = 0x68
	StoreRegister  Code = 0x87
	ConstantPool   Code = 0x88
	With           Code = 0x94
	DefineFunction Code = 0x9B

	// Tier 4: class model
	Throw           Code = 0x2A
	CastOp          Code = 0x2B
	ImplementsOp    Code = 0x2C
	FSCommand2      Code = 0x2D
	Extends         Code = 0x69
	StrictMode      Code = 0x89
	DefineFunction2 Code = 0x8E
	Try             Code = 0x8F
)

// Info contains information about an action code.
type Info struct {
	Code Code
	Name string
	// Tier is the instruction-set generation the action belongs to (1-4).
	Tier int
	// Branches is true for actions that may transfer control to a
	// target other than the next action.
	Branches bool
}

// Valid reports whether the info describes a known action.
func (i Info) Valid() bool {
	return i.Name != ""
}

var (
	infos  [256]Info
	byName = map[string]Code{}
)

func init() {
	type opInfo struct {
		op       Code
		name     string
		tier     int
		branches bool
	}
	ops := []opInfo{
		{End, "End", 1, false},
		{NextFrame, "NextFrame", 1, false},
		{PreviousFrame, "PreviousFrame", 1, false},
		{Play, "Play", 1, false},
		{Stop, "Stop", 1, false},
		{ToggleQuality, "ToggleQuality", 1, false},
		{StopSounds, "StopSounds", 1, false},
		{GotoFrame, "GotoFrame", 1, false},
		{GetURL, "GetURL", 1, false},
		{WaitForFrame, "WaitForFrame", 1, true},
		{SetTarget, "SetTarget", 1, false},
		{GoToLabel, "GoToLabel", 1, false},

		{Add, "Add", 2, false},
		{Subtract, "Subtract", 2, false},
		{Multiply, "Multiply", 2, false},
		{Divide, "Divide", 2, false},
		{Equals, "Equals", 2, false},
		{Less, "Less", 2, false},
		{And, "And", 2, false},
		{Or, "Or", 2, false},
		{Not, "Not", 2, false},
		{StringEquals, "StringEquals", 2, false},
		{StringLength, "StringLength", 2, false},
		{StringExtract, "StringExtract", 2, false},
		{Pop, "Pop", 2, false},
		{ToInteger, "ToInteger", 2, false},
		{GetVariable, "GetVariable", 2, false},
		{SetVariable, "SetVariable", 2, false},
		{SetTarget2, "SetTarget2", 2, false},
		{StringAdd, "StringAdd", 2, false},
		{GetProperty, "GetProperty", 2, false},
		{SetProperty, "SetProperty", 2, false},
		{CloneSprite, "CloneSprite", 2, false},
		{RemoveSprite, "RemoveSprite", 2, false},
		{Trace, "Trace", 2, false},
		{StartDrag, "StartDrag", 2, false},
		{EndDrag, "EndDrag", 2, false},
		{StringLess, "StringLess", 2, false},
		{RandomNumber, "RandomNumber", 2, false},
		{MBStringLength, "MBStringLength", 2, false},
		{CharToAscii, "CharToAscii", 2, false},
		{AsciiToChar, "AsciiToChar", 2, false},
		{GetTime, "GetTime", 2, false},
		{MBStringExtract, "MBStringExtract", 2, false},
		{MBCharToAscii, "MBCharToAscii", 2, false},
		{MBAsciiToChar, "MBAsciiToChar", 2, false},
		{WaitForFrame2, "WaitForFrame2", 2, true},
		{Push, "Push", 2, false},
		{Jump, "Jump", 2, true},
		{GetURL2, "GetURL2", 2, false},
		{If, "If", 2, true},
		{Call, "Call", 2, false},
		{GotoFrame2, "GotoFrame2", 2, false},

		{Delete, "Delete", 3, false},
		{Delete2, "Delete2", 3, false},
		{DefineLocal, "DefineLocal", 3, false},
		{CallFunction, "CallFunction", 3, false},
		{Return, "Return", 3, false},
		{Modulo, "Modulo", 3, false},
		{NewObject, "NewObject", 3, false},
		{DefineLocal2, "DefineLocal2", 3, false},
		{InitArray, "InitArray", 3, false},
		{InitObject, "InitObject", 3, false},
		{TypeOf, "TypeOf", 3, false},
		{TargetPath, "TargetPath", 3, false},
		{Enumerate, "Enumerate", 3, false},
		{Add2, "Add2", 3, false},
		{Less2, "Less2", 3, false},
		{Equals2, "Equals2", 3, false},
		{ToNumber, "ToNumber", 3, false},
		{ToString, "ToString", 3, false},
		{PushDuplicate, "PushDuplicate", 3, false},
		{StackSwap, "StackSwap", 3, false},
		{GetMember, "GetMember", 3, false},
		{SetMember, "SetMember", 3, false},
		{Increment, "Increment", 3, false},
		{Decrement, "Decrement", 3, false},
		{CallMethod, "CallMethod", 3, false},
		{NewMethod, "NewMethod", 3, false},
		{InstanceOf, "InstanceOf", 3, false},
		{Enumerate2, "Enumerate2", 3, false},
		{BitAnd, "BitAnd", 3, false},
		{BitOr, "BitOr", 3, false},
		{BitXor, "BitXor", 3, false},
		{BitLShift, "BitLShift", 3, false},
		{BitRShift, "BitRShift", 3, false},
		{BitURShift, "BitURShift", 3, false},
		{StrictEquals, "StrictEquals", 3, false},
		{Greater, "Greater", 3, false},
		{StringGreater, "StringGreater", 3, false},
		{StoreRegister, "StoreRegister", 3, false},
		{ConstantPool, "ConstantPool", 3, false},
		{With, "With", 3, false},
		{DefineFunction, "DefineFunction", 3, false},

		{Throw, "Throw", 4, false},
		{CastOp, "CastOp", 4, false},
		{ImplementsOp, "ImplementsOp", 4, false},
		{FSCommand2, "FSCommand2", 4, false},
		{Extends, "Extends", 4, false},
		{StrictMode, "StrictMode", 4, false},
		{DefineFunction2, "DefineFunction2", 4, false},
		{Try, "Try", 4, false},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:     o.op,
			Name:     o.name,
			Tier:     o.tier,
			Branches: o.branches,
		}
		byName[strings.ToLower(o.name)] = o.op
	}
}

// GetInfo returns information about the given action code. The returned
// Info is not Valid for unknown codes.
func GetInfo(code Code) Info {
	return infos[code]
}

// Lookup returns the action code with the given name. Names are matched
// case-insensitively and an optional "Action" prefix is ignored.
func Lookup(name string) (Code, bool) {
	key := strings.ToLower(name)
	key = strings.TrimPrefix(key, "action")
	code, ok := byName[key]
	return code, ok
}

// String returns the action name, or a hex form for unknown codes.
func (c Code) String() string {
	if info := infos[c]; info.Valid() {
		return info.Name
	}
	const digits = "0123456789ABCDEF"
	return "Unknown(0x" + string([]byte{digits[c>>4], digits[c&0xF]}) + ")"
}
