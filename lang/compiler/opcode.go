// Package compiler implements the single-pass bytecode compiler: it turns a
// token stream (see lang/lexer) directly into a tree of FunctionPrototype
// values without ever materializing a separate AST, performing scope
// analysis (locals, upvalues, globals) as it emits code. It also defines the
// bit-exact bytecode format used to persist a compiled FunctionPrototype
// (bytecode.go) and a human-readable assembler form used by tests (asm.go),
// adapted from the teacher's own (textual-only) compiler.Asm machinery.
package compiler

import "fmt"

// Opcode identifies a single VM instruction. One byte each; multi-byte
// operands are big-endian within the code stream.
type Opcode uint8

//nolint:revive
const (
	// stack
	Pop Opcode = iota
	Dup
	Dup2
	Swap
	SwapUnder
	Rot3Under

	// constants/literals
	Const // u16
	Null
	True
	False

	// variables
	GetLocal // u8
	SetLocal // u8
	GetGlobal // u16
	SetGlobal // u16
	DefineGlobal // u16
	DefineRootGlobal // u16
	GetUpvalue // u8
	SetUpvalue // u8
	CloseUpvalue

	// arithmetic / logic / bitwise / comparison
	Add
	Sub
	Mul
	Div
	Mod
	Neg
	BitAnd
	BitOr
	BitXor
	BitNot
	Shl
	Shr
	Not
	And
	Or
	Eq
	Ne
	Lt
	Le
	Gt
	Ge

	// control flow
	Jump         // i16
	JumpIfFalse  // i16
	JumpIfTrue   // i16
	JumpIfNotNull // i16
	Loop         // u16, backward

	// calls
	Call // u8
	Return
	Closure // u16 proto index + descriptor list

	// objects/arrays
	NewArray // u16
	NewObject
	GetField // u16
	SetField // u16
	GetIndex
	SetIndex

	// classes
	Class       // u16
	Inherit
	Method      // u16
	StaticMethod // u16
	StaticField // u16
	GetProperty // u16
	SetProperty // u16
	GetSuper    // u16
	Invoke      // u16, u8
	SuperInvoke // u16, u8

	// misc
	Import // u16, u16
	This
	BuildString // u16

	// iterators
	GetIter
	ForIter        // u16
	ForIterKV      // u16
	ForIterLocal   // u8, u16
	ForIterKVLocal // u8, u16
	CloseIter      // u8

	// exceptions
	SetupTry // u16, u16, u8
	Throw
	EndTry
	EndFinally

	opcodeCount
)

var opcodeNames = [...]string{
	Pop: "pop", Dup: "dup", Dup2: "dup2", Swap: "swap", SwapUnder: "swap_under",
	Rot3Under: "rot3_under", Const: "const", Null: "null", True: "true", False: "false",
	GetLocal: "get_local", SetLocal: "set_local", GetGlobal: "get_global",
	SetGlobal: "set_global", DefineGlobal: "define_global",
	DefineRootGlobal: "define_root_global", GetUpvalue: "get_upvalue",
	SetUpvalue: "set_upvalue", CloseUpvalue: "close_upvalue",
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Mod: "mod", Neg: "neg",
	BitAnd: "bit_and", BitOr: "bit_or", BitXor: "bit_xor", BitNot: "bit_not",
	Shl: "shl", Shr: "shr", Not: "not", And: "and", Or: "or", Eq: "eq", Ne: "ne",
	Lt: "lt", Le: "le", Gt: "gt", Ge: "ge",
	Jump: "jump", JumpIfFalse: "jump_if_false", JumpIfTrue: "jump_if_true",
	JumpIfNotNull: "jump_if_not_null", Loop: "loop",
	Call: "call", Return: "return", Closure: "closure",
	NewArray: "new_array", NewObject: "new_object", GetField: "get_field",
	SetField: "set_field", GetIndex: "get_index", SetIndex: "set_index",
	Class: "class", Inherit: "inherit", Method: "method",
	StaticMethod: "static_method", StaticField: "static_field",
	GetProperty: "get_property", SetProperty: "set_property", GetSuper: "get_super",
	Invoke: "invoke", SuperInvoke: "super_invoke",
	Import: "import", This: "this", BuildString: "build_string",
	GetIter: "get_iter", ForIter: "for_iter", ForIterKV: "for_iter_kv",
	ForIterLocal: "for_iter_local", ForIterKVLocal: "for_iter_kv_local",
	CloseIter: "close_iter",
	SetupTry: "setup_try", Throw: "throw", EndTry: "end_try", EndFinally: "end_finally",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

// operandShape describes how an instruction's operand(s) are encoded.
type operandShape uint8

const (
	shapeNone operandShape = iota
	shapeU8
	shapeU16
	shapeI16      // signed, relative jump offset
	shapeU16U16   // two u16 (Import)
	shapeU16U8    // u16 + u8 (Invoke, SuperInvoke)
	shapeU8U16    // u8 + u16 (ForIterLocal, ForIterKVLocal)
	shapeU16U16U8 // u16 + u16 + u8 (SetupTry)
	shapeClosure  // u16 proto index + upvalue descriptor list (variable length)
)

var opcodeShape = [opcodeCount]operandShape{
	Const: shapeU16,
	GetLocal: shapeU8, SetLocal: shapeU8,
	GetGlobal: shapeU16, SetGlobal: shapeU16,
	DefineGlobal: shapeU16, DefineRootGlobal: shapeU16,
	GetUpvalue: shapeU8, SetUpvalue: shapeU8,
	Jump: shapeI16, JumpIfFalse: shapeI16, JumpIfTrue: shapeI16, JumpIfNotNull: shapeI16,
	Loop: shapeU16,
	Call: shapeU8,
	Closure: shapeClosure,
	NewArray: shapeU16,
	GetField: shapeU16, SetField: shapeU16,
	Class: shapeU16, Method: shapeU16, StaticMethod: shapeU16, StaticField: shapeU16,
	GetProperty: shapeU16, SetProperty: shapeU16, GetSuper: shapeU16,
	Invoke: shapeU16U8, SuperInvoke: shapeU16U8,
	Import: shapeU16U16,
	BuildString: shapeU16,
	ForIter: shapeU16, ForIterKV: shapeU16,
	ForIterLocal: shapeU8U16, ForIterKVLocal: shapeU8U16,
	CloseIter: shapeU8,
	SetupTry: shapeU16U16U8,
}

func (op Opcode) shape() operandShape {
	if int(op) >= len(opcodeShape) {
		return shapeNone
	}
	return opcodeShape[op]
}
