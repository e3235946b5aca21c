package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble renders proto and every nested prototype it closes over as
// human-readable assembly text, adapted from the teacher's own Dasm: each
// instruction is printed as its offset, source line, mnemonic and decoded
// operand(s), using the opcode table's operandShape to know how many
// operand bytes to consume instead of the teacher's varint scheme (ember's
// operands are the compiler's own fixed-width u8/u16/i16 encoding, so the
// two formats can't share a reader). Jump/Loop operands are printed both as
// their raw relative distance and as the absolute offset they target, since
// a human reading a dump cares about the destination, not the delta.
//
// Unlike the teacher's Asm, this package does not also provide a text ->
// bytecode assembler: ember's Closure instruction embeds a variable-length
// upvalue descriptor list inline in the code stream, which would force a
// hand-written assembly format to either duplicate the compiler's own
// upvalue-resolution logic or give up on expressing closures at all. Tests
// that need hand-built bytecode instead drive the real lexer+compiler
// pipeline on a small snippet and assert on the Disassemble output (a golden
// test), which exercises the same decoder this function uses without
// needing a parallel encoder to keep in sync (see DESIGN.md).
func Disassemble(proto *FunctionPrototype) string {
	var sb strings.Builder
	disassembleProto(&sb, proto, "")
	return sb.String()
}

func disassembleProto(sb *strings.Builder, proto *FunctionPrototype, indent string) {
	name := proto.Name
	if name == "" {
		name = "<script>"
	}
	fmt.Fprintf(sb, "%s== %s (arity=%d, locals=%d, upvalues=%d) ==\n",
		indent, name, proto.Arity, proto.NumLocals, len(proto.Upvalues))

	var nested []*FunctionPrototype
	offset := 0
	for offset < len(proto.Code) {
		n, sub := disassembleInstruction(sb, proto, offset, indent)
		offset = n
		nested = append(nested, sub...)
	}
	for _, sub := range nested {
		disassembleProto(sb, sub, indent+"  ")
	}
}

// disassembleInstruction prints the instruction at offset and returns the
// offset of the next instruction, plus any nested prototype constants the
// instruction referenced (only Closure does), so the caller can recurse into
// them after finishing the current prototype's own listing.
func disassembleInstruction(sb *strings.Builder, proto *FunctionPrototype, offset int, indent string) (int, []*FunctionPrototype) {
	op := Opcode(proto.Code[offset])
	line := proto.LineForOffset(uint32(offset))
	fmt.Fprintf(sb, "%s%04d %4d  %s", indent, offset, line, op)

	pos := offset + 1
	var nested []*FunctionPrototype
	switch op.shape() {
	case shapeNone:
		// no operand

	case shapeU8:
		v := proto.Code[pos]
		fmt.Fprintf(sb, " %d", v)
		pos++
		if isLocalSlotOp(op) {
			if name, ok := localName(proto, int(v)); ok {
				fmt.Fprintf(sb, " ; %s", name)
			}
		}

	case shapeU16:
		v := readU16At(proto.Code, pos)
		pos += 2
		fmt.Fprintf(sb, " %d", v)
		if op == Loop {
			fmt.Fprintf(sb, " -> %04d", pos-int(v))
		}
		if isConstantIndexOp(op) {
			fmt.Fprintf(sb, " ; %s", describeConstant(proto, v))
		}

	case shapeI16:
		d := int16(readU16At(proto.Code, pos))
		pos += 2
		fmt.Fprintf(sb, " %d -> %04d", d, pos+int(d))

	case shapeU16U16:
		a := readU16At(proto.Code, pos)
		pos += 2
		b := readU16At(proto.Code, pos)
		pos += 2
		fmt.Fprintf(sb, " %d %d", a, b)

	case shapeU16U8:
		a := readU16At(proto.Code, pos)
		pos += 2
		b := proto.Code[pos]
		pos++
		fmt.Fprintf(sb, " %d %d ; %s", a, b, describeConstant(proto, a))

	case shapeU8U16:
		a := proto.Code[pos]
		pos++
		b := readU16At(proto.Code, pos)
		pos += 2
		fmt.Fprintf(sb, " %d %d", a, b)

	case shapeU16U16U8:
		a := readU16At(proto.Code, pos)
		pos += 2
		b := readU16At(proto.Code, pos)
		pos += 2
		cc := proto.Code[pos]
		pos++
		fmt.Fprintf(sb, " catch=%04d finally=%04d slot=%d", a, b, cc)

	case shapeClosure:
		idx := readU16At(proto.Code, pos)
		pos += 2
		count := proto.Code[pos]
		pos++
		fmt.Fprintf(sb, " %d ; %s", idx, describeConstant(proto, idx))
		for i := 0; i < int(count); i++ {
			isLocal := proto.Code[pos] != 0
			pos++
			slot := readU16At(proto.Code, pos)
			pos += 2
			kind := "upvalue"
			if isLocal {
				kind = "local"
			}
			fmt.Fprintf(sb, " [%s %d]", kind, slot)
		}
		if int(idx) < len(proto.Constants) && proto.Constants[idx].Tag == ConstProto {
			nested = append(nested, proto.Constants[idx].Proto)
		}
	}

	sb.WriteByte('\n')
	return pos, nested
}

func readU16At(code []byte, pos int) uint16 {
	return uint16(code[pos])<<8 | uint16(code[pos+1])
}

func isLocalSlotOp(op Opcode) bool {
	return op == GetLocal || op == SetLocal
}

func isConstantIndexOp(op Opcode) bool {
	switch op {
	case Const, GetGlobal, SetGlobal, DefineGlobal, DefineRootGlobal,
		GetField, SetField, Class, Method, StaticMethod, StaticField,
		GetProperty, SetProperty, GetSuper:
		return true
	default:
		return false
	}
}

// localName returns the debug name most recently declared for slot: a slot
// is reused by sibling scopes once its earlier owner closes, so the last
// matching entry (scopes close LIFO) is the one actually meant here.
func localName(proto *FunctionPrototype, slot int) (string, bool) {
	for i := len(proto.Locals) - 1; i >= 0; i-- {
		if proto.Locals[i].Slot == slot {
			return proto.Locals[i].Name, true
		}
	}
	return "", false
}

// describeConstant renders a short human label for the constant pool entry
// at idx, used to annotate operands that index into Constants so a reader
// doesn't have to cross-reference a separate constant dump.
func describeConstant(proto *FunctionPrototype, idx uint16) string {
	if int(idx) >= len(proto.Constants) {
		return "<out of range>"
	}
	c := proto.Constants[idx]
	switch c.Tag {
	case ConstNull:
		return "null"
	case ConstNumber:
		return strconv.FormatFloat(c.Number, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.String)
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	case ConstProto:
		name := c.Proto.Name
		if name == "" {
			name = "<script>"
		}
		return "proto " + name
	default:
		return "<unknown constant>"
	}
}
