package compiler

import "github.com/mna/ember/lang/token"

// emitByte appends a single raw byte to the current function's code,
// recording a line-table entry if line differs from the last one recorded.
func (c *Compiler) emitByte(b byte, pos token.Pos) {
	fs := c.fs
	offset := uint32(len(fs.proto.Code))
	fs.proto.Code = append(fs.proto.Code, b)
	line := uint16(lineOf(pos))
	if n := len(fs.proto.Lines); n == 0 || fs.proto.Lines[n-1].Line != line {
		fs.proto.Lines = append(fs.proto.Lines, LineEntry{Offset: offset, Line: line})
	}
}

func lineOf(pos token.Pos) int {
	line, _ := pos.LineCol()
	return line
}

func (c *Compiler) emitOp(op Opcode, pos token.Pos) { c.emitByte(byte(op), pos) }

func (c *Compiler) emitU16Raw(v uint16, pos token.Pos) {
	c.emitByte(byte(v>>8), pos)
	c.emitByte(byte(v), pos)
}

func (c *Compiler) emitU8(op Opcode, operand uint8, pos token.Pos) {
	c.emitOp(op, pos)
	c.emitByte(operand, pos)
}

func (c *Compiler) emitU16(op Opcode, operand uint16, pos token.Pos) {
	c.emitOp(op, pos)
	c.emitU16Raw(operand, pos)
}

func (c *Compiler) emitU16U8(op Opcode, a uint16, b uint8, pos token.Pos) {
	c.emitOp(op, pos)
	c.emitU16Raw(a, pos)
	c.emitByte(b, pos)
}

func (c *Compiler) emitU16U16(op Opcode, a, b uint16, pos token.Pos) {
	c.emitOp(op, pos)
	c.emitU16Raw(a, pos)
	c.emitU16Raw(b, pos)
}

func (c *Compiler) emitU8U16(op Opcode, a uint8, b uint16, pos token.Pos) {
	c.emitOp(op, pos)
	c.emitByte(a, pos)
	c.emitU16Raw(b, pos)
}

func (c *Compiler) emitU16U16U8(op Opcode, a, b uint16, cc uint8, pos token.Pos) {
	c.emitOp(op, pos)
	c.emitU16Raw(a, pos)
	c.emitU16Raw(b, pos)
	c.emitByte(cc, pos)
}

// emitJump emits op followed by a placeholder i16 offset and returns the
// code offset of that placeholder's first byte, to be patched later via
// patchJump.
func (c *Compiler) emitJump(op Opcode, pos token.Pos) int {
	c.emitOp(op, pos)
	at := len(c.fs.proto.Code)
	c.emitByte(0xff, pos)
	c.emitByte(0xff, pos)
	return at
}

// patchJump backpatches the i16 operand at offset so the jump lands at the
// current end of code.
func (c *Compiler) patchJump(offset int) {
	fs := c.fs
	dist := len(fs.proto.Code) - (offset + 2)
	if dist > 1<<15-1 || dist < -(1<<15) {
		c.errorAt(token.Pos(0), "jump offset overflow")
		return
	}
	fs.proto.Code[offset] = byte(int16(dist) >> 8)
	fs.proto.Code[offset+1] = byte(int16(dist))
}

// emitLoop emits a backward Loop jump to loopStart.
func (c *Compiler) emitLoop(loopStart int, pos token.Pos) {
	c.emitOp(Loop, pos)
	dist := len(c.fs.proto.Code) - loopStart + 2
	if dist > 1<<16-1 {
		c.errorAt(pos, "loop body too large")
		dist = 0
	}
	c.emitU16Raw(uint16(dist), pos)
}

// constantNumber/constantBool/constantString append (without dedup, except
// strings) a constant and return its pool index.
func (c *Compiler) constantNumber(n float64) int {
	return c.fs.addConstant(Constant{Tag: ConstNumber, Number: n})
}

func (c *Compiler) constantBool(b bool) int {
	return c.fs.addConstant(Constant{Tag: ConstBool, Bool: b})
}

func (c *Compiler) constantString(s string) int { return c.fs.stringConstant(s) }
