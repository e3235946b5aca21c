package compiler

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Version is the current bytecode format version, embedded in every
// serialized prototype's header. Bump it whenever the wire format changes so
// that stale cached bytecode is rejected rather than misinterpreted.
const Version = 4

var magic = [4]byte{'M', 'P', 'B', 'C'}

// BytecodeError reports a problem loading a serialized prototype: a bad
// magic number, an unsupported version, or a truncated/corrupt stream.
type BytecodeError struct {
	Msg string
}

func (e *BytecodeError) Error() string { return e.Msg }

// Save serializes p to ember's bit-exact bytecode format (spec.md §6):
// a 4-byte magic, a version byte, the constant pool, the code bytes and the
// line table. Nested FunctionPrototype constants (tag 4) recursively embed
// their own constant pool, code and line table using the identical layout,
// extending the spec's per-prototype constant payload (name, className,
// arity, upvalueCount) with the upvalue descriptor list and the nested
// sections needed for a faithful round trip; see DESIGN.md.
func Save(p *FunctionPrototype) []byte {
	var buf []byte
	buf = append(buf, magic[:]...)
	buf = append(buf, Version)
	buf = appendPrototypeBody(buf, p)
	return buf
}

func appendPrototypeBody(buf []byte, p *FunctionPrototype) []byte {
	buf = appendI32(buf, int32(len(p.Constants)))
	for _, c := range p.Constants {
		buf = appendConstant(buf, c)
	}
	buf = appendI32(buf, int32(len(p.Code)))
	buf = append(buf, p.Code...)
	buf = appendI32(buf, int32(len(p.Lines)))
	for _, l := range p.Lines {
		buf = appendU32(buf, l.Offset)
		buf = appendU16(buf, l.Line)
	}
	return buf
}

func appendConstant(buf []byte, c Constant) []byte {
	buf = append(buf, byte(c.Tag))
	switch c.Tag {
	case ConstNull:
		// no payload
	case ConstNumber:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(c.Number))
		buf = append(buf, b[:]...)
	case ConstString:
		buf = appendI32(buf, int32(len(c.String)))
		buf = append(buf, c.String...)
	case ConstBool:
		if c.Bool {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case ConstProto:
		buf = appendStr(buf, c.Proto.Name)
		buf = appendStr(buf, c.Proto.ClassName)
		buf = appendI32(buf, int32(c.Proto.Arity))
		buf = appendI32(buf, int32(len(c.Proto.Upvalues)))
		for _, uv := range c.Proto.Upvalues {
			if uv.IsLocal {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
			buf = appendU16(buf, uv.Index)
		}
		buf = appendPrototypeBody(buf, c.Proto)
	}
	return buf
}

func appendStr(buf []byte, s string) []byte {
	buf = appendI32(buf, int32(len(s)))
	return append(buf, s...)
}

func appendI32(buf []byte, v int32) []byte { return appendU32(buf, uint32(v)) }

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

// Load deserializes a FunctionPrototype previously produced by Save. It
// rejects streams with a bad magic, an unsupported version, or that are
// truncated.
func Load(data []byte) (*FunctionPrototype, error) {
	d := &decoder{b: data}
	var m [4]byte
	if !d.readBytes(m[:]) {
		return nil, &BytecodeError{Msg: "truncated stream: missing magic"}
	}
	if m != magic {
		return nil, &BytecodeError{Msg: fmt.Sprintf("bad magic %q", m)}
	}
	v, ok := d.readByte()
	if !ok {
		return nil, &BytecodeError{Msg: "truncated stream: missing version"}
	}
	if v != Version {
		return nil, &BytecodeError{Msg: fmt.Sprintf("unsupported bytecode version %d", v)}
	}
	p := &FunctionPrototype{}
	if err := d.readPrototypeBody(p); err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

type decoder struct {
	b   []byte
	off int
	err error
}

func (d *decoder) fail(msg string) {
	if d.err == nil {
		d.err = &BytecodeError{Msg: msg}
	}
}

func (d *decoder) readBytes(dst []byte) bool {
	if len(d.b)-d.off < len(dst) {
		return false
	}
	copy(dst, d.b[d.off:])
	d.off += len(dst)
	return true
}

func (d *decoder) readByte() (byte, bool) {
	if d.off >= len(d.b) {
		return 0, false
	}
	v := d.b[d.off]
	d.off++
	return v, true
}

func (d *decoder) readU32() uint32 {
	var b [4]byte
	if !d.readBytes(b[:]) {
		d.fail("truncated stream: expected 4-byte integer")
		return 0
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (d *decoder) readI32() int32 { return int32(d.readU32()) }

func (d *decoder) readU16() uint16 {
	var b [2]byte
	if !d.readBytes(b[:]) {
		d.fail("truncated stream: expected 2-byte integer")
		return 0
	}
	return binary.LittleEndian.Uint16(b[:])
}

func (d *decoder) readF64() float64 {
	var b [8]byte
	if !d.readBytes(b[:]) {
		d.fail("truncated stream: expected 8-byte float")
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
}

func (d *decoder) readStr() string {
	n := d.readI32()
	if d.err != nil || n < 0 || int(n) > len(d.b)-d.off {
		d.fail("truncated stream: bad string length")
		return ""
	}
	s := string(d.b[d.off : d.off+int(n)])
	d.off += int(n)
	return s
}

func (d *decoder) readPrototypeBody(p *FunctionPrototype) error {
	nconst := d.readI32()
	if d.err != nil {
		return d.err
	}
	p.Constants = make([]Constant, nconst)
	for i := range p.Constants {
		c, err := d.readConstant()
		if err != nil {
			return err
		}
		p.Constants[i] = c
	}

	clen := d.readI32()
	if d.err != nil {
		return d.err
	}
	if clen < 0 || int(clen) > len(d.b)-d.off {
		d.fail("truncated stream: bad code length")
		return d.err
	}
	p.Code = append([]byte(nil), d.b[d.off:d.off+int(clen)]...)
	d.off += int(clen)

	nlines := d.readI32()
	if d.err != nil {
		return d.err
	}
	p.Lines = make([]LineEntry, nlines)
	for i := range p.Lines {
		off := d.readU32()
		line := d.readU16()
		if d.err != nil {
			return d.err
		}
		p.Lines[i] = LineEntry{Offset: off, Line: line}
	}
	return d.err
}

func (d *decoder) readConstant() (Constant, error) {
	tag, ok := d.readByte()
	if !ok {
		d.fail("truncated stream: missing constant tag")
		return Constant{}, d.err
	}
	c := Constant{Tag: ConstantTag(tag)}
	switch c.Tag {
	case ConstNull:
	case ConstNumber:
		c.Number = d.readF64()
	case ConstString:
		c.String = d.readStr()
	case ConstBool:
		b, ok := d.readByte()
		if !ok {
			d.fail("truncated stream: missing bool payload")
			return c, d.err
		}
		c.Bool = b != 0
	case ConstProto:
		proto := &FunctionPrototype{}
		proto.Name = d.readStr()
		proto.ClassName = d.readStr()
		proto.Arity = int(d.readI32())
		nuv := d.readI32()
		if d.err != nil {
			return c, d.err
		}
		proto.Upvalues = make([]UpvalueDesc, nuv)
		for i := range proto.Upvalues {
			isLocal, ok := d.readByte()
			if !ok {
				d.fail("truncated stream: missing upvalue descriptor")
				return c, d.err
			}
			idx := d.readU16()
			proto.Upvalues[i] = UpvalueDesc{IsLocal: isLocal != 0, Index: idx}
		}
		if err := d.readPrototypeBody(proto); err != nil {
			return c, err
		}
		c.Proto = proto
	default:
		d.fail(fmt.Sprintf("unknown constant tag %d", tag))
		return c, d.err
	}
	return c, d.err
}
