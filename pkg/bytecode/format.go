// This file implements serialization and deserialization of the tuple IR
// to the .twc binary bytecode file format (spec.md §6: "Tuple IR file
// format: an opaque serialisation of the tuple list ... readable only by
// the same implementation version ... self-describing enough to reject
// incompatible files").
//
// Binary Format Layout:
//
//   [Header]
//     Magic Number (4 bytes): "TAWK" (0x5441574B)
//     Version (4 bytes): format version (currently 1)
//     Flags (4 bytes): reserved, currently 0
//
//   [Functions Section]
//     Count (4 bytes)
//     For each function: name, params, per-param is-array flag,
//     num locals, entry index (all resolved — by the time a Program is
//     encoded every Address has already been resolved to a concrete index).
//
//   [Tuples Section]
//     Count (4 bytes)
//     For each tuple: opcode (1 byte), source line (4 bytes), operand
//     count (4 bytes), then for each operand a type tag (1 byte) + payload.
//
//   [Phase Boundaries]
//     Six 4-byte values: BeginStart, BeginEnd, MainStart, MainEnd,
//     EndStart, EndEnd.
//
// Operand Type Tags:
//   0x01 = int64 (8 bytes)
//   0x02 = float64 (8 bytes)
//   0x03 = string (4-byte length + UTF-8 bytes)
//   0x04 = bool (1 byte)
//   0x05 = resolved address (int64 tuple index, 8 bytes)
//
// Design rationale mirrors the teacher's .sg format: a small versioned
// binary header guards against running a stale interpreter against a
// newer (or unrelated) bytecode file, and constants/operands are encoded
// by an explicit type tag rather than relying on Go's gob/reflection so
// the format stays stable across compiler refactors.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MagicNumber is the file signature for .twc files: "TAWK".
	MagicNumber uint32 = 0x5441574B
	// FormatVersion is the current tuple IR format version.
	FormatVersion uint32 = 1

	formatFlags uint32 = 0
)

const (
	operandInt64   byte = 0x01
	operandFloat64 byte = 0x02
	operandString  byte = 0x03
	operandBool    byte = 0x04
	operandAddress byte = 0x05
)

// Encode serializes a fully address-resolved Program to w in the .twc
// binary format. Encoding a Program containing an unresolved Address is a
// programmer error (it violates the invariant in spec.md §3) and returns
// an error rather than silently writing a garbage index.
func Encode(p *Program, w io.Writer) error {
	if err := writeHeader(w); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writeFunctions(w, p.Functions); err != nil {
		return fmt.Errorf("write functions: %w", err)
	}
	if err := writeTuples(w, p.Tuples); err != nil {
		return fmt.Errorf("write tuples: %w", err)
	}
	if err := writeSections(w, p); err != nil {
		return fmt.Errorf("write sections: %w", err)
	}
	return nil
}

func writeHeader(w io.Writer) error {
	for _, v := range []uint32{MagicNumber, FormatVersion, formatFlags} {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func writeFunctions(w io.Writer, fns map[string]*FunctionDef) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(fns))); err != nil {
		return err
	}
	for name, fn := range fns {
		if err := writeString(w, name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(fn.Params))); err != nil {
			return err
		}
		for i, param := range fn.Params {
			if err := writeString(w, param); err != nil {
				return err
			}
			isArr := byte(0)
			if fn.IsArrayArg[i] {
				isArr = 1
			}
			if _, err := w.Write([]byte{isArr}); err != nil {
				return err
			}
		}
		if err := binary.Write(w, binary.BigEndian, uint32(fn.NumLocals)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(fn.Entry)); err != nil {
			return err
		}
	}
	return nil
}

func writeTuples(w io.Writer, tuples []Tuple) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(tuples))); err != nil {
		return err
	}
	for _, t := range tuples {
		if _, err := w.Write([]byte{byte(t.Op)}); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(t.Line)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(t.Operands))); err != nil {
			return err
		}
		for _, operand := range t.Operands {
			if err := writeOperand(w, operand); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeOperand(w io.Writer, operand any) error {
	switch v := operand.(type) {
	case int:
		if _, err := w.Write([]byte{operandInt64}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, int64(v))
	case int64:
		if _, err := w.Write([]byte{operandInt64}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, v)
	case float64:
		if _, err := w.Write([]byte{operandFloat64}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, v)
	case string:
		if _, err := w.Write([]byte{operandString}); err != nil {
			return err
		}
		return writeString(w, v)
	case bool:
		if _, err := w.Write([]byte{operandBool}); err != nil {
			return err
		}
		b := byte(0)
		if v {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return err
	case *Address:
		if !v.Resolved() {
			return fmt.Errorf("unresolved address %q cannot be encoded", v.Label)
		}
		if _, err := w.Write([]byte{operandAddress}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, int64(v.Index()))
	default:
		return fmt.Errorf("unsupported operand type %T", operand)
	}
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// writeSections writes the trailing section markers (Begin/Main/End
// ranges) needed to reconstruct a Program's phase boundaries on Decode.
func writeSections(w io.Writer, p *Program) error {
	ints := []int{p.BeginStart, p.BeginEnd, p.MainStart, p.MainEnd, p.EndStart, p.EndEnd}
	for _, v := range ints {
		if err := binary.Write(w, binary.BigEndian, uint32(v)); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a .twc file written by Encode, verifying the magic number
// and format version before trusting any of the payload.
func Decode(r io.Reader) (*Program, error) {
	magic, version, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if magic != MagicNumber {
		return nil, fmt.Errorf("not a tawk bytecode file (bad magic %#x)", magic)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("unsupported bytecode format version %d (expected %d)", version, FormatVersion)
	}

	fns, err := readFunctions(r)
	if err != nil {
		return nil, fmt.Errorf("read functions: %w", err)
	}
	tuples, err := readTuples(r)
	if err != nil {
		return nil, fmt.Errorf("read tuples: %w", err)
	}
	p := &Program{Tuples: tuples, Functions: fns}
	if err := readSections(r, p); err != nil {
		return nil, fmt.Errorf("read sections: %w", err)
	}
	return p, nil
}

func readHeader(r io.Reader) (magic, version uint32, err error) {
	var flags uint32
	if err = binary.Read(r, binary.BigEndian, &magic); err != nil {
		return
	}
	if err = binary.Read(r, binary.BigEndian, &version); err != nil {
		return
	}
	err = binary.Read(r, binary.BigEndian, &flags)
	return
}

func readFunctions(r io.Reader) (map[string]*FunctionDef, error) {
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	fns := make(map[string]*FunctionDef, count)
	for i := uint32(0); i < count; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		var paramCount uint32
		if err := binary.Read(r, binary.BigEndian, &paramCount); err != nil {
			return nil, err
		}
		fn := &FunctionDef{Name: name}
		for j := uint32(0); j < paramCount; j++ {
			p, err := readString(r)
			if err != nil {
				return nil, err
			}
			var isArr [1]byte
			if _, err := io.ReadFull(r, isArr[:]); err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, p)
			fn.IsArrayArg = append(fn.IsArrayArg, isArr[0] != 0)
		}
		var numLocals, entry uint32
		if err := binary.Read(r, binary.BigEndian, &numLocals); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &entry); err != nil {
			return nil, err
		}
		fn.NumLocals = int(numLocals)
		fn.Entry = int(entry)
		fns[name] = fn
	}
	return fns, nil
}

func readTuples(r io.Reader) ([]Tuple, error) {
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	tuples := make([]Tuple, count)
	for i := range tuples {
		var opByte [1]byte
		if _, err := io.ReadFull(r, opByte[:]); err != nil {
			return nil, err
		}
		var line uint32
		if err := binary.Read(r, binary.BigEndian, &line); err != nil {
			return nil, err
		}
		var operandCount uint32
		if err := binary.Read(r, binary.BigEndian, &operandCount); err != nil {
			return nil, err
		}
		operands := make([]any, operandCount)
		for j := range operands {
			v, err := readOperand(r)
			if err != nil {
				return nil, err
			}
			operands[j] = v
		}
		tuples[i] = Tuple{Op: Opcode(opByte[0]), Line: int(line), Operands: operands}
	}
	return tuples, nil
}

func readOperand(r io.Reader) (any, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, err
	}
	switch tag[0] {
	case operandInt64:
		var v int64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return int(v), nil
	case operandFloat64:
		var v float64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return v, nil
	case operandString:
		return readString(r)
	case operandBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return b[0] != 0, nil
	case operandAddress:
		var v int64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		addr := NewAddress("decoded")
		addr.Resolve(int(v))
		return addr, nil
	default:
		return nil, fmt.Errorf("unknown operand tag %#x", tag[0])
	}
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readSections(r io.Reader, p *Program) error {
	vals := make([]*int, 6)
	vals[0], vals[1], vals[2] = &p.BeginStart, &p.BeginEnd, &p.MainStart
	vals[3], vals[4], vals[5] = &p.MainEnd, &p.EndStart, &p.EndEnd
	for _, ptr := range vals {
		var v uint32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return err
		}
		*ptr = int(v)
	}
	return nil
}
