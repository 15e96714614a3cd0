package clarity

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
)

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxInt128  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	twoTo128   = new(big.Int).Lsh(big.NewInt(1), 128)
)

type binWriter struct {
	buf bytes.Buffer
}

func (w *binWriter) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) writeInt128(n *big.Int) {
	if n.Sign() < 0 {
		n = new(big.Int).Add(n, twoTo128)
	}
	var b [16]byte
	n.FillBytes(b[:])
	w.buf.Write(b[:])
}

func (w *binWriter) writeName(name string) error {
	if len(name) > 128 {
		return fmt.Errorf("name %q too long", name)
	}
	w.buf.WriteByte(byte(len(name)))
	w.buf.WriteString(name)
	return nil
}

// Serialize encodes v in the consensus serialization.
func Serialize(v Value) ([]byte, error) {
	w := &binWriter{}
	if err := w.writeValue(v); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// Hex encodes v as a 0x-prefixed hex string, the form read-only call arguments take.
func Hex(v Value) (string, error) {
	b, err := Serialize(v)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

// UintHex encodes a uint argument. It cannot fail.
func UintHex(n uint64) string {
	s, _ := Hex(Uint(n))
	return s
}

func (w *binWriter) writeValue(v Value) error {
	switch v.Kind {
	case KindInt:
		n := v.Int
		if n == nil {
			n = new(big.Int)
		}
		if n.Cmp(minInt128) < 0 || n.Cmp(maxInt128) > 0 {
			return fmt.Errorf("int %s out of range", n)
		}
		w.buf.WriteByte(typeInt)
		w.writeInt128(n)

	case KindUint:
		n := v.Int
		if n == nil {
			n = new(big.Int)
		}
		if n.Sign() < 0 || n.Cmp(maxUint128) > 0 {
			return fmt.Errorf("uint %s out of range", n)
		}
		w.buf.WriteByte(typeUint)
		w.writeInt128(n)

	case KindBuffer:
		w.buf.WriteByte(typeBuffer)
		w.writeUint32(uint32(len(v.Bytes)))
		w.buf.Write(v.Bytes)

	case KindBool:
		if v.Bool {
			w.buf.WriteByte(typeBoolTrue)
		} else {
			w.buf.WriteByte(typeBoolFalse)
		}

	case KindPrincipal:
		version, hash, name, err := parsePrincipal(v.Text)
		if err != nil {
			return err
		}
		if name == "" {
			w.buf.WriteByte(typeStandardPrincipal)
			w.buf.WriteByte(version)
			w.buf.Write(hash)
			return nil
		}
		w.buf.WriteByte(typeContractPrincipal)
		w.buf.WriteByte(version)
		w.buf.Write(hash)
		return w.writeName(name)

	case KindResponse:
		if v.Inner == nil {
			return fmt.Errorf("response without payload")
		}
		if v.OK {
			w.buf.WriteByte(typeResponseOk)
		} else {
			w.buf.WriteByte(typeResponseErr)
		}
		return w.writeValue(*v.Inner)

	case KindOptional:
		if v.Inner == nil {
			w.buf.WriteByte(typeOptionalNone)
			return nil
		}
		w.buf.WriteByte(typeOptionalSome)
		return w.writeValue(*v.Inner)

	case KindList:
		w.buf.WriteByte(typeList)
		w.writeUint32(uint32(len(v.List)))
		for _, item := range v.List {
			if err := w.writeValue(item); err != nil {
				return err
			}
		}

	case KindTuple:
		entries := append([]TupleEntry(nil), v.Tuple...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		w.buf.WriteByte(typeTuple)
		w.writeUint32(uint32(len(entries)))
		for _, e := range entries {
			if err := w.writeName(e.Name); err != nil {
				return err
			}
			if err := w.writeValue(e.Value); err != nil {
				return err
			}
		}

	case KindStringASCII:
		for i := 0; i < len(v.Text); i++ {
			if v.Text[i] > 0x7f {
				return fmt.Errorf("non-ascii byte in string-ascii")
			}
		}
		w.buf.WriteByte(typeStringASCII)
		w.writeUint32(uint32(len(v.Text)))
		w.buf.WriteString(v.Text)

	case KindStringUTF8:
		w.buf.WriteByte(typeStringUTF8)
		w.writeUint32(uint32(len(v.Text)))
		w.buf.WriteString(v.Text)

	default:
		return fmt.Errorf("unknown kind %q", v.Kind)
	}
	return nil
}
