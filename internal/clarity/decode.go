package clarity

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

// Wire type prefixes.
const (
	typeInt               byte = 0x00
	typeUint              byte = 0x01
	typeBuffer            byte = 0x02
	typeBoolTrue          byte = 0x03
	typeBoolFalse         byte = 0x04
	typeStandardPrincipal byte = 0x05
	typeContractPrincipal byte = 0x06
	typeResponseOk        byte = 0x07
	typeResponseErr       byte = 0x08
	typeOptionalNone      byte = 0x09
	typeOptionalSome      byte = 0x0a
	typeList              byte = 0x0b
	typeTuple             byte = 0x0c
	typeStringASCII       byte = 0x0d
	typeStringUTF8        byte = 0x0e
)

// maxDepth bounds nesting so hostile payloads cannot exhaust the stack.
const maxDepth = 64

var (
	errUnexpectedEOF = errors.New("unexpected EOF")
	errTooDeep       = errors.New("value nested too deeply")
)

// DecodeError carries the payload that could not be decoded.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	raw := e.Raw
	if len(raw) > 64 {
		raw = raw[:64] + "..."
	}
	return fmt.Sprintf("clarity: cannot decode %q: %v", raw, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeHex decodes a hex payload, with or without a 0x prefix.
func DecodeHex(payload string) (Value, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(payload), "0x"), "0X")
	data, err := hex.DecodeString(trimmed)
	if err != nil {
		return Value{}, &DecodeError{Raw: payload, Err: err}
	}
	v, err := decode(data)
	if err != nil {
		return Value{}, &DecodeError{Raw: payload, Err: err}
	}
	return v, nil
}

// Decode decodes a single serialized value. Trailing bytes are an error.
func Decode(data []byte) (Value, error) {
	v, err := decode(data)
	if err != nil {
		return Value{}, &DecodeError{Raw: "0x" + hex.EncodeToString(data), Err: err}
	}
	return v, nil
}

func decode(data []byte) (Value, error) {
	r := newReader(data)
	v, err := r.readValue(0)
	if err != nil {
		return Value{}, err
	}
	if r.remaining() != 0 {
		return Value{}, fmt.Errorf("%d trailing bytes", r.remaining())
	}
	return v, nil
}

type binReader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *binReader {
	return &binReader{data: data}
}

func (r *binReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *binReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *binReader) readN(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *binReader) readUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// readLength reads a u32 length prefix and rejects lengths the payload cannot satisfy.
func (r *binReader) readLength(minItemSize int) (int, error) {
	n, err := r.readUint32()
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(minItemSize) > uint64(r.remaining()) {
		return 0, fmt.Errorf("length %d exceeds payload", n)
	}
	return int(n), nil
}

func (r *binReader) readInt128(signed bool) (*big.Int, error) {
	b, err := r.readN(16)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(b)
	if signed && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return n, nil
}

func (r *binReader) readPrincipal() (string, error) {
	version, err := r.readByte()
	if err != nil {
		return "", err
	}
	hash, err := r.readN(20)
	if err != nil {
		return "", err
	}
	return principalAddress(version, hash)
}

func (r *binReader) readName() (string, error) {
	l, err := r.readByte()
	if err != nil {
		return "", err
	}
	b, err := r.readN(int(l))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *binReader) readValue(depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, errTooDeep
	}
	prefix, err := r.readByte()
	if err != nil {
		return Value{}, err
	}

	switch prefix {
	case typeInt, typeUint:
		n, err := r.readInt128(prefix == typeInt)
		if err != nil {
			return Value{}, err
		}
		kind := KindUint
		if prefix == typeInt {
			kind = KindInt
		}
		return Value{Kind: kind, Int: n}, nil

	case typeBuffer:
		l, err := r.readLength(1)
		if err != nil {
			return Value{}, err
		}
		b, err := r.readN(l)
		if err != nil {
			return Value{}, err
		}
		return Buffer(append([]byte(nil), b...)), nil

	case typeBoolTrue:
		return Bool(true), nil
	case typeBoolFalse:
		return Bool(false), nil

	case typeStandardPrincipal:
		addr, err := r.readPrincipal()
		if err != nil {
			return Value{}, err
		}
		return Principal(addr), nil

	case typeContractPrincipal:
		addr, err := r.readPrincipal()
		if err != nil {
			return Value{}, err
		}
		name, err := r.readName()
		if err != nil {
			return Value{}, err
		}
		return Principal(addr + "." + name), nil

	case typeResponseOk, typeResponseErr:
		inner, err := r.readValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		if prefix == typeResponseOk {
			return OkResponse(inner), nil
		}
		return ErrResponse(inner), nil

	case typeOptionalNone:
		return None(), nil
	case typeOptionalSome:
		inner, err := r.readValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		return Some(inner), nil

	case typeList:
		l, err := r.readLength(1)
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, l)
		for i := 0; i < l; i++ {
			item, err := r.readValue(depth + 1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return List(items...), nil

	case typeTuple:
		l, err := r.readLength(2)
		if err != nil {
			return Value{}, err
		}
		entries := make([]TupleEntry, 0, l)
		for i := 0; i < l; i++ {
			name, err := r.readName()
			if err != nil {
				return Value{}, err
			}
			v, err := r.readValue(depth + 1)
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, TupleEntry{Name: name, Value: v})
		}
		return Tuple(entries...), nil

	case typeStringASCII, typeStringUTF8:
		l, err := r.readLength(1)
		if err != nil {
			return Value{}, err
		}
		b, err := r.readN(l)
		if err != nil {
			return Value{}, err
		}
		if prefix == typeStringUTF8 {
			if !utf8.Valid(b) {
				return Value{}, errors.New("invalid utf-8 in string-utf8")
			}
			return StringUTF8(string(b)), nil
		}
		return StringASCII(string(b)), nil

	default:
		return Value{}, fmt.Errorf("unknown type prefix 0x%02x", prefix)
	}
}
