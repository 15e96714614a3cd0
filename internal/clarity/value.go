// Package clarity decodes and encodes Clarity values in the chain's consensus
// serialization, the format read-only contract calls return as hex.
package clarity

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
)

// Kind names the Clarity type of a Value.
type Kind string

// Clarity kinds.
const (
	KindInt         Kind = "int"
	KindUint        Kind = "uint"
	KindBuffer      Kind = "buffer"
	KindBool        Kind = "bool"
	KindPrincipal   Kind = "principal"
	KindResponse    Kind = "response"
	KindOptional    Kind = "optional"
	KindList        Kind = "list"
	KindTuple       Kind = "tuple"
	KindStringASCII Kind = "string-ascii"
	KindStringUTF8  Kind = "string-utf8"
)

// Value is a decoded Clarity value. Only the fields relevant to Kind are set.
type Value struct {
	Kind Kind

	// Int holds int and uint values.
	Int *big.Int
	// Bool holds bool values.
	Bool bool
	// OK distinguishes (ok ...) from (err ...) responses.
	OK bool
	// Bytes holds buffer contents.
	Bytes []byte
	// Text holds string-ascii, string-utf8 and principal values.
	Text string
	// Inner is the payload of a response or of (some ...); nil for none.
	Inner *Value
	List  []Value
	// Tuple entries in wire order (sorted by name).
	Tuple []TupleEntry
}

// TupleEntry is one named field of a tuple.
type TupleEntry struct {
	Name  string
	Value Value
}

// Uint returns a uint value.
func Uint(v uint64) Value {
	return Value{Kind: KindUint, Int: new(big.Int).SetUint64(v)}
}

// Int returns an int value.
func Int(v int64) Value {
	return Value{Kind: KindInt, Int: big.NewInt(v)}
}

// Bool returns a bool value.
func Bool(v bool) Value {
	return Value{Kind: KindBool, Bool: v}
}

// Buffer returns a buffer value.
func Buffer(b []byte) Value {
	return Value{Kind: KindBuffer, Bytes: b}
}

// StringASCII returns a string-ascii value.
func StringASCII(s string) Value {
	return Value{Kind: KindStringASCII, Text: s}
}

// StringUTF8 returns a string-utf8 value.
func StringUTF8(s string) Value {
	return Value{Kind: KindStringUTF8, Text: s}
}

// Principal returns a principal value from its address form.
func Principal(address string) Value {
	return Value{Kind: KindPrincipal, Text: address}
}

// Some wraps v in (some ...).
func Some(v Value) Value {
	return Value{Kind: KindOptional, Inner: &v}
}

// None returns the none optional.
func None() Value {
	return Value{Kind: KindOptional}
}

// OkResponse wraps v in (ok ...).
func OkResponse(v Value) Value {
	return Value{Kind: KindResponse, OK: true, Inner: &v}
}

// ErrResponse wraps v in (err ...).
func ErrResponse(v Value) Value {
	return Value{Kind: KindResponse, Inner: &v}
}

// List returns a list value.
func List(items ...Value) Value {
	return Value{Kind: KindList, List: items}
}

// Tuple returns a tuple value.
func Tuple(entries ...TupleEntry) Value {
	return Value{Kind: KindTuple, Tuple: entries}
}

// Unwrap strips (ok ...) and (some ...) wrappers. It returns false when it meets
// an (err ...) response or none.
func (v Value) Unwrap() (Value, bool) {
	for {
		switch v.Kind {
		case KindResponse:
			if !v.OK || v.Inner == nil {
				return v, false
			}
			v = *v.Inner
		case KindOptional:
			if v.Inner == nil {
				return v, false
			}
			v = *v.Inner
		default:
			return v, true
		}
	}
}

// Field returns the named tuple field after unwrapping the receiver.
func (v Value) Field(name string) (Value, bool) {
	inner, ok := v.Unwrap()
	if !ok || inner.Kind != KindTuple {
		return Value{}, false
	}
	for _, e := range inner.Tuple {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Value{}, false
}

// FirstField returns the first present field among names.
func (v Value) FirstField(names ...string) (Value, bool) {
	for _, name := range names {
		if f, ok := v.Field(name); ok {
			return f, true
		}
	}
	return Value{}, false
}

// Uint64 returns a non-negative int or uint that fits in 64 bits.
func (v Value) Uint64() (uint64, bool) {
	inner, ok := v.Unwrap()
	if !ok || (inner.Kind != KindUint && inner.Kind != KindInt) || inner.Int == nil {
		return 0, false
	}
	if inner.Int.Sign() < 0 || !inner.Int.IsUint64() {
		return 0, false
	}
	return inner.Int.Uint64(), true
}

// StringValue returns the text of a string or principal value.
func (v Value) StringValue() (string, bool) {
	inner, ok := v.Unwrap()
	if !ok {
		return "", false
	}
	switch inner.Kind {
	case KindStringASCII, KindStringUTF8, KindPrincipal:
		return inner.Text, true
	default:
		return "", false
	}
}

// BoolValue returns the value of a bool.
func (v Value) BoolValue() (bool, bool) {
	inner, ok := v.Unwrap()
	if !ok || inner.Kind != KindBool {
		return false, false
	}
	return inner.Bool, true
}

// MarshalJSON renders the value as {"type": ..., "value": ...}, adding
// "success" for responses.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toJSON())
}

func (v Value) toJSON() map[string]any {
	out := map[string]any{"type": string(v.Kind)}
	switch v.Kind {
	case KindInt, KindUint:
		if v.Int == nil {
			out["value"] = "0"
		} else {
			out["value"] = v.Int.String()
		}
	case KindBool:
		out["value"] = v.Bool
	case KindBuffer:
		out["value"] = "0x" + hex.EncodeToString(v.Bytes)
	case KindStringASCII, KindStringUTF8, KindPrincipal:
		out["value"] = v.Text
	case KindResponse:
		out["success"] = v.OK
		if v.Inner != nil {
			out["value"] = v.Inner.toJSON()
		}
	case KindOptional:
		if v.Inner == nil {
			out["value"] = nil
		} else {
			out["value"] = v.Inner.toJSON()
		}
	case KindList:
		items := make([]any, 0, len(v.List))
		for _, item := range v.List {
			items = append(items, item.toJSON())
		}
		out["value"] = items
	case KindTuple:
		fields := make(map[string]any, len(v.Tuple))
		for _, e := range v.Tuple {
			fields[e.Name] = e.Value.toJSON()
		}
		out["value"] = fields
	}
	return out
}
