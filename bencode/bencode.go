// Package bencode implements a canonical Bencode encoder: the
// serialization backbone torrent-creator relies on for byte-for-byte
// determinism of the info-hash. It is encoder-only and works over an
// explicit tagged-variant value tree rather than struct tags, since
// the info dict is assembled programmatically, not round-tripped from
// an existing .torrent file.
package bencode

import (
	"sort"
	"strconv"
)

// Kind identifies which Bencode variant a Value holds.
type Kind int

const (
	KindInt Kind = iota
	KindString
	KindList
	KindDict
)

// Value is a tagged variant over the four Bencode types: a 64-bit
// signed integer, a binary-safe byte string (text is emitted as its
// UTF-8 bytes), an ordered list of values, and a dictionary from
// byte-string keys to values. The tree is consumed by value, so there
// is no way to construct a cycle.
type Value struct {
	kind Kind
	i    int64
	s    []byte
	list []Value
	dict map[string]Value
}

// Int constructs an integer Value.
func Int(n int64) Value { return Value{kind: KindInt, i: n} }

// String constructs a byte-string Value from a Go string. Text and raw
// byte strings encode identically: a length-prefixed byte string using
// the UTF-8 byte length of the payload.
func String(s string) Value { return Value{kind: KindString, s: []byte(s)} }

// Bytes constructs a byte-string Value from a raw byte slice, e.g. the
// piece table.
func Bytes(b []byte) Value { return Value{kind: KindString, s: b} }

// List constructs a list Value from the given children, preserving
// order. The children are copied, so later changes to the caller's
// slice do not affect the list.
func List(items ...Value) Value { return Value{kind: KindList, list: append([]Value(nil), items...)} }

// Dict constructs an empty dictionary Value. Use (Value).Set to add
// entries; construction order does not matter, since encoding always
// sorts keys.
func Dict() Value { return Value{kind: KindDict, dict: map[string]Value{}} }

// Set returns a copy of the dictionary Value v with key added or
// replaced; v itself is left unchanged. It panics if v is not a
// dictionary, since that indicates a programming error in the
// assembler rather than a recoverable condition.
func (v Value) Set(key string, val Value) Value {
	if v.kind != KindDict {
		panic("bencode: Set called on a non-dictionary Value")
	}
	dict := make(map[string]Value, len(v.dict)+1)
	for k, x := range v.dict {
		dict[k] = x
	}
	dict[key] = val
	v.dict = dict
	return v
}

// Len reports the number of elements in a list or entries in a
// dictionary.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindDict:
		return len(v.dict)
	default:
		return 0
	}
}

// Encode appends the canonical Bencode serialization of v to dst and
// returns the extended slice. It is a pure function of v: the same tree
// always yields the same bytes, regardless of the order dictionary
// entries were Set in.
func Encode(dst []byte, v Value) []byte {
	switch v.kind {
	case KindInt:
		dst = append(dst, 'i')
		dst = strconv.AppendInt(dst, v.i, 10)
		dst = append(dst, 'e')

	case KindString:
		dst = strconv.AppendInt(dst, int64(len(v.s)), 10)
		dst = append(dst, ':')
		dst = append(dst, v.s...)

	case KindList:
		dst = append(dst, 'l')
		for _, item := range v.list {
			dst = Encode(dst, item)
		}
		dst = append(dst, 'e')

	case KindDict:
		dst = append(dst, 'd')
		keys := make([]string, 0, len(v.dict))
		for k := range v.dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			dst = Encode(dst, String(k))
			dst = Encode(dst, v.dict[k])
		}
		dst = append(dst, 'e')

	default:
		panic("bencode: Value with unknown kind")
	}

	return dst
}

// Marshal encodes v into a freshly allocated byte slice.
func Marshal(v Value) []byte {
	return Encode(nil, v)
}
