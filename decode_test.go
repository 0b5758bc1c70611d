package torrentcreator_test

import "fmt"

// decodeAny is a minimal, test-only Bencode decoder shared by this
// package's tests to inspect assembled output. Not part of any
// production package: the library only ever encodes.
func decodeAny(b []byte) (any, []byte, error) {
	if len(b) == 0 {
		return nil, nil, fmt.Errorf("unexpected end of input")
	}
	switch {
	case b[0] == 'i':
		end := indexByte(b, 'e')
		var n int64
		_, err := fmt.Sscanf(string(b[1:end]), "%d", &n)
		return n, b[end+1:], err
	case b[0] == 'l':
		rest := b[1:]
		var list []any
		for rest[0] != 'e' {
			var v any
			var err error
			v, rest, err = decodeAny(rest)
			if err != nil {
				return nil, nil, err
			}
			list = append(list, v)
		}
		return list, rest[1:], nil
	case b[0] == 'd':
		rest := b[1:]
		m := map[string]any{}
		for rest[0] != 'e' {
			var k, v any
			var err error
			k, rest, err = decodeAny(rest)
			if err != nil {
				return nil, nil, err
			}
			v, rest, err = decodeAny(rest)
			if err != nil {
				return nil, nil, err
			}
			m[k.(string)] = v
		}
		return m, rest[1:], nil
	default:
		colon := indexByte(b, ':')
		var n int
		_, err := fmt.Sscanf(string(b[:colon]), "%d", &n)
		if err != nil {
			return nil, nil, err
		}
		start := colon + 1
		return string(b[start : start+n]), b[start+n:], nil
	}
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
