package value

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrTruncated is returned when a binary encoded value ends prematurely
var ErrTruncated = errors.New("binary value truncated")

// MarshalBinary encodes a value in a compact, lossless tagged format.
// Layout per value: 1 byte kind, followed by the payload:
//   - String, Binary: 4 bytes length (big endian) + data
//   - Integer, Float: 8 bytes
//   - Boolean: 1 byte
//   - List: 4 bytes count + elements
//   - Dict: 4 bytes count + (4 bytes key length + key + element), keys sorted
//   - Tuple: two elements
func MarshalBinary(v DataValue) []byte {
	return appendBinary(make([]byte, 0, Weight(v)), orNone(v))
}

func appendBinary(buf []byte, v DataValue) []byte {
	buf = append(buf, byte(v.Kind()))

	switch val := v.(type) {
	case None:
	case String:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(val)))
		buf = append(buf, val...)
	case Binary:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(val)))
		buf = append(buf, val...)
	case Integer:
		buf = binary.BigEndian.AppendUint64(buf, uint64(val))
	case Float:
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(float64(val)))
	case Boolean:
		if val {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case List:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(val)))
		for _, e := range val {
			buf = appendBinary(buf, orNone(e))
		}
	case Tuple:
		buf = appendBinary(buf, orNone(val[0]))
		buf = appendBinary(buf, orNone(val[1]))
	case Dict:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf = binary.BigEndian.AppendUint32(buf, uint32(len(keys)))
		for _, k := range keys {
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(k)))
			buf = append(buf, k...)
			buf = appendBinary(buf, orNone(val[k]))
		}
	}
	return buf
}

// UnmarshalBinary decodes a value produced by MarshalBinary.
// Trailing bytes after the value are rejected.
func UnmarshalBinary(data []byte) (DataValue, error) {
	v, n, err := readBinary(data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("binary value has %d trailing bytes", len(data)-n)
	}
	return v, nil
}

// readBinary decodes one value and returns the number of bytes consumed
func readBinary(data []byte) (DataValue, int, error) {
	if len(data) < 1 {
		return nil, 0, ErrTruncated
	}
	kind := Kind(data[0])
	pos := 1

	readLen := func() (int, error) {
		if len(data)-pos < 4 {
			return 0, ErrTruncated
		}
		l := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		return l, nil
	}

	readBytes := func() ([]byte, error) {
		l, err := readLen()
		if err != nil {
			return nil, err
		}
		if len(data)-pos < l {
			return nil, ErrTruncated
		}
		out := make([]byte, l)
		copy(out, data[pos:pos+l])
		pos += l
		return out, nil
	}

	switch kind {
	case KindNone:
		return None{}, pos, nil
	case KindString:
		b, err := readBytes()
		if err != nil {
			return nil, 0, err
		}
		return String(b), pos, nil
	case KindBinary:
		b, err := readBytes()
		if err != nil {
			return nil, 0, err
		}
		return Binary(b), pos, nil
	case KindInteger, KindFloat:
		if len(data)-pos < 8 {
			return nil, 0, ErrTruncated
		}
		raw := binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
		if kind == KindInteger {
			return Integer(int64(raw)), pos, nil
		}
		return Float(math.Float64frombits(raw)), pos, nil
	case KindBoolean:
		if len(data)-pos < 1 {
			return nil, 0, ErrTruncated
		}
		return Boolean(data[pos] == 1), pos + 1, nil
	case KindList:
		count, err := readLen()
		if err != nil {
			return nil, 0, err
		}
		list := make(List, 0, min(count, len(data)))
		for i := 0; i < count; i++ {
			e, n, err := readBinary(data[pos:])
			if err != nil {
				return nil, 0, err
			}
			pos += n
			list = append(list, e)
		}
		return list, pos, nil
	case KindTuple:
		var t Tuple
		for i := 0; i < 2; i++ {
			e, n, err := readBinary(data[pos:])
			if err != nil {
				return nil, 0, err
			}
			pos += n
			t[i] = e
		}
		return t, pos, nil
	case KindDict:
		count, err := readLen()
		if err != nil {
			return nil, 0, err
		}
		d := make(Dict, min(count, len(data)))
		for i := 0; i < count; i++ {
			k, err := readBytes()
			if err != nil {
				return nil, 0, err
			}
			e, n, err := readBinary(data[pos:])
			if err != nil {
				return nil, 0, err
			}
			pos += n
			d[string(k)] = e
		}
		return d, pos, nil
	default:
		return nil, 0, fmt.Errorf("unknown value kind %d", kind)
	}
}
