package value

import (
	"bytes"
	"os"
	"strings"
)

// --------------------------------------------------------------------------
// Kinds
// --------------------------------------------------------------------------

// Kind identifies the variant of a DataValue
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindList
	KindDict
	KindTuple
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindString:
		return "String"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	case KindList:
		return "List"
	case KindDict:
		return "Dict"
	case KindTuple:
		return "Tuple"
	case KindBinary:
		return "Binary"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// DataValue variants
// --------------------------------------------------------------------------

// DataValue is the closed set of values stored in a group.
// Only the types declared in this package implement it.
type DataValue interface {
	Kind() Kind
	isDataValue()
}

type (
	// None is the absent value
	None struct{}
	// String holds text
	String string
	// Integer holds a 64-bit signed integer
	Integer int64
	// Float holds a 64-bit float
	Float float64
	// Boolean holds true or false
	Boolean bool
	// List is an ordered sequence of values
	List []DataValue
	// Dict maps unique keys to values
	Dict map[string]DataValue
	// Tuple holds exactly two values
	Tuple [2]DataValue
	// Binary is an opaque byte blob
	Binary []byte
)

func (None) Kind() Kind    { return KindNone }
func (String) Kind() Kind  { return KindString }
func (Integer) Kind() Kind { return KindInteger }
func (Float) Kind() Kind   { return KindFloat }
func (Boolean) Kind() Kind { return KindBoolean }
func (List) Kind() Kind    { return KindList }
func (Dict) Kind() Kind    { return KindDict }
func (Tuple) Kind() Kind   { return KindTuple }
func (Binary) Kind() Kind  { return KindBinary }

func (None) isDataValue()    {}
func (String) isDataValue()  {}
func (Integer) isDataValue() {}
func (Float) isDataValue()   {}
func (Boolean) isDataValue() {}
func (List) isDataValue()    {}
func (Dict) isDataValue()    {}
func (Tuple) isDataValue()   {}
func (Binary) isDataValue()  {}

// BinaryFromFile builds a Binary value from the contents of a file
func BinaryFromFile(path string) (Binary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Binary(data), nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// orNone maps a nil interface to None so callers never see nil values
func orNone(v DataValue) DataValue {
	if v == nil {
		return None{}
	}
	return v
}

// Equal reports whether two values are structurally equal.
// A nil value is treated as None.
func Equal(a, b DataValue) bool {
	a, b = orNone(a), orNone(b)
	if a.Kind() != b.Kind() {
		return false
	}

	switch av := a.(type) {
	case None:
		return true
	case String:
		return av == b.(String)
	case Integer:
		return av == b.(Integer)
	case Float:
		bv := b.(Float)
		// NaN is equal to itself here, values must be comparable after a round trip
		return av == bv || (av != av && bv != bv)
	case Boolean:
		return av == b.(Boolean)
	case Binary:
		return bytes.Equal(av, b.(Binary))
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Tuple:
		bv := b.(Tuple)
		return Equal(av[0], bv[0]) && Equal(av[1], bv[1])
	case Dict:
		bv := b.(Dict)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two values. Integers and floats compare numerically with each
// other, strings lexically, booleans false < true. The second return value is
// false if the values are not comparable.
func Compare(a, b DataValue) (int, bool) {
	a, b = orNone(a), orNone(b)

	if af, ok := numeric(a); ok {
		bf, ok := numeric(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(av), string(bv)), true
	case Boolean:
		bv, ok := b.(Boolean)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !bool(av):
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func numeric(v DataValue) (float64, bool) {
	switch n := v.(type) {
	case Integer:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

// Weight returns the approximate in-memory size of a value in bytes
func Weight(v DataValue) int {
	switch val := orNone(v).(type) {
	case None:
		return 1
	case String:
		return len(val) + 16
	case Integer, Float:
		return 8
	case Boolean:
		return 1
	case Binary:
		return len(val) + 24
	case List:
		size := 24
		for _, e := range val {
			size += Weight(e)
		}
		return size
	case Tuple:
		return Weight(val[0]) + Weight(val[1])
	case Dict:
		size := 48
		for k, e := range val {
			size += len(k) + 16 + Weight(e)
		}
		return size
	}
	return 0
}
