package value

import (
	"errors"
	"sort"
	"strconv"
)

// ErrUnsupportedKind is returned when an edit operation does not apply to the value's kind
var ErrUnsupportedKind = errors.New("operation not supported for this data struct")

// --------------------------------------------------------------------------
// Edit operations
//
// All operations are pure: they never modify their input and return a new value.
// --------------------------------------------------------------------------

// Incr adds delta to a number. Compound values are walked recursively and every
// number inside is incremented, other members stay untouched.
func Incr(v DataValue, delta int64) (DataValue, error) {
	switch val := orNone(v).(type) {
	case Integer, Float, List, Dict, Tuple:
		return incr(val, delta), nil
	default:
		return nil, ErrUnsupportedKind
	}
}

func incr(v DataValue, delta int64) DataValue {
	switch val := orNone(v).(type) {
	case Integer:
		return val + Integer(delta)
	case Float:
		return val + Float(delta)
	case List:
		out := make(List, len(val))
		for i, e := range val {
			out[i] = incr(e, delta)
		}
		return out
	case Dict:
		out := make(Dict, len(val))
		for k, e := range val {
			out[k] = incr(e, delta)
		}
		return out
	case Tuple:
		return Tuple{incr(val[0], delta), incr(val[1], delta)}
	default:
		return val
	}
}

// Insert adds elem to a container.
//   - List: inserted before index pos, appended if pos is empty or out of range
//   - Dict: stored under key pos (pos must not be empty)
//   - Tuple: replaces slot 0 or 1
//   - String: elem's text is appended (String elements only)
func Insert(v DataValue, elem DataValue, pos string) (DataValue, error) {
	elem = orNone(elem)

	switch val := orNone(v).(type) {
	case List:
		idx, err := strconv.Atoi(pos)
		out := make(List, 0, len(val)+1)
		if pos == "" || err != nil || idx < 0 || idx >= len(val) {
			out = append(out, val...)
			return append(out, elem), nil
		}
		out = append(out, val[:idx]...)
		out = append(out, elem)
		return append(out, val[idx:]...), nil
	case Dict:
		if pos == "" {
			return nil, errors.New("dict insert requires a key")
		}
		out := copyDict(val)
		out[pos] = elem
		return out, nil
	case Tuple:
		switch pos {
		case "0":
			return Tuple{elem, val[1]}, nil
		case "1":
			return Tuple{val[0], elem}, nil
		default:
			return nil, errors.New("tuple index must be 0 or 1")
		}
	case String:
		s, ok := elem.(String)
		if !ok {
			return nil, ErrUnsupportedKind
		}
		return val + s, nil
	default:
		return nil, ErrUnsupportedKind
	}
}

// Remove deletes a member. Lists are addressed by index, dicts by key and
// tuples by slot (the slot becomes None). Unknown indexes or keys leave the
// value unchanged.
func Remove(v DataValue, pos string) (DataValue, error) {
	switch val := orNone(v).(type) {
	case List:
		idx, err := strconv.Atoi(pos)
		if err != nil || idx < 0 || idx >= len(val) {
			return val, nil
		}
		out := make(List, 0, len(val)-1)
		out = append(out, val[:idx]...)
		return append(out, val[idx+1:]...), nil
	case Dict:
		out := copyDict(val)
		delete(out, pos)
		return out, nil
	case Tuple:
		switch pos {
		case "0":
			return Tuple{None{}, val[1]}, nil
		case "1":
			return Tuple{val[0], None{}}, nil
		}
		return val, nil
	default:
		return nil, ErrUnsupportedKind
	}
}

// Push appends elem to a list
func Push(v DataValue, elem DataValue) (DataValue, error) {
	list, ok := orNone(v).(List)
	if !ok {
		return nil, ErrUnsupportedKind
	}
	out := make(List, 0, len(list)+1)
	out = append(out, list...)
	return append(out, orNone(elem)), nil
}

// Pop removes the last element of a list and returns the new list and the
// removed element (None if the list was empty)
func Pop(v DataValue) (DataValue, DataValue, error) {
	list, ok := orNone(v).(List)
	if !ok {
		return nil, nil, ErrUnsupportedKind
	}
	if len(list) == 0 {
		return List{}, None{}, nil
	}
	out := make(List, len(list)-1)
	copy(out, list[:len(list)-1])
	return out, orNone(list[len(list)-1]), nil
}

// Sort orders a list ascending (or descending). Elements that can not be
// compared with each other keep their relative order.
func Sort(v DataValue, desc bool) (DataValue, error) {
	list, ok := orNone(v).(List)
	if !ok {
		return nil, ErrUnsupportedKind
	}
	out := make(List, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		c, ok := Compare(out[i], out[j])
		if !ok {
			return false
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

// Reverse reverses a list or string and swaps the slots of a tuple
func Reverse(v DataValue) (DataValue, error) {
	switch val := orNone(v).(type) {
	case List:
		out := make(List, len(val))
		for i, e := range val {
			out[len(val)-1-i] = e
		}
		return out, nil
	case Tuple:
		return Tuple{val[1], val[0]}, nil
	case String:
		r := []rune(string(val))
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return String(r), nil
	default:
		return nil, ErrUnsupportedKind
	}
}

func copyDict(d Dict) Dict {
	out := make(Dict, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}
