package value

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ToJSON renders a value as natural JSON. Tuples become two element arrays
// and binary data is base64 encoded, so the rendering is not reversible for
// those kinds.
func ToJSON(v DataValue) ([]byte, error) {
	return json.Marshal(toNative(orNone(v)))
}

func toNative(v DataValue) interface{} {
	switch val := v.(type) {
	case None:
		return nil
	case String:
		return string(val)
	case Integer:
		return int64(val)
	case Float:
		return float64(val)
	case Boolean:
		return bool(val)
	case Binary:
		return []byte(val)
	case List:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = toNative(orNone(e))
		}
		return out
	case Tuple:
		return []interface{}{toNative(orNone(val[0])), toNative(orNone(val[1]))}
	case Dict:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = toNative(orNone(e))
		}
		return out
	}
	return nil
}

// FromJSON builds a value from a JSON document. Numbers without fraction or
// exponent become Integer, all other numbers Float.
func FromJSON(data []byte) (DataValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Input: string(data), Reason: err.Error()}
	}
	return fromNative(raw), nil
}

func fromNative(raw interface{}) DataValue {
	switch val := raw.(type) {
	case nil:
		return None{}
	case string:
		return String(val)
	case bool:
		return Boolean(val)
	case json.Number:
		if n, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return Integer(n)
		}
		f, _ := val.Float64()
		return Float(f)
	case []interface{}:
		out := make(List, len(val))
		for i, e := range val {
			out[i] = fromNative(e)
		}
		return out
	case map[string]interface{}:
		out := make(Dict, len(val))
		for k, e := range val {
			out[k] = fromNative(e)
		}
		return out
	}
	return None{}
}
