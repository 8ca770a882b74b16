package value

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// constructorPattern captures the type tag and the parenthesized payload
var constructorPattern = regexp.MustCompile(`(?s)^([A-Za-z]+)\((.*)\)$`)

// ParseError is returned when a value literal can not be decoded
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("value parse error: %s (input %q)", e.Reason, e.Input)
}

func parseErr(input, format string, args ...interface{}) error {
	return &ParseError{Input: input, Reason: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode renders a value in constructor notation, e.g. String("x") or
// List([Integer(1), Boolean(true)])
func Encode(v DataValue) string {
	var sb strings.Builder
	encodeTo(&sb, orNone(v))
	return sb.String()
}

func encodeTo(sb *strings.Builder, v DataValue) {
	switch val := v.(type) {
	case None:
		sb.WriteString("None")
	case String:
		sb.WriteString("String(")
		sb.WriteString(strconv.Quote(string(val)))
		sb.WriteByte(')')
	case Integer:
		sb.WriteString("Integer(")
		sb.WriteString(strconv.FormatInt(int64(val), 10))
		sb.WriteByte(')')
	case Float:
		sb.WriteString("Float(")
		sb.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
		sb.WriteByte(')')
	case Boolean:
		sb.WriteString("Boolean(")
		sb.WriteString(strconv.FormatBool(bool(val)))
		sb.WriteByte(')')
	case List:
		sb.WriteString("List([")
		for i, e := range val {
			if i > 0 {
				sb.WriteString(", ")
			}
			encodeTo(sb, orNone(e))
		}
		sb.WriteString("])")
	case Tuple:
		sb.WriteString("Tuple((")
		encodeTo(sb, orNone(val[0]))
		sb.WriteString(", ")
		encodeTo(sb, orNone(val[1]))
		sb.WriteString("))")
	case Dict:
		sb.WriteString("Dict(")
		sb.WriteString(flatDict(val))
		sb.WriteByte(')')
	case Binary:
		sb.WriteString("Binary(")
		sb.WriteString(base64.StdEncoding.EncodeToString(val))
		sb.WriteByte(')')
	}
}

// flatDict renders a dict as a flat JSON object of strings. Members that are
// not strings are rendered with their constructor text.
func flatDict(d Dict) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		member := ""
		if s, ok := d[k].(String); ok {
			member = string(s)
		} else {
			member = Encode(d[k])
		}
		kb, _ := json.Marshal(k)
		mb, _ := json.Marshal(member)
		sb.Write(kb)
		sb.WriteByte(':')
		sb.Write(mb)
	}
	sb.WriteByte('}')
	return sb.String()
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Parse decodes a value from constructor notation. Bare literals such as
// "text", 42, 1.5, true and none are accepted as well.
func Parse(text string) (DataValue, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, parseErr(text, "empty value")
	}

	if text == "None" || text == "None()" {
		return None{}, nil
	}

	m := constructorPattern.FindStringSubmatch(text)
	if m == nil {
		return parseLiteral(text)
	}
	tag, payload := m[1], strings.TrimSpace(m[2])

	switch strings.ToLower(tag) {
	case "none":
		return None{}, nil
	case "string":
		return String(unquote(payload)), nil
	case "integer":
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil, parseErr(text, "invalid integer %q", payload)
		}
		return Integer(n), nil
	case "float":
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return nil, parseErr(text, "invalid float %q", payload)
		}
		return Float(f), nil
	case "boolean":
		return Boolean(strings.EqualFold(payload, "true")), nil
	case "dict":
		return parseDict(text, payload)
	case "list":
		inner, ok := enclosed(payload, '[', ']')
		if !ok {
			return nil, parseErr(text, "list payload must be enclosed in []")
		}
		return parseSequence(inner)
	case "tuple":
		inner, ok := enclosed(payload, '(', ')')
		if !ok {
			return nil, parseErr(text, "tuple payload must be enclosed in ()")
		}
		elems, err := parseSequence(inner)
		if err != nil {
			return nil, err
		}
		if len(elems) != 2 {
			return nil, parseErr(text, "tuple needs exactly two elements, got %d", len(elems))
		}
		return Tuple{elems[0], elems[1]}, nil
	case "binary":
		return parseBinary(text, payload)
	default:
		return nil, parseErr(text, "unknown type %q", tag)
	}
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(text string) DataValue {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

func parseDict(text, payload string) (DataValue, error) {
	flat := map[string]string{}
	if err := json.Unmarshal([]byte(payload), &flat); err != nil {
		return nil, parseErr(text, "dict payload must be a flat json object of strings")
	}
	d := make(Dict, len(flat))
	for k, v := range flat {
		d[k] = String(v)
	}
	return d, nil
}

func parseBinary(text, payload string) (DataValue, error) {
	// byte list form: Binary([1, 2, 3])
	if inner, ok := enclosed(payload, '[', ']'); ok {
		parts := splitTopLevel(inner)
		out := make(Binary, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.ParseUint(p, 10, 8)
			if err != nil {
				return nil, parseErr(text, "invalid byte %q", p)
			}
			out = append(out, byte(n))
		}
		return out, nil
	}

	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, parseErr(text, "invalid base64 payload")
	}
	return Binary(b), nil
}

// parseSequence parses the comma separated elements of a list or tuple
func parseSequence(inner string) (List, error) {
	parts := splitTopLevel(inner)
	out := make(List, 0, len(parts))
	for _, p := range parts {
		v, err := Parse(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseLiteral handles values written without a type tag
func parseLiteral(text string) (DataValue, error) {
	lower := strings.ToLower(text)
	switch {
	case lower == "none" || lower == "null":
		return None{}, nil
	case lower == "true" || lower == "false":
		return Boolean(lower == "true"), nil
	case isQuoted(text, '"') || isQuoted(text, '\''):
		return String(unquote(text)), nil
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Integer(n), nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return Float(f), nil
	}
	if inner, ok := enclosed(text, '[', ']'); ok {
		return parseSequence(inner)
	}
	if strings.HasPrefix(text, "{") {
		return parseDict(text, text)
	}
	return nil, parseErr(text, "unrecognized value")
}

// --------------------------------------------------------------------------
// Lexical helpers
// --------------------------------------------------------------------------

func isQuoted(s string, q byte) bool {
	return len(s) >= 2 && s[0] == q && s[len(s)-1] == q
}

// unquote strips surrounding quotes. Go escape sequences are resolved when
// the literal is a valid quoted string, otherwise the quotes are just removed.
func unquote(s string) string {
	if isQuoted(s, '"') {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	if isQuoted(s, '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

func enclosed(s string, open, close byte) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != open || s[len(s)-1] != close {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// splitTopLevel splits on commas that are neither nested in brackets nor
// inside a quoted string
func splitTopLevel(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var parts []string
	depth := 0
	inQuote := false
	escaped := false
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
