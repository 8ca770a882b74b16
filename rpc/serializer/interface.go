package serializer

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dorea/lib/value"
)

// IValueSerializer renders values into reply bodies and reads them back.
// Requests always carry values in constructor notation, the serializer only
// decides how values leave the server.
type IValueSerializer interface {
	// Name returns the style name used in the configuration (e.g. "doson")
	Name() string
	// Serialize renders a value
	Serialize(v value.DataValue) ([]byte, error)
	// Deserialize reads a value rendered by Serialize
	Deserialize(b []byte) (value.DataValue, error)
}

// Styles returns the names of all available serializers
func Styles() []string {
	return []string{"doson", "json", "binary"}
}

// New returns the serializer for a style name
func New(style string) (IValueSerializer, error) {
	switch strings.ToLower(style) {
	case "", "doson":
		return NewDosonSerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	case "binary":
		return NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("unknown value style %q (expected one of %s)", style, strings.Join(Styles(), ", "))
	}
}
