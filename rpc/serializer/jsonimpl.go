package serializer

import "github.com/ValentinKolb/dorea/lib/value"

// NewJSONSerializer creates a new serializer using natural json encoding.
// Tuples and binary data do not survive a round trip.
func NewJSONSerializer() IValueSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IValueSerializer interface using json encoding
type jsonSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IValueSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Name() string {
	return "json"
}

func (j jsonSerializerImpl) Serialize(v value.DataValue) ([]byte, error) {
	return value.ToJSON(v)
}

func (j jsonSerializerImpl) Deserialize(b []byte) (value.DataValue, error) {
	return value.FromJSON(b)
}
