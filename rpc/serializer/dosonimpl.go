package serializer

import "github.com/ValentinKolb/dorea/lib/value"

// NewDosonSerializer creates a serializer using the constructor notation,
// e.g. List([Integer(1), String("a")])
func NewDosonSerializer() IValueSerializer {
	return &dosonSerializerImpl{}
}

// dosonSerializerImpl implements the IValueSerializer interface using the value codec
type dosonSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IValueSerializer)
// --------------------------------------------------------------------------

func (d dosonSerializerImpl) Name() string {
	return "doson"
}

func (d dosonSerializerImpl) Serialize(v value.DataValue) ([]byte, error) {
	return []byte(value.Encode(v)), nil
}

func (d dosonSerializerImpl) Deserialize(b []byte) (value.DataValue, error) {
	return value.Parse(string(b))
}
