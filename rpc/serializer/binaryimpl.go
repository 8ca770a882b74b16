package serializer

import "github.com/ValentinKolb/dorea/lib/value"

// NewBinarySerializer creates a new serializer using the lossless tagged
// binary encoding of the storage files
func NewBinarySerializer() IValueSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements the IValueSerializer interface using a custom binary format
type binarySerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IValueSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Name() string {
	return "binary"
}

func (b binarySerializerImpl) Serialize(v value.DataValue) ([]byte, error) {
	return value.MarshalBinary(v), nil
}

func (b binarySerializerImpl) Deserialize(data []byte) (value.DataValue, error) {
	return value.UnmarshalBinary(data)
}
