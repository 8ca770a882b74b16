package serializer

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/dorea/lib/value"
)

// benchmarkValues returns a set of values for targeted benchmarking
func benchmarkValues() map[string]value.DataValue {
	large := make(value.List, 0, 1000)
	for i := 0; i < 1000; i++ {
		large = append(large, value.String(fmt.Sprintf("item-%d", i)))
	}

	dict := value.Dict{}
	for i := 0; i < 100; i++ {
		dict[fmt.Sprintf("key-%d", i)] = value.String("medium length value for testing serialization")
	}

	return map[string]value.DataValue{
		"Integer":   value.Integer(42),
		"String":    value.String("medium length value for testing serialization"),
		"SmallList": value.List{value.Integer(1), value.Float(2.5), value.Boolean(true)},
		"LargeList": large,
		"Dict":      dict,
	}
}

func BenchmarkSerialize(b *testing.B) {
	for name, factory := range testSerializers {
		s := factory()
		for valueName, v := range benchmarkValues() {
			b.Run(name+"/"+valueName, func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := s.Serialize(v); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkDeserialize(b *testing.B) {
	for name, factory := range testSerializers {
		s := factory()
		for valueName, v := range benchmarkValues() {
			data, err := s.Serialize(v)
			if err != nil {
				b.Fatal(err)
			}
			b.Run(name+"/"+valueName, func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(data)))
				for i := 0; i < b.N; i++ {
					if _, err := s.Deserialize(data); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
