package value

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestParseConstructors(t *testing.T) {
	tests := []struct {
		input string
		want  DataValue
	}{
		{`None`, None{}},
		{`String("bar")`, String("bar")},
		{`String(bar)`, String("bar")},
		{`String("a, b")`, String("a, b")},
		{`String("line\nbreak")`, String("line\nbreak")},
		{`Integer(3)`, Integer(3)},
		{`Integer(-9223372036854775808)`, Integer(math.MinInt64)},
		{`Float(3.5)`, Float(3.5)},
		{`Boolean(true)`, Boolean(true)},
		{`Boolean(TRUE)`, Boolean(true)},
		{`Boolean(yes)`, Boolean(false)},
		{`List([])`, List{}},
		{`List([Integer(1), String("x")])`, List{Integer(1), String("x")}},
		{`List([List([Integer(1)]), Tuple((Integer(1), Integer(2)))])`, List{List{Integer(1)}, Tuple{Integer(1), Integer(2)}}},
		{`Tuple((String("k"), Float(1.5)))`, Tuple{String("k"), Float(1.5)}},
		{`Dict({"a":"1","b":"2"})`, Dict{"a": String("1"), "b": String("2")}},
		{`Binary(AAEC)`, Binary{0, 1, 2}},
		{`Binary([0, 1, 255])`, Binary{0, 1, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("Parse(%q) = %s, want %s", tt.input, Encode(got), Encode(tt.want))
			}
		})
	}
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  DataValue
	}{
		{`"text"`, String("text")},
		{`'text'`, String("text")},
		{`42`, Integer(42)},
		{`1.25`, Float(1.25)},
		{`true`, Boolean(true)},
		{`null`, None{}},
		{`[1, "a"]`, List{Integer(1), String("a")}},
		{`{"k":"v"}`, Dict{"k": String("v")}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.input, err)
			continue
		}
		if !Equal(got, tt.want) {
			t.Errorf("Parse(%q) = %s, want %s", tt.input, Encode(got), Encode(tt.want))
		}
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"",
		"Integer(abc)",
		"Integer(99999999999999999999)",
		"Float(x)",
		"Tuple((Integer(1)))",
		"Tuple((Integer(1), Integer(2), Integer(3)))",
		"List(Integer(1))",
		`Dict({"a":{"b":"c"}})`,
		"Binary(!!)",
		"Unknown(1)",
		"bareword",
	}

	for _, input := range inputs {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Parse(%q) expected error", input)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q) error %v is not a *ParseError", input, err)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	values := []DataValue{
		None{},
		String(""),
		String(`quote " and ) paren`),
		Integer(-17),
		Float(0.1),
		Float(1e300),
		Boolean(false),
		List{Integer(1), List{String("nested, with comma")}, None{}},
		Tuple{Binary{1, 2, 3}, Boolean(true)},
		Dict{"x": String("y"), "z": String("")},
		Binary{},
	}

	for _, v := range values {
		text := Encode(v)
		got, err := Parse(text)
		if err != nil {
			t.Errorf("Parse(Encode(%s)) returned error: %v", text, err)
			continue
		}
		if !Equal(got, v) {
			t.Errorf("round trip mismatch: %s -> %s", text, Encode(got))
		}
		if again := Encode(got); again != text {
			t.Errorf("encoding not stable: %s != %s", again, text)
		}
	}
}

func TestEncodeNestedDictIsFlattened(t *testing.T) {
	v := Dict{"n": Integer(1)}
	got, err := Parse(Encode(v))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := Dict{"n": String("Integer(1)")}
	if !Equal(got, want) {
		t.Errorf("got %s, want %s", Encode(got), Encode(want))
	}
}

func TestBinaryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	if err := os.WriteFile(path, []byte{9, 8, 7}, 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := BinaryFromFile(path)
	if err != nil {
		t.Fatalf("BinaryFromFile returned error: %v", err)
	}
	if !Equal(b, Binary{9, 8, 7}) {
		t.Errorf("unexpected content %v", b)
	}

	if _, err := BinaryFromFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMarshalBinaryLossless(t *testing.T) {
	v := List{
		Dict{"inner": List{Integer(1), Float(math.Inf(1))}, "t": Tuple{None{}, String("s")}},
		Binary{0, 255},
		Boolean(true),
	}

	data := MarshalBinary(v)
	got, err := UnmarshalBinary(data)
	if err != nil {
		t.Fatalf("UnmarshalBinary returned error: %v", err)
	}
	if !Equal(got, v) {
		t.Errorf("binary round trip mismatch: %s", Encode(got))
	}

	for i := 0; i < len(data); i++ {
		if _, err := UnmarshalBinary(data[:i]); err == nil {
			t.Fatalf("expected error for truncated input of length %d", i)
		}
	}

	if _, err := UnmarshalBinary(append(data, 0)); err == nil {
		t.Error("expected error for trailing bytes")
	}
}

func TestJSON(t *testing.T) {
	v := Dict{"a": List{Integer(1), Float(2.5), Boolean(true), None{}}, "b": String("x")}

	data, err := ToJSON(v)
	if err != nil {
		t.Fatalf("ToJSON returned error: %v", err)
	}
	if string(data) != `{"a":[1,2.5,true,null],"b":"x"}` {
		t.Errorf("unexpected json %s", data)
	}

	back, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON returned error: %v", err)
	}
	if !Equal(back, v) {
		t.Errorf("json round trip mismatch: %s", Encode(back))
	}

	if _, err := FromJSON([]byte("{")); err == nil {
		t.Error("expected error for invalid json")
	}
}
