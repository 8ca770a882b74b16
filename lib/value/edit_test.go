package value

import (
	"errors"
	"testing"
)

func TestIncr(t *testing.T) {
	got, err := Incr(List{Integer(1), Float(1.5), String("x"), Tuple{Integer(0), Integer(9)}}, 2)
	if err != nil {
		t.Fatalf("Incr returned error: %v", err)
	}
	want := List{Integer(3), Float(3.5), String("x"), Tuple{Integer(2), Integer(11)}}
	if !Equal(got, want) {
		t.Errorf("got %s, want %s", Encode(got), Encode(want))
	}

	if _, err := Incr(String("x"), 1); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestInsert(t *testing.T) {
	list := List{String("foo"), String("bar"), String("sam")}

	got, _ := Insert(list, String("dor"), "1")
	want := List{String("foo"), String("dor"), String("bar"), String("sam")}
	if !Equal(got, want) {
		t.Errorf("list insert: got %s", Encode(got))
	}

	got, _ = Insert(list, String("end"), "")
	if l := got.(List); len(l) != 4 || !Equal(l[3], String("end")) {
		t.Errorf("list append: got %s", Encode(got))
	}
	if len(list) != 3 {
		t.Error("Insert modified its input")
	}

	got, _ = Insert(Dict{}, Integer(1), "k")
	if !Equal(got, Dict{"k": Integer(1)}) {
		t.Errorf("dict insert: got %s", Encode(got))
	}
	if _, err := Insert(Dict{}, Integer(1), ""); err == nil {
		t.Error("dict insert without key should fail")
	}

	got, _ = Insert(Tuple{Integer(1), Integer(2)}, Integer(5), "1")
	if !Equal(got, Tuple{Integer(1), Integer(5)}) {
		t.Errorf("tuple insert: got %s", Encode(got))
	}

	got, _ = Insert(String("ab"), String("cd"), "")
	if !Equal(got, String("abcd")) {
		t.Errorf("string insert: got %s", Encode(got))
	}

	if _, err := Insert(Integer(1), Integer(2), ""); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	got, _ := Remove(List{Integer(1), Integer(2), Integer(3)}, "1")
	if !Equal(got, List{Integer(1), Integer(3)}) {
		t.Errorf("list remove: got %s", Encode(got))
	}

	got, _ = Remove(List{Integer(1)}, "7")
	if !Equal(got, List{Integer(1)}) {
		t.Errorf("list remove out of range: got %s", Encode(got))
	}

	got, _ = Remove(Dict{"a": None{}, "b": None{}}, "a")
	if !Equal(got, Dict{"b": None{}}) {
		t.Errorf("dict remove: got %s", Encode(got))
	}

	got, _ = Remove(Tuple{Integer(1), Integer(2)}, "0")
	if !Equal(got, Tuple{None{}, Integer(2)}) {
		t.Errorf("tuple remove: got %s", Encode(got))
	}
}

func TestPushPop(t *testing.T) {
	got, err := Push(List{}, Integer(1))
	if err != nil || !Equal(got, List{Integer(1)}) {
		t.Fatalf("push: got %v, %v", got, err)
	}

	list, popped, err := Pop(got)
	if err != nil {
		t.Fatalf("pop returned error: %v", err)
	}
	if !Equal(list, List{}) || !Equal(popped, Integer(1)) {
		t.Errorf("pop: got %s and %s", Encode(list), Encode(popped))
	}

	_, popped, _ = Pop(List{})
	if !Equal(popped, None{}) {
		t.Errorf("pop on empty list should return None, got %s", Encode(popped))
	}

	if _, err := Push(Dict{}, Integer(1)); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestSortReverse(t *testing.T) {
	list := List{Integer(3), Float(1.5), Integer(2)}

	asc, _ := Sort(list, false)
	if !Equal(asc, List{Float(1.5), Integer(2), Integer(3)}) {
		t.Errorf("sort asc: got %s", Encode(asc))
	}

	desc, _ := Sort(List{String("a"), String("c"), String("b")}, true)
	if !Equal(desc, List{String("c"), String("b"), String("a")}) {
		t.Errorf("sort desc: got %s", Encode(desc))
	}

	rev, _ := Reverse(list)
	if !Equal(rev, List{Integer(2), Float(1.5), Integer(3)}) {
		t.Errorf("reverse: got %s", Encode(rev))
	}

	rev, _ = Reverse(String("héllo"))
	if !Equal(rev, String("olléh")) {
		t.Errorf("reverse string: got %s", Encode(rev))
	}

	if _, err := Sort(Integer(1), false); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}
