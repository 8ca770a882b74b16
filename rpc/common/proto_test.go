package common

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		op      Operation
		args    int
		wantErr string
	}{
		{"get", "get foo", OpGet, 1, ""},
		{"mixed case", "SeLeCt g1", OpSelect, 1, ""},
		{"set with spaces", "SET k List([1, 2])", OpSet, 3, ""},
		{"clean no args", "clean", OpClean, 0, ""},
		{"ping", "  PING  ", OpPing, 0, ""},
		{"tabs", "info\tcurrent", OpInfo, 1, ""},
		{"unknown", "FOO bar", 0, 0, "Command `FOO` not found"},
		{"missing", "GET", 0, 0, "Missing command parameters"},
		{"too many", "GET a b", 0, 0, "Exceeding parameter limits"},
		{"ping with arg", "PING x", 0, 0, "Exceeding parameter limits"},
		{"info limit", "INFO a b c d", 0, 0, "Exceeding parameter limits"},
		{"edit missing op", "EDIT k", 0, 0, "Missing command parameters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok, err := ParseCommand(tt.in)
			if !ok {
				t.Fatalf("ParseCommand(%q) reported an empty request", tt.in)
			}
			if tt.wantErr != "" {
				var cmdErr *CommandError
				if !errors.As(err, &cmdErr) || cmdErr.Msg != tt.wantErr {
					t.Fatalf("expected %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Op != tt.op || len(cmd.Args) != tt.args {
				t.Errorf("got %s with %d args", cmd.Op, len(cmd.Args))
			}
		})
	}

	for _, in := range []string{"", "   ", "\r\n"} {
		if _, ok, err := ParseCommand(in); ok || err != nil {
			t.Errorf("ParseCommand(%q) should report an empty request", in)
		}
	}
}

func TestArityTable(t *testing.T) {
	want := map[Operation][2]int{
		OpGet: {1, 1}, OpSet: {2, -1}, OpDelete: {1, 1}, OpClean: {0, 1},
		OpSelect: {1, 1}, OpSearch: {1, -1}, OpInfo: {1, 3}, OpEdit: {2, -1},
		OpPing: {0, 0}, OpEcho: {1, -1}, OpEval: {1, -1}, OpAuth: {1, 1},
	}
	if len(Operations()) != len(want) {
		t.Fatalf("expected %d operations, got %d", len(want), len(Operations()))
	}
	for _, op := range Operations() {
		min, max := op.Arity()
		if w := want[op]; w[0] != min || w[1] != max {
			t.Errorf("%s arity = (%d, %d), want (%d, %d)", op, min, max, w[0], w[1])
		}
		parsed, ok := ParseOperation(op.String())
		if !ok || parsed != op {
			t.Errorf("ParseOperation(%s) = %v, %v", op, parsed, ok)
		}
	}
}

func TestState(t *testing.T) {
	for _, s := range []State{StateOK, StateErr, StateEmpty, StateNoAuth} {
		if ParseState(s.String()) != s {
			t.Errorf("ParseState(%s) did not round trip", s)
		}
		data, _ := json.Marshal(s)
		var back State
		if err := json.Unmarshal(data, &back); err != nil || back != s {
			t.Errorf("JSON round trip of %s gave %s (%v)", s, back, err)
		}
	}
	if ParseState("") != StateEmpty || ParseState("weird") != StateEmpty {
		t.Errorf("unknown states should decode as EMPTY")
	}
	if ParseState(" ok ") != StateOK {
		t.Errorf("ParseState should ignore case and spaces")
	}
}
