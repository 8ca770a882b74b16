package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Frame State
// --------------------------------------------------------------------------

// State is the status carried by every frame.
type State uint8

const (
	StateOK     State = iota // command succeeded
	StateErr                 // command failed, the body holds the message
	StateEmpty               // no payload, ends the session when sent by a client
	StateNoAuth              // the session is not authenticated
)

// String returns the wire representation of a State.
func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateErr:
		return "ERR"
	case StateEmpty:
		return "EMPTY"
	case StateNoAuth:
		return "NOAUTH"
	default:
		return "UNKNOWN"
	}
}

// ParseState converts the wire representation back into a State.
// Unknown or missing states decode as StateEmpty.
func ParseState(s string) State {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OK":
		return StateOK
	case "ERR":
		return StateErr
	case "NOAUTH":
		return StateNoAuth
	default:
		return StateEmpty
	}
}

// MarshalJSON implements the json.Marshaller interface for State.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for State.
func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ParseState(str)
	return nil
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Operation is one of the commands understood by the server.
type Operation uint8

const (
	OpGet Operation = iota
	OpSet
	OpDelete
	OpClean
	OpSelect
	OpSearch
	OpInfo
	OpEdit
	OpPing
	OpEcho
	OpEval
	OpAuth
)

// Unbounded marks an operation without an upper argument limit.
const Unbounded = -1

type opSpec struct {
	name     string
	min, max int
}

var operations = [...]opSpec{
	OpGet:    {"GET", 1, 1},
	OpSet:    {"SET", 2, Unbounded},
	OpDelete: {"DELETE", 1, 1},
	OpClean:  {"CLEAN", 0, 1},
	OpSelect: {"SELECT", 1, 1},
	OpSearch: {"SEARCH", 1, Unbounded},
	OpInfo:   {"INFO", 1, 3},
	OpEdit:   {"EDIT", 2, Unbounded},
	OpPing:   {"PING", 0, 0},
	OpEcho:   {"ECHO", 1, Unbounded},
	OpEval:   {"EVAL", 1, Unbounded},
	OpAuth:   {"AUTH", 1, 1},
}

// Operations returns all operations in declaration order.
func Operations() []Operation {
	ops := make([]Operation, len(operations))
	for i := range operations {
		ops[i] = Operation(i)
	}
	return ops
}

// String returns the command name of an Operation.
func (o Operation) String() string {
	if int(o) < len(operations) {
		return operations[o].name
	}
	return "UNKNOWN"
}

// Arity returns the minimum and maximum number of arguments. A maximum of
// Unbounded means there is no upper limit.
func (o Operation) Arity() (min, max int) {
	spec := operations[o]
	return spec.min, spec.max
}

// ParseOperation resolves a command name case-insensitively.
func ParseOperation(name string) (Operation, bool) {
	for i, spec := range operations {
		if strings.EqualFold(spec.name, name) {
			return Operation(i), true
		}
	}
	return 0, false
}

// MarshalJSON implements the json.Marshaller interface for Operation.
func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

// Command is a tokenized request.
type Command struct {
	Op   Operation
	Args []string
}

// CommandError is returned for requests that cannot be dispatched.
type CommandError struct {
	Msg string
}

func (e *CommandError) Error() string {
	return e.Msg
}

// ParseCommand tokenizes a request on whitespace and validates the operation
// and its arity. An empty request yields ok == false and a nil error.
func ParseCommand(text string) (cmd Command, ok bool, err error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Command{}, false, nil
	}

	op, known := ParseOperation(tokens[0])
	if !known {
		return Command{}, true, &CommandError{Msg: fmt.Sprintf("Command `%s` not found", tokens[0])}
	}

	args := tokens[1:]
	min, max := op.Arity()
	if len(args) < min {
		return Command{}, true, &CommandError{Msg: "Missing command parameters"}
	}
	if max != Unbounded && len(args) > max {
		return Command{}, true, &CommandError{Msg: "Exceeding parameter limits"}
	}

	return Command{Op: op, Args: args}, true, nil
}

// String renders the command back into request text.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Op.String()
	}
	return c.Op.String() + " " + strings.Join(c.Args, " ")
}
