package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dorea/lib/db"
	"github.com/ValentinKolb/dorea/lib/store/lstore"
	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/ValentinKolb/dorea/rpc/common"
)

// editError is returned by edit operations and sent to the client as is
type editError struct {
	msg string
}

func (e *editError) Error() string {
	return e.msg
}

func editErr(format string, args ...interface{}) error {
	return &editError{msg: fmt.Sprintf(format, args...)}
}

func requireArgs(args []string, min, max int) error {
	if len(args) < min {
		return editErr("Missing command parameters")
	}
	if len(args) > max {
		return editErr("Exceeding parameter limits")
	}
	return nil
}

// edit handles EDIT <key> <op> [args...]. The key may be prefixed with @.
// The whole operation runs under the manager lock.
func (sess *session) edit(args []string) (common.State, []byte) {
	key := strings.TrimPrefix(args[0], "@")
	op, opArgs := strings.ToLower(args[1]), args[2:]
	if key == "" {
		return replyErr(msgUnknownOp)
	}

	m := sess.server.manager
	var popped value.DataValue

	err := m.Update(sess.currentGroup, key, func(entry *db.Entry) error {
		var (
			result value.DataValue
			err    error
		)

		switch op {
		case "incr":
			if err := requireArgs(opArgs, 0, 1); err != nil {
				return err
			}
			delta := int64(1)
			if len(opArgs) == 1 {
				if delta, err = strconv.ParseInt(opArgs[0], 10, 64); err != nil {
					return editErr(msgValueParse)
				}
			}
			result, err = value.Incr(entry.Value, delta)

		case "expire":
			if err := requireArgs(opArgs, 1, 1); err != nil {
				return err
			}
			expireAt, aerr := adjustExpiry(entry, opArgs[0], m.Now().UnixMilli())
			if aerr != nil {
				return aerr
			}
			entry.ExpireAt = expireAt
			return nil

		case "insert":
			if err := requireArgs(opArgs, 1, 2); err != nil {
				return err
			}
			elem, perr := value.Parse(opArgs[0])
			if perr != nil {
				return editErr(msgValueParse)
			}
			pos := ""
			if len(opArgs) == 2 {
				pos = opArgs[1]
			}
			result, err = value.Insert(entry.Value, elem, pos)

		case "remove":
			if err := requireArgs(opArgs, 1, 1); err != nil {
				return err
			}
			result, err = value.Remove(entry.Value, opArgs[0])

		case "push":
			if err := requireArgs(opArgs, 1, 1); err != nil {
				return err
			}
			elem, perr := value.Parse(opArgs[0])
			if perr != nil {
				return editErr(msgValueParse)
			}
			result, err = value.Push(entry.Value, elem)

		case "pop":
			if err := requireArgs(opArgs, 0, 0); err != nil {
				return err
			}
			result, popped, err = value.Pop(entry.Value)

		case "sort":
			if err := requireArgs(opArgs, 0, 1); err != nil {
				return err
			}
			desc := len(opArgs) == 1 && strings.EqualFold(opArgs[0], "DESC")
			result, err = value.Sort(entry.Value, desc)

		case "reverse":
			if err := requireArgs(opArgs, 0, 0); err != nil {
				return err
			}
			result, err = value.Reverse(entry.Value)

		default:
			return editErr("Operation %s not found.", args[1])
		}

		if err != nil {
			if errors.Is(err, value.ErrUnsupportedKind) {
				return editErr(msgUnknownStruct)
			}
			return editErr("%v", err)
		}
		entry.Value = result
		return nil
	})

	if err != nil {
		var ee *editError
		if errors.As(err, &ee) {
			return replyErr(ee.msg)
		}
		return failErr(err)
	}

	if popped != nil {
		return sess.render(popped)
	}
	return replyOK(msgOK)
}

// adjustExpiry computes the new expiry of an entry from [+|-|=]<seconds>.
// "+n" extends and "-n" shortens the remaining lifetime, "=n" and "n" set it.
// A resulting lifetime of 0 removes the expiry, unless a finite lifetime
// was shortened to zero or below, then the entry expires now.
func adjustExpiry(entry *db.Entry, spec string, nowMs int64) (int64, error) {
	mode := byte('=')
	if len(spec) > 0 && (spec[0] == '+' || spec[0] == '-' || spec[0] == '=') {
		mode, spec = spec[0], spec[1:]
	}
	secs, err := strconv.ParseInt(spec, 10, 64)
	if err != nil || secs < 0 || secs > lstore.MaxTTLSeconds {
		return 0, editErr(msgValueParse)
	}
	delta := secs * 1000
	remaining := entry.TTL(nowMs)

	switch mode {
	case '+':
		if remaining == 0 {
			if delta == 0 {
				return 0, nil
			}
			return nowMs + delta, nil
		}
		if remaining+delta > lstore.MaxTTLSeconds*1000 {
			return 0, editErr(msgValueParse)
		}
		return entry.ExpireAt + delta, nil
	case '-':
		if remaining == 0 {
			return 0, nil
		}
		if remaining-delta <= 0 {
			return nowMs, nil
		}
		return entry.ExpireAt - delta, nil
	default:
		if delta == 0 {
			return 0, nil
		}
		return nowMs + delta, nil
	}
}
