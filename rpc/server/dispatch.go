package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dorea/lib/db/util"
	"github.com/ValentinKolb/dorea/lib/store"
	"github.com/ValentinKolb/dorea/lib/store/lstore"
	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/ValentinKolb/dorea/rpc/common"
)

const (
	msgOK            = "OK"
	msgNotFound      = "Data Not Found"
	msgValueParse    = "Value parse error."
	msgUnknownOp     = "Unknown operation."
	msgUnknownStruct = "Unknown data struct."
)

// handlerFunc executes one operation for a session
type handlerFunc func(sess *session, args []string) (common.State, []byte)

var handlers = map[common.Operation]handlerFunc{
	common.OpGet:    (*session).get,
	common.OpSet:    (*session).set,
	common.OpDelete: (*session).delete,
	common.OpClean:  (*session).clean,
	common.OpSelect: (*session).selectGroup,
	common.OpSearch: (*session).search,
	common.OpInfo:   (*session).info,
	common.OpEdit:   (*session).edit,
	common.OpPing:   (*session).ping,
	common.OpEcho:   (*session).echo,
	common.OpEval:   (*session).eval,
	common.OpAuth:   (*session).auth,
}

// dispatch routes a validated command to its handler
func (sess *session) dispatch(cmd common.Command) (common.State, []byte) {
	handler, ok := handlers[cmd.Op]
	if !ok {
		return common.StateErr, []byte(msgUnknownOp)
	}
	return handler(sess, cmd.Args)
}

// --------------------------------------------------------------------------
// Reply helpers
// --------------------------------------------------------------------------

func replyOK(text string) (common.State, []byte) {
	return common.StateOK, []byte(text)
}

func replyErr(text string) (common.State, []byte) {
	return common.StateErr, []byte(text)
}

// failErr turns an error into an ERR reply. Store errors carry a message
// meant for clients, everything else is logged and reported generically.
func failErr(err error) (common.State, []byte) {
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		if storeErr.Code == store.RetCStorageIO || storeErr.Code == store.RetCInternalError {
			Logger.Errorf("Storage error: %v", err)
		}
		return replyErr(storeErr.Msg)
	}
	return replyErr(err.Error())
}

// render serializes a value in the session style
func (sess *session) render(v value.DataValue) (common.State, []byte) {
	body, err := sess.server.serializer.Serialize(v)
	if err != nil {
		Logger.Errorf("Failed to render value: %v", err)
		return replyErr(msgValueParse)
	}
	return common.StateOK, body
}

func stringList(items []string) value.List {
	list := make(value.List, len(items))
	for i, item := range items {
		list[i] = value.String(item)
	}
	return list
}

// --------------------------------------------------------------------------
// Key Operations
// --------------------------------------------------------------------------

func (sess *session) get(args []string) (common.State, []byte) {
	v, found, err := sess.server.manager.Get(sess.currentGroup, args[0])
	if err != nil {
		return failErr(err)
	}
	if !found {
		return replyErr(msgNotFound)
	}
	return sess.render(v)
}

// set handles SET <key> <value...> [ttl]. A trailing integer token is the
// ttl in seconds if the value tokens before it form a valid value.
func (sess *session) set(args []string) (common.State, []byte) {
	key, rest := args[0], args[1:]

	v, ttl, err := parseValueAndTTL(rest)
	if err != nil {
		return replyErr(msgValueParse)
	}

	if err := sess.server.manager.Set(sess.currentGroup, key, v, ttl); err != nil {
		return failErr(err)
	}
	return replyOK(msgOK)
}

func parseValueAndTTL(tokens []string) (value.DataValue, time.Duration, error) {
	if len(tokens) > 1 {
		if secs, err := strconv.ParseUint(tokens[len(tokens)-1], 10, 64); err == nil && secs <= lstore.MaxTTLSeconds {
			if v, err := value.Parse(strings.Join(tokens[:len(tokens)-1], " ")); err == nil {
				return v, time.Duration(secs) * time.Second, nil
			}
		}
	}
	v, err := value.Parse(strings.Join(tokens, " "))
	if err != nil {
		return nil, 0, err
	}
	return v, 0, nil
}

func (sess *session) delete(args []string) (common.State, []byte) {
	if _, err := sess.server.manager.Delete(sess.currentGroup, args[0]); err != nil {
		return failErr(err)
	}
	return replyOK(msgOK)
}

func (sess *session) clean(args []string) (common.State, []byte) {
	group := sess.currentGroup
	if len(args) == 1 {
		group = args[0]
	}
	if err := sess.server.manager.Clean(group); err != nil {
		return failErr(err)
	}
	return replyOK(msgOK)
}

func (sess *session) selectGroup(args []string) (common.State, []byte) {
	if err := sess.server.manager.SelectTo(args[0]); err != nil {
		return failErr(err)
	}
	sess.currentGroup = args[0]
	return replyOK(msgOK)
}

// search matches all live keys of the current group against the patterns
func (sess *session) search(args []string) (common.State, []byte) {
	keys, err := sess.server.manager.Keys(sess.currentGroup)
	if err != nil {
		return failErr(err)
	}

	matches := make([]string, 0)
	for _, key := range keys {
		if util.MatchAny(args, key) {
			matches = append(matches, key)
		}
	}
	return sess.render(stringList(matches))
}

// --------------------------------------------------------------------------
// Misc Operations
// --------------------------------------------------------------------------

func (sess *session) ping([]string) (common.State, []byte) {
	return replyOK("PONG")
}

func (sess *session) echo(args []string) (common.State, []byte) {
	return replyOK(strings.Join(args, " "))
}

func (sess *session) eval(args []string) (common.State, []byte) {
	script := strings.Join(args, " ")
	local := newSessionStore(sess)

	out, err := sess.server.evaluator.Eval(script, local)
	if err != nil {
		return failErr(err)
	}
	return replyOK(out)
}
