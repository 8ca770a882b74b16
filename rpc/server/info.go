package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/ValentinKolb/dorea/rpc/common"
)

// info handles INFO <subcommand> [args]
func (sess *session) info(args []string) (common.State, []byte) {
	sub := args[0]
	if strings.HasPrefix(sub, "@") && len(sub) > 1 {
		return sess.keyInfo(sub[1:], args[1:])
	}

	m := sess.server.manager
	switch strings.ToLower(sub) {
	case "current":
		return replyOK(sess.currentGroup)
	case "version":
		return replyOK("V" + common.Version)
	case "max-connect-number", "mcn":
		return replyOK(strconv.Itoa(sess.server.config.MaxConnectNumber))
	case "total-index-number", "tin":
		cur, limit := m.TotalIndex()
		return replyOK(fmt.Sprintf("%d/%d", cur, limit))
	case "server-startup-time", "stt":
		// the only reply carrying the startup time, user data is never rewritten
		return common.StateOK, sess.server.startupText
	case "connect-id", "cid":
		return replyOK(sess.id.String())
	case "keys":
		keys, err := m.Keys(sess.currentGroup)
		if err != nil {
			return failErr(err)
		}
		return sess.render(stringList(keys))
	case "groups":
		groups := m.Groups()
		names := make([]string, len(groups))
		for i, g := range groups {
			names[i] = g.String()
		}
		return sess.render(stringList(names))
	case "stats":
		return sess.render(sess.server.stats())
	default:
		return replyErr(msgUnknownOp)
	}
}

// keyInfo handles INFO @<key> [expire|timestamp|weight]
func (sess *session) keyInfo(key string, fields []string) (common.State, []byte) {
	if len(fields) > 1 {
		return replyErr("Exceeding parameter limits")
	}

	m := sess.server.manager
	entry, found, err := m.Meta(sess.currentGroup, key)
	if err != nil {
		return failErr(err)
	}
	if !found {
		return replyErr(fmt.Sprintf("Key '%s' not found.", key))
	}

	nowMs := m.Now().UnixMilli()
	expire := value.Integer((entry.TTL(nowMs) + 999) / 1000)
	timestamp := value.Integer(entry.Timestamp / 1000)
	weight := value.Integer(value.Weight(entry.Value))

	if len(fields) == 0 {
		return sess.render(value.Dict{
			"expire":    expire,
			"timestamp": timestamp,
			"weight":    weight,
		})
	}

	switch strings.ToLower(fields[0]) {
	case "expire":
		return replyOK(strconv.FormatInt(int64(expire), 10))
	case "timestamp":
		return replyOK(strconv.FormatInt(int64(timestamp), 10))
	case "weight":
		return replyOK(strconv.FormatInt(int64(weight), 10))
	default:
		return replyErr(msgUnknownOp)
	}
}
