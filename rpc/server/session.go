package server

import (
	"crypto/subtle"
	"net"
	"time"

	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/transport"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	msgAuthRequired = "Authentication required."
	msgAuthFailed   = "Authentication failed."
	msgRateLimited  = "Rate limit exceeded."
)

// session is the state of one connection. It is owned by the goroutine
// serving the connection and never shared.
type session struct {
	server        *RPCServer
	id            uuid.UUID
	remote        net.Addr
	authenticated bool
	currentGroup  string
	limiter       *rate.Limiter
}

// newSession implements transport.SessionFactory
func (s *RPCServer) newSession(remote net.Addr) transport.ISession {
	sess := &session{
		server:        s,
		id:            uuid.New(),
		remote:        remote,
		authenticated: s.config.Password == "",
		currentGroup:  s.manager.Config().DefaultGroup,
	}
	if s.config.RateLimit > 0 {
		burst := max(1, int(s.config.RateLimit))
		sess.limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), burst)
	}
	s.metrics.sessionOpened()
	Logger.Debugf("Session %s opened for %s", sess.id, remote)
	return sess
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.ISession)
// --------------------------------------------------------------------------

func (sess *session) Handle(request string) (common.State, []byte) {
	cmd, ok, err := common.ParseCommand(request)
	if !ok {
		return common.StateEmpty, nil
	}
	if err != nil {
		sess.server.metrics.rejected()
		return common.StateErr, []byte(err.Error())
	}

	if !sess.authenticated && cmd.Op != common.OpAuth {
		return common.StateNoAuth, []byte(msgAuthRequired)
	}

	if sess.limiter != nil && !sess.limiter.Allow() {
		sess.server.metrics.rejected()
		return common.StateErr, []byte(msgRateLimited)
	}

	start := time.Now()
	state, body := sess.dispatch(cmd)
	sess.server.metrics.observe(cmd.Op, state, start)

	return state, body
}

func (sess *session) Close() {
	sess.server.metrics.sessionClosed()
	Logger.Debugf("Session %s closed", sess.id)
}

// --------------------------------------------------------------------------
// Authentication
// --------------------------------------------------------------------------

func (sess *session) auth(args []string) (common.State, []byte) {
	password := []byte(sess.server.config.Password)
	if len(password) == 0 {
		return common.StateOK, []byte("OK")
	}
	if subtle.ConstantTimeCompare([]byte(args[0]), password) != 1 {
		Logger.Warningf("Failed authentication from %s", sess.remote)
		return common.StateErr, []byte(msgAuthFailed)
	}
	sess.authenticated = true
	return common.StateOK, []byte("OK")
}
