package server

import (
	"github.com/ValentinKolb/dorea/lib/store"
	"github.com/ValentinKolb/dorea/lib/store/lstore"
)

// Evaluator runs EVAL scripts. The store is bound to the group selected by
// the calling session, selecting another group inside a script does not
// change the session.
type Evaluator interface {
	Eval(script string, s store.IStore) (string, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface
type EvaluatorFunc func(script string, s store.IStore) (string, error)

func (f EvaluatorFunc) Eval(script string, s store.IStore) (string, error) {
	return f(script, s)
}

// unavailableEvaluator is used when no script runtime is configured
type unavailableEvaluator struct{}

func (unavailableEvaluator) Eval(string, store.IStore) (string, error) {
	return "", store.NewError(store.RetCUnsupportedOperation, "Script runtime not available.")
}

func newSessionStore(sess *session) store.IStore {
	return lstore.NewLocalStore(sess.server.manager, sess.currentGroup)
}
