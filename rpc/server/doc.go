// Package server implements the Dorea server: the per-connection session
// state machine, the command dispatcher and the server lifecycle.
//
// Every connection gets its own session. A session starts authenticated if
// no password is configured, otherwise only AUTH is accepted until it
// succeeds and every other command is answered with NOAUTH. A request is
// processed in four steps:
//
//  1. tokenize on whitespace and resolve the operation (case-insensitive),
//     an empty request ends the session
//  2. check the argument count against the arity table
//  3. check authentication and the optional per-connection rate limit
//  4. execute against the currently selected group
//
// Failures of single commands are answered with ERR and never end the
// session. Values in replies are rendered with the configured serializer
// (doson or json). Reply bodies are sent as produced, only INFO stt carries
// the server startup time (unix seconds).
//
// Commands:
//
//	GET <key>                         value of a key
//	SET <key> <value> [ttl]           store a value, ttl in seconds (0 = never expires)
//	DELETE <key>                      remove a key
//	CLEAN [group]                     remove all keys of the current (or named) group
//	SELECT <group>                    switch the current group, loading it if needed
//	SEARCH <pattern...>               keys matching any wildcard pattern (* and ?)
//	INFO <sub> [args]                 server and key information
//	EDIT <key> <op> [args]            modify a value in place
//	PING                              PONG
//	ECHO <text>                       text
//	EVAL <script>                     run a script with the configured Evaluator
//	AUTH <password>                   authenticate the session
//
// All sessions share one lstore.DataBaseManager. Each command holds the
// manager lock for its own duration, so commands of different connections
// interleave but never run concurrently. The periodic flush runs in the
// background and a final flush is performed by Close.
//
// Metrics are kept with VictoriaMetrics (served on /metrics if a metrics
// endpoint is configured) and with go-metrics meters reported by INFO stats.
package server
