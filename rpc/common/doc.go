// Package common provides the types shared by the server, the client and
// the command line tools.
//
// Key Components:
//
//   - State: the status of a frame (OK, ERR, EMPTY, NOAUTH).
//
//   - Operation: the closed set of commands (GET, SET, DELETE, CLEAN, SELECT,
//     SEARCH, INFO, EDIT, PING, ECHO, EVAL, AUTH) together with a static
//     arity table. ParseCommand tokenizes a request, resolves the operation
//     case-insensitively and validates the number of arguments, returning a
//     *CommandError for unknown commands or a wrong arity.
//
//   - ServerConfig: network, authentication, storage and logging settings of
//     the server. ToStoreConfig converts it to the storage engine config.
//
//   - ClientConfig: endpoint, credentials, timeouts, retries and pool size
//     of a client.
//
//   - Logger: a logger.ILogger implementation (github.com/lni/dragonboat/v4/logger)
//     with a fixed column format. InitLoggers installs it as the factory for
//     all named loggers of the application.
package common
