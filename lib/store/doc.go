// Package store provides the high-level interface for the grouped key-value
// store together with its unified error handling.
//
// Key Components:
//
//   - IStore Interface: The core abstraction for working with one group at a
//     time. A store is bound to the selected group, all key operations act on
//     it. Implementations return *Error for failures of the store itself.
//
//   - Error System: Errors carry a RetCode (e.g. RetCGroupNotFound,
//     RetCKeyNotFound, RetCStorageIO) and a message, so callers can react to
//     specific conditions with IsCode instead of matching strings.
//
//   - DBFactory: Creates the bounded index of a single group, which keeps the
//     store independent of the engine implementation.
//
// Implementations:
//
//   - Local Store (lstore): The DataBaseManager owns all loaded groups, their
//     files and the periodic flush. NewLocalStore binds an IStore to it.
//     Available in the "github.com/ValentinKolb/dorea/lib/store/lstore" package.
//
//   - Remote Store: client.NewRPCStore implements IStore over the wire protocol.
//     Available in the "github.com/ValentinKolb/dorea/rpc/client" package.
package store
