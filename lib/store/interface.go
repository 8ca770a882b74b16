package store

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dorea/lib/db"
	"github.com/ValentinKolb/dorea/lib/value"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory creates the index of a single group with the given capacity.
// This is used to abstract the creation of the index from the store implementation.
type DBFactory func(capacity int) db.KVDB

// IStore is the generic interface for interacting with the grouped key–value store.
// An IStore is bound to one group at a time, all key operations act on that group.
// All write operations return only an error (nil on success), read operations
// return the requested data along with an error (nil on success).
// Errors caused by the store itself are of type *Error.
type IStore interface {
	// Select binds the store to another group, loading it if necessary.
	Select(group string) (err error)
	// Group returns the name of the currently selected group.
	Group() (group string)
	// Set inserts or updates a key–value pair. ttl is given in seconds, 0 means no expiry.
	Set(key string, value value.DataValue, ttl uint64) (err error)
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value value.DataValue, loaded bool, err error)
	// Has returns whether a live (not expired) value exists for a key.
	Has(key string) (loaded bool, err error)
	// Clean removes all keys of the selected group.
	Clean() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new store Error with a formatted message.
func Errorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// IsCode reports whether err is a store *Error with the given code.
func IsCode(err error, code RetCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation (bad argument or type mismatch).
	RetCGroupNotFound                       // 4: Group cannot be selected (unknown or group limit reached).
	RetCGroupLocked                         // 5: Group is locked and cannot be unloaded.
	RetCStorageIO                           // 6: Reading or writing a group file failed.
	RetCKeyNotFound                         // 7: Key does not exist in the group.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCGroupNotFound:
		return "GroupNotFound"
	case RetCGroupLocked:
		return "GroupLocked"
	case RetCStorageIO:
		return "StorageIO"
	case RetCKeyNotFound:
		return "KeyNotFound"
	default:
		return "Unknown"
	}
}
