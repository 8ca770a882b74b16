package store

import (
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	err := Errorf(RetCKeyNotFound, "Key '%s' not found.", "foo")
	if err.Msg != "Key 'foo' not found." {
		t.Errorf("unexpected message %q", err.Msg)
	}
	if got := err.Error(); got != "StoreError (code KeyNotFound): Key 'foo' not found." {
		t.Errorf("Error() = %q", got)
	}

	wrapped := fmt.Errorf("select: %w", NewError(RetCGroupLocked, "locked"))
	if !IsCode(wrapped, RetCGroupLocked) {
		t.Errorf("IsCode should see through wrapping")
	}
	if IsCode(wrapped, RetCStorageIO) {
		t.Errorf("IsCode matched the wrong code")
	}
	if IsCode(fmt.Errorf("plain"), RetCInternalError) {
		t.Errorf("IsCode matched a non store error")
	}
	if RetCode(99).String() != "Unknown" {
		t.Errorf("unknown codes should render as Unknown")
	}
}
