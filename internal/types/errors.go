package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrMissingKey      = errors.New("trusted public key not loaded")
	ErrInvalidSettings = errors.New("invalid settings")

	ErrInvalidBackend   = errors.New("invalid backend")
	ErrDedupStoreAccess = errors.New("dedup store read/write error")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
