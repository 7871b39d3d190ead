package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidConfig    = errors.New("invalid broker configuration")
	ErrUnknownReference = errors.New("unknown catalog reference")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidCatalog   = errors.New("invalid catalog")

	ErrInvalidBackend = errors.New("invalid backend")
	ErrPublish        = errors.New("event publish error")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
