package bearer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a malformed tenant, client ID, authority or scope.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCacheLoad indicates the persisted cache could not be read or parsed.
	// It is never returned from AcquireToken; the cache is treated as empty.
	ErrCacheLoad = errors.New("token cache could not be loaded")

	// ErrSilentAcquisition indicates no usable cached token or refresh token.
	// It is never returned from AcquireToken; interactive login follows.
	ErrSilentAcquisition = errors.New("silent token acquisition failed")

	// ErrInteractiveAcquisition indicates the user cancelled, the login timed out,
	// or the identity provider rejected the request.
	ErrInteractiveAcquisition = errors.New("interactive token acquisition failed")

	// ErrPersist indicates the updated cache could not be written back.
	// The token is still returned; only the next call pays for it.
	ErrPersist = errors.New("token cache could not be saved")
)

// AuthError is returned when no token can be obtained by any means.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
