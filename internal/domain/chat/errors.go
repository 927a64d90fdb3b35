package chat

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest        = errors.New("bad request")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrWriteFailed       = errors.New("message write failed")
	ErrUploadFailed      = errors.New("image upload failed")
	ErrUploadUnavailable = errors.New("image upload unavailable")

	ErrEmptyMessage = fmt.Errorf("%w: message has neither text nor image", ErrBadRequest)
	ErrNotSignedIn  = fmt.Errorf("%w: a signed-in user is required", ErrUnauthorized)
)

func IsErrBadRequest(err error) bool        { return errors.Is(err, ErrBadRequest) }
func IsErrUnauthorized(err error) bool      { return errors.Is(err, ErrUnauthorized) }
func IsErrWriteFailed(err error) bool       { return errors.Is(err, ErrWriteFailed) }
func IsErrUploadFailed(err error) bool      { return errors.Is(err, ErrUploadFailed) }
func IsErrUploadUnavailable(err error) bool { return errors.Is(err, ErrUploadUnavailable) }
