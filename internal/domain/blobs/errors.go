package blobs

import "errors"

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotImage   = errors.New("not a supported image")
)

func IsErrBadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }
func IsErrNotImage(err error) bool   { return errors.Is(err, ErrNotImage) }
