package messages

import "errors"

var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnsupportedQuery = errors.New("unsupported query")
)

func IsErrBadRequest(err error) bool       { return errors.Is(err, ErrBadRequest) }
func IsErrUnsupportedQuery(err error) bool { return errors.Is(err, ErrUnsupportedQuery) }
