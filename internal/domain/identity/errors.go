package identity

import "errors"

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrSignInFailed      = errors.New("sign in failed")
	ErrSignOutFailed     = errors.New("sign out failed")
)

func IsErrInvalidCredential(err error) bool { return errors.Is(err, ErrInvalidCredential) }
func IsErrSignInFailed(err error) bool      { return errors.Is(err, ErrSignInFailed) }
func IsErrSignOutFailed(err error) bool     { return errors.Is(err, ErrSignOutFailed) }
