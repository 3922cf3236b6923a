package domain

import "errors"

var (
	ErrInvalidCondition    = errors.New("invalid network condition")
	ErrSegmentNotFound     = errors.New("segment not found")
	ErrInvalidSegmentIndex = errors.New("segment index must be >= 0")
	ErrMissingField        = errors.New("field missing from payload")

	ErrUnknownElement     = errors.New("unknown element")
	ErrUnknownPlatform    = errors.New("unknown platform")
	ErrAppNotLaunched     = errors.New("app not launched")
	ErrNotLoggedIn        = errors.New("user not logged in")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
