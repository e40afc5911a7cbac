package user

import "errors"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUserRequired    = errors.New("user id is required")
)
