package services

import "errors"

// Sentinel errors returned by the services and translated to HTTP status
// codes at the handler boundary.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("article with this custom id already exists")
	ErrSelfDuplicate      = errors.New("cannot mark article as duplicate of itself")
	ErrUserExists         = errors.New("user with this email or username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
