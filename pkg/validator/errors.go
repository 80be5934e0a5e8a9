package validator

import "errors"

var (
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrInvalidURL    = errors.New("invalid URL format")
	ErrUnresolvable  = errors.New("URL host does not resolve")
	ErrUnknownPolicy = errors.New("unknown validation policy")
)
