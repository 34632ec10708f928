package content

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownContentType = errors.New("unknown content type")
	ErrNotFound           = errors.New("content not found")
	ErrForbidden          = errors.New("forbidden")
	ErrBanned             = errors.New("user is banned")
)
