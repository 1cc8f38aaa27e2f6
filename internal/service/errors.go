package service

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrMissingParameter    = errors.New("missing required parameter")
	ErrInvalidParticipants = errors.New("buyer and seller must differ")
	ErrAccessDenied        = errors.New("access denied")
	ErrEmptyMessage        = errors.New("message needs text or an image")
	ErrInvalidImage        = errors.New("file is not an image")
	ErrImageTooLarge       = errors.New("image exceeds size limit")
	ErrUploadFailed        = errors.New("image upload failed")
)
