package domain

import "errors"

var (
	ErrUnsupportedBackend  = errors.New("unsupported backend")
	ErrNoContent           = errors.New("no content extracted")
	ErrParseFailed         = errors.New("document parsing failed")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrMissingFile         = errors.New("file is required")
)
