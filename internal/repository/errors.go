package repository

import "errors"

var (
	// ErrInvalidImageURL indicates an invalid image URL
	ErrInvalidImageURL = errors.New("invalid image URL")

	// ErrRepositoryUnavailable indicates the source for a URL scheme is not configured
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
