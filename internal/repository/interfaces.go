package repository

import "context"

// ImageRepository retrieves photographs from remote sources
type ImageRepository interface {
	// FetchImage retrieves the raw image bytes behind a URL
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(imageURL string) error
}

// URLValidator is satisfied by validation.URLValidator
type URLValidator interface {
	ValidateImageURL(imageURL string) error
}
