package repository

import (
	"context"
	"fmt"
	"strings"

	"alignme-measure/internal/storage"
)

// SourceImageRepository fetches over HTTP, or from Azure Blob Storage for azblob:// URLs
type SourceImageRepository struct {
	fetcher   storage.ImageFetcher
	blobs     storage.BlobStorage // nil when blob storage is not configured
	validator URLValidator
}

// NewImageRepository creates a repository; blobs may be nil
func NewImageRepository(fetcher storage.ImageFetcher, blobs storage.BlobStorage, validator URLValidator) ImageRepository {
	return &SourceImageRepository{
		fetcher:   fetcher,
		blobs:     blobs,
		validator: validator,
	}
}

// FetchImage validates imageURL and downloads it from the matching source
func (r *SourceImageRepository) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := r.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}

	if isBlobURL(imageURL) {
		if r.blobs == nil {
			return nil, fmt.Errorf("%w: blob storage not configured", ErrRepositoryUnavailable)
		}
		return r.blobs.GetImageBytes(ctx, imageURL)
	}
	return r.fetcher.FetchImageBytes(ctx, imageURL)
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *SourceImageRepository) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return ErrInvalidImageURL
	}
	if r.validator == nil {
		return nil
	}
	return r.validator.ValidateImageURL(imageURL)
}

func isBlobURL(imageURL string) bool {
	return strings.HasPrefix(strings.ToLower(imageURL), "azblob://")
}
