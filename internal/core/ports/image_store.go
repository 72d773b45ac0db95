package ports

import (
	"context"
	"io"

	"github.com/storefront/identity-service/internal/core/domain"
)

// ImageUpload is an image handed over by the transport layer.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// ImageStore owns profile images; accounts keep only a weak reference.
type ImageStore interface {
	Upload(ctx context.Context, img ImageUpload) (*domain.ImageRef, error)
	Delete(ctx context.Context, publicID string) error
}
