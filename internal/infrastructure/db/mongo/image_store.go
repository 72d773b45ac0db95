package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

const profileImageBucket = "profile_images"

// ImageStore keeps profile images in a GridFS bucket. The file name doubles
// as the public id.
type ImageStore struct {
	bucket  *gridfs.Bucket
	baseURL string
}

// NewImageStore opens the profile image bucket. baseURL prefixes the URL
// recorded on accounts, e.g. "/images".
func NewImageStore(db *mongo.Database, baseURL string) (*ImageStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(profileImageBucket))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &ImageStore{bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

var _ ports.ImageStore = (*ImageStore)(nil)

func (s *ImageStore) Upload(ctx context.Context, img ports.ImageUpload) (*domain.ImageRef, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	publicID := uuid.NewString() + strings.ToLower(path.Ext(img.Filename))
	opts := options.GridFSUpload().SetMetadata(bson.M{
		"content_type":  img.ContentType,
		"original_name": img.Filename,
	})

	stream, err := s.bucket.OpenUploadStream(publicID, opts)
	if err != nil {
		return nil, storageErr("open image upload", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(dl)
	}
	if _, err := io.Copy(stream, img.Data); err != nil {
		_ = stream.Abort()
		return nil, storageErr("upload image", err)
	}
	if err := stream.Close(); err != nil {
		return nil, storageErr("finish image upload", err)
	}

	return &domain.ImageRef{URL: s.baseURL + "/" + publicID, PublicID: publicID}, nil
}

// Delete removes every revision stored under publicID. Missing files are not
// an error.
func (s *ImageStore) Delete(ctx context.Context, publicID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := s.bucket.FindContext(ctx, bson.M{"filename": publicID})
	if err != nil {
		return storageErr("find image", err)
	}
	defer cursor.Close(ctx)

	var files []struct {
		ID interface{} `bson:"_id"`
	}
	if err := cursor.All(ctx, &files); err != nil {
		return storageErr("decode image files", err)
	}
	for _, f := range files {
		if err := s.bucket.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return storageErr("delete image", err)
		}
	}
	return nil
}
