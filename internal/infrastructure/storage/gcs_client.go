package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// CloudStorageClient uploads images and produces their public URLs. Listing
// photos and chat image messages both go through here.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName, credentialsPath string) (*CloudStorageClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// UploadImage streams the file into the bucket under the given folder and
// returns the public URL.
func (c *CloudStorageClient) UploadImage(ctx context.Context, file io.Reader, filename, folder string) (string, error) {
	objectName := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), filepath.Ext(filename))

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	writer := c.client.Bucket(c.bucketName).Object(objectName).NewWriter(ctx)
	writer.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to upload object %s: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", objectName, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectName), nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
