// Package storage archives generated images into object storage so a
// shared board survives the provider's short-lived image URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"moodmuse/config"
	"moodmuse/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageArchive mirrors provider image URLs into a MinIO bucket and
// serves them back under /static/.
type ImageArchive struct {
	client     *minio.Client
	bucket     string
	httpClient *http.Client
}

// NewImageArchive connects to MinIO and ensures the bucket exists.
func NewImageArchive(cfg *config.Config) (*ImageArchive, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &ImageArchive{
		client:     client,
		bucket:     cfg.MinioBucket,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// ArchiveImages downloads each image URL and stores a copy under
// boards/{id}/{n}.png, returning the local /static/ path for each
// archived image. Archival is best effort per image: a failed mirror
// keeps the original provider URL.
func (a *ImageArchive) ArchiveImages(ctx context.Context, id string, urls []string) []string {
	out := make([]string, len(urls))

	for i, src := range urls {
		path, err := a.archiveOne(ctx, id, i, src)
		if err != nil {
			logger.Warn("Image archival failed, keeping provider URL",
				logger.String("id", id),
				logger.Int("index", i),
				logger.ErrorField(err))
			out[i] = src
			continue
		}
		out[i] = path
	}

	return out
}

func (a *ImageArchive) archiveOne(ctx context.Context, id string, index int, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", src, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	objectPath := fmt.Sprintf("boards/%s/%d.png", id, index)
	_, err = a.client.PutObject(ctx, a.bucket, objectPath, resp.Body, resp.ContentLength, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	return "/static/" + objectPath, nil
}

// Serve streams an archived object to an HTTP response. The object
// path is relative to the bucket root (e.g. boards/{id}/0.png).
func (a *ImageArchive) Serve(w http.ResponseWriter, r *http.Request, objectPath string) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	object, err := a.client.GetObject(ctx, a.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer object.Close()

	stat, err := object.Stat()
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	contentType := stat.ContentType
	if contentType == "" {
		contentType = "image/png"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")

	if _, err := io.Copy(w, object); err != nil {
		logger.Error("Error serving archived image",
			logger.String("object", objectPath),
			logger.ErrorField(err))
	}
}
