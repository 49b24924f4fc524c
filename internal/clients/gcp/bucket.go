package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
)

// BucketService stores bug report artifacts (screenshots, attachments) and
// hands back public URLs. Keys are fully tenant-scoped by the caller.
type BucketService interface {
	UploadBytes(ctx context.Context, key string, contentType string, data []byte) (string, error)
	UploadFile(ctx context.Context, key string, contentType string, file io.Reader) (string, error)
	DeleteFile(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	cdnDomain     string
	uploadTimeout time.Duration
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := strings.TrimSpace(os.Getenv("GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	cdnDomain := strings.TrimSpace(os.Getenv("CDN_DOMAIN"))

	saPath := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	ctx := context.Background()
	var stClient *storage.Client
	var err error
	if saPath != "" {
		stClient, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
	} else {
		stClient, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	uploadTimeout := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("GCS_UPLOAD_TIMEOUT_SECONDS")); v != "" {
		if d, perr := time.ParseDuration(v + "s"); perr == nil && d > 0 {
			uploadTimeout = d
		}
	}

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucketName,
		cdnDomain:     cdnDomain,
		uploadTimeout: uploadTimeout,
	}, nil
}

func (bs *bucketService) UploadBytes(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	return bs.UploadFile(ctx, key, contentType, bytes.NewReader(data))
}

func (bs *bucketService) UploadFile(ctx context.Context, key string, contentType string, file io.Reader) (string, error) {
	// One slow artifact must not stall the whole submission.
	ctx, cancel := context.WithTimeout(ctx, bs.uploadTimeout)
	defer cancel()
	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %q: %w", key, err)
	}
	return bs.GetPublicURL(key), nil
}

func (bs *bucketService) DeleteFile(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	o := bs.storageClient.Bucket(bs.bucketName).Object(key)
	if err := o.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

func (bs *bucketService) GetPublicURL(key string) string {
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key)
}
