package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

var ErrStorageUnavailable = errors.New("object storage unavailable")

// MinIOService is optional: when the endpoint cannot be reached at start the
// service stays up and every call returns ErrStorageUnavailable.
type MinIOService struct {
	appContext.DefaultService
	client     *minio.Client
	bucketName string
	endpoint   string
	accessKey  string
	secretKey  string
	useSSL     bool
}

const MINIO_SVC = "minio_svc"

func (svc MinIOService) Id() string {
	return MINIO_SVC
}

func (svc *MinIOService) Configure(ctx *appContext.Context) error {
	svc.endpoint = getEnv("MINIO_ENDPOINT", "localhost:9000")
	svc.accessKey = getEnv("MINIO_ACCESS_KEY", "admin")
	svc.secretKey = getEnv("MINIO_SECRET_KEY", "password123")
	svc.useSSL = os.Getenv("MINIO_USE_SSL") == "true"
	svc.bucketName = getEnv("MINIO_BUCKET_NAME", "tutor-profiles")

	return svc.DefaultService.Configure(ctx)
}

func (svc *MinIOService) Start() error {
	client, err := minio.New(svc.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(svc.accessKey, svc.secretKey, ""),
		Secure: svc.useSSL,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to create MinIO client, profile images disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	svc.client = client
	if err := svc.ensureBucket(ctx); err != nil {
		log.WithError(err).WithField("endpoint", svc.endpoint).Warn("MinIO unavailable, profile images disabled")
		svc.client = nil
		return nil
	}

	log.Printf("MinIO service started successfully with endpoint: %s", svc.endpoint)
	return nil
}

func (svc *MinIOService) Available() bool {
	return svc.client != nil
}

func (svc *MinIOService) ensureBucket(ctx context.Context) error {
	exists, err := svc.client.BucketExists(ctx, svc.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := svc.client.MakeBucket(ctx, svc.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("Created MinIO bucket: %s", svc.bucketName)
	}

	return nil
}

func (svc *MinIOService) UploadFile(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	if !svc.Available() {
		return ErrStorageUnavailable
	}

	_, err := svc.client.PutObject(ctx, svc.bucketName, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to MinIO: %w", err)
	}
	return nil
}

func (svc *MinIOService) GetFileURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if !svc.Available() {
		return "", ErrStorageUnavailable
	}

	presignedURL, err := svc.client.PresignedGetObject(ctx, svc.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return presignedURL.String(), nil
}

func (svc *MinIOService) DeleteFile(ctx context.Context, objectName string) error {
	if !svc.Available() {
		return ErrStorageUnavailable
	}

	if err := svc.client.RemoveObject(ctx, svc.bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file from MinIO: %w", err)
	}
	return nil
}

func (svc *MinIOService) GetBucketName() string {
	return svc.bucketName
}
