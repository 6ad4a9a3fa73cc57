package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"face-gallery/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectTooLarge is returned when an object exceeds the read limit
var ErrObjectTooLarge = errors.New("object exceeds read limit")

// ErrObjectNotFound is returned when the object does not exist
var ErrObjectNotFound = errors.New("object not found")

type MinIOClient struct {
	client     *minio.Client
	bucketName string
	region     string
}

func NewMinIOClient(cfg config.StorageConfig) (*MinIOClient, error) {
	var creds *credentials.Credentials

	// Use AWS credentials chain if no static credentials are provided
	// This supports EKS Pod Identity, IAM roles, AWS credentials file, etc.
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},             // AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
			&credentials.FileAWSCredentials{}, // ~/.aws/credentials
			&credentials.IAM{},                // EC2/ECS/EKS IAM roles
		})
	} else {
		// Fall back to static credentials for local development
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOClient{
		client:     client,
		bucketName: cfg.BucketName,
		region:     cfg.Region,
	}, nil
}

// Bucket returns the bucket holding gallery indexes
func (m *MinIOClient) Bucket() string {
	return m.bucketName
}

// EnsureBucket creates the bucket when it is missing
func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return err
	}

	if !exists {
		region := m.region
		if region == "" {
			region = "us-east-1"
		}
		return m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{
			Region: region,
		})
	}

	return nil
}

// Health reports whether the bucket is reachable
func (m *MinIOClient) Health(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.bucketName)
	}
	return nil
}

// ReadObject reads a whole object, refusing anything larger than maxBytes
func (m *MinIOClient) ReadObject(ctx context.Context, objectName string, maxBytes int64) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(objectName, err)
	}
	defer obj.Close()

	reader := io.Reader(obj)
	if maxBytes > 0 {
		reader = io.LimitReader(obj, maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, translateError(objectName, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s", ErrObjectTooLarge, objectName)
	}
	return data, nil
}

// PutObject stores data under objectName
func (m *MinIOClient) PutObject(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// StatObject returns metadata for objectName
func (m *MinIOClient) StatObject(ctx context.Context, objectName string) (ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, translateError(objectName, err)
	}
	return toObjectInfo(info), nil
}

// ListObjects lists objects in the bucket
func (m *MinIOClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	options := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}

	var objects []ObjectInfo
	for object := range m.client.ListObjects(ctx, m.bucketName, options) {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		objects = append(objects, toObjectInfo(object))
	}
	return objects, nil
}

func toObjectInfo(info minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		ETag:         info.ETag,
	}
}

func translateError(objectName string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	return err
}

// ObjectInfo represents information about a stored object
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
}
