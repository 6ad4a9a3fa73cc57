package testutils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	redisModule "github.com/testcontainers/testcontainers-go/modules/redis"

	"face-gallery/internal/config"
	"face-gallery/internal/platform/cache"
	"face-gallery/internal/platform/storage"
)

const (
	minioImage    = "minio/minio:latest"
	valkeyImage   = "valkey/valkey:7-alpine"
	minioUser     = "testuser"
	minioPassword = "testpass123"
	testBucket    = "test-gallery-index"
)

// TestContainers holds a MinIO bucket for gallery indexes and a Valkey
// server for views and probe results, plus clients and configs for both
type TestContainers struct {
	MinioContainer testcontainers.Container
	RedisContainer testcontainers.Container
	MinioClient    *storage.MinIOClient
	RedisClient    *cache.RedisClient
	StorageConfig  config.StorageConfig
	CacheConfig    config.CacheConfig
}

// SetupTestContainers starts both containers; on failure whatever already
// started is terminated
func SetupTestContainers(ctx context.Context) (*TestContainers, error) {
	tc := &TestContainers{}

	for _, setup := range []func(context.Context) error{tc.setupMinio, tc.setupValkey} {
		if err := setup(ctx); err != nil {
			return nil, errors.Join(err, tc.Cleanup(ctx))
		}
	}

	return tc, nil
}

func (tc *TestContainers) setupMinio(ctx context.Context) error {
	container, err := minio.Run(ctx, minioImage,
		minio.WithUsername(minioUser),
		minio.WithPassword(minioPassword),
	)
	if err != nil {
		return fmt.Errorf("failed to start minio container: %w", err)
	}
	tc.MinioContainer = container

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get minio endpoint: %w", err)
	}

	tc.StorageConfig = config.StorageConfig{
		Endpoint:        endpoint,
		AccessKeyID:     minioUser,
		SecretAccessKey: minioPassword,
		BucketName:      testBucket,
		Region:          "us-east-1",
	}

	client, err := storage.NewMinIOClient(tc.StorageConfig)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to create test bucket: %w", err)
	}
	tc.MinioClient = client

	return nil
}

func (tc *TestContainers) setupValkey(ctx context.Context) error {
	container, err := redisModule.Run(ctx, valkeyImage,
		redisModule.WithLogLevel(redisModule.LogLevelVerbose),
	)
	if err != nil {
		return fmt.Errorf("failed to start valkey container: %w", err)
	}
	tc.RedisContainer = container

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get valkey endpoint: %w", err)
	}

	tc.CacheConfig = config.CacheConfig{
		Enabled:      true,
		Address:      trimScheme(endpoint),
		KeyPrefix:    "test",
		DefaultTTL:   time.Hour,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		PoolTimeout:  4 * time.Second,
	}

	client, err := cache.NewRedisClient(tc.CacheConfig)
	if err != nil {
		return fmt.Errorf("failed to create valkey client: %w", err)
	}
	tc.RedisClient = client

	return nil
}

// Cleanup closes the clients and terminates the containers
func (tc *TestContainers) Cleanup(ctx context.Context) error {
	var errs []error

	if tc.RedisClient != nil {
		if err := tc.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close valkey client: %w", err))
		}
	}
	for name, c := range map[string]testcontainers.Container{"minio": tc.MinioContainer, "valkey": tc.RedisContainer} {
		if c == nil {
			continue
		}
		if err := c.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate %s container: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// FlushRedis drops every view and cached probe result
func (tc *TestContainers) FlushRedis(ctx context.Context) error {
	if tc.RedisClient == nil {
		return errors.New("valkey client not available")
	}
	return tc.RedisClient.FlushCache(ctx)
}

// trimScheme turns the module's redis:// URL into the host:port go-redis wants
func trimScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "redis://")
	return strings.TrimSuffix(endpoint, "/")
}
