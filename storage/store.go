package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"TuneBox/config"
)

var (
	// ErrObjectNotFound 对象不存在
	ErrObjectNotFound = errors.New("audio object not found")
	// ErrInvalidKey key 必须是不含路径分隔符的文件名
	ErrInvalidKey = errors.New("invalid audio object key")
)

// AudioStore 音频文件存储。key 是形如 "<uuid>.mp3" 的文件名。
type AudioStore interface {
	// Save writes r under key. size is -1 when unknown.
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	// Open returns the stored bytes; a missing key yields ErrObjectNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]ObjectInfo, error)
	Kind() string
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BucketStats 存储统计信息
type BucketStats struct {
	Kind         string
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// New builds the store selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (AudioStore, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		return NewLocalStore(cfg.AudioDir)
	case config.StorageMinio:
		return NewMinioStore(ctx, MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// Stats 汇总存储中的对象数量和大小
func Stats(ctx context.Context, store AudioStore) (*BucketStats, error) {
	objects, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	stats := &BucketStats{Kind: store.Kind()}
	for _, obj := range objects {
		stats.TotalObjects++
		stats.TotalSize += obj.Size
		if obj.LastModified.After(stats.LastModified) {
			stats.LastModified = obj.LastModified
		}
	}
	return stats, nil
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
