package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BlobStore 文件内容存储后端
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	// Rename 移动单个对象（cut 跨 vibe 移动时改写路径）
	Rename(ctx context.Context, oldPath, newPath string) error
}

// LocalStore 本地磁盘存储
type LocalStore struct {
	root string
}

// NewLocalStore 创建本地存储
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) abs(path string) (string, error) {
	if strings.Contains(path, "..") || filepath.IsAbs(path) {
		return "", fmt.Errorf("invalid storage path: %s", path)
	}
	return filepath.Join(s.root, filepath.Clean(path)), nil
}

func (s *LocalStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	dst, err := s.abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	src, err := s.abs(path)
	if err != nil {
		return nil, err
	}
	return os.Open(src)
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	dst, err := s.abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) Rename(ctx context.Context, oldPath, newPath string) error {
	src, err := s.abs(oldPath)
	if err != nil {
		return err
	}
	dst, err := s.abs(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// MinioStore MinIO对象存储
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore 创建MinIO存储
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// EnsureBucket 确保bucket存在
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *MinioStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return obj, nil
}

func (s *MinioStore) Delete(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
}

func (s *MinioStore) Rename(ctx context.Context, oldPath, newPath string) error {
	src := minio.CopySrcOptions{Bucket: s.bucket, Object: oldPath}
	dst := minio.CopyDestOptions{Bucket: s.bucket, Object: newPath}
	if _, err := s.client.CopyObject(ctx, dst, src); err != nil {
		return fmt.Errorf("copy object: %w", err)
	}
	return s.client.RemoveObject(ctx, s.bucket, oldPath, minio.RemoveObjectOptions{})
}
