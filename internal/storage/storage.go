// Package storage приватное файловое хранилище ассетов с подписанными ссылками.
package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"carousel-server/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Storage операции хранилища, которые использует конвейер.
type Storage interface {
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	SignURL(bucket, path string, ttl time.Duration) (string, error)
}

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carousel_storage_operations_total",
		Help: "Storage operations by type and status.",
	}, []string{"operation", "status"})
	bytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carousel_storage_bytes_total",
		Help: "Bytes read from and written to storage.",
	}, []string{"operation"})
)

var bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// metaSuffix файл рядом с объектом, в котором хранится content type.
const metaSuffix = ".ctype"

// FileStore хранит объекты в <root>/<bucket>/<path>.
type FileStore struct {
	root    string
	secret  []byte
	baseURL string
	now     func() time.Time
	logger  *zap.Logger
}

var _ Storage = (*FileStore)(nil)

func NewFileStore(root, signSecret, publicBaseURL string, logger *zap.Logger) (*FileStore, error) {
	if signSecret == "" {
		return nil, fmt.Errorf("%w: storage sign secret is empty", models.ErrConfiguration)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FileStore{
		root:    abs,
		secret:  []byte(signSecret),
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		now:     time.Now,
		logger:  logger.Named("FileStore"),
	}, nil
}

// objectPath проверяет bucket и path и возвращает путь на диске. Выход за пределы bucket запрещен.
func (s *FileStore) objectPath(bucket, path string) (string, error) {
	if !bucketPattern.MatchString(bucket) {
		return "", fmt.Errorf("%w: invalid bucket %q", models.ErrInvalidInput, bucket)
	}
	clean := filepath.ToSlash(filepath.Clean("/" + path))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." || clean != strings.TrimPrefix(path, "/") || strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("%w: invalid object path %q", models.ErrInvalidInput, path)
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean)), nil
}

func observe(op string, err error, n int) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	operationsTotal.WithLabelValues(op, status).Inc()
	if err == nil && n > 0 {
		bytesTotal.WithLabelValues(op).Add(float64(n))
	}
}

func (s *FileStore) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (err error) {
	defer func() { observe("upload", err, len(data)) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.objectPath(bucket, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	// запись через временный файл, чтобы читатель не увидел половину объекта
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("commit object: %w", err)
	}
	if err := os.WriteFile(full+metaSuffix, []byte(contentType), 0o640); err != nil {
		return fmt.Errorf("write object meta: %w", err)
	}
	s.logger.Debug("Object uploaded", zap.String("bucket", bucket), zap.String("path", path), zap.Int("size", len(data)))
	return nil
}

func (s *FileStore) Download(ctx context.Context, bucket, path string) (data []byte, err error) {
	defer func() { observe("download", err, len(data)) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.objectPath(bucket, path)
	if err != nil {
		return nil, err
	}
	data, err = os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: object %s/%s", models.ErrNotFound, bucket, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Open открывает объект для отдачи по подписанной ссылке.
func (s *FileStore) Open(bucket, path string) (*os.File, string, error) {
	full, err := s.objectPath(bucket, path)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: object %s/%s", models.ErrNotFound, bucket, path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open object: %w", err)
	}
	contentType := "application/octet-stream"
	if meta, err := os.ReadFile(full + metaSuffix); err == nil && len(meta) > 0 {
		contentType = string(meta)
	}
	return f, contentType, nil
}

func (s *FileStore) signature(bucket, path string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(bucket + "/" + path + "\n" + strconv.FormatInt(expires, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// SignURL ссылка на /files/<bucket>/<path>, действительная ttl.
func (s *FileStore) SignURL(bucket, path string, ttl time.Duration) (string, error) {
	if _, err := s.objectPath(bucket, path); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be positive", models.ErrInvalidInput)
	}
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.signature(bucket, path, expires))
	escaped := (&url.URL{Path: bucket + "/" + path}).EscapedPath()
	return s.baseURL + "/files/" + escaped + "?" + q.Encode(), nil
}

// Verify проверяет подпись и срок действия ссылки.
func (s *FileStore) Verify(bucket, path, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed expires", models.ErrForbidden)
	}
	expected := s.signature(bucket, path, exp)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("%w: bad signature", models.ErrForbidden)
	}
	if s.now().Unix() > exp {
		return fmt.Errorf("%w: link expired", models.ErrForbidden)
	}
	return nil
}
