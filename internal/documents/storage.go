package documents

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

const linkTTL = 15 * time.Minute

// S3API is the subset of the S3 client used by ObjectStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner signs GET requests for downloads.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectStore keeps document bodies in S3. If bucket is empty, every
// operation returns ErrStorageDisabled.
type ObjectStore struct {
	bucket    string
	client    S3API
	presigner Presigner
	logger    *logging.Logger
}

// NewS3ObjectStore wires the store from a concrete client.
func NewS3ObjectStore(client *s3.Client, bucket string, logger *logging.Logger) *ObjectStore {
	if client == nil {
		return NewObjectStore(nil, nil, bucket, logger)
	}
	return NewObjectStore(client, s3.NewPresignClient(client), bucket, logger)
}

func NewObjectStore(client S3API, presigner Presigner, bucket string, logger *logging.Logger) *ObjectStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &ObjectStore{bucket: bucket, client: client, presigner: presigner, logger: logger}
}

// Enabled reports whether a bucket is configured.
func (s *ObjectStore) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

// ObjectKey builds reps/{repID}/{docID}/{file}.
func ObjectKey(repID, docID, filename string) string {
	return fmt.Sprintf("reps/%s/%s/%s", repID, docID, cleanFilename(filename))
}

// Put uploads body under key.
func (s *ObjectStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if !s.Enabled() {
		return ErrStorageDisabled
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("documents: s3 put %s: %w", key, err)
	}
	s.logger.Info("stored document", "s3_key", key, "size_bytes", size)
	return nil
}

// PresignGet returns a time-limited download URL.
func (s *ObjectStore) PresignGet(ctx context.Context, key string) (string, time.Time, error) {
	if !s.Enabled() || s.presigner == nil {
		return "", time.Time{}, ErrStorageDisabled
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(linkTTL))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("documents: presign %s: %w", key, err)
	}
	return req.URL, time.Now().UTC().Add(linkTTL), nil
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}
