package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/xid"
)

// MinioStore implements Store against any S3-compatible object store
// (MinIO, AWS S3, ...). The bucket is ensured at construction time so the
// first upload doesn't pay for — or fail on — a missing bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string // base URL for fetching objects, no trailing slash
}

// MinioOptions configures NewMinioStore.
type MinioOptions struct {
	Endpoint  string // host:port, e.g. "localhost:9000"
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable base for stored objects (a CDN
	// or the MinIO server itself). Empty → derived from Endpoint/UseSSL.
	PublicURL string
}

// NewMinioStore connects to the object store and ensures the bucket exists.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("media: creating MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("media: checking bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("media: creating bucket %s: %w", opts.Bucket, err)
		}
	}

	publicURL := opts.PublicURL
	if publicURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + opts.Endpoint
	}

	return &MinioStore{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Put streams the file into the bucket under a collision-proof object name
// and returns the public URL.
//
// OBJECT NAMING:
// <xid>/<original filename>. The xid prefix makes every upload unique (two
// users can both upload "beach.jpg") while keeping the original name visible
// in the URL for humans. path.Base strips any sneaky directory components
// from a client-supplied filename.
func (s *MinioStore) Put(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	objectName := xid.New().String() + "/" + sanitizeFilename(filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("media: uploading %s: %w", objectName, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, objectName), nil
}

// sanitizeFilename reduces a client-supplied filename to a safe final path
// segment, falling back to "upload" when nothing usable remains.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, `/`))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
