package blobs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	credentialspb "cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

// maxSignedURLTTL is the longest lifetime a V4 signed URL may have.
const maxSignedURLTTL = 7 * 24 * time.Hour

// CloudStorage uploads objects to a Cloud Storage bucket and hands back a
// URL the chat UI can render.
type CloudStorage struct {
	client *storage.Client
	bucket string

	iam            *credentials.IamCredentialsClient
	serviceAccount string
	urlTTL         time.Duration
}

func NewCloudStorage(client *storage.Client, bucket string) *CloudStorage {
	return &CloudStorage{client: client, bucket: bucket}
}

// EnableSignedURLs makes Upload return V4 signed GET URLs, signed through
// the IAM credentials API on behalf of serviceAccount.
func (b *CloudStorage) EnableSignedURLs(iam *credentials.IamCredentialsClient, serviceAccount string, ttl time.Duration) {
	if ttl <= 0 || ttl > maxSignedURLTTL {
		ttl = maxSignedURLTTL
	}
	b.iam = iam
	b.serviceAccount = serviceAccount
	b.urlTTL = ttl
}

func (b *CloudStorage) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if b.bucket == "" {
		return "", fmt.Errorf("%w: storage bucket is not set", ErrBadRequest)
	}
	objectPath = strings.TrimPrefix(objectPath, "/")
	if objectPath == "" {
		return "", fmt.Errorf("%w: object path is required", ErrBadRequest)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w := b.client.Bucket(b.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	if b.iam == nil || b.serviceAccount == "" {
		return publicURL(b.bucket, objectPath), nil
	}
	return b.signedURL(ctx, objectPath)
}

func (b *CloudStorage) signedURL(ctx context.Context, objectPath string) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(b.urlTTL),
		GoogleAccessID: b.serviceAccount,
		SignBytes: func(payload []byte) ([]byte, error) {
			resp, err := b.iam.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", b.serviceAccount),
				Payload: payload,
			})
			if err != nil {
				return nil, err
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := storage.SignedURL(b.bucket, objectPath, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign url (check service account + permissions): %w", err)
	}
	return u, nil
}

func publicURL(bucket, objectPath string) string {
	parts := strings.Split(objectPath, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.Join(parts, "/"))
}
