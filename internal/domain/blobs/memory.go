package blobs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Object is a stored blob.
type Object struct {
	ContentType string
	Data        []byte
}

// Memory keeps uploads in process. Used for local runs and tests.
type Memory struct {
	bucket string

	mu        sync.Mutex
	objects   map[string]Object
	uploadErr error
}

func NewMemory(bucket string) *Memory {
	if bucket == "" {
		bucket = "local"
	}
	return &Memory{bucket: bucket, objects: make(map[string]Object)}
}

// FailUploads makes every following Upload return err.
func (m *Memory) FailUploads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErr = err
}

func (m *Memory) Upload(_ context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	objectPath = strings.TrimPrefix(objectPath, "/")
	if objectPath == "" {
		return "", fmt.Errorf("%w: object path is required", ErrBadRequest)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return "", fmt.Errorf("failed to write object: %w", m.uploadErr)
	}
	m.objects[objectPath] = Object{ContentType: contentType, Data: data}
	return fmt.Sprintf("memory://%s/%s", m.bucket, objectPath), nil
}

// Object returns the blob stored at objectPath.
func (m *Memory) Object(objectPath string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[objectPath]
	return o, ok
}

// Len is the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
