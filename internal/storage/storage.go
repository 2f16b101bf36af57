// Package storage keeps rendered acceptance PDFs in an S3-compatible bucket.
// Implementations must avoid using local disk and rely on streaming I/O only.
package storage

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"
)

// PDFContentType is the content type of every stored document.
const PDFContentType = "application/pdf"

// KeyForDocument is the object key of the rendered PDF for a document id.
func KeyForDocument(documentID string) string {
	return path.Join("documents", documentID+".pdf")
}

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a reusable, S3-compatible object storage client interface.
// Methods use context and streaming readers/writers; no local disk is used.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL. A non-empty filename is sent back
	// as the attachment name by the object store.
	PresignGet(ctx context.Context, key string, expiry time.Duration, filename string) (string, error)
}

// PutPDF stores a rendered document under KeyForDocument(documentID).
func PutPDF(ctx context.Context, s Storage, documentID string, pdf []byte, meta map[string]string) (ObjectInfo, error) {
	return s.Put(ctx, KeyForDocument(documentID), bytes.NewReader(pdf), PutObjectOptions{
		Size:        int64(len(pdf)),
		ContentType: PDFContentType,
		Metadata:    meta,
	})
}
