package storage

import "io"

// MaxAttachmentSize caps answer and action-plan uploads.
const MaxAttachmentSize = 5 << 20 // 5 MB

// BlobStore is what the attachment handlers upload to and stream from.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
