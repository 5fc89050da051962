package storage

import "io"

// BlobStore keeps conversion artifacts: uploaded sources, intermediate QTI
// drafts and rendered Moodle files.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}
