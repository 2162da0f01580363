// Package blob stores the raw bytes of uploaded datasets.
//
// MinioStore talks to any S3-compatible server. MemoryStore keeps everything
// in process and backs tests and single-instance deployments.
package blob

import "errors"

// ErrBlobNotFound is returned by Get when the key does not exist.
var ErrBlobNotFound = errors.New("blob not found")
