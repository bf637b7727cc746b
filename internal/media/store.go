// Package media models the external host that stores the actual photo/video
// bytes. The persistence core never touches file content — it only records
// the durable URL this package hands back after an upload.
package media

import (
	"context"
	"io"
)

// Store uploads raw media bytes somewhere durable and returns a public URL.
//
// ACCEPT INTERFACES, RETURN STRUCTS:
// The handler depends on this interface, not on MinIO. Tests inject a fake
// that records uploads in memory; production wires the MinIO implementation.
type Store interface {
	// Put streams the file to the object store and returns the URL clients
	// will use to fetch it. size is the exact content length (from the
	// multipart part), contentType drives kind inference upstream.
	Put(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error)
}
