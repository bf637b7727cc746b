package middleware

import (
	"net/http"
)

// BodyLimit returns a middleware that caps request body size at maxBytes.
//
// WHY LIMIT AT ALL?
// json.Decode and ParseMultipartForm read the body into memory (or temp
// files). Without a cap, a single client streaming gigabytes into POST
// /api/locations can exhaust the server. The cap belongs in middleware so
// every route gets it without each handler remembering to.
//
// http.MaxBytesReader wraps the body so that reading past the limit returns
// an error AND closes the connection. The handler sees a decode error and
// responds 400; clients that keep streaming get cut off at the TCP level.
//
// A maxBytes of zero or less disables the limit.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
