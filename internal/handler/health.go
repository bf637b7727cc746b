package handler

import (
	"net/http"
	"time"
)

// HealthResponse is returned by the health endpoint. Monitoring systems
// (load balancers, uptime checkers) poll this to confirm the API is alive.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleHealth reports that the server is up.
//
// HTTP: GET /health
// Auth: None — health checks must work without credentials.
//
// The handler touches no dependencies on purpose: a health check that
// queries the database would report the DB's health, not the server's.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}
