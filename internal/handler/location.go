package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/travel-journal/internal/apperror"
	"github.com/sakif/travel-journal/internal/auth"
	"github.com/sakif/travel-journal/internal/media"
	"github.com/sakif/travel-journal/internal/model"
	"github.com/sakif/travel-journal/internal/service"
)

// maxUploadMemory caps how much of a multipart upload is buffered in RAM
// before spilling to a temp file. 8 MiB keeps photos in memory; videos
// stream through a temp file.
const maxUploadMemory = 8 << 20

// LocationHandler manages CRUD operations for travel locations and their media.
//
// WHY A SEPARATE HANDLER?
// Separating location logic from auth logic follows the Single Responsibility
// Principle. Each handler struct "owns" one area of functionality. This makes
// code easier to:
// - Test (mock dependencies independently)
// - Understand (find all location logic in one place)
// - Modify (change media storage without touching auth)
type LocationHandler struct {
	locations *service.LocationService
	uploads   media.Store // nil when no object store is configured
	logger    *slog.Logger
}

// NewLocationHandler creates a LocationHandler. Pass a nil uploads store to
// disable the multipart upload route; the URL-based media route still works.
func NewLocationHandler(locations *service.LocationService, uploads media.Store, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{
		locations: locations,
		uploads:   uploads,
		logger:    logger,
	}
}

// coordinatesPayload mirrors model.Coordinates with pointer fields.
//
// WHY POINTER FIELDS?
// A plain float64 cannot distinguish "client sent 0" from "client sent
// nothing" — both decode to 0. Lat 0, Lng 0 is a real place (the Gulf of
// Guinea), so we use pointers: nil means the field was absent, which is a
// validation error.
type coordinatesPayload struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// createLocationRequest is the body for creating a location.
type createLocationRequest struct {
	Name        string              `json:"name"`
	Coordinates *coordinatesPayload `json:"coordinates"`
	Country     string              `json:"country"`
}

// addMediaRequest is the body for attaching media by URL.
type addMediaRequest struct {
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Caption string `json:"caption"`
}

// captionRequest is the body for editing a media caption.
// A pointer distinguishes "clear the caption" (empty string) from a body
// that never mentioned the field.
type captionRequest struct {
	Caption *string `json:"caption"`
}

// HandleList returns all of the authenticated user's locations, newest first.
//
// HTTP: GET /api/locations
func (h *LocationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	locations, err := h.locations.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, locations)
}

// HandleSearch returns the user's locations whose name contains the query.
//
// HTTP: GET /api/locations/search?name=par
//
// The match is a case-insensitive substring: "par" finds both "Paris" and
// "Gare du Nord, paris". A missing or empty name parameter is a 400, not an
// empty result — an accidental empty search returning everything looks like
// a successful query to the caller.
func (h *LocationHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	locations, err := h.locations.Search(r.Context(), userID, r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, locations)
}

// HandleTimeline returns every media item the user has attached, across all
// locations, newest first. Each entry carries a snapshot of its location so
// the frontend can render a feed without extra lookups.
//
// HTTP: GET /api/locations/timeline
func (h *LocationHandler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	entries, err := h.locations.Timeline(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// HandleGet returns a single location with its media.
//
// HTTP: GET /api/locations/{id}
//
// A location owned by someone else returns 404, same as one that doesn't
// exist. The response never reveals whether the ID is real.
func (h *LocationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	location, err := h.locations.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, location)
}

// HandleCreate records a new location.
//
// HTTP: POST /api/locations
// REQUEST BODY: {"name": "Paris", "coordinates": {"lat": 48.85, "lng": 2.35}, "country": "France"}
func (h *LocationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req createLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("create location: invalid JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	if req.Coordinates == nil || req.Coordinates.Lat == nil || req.Coordinates.Lng == nil {
		writeError(w, apperror.ValidationFailed("coordinates", "coordinates with lat and lng are required"))
		return
	}

	location, err := h.locations.Create(r.Context(), userID, req.Name, model.Coordinates{Lat: *req.Coordinates.Lat, Lng: *req.Coordinates.Lng}, req.Country)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, location)
}

// HandleDelete removes a location and all of its media.
//
// HTTP: DELETE /api/locations/{id}
//
// Returns 200 with a confirmation body rather than a bare 204 — frontends
// surface the message directly in their toast notifications.
func (h *LocationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	if err := h.locations.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "location deleted"})
}

// HandleAddMedia attaches an already-hosted media item to a location by URL.
//
// HTTP: POST /api/locations/{id}/media
// REQUEST BODY: {"url": "https://...", "kind": "photo", "caption": "sunset"}
func (h *LocationHandler) HandleAddMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req addMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("add media: invalid JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	location, err := h.locations.AddMedia(r.Context(), userID, r.PathValue("id"), req.URL, req.Kind, req.Caption)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, location)
}

// HandleUploadMedia accepts a multipart file upload, stores it in the object
// store, and attaches the resulting URL to the location.
//
// HTTP: POST /api/locations/{id}/media/upload
// FORM FIELDS: file (required), caption (optional)
//
// KIND INFERENCE:
// With a real file in hand we don't ask the client for a kind — the
// Content-Type of the part decides: image/* → photo, video/* → video,
// anything else is rejected. The URL-based route still takes an explicit
// kind because a bare URL carries no type information.
func (h *LocationHandler) HandleUploadMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	if h.uploads == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "file uploads are not configured; attach media by url instead"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.logger.Warn("upload media: bad multipart body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid multipart body"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "a file part is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	var kind string
	switch {
	case strings.HasPrefix(contentType, "image/"):
		kind = model.MediaKindPhoto
	case strings.HasPrefix(contentType, "video/"):
		kind = model.MediaKindVideo
	default:
		writeError(w, apperror.ValidationFailed("file", "only image/* and video/* uploads are accepted"))
		return
	}

	url, err := h.uploads.Put(r.Context(), header.Filename, contentType, header.Size, file)
	if err != nil {
		h.logger.Error("upload media: store write failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	location, err := h.locations.AddMedia(r.Context(), userID, r.PathValue("id"), url, kind, r.FormValue("caption"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, location)
}

// HandleEditCaption replaces a media item's caption.
//
// HTTP: PUT /api/locations/{id}/media/{mediaId}
// REQUEST BODY: {"caption": "new caption"}
//
// An empty string is a valid caption — it clears the existing one.
func (h *LocationHandler) HandleEditCaption(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req captionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("edit caption: invalid JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}
	if req.Caption == nil {
		writeError(w, apperror.ValidationFailed("caption", "caption field is required"))
		return
	}

	location, err := h.locations.EditMediaCaption(r.Context(), userID, r.PathValue("id"), r.PathValue("mediaId"), *req.Caption)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, location)
}

// HandleRemoveMedia detaches a media item from a location.
//
// HTTP: DELETE /api/locations/{id}/media/{mediaId}
//
// Removing a media ID that isn't attached succeeds and returns the location
// unchanged. Deletes are idempotent: retrying a timed-out DELETE must not
// produce an error the first attempt wouldn't have.
func (h *LocationHandler) HandleRemoveMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	location, err := h.locations.RemoveMedia(r.Context(), userID, r.PathValue("id"), r.PathValue("mediaId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, location)
}
