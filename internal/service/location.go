// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// WHY A SEPARATE SERVICE LAYER?
// Without it, handlers do everything: parse HTTP, validate data, call the
// database, format responses. With it:
//
//  1. TESTING: business logic is tested with plain Go function calls, no
//     HTTP requests needed (see location_test.go's mock repository).
//  2. REUSE: the same logic could back a CLI import tool or a gRPC server.
//  3. SEPARATION: handlers know HTTP, services know rules, repositories
//     know SQL — and none of them knows the others' business.
//
// DEPENDENCY INJECTION:
// LocationService takes a repository.LocationRepository (interface), NOT a
// *sqlite.DB. Tests pass a mock; main passes SQLite; nothing here changes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/sakif/travel-journal/internal/apperror"
	"github.com/sakif/travel-journal/internal/model"
	"github.com/sakif/travel-journal/internal/repository"
)

// Validation constants — named, not magic numbers, so error messages and
// checks can't drift apart.
const (
	MaxLocationNameLength = 200
	MaxCaptionLength      = 2000
	MaxURLLength          = 2048
)

// LocationService handles business logic for locations and their media.
//
// EVERY method takes the authenticated userID as its first data argument
// and passes it down to the repository, which scopes each query to the
// owner. Cross-user access comes back as NotFound, indistinguishable
// from "doesn't exist".
type LocationService struct {
	repo   repository.LocationRepository
	logger *slog.Logger
}

// NewLocationService creates a new LocationService.
//
// CONSTRUCTOR PATTERN IN GO:
// Go doesn't have constructors like Java/Python; NewXxx functions taking
// all dependencies as parameters fill that role. The caller decides WHICH
// repository implementation to inject (SQLite, mock for tests).
func NewLocationService(repo repository.LocationRepository, logger *slog.Logger) *LocationService {
	return &LocationService{
		repo:   repo,
		logger: logger,
	}
}

// List returns all of the user's locations, newest first.
func (s *LocationService) List(ctx context.Context, userID string) ([]model.Location, error) {
	locations, err := s.repo.List(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list locations",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	return locations, nil
}

// Search returns the user's locations whose name contains the pattern,
// case-insensitively, newest first. An empty pattern is a validation error
// — the list endpoint is the way to ask for "everything".
//
// This is a substring match, not tokenized or ranked search: "par" matches
// both "Paris" and "Parma", and nothing is scored by relevance.
func (s *LocationService) Search(ctx context.Context, userID, pattern string) ([]model.Location, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, apperror.ValidationFailed("name", "search pattern is required")
	}

	locations, err := s.repo.SearchByName(ctx, userID, pattern)
	if err != nil {
		s.logger.Error("failed to search locations",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("searching locations: %w", err)
	}
	return locations, nil
}

// Timeline flattens every media item across all of the user's locations
// into one list, newest first, each entry carrying a denormalized snapshot
// of its parent location.
//
// WHY FLATTEN IN THE SERVICE, NOT SQL?
// A JOIN could produce the same rows, but the denormalized nested shape
// (media + location snapshot) is an API concern, and the per-user data set
// is small — a map-and-sort here is simpler than scanning a JOIN into two
// structs. sort.Slice is NOT stable: entries with identical timestamps come
// back in unspecified order, and callers must not rely on it.
func (s *LocationService) Timeline(ctx context.Context, userID string) ([]model.TimelineEntry, error) {
	locations, err := s.repo.List(ctx, userID)
	if err != nil {
		s.logger.Error("failed to build timeline",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("building timeline: %w", err)
	}

	entries := []model.TimelineEntry{}
	for _, loc := range locations {
		for _, m := range loc.Media {
			entries = append(entries, model.TimelineEntry{
				ID:        m.ID,
				URL:       m.URL,
				Kind:      m.Kind,
				Caption:   m.Caption,
				CreatedAt: m.CreatedAt,
				Location: model.TimelineLocation{
					ID:          loc.ID,
					Name:        loc.Name,
					Coordinates: loc.Coordinates,
				},
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return entries, nil
}

// Get retrieves a single owned location. NotFound if absent or not owned.
func (s *LocationService) Get(ctx context.Context, userID, locationID string) (*model.Location, error) {
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil, apperror.ValidationFailed("id", "location ID is required")
	}

	return s.repo.GetByID(ctx, userID, locationID)
}

// Create validates and saves a new location with an empty media list.
//
// VALIDATE AT THE SERVICE LEVEL, BEFORE ANY WRITE:
// The handler does basic parsing (is the JSON valid?); this method enforces
// the business rules (name present, coordinates on the globe). Failing here
// means no partial write ever happens.
func (s *LocationService) Create(ctx context.Context, userID, name string, coords model.Coordinates, country string) (*model.Location, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "location name is required")
	}
	if len(name) > MaxLocationNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("location name must be %d characters or less", MaxLocationNameLength))
	}
	if err := validateCoordinates(coords); err != nil {
		return nil, err
	}

	loc := &model.Location{
		Name:        name,
		Coordinates: coords,
		Country:     strings.TrimSpace(country),
		UserID:      userID,
	}

	if err := s.repo.Create(ctx, loc); err != nil {
		s.logger.Error("failed to create location",
			slog.String("userID", userID),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating location: %w", err)
	}

	s.logger.Info("location created",
		slog.String("id", loc.ID),
		slog.String("userID", userID),
		slog.String("name", loc.Name),
	)

	return loc, nil
}

// AddMedia appends a photo/video to an owned location and returns the
// updated location.
//
// The URL comes from the out-of-scope upload step (or the object store
// variant in the handler) — this method never sees file bytes.
func (s *LocationService) AddMedia(ctx context.Context, userID, locationID, url, kind, caption string) (*model.Location, error) {
	url = strings.TrimSpace(url)
	kind = strings.TrimSpace(kind)

	if url == "" {
		return nil, apperror.ValidationFailed("url", "media url is required")
	}
	if len(url) > MaxURLLength {
		return nil, apperror.ValidationFailed("url",
			fmt.Sprintf("media url must be %d characters or less", MaxURLLength))
	}
	if kind != model.MediaKindPhoto && kind != model.MediaKindVideo {
		return nil, apperror.ValidationFailed("kind", `media kind must be "photo" or "video"`)
	}
	if len(caption) > MaxCaptionLength {
		return nil, apperror.ValidationFailed("caption",
			fmt.Sprintf("caption must be %d characters or less", MaxCaptionLength))
	}

	media := &model.Media{
		URL:     url,
		Kind:    kind,
		Caption: caption,
	}

	loc, err := s.repo.AddMedia(ctx, userID, locationID, media)
	if err != nil {
		return nil, err
	}

	s.logger.Info("media added",
		slog.String("locationID", locationID),
		slog.String("mediaID", media.ID),
		slog.String("kind", kind),
	)

	return loc, nil
}

// EditMediaCaption updates a caption in place. The empty string is a valid
// caption (it clears the old one). NotFound if the location or media is
// absent or not owned.
func (s *LocationService) EditMediaCaption(ctx context.Context, userID, locationID, mediaID, caption string) (*model.Location, error) {
	if len(caption) > MaxCaptionLength {
		return nil, apperror.ValidationFailed("caption",
			fmt.Sprintf("caption must be %d characters or less", MaxCaptionLength))
	}

	loc, err := s.repo.UpdateMediaCaption(ctx, userID, locationID, mediaID, caption)
	if err != nil {
		return nil, err
	}

	s.logger.Info("media caption updated",
		slog.String("locationID", locationID),
		slog.String("mediaID", mediaID),
	)

	return loc, nil
}

// RemoveMedia deletes a media item.
//
// IDEMPOTENT DELETE:
// If the media ID isn't in an owned location's list, this succeeds anyway
// and returns the unchanged location — repeated deletes are safe. A missing
// or foreign LOCATION is still NotFound.
func (s *LocationService) RemoveMedia(ctx context.Context, userID, locationID, mediaID string) (*model.Location, error) {
	loc, err := s.repo.RemoveMedia(ctx, userID, locationID, mediaID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("media removed",
		slog.String("locationID", locationID),
		slog.String("mediaID", mediaID),
	)

	return loc, nil
}

// Delete removes a location and its entire media list atomically.
func (s *LocationService) Delete(ctx context.Context, userID, locationID string) error {
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return apperror.ValidationFailed("id", "location ID is required")
	}

	if err := s.repo.Delete(ctx, userID, locationID); err != nil {
		return err
	}

	s.logger.Info("location deleted",
		slog.String("id", locationID),
		slog.String("userID", userID),
	)
	return nil
}

// validateCoordinates rejects NaN/Inf and out-of-range values. Absent
// coordinates decode as zero values, which are on the globe (0,0) — the
// handler distinguishes "missing" from "zero" before calling the service.
func validateCoordinates(c model.Coordinates) error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) ||
		math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return apperror.ValidationFailed("coordinates", "coordinates must be finite numbers")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return apperror.ValidationFailed("coordinates", "latitude must be between -90 and 90")
	}
	if c.Lng < -180 || c.Lng > 180 {
		return apperror.ValidationFailed("coordinates", "longitude must be between -180 and 180")
	}
	return nil
}
