package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/travel-journal/internal/apperror"
	"github.com/sakif/travel-journal/internal/model"
)

// =========================================================================
// MOCK LOCATION REPOSITORY
// =========================================================================
//
// In-memory implementation of repository.LocationRepository, mirroring the
// real one's contract: owner-scoped queries, NotFound for foreign rows, and
// the idempotent media delete.

type mockLocationRepo struct {
	locations map[string]*model.Location
	nextID    int
	failWith  error // when set, every call returns this error
}

func newMockLocationRepo() *mockLocationRepo {
	return &mockLocationRepo{locations: make(map[string]*model.Location)}
}

func (m *mockLocationRepo) owned(userID, id string) (*model.Location, error) {
	loc, ok := m.locations[id]
	if !ok || loc.UserID != userID {
		return nil, apperror.NotFound("location", id)
	}
	return loc, nil
}

func (m *mockLocationRepo) Create(_ context.Context, loc *model.Location) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.nextID++
	loc.ID = fmt.Sprintf("loc-%d", m.nextID)
	loc.CreatedAt = time.Now().Add(time.Duration(m.nextID) * time.Millisecond)
	if loc.Media == nil {
		loc.Media = []model.Media{}
	}
	stored := *loc
	m.locations[loc.ID] = &stored
	return nil
}

func (m *mockLocationRepo) GetByID(_ context.Context, userID, id string) (*model.Location, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	loc, err := m.owned(userID, id)
	if err != nil {
		return nil, err
	}
	result := *loc
	result.Media = append([]model.Media{}, loc.Media...)
	return &result, nil
}

func (m *mockLocationRepo) List(_ context.Context, userID string) ([]model.Location, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	result := []model.Location{}
	for _, loc := range m.locations {
		if loc.UserID == userID {
			copied := *loc
			copied.Media = append([]model.Media{}, loc.Media...)
			result = append(result, copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockLocationRepo) SearchByName(ctx context.Context, userID, pattern string) ([]model.Location, error) {
	all, err := m.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := []model.Location{}
	for _, loc := range all {
		if strings.Contains(strings.ToLower(loc.Name), strings.ToLower(pattern)) {
			result = append(result, loc)
		}
	}
	return result, nil
}

func (m *mockLocationRepo) Delete(_ context.Context, userID, id string) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, err := m.owned(userID, id); err != nil {
		return err
	}
	delete(m.locations, id)
	return nil
}

func (m *mockLocationRepo) AddMedia(ctx context.Context, userID, locationID string, media *model.Media) (*model.Location, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	loc, err := m.owned(userID, locationID)
	if err != nil {
		return nil, err
	}
	m.nextID++
	media.ID = fmt.Sprintf("media-%d", m.nextID)
	media.CreatedAt = time.Now().Add(time.Duration(m.nextID) * time.Millisecond)
	loc.Media = append(loc.Media, *media)
	return m.GetByID(ctx, userID, locationID)
}

func (m *mockLocationRepo) UpdateMediaCaption(ctx context.Context, userID, locationID, mediaID, caption string) (*model.Location, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	loc, err := m.owned(userID, locationID)
	if err != nil {
		return nil, err
	}
	for i := range loc.Media {
		if loc.Media[i].ID == mediaID {
			loc.Media[i].Caption = caption
			return m.GetByID(ctx, userID, locationID)
		}
	}
	return nil, apperror.NotFound("media", mediaID)
}

func (m *mockLocationRepo) RemoveMedia(ctx context.Context, userID, locationID, mediaID string) (*model.Location, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	loc, err := m.owned(userID, locationID)
	if err != nil {
		return nil, err
	}
	for i := range loc.Media {
		if loc.Media[i].ID == mediaID {
			loc.Media = append(loc.Media[:i], loc.Media[i+1:]...)
			break
		}
	}
	// Absent media ID: successful no-op
	return m.GetByID(ctx, userID, locationID)
}

// =========================================================================
// TEST HELPERS
// =========================================================================

func newTestLocationService(t *testing.T) (*LocationService, *mockLocationRepo) {
	t.Helper()
	repo := newMockLocationRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewLocationService(repo, logger), repo
}

var parisCoords = model.Coordinates{Lat: 48.8566, Lng: 2.3522}

func createTestLocation(t *testing.T, svc *LocationService, userID, name string) *model.Location {
	t.Helper()
	loc, err := svc.Create(context.Background(), userID, name, parisCoords, "")
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	return loc
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateLocation(t *testing.T) {
	svc, _ := newTestLocationService(t)

	loc, err := svc.Create(context.Background(), "user-a", "  Paris  ", parisCoords, " France ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if loc.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if loc.Name != "Paris" {
		t.Errorf("Name = %q, want trimmed %q", loc.Name, "Paris")
	}
	if loc.Country != "France" {
		t.Errorf("Country = %q, want trimmed %q", loc.Country, "France")
	}
	if loc.UserID != "user-a" {
		t.Errorf("UserID = %q, want %q", loc.UserID, "user-a")
	}
	// A brand-new location always has an empty (non-nil) media list
	if loc.Media == nil || len(loc.Media) != 0 {
		t.Errorf("Media = %v, want empty list", loc.Media)
	}
}

func TestCreateLocation_Validation(t *testing.T) {
	svc, _ := newTestLocationService(t)

	tests := []struct {
		name    string
		locName string
		coords  model.Coordinates
	}{
		{"empty name", "", parisCoords},
		{"whitespace name", "   ", parisCoords},
		{"name too long", strings.Repeat("x", MaxLocationNameLength+1), parisCoords},
		{"latitude too high", "Paris", model.Coordinates{Lat: 91, Lng: 0}},
		{"latitude too low", "Paris", model.Coordinates{Lat: -91, Lng: 0}},
		{"longitude too high", "Paris", model.Coordinates{Lat: 0, Lng: 181}},
		{"longitude too low", "Paris", model.Coordinates{Lat: 0, Lng: -181}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "user-a", tt.locName, tt.coords, "")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// OWNERSHIP TESTS
// =========================================================================

func TestCrossUserAccessIsNotFound(t *testing.T) {
	svc, _ := newTestLocationService(t)

	loc := createTestLocation(t, svc, "user-a", "Paris")

	// user-b probing user-a's location must get NotFound on every operation
	// — never Forbidden, which would confirm the ID exists.
	t.Run("get", func(t *testing.T) {
		_, err := svc.Get(context.Background(), "user-b", loc.ID)
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})
	t.Run("add media", func(t *testing.T) {
		_, err := svc.AddMedia(context.Background(), "user-b", loc.ID, "http://x/img.jpg", "photo", "")
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("AddMedia() error = %v, want ErrNotFound", err)
		}
	})
	t.Run("delete", func(t *testing.T) {
		err := svc.Delete(context.Background(), "user-b", loc.ID)
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})

	// And the location must still be there for its real owner
	if _, err := svc.Get(context.Background(), "user-a", loc.ID); err != nil {
		t.Errorf("owner Get() after probing error = %v", err)
	}
}

func TestList_OnlyOwnLocations(t *testing.T) {
	svc, _ := newTestLocationService(t)

	createTestLocation(t, svc, "user-a", "Paris")
	createTestLocation(t, svc, "user-a", "Tokyo")
	createTestLocation(t, svc, "user-b", "Lima")

	locations, err := svc.List(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(locations) != 2 {
		t.Fatalf("List() returned %d locations, want 2", len(locations))
	}
	for _, loc := range locations {
		if loc.UserID != "user-a" {
			t.Errorf("List() leaked a location owned by %q", loc.UserID)
		}
	}
}

// =========================================================================
// SEARCH TESTS
// =========================================================================

func TestSearch(t *testing.T) {
	svc, _ := newTestLocationService(t)

	createTestLocation(t, svc, "user-a", "Paris")
	createTestLocation(t, svc, "user-a", "Parma")
	createTestLocation(t, svc, "user-a", "Tokyo")

	locations, err := svc.Search(context.Background(), "user-a", "PAR")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(locations) != 2 {
		t.Errorf("Search(\"PAR\") returned %d locations, want 2 (case-insensitive substring)", len(locations))
	}
}

func TestSearch_EmptyPattern(t *testing.T) {
	svc, _ := newTestLocationService(t)

	_, err := svc.Search(context.Background(), "user-a", "   ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Search() error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// MEDIA TESTS
// =========================================================================

func TestAddMedia_RoundTrip(t *testing.T) {
	svc, _ := newTestLocationService(t)

	loc := createTestLocation(t, svc, "user-a", "Paris")

	updated, err := svc.AddMedia(context.Background(), "user-a", loc.ID,
		"http://x/img.jpg", "photo", "Eiffel")
	if err != nil {
		t.Fatalf("AddMedia() error = %v", err)
	}
	if len(updated.Media) != 1 {
		t.Fatalf("Media list has %d items, want 1", len(updated.Media))
	}

	// get must reflect the same last element
	fetched, err := svc.Get(context.Background(), "user-a", loc.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	last := fetched.Media[len(fetched.Media)-1]
	if last.URL != "http://x/img.jpg" || last.Kind != "photo" || last.Caption != "Eiffel" {
		t.Errorf("last media = %+v, want url/kind/caption to round-trip", last)
	}
	if last.ID == "" || last.CreatedAt.IsZero() {
		t.Error("AddMedia() did not stamp ID and CreatedAt")
	}
}

func TestAddMedia_Validation(t *testing.T) {
	svc, _ := newTestLocationService(t)
	loc := createTestLocation(t, svc, "user-a", "Paris")

	tests := []struct {
		name string
		url  string
		kind string
	}{
		{"empty url", "", "photo"},
		{"empty kind", "http://x/img.jpg", ""},
		{"unknown kind", "http://x/img.jpg", "gif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddMedia(context.Background(), "user-a", loc.ID, tt.url, tt.kind, "")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("AddMedia() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestEditMediaCaption(t *testing.T) {
	svc, _ := newTestLocationService(t)
	loc := createTestLocation(t, svc, "user-a", "Paris")

	updated, err := svc.AddMedia(context.Background(), "user-a", loc.ID,
		"http://x/img.jpg", "photo", "Eiffel")
	if err != nil {
		t.Fatalf("AddMedia() error = %v", err)
	}
	mediaID := updated.Media[0].ID

	edited, err := svc.EditMediaCaption(context.Background(), "user-a", loc.ID, mediaID, "Eiffel Tower")
	if err != nil {
		t.Fatalf("EditMediaCaption() error = %v", err)
	}
	if edited.Media[0].Caption != "Eiffel Tower" {
		t.Errorf("Caption = %q, want %q", edited.Media[0].Caption, "Eiffel Tower")
	}

	// Clearing to the empty string is allowed
	cleared, err := svc.EditMediaCaption(context.Background(), "user-a", loc.ID, mediaID, "")
	if err != nil {
		t.Fatalf("EditMediaCaption(\"\") error = %v", err)
	}
	if cleared.Media[0].Caption != "" {
		t.Errorf("Caption = %q, want empty", cleared.Media[0].Caption)
	}
}

func TestEditMediaCaption_UnknownMedia(t *testing.T) {
	svc, _ := newTestLocationService(t)
	loc := createTestLocation(t, svc, "user-a", "Paris")

	_, err := svc.EditMediaCaption(context.Background(), "user-a", loc.ID, "no-such-media", "x")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("EditMediaCaption() error = %v, want ErrNotFound", err)
	}
}

func TestRemoveMedia_Idempotent(t *testing.T) {
	svc, _ := newTestLocationService(t)
	loc := createTestLocation(t, svc, "user-a", "Paris")

	updated, err := svc.AddMedia(context.Background(), "user-a", loc.ID,
		"http://x/img.jpg", "photo", "")
	if err != nil {
		t.Fatalf("AddMedia() error = %v", err)
	}
	mediaID := updated.Media[0].ID

	// First remove deletes the item
	after, err := svc.RemoveMedia(context.Background(), "user-a", loc.ID, mediaID)
	if err != nil {
		t.Fatalf("first RemoveMedia() error = %v", err)
	}
	if len(after.Media) != 0 {
		t.Errorf("Media list has %d items after remove, want 0", len(after.Media))
	}

	// Second remove (and any after) is a successful no-op
	for i := 0; i < 3; i++ {
		again, err := svc.RemoveMedia(context.Background(), "user-a", loc.ID, mediaID)
		if err != nil {
			t.Fatalf("repeat RemoveMedia() #%d error = %v", i+1, err)
		}
		if len(again.Media) != 0 {
			t.Errorf("repeat RemoveMedia() #%d changed the location", i+1)
		}
	}
}

func TestRemoveMedia_MissingLocationStillNotFound(t *testing.T) {
	svc, _ := newTestLocationService(t)

	// The idempotency only applies to the MEDIA leg — a missing location
	// is still an error.
	_, err := svc.RemoveMedia(context.Background(), "user-a", "no-such-location", "m1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RemoveMedia() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// TIMELINE TESTS
// =========================================================================

func TestTimeline(t *testing.T) {
	svc, _ := newTestLocationService(t)

	paris := createTestLocation(t, svc, "user-a", "Paris")
	tokyo := createTestLocation(t, svc, "user-a", "Tokyo")
	createTestLocation(t, svc, "user-a", "Empty Place") // no media — excluded

	// The mock stamps strictly increasing CreatedAt, so insertion order is
	// chronological: paris1, tokyo1, paris2.
	if _, err := svc.AddMedia(context.Background(), "user-a", paris.ID, "http://x/p1.jpg", "photo", "first"); err != nil {
		t.Fatalf("AddMedia() error = %v", err)
	}
	if _, err := svc.AddMedia(context.Background(), "user-a", tokyo.ID, "http://x/t1.mp4", "video", "second"); err != nil {
		t.Fatalf("AddMedia() error = %v", err)
	}
	if _, err := svc.AddMedia(context.Background(), "user-a", paris.ID, "http://x/p2.jpg", "photo", "third"); err != nil {
		t.Fatalf("AddMedia() error = %v", err)
	}

	entries, err := svc.Timeline(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("Timeline() returned %d entries, want 3", len(entries))
	}

	// Newest first
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.After(entries[i-1].CreatedAt) {
			t.Errorf("Timeline() not sorted descending at index %d", i)
		}
	}
	if entries[0].Caption != "third" || entries[2].Caption != "first" {
		t.Errorf("Timeline() order = [%s, %s, %s], want [third, second, first]",
			entries[0].Caption, entries[1].Caption, entries[2].Caption)
	}

	// Denormalized parent snapshot matches the live location
	if entries[0].Location.ID != paris.ID || entries[0].Location.Name != "Paris" {
		t.Errorf("entry location snapshot = %+v, want Paris", entries[0].Location)
	}
	if entries[0].Location.Coordinates != parisCoords {
		t.Errorf("entry coordinates = %+v, want %+v", entries[0].Location.Coordinates, parisCoords)
	}
}

func TestTimeline_Empty(t *testing.T) {
	svc, _ := newTestLocationService(t)

	entries, err := svc.Timeline(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("Timeline() = %v, want empty non-nil slice", entries)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDeleteLocation_CascadesMedia(t *testing.T) {
	svc, _ := newTestLocationService(t)

	loc := createTestLocation(t, svc, "user-a", "Paris")
	if _, err := svc.AddMedia(context.Background(), "user-a", loc.ID, "http://x/p1.jpg", "photo", ""); err != nil {
		t.Fatalf("AddMedia() error = %v", err)
	}

	if err := svc.Delete(context.Background(), "user-a", loc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// The location (and any path to its media) is gone
	if _, err := svc.Get(context.Background(), "user-a", loc.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// And the timeline no longer shows its media
	entries, err := svc.Timeline(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Timeline() has %d entries after delete, want 0", len(entries))
	}
}

func TestDeleteLocation_Unknown(t *testing.T) {
	svc, _ := newTestLocationService(t)

	err := svc.Delete(context.Background(), "user-a", "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// STORE FAULT PROPAGATION
// =========================================================================

func TestList_StoreFault(t *testing.T) {
	svc, repo := newTestLocationService(t)
	repo.failWith = errors.New("disk on fire")

	_, err := svc.List(context.Background(), "user-a")
	if err == nil {
		t.Fatal("List() swallowed a store fault")
	}
	// Store faults are NOT validation/not-found errors — they surface as 500s
	if errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("List() mapped a store fault to a client error: %v", err)
	}
}
