// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Media kinds. The store and service only ever accept these two values.
const (
	MediaKindPhoto = "photo"
	MediaKindVideo = "video"
)

// Coordinates is a latitude/longitude pair.
//
// We keep this as its own struct (rather than two flat fields on Location)
// because the API request and response bodies nest it the same way:
//
//	{"name":"Paris","coordinates":{"lat":48.8566,"lng":2.3522}}
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a named place pinned on the user's map.
//
// OWNERSHIP:
// Every Location belongs to exactly one user (UserID). Every store query is
// filtered by owner, so one user can never see or touch another user's pins.
//
// The Media slice is the embedded, insertion-ordered list of photos/videos
// attached to this place. Media items have no life of their own — deleting
// a Location deletes its media with it.
type Location struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	Country     string      `json:"country"`
	UserID      string      `json:"userId"`
	CreatedAt   time.Time   `json:"createdAt"`
	Media       []Media     `json:"media"`
}

// Media is a single photo or video attached to a Location.
//
// The URL points at externally hosted bytes — this service never stores
// file content, only the durable URL produced by the upload step.
// A Media ID is only meaningful within its parent Location.
type Media struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"` // "photo" or "video"
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"createdAt"`
}

// TimelineEntry is one item in the flattened, time-sorted view of all media
// across a user's Locations. It carries a denormalized snapshot of the
// parent Location so the client can render the feed without extra lookups.
type TimelineEntry struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"`
	Kind      string           `json:"kind"`
	Caption   string           `json:"caption"`
	CreatedAt time.Time        `json:"createdAt"`
	Location  TimelineLocation `json:"location"`
}

// TimelineLocation is the denormalized parent snapshot inside a TimelineEntry.
type TimelineLocation struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
}
