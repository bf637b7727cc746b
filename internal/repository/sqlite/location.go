package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/travel-journal/internal/apperror"
	"github.com/sakif/travel-journal/internal/model"
	"github.com/sakif/travel-journal/internal/repository"
)

// compile-time check that *DB implements repository.LocationRepository
var _ repository.LocationRepository = (*DB)(nil)

// Create inserts a new location with an empty media list.
//
// POINTER RECEIVER (*model.Location):
// We take a pointer so we can MODIFY the original struct — after Create(),
// the caller's location has the generated ID and timestamp filled in.
func (db *DB) Create(ctx context.Context, loc *model.Location) error {
	loc.ID = xid.New().String()
	loc.CreatedAt = time.Now()
	if loc.Media == nil {
		loc.Media = []model.Media{}
	}

	// PARAMETERIZED QUERIES (the ? placeholders):
	// Never build SQL with string concatenation — the driver escapes the
	// values, which is what prevents SQL injection.
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO locations (id, user_id, name, lat, lng, country, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		loc.ID,
		loc.UserID,
		loc.Name,
		loc.Coordinates.Lat,
		loc.Coordinates.Lng,
		loc.Country,
		loc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating location: %w", err)
	}

	return nil
}

// GetByID retrieves a single location, with its media list, scoped to the owner.
//
// OWNERSHIP AS PART OF THE KEY:
// The WHERE clause is `id = ? AND user_id = ?`. A location that exists but
// belongs to another user scans zero rows — exactly the same as a location
// that doesn't exist. That's deliberate: a 404 never confirms that someone
// else's ID is real.
func (db *DB) GetByID(ctx context.Context, userID, id string) (*model.Location, error) {
	var loc model.Location

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, lat, lng, country, created_at
		 FROM locations
		 WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(
		&loc.ID,
		&loc.UserID,
		&loc.Name,
		&loc.Coordinates.Lat,
		&loc.Coordinates.Lng,
		&loc.Country,
		&loc.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("location", id)
		}
		return nil, fmt.Errorf("sqlite: getting location %s: %w", id, err)
	}

	media, err := db.mediaForLocations(ctx, []string{loc.ID})
	if err != nil {
		return nil, err
	}
	loc.Media = media[loc.ID]
	if loc.Media == nil {
		loc.Media = []model.Media{}
	}

	return &loc, nil
}

// List retrieves all of the user's locations, newest first, media included.
func (db *DB) List(ctx context.Context, userID string) ([]model.Location, error) {
	return db.listWhere(ctx, userID, "", "")
}

// SearchByName retrieves the user's locations whose name contains the
// pattern, case-insensitively, newest first.
//
// LIKE vs. REGEX:
// Substring match maps to LIKE '%pattern%', which in SQLite is already
// case-insensitive for ASCII. LIKE treats % and _ as wildcards, so we
// escape any occurring in the user's pattern — otherwise searching for
// "100%" would match everything.
func (db *DB) SearchByName(ctx context.Context, userID, pattern string) ([]model.Location, error) {
	escaped := escapeLike(pattern)
	return db.listWhere(ctx, userID,
		`AND name LIKE ? ESCAPE '\'`,
		"%"+escaped+"%",
	)
}

// listWhere runs the shared list query with an optional extra predicate,
// then loads the media lists for every matched location in one query
// (avoids the classic N+1 problem).
func (db *DB) listWhere(ctx context.Context, userID, extraWhere, extraArg string) ([]model.Location, error) {
	query := `SELECT id, user_id, name, lat, lng, country, created_at
		 FROM locations
		 WHERE user_id = ? ` + extraWhere + `
		 ORDER BY created_at DESC`

	args := []any{userID}
	if extraWhere != "" {
		args = append(args, extraArg)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing locations: %w", err)
	}
	// CRITICAL: always close rows — they hold a pool connection.
	defer rows.Close()

	locations := []model.Location{}
	ids := []string{}

	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(
			&loc.ID, &loc.UserID, &loc.Name,
			&loc.Coordinates.Lat, &loc.Coordinates.Lng,
			&loc.Country, &loc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning location row: %w", err)
		}
		loc.Media = []model.Media{}
		locations = append(locations, loc)
		ids = append(ids, loc.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating locations: %w", err)
	}

	if len(ids) == 0 {
		return locations, nil
	}

	mediaByLoc, err := db.mediaForLocations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range locations {
		if m, ok := mediaByLoc[locations[i].ID]; ok {
			locations[i].Media = m
		}
	}

	return locations, nil
}

// mediaForLocations loads the media lists for the given location IDs,
// insertion-ordered, grouped by location.
func (db *DB) mediaForLocations(ctx context.Context, locationIDs []string) (map[string][]model.Media, error) {
	placeholders := strings.Repeat("?,", len(locationIDs))
	placeholders = placeholders[:len(placeholders)-1] // trim trailing comma

	args := make([]any, len(locationIDs))
	for i, id := range locationIDs {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT location_id, id, url, kind, caption, created_at
		 FROM media
		 WHERE location_id IN (`+placeholders+`)
		 ORDER BY location_id, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading media: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]model.Media, len(locationIDs))
	for rows.Next() {
		var locID string
		var m model.Media
		if err := rows.Scan(&locID, &m.ID, &m.URL, &m.Kind, &m.Caption, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning media row: %w", err)
		}
		result[locID] = append(result[locID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating media: %w", err)
	}

	return result, nil
}

// Delete removes a location and, via ON DELETE CASCADE, its entire media
// list in one atomic statement. RowsAffected distinguishes "deleted" from
// "didn't exist / not yours".
func (db *DB) Delete(ctx context.Context, userID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM locations WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting location %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("location", id)
	}

	return nil
}

// AddMedia appends a media item to an owned location's list and returns the
// updated location.
//
// WHY A TRANSACTION?
// The append is a read-modify-write: check ownership, compute the next
// position, insert. Two concurrent appends to the same location must not
// both read position N and collide. Wrapping the steps in one transaction
// gives us the same whole-document atomicity a document store would
// provide for an embedded array push.
func (db *DB) AddMedia(ctx context.Context, userID, locationID string, media *model.Media) (*model.Location, error) {
	media.ID = xid.New().String()
	media.CreatedAt = time.Now()

	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockOwnedLocation(ctx, tx, userID, locationID); err != nil {
			return err
		}

		// Next position = current list length. COALESCE turns the NULL from
		// an empty list into -1 so the first item lands at position 0.
		var maxPos int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), -1) FROM media WHERE location_id = ?`,
			locationID,
		).Scan(&maxPos)
		if err != nil {
			return fmt.Errorf("sqlite: computing media position: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO media (id, location_id, url, kind, caption, position, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			media.ID, locationID, media.URL, media.Kind, media.Caption,
			maxPos+1, media.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting media: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return db.GetByID(ctx, userID, locationID)
}

// UpdateMediaCaption edits a media caption in place (empty string allowed)
// and returns the updated location. ErrNotFound if the location isn't owned
// or the media ID isn't in its list.
func (db *DB) UpdateMediaCaption(ctx context.Context, userID, locationID, mediaID, caption string) (*model.Location, error) {
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockOwnedLocation(ctx, tx, userID, locationID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE media SET caption = ? WHERE id = ? AND location_id = ?`,
			caption, mediaID, locationID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating media caption: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("media", mediaID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return db.GetByID(ctx, userID, locationID)
}

// RemoveMedia deletes a media item from an owned location's list.
//
// IDEMPOTENT DELETE:
// If the media ID isn't in the list, this is a successful no-op and the
// unchanged location is returned. A missing LOCATION is still NotFound —
// only the media leg is forgiving.
func (db *DB) RemoveMedia(ctx context.Context, userID, locationID, mediaID string) (*model.Location, error) {
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockOwnedLocation(ctx, tx, userID, locationID); err != nil {
			return err
		}

		// No RowsAffected check — deleting an absent media ID succeeds.
		_, err := tx.ExecContext(ctx,
			`DELETE FROM media WHERE id = ? AND location_id = ?`,
			mediaID, locationID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting media %s: %w", mediaID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return db.GetByID(ctx, userID, locationID)
}

// inTx runs fn inside a transaction, committing on nil and rolling back on error.
func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		// Rollback error is secondary — the fn error is what the caller needs.
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// lockOwnedLocation verifies inside the transaction that the location exists
// and belongs to userID. Returns apperror.ErrNotFound otherwise.
func lockOwnedLocation(ctx context.Context, tx *sql.Tx, userID, locationID string) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM locations WHERE id = ? AND user_id = ?`,
		locationID, userID,
	).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("location", locationID)
		}
		return fmt.Errorf("sqlite: checking location %s: %w", locationID, err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards in a user-supplied search pattern.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
