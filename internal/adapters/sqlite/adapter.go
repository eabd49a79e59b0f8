// Package sqlite provides a SQLite-backed implementation of the repository port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/ports"
)

var _ ports.TrackRepository = (*Adapter)(nil)

// Adapter implements the repository port for SQLite
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to ping db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}
	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// GetSlices returns the slices of a track ordered by start position.
func (a *Adapter) GetSlices(ctx context.Context, trackID string) ([]domain.Slice, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, start_position, end_position, should_play
		FROM track_slices
		WHERE spotify_track_id = ?
		ORDER BY start_position ASC, id ASC
	`, trackID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load slices: %w", err)
	}
	defer rows.Close()

	out := []domain.Slice{}
	for rows.Next() {
		var s domain.Slice
		if err := rows.Scan(&s.ID, &s.StartPositionMs, &s.EndPositionMs, &s.ShouldPlay); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan slice: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate slices: %w", err)
	}
	return out, nil
}

// UpsertSlices replaces the slice set of a track. Slices missing from the
// set are deleted; an empty set deletes every slice of the track.
func (a *Adapter) UpsertSlices(ctx context.Context, trackID string, slices []domain.Slice) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureTrack(ctx, tx, trackID); err != nil {
		return err
	}

	if len(slices) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM track_slices WHERE spotify_track_id = ?", trackID); err != nil {
			return fmt.Errorf("sqlite: failed to clear slices: %w", err)
		}
	} else {
		args := make([]any, 0, len(slices)+1)
		args = append(args, trackID)
		for _, s := range slices {
			args = append(args, s.ID)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slices)), ",")
		query := "DELETE FROM track_slices WHERE spotify_track_id = ? AND id NOT IN (" + placeholders + ")"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("sqlite: failed to delete stale slices: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO track_slices (id, spotify_track_id, start_position, end_position, should_play)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id, spotify_track_id) DO UPDATE SET
			start_position=excluded.start_position,
			end_position=excluded.end_position,
			should_play=excluded.should_play
	`)
	if err != nil {
		return fmt.Errorf("sqlite: failed to prepare slice upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range slices {
		if _, err := stmt.ExecContext(ctx, s.ID, trackID, s.StartPositionMs, s.EndPositionMs, s.ShouldPlay); err != nil {
			return fmt.Errorf("sqlite: failed to save slice %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: transaction commit failed: %w", err)
	}
	return nil
}

// SetTrackTempo stores the tap tempo and beat offset. Nil clears a value.
func (a *Adapter) SetTrackTempo(ctx context.Context, trackID string, tapTempoBpm, beatOffsetMs *float64) error {
	query := `
		INSERT INTO tracks (spotify_track_id, user_tap_tempo, beat_offset)
		VALUES (?, ?, ?)
		ON CONFLICT(spotify_track_id) DO UPDATE SET
			user_tap_tempo=excluded.user_tap_tempo,
			beat_offset=excluded.beat_offset
	`
	if _, err := a.db.ExecContext(ctx, query, trackID, nullFloat(tapTempoBpm), nullFloat(beatOffsetMs)); err != nil {
		return fmt.Errorf("sqlite: failed to update track tempo: %w", err)
	}
	return nil
}

// GetTrackTempos returns the stored tempo of every known track in trackIDs.
func (a *Adapter) GetTrackTempos(ctx context.Context, trackIDs []string) (map[string]domain.TrackTempo, error) {
	out := make(map[string]domain.TrackTempo, len(trackIDs))
	if len(trackIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(trackIDs))
	for i, id := range trackIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(trackIDs)), ",")
	rows, err := a.db.QueryContext(ctx,
		"SELECT spotify_track_id, user_tap_tempo, beat_offset FROM tracks WHERE spotify_track_id IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load track tempos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     string
			tap    sql.NullFloat64
			offset sql.NullFloat64
		)
		if err := rows.Scan(&id, &tap, &offset); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan track tempo: %w", err)
		}
		tt := domain.TrackTempo{TrackID: id}
		if tap.Valid {
			tt.TapTempoBpm = &tap.Float64
		}
		if offset.Valid {
			tt.BeatOffsetMs = &offset.Float64
		}
		out[id] = tt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate track tempos: %w", err)
	}
	return out, nil
}

// SaveEnvelope stores the preview loudness envelope of a track.
func (a *Adapter) SaveEnvelope(ctx context.Context, trackID string, beats []domain.Beat) error {
	payload, err := json.Marshal(beats)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode envelope: %w", err)
	}
	query := `
		INSERT INTO track_envelopes (track_id, beats) VALUES (?, ?)
		ON CONFLICT(track_id) DO UPDATE SET beats=excluded.beats, updated_at=CURRENT_TIMESTAMP
	`
	if _, err := a.db.ExecContext(ctx, query, trackID, string(payload)); err != nil {
		return fmt.Errorf("sqlite: failed to save envelope: %w", err)
	}
	return nil
}

// GetEnvelope returns the stored envelope, or nil when none exists.
func (a *Adapter) GetEnvelope(ctx context.Context, trackID string) ([]domain.Beat, error) {
	var payload string
	err := a.db.QueryRowContext(ctx, "SELECT beats FROM track_envelopes WHERE track_id = ?", trackID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load envelope: %w", err)
	}
	var beats []domain.Beat
	if err := json.Unmarshal([]byte(payload), &beats); err != nil {
		return nil, fmt.Errorf("sqlite: failed to decode envelope: %w", err)
	}
	return beats, nil
}

func ensureTrack(ctx context.Context, tx *sql.Tx, trackID string) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tracks (spotify_track_id) VALUES (?) ON CONFLICT(spotify_track_id) DO NOTHING",
		trackID); err != nil {
		return fmt.Errorf("sqlite: failed to register track %s: %w", trackID, err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil || math.IsNaN(*v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		spotify_track_id TEXT PRIMARY KEY,
		user_tap_tempo REAL,
		beat_offset REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS track_slices (
		id TEXT NOT NULL,
		spotify_track_id TEXT NOT NULL,
		start_position REAL NOT NULL,
		end_position REAL NOT NULL,
		should_play BOOLEAN NOT NULL DEFAULT 0,
		PRIMARY KEY (id, spotify_track_id),
		FOREIGN KEY(spotify_track_id) REFERENCES tracks(spotify_track_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_track_slices_track ON track_slices(spotify_track_id);

	CREATE TABLE IF NOT EXISTS track_envelopes (
		track_id TEXT PRIMARY KEY,
		beats TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Columns added after the first schema; older databases gain them here.
	for _, stmt := range []string{
		"ALTER TABLE tracks ADD COLUMN beat_offset REAL",
		"ALTER TABLE track_envelopes ADD COLUMN updated_at DATETIME",
	} {
		if _, err := a.db.Exec(stmt); err != nil && !isDuplicateColumnError(err) {
			return err
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
