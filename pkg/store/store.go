// Package store persists compiled structure documents in SQLite.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nzoschke/songlab/pkg/features"
	"github.com/nzoschke/songlab/pkg/structure"
)

// ErrNotFound is returned when no analysis matches.
var ErrNotFound = errors.New("analysis not found")

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// DefaultLimit bounds List when no limit is given.
const DefaultLimit = 50

// Record is a stored analysis.
type Record struct {
	ID        string    `json:"id"`
	File      string    `json:"file,omitempty"`
	Digest    string    `json:"digest"`
	BPM       float64   `json:"bpm"`
	Duration  float64   `json:"duration"`
	Sections  int       `json:"sections"`
	CreatedAt time.Time `json:"createdAt"`

	// Metadata is nil in List results.
	Metadata *structure.EnhancedMetadata `json:"metadata,omitempty"`
}

// Adapter stores analyses in a SQLite database.
type Adapter struct {
	db  *sql.DB
	now func() time.Time
}

// NewAdapter opens the database at path and migrates the schema.
func NewAdapter(path string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	a := &Adapter{db: db, now: time.Now}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

// Close closes the database.
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) migrate() error {
	_, err := a.db.Exec(`
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		file TEXT NOT NULL DEFAULT '',
		digest TEXT NOT NULL UNIQUE,
		bpm REAL NOT NULL,
		duration REAL NOT NULL,
		sections INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		document TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS analyses_created_at ON analyses (created_at);
	`)
	return err
}

// Digest identifies a feature document by the SHA-256 of its canonical JSON.
func Digest(t *features.Track) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode features: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Save stores a compiled document under its feature digest. When the digest
// is already stored, the existing record is returned and created is false.
func (a *Adapter) Save(ctx context.Context, file, digest string, meta *structure.EnhancedMetadata) (rec Record, created bool, err error) {
	doc, err := json.Marshal(meta)
	if err != nil {
		return Record{}, false, fmt.Errorf("encode document: %w", err)
	}

	id := uuid.NewString()
	res, err := a.db.ExecContext(ctx, `
		INSERT INTO analyses (id, file, digest, bpm, duration, sections, created_at, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`, id, file, digest, meta.Song.BPM, meta.Song.Duration, len(meta.Sections),
		a.now().UTC().Format(timeFormat), string(doc))
	if err != nil {
		return Record{}, false, fmt.Errorf("insert analysis: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Record{}, false, fmt.Errorf("insert analysis: %w", err)
	}

	rec, err = a.FindByDigest(ctx, digest)
	return rec, n > 0, err
}

// Get returns the analysis with the given id.
func (a *Adapter) Get(ctx context.Context, id string) (Record, error) {
	return a.one(ctx, "id", id)
}

// FindByDigest returns the analysis of the feature document with the given digest.
func (a *Adapter) FindByDigest(ctx context.Context, digest string) (Record, error) {
	return a.one(ctx, "digest", digest)
}

func (a *Adapter) one(ctx context.Context, column, value string) (Record, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, file, digest, bpm, duration, sections, created_at, document
		FROM analyses WHERE `+column+` = ?`, value)

	var (
		rec     Record
		created string
		doc     string
	)
	if err := row.Scan(&rec.ID, &rec.File, &rec.Digest, &rec.BPM, &rec.Duration, &rec.Sections, &created, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load analysis: %w", err)
	}

	var err error
	if rec.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.Metadata = &structure.EnhancedMetadata{}
	if err := json.Unmarshal([]byte(doc), rec.Metadata); err != nil {
		return Record{}, fmt.Errorf("decode document: %w", err)
	}
	return rec, nil
}

// List returns up to limit analyses, newest first, without their documents.
func (a *Adapter) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, file, digest, bpm, duration, sections, created_at
		FROM analyses
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		var (
			rec     Record
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.File, &rec.Digest, &rec.BPM, &rec.Duration, &rec.Sections, &created); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return recs, nil
}
