package installer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/fsutil"
	"github.com/glorpus-work/gotx/pkg/model"
)

// DatabaseFormatVersion is the on-disk format of the installed database.
const DatabaseFormatVersion = "1"

// Record is one installed package and the files it owns, relative to the
// installation root.
type Record struct {
	model.Package
	Files       []string  `json:"files,omitempty"`
	InstalledAt time.Time `json:"installed_at"`
}

// Snapshot returns a copy of the record's package metadata that later
// database edits do not reach.
func (r *Record) Snapshot() *model.Package {
	p := r.Package
	return &p
}

// Database is the JSON-backed installed package database.
type Database struct {
	FormatVersion string    `json:"format_version"`
	LastUpdate    time.Time `json:"last_update"`
	Packages      []*Record `json:"packages"`
	rwMutex       sync.RWMutex
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{
		FormatVersion: DatabaseFormatVersion,
		LastUpdate:    time.Now(),
		Packages:      make([]*Record, 0),
	}
}

// LoadDatabase reads the database at dbPath. A missing file yields an empty
// database.
func LoadDatabase(dbPath string) (*Database, error) {
	cleanPath := filepath.Clean(dbPath)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("database path must be absolute: %s: %w", dbPath, errors.ErrInvalidPath)
	}

	db := NewDatabase()
	data, err := os.ReadFile(cleanPath)
	if os.IsNotExist(err) {
		return db, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read database file: %w", err)
	}
	if err := json.Unmarshal(data, db); err != nil {
		return nil, fmt.Errorf("failed to parse database %s: %w", cleanPath, err)
	}
	for _, r := range db.Packages {
		r.Repo = model.InstalledRepo
	}
	return db, nil
}

// Save writes the database to dbPath atomically.
func (db *Database) Save(dbPath string) error {
	cleanPath := filepath.Clean(dbPath)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("database path must be absolute: %s: %w", dbPath, errors.ErrInvalidPath)
	}

	db.rwMutex.RLock()
	data, err := json.MarshalIndent(db, "", "  ")
	db.rwMutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal database to JSON: %w", err)
	}
	return fsutil.WriteFileAtomic(cleanPath, data, fsutil.FileModeDefault)
}

// Find returns the record of exactly ref, or nil.
func (db *Database) Find(ref model.PkgRef) *Record {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()
	for _, r := range db.Packages {
		if r.PkgRef == ref {
			return r
		}
	}
	return nil
}

// Add stores rec, replacing any record of the same build.
func (db *Database) Add(rec *Record) {
	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()

	rec.Repo = model.InstalledRepo
	if rec.InstalledAt.IsZero() {
		rec.InstalledAt = time.Now()
	}
	db.LastUpdate = time.Now()
	for i, existing := range db.Packages {
		if existing.PkgRef == rec.PkgRef {
			db.Packages[i] = rec
			return
		}
	}
	db.Packages = append(db.Packages, rec)
}

// Remove drops the record of ref and reports whether there was one.
func (db *Database) Remove(ref model.PkgRef) bool {
	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()

	n := len(db.Packages)
	db.Packages = slices.DeleteFunc(db.Packages, func(r *Record) bool { return r.PkgRef == ref })
	if len(db.Packages) == n {
		return false
	}
	db.LastUpdate = time.Now()
	return true
}

// Records returns a copy of the record list.
func (db *Database) Records() []*Record {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()
	return slices.Clone(db.Packages)
}

// Owner returns the record that owns file, or nil.
func (db *Database) Owner(file string) *Record {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()
	for _, r := range db.Packages {
		if slices.Contains(r.Files, file) {
			return r
		}
	}
	return nil
}

// Version is a checksum of the installed package set. It changes whenever a
// package is added or removed, whoever does it.
func (db *Database) Version() string {
	db.rwMutex.RLock()
	names := make([]string, 0, len(db.Packages))
	for _, r := range db.Packages {
		names = append(names, r.String())
	}
	db.rwMutex.RUnlock()

	slices.Sort(names)
	h := sha256.New()
	for _, n := range names {
		h.Write([]byte(n))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
