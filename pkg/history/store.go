package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/fsutil"
	"github.com/glorpus-work/gotx/pkg/model"
	_ "modernc.org/sqlite"
)

// Store is the append-only transaction log plus the per-package reasons.
type Store interface {
	// Append stores u, assigns its id and computes its completeness flags
	// against the previous unit.
	Append(u *Unit) (int64, error)
	Unit(id int64) (*Unit, error)
	// Units returns the units with from <= id <= to in id order; to <= 0
	// means up to the latest unit.
	Units(from, to int64) ([]*Unit, error)
	// Last returns the latest unit, or nil when the log is empty.
	Last() (*Unit, error)
	// List returns up to limit units, newest first; limit <= 0 means all.
	List(limit int) ([]*Unit, error)

	SetReason(ref model.PkgRef, reason model.Reason) error
	DeleteReason(ref model.PkgRef) error
	ReasonOf(ref model.PkgRef) model.Reason
	UserInstalled() ([]model.PkgRef, error)

	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS units (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	begin_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	dbversion_before TEXT NOT NULL DEFAULT '',
	dbversion_after TEXT NOT NULL DEFAULT '',
	cmdline TEXT NOT NULL DEFAULT '',
	return_code INTEGER NOT NULL DEFAULT 0,
	altered_before_base BOOLEAN NOT NULL DEFAULT FALSE,
	altered_after_base BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS operations (
	unit_id INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	kind TEXT NOT NULL,
	new_name TEXT NOT NULL,
	new_epoch INTEGER NOT NULL DEFAULT 0,
	new_version TEXT NOT NULL,
	new_release TEXT NOT NULL,
	new_arch TEXT NOT NULL,
	old_name TEXT,
	old_epoch INTEGER,
	old_version TEXT,
	old_release TEXT,
	old_arch TEXT,
	obsoleted JSON NOT NULL DEFAULT '[]',
	PRIMARY KEY (unit_id, seq),
	FOREIGN KEY (unit_id) REFERENCES units(id)
);

CREATE TABLE IF NOT EXISTS package_reasons (
	name TEXT NOT NULL,
	epoch INTEGER NOT NULL DEFAULT 0,
	version TEXT NOT NULL,
	release TEXT NOT NULL,
	arch TEXT NOT NULL,
	reason TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (name, epoch, version, release, arch)
);

CREATE INDEX IF NOT EXISTS idx_operations_unit ON operations(unit_id);
CREATE INDEX IF NOT EXISTS idx_package_reasons_name ON package_reasons(name);
`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the history database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := fsutil.EnsureFileDir(path); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append implements Store.
func (s *SQLiteStore) Append(u *Unit) (id int64, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var prevID int64
	var prevAfter string
	err = tx.QueryRow("SELECT id, dbversion_after FROM units ORDER BY id DESC LIMIT 1").Scan(&prevID, &prevAfter)
	switch {
	case err == sql.ErrNoRows:
		err = nil
	case err != nil:
		return 0, fmt.Errorf("failed to read last unit: %w", err)
	case prevAfter != "" && u.DBVersionBefore != "" && prevAfter != u.DBVersionBefore:
		u.AlteredBeforeBase = true
		if _, err = tx.Exec("UPDATE units SET altered_after_base = TRUE WHERE id = ?", prevID); err != nil {
			return 0, fmt.Errorf("failed to flag unit %d: %w", prevID, err)
		}
		logger.Warn("package database changed outside of recorded transactions", logger.Fields{"after_unit": prevID})
	}

	res, err := tx.Exec(`
		INSERT INTO units (begin_time, end_time, dbversion_before, dbversion_after, cmdline, return_code, altered_before_base, altered_after_base)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(u.Begin), formatTime(u.End), u.DBVersionBefore, u.DBVersionAfter,
		u.Cmdline, u.ReturnCode, u.AlteredBeforeBase, u.AlteredAfterBase,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert unit: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, err
	}

	for seq, op := range u.Ops {
		rawObsoleted, jerr := json.Marshal(append([]model.PkgRef{}, op.Obsoleted...))
		if jerr != nil {
			err = jerr
			return 0, err
		}
		old := nullRef{}
		if op.Old != nil {
			old = nullRef{ref: *op.Old, valid: true}
		}
		args := []interface{}{id, seq, string(op.Kind),
			op.New.Name, int64(op.New.Epoch), op.New.Version, op.New.Release, op.New.Arch}
		args = append(args, old.args()...)
		args = append(args, string(rawObsoleted))
		if _, err = tx.Exec(`
			INSERT INTO operations (unit_id, seq, kind,
				new_name, new_epoch, new_version, new_release, new_arch,
				old_name, old_epoch, old_version, old_release, old_arch, obsoleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...,
		); err != nil {
			return 0, fmt.Errorf("failed to insert operation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit history: %w", err)
	}
	u.ID = id
	return id, nil
}

const unitColumns = "id, begin_time, end_time, dbversion_before, dbversion_after, cmdline, return_code, altered_before_base, altered_after_base"

// Unit implements Store.
func (s *SQLiteStore) Unit(id int64) (*Unit, error) {
	units, err := s.queryUnits("SELECT "+unitColumns+" FROM units WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: %d", errors.ErrHistoryUnitNotFound, id)
	}
	return units[0], nil
}

// Units implements Store.
func (s *SQLiteStore) Units(from, to int64) ([]*Unit, error) {
	if to <= 0 {
		return s.queryUnits("SELECT "+unitColumns+" FROM units WHERE id >= ? ORDER BY id", from)
	}
	return s.queryUnits("SELECT "+unitColumns+" FROM units WHERE id >= ? AND id <= ? ORDER BY id", from, to)
}

// Last implements Store.
func (s *SQLiteStore) Last() (*Unit, error) {
	units, err := s.queryUnits("SELECT " + unitColumns + " FROM units ORDER BY id DESC LIMIT 1")
	if err != nil || len(units) == 0 {
		return nil, err
	}
	return units[0], nil
}

// List implements Store.
func (s *SQLiteStore) List(limit int) ([]*Unit, error) {
	if limit <= 0 {
		return s.queryUnits("SELECT " + unitColumns + " FROM units ORDER BY id DESC")
	}
	return s.queryUnits("SELECT "+unitColumns+" FROM units ORDER BY id DESC LIMIT ?", limit)
}

func (s *SQLiteStore) queryUnits(query string, args ...interface{}) ([]*Unit, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	var units []*Unit
	for rows.Next() {
		var u Unit
		var begin, end string
		if err := rows.Scan(&u.ID, &begin, &end, &u.DBVersionBefore, &u.DBVersionAfter,
			&u.Cmdline, &u.ReturnCode, &u.AlteredBeforeBase, &u.AlteredAfterBase); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		u.Begin = parseTime(begin)
		u.End = parseTime(end)
		units = append(units, &u)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, u := range units {
		if u.Ops, err = s.operations(u.ID); err != nil {
			return nil, err
		}
	}
	return units, nil
}

func (s *SQLiteStore) operations(unitID int64) ([]NEVRAOperation, error) {
	rows, err := s.db.Query(`
		SELECT kind, new_name, new_epoch, new_version, new_release, new_arch,
			old_name, old_epoch, old_version, old_release, old_arch, obsoleted
		FROM operations WHERE unit_id = ? ORDER BY seq`, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations of unit %d: %w", unitID, err)
	}
	defer rows.Close()

	var ops []NEVRAOperation
	for rows.Next() {
		var kind, obsoleted string
		var op NEVRAOperation
		var old nullRef
		if err := rows.Scan(&kind, &op.New.Name, &op.New.Epoch, &op.New.Version, &op.New.Release, &op.New.Arch,
			&old.name, &old.epoch, &old.version, &old.release, &old.arch, &obsoleted); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		if err := decodeOperation(&op, kind, old, obsoleted); err != nil {
			return nil, errors.Wrapf(err, "unit %d", unitID)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func decodeOperation(op *NEVRAOperation, kind string, old nullRef, obsoleted string) error {
	k, err := ParseOpKind(kind)
	if err != nil {
		return err
	}
	op.Kind = k
	if ref, ok := old.scanned(); ok {
		op.Old = &ref
	}
	var obs []model.PkgRef
	if err := json.Unmarshal([]byte(obsoleted), &obs); err != nil {
		return fmt.Errorf("invalid obsoleted list: %w", err)
	}
	if len(obs) > 0 {
		op.Obsoleted = obs
	}
	return nil
}

// nullRef is an optional reference spread over nullable columns.
type nullRef struct {
	ref   model.PkgRef
	valid bool

	name, version, release, arch sql.NullString
	epoch                        sql.NullInt64
}

func (n nullRef) args() []interface{} {
	if !n.valid {
		return []interface{}{nil, nil, nil, nil, nil}
	}
	return []interface{}{n.ref.Name, int64(n.ref.Epoch), n.ref.Version, n.ref.Release, n.ref.Arch}
}

func (n nullRef) scanned() (model.PkgRef, bool) {
	if !n.name.Valid {
		return model.PkgRef{}, false
	}
	return model.PkgRef{
		Name:    n.name.String,
		Epoch:   uint(n.epoch.Int64),
		Version: n.version.String,
		Release: n.release.String,
		Arch:    n.arch.String,
	}, true
}

const refKey = "name = ? AND epoch = ? AND version = ? AND release = ? AND arch = ?"

func refArgs(ref model.PkgRef) []interface{} {
	return []interface{}{ref.Name, int64(ref.Epoch), ref.Version, ref.Release, ref.Arch}
}

// SetReason implements Store.
func (s *SQLiteStore) SetReason(ref model.PkgRef, reason model.Reason) error {
	args := append(refArgs(ref), reason.String(), formatTime(time.Now()))
	_, err := s.db.Exec(`
		INSERT INTO package_reasons (name, epoch, version, release, arch, reason, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, epoch, version, release, arch) DO UPDATE SET reason = excluded.reason, updated_at = excluded.updated_at`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to record reason of %s: %w", ref, err)
	}
	return nil
}

// DeleteReason implements Store.
func (s *SQLiteStore) DeleteReason(ref model.PkgRef) error {
	_, err := s.db.Exec("DELETE FROM package_reasons WHERE "+refKey, refArgs(ref)...)
	return err
}

// ReasonOf implements Store. Lookup failures are logged and reported as
// ReasonUnknown.
func (s *SQLiteStore) ReasonOf(ref model.PkgRef) model.Reason {
	var raw string
	err := s.db.QueryRow("SELECT reason FROM package_reasons WHERE "+refKey, refArgs(ref)...).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Warn("failed to read package reason", logger.Fields{"package": ref.String(), "error": err})
		}
		return model.ReasonUnknown
	}
	reason, err := model.ParseReason(raw)
	if err != nil {
		return model.ReasonUnknown
	}
	return reason
}

// UserInstalled implements Store.
func (s *SQLiteStore) UserInstalled() ([]model.PkgRef, error) {
	rows, err := s.db.Query(`
		SELECT name, epoch, version, release, arch FROM package_reasons
		WHERE reason = ? ORDER BY name, epoch, version, release, arch`, model.ReasonUser.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query user-installed packages: %w", err)
	}
	defer rows.Close()
	var out []model.PkgRef
	for rows.Next() {
		var ref model.PkgRef
		if err := rows.Scan(&ref.Name, &ref.Epoch, &ref.Version, &ref.Release, &ref.Arch); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
