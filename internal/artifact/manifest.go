// Package artifact persists build results: generated Lua chunks on disk and
// a SQLite manifest describing every build of a project.
package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/funvibe/talescript/internal/config"
	"github.com/funvibe/talescript/internal/diagnostics"
	applog "github.com/funvibe/talescript/internal/log"
	"github.com/funvibe/talescript/internal/symbols"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion is bumped together with a step in runMigrations.
const schemaVersion = 1

// ErrNoBuilds is returned when the manifest has no recorded build.
var ErrNoBuilds = errors.New("no builds recorded")

// Manifest is the build history of one output directory.
type Manifest struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Build is one row of the builds table.
type Build struct {
	ID        string
	CreatedAt time.Time
	App       string
	Sources   int
	Labels    int
	OK        bool
}

// Label describes a compiled label of a build.
type Label struct {
	ID         uint32
	Path       string
	Name       string
	Scope      string
	Depth      int
	File       string
	Attributes string
	Actors     []string
}

// Diagnostic is a stored compile or build error.
type Diagnostic struct {
	Code    string
	File    string
	Line    int
	Column  int
	Label   string
	Message string
}

// NewBuildID returns a fresh identifier for a build.
func NewBuildID() string {
	return uuid.NewString()
}

// ManifestPath returns the manifest location inside outDir.
func ManifestPath(outDir string) string {
	return filepath.Join(outDir, config.ManifestFileName)
}

// OpenManifest creates or opens the manifest in outDir and brings its
// schema up to date.
func OpenManifest(outDir string) (*Manifest, error) {
	l := applog.WithOperation(applog.WithComponent("artifact"), "manifest_open").With(
		slog.String("dir", outDir),
	)
	if strings.TrimSpace(outDir) == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	path := ManifestPath(outDir)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	l.Debug("manifest ready", slog.String("path", path))
	return &Manifest{db: db, path: path, log: l}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			schema     INTEGER NOT NULL,
			updated_at TEXT    NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS builds (
			id         TEXT    PRIMARY KEY,
			created_at TEXT    NOT NULL,
			app        TEXT    NOT NULL,
			sources    INTEGER NOT NULL,
			labels     INTEGER NOT NULL,
			ok         INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS labels (
			build_id   TEXT    NOT NULL,
			label_id   INTEGER NOT NULL,
			path       TEXT    NOT NULL,
			name       TEXT    NOT NULL,
			scope      TEXT    NOT NULL,
			depth      INTEGER NOT NULL,
			file       TEXT    NOT NULL,
			attributes TEXT    NOT NULL,
			PRIMARY KEY(build_id, label_id),
			FOREIGN KEY(build_id) REFERENCES builds(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_labels_name ON labels(build_id, name);`,
		`CREATE TABLE IF NOT EXISTS actors (
			build_id TEXT    NOT NULL,
			label_id INTEGER NOT NULL,
			actor    TEXT    NOT NULL,
			PRIMARY KEY(build_id, label_id, actor),
			FOREIGN KEY(build_id) REFERENCES builds(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			id       INTEGER PRIMARY KEY,
			build_id TEXT    NOT NULL,
			code     TEXT    NOT NULL,
			file     TEXT    NOT NULL,
			line     INTEGER NOT NULL,
			col      INTEGER NOT NULL,
			label    TEXT    NOT NULL,
			message  TEXT    NOT NULL,
			FOREIGN KEY(build_id) REFERENCES builds(id) ON DELETE CASCADE
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO version (id, schema, updated_at) VALUES (1, ?, ?)`, schemaVersion, now); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema steps up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		return fmt.Errorf("manifest schema %d is newer than supported %d", cur, schemaVersion)
	}
	return nil
}

// Path returns the database file.
func (m *Manifest) Path() string { return m.path }

func (m *Manifest) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// RecordBuild stores a build with its labels and diagnostics in one
// transaction. reg may be nil when the build stopped before Pass 1 finished.
func (m *Manifest) RecordBuild(ctx context.Context, b Build, reg *symbols.Registry, diags diagnostics.List) error {
	if b.ID == "" {
		return errors.New("build id is required")
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	if b.App == "" {
		b.App = config.AppName + " " + config.Version
	}
	if reg != nil {
		b.Labels = reg.Len()
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin build %s: %w", b.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO builds (id, created_at, app, sources, labels, ok) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.CreatedAt.UTC().Format(time.RFC3339Nano), b.App, b.Sources, b.Labels, b.OK,
	); err != nil {
		return fmt.Errorf("insert build: %w", err)
	}

	if reg != nil {
		for _, e := range reg.Entries() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO labels (build_id, label_id, path, name, scope, depth, file, attributes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				b.ID, e.ID, e.FnPath, e.Name, e.Scope, e.Depth, e.File, formatAttributes(e.Attributes),
			); err != nil {
				return fmt.Errorf("insert label %s: %w", e.FnPath, err)
			}
			for _, actor := range e.Actors.Sorted() {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO actors (build_id, label_id, actor) VALUES (?, ?, ?)`,
					b.ID, e.ID, actor,
				); err != nil {
					return fmt.Errorf("insert actor %s: %w", actor, err)
				}
			}
		}
	}

	for _, d := range diags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO diagnostics (build_id, code, file, line, col, label, message) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.ID, string(d.Code), d.File, d.Token.Line, d.Token.Column, d.Label, d.Message,
		); err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit build %s: %w", b.ID, err)
	}
	m.log.Info("build recorded",
		slog.String("build", b.ID),
		slog.Int("labels", b.Labels),
		slog.Int("diagnostics", len(diags)),
		slog.Bool("ok", b.OK))
	return nil
}

// LatestBuild returns the most recently recorded build.
func (m *Manifest) LatestBuild(ctx context.Context) (Build, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT id, created_at, app, sources, labels, ok FROM builds ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, ErrNoBuilds
	}
	return b, err
}

// Builds lists every build, newest first.
func (m *Manifest) Builds(ctx context.Context) ([]Build, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, created_at, app, sources, labels, ok FROM builds ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var out []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(s scanner) (Build, error) {
	var (
		b       Build
		created string
	)
	if err := s.Scan(&b.ID, &created, &b.App, &b.Sources, &b.Labels, &b.OK); err != nil {
		return Build{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Build{}, fmt.Errorf("parse build time %q: %w", created, err)
	}
	b.CreatedAt = t
	return b, nil
}

// Labels returns the labels of a build in ID order.
func (m *Manifest) Labels(ctx context.Context, buildID string) ([]Label, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT label_id, path, name, scope, depth, file, attributes FROM labels WHERE build_id = ? ORDER BY label_id`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	var out []Label
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.ID, &l.Path, &l.Name, &l.Scope, &l.Depth, &l.File, &l.Attributes); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	actors, err := m.db.QueryContext(ctx,
		`SELECT label_id, actor FROM actors WHERE build_id = ? ORDER BY label_id, actor`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query actors: %w", err)
	}
	defer actors.Close()
	for actors.Next() {
		var (
			id    uint32
			actor string
		)
		if err := actors.Scan(&id, &actor); err != nil {
			return nil, err
		}
		if int(id) < len(out) && out[id].ID == id {
			out[id].Actors = append(out[id].Actors, actor)
		}
	}
	return out, actors.Err()
}

// Diagnostics returns the errors stored for a build in reporting order.
func (m *Manifest) Diagnostics(ctx context.Context, buildID string) ([]Diagnostic, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT code, file, line, col, label, message FROM diagnostics WHERE build_id = ? ORDER BY id`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []Diagnostic
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.Code, &d.File, &d.Line, &d.Column, &d.Label, &d.Message); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep builds.
func (m *Manifest) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := m.db.ExecContext(ctx,
		`DELETE FROM builds WHERE id NOT IN (SELECT id FROM builds ORDER BY created_at DESC, rowid DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune builds: %w", err)
	}
	return res.RowsAffected()
}

func formatAttributes(attrs map[string]string) string {
	parts := make([]string, 0, len(attrs))
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, ",")
}
