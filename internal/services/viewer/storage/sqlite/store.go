// Package sqlite provides a SQLite-backed timeline storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/louisbranch/campuswalk/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/campuswalk/internal/services/viewer/storage"
	"github.com/louisbranch/campuswalk/internal/services/viewer/storage/sqlite/migrations"
)

const pragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// Store persists timelines in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite timeline store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sql.Open("sqlite", filepath.Clean(path)+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func requireScene(scene string) (string, error) {
	scene = strings.TrimSpace(scene)
	if scene == "" {
		return "", fmt.Errorf("scene is required")
	}
	return scene, nil
}

// PutDomain creates the scene timeline or replaces its domain.
func (s *Store) PutDomain(ctx context.Context, scene string, domain storage.YearRange) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	scene, err := requireScene(scene)
	if err != nil {
		return err
	}
	if domain.To < domain.From {
		return fmt.Errorf("put domain %d-%d: %w", domain.From, domain.To, storage.ErrInvalidRange)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO timelines (scene, year_min, year_max, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(scene) DO UPDATE SET
		   year_min = excluded.year_min,
		   year_max = excluded.year_max,
		   updated_at = excluded.updated_at`,
		scene,
		domain.From,
		domain.To,
		toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("put domain: %w", err)
	}
	return nil
}

// PutExclusions replaces the exclusion list of one year. Duplicate and blank
// names are dropped; list order is kept.
func (s *Store) PutExclusions(ctx context.Context, scene string, year int, names []string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	scene, err := requireScene(scene)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put exclusions: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := touchTimeline(ctx, tx, scene, toMillis(s.now())); err != nil {
		return err
	}
	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM timeline_exclusions WHERE scene = ? AND year = ?`,
		scene, year,
	); err != nil {
		return fmt.Errorf("clear exclusions: %w", err)
	}

	position := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		result, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO timeline_exclusions (scene, year, entity, position)
			 VALUES (?, ?, ?, ?)`,
			scene, year, name, position,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("insert exclusion %q: %w", name, err)
		}
		if affected, _ := result.RowsAffected(); affected > 0 {
			position++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put exclusions: %w", err)
	}
	return nil
}

// PutRange sets the visible span of one entity.
func (s *Store) PutRange(ctx context.Context, scene, entity string, span storage.YearRange) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	scene, err := requireScene(scene)
	if err != nil {
		return err
	}
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return fmt.Errorf("entity is required")
	}
	if span.To < span.From {
		return fmt.Errorf("put range %q: %w", entity, storage.ErrInvalidRange)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put range: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := touchTimeline(ctx, tx, scene, toMillis(s.now())); err != nil {
		return err
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO timeline_ranges (scene, entity, year_from, year_to)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(scene, entity) DO UPDATE SET
		   year_from = excluded.year_from,
		   year_to = excluded.year_to`,
		scene, entity, span.From, span.To,
	); err != nil {
		if isForeignKeyViolation(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("put range: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put range: %w", err)
	}
	return nil
}

// PutFilter sets the filter expression of a scene timeline.
func (s *Store) PutFilter(ctx context.Context, scene, expression string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	scene, err := requireScene(scene)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE timelines SET filter = ?, updated_at = ? WHERE scene = ?`,
		strings.TrimSpace(expression), toMillis(s.now()), scene,
	)
	if err != nil {
		return fmt.Errorf("put filter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put filter: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetTimeline returns the stored timeline of scene.
func (s *Store) GetTimeline(ctx context.Context, scene string) (storage.Timeline, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Timeline{}, err
	}
	scene, err := requireScene(scene)
	if err != nil {
		return storage.Timeline{}, err
	}

	timeline := storage.Timeline{
		Scene:      scene,
		Exclusions: map[int][]string{},
		Ranges:     map[string]storage.YearRange{},
	}
	var updatedAt int64
	err = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT year_min, year_max, filter, updated_at FROM timelines WHERE scene = ?`,
		scene,
	).Scan(&timeline.Domain.From, &timeline.Domain.To, &timeline.Filter, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Timeline{}, storage.ErrNotFound
		}
		return storage.Timeline{}, fmt.Errorf("get timeline: %w", err)
	}
	timeline.UpdatedAt = fromMillis(updatedAt)

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT year, entity FROM timeline_exclusions
		  WHERE scene = ?
		  ORDER BY year ASC, position ASC`,
		scene,
	)
	if err != nil {
		return storage.Timeline{}, fmt.Errorf("get exclusions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var year int
		var entity string
		if err := rows.Scan(&year, &entity); err != nil {
			return storage.Timeline{}, fmt.Errorf("get exclusions: %w", err)
		}
		timeline.Exclusions[year] = append(timeline.Exclusions[year], entity)
	}
	if err := rows.Err(); err != nil {
		return storage.Timeline{}, fmt.Errorf("get exclusions: %w", err)
	}

	rangeRows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT entity, year_from, year_to FROM timeline_ranges WHERE scene = ?`,
		scene,
	)
	if err != nil {
		return storage.Timeline{}, fmt.Errorf("get ranges: %w", err)
	}
	defer rangeRows.Close()
	for rangeRows.Next() {
		var entity string
		var span storage.YearRange
		if err := rangeRows.Scan(&entity, &span.From, &span.To); err != nil {
			return storage.Timeline{}, fmt.Errorf("get ranges: %w", err)
		}
		timeline.Ranges[entity] = span
	}
	if err := rangeRows.Err(); err != nil {
		return storage.Timeline{}, fmt.Errorf("get ranges: %w", err)
	}
	return timeline, nil
}

// DeleteTimeline removes a scene timeline with its exclusions and ranges.
func (s *Store) DeleteTimeline(ctx context.Context, scene string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	scene, err := requireScene(scene)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete timeline: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"timeline_exclusions", "timeline_ranges"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE scene = ?", scene); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM timelines WHERE scene = ?`, scene)
	if err != nil {
		return fmt.Errorf("delete timeline: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete timeline: %w", err)
	}
	return nil
}

// touchTimeline bumps updated_at and reports ErrNotFound for unknown scenes.
func touchTimeline(ctx context.Context, tx *sql.Tx, scene string, now int64) error {
	result, err := tx.ExecContext(ctx, `UPDATE timelines SET updated_at = ? WHERE scene = ?`, now, scene)
	if err != nil {
		return fmt.Errorf("touch timeline: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch timeline: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

var _ storage.TimelineStore = (*Store)(nil)
