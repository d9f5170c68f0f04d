// Package sqlstore is a database/sql task.Repository for SQLite and PostgreSQL.
//
// Supported driver names:
//
//	sqlite    modernc.org/sqlite (pure Go)
//	pgx       github.com/jackc/pgx/v5/stdlib
//	postgres  github.com/lib/pq
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/broady/taskapi/internal/task"
)

//go:embed schema/*.sql
var schemaFS embed.FS

type dialect struct {
	schema string
	// numbered reports whether placeholders are $1, $2, ... instead of ?.
	numbered bool
}

var dialects = map[string]dialect{
	"sqlite":   {schema: "schema/sqlite.sql"},
	"pgx":      {schema: "schema/postgres.sql", numbered: true},
	"postgres": {schema: "schema/postgres.sql", numbered: true},
}

// Drivers returns the supported driver names.
func Drivers() []string {
	return []string{"sqlite", "pgx", "postgres"}
}

const taskColumns = "id, title, description, completed, created_at, updated_at"

// Store implements task.Repository on a *sql.DB. Each method runs a single
// statement, so atomicity is whatever the database gives one statement.
type Store struct {
	db      *sql.DB
	driver  string
	dialect dialect
	now     func() time.Time
}

var _ task.Repository = (*Store)(nil)

// Options tunes the connection pool opened by Open.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens and pings a database using one of the supported drivers.
func Open(ctx context.Context, driver, dsn string, opts Options) (*Store, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("unsupported database driver %q (want one of %s)", driver, strings.Join(Drivers(), ", "))
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(db, driver)
}

// New wraps an existing connection pool. driver selects the SQL dialect.
func New(db *sql.DB, driver string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return &Store{
		db:      db,
		driver:  driver,
		dialect: d,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Migrate creates the tasks table and its indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema, err := schemaFS.ReadFile(s.dialect.schema)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) FindAll(ctx context.Context, f task.Filter) ([]task.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks"
	var args []any
	if f.Completed != nil {
		query += " WHERE completed = ?"
		args = append(args, *f.Completed)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+taskColumns+" FROM tasks WHERE id = ?"), id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, task.ErrNotFound
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("query task %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) Save(ctx context.Context, t *task.Task) error {
	now := s.now()
	if t.ID == 0 {
		var id int64
		err := s.db.QueryRowContext(ctx,
			s.rebind("INSERT INTO tasks (title, description, completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id"),
			t.Title, nullString(t.Description), t.Completed, now, now,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		t.ID = id
		t.CreatedAt = now
		t.UpdatedAt = now
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE tasks SET title = ?, description = ?, completed = ?, updated_at = ? WHERE id = ?"),
		t.Title, nullString(t.Description), t.Completed, now, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if n == 0 {
		return task.ErrNotFound
	}
	t.UpdatedAt = now
	return nil
}

func (s *Store) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT EXISTS (SELECT 1 FROM tasks WHERE id = ?)"), id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check task %d: %w", id, err)
	}
	return exists, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM tasks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if n == 0 {
		return task.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (task.Task, error) {
	var (
		t    task.Task
		desc sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &desc, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return task.Task{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// rebind rewrites ? placeholders to $N for dialects that need it.
// Queries in this package never contain a literal '?'.
func (s *Store) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
