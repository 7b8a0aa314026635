// Package ledger persists migration results so that repeated bulk runs can
// skip articles that were already migrated.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/migration"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// fixed width so text order is chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ migration.Ledger = (*Ledger)(nil)

// Entry is one recorded migration attempt
type Entry struct {
	ID           string
	RunID        string
	ArticleID    string
	Title        string
	Status       migration.Status
	ErrorKind    apperrors.Kind
	Cause        apperrors.Kind
	Error        string
	NewArticleID string
	NewPermalink string
	RecordedAt   time.Time
}

// Ledger stores migration results in a SQL database
type Ledger struct {
	db       *sql.DB
	postgres bool
}

// Open connects to the ledger database and creates the schema. For SQLite
// dsn is a file path whose directory is created if needed; for PostgreSQL
// it is a connection URL.
func Open(ctx context.Context, driver, dsn string) (*Ledger, error) {
	if dsn == "" {
		return nil, apperrors.NewValidation("ledger dsn is required")
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite, "":
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
		db, err = sql.Open("sqlite3", "file:"+dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	case DriverPostgres, "pgx":
		db, err = sql.Open("pgx", dsn)
	default:
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown ledger driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}

	return &Ledger{db: db, postgres: driver == DriverPostgres || driver == "pgx"}, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record inserts one row for result
func (l *Ledger) Record(ctx context.Context, result migration.MigrationResult) error {
	recordedAt := result.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx, l.rebind(
		`INSERT INTO migration_results
		    (id, run_id, article_id, title, status, error_kind, cause, error, new_article_id, new_permalink, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		uuid.NewString(), result.RunID, result.ArticleID, result.Title, string(result.Status),
		string(result.ErrorKind), string(result.Cause), result.Error,
		result.NewArticleID, result.NewPermalink, recordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert result for article %s: %w", result.ArticleID, err)
	}
	return nil
}

// Succeeded reports whether articleID has a recorded success
func (l *Ledger) Succeeded(ctx context.Context, articleID string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, l.rebind(
		`SELECT COUNT(*) FROM migration_results WHERE article_id = ? AND status = ?`),
		articleID, string(migration.StatusSuccess),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query article %s: %w", articleID, err)
	}
	return n > 0, nil
}

// List returns entries in the order they were recorded. An empty status or
// "all" returns every entry.
func (l *Ledger) List(ctx context.Context, status string) ([]Entry, error) {
	query := `SELECT id, run_id, article_id, title, status, error_kind, cause, error, new_article_id, new_permalink, recorded_at
	          FROM migration_results`
	var args []any

	switch migration.Status(status) {
	case "", "all":
	case migration.StatusSuccess, migration.StatusFailed, migration.StatusDryRun:
		query += ` WHERE status = ?`
		args = append(args, status)
	default:
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown status %q", status)
	}
	query += ` ORDER BY recorded_at, id`

	rows, err := l.db.QueryContext(ctx, l.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                       Entry
			status, kind, cause, ts string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.ArticleID, &e.Title, &status, &kind, &cause,
			&e.Error, &e.NewArticleID, &e.NewPermalink, &ts); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		e.Status = migration.Status(status)
		e.ErrorKind = apperrors.Kind(kind)
		e.Cause = apperrors.Kind(cause)
		if e.RecordedAt, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("parse recorded_at of %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return entries, nil
}

// ForgetFailed deletes failed entries for articleID, or every failed entry
// when articleID is empty, and returns the number removed.
func (l *Ledger) ForgetFailed(ctx context.Context, articleID string) (int64, error) {
	query := `DELETE FROM migration_results WHERE status = ?`
	args := []any{string(migration.StatusFailed)}
	if articleID != "" {
		query += ` AND article_id = ?`
		args = append(args, articleID)
	}

	res, err := l.db.ExecContext(ctx, l.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete failed results: %w", err)
	}
	return res.RowsAffected()
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (l *Ledger) rebind(query string) string {
	if !l.postgres {
		return query
	}
	var b strings.Builder
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
