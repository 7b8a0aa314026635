package ledger

// Schema creates the results table. It is valid for both SQLite and
// PostgreSQL; timestamps are stored as fixed-width RFC 3339 text.
const Schema = `
CREATE TABLE IF NOT EXISTS migration_results (
    id             TEXT PRIMARY KEY,
    run_id         TEXT NOT NULL,
    article_id     TEXT NOT NULL,
    title          TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL
                   CHECK(status IN ('success', 'failed', 'dry_run')),
    error_kind     TEXT NOT NULL DEFAULT '',
    cause          TEXT NOT NULL DEFAULT '',
    error          TEXT NOT NULL DEFAULT '',
    new_article_id TEXT NOT NULL DEFAULT '',
    new_permalink  TEXT NOT NULL DEFAULT '',
    recorded_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_migration_results_article ON migration_results(article_id, status);
CREATE INDEX IF NOT EXISTS idx_migration_results_run ON migration_results(run_id);
`
