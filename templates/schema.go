package templates

// Schema is applied on open. Rules are stored as a JSON array in
// application order; the row carries the URL-matching and bookkeeping
// columns.
const Schema = `
CREATE TABLE IF NOT EXISTS templates (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    url_pattern   TEXT NOT NULL,
    original_url  TEXT NOT NULL DEFAULT '',
    title         TEXT NOT NULL DEFAULT '',
    rules_json    TEXT NOT NULL DEFAULT '[]',
    is_default    INTEGER NOT NULL DEFAULT 0,
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_templates_pattern ON templates(url_pattern);
`
