package templates

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/pagecraft/dbopen"
	"github.com/hazyhaar/pagecraft/idgen"
	"github.com/hazyhaar/pagecraft/transform"
)

// ErrNotFound reports a template id with no stored row.
var ErrNotFound = errors.New("templates: not found")

// Store is the persistent template collection.
type Store struct {
	DB      *sql.DB
	matcher Matcher
	newID   idgen.Generator
}

// Option adjusts a Store.
type Option func(*Store)

// WithMatcher replaces the default exact-URL matcher.
func WithMatcher(m Matcher) Option { return func(s *Store) { s.matcher = m } }

// WithIDGen replaces the template id generator.
func WithIDGen(g idgen.Generator) Option { return func(s *Store) { s.newID = g } }

// Open opens (creating if needed) the template database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithSchema(Schema), dbopen.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("templates: open: %w", err)
	}
	return NewStore(db, opts...), nil
}

// NewStore wraps an already-opened database. The caller has applied
// Schema (dbopen.WithSchema does this in Open).
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{DB: db, matcher: ExactMatcher{}, newID: idgen.Default}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.DB.Close() }

// Save persists a new template. ID and timestamps are assigned here so
// the caller sees exactly what was stored.
func (s *Store) Save(ctx context.Context, t *Template) error {
	if t.Name == "" {
		return fmt.Errorf("templates: save: empty name")
	}
	if t.URLPattern == "" {
		return fmt.Errorf("templates: save: empty urlPattern")
	}
	if t.ID == "" {
		t.ID = s.newID()
	}
	now := time.Now().UnixMilli()
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	rules, err := marshalRules(t.Transformations)
	if err != nil {
		return fmt.Errorf("templates: save: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO templates (id, name, url_pattern, original_url, title,
		rules_json, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.URLPattern, t.OriginalURL, t.Title,
		rules, t.IsDefault, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("templates: save: %w", err)
	}
	return nil
}

// Update re-saves an existing template's mutable fields. Last writer
// wins; there is no version check.
func (s *Store) Update(ctx context.Context, t *Template) error {
	rules, err := marshalRules(t.Transformations)
	if err != nil {
		return fmt.Errorf("templates: update: %w", err)
	}
	t.UpdatedAt = time.Now().UnixMilli()
	res, err := s.DB.ExecContext(ctx,
		`UPDATE templates SET name=?, url_pattern=?, title=?, rules_json=?, updated_at=?
		WHERE id=?`,
		t.Name, t.URLPattern, t.Title, rules, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("templates: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("templates: update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves one template by id.
func (s *Store) Get(ctx context.Context, id string) (*Template, error) {
	row := s.DB.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id)
	t, err := scanTemplate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("templates: get: %w", err)
	}
	return t, nil
}

// List returns all templates, defaults first, then newest first.
func (s *Store) List(ctx context.Context) ([]*Template, error) {
	rows, err := s.DB.QueryContext(ctx,
		selectCols+` ORDER BY is_default DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("templates: list: %w", err)
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		t, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("templates: list: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("templates: list: %w", err)
	}
	return out, nil
}

// Delete removes a template. Deleting an absent id is ErrNotFound so
// the caller can tell a stale handle from success.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("templates: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("templates: delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Match returns the templates whose urlPattern covers url, defaults
// first. The default matcher compares exactly; Match scans the
// collection so a swapped-in matcher (glob) works on the same rows.
func (s *Store) Match(ctx context.Context, url string) ([]*Template, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Template
	for _, t := range all {
		if s.matcher.Match(t.URLPattern, url) {
			out = append(out, t)
		}
	}
	return out, nil
}

// SetDefault marks one template as the auto-apply default for its
// urlPattern, clearing the flag on siblings sharing the pattern.
func (s *Store) SetDefault(ctx context.Context, id string) error {
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		var pattern string
		err := tx.QueryRowContext(ctx,
			`SELECT url_pattern FROM templates WHERE id = ?`, id).Scan(&pattern)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE templates SET is_default = 0 WHERE url_pattern = ?`, pattern); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE templates SET is_default = 1, updated_at = ? WHERE id = ?`,
			time.Now().UnixMilli(), id)
		return err
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("templates: set default: %w", err)
	}
	return err
}

const selectCols = `SELECT id, name, url_pattern, original_url, title,
	rules_json, is_default, created_at, updated_at FROM templates`

func scanTemplate(scan func(...any) error) (*Template, error) {
	var t Template
	var rules string
	err := scan(&t.ID, &t.Name, &t.URLPattern, &t.OriginalURL, &t.Title,
		&rules, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rules), &t.Transformations); err != nil {
		return nil, fmt.Errorf("rules_json: %w", err)
	}
	return &t, nil
}

func marshalRules(rules []transform.Rule) (string, error) {
	if rules == nil {
		rules = []transform.Rule{}
	}
	b, err := json.Marshal(rules)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
