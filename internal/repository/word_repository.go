package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/prperemyshlev/slangdex/internal/domain"
	"github.com/prperemyshlev/slangdex/pkg/database"
)

type wordRow struct {
	ID            string         `db:"id"`
	Word          string         `db:"word"`
	Definition    string         `db:"definition"`
	Example       sql.NullString `db:"example"`
	Pronunciation sql.NullString `db:"pronunciation"`
	Categories    pq.StringArray `db:"categories"`
	IsTrending    bool           `db:"is_trending"`
	CreatedBy     sql.NullString `db:"created_by"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (w wordRow) toDomain() *domain.Word {
	return &domain.Word{
		ID:            w.ID,
		Word:          w.Word,
		Definition:    w.Definition,
		Example:       w.Example.String,
		Pronunciation: w.Pronunciation.String,
		Categories:    []string(w.Categories),
		IsTrending:    w.IsTrending,
		CreatedBy:     w.CreatedBy.String,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

const wordColumns = `id, word, definition, example, pronunciation, categories, is_trending,
	created_by, created_at, updated_at`

// wordRepository implements WordRepository on the words table
type wordRepository struct {
	db *database.Postgres
}

// NewWordRepository creates a new word repository
func NewWordRepository(db *database.Postgres) WordRepository {
	return &wordRepository{db: db}
}

// Search ranks exact word matches first, then prefix matches, then any
// substring match in the word or its definition.
func (r *wordRepository) Search(ctx context.Context, query string, limit int) ([]*domain.Word, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	pattern := "%" + escapeLike(q) + "%"

	stmt := `
		SELECT ` + wordColumns + `
		FROM words
		WHERE LOWER(word) LIKE $1 OR LOWER(definition) LIKE $1
		ORDER BY
			CASE
				WHEN LOWER(word) = $2 THEN 0
				WHEN LOWER(word) LIKE $3 THEN 1
				WHEN LOWER(word) LIKE $1 THEN 2
				ELSE 3
			END,
			word
		LIMIT $4
	`

	var rows []wordRow
	if err := r.db.DB.SelectContext(ctx, &rows, stmt, pattern, q, escapeLike(q)+"%", limit); err != nil {
		return nil, wrapIndexError("search words", err)
	}

	words := make([]*domain.Word, 0, len(rows))
	for _, row := range rows {
		words = append(words, row.toDomain())
	}
	return words, nil
}

// Lookup finds a word by id or by its lowercased text
func (r *wordRepository) Lookup(ctx context.Context, id, normalizedWord string) (*domain.Word, error) {
	stmt := `
		SELECT ` + wordColumns + `
		FROM words
		WHERE id = $1 OR LOWER(word) = $2
		ORDER BY (id = $1) DESC
		LIMIT 1
	`

	var row wordRow
	if err := r.db.DB.GetContext(ctx, &row, stmt, id, strings.ToLower(normalizedWord)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("word %s not found: %w", id, ErrNotFound)
		}
		return nil, wrapIndexError("lookup word", err)
	}
	return row.toDomain(), nil
}

// Upsert inserts or replaces a word
func (r *wordRepository) Upsert(ctx context.Context, word *domain.Word) error {
	stmt := `
		INSERT INTO words (id, word, definition, example, pronunciation, categories, is_trending,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			word = EXCLUDED.word,
			definition = EXCLUDED.definition,
			example = EXCLUDED.example,
			pronunciation = EXCLUDED.pronunciation,
			categories = EXCLUDED.categories,
			is_trending = EXCLUDED.is_trending,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.DB.ExecContext(ctx, stmt,
		word.ID,
		word.Word,
		word.Definition,
		word.Example,
		word.Pronunciation,
		pq.Array(word.Categories),
		word.IsTrending,
		word.CreatedBy,
		word.CreatedAt,
		word.UpdatedAt,
	)
	if err != nil {
		return wrapIndexError("upsert word", err)
	}
	return nil
}

func wrapIndexError(op string, err error) error {
	if database.PQCode(err) == pqUndefinedTable {
		return fmt.Errorf("%s: %w", op, ErrIndexNotFound)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
