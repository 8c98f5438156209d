package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/prperemyshlev/slangdex/pkg/database"
)

// PostgresStore keeps documents as JSONB rows in the documents table.
type PostgresStore struct {
	db    *sqlx.DB
	clock clockwork.Clock
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store on top of an open connection pool
func NewPostgresStore(db *sqlx.DB, clock clockwork.Clock) *PostgresStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PostgresStore{db: db, clock: clock}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	query := `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	var raw []byte
	if err := s.db.GetContext(ctx, &raw, query, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapError("get", err)
	}

	return decode(raw)
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, doc Document) error {
	resolved, err := resolve(doc, s.clock.Now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(resolved)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, collection, id, data); err != nil {
		return wrapError("set", err)
	}
	return nil
}

// Update locks the row, merges the field paths in Go and writes the result
// back in the same transaction.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, update Update) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapError("begin update", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.GetContext(ctx, &raw,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		collection, id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return wrapError("lock", err)
	}

	doc, err := decode(raw)
	if err != nil {
		return err
	}

	if err := Apply(doc, update, s.clock.Now()); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET data = $3, updated_at = NOW() WHERE collection = $1 AND id = $2`,
		collection, id, data,
	)
	if err != nil {
		return wrapError("update", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapError("commit update", err)
	}
	return nil
}

func decode(raw []byte) (Document, error) {
	doc := make(Document)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func wrapError(op string, err error) error {
	if database.IsUnavailable(err) {
		return fmt.Errorf("%s document: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("failed to %s document: %w", op, err)
}
