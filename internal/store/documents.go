package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Document is a stored JSON blob.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return Document{}, err
	}
	var (
		raw                string
		createdMs, updated int64
	)
	err = db.QueryRowContext(ctx,
		`SELECT json, created_at_unixms, updated_at_unixms FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw, &createdMs, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}
	return Document{
		Collection: collection,
		ID:         id,
		Data:       json.RawMessage(raw),
		CreatedAt:  time.UnixMilli(createdMs).UTC(),
		UpdatedAt:  time.UnixMilli(updated).UTC(),
	}, nil
}

// Put creates or fully replaces a document.
func (s *Store) Put(ctx context.Context, collection, id string, v any) error {
	if strings.TrimSpace(collection) == "" || strings.TrimSpace(id) == "" {
		return errors.New("store: missing collection or id")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	nowMs := time.Now().UTC().UnixMilli()
	_, err = db.ExecContext(ctx, `INSERT INTO documents(collection, id, json, created_at_unixms, updated_at_unixms)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET json = excluded.json, updated_at_unixms = excluded.updated_at_unixms`,
		collection, id, string(raw), nowMs, nowMs)
	return err
}

// Update overwrites the given top-level fields of an existing document.
// Each value replaces the stored field wholesale; nested values are not
// merged. There is no concurrency check.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT json FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return err
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("%s/%s: corrupt document: %w", collection, id, err)
	}
	if doc == nil {
		// A document stored as JSON null.
		doc = map[string]json.RawMessage{}
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		doc[k] = b
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET json = ?, updated_at_unixms = ? WHERE collection = ? AND id = ?`,
		string(out), time.Now().UTC().UnixMilli(), collection, id); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns every document in a collection ordered by creation time.
func (s *Store) List(ctx context.Context, collection string) ([]Document, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, json, created_at_unixms, updated_at_unixms FROM documents WHERE collection = ? ORDER BY created_at_unixms, id`,
		collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			d                  Document
			raw                string
			createdMs, updated int64
		)
		if err := rows.Scan(&d.ID, &raw, &createdMs, &updated); err != nil {
			return nil, err
		}
		d.Collection = collection
		d.Data = json.RawMessage(raw)
		d.CreatedAt = time.UnixMilli(createdMs).UTC()
		d.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}
