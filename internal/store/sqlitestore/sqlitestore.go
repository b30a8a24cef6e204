// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlitestore is a reference [provider.CollectionProvider]
// implementation backed by modernc.org/sqlite, the pure-Go SQLite driver: it
// exists so cmd/aggrun has something concrete to point $lookup/$graphLookup/
// $unionWith/$out at without requiring an external database.
//
// Storage is explicitly out of scope for the aggregation engine itself
// (spec.md §1/§6); this package is demo plumbing, not part of the core.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/docengine/aggpipe/internal/provider"
	"github.com/docengine/aggpipe/internal/types"
	"github.com/docengine/aggpipe/internal/util/iterator"
)

// Store is a SQLite-backed [provider.CollectionProvider]: one table per
// collection, each row holding one document as a BSON blob.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database file at path ("" or ":memory:" for
// an in-memory database).
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore.Open: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetCollection implements provider.CollectionProvider.
func (s *Store) GetCollection(ctx context.Context, name string) (provider.CollectionHandle, error) {
	table := tableName(name)

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, doc BLOB NOT NULL)`, table,
	))
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: create table %s: %w", table, err)
	}

	return &collection{db: s.db, table: table}, nil
}

// tableName maps a collection name to a quoted, safe SQLite identifier.
func tableName(name string) string {
	return fmt.Sprintf("%q", "coll_"+name)
}

// collection implements provider.CollectionHandle for one SQLite table.
type collection struct {
	db    *sql.DB
	table string
}

// Find implements provider.CollectionHandle. A nil filter matches every
// document; a non-nil filter requires an exact value at each of the
// filter's top-level keys (this reference store does not implement the
// full $match predicate language - that is the engine's own external
// FilterMatcher collaborator, not storage's job).
func (c *collection) Find(ctx context.Context, filter *types.Document) (types.DocumentsIterator, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`SELECT doc FROM %s ORDER BY id`, c.table))
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query %s: %w", c.table, err)
	}

	defer rows.Close()

	var docs []*types.Document

	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan %s: %w", c.table, err)
		}

		doc, err := fromBSON(bson.Raw(blob))
		if err != nil {
			return nil, err
		}

		if filter == nil || matches(doc, filter) {
			docs = append(docs, doc)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: iterate %s: %w", c.table, err)
	}

	return iterator.Values(iterator.ForSlice(docs)), nil
}

// InsertMany implements provider.CollectionHandle.
func (c *collection) InsertMany(ctx context.Context, docs []*types.Document) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin tx: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (doc) VALUES (?)`, c.table))
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare insert: %w", err)
	}

	defer stmt.Close()

	for _, doc := range docs {
		blob, err := bson.Marshal(ToBSON(doc))
		if err != nil {
			return fmt.Errorf("sqlitestore: marshal document: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, blob); err != nil {
			return fmt.Errorf("sqlitestore: insert into %s: %w", c.table, err)
		}
	}

	return tx.Commit()
}

// DeleteMany implements provider.CollectionHandle. A nil filter truncates
// the collection; a non-nil filter deletes only matching rows.
func (c *collection) DeleteMany(ctx context.Context, filter *types.Document) error {
	if filter == nil {
		_, err := c.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, c.table))
		if err != nil {
			return fmt.Errorf("sqlitestore: truncate %s: %w", c.table, err)
		}

		return nil
	}

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, doc FROM %s`, c.table))
	if err != nil {
		return fmt.Errorf("sqlitestore: query %s: %w", c.table, err)
	}

	var toDelete []int64

	for rows.Next() {
		var id int64
		var blob []byte

		if err := rows.Scan(&id, &blob); err != nil {
			rows.Close()
			return fmt.Errorf("sqlitestore: scan %s: %w", c.table, err)
		}

		doc, err := fromBSON(bson.Raw(blob))
		if err != nil {
			rows.Close()
			return err
		}

		if matches(doc, filter) {
			toDelete = append(toDelete, id)
		}
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlitestore: iterate %s: %w", c.table, err)
	}

	for _, id := range toDelete {
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c.table), id); err != nil {
			return fmt.Errorf("sqlitestore: delete from %s: %w", c.table, err)
		}
	}

	return nil
}

// matches reports whether doc has, for every key in filter, an equal value.
func matches(doc, filter *types.Document) bool {
	for _, k := range filter.Keys() {
		want, _ := filter.Get(k)

		got, err := doc.Get(k)
		if err != nil {
			return false
		}

		if types.Compare(got, want) != types.Equal {
			return false
		}
	}

	return true
}

var _ provider.CollectionProvider = (*Store)(nil)
var _ provider.CollectionHandle = (*collection)(nil)
