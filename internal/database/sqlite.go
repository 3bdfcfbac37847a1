// Package database provides persistence for spent setup proofs, the only
// server-side state tapgate keeps and only when single-use proofs are on.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database: %v", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Spend records nonce as used until expires. It reports true the first
// time a nonce is spent and false on every later attempt while the record
// is live. Records expired as of now are pruned on each call.
func (s *SQLiteStore) Spend(
	ctx context.Context,
	nonce string,
	now time.Time,
	expires time.Time,
) (
	bool,
	error,
) {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM spent_proof
		WHERE expiration < ?1;`,
		now.UnixMilli(),
	); err != nil {
		return false, fmt.Errorf("couldn't prune spent_proof: %v", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO spent_proof (nonce, expiration)
		VALUES (?1, ?2)
		ON CONFLICT (nonce) DO NOTHING;`,
		nonce,
		expires.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("couldn't insert into spent_proof: %v", err)
	}

	return !resultsEmpty(result), nil
}

// SpentCount returns the number of live spent-proof records.
func (s *SQLiteStore) SpentCount(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM spent_proof;`,
	)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("couldn't count spent_proof: %v", err)
	}
	return count, nil
}

func initSchema(db *sql.DB) error {
	return initTable(db, "spent_proof", `
		CREATE TABLE IF NOT EXISTS spent_proof (
			nonce       TEXT PRIMARY KEY,
			expiration  INTEGER NOT NULL
		);`,
	)
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}

func resultsEmpty(result sql.Result) bool {
	count, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return count == 0
}
