// Copyright 2024 AI SA Assistant Project
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

// Package history stores past questions and answers per user in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/your-org/agri-advisor/internal/advisory"
)

const (
	// DefaultListLimit is used when a caller passes a non-positive limit
	DefaultListLimit = 20
	// MaxListLimit caps a single ListRecent call
	MaxListLimit = 100
)

// ErrNotFound is returned when no record matches an id for a user
var ErrNotFound = errors.New("history record not found")

// Record is one stored question and answer
type Record struct {
	ID           string                     `json:"id"`
	UserID       string                     `json:"user_id"`
	Query        string                     `json:"query"`
	Language     advisory.Language          `json:"language"`
	Answer       string                     `json:"answer"`
	Confidence   float64                    `json:"confidence"`
	FactualBasis advisory.FactualBasis      `json:"factual_basis"`
	Sources      []advisory.SourceReference `json:"sources"`
	CreatedAt    time.Time                  `json:"created_at"`
}

// NewRecord builds the record saved for one answered query
func NewRecord(userID string, q advisory.Query, resp advisory.AdvisoryResponse, now time.Time) Record {
	return Record{
		ID:           uuid.NewString(),
		UserID:       userID,
		Query:        q.OriginalText,
		Language:     q.DetectedLanguage,
		Answer:       resp.AnswerText,
		Confidence:   resp.Confidence,
		FactualBasis: resp.FactualBasis,
		Sources:      resp.Sources,
		CreatedAt:    now.UTC(),
	}
}

// Store handles queries to the SQLite history database
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens or creates the history database at dbPath
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create history database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; an in-memory database also exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("History store opened", zap.String("path", dbPath))
	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// initSchema creates the history table if it doesn't exist
func (s *Store) initSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS query_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			query TEXT NOT NULL,
			language TEXT,
			answer TEXT NOT NULL,
			confidence REAL,
			factual_basis TEXT,
			sources TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_query_history_user ON query_history (user_id, created_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// Insert stores rec, assigning an id and timestamp when missing
func (s *Store) Insert(ctx context.Context, rec Record) error {
	if rec.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	sources, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}

	query := `
		INSERT INTO query_history (id, user_id, query, language, answer, confidence, factual_basis, sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.Query, string(rec.Language), rec.Answer,
		rec.Confidence, string(rec.FactualBasis), string(sources), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	s.logger.Debug("History record stored",
		zap.String("id", rec.ID),
		zap.String("user_id", rec.UserID))
	return nil
}

// ListRecent returns up to limit records for user, newest first
func (s *Store) ListRecent(ctx context.Context, user string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, user_id, query, language, answer, confidence, factual_basis, sources, created_at
		FROM query_history
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, user, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var language, basis, sources sql.NullString
		var confidence sql.NullFloat64

		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Query, &language, &rec.Answer,
			&confidence, &basis, &sources, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		rec.Language = advisory.Language(language.String)
		rec.FactualBasis = advisory.FactualBasis(basis.String)
		rec.Confidence = confidence.Float64
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &rec.Sources); err != nil {
				s.logger.Warn("Ignoring unreadable sources",
					zap.String("id", rec.ID),
					zap.Error(err))
			}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return records, nil
}

// Delete removes the record id owned by user
func (s *Store) Delete(ctx context.Context, id, user string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM query_history WHERE id = ? AND user_id = ?`, id, user)
	if err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
