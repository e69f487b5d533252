// Package db keeps an optional audit log of served predictions in SQLite.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
)

// MaxHistoryLimit caps Recent.
const MaxHistoryLimit = 500

var ErrClosed = errors.New("history store closed")

// Feature is one submitted value, in schema order.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// HistoryEntry is one row of the predictions table.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	Features   []Feature `json:"features"`
	LabelID    int       `json:"label_id"`
	Label      string    `json:"label"`
	Confidence *float64  `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type HistoryStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenHistory opens (or creates) the database at path.
func OpenHistory(path string, logger *zap.Logger) (*HistoryStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// go-sqlite3 serializes writers; one connection avoids SQLITE_BUSY.
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        features TEXT NOT NULL,
        label_id INTEGER NOT NULL,
        label TEXT NOT NULL,
        confidence REAL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	logger.Info("prediction history enabled", zap.String("path", path))
	return &HistoryStore{db: database, logger: logger}, nil
}

// Append stores a successful prediction.
func (s *HistoryStore) Append(ctx context.Context, p *ml.Prediction) error {
	if s.db == nil {
		return ErrClosed
	}
	features := make([]Feature, p.Record.Len())
	for i := range features {
		features[i] = Feature{Value: p.Record.Values[i]}
		if i < len(p.Record.Names) {
			features[i].Name = p.Record.Names[i]
		}
	}
	encoded, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	var confidence sql.NullFloat64
	if p.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *p.Confidence, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO predictions (features, label_id, label, confidence, created_at)
        VALUES (?, ?, ?, ?, ?)`,
		string(encoded), p.LabelID, p.Label, confidence, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, features, label_id, label, confidence, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var (
			e          HistoryEntry
			features   string
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &features, &e.LabelID, &e.Label, &confidence, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &e.Features); err != nil {
			return nil, fmt.Errorf("decode features of row %d: %w", e.ID, err)
		}
		if confidence.Valid {
			c := confidence.Float64
			e.Confidence = &c
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *HistoryStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
