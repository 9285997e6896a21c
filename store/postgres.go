package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	errorspkg "github.com/convoflow-ai/convoflow/errors"
)

// PostgresSink persists records to PostgreSQL.
type PostgresSink struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultPostgresConfig returns default PostgreSQL configuration.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "convoflow",
		SSLMode:  "disable",
	}
}

// NewPostgresSink connects and ensures the records table exists.
func NewPostgresSink(config *PostgresConfig) (*PostgresSink, error) {
	if config == nil {
		config = DefaultPostgresConfig()
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	sink := &PostgresSink{db: db}
	if err := sink.createTable(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return sink, nil
}

func (s *PostgresSink) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS conversation_records (
		id VARCHAR(255) PRIMARY KEY,
		query TEXT NOT NULL,
		answer TEXT NOT NULL,
		intent_label VARCHAR(32) NOT NULL,
		intent_confidence DOUBLE PRECISION NOT NULL,
		state VARCHAR(32) NOT NULL,
		iterations JSONB,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversation_records_created_at ON conversation_records(created_at);
	CREATE INDEX IF NOT EXISTS idx_conversation_records_intent ON conversation_records(intent_label);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Save inserts the record, replacing any previous record with the same ID.
func (s *PostgresSink) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}

	iterationsJSON := []byte("[]")
	if len(rec.Iterations) > 0 {
		var err error
		iterationsJSON, err = json.Marshal(rec.Iterations)
		if err != nil {
			return fmt.Errorf("failed to marshal iterations: %w", err)
		}
	}

	query := `
	INSERT INTO conversation_records (id, query, answer, intent_label, intent_confidence, state, iterations, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		answer = EXCLUDED.answer,
		state = EXCLUDED.state,
		iterations = EXCLUDED.iterations
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Query,
		rec.Answer,
		rec.IntentLabel,
		rec.IntentConfidence,
		rec.State,
		string(iterationsJSON),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save record to PostgreSQL: %w", err)
	}

	return nil
}

// Get retrieves a record by ID.
func (s *PostgresSink) Get(ctx context.Context, id string) (*Record, error) {
	rec := &Record{}
	var iterationsJSON string

	query := `SELECT id, query, answer, intent_label, intent_confidence, state, iterations, created_at
	          FROM conversation_records WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Query, &rec.Answer, &rec.IntentLabel, &rec.IntentConfidence,
		&rec.State, &iterationsJSON, &rec.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("record %s: %w", id, errorspkg.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if iterationsJSON != "" && iterationsJSON != "[]" {
		if err := json.Unmarshal([]byte(iterationsJSON), &rec.Iterations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal iterations: %w", err)
		}
	}
	return rec, nil
}

// List returns records newest first.
func (s *PostgresSink) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, answer, intent_label, intent_confidence, state, iterations, created_at
		 FROM conversation_records
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		rec := &Record{}
		var iterationsJSON string

		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Answer, &rec.IntentLabel,
			&rec.IntentConfidence, &rec.State, &iterationsJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if iterationsJSON != "" && iterationsJSON != "[]" {
			if err := json.Unmarshal([]byte(iterationsJSON), &rec.Iterations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal iterations: %w", err)
			}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *PostgresSink) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversation_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Clear removes all records.
func (s *PostgresSink) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM conversation_records")
	if err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}

// Close closes the PostgreSQL connection.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// Ping checks if the PostgreSQL connection is alive.
func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
