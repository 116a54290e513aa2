package convo

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore SQLite conversation storage implementation
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return store, nil
}

// initTables initializes database tables
func (s *SQLiteStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_input TEXT NOT NULL,
			model_reply TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_session_id ON interactions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created_at ON interactions(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute SQL: %s, error: %w", query, err)
		}
	}

	return nil
}

// CreateSession creates a new session
func (s *SQLiteStore) CreateSession() (string, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := s.db.Exec(
		"INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		id, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return id, nil
}

// GetLatestSession gets the most recently updated session
func (s *SQLiteStore) GetLatestSession() (*Session, error) {
	var session Session
	err := s.db.QueryRow(
		"SELECT id, created_at, updated_at FROM sessions ORDER BY updated_at DESC LIMIT 1",
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest session: %w", err)
	}

	return &session, nil
}

// AppendInteraction saves one user/model exchange
func (s *SQLiteStore) AppendInteraction(sessionID string, in *Interaction) error {
	result, err := s.db.Exec(
		"INSERT INTO interactions (session_id, user_input, model_reply, created_at) VALUES (?, ?, ?, ?)",
		sessionID, in.UserInput, in.ModelReply, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		in.ID = id
	}

	// Update session time
	_, _ = s.db.Exec("UPDATE sessions SET updated_at = ? WHERE id = ?", time.Now(), sessionID)

	return nil
}

// GetInteractions gets all interactions for a session in chronological order
func (s *SQLiteStore) GetInteractions(sessionID string) ([]*Interaction, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, user_input, model_reply, created_at
		 FROM interactions
		 WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get interactions: %w", err)
	}
	defer rows.Close()

	var interactions []*Interaction
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.SessionID, &in.UserInput, &in.ModelReply, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, &in)
	}

	return interactions, nil
}

// ClearSession deletes all interactions in a session
func (s *SQLiteStore) ClearSession(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM interactions WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear session interactions: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
