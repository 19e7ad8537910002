package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SourceLanguage is the language the speaker is transcribed in. The
// source-language translation row keeps TranslatedText nil.
const SourceLanguage = "English"

type Event struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	SourceLanguage string    `json:"sourceLanguage"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Translation struct {
	ID             int64     `json:"id"`
	EventID        int64     `json:"eventId"`
	OriginalText   string    `json:"originalText"`
	TranslatedText *string   `json:"translatedText"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"createdAt"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "lingocast.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			source_language TEXT NOT NULL DEFAULT 'English',
			created_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS translations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			original_text TEXT NOT NULL,
			translated_text TEXT,
			language TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY(event_id) REFERENCES events(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create translations table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_translations_event_id ON translations(event_id, id)"); err != nil {
		return fmt.Errorf("create translations index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateEvent(title, description string) (Event, error) {
	if strings.TrimSpace(title) == "" {
		return Event{}, errors.New("event title is required")
	}

	createdAt := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO events(title, description, source_language, created_at) VALUES(?, ?, ?, ?)`,
		strings.TrimSpace(title),
		description,
		SourceLanguage,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Event{}, fmt.Errorf("create event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Event{}, fmt.Errorf("create event id: %w", err)
	}

	return Event{
		ID:             id,
		Title:          strings.TrimSpace(title),
		Description:    description,
		SourceLanguage: SourceLanguage,
		CreatedAt:      createdAt,
	}, nil
}

func (s *SQLiteStore) GetEvent(id int64) (Event, error) {
	row := s.db.QueryRow(
		`SELECT id, title, description, source_language, created_at FROM events WHERE id = ?`,
		id,
	)

	var ev Event
	var createdAt string
	if err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.SourceLanguage, &createdAt); err != nil {
		return Event{}, fmt.Errorf("query event %d: %w", id, err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Event{}, fmt.Errorf("parse event %d created_at: %w", id, err)
	}
	ev.CreatedAt = parsed

	return ev, nil
}

func (s *SQLiteStore) ListEvents() ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, source_language, created_at FROM events ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]Event, 0, 16)
	for rows.Next() {
		var ev Event
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.SourceLanguage, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse event created_at: %w", err)
		}
		ev.CreatedAt = parsed

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

// CreateTranslation appends one translation row. translatedText is nil for
// the source-language row, which must be written before any translated row
// of the same segment so readers never see a translation without its
// original.
func (s *SQLiteStore) CreateTranslation(eventID int64, originalText string, translatedText *string, language string) (Translation, error) {
	if strings.TrimSpace(language) == "" {
		return Translation{}, errors.New("translation language is required")
	}

	createdAt := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO translations(event_id, original_text, translated_text, language, created_at) VALUES(?, ?, ?, ?, ?)`,
		eventID,
		originalText,
		translatedText,
		language,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Translation{}, fmt.Errorf("create translation for event %d: %w", eventID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Translation{}, fmt.Errorf("create translation id: %w", err)
	}

	return Translation{
		ID:             id,
		EventID:        eventID,
		OriginalText:   originalText,
		TranslatedText: translatedText,
		Language:       language,
		CreatedAt:      createdAt,
	}, nil
}

func (s *SQLiteStore) GetTranslation(id int64) (Translation, error) {
	row := s.db.QueryRow(
		`SELECT id, event_id, original_text, translated_text, language, created_at FROM translations WHERE id = ?`,
		id,
	)

	tr, err := scanTranslationRow(row.Scan)
	if err != nil {
		return Translation{}, fmt.Errorf("query translation %d: %w", id, err)
	}
	return tr, nil
}

func (s *SQLiteStore) ListTranslationsByEvent(eventID int64) ([]Translation, error) {
	rows, err := s.db.Query(
		`SELECT id, event_id, original_text, translated_text, language, created_at
		 FROM translations
		 WHERE event_id = ?
		 ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("query translations for event %d: %w", eventID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanTranslations(rows)
}

// ListRecentTranslations returns at most limit rows, newest first. Callers
// that display chronologically reverse the slice.
func (s *SQLiteStore) ListRecentTranslations(eventID int64, limit int) ([]Translation, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, event_id, original_text, translated_text, language, created_at
		 FROM translations
		 WHERE event_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		eventID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent translations for event %d: %w", eventID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanTranslations(rows)
}

func scanTranslations(rows *sql.Rows) ([]Translation, error) {
	translations := make([]Translation, 0, 16)
	for rows.Next() {
		tr, err := scanTranslationRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		translations = append(translations, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translation rows: %w", err)
	}

	return translations, nil
}

func scanTranslationRow(scan func(...any) error) (Translation, error) {
	var tr Translation
	var translated sql.NullString
	var createdAt string
	if err := scan(&tr.ID, &tr.EventID, &tr.OriginalText, &translated, &tr.Language, &createdAt); err != nil {
		return Translation{}, fmt.Errorf("scan translation: %w", err)
	}

	if translated.Valid {
		text := translated.String
		tr.TranslatedText = &text
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Translation{}, fmt.Errorf("parse translation created_at: %w", err)
	}
	tr.CreatedAt = parsed

	return tr, nil
}
