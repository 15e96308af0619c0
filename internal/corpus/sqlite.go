package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/itemforge/itemforge/internal/model"
)

// SQLiteStore is the document store holding curated corpus items.
// Implements DocumentStore and VocabularySource.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the corpus database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		chapter TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		correct_index INTEGER NOT NULL DEFAULT 0,
		topics TEXT NOT NULL DEFAULT '[]',
		tags TEXT NOT NULL DEFAULT '[]',
		difficulty TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_items_subject ON items(subject);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Item is one corpus row as stored
type Item struct {
	ID           string   `json:"id" yaml:"id"`
	Subject      string   `json:"subject" yaml:"subject"`
	Chapter      string   `json:"chapter,omitempty" yaml:"chapter,omitempty"`
	Text         string   `json:"text" yaml:"text"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correct_index" yaml:"correct_index"`
	Topics       []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// InsertItem stores (or replaces) one corpus item
func (s *SQLiteStore) InsertItem(ctx context.Context, item Item) error {
	options, _ := json.Marshal(item.Options)
	topics, _ := json.Marshal(item.Topics)
	tags, _ := json.Marshal(item.Tags)

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO items (id, subject, chapter, text, options, correct_index, topics, tags, difficulty)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Subject, item.Chapter, item.Text, string(options), item.CorrectIndex,
		string(topics), string(tags), item.Difficulty,
	)
	return err
}

// FetchByIDs returns full bodies for ids, in no particular order.
// Unknown ids are silently dropped.
func (s *SQLiteStore) FetchByIDs(ctx context.Context, ids []string) ([]model.InspirationRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, options, correct_index, chapter, topics, tags, difficulty
		 FROM items WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.InspirationRecord
	for rows.Next() {
		var rec model.InspirationRecord
		var options, topics, tags, difficulty string
		if err := rows.Scan(&rec.ID, &rec.Text, &options, &rec.CorrectIndex, &rec.Chapter, &topics, &tags, &difficulty); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		_ = json.Unmarshal([]byte(options), &rec.Options)
		_ = json.Unmarshal([]byte(topics), &rec.Topics)
		_ = json.Unmarshal([]byte(tags), &rec.Tags)
		rec.Difficulty = model.Tier(difficulty)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Vocabulary samples up to limit items for the subject (and chapter, when
// set) and collects the distinct topic and tag values present.
func (s *SQLiteStore) Vocabulary(ctx context.Context, subject, chapter string, limit int) ([]string, []string, error) {
	if limit <= 0 {
		limit = 300
	}

	query := `SELECT topics, tags FROM items WHERE subject = ?`
	args := []any{subject}
	if chapter != "" {
		query += ` AND chapter = ?`
		args = append(args, chapter)
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("sample vocabulary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	topicSet := make(map[string]struct{})
	tagSet := make(map[string]struct{})
	for rows.Next() {
		var topicsJSON, tagsJSON string
		if err := rows.Scan(&topicsJSON, &tagsJSON); err != nil {
			return nil, nil, fmt.Errorf("scan vocabulary: %w", err)
		}
		var topics, tags []string
		_ = json.Unmarshal([]byte(topicsJSON), &topics)
		_ = json.Unmarshal([]byte(tagsJSON), &tags)
		for _, t := range topics {
			if t = strings.TrimSpace(t); t != "" {
				topicSet[t] = struct{}{}
			}
		}
		for _, t := range tags {
			if t = strings.TrimSpace(t); t != "" {
				tagSet[t] = struct{}{}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return sortedKeys(topicSet), sortedKeys(tagSet), nil
}

// Stats returns item counts grouped by subject and difficulty
func (s *SQLiteStore) Stats(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, difficulty, COUNT(*) FROM items GROUP BY subject, difficulty`)
	if err != nil {
		return nil, fmt.Errorf("corpus stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var subject, difficulty string
		var count int
		if err := rows.Scan(&subject, &difficulty, &count); err != nil {
			return nil, err
		}
		if out[subject] == nil {
			out[subject] = make(map[string]int)
		}
		if difficulty == "" {
			difficulty = "unspecified"
		}
		out[subject][difficulty] = count
	}
	return out, rows.Err()
}
