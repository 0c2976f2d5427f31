// Package store caches imported question banks in SQLite so a bank file is
// parsed once per content hash. Exam sessions and scores are deliberately not
// stored: they live only for the current process.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pavelanni/quizbank/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		qtype TEXT NOT NULL,
		prompt TEXT NOT NULL,
		option_a TEXT NOT NULL DEFAULT '',
		option_b TEXT NOT NULL DEFAULT '',
		option_c TEXT NOT NULL DEFAULT '',
		option_d TEXT NOT NULL DEFAULT '',
		option_e TEXT NOT NULL DEFAULT '',
		option_f TEXT NOT NULL DEFAULT '',
		answer TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const questionColumns = `id, qtype, prompt, option_a, option_b, option_c, option_d, option_e, option_f, answer, explanation`

// InsertQuestion stores a question record.
func (s *Store) InsertQuestion(q model.QuestionRecord) (int64, error) {
	opts := make([]string, len(model.OptionLabels))
	for _, o := range q.Options {
		for i, label := range model.OptionLabels {
			if o.Label == label {
				opts[i] = o.Text
			}
		}
	}
	res, err := s.db.Exec(
		`INSERT INTO questions (qtype, prompt, option_a, option_b, option_c, option_d, option_e, option_f, answer, explanation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Type, q.Prompt, opts[0], opts[1], opts[2], opts[3], opts[4], opts[5], q.CorrectAnswer, q.Explanation,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanQuestion(rows *sql.Rows) (model.QuestionRecord, error) {
	var q model.QuestionRecord
	var id int64
	opts := make([]string, len(model.OptionLabels))
	err := rows.Scan(&id, &q.Type, &q.Prompt,
		&opts[0], &opts[1], &opts[2], &opts[3], &opts[4], &opts[5],
		&q.CorrectAnswer, &q.Explanation)
	if err != nil {
		return q, err
	}
	for i, text := range opts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		q.Options = append(q.Options, model.Option{Label: model.OptionLabels[i], Text: text})
	}
	return q, nil
}

func (s *Store) queryQuestions(query string, args ...any) ([]model.QuestionRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.QuestionRecord
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListQuestions returns all questions in import order.
func (s *Store) ListQuestions() ([]model.QuestionRecord, error) {
	return s.queryQuestions(`SELECT ` + questionColumns + ` FROM questions ORDER BY id`)
}

// CountByType returns per-type question counts.
func (s *Store) CountByType() (map[model.QuestionType]int, error) {
	rows, err := s.db.Query(`SELECT qtype, COUNT(*) FROM questions GROUP BY qtype`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[model.QuestionType]int)
	for rows.Next() {
		var t model.QuestionType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// GetImportedFileHash returns the recorded content hash for a bank file.
// Returns empty string and nil error when the file was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the content hash of an imported bank file.
func (s *Store) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?`,
		path, hash, hash,
	)
	return err
}
