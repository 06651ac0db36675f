package testcase

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/testforge/testforge/errors"
)

// Store handles persistence of saved test cases.
type Store struct {
	db *sql.DB
}

// NewStore creates a test case store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a test case, assigning its id and creation time.
func (s *Store) Create(tc *TestCase) error {
	if tc.ID == "" {
		tc.ID = uuid.NewString()
	}
	if tc.Status == "" {
		tc.Status = StatusConfirmed
	}
	if tc.CreatedAt.IsZero() {
		tc.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO test_cases (
			id, code, generated_test, test_type, language,
			status, provider, model, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	provider := sql.NullString{String: tc.Provider, Valid: tc.Provider != ""}
	model := sql.NullString{String: tc.Model, Valid: tc.Model != ""}

	_, err := s.db.Exec(query,
		tc.ID,
		tc.Code,
		tc.GeneratedTest,
		tc.TestType,
		tc.Language,
		tc.Status,
		provider,
		model,
		tc.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create test case")
	}

	return nil
}

// Get retrieves a test case by id.
// Returns ErrNotFound if no such test case exists.
func (s *Store) Get(id string) (*TestCase, error) {
	query := `
		SELECT id, code, generated_test, test_type, language,
		       status, provider, model, created_at
		FROM test_cases
		WHERE id = ?
	`

	tc, err := scanTestCase(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("test case not found: %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get test case")
	}

	return tc, nil
}

// List returns test cases newest first, up to limit.
func (s *Store) List(limit int) ([]*TestCase, error) {
	query := `
		SELECT id, code, generated_test, test_type, language,
		       status, provider, model, created_at
		FROM test_cases
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list test cases")
	}
	defer rows.Close()

	cases := make([]*TestCase, 0)
	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan test case")
		}
		cases = append(cases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate test cases")
	}

	return cases, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTestCase(row rowScanner) (*TestCase, error) {
	var tc TestCase
	var provider, model sql.NullString

	err := row.Scan(
		&tc.ID,
		&tc.Code,
		&tc.GeneratedTest,
		&tc.TestType,
		&tc.Language,
		&tc.Status,
		&provider,
		&model,
		&tc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tc.Provider = provider.String
	tc.Model = model.String
	return &tc, nil
}
