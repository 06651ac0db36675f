package testcase

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/testforge/testforge/db"
	"github.com/testforge/testforge/errors"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()

	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Migrate(conn, logger))
	return NewStore(conn)
}

func TestCreateAndGet(t *testing.T) {
	store := setupStore(t)

	tc := &TestCase{
		Code:          "class Calc {}",
		GeneratedTest: "class CalcTest {}",
		TestType:      "unit",
		Language:      "java",
		Provider:      "ollama",
		Model:         "deepseek-coder:6.7b-instruct",
	}
	require.NoError(t, store.Create(tc))
	require.NotEmpty(t, tc.ID)
	assert.Equal(t, StatusConfirmed, tc.Status)
	assert.False(t, tc.CreatedAt.IsZero())

	got, err := store.Get(tc.ID)
	require.NoError(t, err)
	assert.Equal(t, tc.ID, got.ID)
	assert.Equal(t, "class Calc {}", got.Code)
	assert.Equal(t, "class CalcTest {}", got.GeneratedTest)
	assert.Equal(t, "ollama", got.Provider)
	assert.Equal(t, "deepseek-coder:6.7b-instruct", got.Model)
}

func TestCreateWithoutOptionalFields(t *testing.T) {
	store := setupStore(t)

	tc := &TestCase{
		Code:          "def f(): pass",
		GeneratedTest: "def test_f(): pass",
		TestType:      "unit",
		Language:      "python",
	}
	require.NoError(t, store.Create(tc))

	got, err := store.Get(tc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Provider)
	assert.Empty(t, got.Model)
}

func TestGetNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.Get("no-such-id")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestListNewestFirst(t *testing.T) {
	store := setupStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(&TestCase{
			ID:            string(rune('a' + i)),
			Code:          "code",
			GeneratedTest: "test",
			TestType:      "unit",
			Language:      "java",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	cases, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, cases, 3)
	assert.Equal(t, "c", cases[0].ID)
	assert.Equal(t, "b", cases[1].ID)
	assert.Equal(t, "a", cases[2].ID)
}

func TestListRespectsLimit(t *testing.T) {
	store := setupStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(&TestCase{
			Code:          "code",
			GeneratedTest: "test",
			TestType:      "unit",
			Language:      "java",
		}))
	}

	cases, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, cases, 2)
}

func TestListEmpty(t *testing.T) {
	store := setupStore(t)

	cases, err := store.List(50)
	require.NoError(t, err)
	require.NotNil(t, cases)
	assert.Len(t, cases, 0)
}

func TestCreateDatabaseError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("INSERT INTO test_cases").
		WillReturnError(errors.New("disk I/O error"))

	store := NewStore(conn)
	err = store.Create(&TestCase{Code: "x", GeneratedTest: "y", TestType: "unit", Language: "java"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create test case")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDatabaseError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery("SELECT (.+) FROM test_cases").
		WillReturnError(errors.New("database is locked"))

	store := NewStore(conn)
	_, err = store.List(50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list test cases")
	assert.NoError(t, mock.ExpectationsWereMet())
}
