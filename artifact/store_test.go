package artifact

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/testforge/errors"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	id, err := store.SaveBytes([]byte("public class GeneratedTest {}"), ".txt")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Contains(t, id, ".txt")

	f, err := store.Open(id)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "public class GeneratedTest {}", string(data))
}

func TestDistinctIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.SaveBytes([]byte("a"), "")
	require.NoError(t, err)
	b, err := store.SaveBytes([]byte("b"), "")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOpenUnknown(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("does-not-exist.txt")
	assert.True(t, errors.IsNotFoundError(err))

	_, err = store.Path("../../etc/passwd")
	assert.True(t, errors.IsNotFoundError(err))
}
