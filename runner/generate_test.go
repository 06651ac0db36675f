package runner

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/testforge/testforge/artifact"
	"github.com/testforge/testforge/errors"
	"github.com/testforge/testforge/gen"
)

type stubGenClient struct {
	out string
	err error
	got gen.Request
}

func (s *stubGenClient) Generate(ctx context.Context, req gen.Request) (string, error) {
	s.got = req
	return s.out, s.err
}

func TestGenerateRunSavesArtifact(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)

	client := &stubGenClient{out: "class GeneratedTest {}"}
	g := NewGenerate(client, store, zaptest.NewLogger(t).Sugar())

	result := g.Run(context.Background(), map[string]interface{}{
		"code":      "class Calc {}",
		"test_type": "unit",
		"language":  "java",
		"model":     "codellama:13b",
	})

	assert.True(t, result.OK)
	assert.Equal(t, "class Calc {}", client.got.Code)
	assert.Equal(t, "codellama:13b", client.got.Model)

	require.Len(t, result.Artifacts, 1)
	art := result.Artifacts[0]
	assert.Equal(t, int64(len("class GeneratedTest {}")), art.Size)
	require.NotNil(t, art.URL)
	assert.Equal(t, "/artifact/"+art.Name, *art.URL)

	rc, err := store.Open(art.Name)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "class GeneratedTest {}", string(data))
}

func TestGenerateRunMissingCode(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)

	g := NewGenerate(&stubGenClient{}, store, zaptest.NewLogger(t).Sugar())
	result := g.Run(context.Background(), map[string]interface{}{})

	assert.False(t, result.OK)
	assert.Contains(t, result.Logs, "missing 'code' parameter")
}

func TestGenerateRunClientFailure(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)

	client := &stubGenClient{err: errors.New("model not available")}
	g := NewGenerate(client, store, zaptest.NewLogger(t).Sugar())

	result := g.Run(context.Background(), map[string]interface{}{"code": "x"})
	assert.False(t, result.OK)
	assert.Contains(t, result.Logs, "generation failed")
	assert.Contains(t, result.Logs, "model not available")
	assert.Empty(t, result.Artifacts)
}
