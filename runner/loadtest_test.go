package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/testforge/testforge/errors"
)

// mountTarget extracts the host side of the docker -v flag whose
// container side matches the given suffix.
func mountTarget(args []string, containerSuffix string) string {
	for i, arg := range args {
		if arg == "-v" && i+1 < len(args) && strings.HasSuffix(args[i+1], containerSuffix) {
			return strings.TrimSuffix(args[i+1], containerSuffix)
		}
	}
	return ""
}

func TestGatlingRunSuccess(t *testing.T) {
	var gotArgs []string
	g := NewGatling(time.Hour, zaptest.NewLogger(t).Sugar())
	g.exec = func(ctx context.Context, name string, args ...string) (string, string, error) {
		require.Equal(t, "docker", name)
		gotArgs = args
		return "Simulation finished", "", nil
	}

	result := g.Run(context.Background(), map[string]interface{}{})
	assert.True(t, result.OK)
	assert.Equal(t, "Simulation finished", result.Logs)
	assert.Contains(t, gotArgs, gatlingImage)
	assert.NotContains(t, gotArgs, "-s")
}

func TestGatlingRunWithSimulation(t *testing.T) {
	var gotArgs []string
	g := NewGatling(time.Hour, zaptest.NewLogger(t).Sugar())
	g.exec = func(ctx context.Context, name string, args ...string) (string, string, error) {
		gotArgs = args
		return "", "warning: something", errors.New("exit status 1")
	}

	result := g.Run(context.Background(), map[string]interface{}{"simulation": "computerdatabase.BasicSimulation"})
	assert.False(t, result.OK)
	assert.Contains(t, result.Logs, "--- STDERR ---")
	assert.Contains(t, result.Logs, "warning: something")

	idx := -1
	for i, a := range gotArgs {
		if a == "-s" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "computerdatabase.BasicSimulation", gotArgs[idx+1])
}

func TestGatlingRunNoOutput(t *testing.T) {
	g := NewGatling(time.Hour, zaptest.NewLogger(t).Sugar())
	g.exec = func(ctx context.Context, name string, args ...string) (string, string, error) {
		return "", "", nil
	}

	result := g.Run(context.Background(), map[string]interface{}{})
	assert.True(t, result.OK)
	assert.Equal(t, "[GATLING] no output", result.Logs)
}

func TestJMeterMissingJMX(t *testing.T) {
	j := NewJMeter(time.Hour, zaptest.NewLogger(t).Sugar())
	j.exec = func(ctx context.Context, name string, args ...string) (string, string, error) {
		t.Fatal("docker should not be invoked without a jmx plan")
		return "", "", nil
	}

	for _, params := range []map[string]interface{}{
		{},
		{"jmx": ""},
		{"jmx": "/does/not/exist.jmx"},
	} {
		result := j.Run(context.Background(), params)
		assert.False(t, result.OK)
		assert.Contains(t, result.Logs, "missing or invalid 'jmx' parameter")
	}
}

func TestJMeterCollectsResultArtifact(t *testing.T) {
	jmx := filepath.Join(t.TempDir(), "plan.jmx")
	require.NoError(t, os.WriteFile(jmx, []byte("<jmeterTestPlan/>"), 0o644))

	j := NewJMeter(time.Hour, zaptest.NewLogger(t).Sugar())
	j.exec = func(ctx context.Context, name string, args ...string) (string, string, error) {
		outDir := mountTarget(args, ":/out")
		require.NotEmpty(t, outDir)
		require.NoError(t, os.WriteFile(filepath.Join(outDir, "result.jtl"), []byte("samples"), 0o644))
		return "summary = 10 in 1s", "", nil
	}

	result := j.Run(context.Background(), map[string]interface{}{"jmx": jmx})
	assert.True(t, result.OK)
	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, "result.jtl", result.Artifacts[0].Name)
	assert.Nil(t, result.Artifacts[0].URL)
	assert.Equal(t, int64(7), result.Artifacts[0].Size)
}

func TestJMeterFailureWithoutResultFile(t *testing.T) {
	jmx := filepath.Join(t.TempDir(), "plan.jmx")
	require.NoError(t, os.WriteFile(jmx, []byte("<jmeterTestPlan/>"), 0o644))

	j := NewJMeter(time.Hour, zaptest.NewLogger(t).Sugar())
	j.exec = func(ctx context.Context, name string, args ...string) (string, string, error) {
		return "", "cannot pull image", errors.New("exit status 125")
	}

	result := j.Run(context.Background(), map[string]interface{}{"jmx": jmx})
	assert.False(t, result.OK)
	assert.Empty(t, result.Artifacts)
	assert.Contains(t, result.Logs, "cannot pull image")
}
