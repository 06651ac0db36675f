package execution

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	store := NewStore(logger)
	dispatcher := NewDispatcher(context.Background(), DispatcherConfig{Workers: 2, QueueDepth: 8}, logger)
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)
	return NewOrchestrator(store, dispatcher, NewRegistry(), logger)
}

// waitTerminal polls until the execution reaches a terminal state
func waitTerminal(t *testing.T, o *Orchestrator, id string) *Execution {
	t.Helper()
	require.Eventually(t, func() bool {
		rec, ok := o.Store().Get(id)
		return ok && rec.Status.Terminal()
	}, 10*time.Second, 5*time.Millisecond)

	rec, ok := o.Store().Get(id)
	require.True(t, ok)
	return rec
}

func TestStartReturnsImmediatelyQueued(t *testing.T) {
	o := newTestOrchestrator(t)

	gate := make(chan struct{})
	o.Registry().Register("slow", func(ctx context.Context, params Params) Result {
		<-gate
		return Result{OK: true, Logs: "done"}
	})

	id := o.Start("slow", Params{"url": "https://example.org"}, "")

	rec, ok := o.Store().Get(id)
	require.True(t, ok)
	assert.Equal(t, "slow", rec.Kind)
	assert.False(t, rec.Status.Terminal(), "runner must not complete before it is released")

	close(gate)
	final := waitTerminal(t, o, id)
	assert.Equal(t, StatusSuccess, final.Status)
	assert.Equal(t, "done", final.Logs)
}

func TestBrowserRunScenario(t *testing.T) {
	o := newTestOrchestrator(t)

	o.Registry().Register("selenium", func(ctx context.Context, params Params) Result {
		url, _ := params["url"].(string)
		return Result{OK: true, Logs: fmt.Sprintf("[SELENIUM] URL: %s\n[SELENIUM] SUCCESS\n", url)}
	})

	id := o.Start("selenium", Params{"url": "https://example.org"}, "")
	rec := waitTerminal(t, o, id)

	assert.True(t, rec.Status.Terminal())
	assert.NotEmpty(t, rec.Logs)
	assert.Contains(t, rec.Logs, "https://example.org")
	assert.NotNil(t, rec.StartedAt)
	assert.NotNil(t, rec.FinishedAt)
}

func TestUnknownKindFails(t *testing.T) {
	o := newTestOrchestrator(t)

	id := o.Start("unknown-kind-xyz", Params{}, "")
	rec := waitTerminal(t, o, id)

	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Logs, "unknown kind: unknown-kind-xyz")
}

func TestRunnerPanicReachesFailed(t *testing.T) {
	o := newTestOrchestrator(t)

	o.Registry().Register("java-maven", func(ctx context.Context, params Params) Result {
		panic("mvn exploded")
	})

	id := o.Start("java-maven", Params{"language": "java"}, "")
	rec := waitTerminal(t, o, id)

	assert.Equal(t, StatusFailed, rec.Status, "a panicking runner must never leave the record running")
	assert.Contains(t, rec.Logs, "mvn exploded")
}

func TestRunnerFailureIsTerminal(t *testing.T) {
	o := newTestOrchestrator(t)

	o.Registry().Register("gatling", func(ctx context.Context, params Params) Result {
		return Result{OK: false, Logs: "[GATLING] simulation failed"}
	})

	id := o.Start("gatling", Params{}, "")
	rec := waitTerminal(t, o, id)

	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Logs, "[GATLING]")
}

func TestRerun(t *testing.T) {
	o := newTestOrchestrator(t)

	calls := make(chan Params, 2)
	o.Registry().Register("selenium", func(ctx context.Context, params Params) Result {
		calls <- params
		return Result{OK: true, Logs: "ok"}
	})

	id := o.Start("selenium", Params{"url": "https://example.org"}, "tc-7")
	waitTerminal(t, o, id)

	newID, err := o.Rerun(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)

	rec := waitTerminal(t, o, newID)
	assert.Equal(t, "selenium", rec.Kind)
	assert.Equal(t, "https://example.org", rec.Params["url"])
	assert.Equal(t, "tc-7", rec.TestCaseID, "rerun keeps the test-case back-reference")

	// Both records remain independently retrievable
	orig, ok := o.Store().Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, orig.Status)

	require.Len(t, calls, 2)
	first := <-calls
	second := <-calls
	assert.Equal(t, first, second, "rerun must reuse params verbatim")
}

func TestRerunUnknownID(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.Rerun("no-such-execution")
	require.Error(t, err)

	rec, ok := o.Store().Get("no-such-execution")
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestMarkRunningPrecedesResult(t *testing.T) {
	o := newTestOrchestrator(t)

	observed := make(chan Status, 1)
	o.Registry().Register("introspect", func(ctx context.Context, params Params) Result {
		// While the runner executes, its own record must read running
		rec, ok := o.Store().Get(params["self"].(string))
		if ok {
			observed <- rec.Status
		}
		return Result{OK: true, Logs: "ok"}
	})

	store := o.Store()
	id := store.Create("introspect", Params{}, "")
	o.dispatcher.Submit("introspect", func(ctx context.Context) {
		o.run(ctx, id, "introspect", Params{"self": id})
	})

	waitTerminal(t, o, id)
	require.Len(t, observed, 1)
	assert.Equal(t, StatusRunning, <-observed)
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register("selenium", func(ctx context.Context, params Params) Result { return Result{} })

	assert.Panics(t, func() {
		r.Register("selenium", func(ctx context.Context, params Params) Result { return Result{} })
	})

	assert.True(t, r.Has("selenium"))
	assert.False(t, r.Has("gatling"))
	assert.Equal(t, []string{"selenium"}, r.Kinds())
}
