package execution

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the in-memory execution record table.
//
// Every mutating operation is a single atomic update to one record keyed
// by id; concurrent calls across different ids never interfere. Records
// are held for the life of the process — there is no eviction.
//
// Transitions against unknown ids are tolerated as no-ops (a dispatch
// may race with future record cleanup) but logged, since silently
// dropping a result could hide lost work.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Execution
	logger  *zap.SugaredLogger
	now     func() time.Time // Injectable for testing
}

// NewStore creates an empty execution store
func NewStore(logger *zap.SugaredLogger) *Store {
	return NewStoreWithClock(logger, time.Now)
}

// NewStoreWithClock creates a store with an injectable clock (for testing)
func NewStoreWithClock(logger *zap.SugaredLogger, now func() time.Time) *Store {
	return &Store{
		records: make(map[string]*Execution),
		logger:  logger,
		now:     now,
	}
}

// Create allocates a fresh execution record in the queued state and
// returns its id. testCaseID may be empty when the execution was not
// launched from a saved test case.
func (s *Store) Create(kind string, params Params, testCaseID string) string {
	id := uuid.NewString()

	if params == nil {
		params = Params{}
	}

	rec := &Execution{
		ID:         id,
		Kind:       kind,
		Status:     StatusQueued,
		CreatedAt:  s.now(),
		Params:     params,
		TestCaseID: testCaseID,
		Logs:       "",
		LogsURL:    fmt.Sprintf("/executions/%s/logs", id),
		Artifacts:  []Artifact{},
	}

	s.mu.Lock()
	s.records[id] = rec
	s.mu.Unlock()

	return id
}

// MarkRunning transitions a record to running and stamps started_at.
// No-op on unknown id.
func (s *Store) MarkRunning(id string, notes string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		s.logger.Warnw("MarkRunning on unknown execution id", "execution_id", id)
		return
	}
	rec.start(s.now(), notes)
}

// MarkResult transitions a record to its terminal state with captured
// logs and artifacts. Logs is always stored as a string; nil artifacts
// become an empty slice. No-op on unknown id.
func (s *Store) MarkResult(id string, ok bool, logs string, artifacts []Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.records[id]
	if !found {
		s.logger.Warnw("MarkResult on unknown execution id",
			"execution_id", id,
			"ok", ok)
		return
	}
	rec.finish(s.now(), ok, logs, artifacts)
}

// Get returns a snapshot of the record, or false if the id is unknown.
func (s *Store) Get(id string) (*Execution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// List returns up to limit record snapshots ordered by creation time
// descending (most recent first).
func (s *Store) List(limit int) []*Execution {
	s.mu.RLock()
	all := make([]*Execution, 0, len(s.records))
	for _, rec := range s.records {
		all = append(all, rec.clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// LogsText returns the current logs for an execution, possibly empty if
// the run has not finished. The second return is false only when the id
// is unknown.
func (s *Store) LogsText(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return "", false
	}
	return rec.Logs, true
}

// Count returns the number of records held in memory
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
