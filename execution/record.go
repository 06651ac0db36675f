// Package execution tracks the lifecycle of long-running runner
// capabilities: record store, bounded dispatcher, and orchestration.
package execution

import (
	"time"
)

// Status represents the current state of an execution
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// IsValidStatus returns true if the status string is a valid Status
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusQueued, StatusRunning, StatusSuccess, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is a terminal state
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Params carries kind-specific execution parameters, captured verbatim
// at creation and reused unmodified on rerun.
type Params map[string]interface{}

// Artifact describes a single file produced by a run.
// URL is a pointer so absent links marshal as null rather than "".
type Artifact struct {
	Name string  `json:"name"`
	URL  *string `json:"url"`
	Size int64   `json:"size"`
}

// Execution is one tracked run of a runner capability.
//
// Logs is a plain string at all times, empty until the run finishes,
// so consumers never see a null logs field.
type Execution struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Params     Params     `json:"params"`
	TestCaseID string     `json:"test_case_id,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Logs       string     `json:"logs"`
	LogsURL    string     `json:"logs_url"`
	Artifacts  []Artifact `json:"artifacts"`
}

// start marks the execution as running
func (e *Execution) start(now time.Time, notes string) {
	e.Status = StatusRunning
	e.StartedAt = &now
	if notes != "" {
		e.Notes = notes
	}
}

// finish marks the execution as success or failed with captured output
func (e *Execution) finish(now time.Time, ok bool, logs string, artifacts []Artifact) {
	if ok {
		e.Status = StatusSuccess
	} else {
		e.Status = StatusFailed
	}
	e.FinishedAt = &now
	e.Logs = logs
	if artifacts == nil {
		artifacts = []Artifact{}
	}
	e.Artifacts = artifacts
}

// clone returns a deep-enough copy for handing to concurrent readers
func (e *Execution) clone() *Execution {
	cp := *e
	if e.StartedAt != nil {
		t := *e.StartedAt
		cp.StartedAt = &t
	}
	if e.FinishedAt != nil {
		t := *e.FinishedAt
		cp.FinishedAt = &t
	}
	cp.Params = make(Params, len(e.Params))
	for k, v := range e.Params {
		cp.Params[k] = v
	}
	cp.Artifacts = append([]Artifact(nil), e.Artifacts...)
	if cp.Artifacts == nil {
		cp.Artifacts = []Artifact{}
	}
	return &cp
}
