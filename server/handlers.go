package server

import (
	"net/http"
	"strings"

	"github.com/testforge/testforge/errors"
	"github.com/testforge/testforge/execution"
	"github.com/testforge/testforge/gen"
	"github.com/testforge/testforge/runner"
	"github.com/testforge/testforge/testcase"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var validTestTypes = map[string]bool{
	"unit":         true,
	"rest-assured": true,
	"selenium":     true,
}

var validLanguages = map[string]bool{
	"java":       true,
	"python":     true,
	"javascript": true,
	"typescript": true,
	"csharp":     true,
	"ruby":       true,
	"go":         true,
}

// handleHealth reports service liveness and the default generation model.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":           "UP",
		"provider_default": "ollama",
		"model_default":    s.cfg.Generate.Model,
	})
}

type generatePreviewRequest struct {
	Code     string `json:"code"`
	TestType string `json:"test_type"`
	Language string `json:"language"`
	Model    string `json:"model,omitempty"`
}

// handleGeneratePreview generates a test synchronously and returns the
// sanitized result without persisting anything.
func (s *Server) handleGeneratePreview(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req generatePreviewRequest
	if err := s.readJSON(w, r, &req); err != nil {
		return
	}
	if req.TestType == "" {
		req.TestType = "rest-assured"
	}
	if req.Language == "" {
		req.Language = "java"
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if !validTestTypes[req.TestType] {
		writeError(w, http.StatusBadRequest, "test_type must be one of: unit, rest-assured, selenium")
		return
	}
	if !validLanguages[req.Language] {
		writeError(w, http.StatusBadRequest, "unsupported language: "+req.Language)
		return
	}

	result, err := s.genClient.Generate(r.Context(), gen.Request{
		Code:     req.Code,
		TestType: req.TestType,
		Language: req.Language,
		Model:    req.Model,
	})
	if err != nil {
		if errors.Is(err, errors.ErrServiceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Errorw("Generation failed", "error", err, "language", req.Language, "test_type", req.TestType)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

type createTestCaseRequest struct {
	Code          string `json:"code"`
	GeneratedTest string `json:"generated_test"`
	TestType      string `json:"test_type"`
	Language      string `json:"language"`
	Status        string `json:"status,omitempty"`
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
}

// handleTestCases creates a confirmed test case (POST) or lists saved
// ones newest first (GET).
func (s *Server) handleTestCases(w http.ResponseWriter, r *http.Request) {
	if !requireMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodGet {
		limit := parseIntQueryParam(r, "limit", defaultListLimit, 1, maxListLimit)
		cases, err := s.testCases.List(limit)
		if err != nil {
			s.logger.Errorw("Failed to list test cases", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list test cases")
			return
		}
		writeJSON(w, http.StatusOK, cases)
		return
	}

	var req createTestCaseRequest
	if err := s.readJSON(w, r, &req); err != nil {
		return
	}
	if req.Code == "" || req.GeneratedTest == "" || req.TestType == "" || req.Language == "" {
		writeError(w, http.StatusBadRequest, "code, generated_test, test_type and language are required")
		return
	}

	tc := &testcase.TestCase{
		Code:          req.Code,
		GeneratedTest: req.GeneratedTest,
		TestType:      req.TestType,
		Language:      req.Language,
		Status:        req.Status,
		Provider:      req.Provider,
		Model:         req.Model,
	}
	if err := s.testCases.Create(tc); err != nil {
		s.logger.Errorw("Failed to create test case", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create test case")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": tc.ID})
}

type runTestCaseRequest struct {
	Language string `json:"language,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// handleTestCaseRun starts an async build-and-test run of a saved test
// case. Routed as POST /test-cases/{id}/run.
func (s *Server) handleTestCaseRun(w http.ResponseWriter, r *http.Request) {
	parts := extractPathParts(r.URL.Path, "/test-cases/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "run" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	id := parts[0]
	tc, err := s.testCases.Get(id)
	if err != nil {
		if errors.IsNotFoundError(err) {
			writeError(w, http.StatusNotFound, "Test case not found")
			return
		}
		s.logger.Errorw("Failed to get test case", "error", err, "test_case_id", id)
		writeError(w, http.StatusInternalServerError, "Failed to get test case")
		return
	}

	var req runTestCaseRequest
	if r.ContentLength != 0 {
		if err := s.readJSON(w, r, &req); err != nil {
			return
		}
	}

	language := strings.ToLower(req.Language)
	if language == "" {
		language = strings.ToLower(tc.Language)
	}
	if language == "" {
		language = "java"
	}

	params := execution.Params{
		"language":       language,
		"code":           gen.StripFences(tc.Code),
		"generated_test": gen.StripFences(tc.GeneratedTest),
	}
	if req.Notes != "" {
		params["notes"] = req.Notes
	}

	execID := s.orchestrator.Start(language+"-maven", params, id)
	writeJSON(w, http.StatusAccepted, map[string]string{"execId": execID})
}

type runGenerationRequest struct {
	Code     string `json:"code"`
	TestType string `json:"test_type"`
	Language string `json:"language"`
	Model    string `json:"model,omitempty"`
}

// handleRun starts an async generation whose output is stored as an
// artifact.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req runGenerationRequest
	if err := s.readJSON(w, r, &req); err != nil {
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	execID := s.orchestrator.Start(runner.KindGenerate, execution.Params{
		"code":      req.Code,
		"test_type": req.TestType,
		"language":  req.Language,
		"model":     req.Model,
	}, "")
	writeJSON(w, http.StatusAccepted, map[string]string{"execId": execID})
}

type seleniumRunRequest struct {
	URL string `json:"url"`
}

// handleExecSelenium starts an async remote browser check.
func (s *Server) handleExecSelenium(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req seleniumRunRequest
	if err := s.readJSON(w, r, &req); err != nil {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	execID := s.orchestrator.Start(runner.KindSelenium, execution.Params{"url": req.URL}, "")
	writeJSON(w, http.StatusAccepted, map[string]string{"execId": execID})
}

// handleExecGatling starts an async Gatling load test.
func (s *Server) handleExecGatling(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	execID := s.orchestrator.Start(runner.KindGatling, execution.Params{}, "")
	writeJSON(w, http.StatusAccepted, map[string]string{"execId": execID})
}

// handleExecJMeter starts an async JMeter load test.
func (s *Server) handleExecJMeter(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	execID := s.orchestrator.Start(runner.KindJMeter, execution.Params{}, "")
	writeJSON(w, http.StatusAccepted, map[string]string{"execId": execID})
}

// handleExecutions lists executions newest first.
func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	limit := parseIntQueryParam(r, "limit", defaultListLimit, 1, maxListLimit)
	writeJSON(w, http.StatusOK, s.executions.List(limit))
}

// handleExecution serves an execution's details, its logs as plain
// text, or a rerun request:
//
//	GET  /executions/{id}
//	GET  /executions/{id}/logs
//	POST /executions/{id}/rerun
func (s *Server) handleExecution(w http.ResponseWriter, r *http.Request) {
	parts := extractPathParts(r.URL.Path, "/executions/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	id := parts[0]

	if len(parts) == 2 && parts[1] == "rerun" {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		newID, err := s.orchestrator.Rerun(id)
		if err != nil {
			if errors.IsNotFoundError(err) {
				writeError(w, http.StatusNotFound, "Execution not found")
				return
			}
			s.logger.Errorw("Failed to rerun execution", "error", err, "execution_id", id)
			writeError(w, http.StatusInternalServerError, "Failed to rerun execution")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"execId": newID})
		return
	}

	if len(parts) == 2 && parts[1] == "logs" {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		logs, ok := s.executions.LogsText(id)
		if !ok {
			writeError(w, http.StatusNotFound, "Execution not found")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(logs))
		return
	}

	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	exec, ok := s.executions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Execution not found")
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

// handleArtifact streams a stored artifact.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	parts := extractPathParts(r.URL.Path, "/artifact/")
	if len(parts) != 1 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	id := parts[0]

	path, err := s.artifacts.Path(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Artifact not found")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`"`)
	http.ServeFile(w, r, path)
}
