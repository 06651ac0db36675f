package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/testforge/testforge/artifact"
	"github.com/testforge/testforge/execution"
	"github.com/testforge/testforge/gen"
)

// Generate runs an LLM test generation as a tracked execution. The
// generated test is persisted as a .txt artifact so it can be fetched
// after the execution completes.
type Generate struct {
	client    gen.Client
	artifacts *artifact.Store
	logger    *zap.SugaredLogger
}

// NewGenerate creates a generation runner.
func NewGenerate(client gen.Client, artifacts *artifact.Store, logger *zap.SugaredLogger) *Generate {
	return &Generate{client: client, artifacts: artifacts, logger: logger}
}

// Run generates a test for params["code"] and stores the result.
func (g *Generate) Run(ctx context.Context, params execution.Params) execution.Result {
	req := gen.Request{
		Code:     stringParam(params, "code"),
		TestType: stringParam(params, "test_type"),
		Language: stringParam(params, "language"),
		Model:    stringParam(params, "model"),
	}
	if req.Code == "" {
		return execution.Result{OK: false, Logs: "missing 'code' parameter"}
	}

	generated, err := g.client.Generate(ctx, req)
	if err != nil {
		return execution.Result{OK: false, Logs: fmt.Sprintf("generation failed: %v", err)}
	}

	artifactID, err := g.artifacts.SaveBytes([]byte(generated), ".txt")
	if err != nil {
		return execution.Result{OK: false, Logs: fmt.Sprintf("failed to save artifact: %v", err)}
	}

	g.logger.Infow("generation complete",
		"artifact_id", artifactID,
		"generated_len", len(generated))

	url := "/artifact/" + artifactID
	return execution.Result{
		OK:   true,
		Logs: fmt.Sprintf("generated %d characters, artifact %s", len(generated), artifactID),
		Artifacts: []execution.Artifact{
			{Name: artifactID, URL: &url, Size: int64(len(generated))},
		},
	}
}
