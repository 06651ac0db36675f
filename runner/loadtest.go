package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/testforge/testforge/execution"
)

const (
	gatlingImage = "ghcr.io/gatling/gatling"
	jmeterImage  = "justb4/jmeter"
)

// Gatling runs the dockerized Gatling load tester.
type Gatling struct {
	timeout time.Duration
	exec    execCommand
	logger  *zap.SugaredLogger
}

// NewGatling creates a gatling runner with the given execution timeout.
func NewGatling(timeout time.Duration, logger *zap.SugaredLogger) *Gatling {
	return &Gatling{timeout: timeout, exec: runCommand, logger: logger}
}

// Run invokes Gatling in docker. params["simulation"] optionally names
// the simulation class to run.
func (g *Gatling) Run(ctx context.Context, params execution.Params) execution.Result {
	resultsDir, err := os.MkdirTemp("", "gatling-")
	if err != nil {
		return execution.Result{OK: false, Logs: fmt.Sprintf("[GATLING] failed to create results dir: %v\n", err)}
	}
	defer os.RemoveAll(resultsDir)

	args := []string{"run", "--rm",
		"-v", resultsDir + ":/opt/gatling/results",
		gatlingImage,
	}
	if sim := stringParam(params, "simulation"); sim != "" {
		args = append(args, "-s", sim, "-rm", "local")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	logCommand(g.logger, KindGatling, "docker", args...)
	stdout, stderr, runErr := g.exec(ctx, "docker", args...)

	logs := combineOutput(stdout, stderr)
	if ctx.Err() == context.DeadlineExceeded {
		logs += "\n[timeout]"
	}
	if logs == "" {
		logs = "[GATLING] no output"
	}

	return execution.Result{OK: runErr == nil, Logs: logs}
}

// JMeter runs the dockerized JMeter load tester and collects the
// result.jtl sample log as an artifact.
type JMeter struct {
	timeout time.Duration
	exec    execCommand
	logger  *zap.SugaredLogger
}

// NewJMeter creates a jmeter runner with the given execution timeout.
func NewJMeter(timeout time.Duration, logger *zap.SugaredLogger) *JMeter {
	return &JMeter{timeout: timeout, exec: runCommand, logger: logger}
}

// Run invokes JMeter in non-GUI mode against the test plan named by
// params["jmx"], a path on the host.
func (j *JMeter) Run(ctx context.Context, params execution.Params) execution.Result {
	jmx := stringParam(params, "jmx")
	if jmx == "" {
		return execution.Result{OK: false, Logs: "[JMETER] missing or invalid 'jmx' parameter"}
	}
	if info, err := os.Stat(jmx); err != nil || info.IsDir() {
		return execution.Result{OK: false, Logs: "[JMETER] missing or invalid 'jmx' parameter"}
	}

	outDir, err := os.MkdirTemp("", "jmeter-")
	if err != nil {
		return execution.Result{OK: false, Logs: fmt.Sprintf("[JMETER] failed to create output dir: %v\n", err)}
	}
	defer os.RemoveAll(outDir)

	args := []string{"run", "--rm",
		"-v", filepath.Dir(jmx) + ":/test",
		"-v", outDir + ":/out",
		jmeterImage,
		"-n", "-t", "/test/" + filepath.Base(jmx),
		"-l", "/out/result.jtl",
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	logCommand(j.logger, KindJMeter, "docker", args...)
	stdout, stderr, runErr := j.exec(ctx, "docker", args...)

	logs := combineOutput(stdout, stderr)
	if ctx.Err() == context.DeadlineExceeded {
		logs += "\n[timeout]"
	}
	if logs == "" {
		logs = "[JMETER] no output"
	}

	var artifacts []execution.Artifact
	if info, err := os.Stat(filepath.Join(outDir, "result.jtl")); err == nil {
		artifacts = append(artifacts, execution.Artifact{Name: "result.jtl", Size: info.Size()})
	}

	return execution.Result{OK: runErr == nil, Logs: logs, Artifacts: artifacts}
}
