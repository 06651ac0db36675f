// Package runner implements the execution kinds the service can dispatch:
// remote browser checks, dockerized load tests, and Maven builds of
// generated Java tests.
package runner

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/testforge/testforge/am"
	"github.com/testforge/testforge/artifact"
	"github.com/testforge/testforge/execution"
	"github.com/testforge/testforge/gen"
)

// Kind names registered with the orchestrator.
const (
	KindSelenium  = "selenium"
	KindGatling   = "gatling"
	KindJMeter    = "jmeter"
	KindJavaMaven = "java-maven"
	KindGenerate  = "generate"
)

// RegisterAll wires every runner kind into the registry.
func RegisterAll(reg *execution.Registry, cfg *am.RunnersConfig, client gen.Client, artifacts *artifact.Store, logger *zap.SugaredLogger) {
	loadTimeout := time.Duration(cfg.LoadTestTimeoutSec) * time.Second
	mavenTimeout := time.Duration(cfg.MavenTimeoutSec) * time.Second

	reg.Register(KindSelenium, NewBrowser(cfg.SeleniumRemoteURL, logger).Run)
	reg.Register(KindGatling, NewGatling(loadTimeout, logger).Run)
	reg.Register(KindJMeter, NewJMeter(loadTimeout, logger).Run)
	reg.Register(KindJavaMaven, NewMaven(mavenTimeout, logger).Run)
	reg.Register(KindGenerate, NewGenerate(client, artifacts, logger).Run)
}

// execCommand runs a command and returns stdout, stderr, and the exit error.
// Injectable so tests can avoid docker.
type execCommand func(ctx context.Context, name string, args ...string) (string, string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func logCommand(logger *zap.SugaredLogger, label string, name string, args ...string) {
	logger.Infow("running command",
		"runner", label,
		"command", shellquote.Join(append([]string{name}, args...)...))
}

// combineOutput joins stdout and stderr the way operators expect to read
// them in execution logs.
func combineOutput(stdout, stderr string) string {
	logs := stdout
	if stderr != "" {
		logs += "\n--- STDERR ---\n" + stderr
	}
	return logs
}

func stringParam(params execution.Params, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
