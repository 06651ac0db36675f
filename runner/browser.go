package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/testforge/testforge/errors"
	"github.com/testforge/testforge/execution"
)

const defaultBrowserTarget = "https://example.org"

// Browser drives a remote WebDriver endpoint (a Selenium grid or a
// standalone chromedriver) over its HTTP JSON wire protocol. One run
// opens a session, navigates to the target URL, reads the page title,
// and closes the session.
type Browser struct {
	remoteURL  string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewBrowser creates a browser runner against the given WebDriver hub URL.
func NewBrowser(remoteURL string, logger *zap.SugaredLogger) *Browser {
	return &Browser{
		remoteURL: strings.TrimRight(remoteURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type sessionRequest struct {
	Capabilities struct {
		AlwaysMatch map[string]interface{} `json:"alwaysMatch"`
	} `json:"capabilities"`
}

type sessionResponse struct {
	Value struct {
		SessionID string `json:"sessionId"`
	} `json:"value"`
}

type titleResponse struct {
	Value string `json:"value"`
}

// Run executes one navigate-and-title check. The target URL comes from
// params["url"].
func (b *Browser) Run(ctx context.Context, params execution.Params) execution.Result {
	url := stringParam(params, "url")
	if url == "" {
		url = defaultBrowserTarget
	}

	sessionID, err := b.createSession(ctx)
	if err != nil {
		return execution.Result{OK: false, Logs: fmt.Sprintf("[SELENIUM] ERROR: %v\n", err)}
	}
	defer b.deleteSession(sessionID)

	if err := b.navigate(ctx, sessionID, url); err != nil {
		return execution.Result{OK: false, Logs: fmt.Sprintf("[SELENIUM] ERROR: %v\n", err)}
	}

	title, err := b.title(ctx, sessionID)
	if err != nil {
		return execution.Result{OK: false, Logs: fmt.Sprintf("[SELENIUM] ERROR: %v\n", err)}
	}

	logs := strings.Join([]string{
		fmt.Sprintf("[SELENIUM] Remote %s", b.remoteURL),
		fmt.Sprintf("[SELENIUM] URL: %s", url),
		fmt.Sprintf("[SELENIUM] Title: %q", title),
		"[SELENIUM] SUCCESS",
	}, "\n") + "\n"

	return execution.Result{OK: true, Logs: logs}
}

func (b *Browser) createSession(ctx context.Context) (string, error) {
	var req sessionRequest
	req.Capabilities.AlwaysMatch = map[string]interface{}{"browserName": "chrome"}

	var resp sessionResponse
	if err := b.do(ctx, http.MethodPost, "/session", req, &resp); err != nil {
		return "", errors.Wrap(err, "failed to create webdriver session")
	}
	if resp.Value.SessionID == "" {
		return "", errors.New("webdriver returned an empty session id")
	}
	return resp.Value.SessionID, nil
}

func (b *Browser) navigate(ctx context.Context, sessionID, url string) error {
	body := map[string]string{"url": url}
	if err := b.do(ctx, http.MethodPost, "/session/"+sessionID+"/url", body, nil); err != nil {
		return errors.Wrapf(err, "failed to navigate to %s", url)
	}
	return nil
}

func (b *Browser) title(ctx context.Context, sessionID string) (string, error) {
	var resp titleResponse
	if err := b.do(ctx, http.MethodGet, "/session/"+sessionID+"/title", nil, &resp); err != nil {
		return "", errors.Wrap(err, "failed to read page title")
	}
	return resp.Value, nil
}

// deleteSession is best effort, run from a defer with its own context.
func (b *Browser) deleteSession(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.do(ctx, http.MethodDelete, "/session/"+sessionID, nil, nil); err != nil {
		b.logger.Warnw("failed to close webdriver session", "session_id", sessionID, "error", err)
	}
}

func (b *Browser) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal webdriver request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.remoteURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "failed to create webdriver request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return errors.Newf("webdriver returned status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "failed to decode webdriver response")
		}
	}
	return nil
}
