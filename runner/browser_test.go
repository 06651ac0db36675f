package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeWebDriver implements just enough of the WebDriver wire protocol
// for a navigate-and-title run.
func fakeWebDriver(t *testing.T, title string) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/session":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"value": map[string]string{"sessionId": "sess-1"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/session/sess-1/url":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.NotEmpty(t, body["url"])
			w.Write([]byte(`{"value":null}`))
		case r.Method == http.MethodGet && r.URL.Path == "/session/sess-1/title":
			json.NewEncoder(w).Encode(map[string]string{"value": title})
		case r.Method == http.MethodDelete && r.URL.Path == "/session/sess-1":
			w.Write([]byte(`{"value":null}`))
		default:
			t.Fatalf("unexpected webdriver call: %s %s", r.Method, r.URL.Path)
		}
	}))
	return srv, &calls
}

func TestBrowserRunSuccess(t *testing.T) {
	srv, calls := fakeWebDriver(t, "Example Domain")
	defer srv.Close()

	b := NewBrowser(srv.URL, zaptest.NewLogger(t).Sugar())
	result := b.Run(context.Background(), map[string]interface{}{"url": "https://example.org"})

	assert.True(t, result.OK)
	assert.Contains(t, result.Logs, "[SELENIUM] Remote "+srv.URL)
	assert.Contains(t, result.Logs, "[SELENIUM] URL: https://example.org")
	assert.Contains(t, result.Logs, `[SELENIUM] Title: "Example Domain"`)
	assert.Contains(t, result.Logs, "[SELENIUM] SUCCESS")
	assert.Empty(t, result.Artifacts)

	// Session was closed even on success
	assert.Contains(t, *calls, "DELETE /session/sess-1")
}

func TestBrowserRunDefaultURL(t *testing.T) {
	srv, _ := fakeWebDriver(t, "Example Domain")
	defer srv.Close()

	b := NewBrowser(srv.URL, zaptest.NewLogger(t).Sugar())
	result := b.Run(context.Background(), map[string]interface{}{})

	assert.True(t, result.OK)
	assert.Contains(t, result.Logs, "[SELENIUM] URL: https://example.org")
}

func TestBrowserRunSessionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("grid is down"))
	}))
	defer srv.Close()

	b := NewBrowser(srv.URL, zaptest.NewLogger(t).Sugar())
	result := b.Run(context.Background(), map[string]interface{}{"url": "https://example.org"})

	assert.False(t, result.OK)
	assert.Contains(t, result.Logs, "[SELENIUM] ERROR:")
}

func TestBrowserRunUnreachableHub(t *testing.T) {
	b := NewBrowser("http://127.0.0.1:1", zaptest.NewLogger(t).Sugar())
	result := b.Run(context.Background(), map[string]interface{}{"url": "https://example.org"})

	assert.False(t, result.OK)
	assert.Contains(t, result.Logs, "[SELENIUM] ERROR:")
}
