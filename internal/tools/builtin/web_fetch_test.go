package builtin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport serves canned responses in-process so fetches never
// touch the network and any host name can be simulated.
type scriptedTransport struct {
	handler  http.HandlerFunc
	err      error
	requests []*http.Request
}

func (st *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	st.requests = append(st.requests, req)
	if st.err != nil {
		return nil, st.err
	}
	rec := httptest.NewRecorder()
	st.handler(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func newScriptedFetchTool(handler http.HandlerFunc) (*WebFetchTool, *scriptedTransport) {
	tool := NewWebFetchTool()
	st := &scriptedTransport{handler: handler}
	tool.httpClient.Transport = st
	return tool, st
}

func serveHTML(doc string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(doc))
	}
}

func TestWebFetchRequiresURL(t *testing.T) {
	tool, st := newScriptedFetchTool(nil)

	_, err := tool.Execute(context.Background(), nil, map[string]interface{}{})
	assert.EqualError(t, err, "url parameter is required")

	_, err = tool.Execute(context.Background(), nil, map[string]interface{}{"url": ""})
	assert.EqualError(t, err, "url parameter is required")
	assert.Empty(t, st.requests)
}

func TestWebFetchRejectsNonHTTPScheme(t *testing.T) {
	tool, st := newScriptedFetchTool(nil)

	_, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "ftp://archive.example.com/data.csv",
	})
	assert.EqualError(t, err, "URL must use http or https scheme")
	assert.Empty(t, st.requests)
}

func TestWebFetchRejectsUnparsableURL(t *testing.T) {
	tool, _ := newScriptedFetchTool(nil)

	_, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "http://[::1",
	})
	assert.ErrorContains(t, err, "invalid URL")
}

func TestWebFetchConvertsHTMLToMarkdown(t *testing.T) {
	page := `<html>
<head><title>Momentum Guide</title><style>p { color: red }</style></head>
<body>
<script>alert("tracking")</script>
<nav>site menu</nav>
<h1>Signal Construction</h1>
<p>Rank assets by <strong>trailing return</strong> before rebalancing.</p>
</body>
</html>`
	tool, st := newScriptedFetchTool(serveHTML(page))

	out, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "https://docs.example.com/guide",
	})
	require.NoError(t, err)

	require.Len(t, st.requests, 1)
	req := st.requests[0]
	assert.Contains(t, req.Header.Get("User-Agent"), "Mozilla/5.0")
	assert.Contains(t, req.Header.Get("Accept"), "text/html")

	assert.True(t, strings.HasPrefix(out, "# Momentum Guide\nURL: https://docs.example.com/guide\n\n"), out)
	assert.NotContains(t, out, "(cached)")
	assert.Contains(t, out, "# Signal Construction")
	assert.Contains(t, out, "**trailing return**")
	assert.NotContains(t, out, "alert", "scripts are stripped")
	assert.NotContains(t, out, "site menu", "navigation chrome is stripped")
	assert.NotContains(t, out, "color: red", "styles are stripped")
}

func TestWebFetchUpgradesHTTPScheme(t *testing.T) {
	tool, st := newScriptedFetchTool(serveHTML("<html><head><title>T</title></head><body><p>ok</p></body></html>"))

	out, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "http://docs.example.com/guide",
	})
	require.NoError(t, err)

	require.Len(t, st.requests, 1)
	assert.Equal(t, "https", st.requests[0].URL.Scheme)
	assert.Contains(t, out, "URL: https://docs.example.com/guide")
}

func TestWebFetchCachesRepeatFetches(t *testing.T) {
	tool, st := newScriptedFetchTool(serveHTML("<html><head><title>T</title></head><body><p>body text</p></body></html>"))
	params := map[string]interface{}{"url": "https://docs.example.com/guide"}

	first, err := tool.Execute(context.Background(), nil, params)
	require.NoError(t, err)
	assert.NotContains(t, first, "(cached)")

	second, err := tool.Execute(context.Background(), nil, params)
	require.NoError(t, err)
	assert.Contains(t, second, "URL: https://docs.example.com/guide (cached)")
	assert.Contains(t, second, "body text")
	assert.Len(t, st.requests, 1, "second fetch is served from cache")
}

func TestWebFetchNonHTMLPassthrough(t *testing.T) {
	tool, _ := newScriptedFetchTool(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	out, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "https://api.example.com/health",
	})
	require.NoError(t, err)
	assert.Equal(t, "URL: https://api.example.com/health\n\n{\"status\":\"ok\"}", out)
}

func TestWebFetchHTTPStatusError(t *testing.T) {
	tool, _ := newScriptedFetchTool(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	_, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "https://docs.example.com/missing",
	})
	assert.ErrorContains(t, err, "HTTP error: 404")
}

func TestWebFetchRejectsOversizedContent(t *testing.T) {
	tool, _ := newScriptedFetchTool(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Length", strconv.Itoa(6*1024*1024))
		w.Write([]byte("<html></html>"))
	})

	_, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "https://docs.example.com/huge",
	})
	assert.ErrorContains(t, err, "content too large")
}

func TestWebFetchSurfacesCrossHostRedirect(t *testing.T) {
	tool, st := newScriptedFetchTool(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Host == "docs.example.com" {
			http.Redirect(w, r, "https://mirror.example.net/guide", http.StatusFound)
			return
		}
		serveHTML("<html><head><title>Mirror</title></head><body><p>mirrored</p></body></html>")(w, r)
	})

	out, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "https://docs.example.com/guide",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"URL redirects to a different host: https://mirror.example.net/guide. Make a new request with the redirect URL.",
		out)
	assert.Len(t, st.requests, 2)

	// The cross-host result is not cached; asking again re-fetches.
	_, err = tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "https://docs.example.com/guide",
	})
	require.NoError(t, err)
	assert.Len(t, st.requests, 4)
}

func TestWebFetchFollowsSameHostRedirect(t *testing.T) {
	tool, st := newScriptedFetchTool(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "https://docs.example.com/new", http.StatusMovedPermanently)
			return
		}
		serveHTML("<html><head><title>Moved</title></head><body><p>new home</p></body></html>")(w, r)
	})

	out, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "https://docs.example.com/old",
	})
	require.NoError(t, err)

	assert.Len(t, st.requests, 2)
	assert.Contains(t, out, "URL: https://docs.example.com/new")
	assert.Contains(t, out, "new home")
}

func TestWebFetchTransportFailure(t *testing.T) {
	tool := NewWebFetchTool()
	tool.httpClient.Transport = &scriptedTransport{err: errors.New("connection refused")}

	_, err := tool.Execute(context.Background(), nil, map[string]interface{}{
		"url": "https://unreachable.example.com/",
	})
	assert.ErrorContains(t, err, "failed to fetch URL")
}
