package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/jmoray/symposium/internal/llm"
	"github.com/jmoray/symposium/internal/workspace"
)

const (
	webFetchTimeout  = 30 * time.Second
	maxContentLength = 5 * 1024 * 1024 // 5MB max
	cacheTTL         = 15 * time.Minute
	maxCacheEntries  = 100
)

// cacheEntry represents a cached fetch result
type cacheEntry struct {
	content   string
	title     string
	fetchedAt time.Time
}

// WebFetchTool fetches a URL and converts HTML to markdown
type WebFetchTool struct {
	httpClient *http.Client
	cache      map[string]*cacheEntry
	cacheMu    sync.RWMutex
}

// NewWebFetchTool creates a new web fetch tool
func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{
		httpClient: &http.Client{
			Timeout: webFetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		cache: make(map[string]*cacheEntry),
	}
}

func (t *WebFetchTool) Name() string {
	return "web_fetch"
}

func (t *WebFetchTool) Description() string {
	return "Fetches content from a URL and converts HTML to markdown. Use this to retrieve reference material, papers, and documentation. HTTP URLs are automatically upgraded to HTTPS."
}

func (t *WebFetchTool) Parameters() llm.JSONSchema {
	return llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.JSONProperty{
			"url": {
				Type:        "string",
				Description: "The URL to fetch content from (must be http or https)",
			},
		},
		Required: []string{"url"},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, _ *workspace.Workspace, params map[string]interface{}) (string, error) {
	urlStr, ok := params["url"].(string)
	if !ok || urlStr == "" {
		return "", fmt.Errorf("url parameter is required")
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	// Only allow http and https
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("URL must use http or https scheme")
	}

	// Upgrade HTTP to HTTPS
	if parsedURL.Scheme == "http" {
		parsedURL.Scheme = "https"
		urlStr = parsedURL.String()
	}

	if cached := t.getFromCache(urlStr); cached != nil {
		return renderFetch(cached.title, urlStr, cached.content, true), nil
	}

	content, title, finalURL, err := t.fetchURL(ctx, urlStr)
	if err != nil {
		return "", err
	}

	// A redirect that lands on a different host is surfaced instead of
	// followed silently; the caller decides whether to chase it.
	finalParsedURL, _ := url.Parse(finalURL)
	if finalParsedURL != nil && finalParsedURL.Host != parsedURL.Host {
		return fmt.Sprintf("URL redirects to a different host: %s. Make a new request with the redirect URL.", finalURL), nil
	}

	t.addToCache(urlStr, content, title)

	return renderFetch(title, finalURL, content, false), nil
}

func renderFetch(title, url, content string, cached bool) string {
	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "# %s\n", title)
	}
	fmt.Fprintf(&sb, "URL: %s", url)
	if cached {
		sb.WriteString(" (cached)")
	}
	sb.WriteString("\n\n")
	sb.WriteString(content)
	return sb.String()
}

func (t *WebFetchTool) fetchURL(ctx context.Context, urlStr string) (content, title, finalURL string, err error) {
	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to look like a browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	// Get final URL after redirects
	finalURL = resp.Request.URL.String()

	if resp.ContentLength > maxContentLength {
		return "", "", "", fmt.Errorf("content too large: %d bytes (max %d)", resp.ContentLength, maxContentLength)
	}

	limitedReader := io.LimitReader(resp.Body, maxContentLength)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			return "", "", "", fmt.Errorf("failed to parse HTML: %w", err)
		}

		title = strings.TrimSpace(doc.Find("title").First().Text())

		// Remove script, style, and other non-content elements
		doc.Find("script, style, nav, footer, header, aside, .ads, .advertisement").Remove()

		html, err := doc.Find("body").Html()
		if err != nil {
			html, _ = doc.Html()
		}

		converter := md.NewConverter("", true, nil)
		content, err = converter.ConvertString(html)
		if err != nil {
			// Fall back to plain text
			content = doc.Find("body").Text()
		}

		content = cleanupMarkdown(content)
	} else {
		content = string(body)
	}

	return content, title, finalURL, nil
}

func cleanupMarkdown(content string) string {
	// Collapse runs of blank lines into one
	lines := strings.Split(content, "\n")
	var result []string
	prevEmpty := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		isEmpty := trimmed == ""

		if isEmpty {
			if !prevEmpty {
				result = append(result, "")
			}
			prevEmpty = true
		} else {
			result = append(result, trimmed)
			prevEmpty = false
		}
	}

	return strings.Join(result, "\n")
}

func (t *WebFetchTool) getFromCache(url string) *cacheEntry {
	t.cacheMu.RLock()
	defer t.cacheMu.RUnlock()

	entry, ok := t.cache[url]
	if !ok {
		return nil
	}

	if time.Since(entry.fetchedAt) > cacheTTL {
		return nil
	}

	return entry
}

func (t *WebFetchTool) addToCache(url, content, title string) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()

	// Evict the oldest entry once the cache is full
	if len(t.cache) >= maxCacheEntries {
		var oldestURL string
		var oldestTime time.Time
		for u, entry := range t.cache {
			if oldestURL == "" || entry.fetchedAt.Before(oldestTime) {
				oldestURL = u
				oldestTime = entry.fetchedAt
			}
		}
		if oldestURL != "" {
			delete(t.cache, oldestURL)
		}
	}

	t.cache[url] = &cacheEntry{
		content:   content,
		title:     title,
		fetchedAt: time.Now(),
	}
}
