// Package scrape fetches a web page and reduces it to visible plain text.
// It is strictly best-effort: callers get an empty string on any failure.
package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PageFetcher returns the visible text of a URL. Never fails: any fetch or
// parse problem yields "".
type PageFetcher interface {
	FetchText(ctx context.Context, url string) string
}

// HTTPPageFetcher fetches pages via net/http and strips markup locally.
type HTTPPageFetcher struct {
	client *http.Client
}

// NewHTTPPageFetcher creates a fetcher with bounded timeouts so a slow
// site can never hang a run.
func NewHTTPPageFetcher(timeout time.Duration) *HTTPPageFetcher {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &HTTPPageFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
			},
		},
	}
}

// FetchText fetches url and returns its plain text, or "" on any failure.
func (f *HTTPPageFetcher) FetchText(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; LeadgenBot/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("scrape: fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return ""
	}

	return stripHTML(string(body))
}

// stripHTML removes scripts/styles/nav/footer, strips tags, decodes common
// entities, and collapses whitespace.
func stripHTML(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	tagRe := regexp.MustCompile(`<[^>]+>`)
	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	nlRe := regexp.MustCompile(`\n{3,}`)
	html = nlRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
