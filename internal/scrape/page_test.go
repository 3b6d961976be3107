package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFetchText_StripsMarkup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
<head><title>Ace Cafe</title><style>body { color: red }</style></head>
<body>
<nav><a href="/">Home</a></nav>
<script>trackVisitor();</script>
<h1>Ace Cafe</h1>
<p>Contact us at info@ace.example &amp; say hi.</p>
<footer>Copyright</footer>
</body></html>`))
	}))
	t.Cleanup(srv.Close)

	text := NewHTTPPageFetcher(time.Second).FetchText(context.Background(), srv.URL)

	assert.Contains(t, text, "Ace Cafe")
	assert.Contains(t, text, "info@ace.example & say hi")
	assert.NotContains(t, text, "trackVisitor")
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "<p>")
}

func TestFetchText_ErrorStatusIsEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	assert.Empty(t, NewHTTPPageFetcher(time.Second).FetchText(context.Background(), srv.URL))
}

func TestFetchText_UnreachableHostIsEmpty(t *testing.T) {
	t.Parallel()

	f := NewHTTPPageFetcher(100 * time.Millisecond)
	assert.Empty(t, f.FetchText(context.Background(), "http://127.0.0.1:1"))
}

func TestFetchText_BadURLIsEmpty(t *testing.T) {
	t.Parallel()

	f := NewHTTPPageFetcher(time.Second)
	assert.Empty(t, f.FetchText(context.Background(), "::notaurl"))
}

func TestStripHTML_CollapsesWhitespace(t *testing.T) {
	t.Parallel()

	got := stripHTML("<div>a</div>    <div>b</div>")
	assert.Equal(t, "a b", got)
}
