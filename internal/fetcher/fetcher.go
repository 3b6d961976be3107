// Package fetcher executes structured search requests against the
// Overpass API, with retries, a degraded fallback query shape, and
// offset-based pagination.
package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/overpass"
)

// ErrSourceUnavailable reports that the geo-data source could not be
// queried after retries and the degraded fallback.
var ErrSourceUnavailable = eris.New("fetcher: source unavailable")

// Fetcher runs SearchSpecs against Overpass.
type Fetcher struct {
	client overpass.Client
	retry  resilience.RetryConfig
}

// New creates a Fetcher with the given retry configuration. A zero
// RetryConfig gets the default 3-attempt exponential backoff.
func New(client overpass.Client, retry resilience.RetryConfig) *Fetcher {
	if retry.MaxAttempts == 0 {
		retry = resilience.DefaultRetryConfig()
	}
	return &Fetcher{client: client, retry: retry}
}

// Fetch returns one page of raw records for spec. Offset is emulated
// client-side: Overpass QL has no native offset, so the query requests
// offset+limit elements and the page is sliced out locally. An empty
// result signals the end of pagination.
func (f *Fetcher) Fetch(ctx context.Context, spec model.SearchSpec, limit, offset int) ([]model.RawRecord, error) {
	if limit <= 0 {
		return nil, eris.Errorf("fetcher: limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return nil, eris.Errorf("fetcher: offset must not be negative, got %d", offset)
	}

	query := buildQuery(spec, offset+limit)

	resp, err := f.execute(ctx, query)
	if err != nil {
		if !resilience.IsTransient(err) {
			// Malformed responses and other permanent failures surface
			// immediately; a retry or fallback would not help.
			return nil, eris.Wrap(ErrSourceUnavailable, err.Error())
		}

		// Retries exhausted. For an area search, degrade once to a plain
		// name query over the raw text before giving up.
		if spec.Kind == model.AreaSearch {
			zap.L().Warn("fetcher: area search exhausted retries, trying name fallback",
				zap.String("query", spec.RawQuery),
				zap.Error(err),
			)
			resp, err = f.client.Execute(ctx, buildFallbackQuery(spec.RawQuery, offset+limit))
		}
		if err != nil {
			return nil, eris.Wrap(ErrSourceUnavailable, err.Error())
		}
	}

	if resp.Remark != "" {
		zap.L().Warn("fetcher: overpass remark", zap.String("remark", resp.Remark))
	}

	return page(resp.Elements, limit, offset), nil
}

// FetchAll fetches pages of pageSize records, invoking fn for each
// non-empty page, until the source is drained. A short page ends the
// iteration; an error from fn stops it immediately.
func (f *Fetcher) FetchAll(ctx context.Context, spec model.SearchSpec, pageSize int, fn func(page []model.RawRecord) error) error {
	for offset := 0; ; offset += pageSize {
		records, err := f.Fetch(ctx, spec, pageSize, offset)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if err := fn(records); err != nil {
			return err
		}
		if len(records) < pageSize {
			return nil
		}
	}
}

func (f *Fetcher) execute(ctx context.Context, query string) (*overpass.Response, error) {
	cfg := f.retry
	cfg.OnRetry = resilience.RetryLogger("overpass", "execute")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*overpass.Response, error) {
		return f.client.Execute(ctx, query)
	})
}

func page(elements []overpass.Element, limit, offset int) []model.RawRecord {
	if offset >= len(elements) {
		return nil
	}
	end := offset + limit
	if end > len(elements) {
		end = len(elements)
	}

	records := make([]model.RawRecord, 0, end-offset)
	for _, el := range elements[offset:end] {
		records = append(records, model.RawRecord{
			Type: el.Type,
			ID:   el.ID,
			Tags: el.Tags,
		})
	}
	return records
}

// buildQuery renders a SearchSpec as Overpass QL. Area searches with a
// resolved entity hint scope by administrative area and amenity; anything
// else is a case-insensitive name match across element types.
func buildQuery(spec model.SearchSpec, n int) string {
	if spec.Kind == model.AreaSearch && spec.EntityHint != "" {
		location := escapeQL(spec.Location)
		amenity := escapeQL(spec.EntityHint)
		return fmt.Sprintf(`[out:json][timeout:60];
area["name"~"%s", i]["admin_level"~"[2-8]"]->.searchArea;
(
  node["amenity"="%s"](area.searchArea);
  way["amenity"="%s"](area.searchArea);
);
out center %d;`, location, amenity, amenity, n)
	}

	q := escapeQL(spec.RawQuery)
	return fmt.Sprintf(`[out:json][timeout:60];
(
  node["name"~"%s", i];
  way["name"~"%s", i];
  relation["name"~"%s", i];
);
out center %d;`, q, q, q, n)
}

// buildFallbackQuery is the degraded shape used after an area search has
// exhausted its retries: a shorter-timeout name match over the raw query.
func buildFallbackQuery(rawQuery string, n int) string {
	q := escapeQL(rawQuery)
	return fmt.Sprintf(`[out:json][timeout:30];
(
  node["name"~"%s", i];
  way["name"~"%s", i];
);
out center %d;`, q, q, n)
}

func escapeQL(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
