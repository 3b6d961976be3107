package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/fetcher"
	"github.com/sells-group/leadgen-cli/internal/model"
)

type fakeFetcher struct {
	pages [][]model.RawRecord
	err   error
	block chan struct{}
	specs []model.SearchSpec
}

func (f *fakeFetcher) Fetch(_ context.Context, spec model.SearchSpec, _, _ int) ([]model.RawRecord, error) {
	f.specs = append(f.specs, spec)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	return f.pages[0], nil
}

func (f *fakeFetcher) FetchAll(_ context.Context, spec model.SearchSpec, _ int, fn func([]model.RawRecord) error) error {
	f.specs = append(f.specs, spec)
	if f.err != nil {
		return f.err
	}
	for _, page := range f.pages {
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

type fakeNormalizer struct {
	panicOn string
}

func (n *fakeNormalizer) Normalize(_ context.Context, raw model.RawRecord) (model.Lead, bool) {
	name := raw.FirstTag(model.TagName)
	if name != "" && name == n.panicOn {
		panic("normalizer blew up")
	}
	if name == "" {
		return model.Lead{}, false
	}
	return model.Lead{ID: "id-" + name, Name: name}, true
}

type fakeBackfiller struct {
	calls int
}

func (b *fakeBackfiller) Backfill(_ context.Context, lead model.Lead) model.Lead {
	b.calls++
	if lead.Email == "" {
		lead.Email = "found@" + lead.Name
	}
	return lead
}

type fakeDupes struct {
	dupNames map[string]bool
}

func (d *fakeDupes) IsDuplicate(_ context.Context, lead model.Lead) bool {
	return d.dupNames[lead.Name]
}

type memSink struct {
	leads  []model.Lead
	failOn string
}

func (m *memSink) Append(_ context.Context, lead model.Lead) error {
	if lead.Name == m.failOn {
		return errors.New("disk full")
	}
	m.leads = append(m.leads, lead)
	return nil
}

func (m *memSink) ReadAll(context.Context) ([]model.Lead, error) { return m.leads, nil }
func (m *memSink) Close() error                                  { return nil }

func rec(id int64, name string) model.RawRecord {
	tags := map[string]string{}
	if name != "" {
		tags[model.TagName] = name
	}
	return model.RawRecord{Type: "node", ID: id, Tags: tags}
}

func planArea(query string) model.SearchSpec {
	return model.SearchSpec{Kind: model.AreaSearch, EntityHint: "cafe", Location: "reno", RawQuery: query}
}

type harness struct {
	agent *Agent
	fetch *fakeFetcher
	norm  *fakeNormalizer
	back  *fakeBackfiller
	dupes *fakeDupes
	sink  *memSink
}

func newHarness(opts Options) *harness {
	h := &harness{
		fetch: &fakeFetcher{},
		norm:  &fakeNormalizer{},
		back:  &fakeBackfiller{},
		dupes: &fakeDupes{dupNames: map[string]bool{}},
		sink:  &memSink{},
	}
	h.agent = New(planArea, h.fetch, h.norm, h.back, h.dupes, h.sink, opts)
	return h
}

func TestAgent_InitialStatsIdle(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	stats := h.agent.Stats()
	assert.Equal(t, model.RunStatusIdle, stats.Status)
	assert.Nil(t, stats.StartedAt)
}

func TestAgent_Run_WritesAllLeads(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.fetch.pages = [][]model.RawRecord{{rec(1, "Ace Cafe"), rec(2, "Bean Bar"), rec(3, "Cup Co")}}

	require.NoError(t, h.agent.Run(context.Background(), "cafe in reno"))

	stats := h.agent.Stats()
	assert.Equal(t, model.RunStatusDone, stats.Status)
	assert.Equal(t, "cafe in reno", stats.LastQuery)
	assert.Equal(t, 1, stats.PagesProcessed)
	assert.Equal(t, 3, stats.LeadsWritten)
	assert.Equal(t, 0, stats.Errors)
	assert.Len(t, h.sink.leads, 3)
	assert.Equal(t, 3, h.back.calls, "every accepted lead is backfilled")
	require.NotNil(t, stats.StartedAt)
	require.NotNil(t, stats.FinishedAt)
	assert.False(t, stats.FinishedAt.Before(*stats.StartedAt))
}

func TestAgent_Run_SkipsUnnamedRecords(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.fetch.pages = [][]model.RawRecord{{rec(1, "Ace Cafe"), rec(2, ""), rec(3, "Cup Co")}}

	require.NoError(t, h.agent.Run(context.Background(), "cafe in reno"))

	stats := h.agent.Stats()
	assert.Equal(t, 2, stats.LeadsWritten)
	assert.Equal(t, 0, stats.Errors, "a nameless record is not an error")
}

func TestAgent_Run_CountsDuplicates(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.fetch.pages = [][]model.RawRecord{{rec(1, "Ace Cafe"), rec(2, "Bean Bar"), rec(3, "Cup Co")}}
	h.dupes.dupNames["Bean Bar"] = true

	require.NoError(t, h.agent.Run(context.Background(), "cafe in reno"))

	stats := h.agent.Stats()
	assert.Equal(t, model.RunStatusDone, stats.Status)
	assert.Equal(t, 2, stats.LeadsWritten)
	assert.Equal(t, 1, stats.SkippedDuplicates)
	assert.Len(t, h.sink.leads, 2, "duplicates never reach the sink")
}

func TestAgent_Run_SinkFailureIsolatedToRecord(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.fetch.pages = [][]model.RawRecord{{rec(1, "Ace Cafe"), rec(2, "Bean Bar"), rec(3, "Cup Co")}}
	h.sink.failOn = "Bean Bar"

	require.NoError(t, h.agent.Run(context.Background(), "cafe in reno"))

	stats := h.agent.Stats()
	assert.Equal(t, model.RunStatusDone, stats.Status, "a failed append does not abort the run")
	assert.Equal(t, 2, stats.LeadsWritten)
	assert.Equal(t, 1, stats.Errors)
}

func TestAgent_Run_RecordPanicIsolated(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.fetch.pages = [][]model.RawRecord{{rec(1, "Ace Cafe"), rec(2, "Bean Bar"), rec(3, "Cup Co")}}
	h.norm.panicOn = "Bean Bar"

	require.NoError(t, h.agent.Run(context.Background(), "cafe in reno"))

	stats := h.agent.Stats()
	assert.Equal(t, model.RunStatusDone, stats.Status)
	assert.Equal(t, 2, stats.LeadsWritten)
	assert.Equal(t, 1, stats.Errors)
}

func TestAgent_Run_SourceUnavailableEndsInError(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.fetch.err = fetcher.ErrSourceUnavailable

	err := h.agent.Run(context.Background(), "cafe in reno")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetcher.ErrSourceUnavailable))

	stats := h.agent.Stats()
	assert.Equal(t, model.RunStatusError, stats.Status)
	require.NotNil(t, stats.FinishedAt, "error exits still stamp FinishedAt")
	assert.Equal(t, 0, stats.LeadsWritten)
}

func TestAgent_Run_PlanPanicEndsInError(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.agent.plan = func(string) model.SearchSpec { panic("bad plan") }

	err := h.agent.Run(context.Background(), "cafe in reno")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run panic")
	assert.Equal(t, model.RunStatusError, h.agent.Stats().Status)
}

func TestAgent_Run_PaginatedCountsPages(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{Paginate: true, PageSize: 2})
	h.fetch.pages = [][]model.RawRecord{
		{rec(1, "Ace Cafe"), rec(2, "Bean Bar")},
		{rec(3, "Cup Co"), rec(4, "Drip House")},
		{rec(5, "Espresso Hut")},
	}

	require.NoError(t, h.agent.Run(context.Background(), "cafe in reno"))

	stats := h.agent.Stats()
	assert.Equal(t, 3, stats.PagesProcessed)
	assert.Equal(t, 5, stats.LeadsWritten)
}

func TestAgent_SingleActiveRun(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.fetch.block = make(chan struct{})
	h.fetch.pages = [][]model.RawRecord{{rec(1, "Ace Cafe")}}

	handle, err := h.agent.Start("cafe in reno")
	require.NoError(t, err)

	_, err = h.agent.Start("dentist in denver")
	assert.True(t, errors.Is(err, ErrRunActive))
	assert.True(t, errors.Is(h.agent.Run(context.Background(), "dentist in denver"), ErrRunActive))
	assert.Equal(t, model.RunStatusRunning, h.agent.Stats().Status)

	close(h.fetch.block)
	handle.Wait()

	stats := h.agent.Stats()
	assert.Equal(t, model.RunStatusDone, stats.Status)
	assert.Equal(t, "cafe in reno", stats.LastQuery, "rejected runs never touch stats")

	// The guard releases once the run finishes.
	require.NoError(t, h.agent.Run(context.Background(), "dentist in denver"))
}

func TestAgent_NewRunResetsStats(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.fetch.pages = [][]model.RawRecord{{rec(1, "Ace Cafe"), rec(2, "Bean Bar")}}
	require.NoError(t, h.agent.Run(context.Background(), "cafe in reno"))
	require.Equal(t, 2, h.agent.Stats().LeadsWritten)

	h.fetch.pages = [][]model.RawRecord{{rec(3, "Cup Co")}}
	require.NoError(t, h.agent.Run(context.Background(), "cafe in sparks"))

	stats := h.agent.Stats()
	assert.Equal(t, 1, stats.LeadsWritten, "counters start from zero each run")
	assert.Equal(t, "cafe in sparks", stats.LastQuery)
}

func TestAgent_StartRunsInBackground(t *testing.T) {
	t.Parallel()

	h := newHarness(Options{})
	h.fetch.pages = [][]model.RawRecord{{rec(1, "Ace Cafe")}}

	handle, err := h.agent.Start("cafe in reno")
	require.NoError(t, err)

	select {
	case <-handle.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
	assert.Equal(t, model.RunStatusDone, h.agent.Stats().Status)
	assert.Len(t, h.sink.leads, 1)
}
