package prepare_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tunguska/internal/accessor"
	"tunguska/internal/accessor/registry"
	"tunguska/internal/badness"
	"tunguska/internal/config"
	"tunguska/internal/export"
	"tunguska/internal/failure"
	"tunguska/internal/ledger"
	"tunguska/internal/logging"
	"tunguska/internal/metrics"
	"tunguska/internal/prepare"
	"tunguska/internal/seismic"
	"tunguska/internal/testsupport"
)

type captureExporter struct {
	name     string
	err      error
	datasets []*export.Dataset
}

func (c *captureExporter) Name() string { return c.name }

func (c *captureExporter) Export(_ context.Context, ds *export.Dataset) (export.Result, error) {
	c.datasets = append(c.datasets, ds)
	if c.err != nil {
		return export.Result{}, c.err
	}
	return export.Result{Stations: len(ds.Stations), Traces: len(ds.Traces)}, nil
}

func (c *captureExporter) last(t *testing.T) *export.Dataset {
	t.Helper()
	if len(c.datasets) == 0 {
		t.Fatal("exporter was not called")
	}
	return c.datasets[len(c.datasets)-1]
}

type recordHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordHandler) WithGroup(string) slog.Handler { return h }

func (h *recordHandler) countEventType(eventType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == logging.FieldEventType && a.Value.String() == eventType {
				n++
				return false
			}
			return true
		})
	}
	return n
}

func opener(acc accessor.Accessor) prepare.Opener {
	return func(registry.Options) (accessor.Accessor, error) { return acc, nil }
}

func shallowEvent(name string) seismic.Event {
	ev := testsupport.NewEvent(name)
	ev.Depth = 0
	return ev
}

func traceIDs(traces []*seismic.Trace) []string {
	out := make([]string, 0, len(traces))
	for _, tr := range traces {
		out = append(out, tr.NSLC().String())
	}
	return out
}

func newPipeline(t *testing.T, cfg *config.Config, opts prepare.Options) *prepare.Pipeline {
	t.Helper()
	p, err := prepare.New(cfg, opts)
	if err != nil {
		t.Fatalf("prepare.New: %v", err)
	}
	return p
}

func TestRunKeepsOnlyStationsInsideDistanceRange(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDistance(15e3, 25e3))
	near := testsupport.StationAt("XX", "AAA", "", 10e3, "BHZ", "BHN")
	mid := testsupport.StationAt("XX", "BBB", "", 20e3, "BHZ", "BHN")
	far := testsupport.StationAt("XX", "CCC", "", 30e3, "BHZ", "BHN")
	acc := &testsupport.Accessor{
		EventList:   []seismic.Event{shallowEvent("origin")},
		StationList: []*seismic.Station{near, mid, far},
	}
	for _, st := range acc.StationList {
		for _, ch := range []string{"BHZ", "BHN"} {
			acc.Displacement = append(acc.Displacement, testsupport.SineTrace(st, ch, testsupport.OriginTime-100, 400))
		}
	}

	handler := &recordHandler{}
	exp := &captureExporter{name: "capture"}
	rec := metrics.New()
	p := newPipeline(t, cfg, prepare.Options{
		Logger:    slog.New(handler),
		Opener:    opener(acc),
		Exporters: []export.Exporter{exp},
		Metrics:   rec,
	})

	summary, err := p.Run(context.Background(), []string{"ev1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	ds := exp.last(t)
	if diff := cmp.Diff([]string{"XX.BBB..BHZ", "XX.BBB..BHN"}, traceIDs(ds.Traces)); diff != "" {
		t.Fatalf("accepted traces mismatch (-want +got):\n%s", diff)
	}
	if ds.Event.Name != "ev1" {
		t.Fatalf("event should be renamed to ev1, got %q", ds.Event.Name)
	}
	if got := handler.countEventType("distance_rejected"); got != 2 {
		t.Fatalf("expected one distance report per rejected station, got %d", got)
	}

	ev := summary.Events[0]
	if ev.Status != ledger.StatusCompleted || ev.Accepted != 2 || ev.Rejected != 4 {
		t.Fatalf("unexpected summary %+v", ev)
	}
	if diff := cmp.Diff(map[string]int{"BHZ": 1, "BHN": 1}, ev.Tally); diff != "" {
		t.Fatalf("tally mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"capture"}, ev.Exporters); diff != "" {
		t.Fatalf("exporters mismatch (-want +got):\n%s", diff)
	}
}

func TestRunWithoutDistanceBoundsAcceptsEveryStation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	acc := &testsupport.Accessor{EventList: []seismic.Event{shallowEvent("ev")}}
	for i, code := range []string{"AAA", "BBB", "CCC"} {
		st := testsupport.StationAt("XX", code, "", float64(i+1)*10e3)
		acc.StationList = append(acc.StationList, st)
		acc.Displacement = append(acc.Displacement, testsupport.SineTrace(st, "BHZ", testsupport.OriginTime, 50))
	}
	handler := &recordHandler{}
	exp := &captureExporter{name: "capture"}
	p := newPipeline(t, cfg, prepare.Options{Logger: slog.New(handler), Opener: opener(acc), Exporters: []export.Exporter{exp}})

	summary, err := p.Run(context.Background(), []string{"ev"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"XX.AAA..BHZ", "XX.BBB..BHZ", "XX.CCC..BHZ"}
	if diff := cmp.Diff(want, traceIDs(exp.last(t).Traces)); diff != "" {
		t.Fatalf("accepted traces mismatch (-want +got):\n%s", diff)
	}
	if summary.Events[0].Rejected != 0 {
		t.Fatalf("expected no rejections, got %+v", summary.Events[0])
	}
	if got := handler.countEventType("distance_rejected"); got != 0 {
		t.Fatalf("expected no distance reports, got %d", got)
	}
}

func TestRunRejectsTraceEndingBeforeArrival(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithVelocityPhase("P", 5000),
		testsupport.WithCheckSpan("P"),
	)
	short := testsupport.StationAt("XX", "AAA", "", 20e3)
	long := testsupport.StationAt("XX", "BBB", "", 20e3)
	acc := &testsupport.Accessor{
		EventList:   []seismic.Event{shallowEvent("ev")},
		StationList: []*seismic.Station{short, long},
		Displacement: []*seismic.Trace{
			// P arrives 4 s after origin; this trace ends 1 s earlier.
			testsupport.SineTrace(short, "BHZ", testsupport.OriginTime-100, 104),
			testsupport.SineTrace(long, "BHZ", testsupport.OriginTime-100, 200),
		},
	}
	exp := &captureExporter{name: "capture"}
	p := newPipeline(t, cfg, prepare.Options{Opener: opener(acc), Exporters: []export.Exporter{exp}})

	if _, err := p.Run(context.Background(), []string{"ev"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"XX.BBB..BHZ"}, traceIDs(exp.last(t).Traces)); diff != "" {
		t.Fatalf("accepted traces mismatch (-want +got):\n%s", diff)
	}
	if got := acc.Problems().Count("gappy"); got != 1 {
		t.Fatalf("expected one gappy problem, got %d", got)
	}
}

func TestRunCropsAcceptedTraces(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithVelocityPhase("P", 5000),
		testsupport.WithCheckSpan("P"),
		testsupport.WithCutSpan("P-10", "P+20"),
	)
	st := testsupport.StationAt("XX", "AAA", "", 20e3)
	acc := &testsupport.Accessor{
		EventList:    []seismic.Event{shallowEvent("ev")},
		StationList:  []*seismic.Station{st},
		Displacement: []*seismic.Trace{testsupport.SineTrace(st, "BHZ", testsupport.OriginTime-100, 300)},
	}
	exp := &captureExporter{name: "capture"}
	p := newPipeline(t, cfg, prepare.Options{Opener: opener(acc), Exporters: []export.Exporter{exp}})

	if _, err := p.Run(context.Background(), []string{"ev"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	traces := exp.last(t).Traces
	if len(traces) != 1 {
		t.Fatalf("expected one trace, got %d", len(traces))
	}
	tr := traces[0]
	if tr.TMin != testsupport.OriginTime-6 || len(tr.Samples) != 31 {
		t.Fatalf("unexpected crop: tmin=%v n=%d", tr.TMin-testsupport.OriginTime, len(tr.Samples))
	}
}

func TestRunRecordsTracesWithoutStation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProblemsFile())
	known := testsupport.StationAt("XX", "AAA", "", 20e3)
	orphan := testsupport.StationAt("YY", "ZZZ", "", 20e3)
	acc := &testsupport.Accessor{
		EventList:   []seismic.Event{shallowEvent("ev")},
		StationList: []*seismic.Station{known},
		Displacement: []*seismic.Trace{
			testsupport.SineTrace(known, "BHZ", testsupport.OriginTime, 50),
			testsupport.SineTrace(orphan, "BHZ", testsupport.OriginTime, 50),
		},
	}
	exp := &captureExporter{name: "capture"}
	p := newPipeline(t, cfg, prepare.Options{Opener: opener(acc), Exporters: []export.Exporter{exp}})

	summary, err := p.Run(context.Background(), []string{"ev"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Events[0].Rejected != 1 || summary.Events[0].Accepted != 1 {
		t.Fatalf("unexpected summary %+v", summary.Events[0])
	}
	data, err := os.ReadFile(filepath.Join(testsupport.BaseDir(cfg), "problems", "ev.txt"))
	if err != nil {
		t.Fatalf("read problems: %v", err)
	}
	if !strings.HasPrefix(string(data), "nostation YY.ZZZ..BHZ.") {
		t.Fatalf("unexpected problems file:\n%s", data)
	}
}

func TestRunDeduplicatesStations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	primary := testsupport.StationAt("XX", "AAA", "", 20e3)
	secondary := testsupport.StationAt("XX", "AAA", "10", 20e3)
	other := testsupport.StationAt("XX", "BBB", "A", 25e3)
	acc := &testsupport.Accessor{
		EventList:   []seismic.Event{shallowEvent("ev")},
		StationList: []*seismic.Station{secondary, other, primary},
	}
	exp := &captureExporter{name: "capture"}
	p := newPipeline(t, cfg, prepare.Options{Opener: opener(acc), Exporters: []export.Exporter{exp}})

	summary, err := p.Run(context.Background(), []string{"ev"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var got []string
	for nsl := range exp.last(t).Stations {
		got = append(got, nsl.String())
	}
	if len(got) != 2 || summary.Events[0].Stations != 2 {
		t.Fatalf("expected two stations after dedup, got %v", got)
	}
	if _, ok := exp.last(t).Stations[primary.NSL()]; !ok {
		t.Fatalf("expected %s to survive dedup, got %v", primary.NSL(), got)
	}
}

func TestRunSkipsMissingVolumeAndEmptyMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exp := &captureExporter{name: "capture"}
	p := newPipeline(t, cfg, prepare.Options{Exporters: []export.Exporter{exp}})

	summary, err := p.Run(context.Background(), []string{"missing"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Events[0].Status != ledger.StatusSkipped {
		t.Fatalf("expected skipped, got %+v", summary.Events[0])
	}

	empty := &testsupport.Accessor{}
	p = newPipeline(t, cfg, prepare.Options{Opener: opener(empty), Exporters: []export.Exporter{exp}})
	summary, err = p.Run(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Count(ledger.StatusSkipped) != 2 {
		t.Fatalf("expected both events skipped, got %+v", summary.Events)
	}
	if len(exp.datasets) != 0 {
		t.Fatalf("skipped events must not be exported")
	}
}

func TestRunContinuesAfterExporterFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.StationAt("XX", "AAA", "", 20e3)
	acc := &testsupport.Accessor{
		EventList:    []seismic.Event{shallowEvent("ev")},
		StationList:  []*seismic.Station{st},
		Displacement: []*seismic.Trace{testsupport.SineTrace(st, "BHZ", testsupport.OriginTime, 50)},
	}
	broken := &captureExporter{name: "broken", err: export.Wrap("broken", "write", errors.New("disk full"))}
	good := &captureExporter{name: "good"}
	store := testsupport.MustOpenLedger(t, cfg)
	p := newPipeline(t, cfg, prepare.Options{
		Opener:    opener(acc),
		Exporters: []export.Exporter{broken, good},
		Ledger:    store,
	})

	summary, err := p.Run(context.Background(), []string{"ev1", "ev2"})
	if err == nil || !errors.Is(err, failure.ErrExport) {
		t.Fatalf("expected joined export error, got %v", err)
	}
	if len(summary.Events) != 2 || summary.Count(ledger.StatusFailed) != 2 {
		t.Fatalf("expected both events attempted and failed, got %+v", summary.Events)
	}
	if len(good.datasets) != 2 {
		t.Fatalf("healthy exporter should run for every event, got %d", len(good.datasets))
	}

	ctx := context.Background()
	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID || runs[0].Status != ledger.StatusFailed {
		t.Fatalf("unexpected ledger runs %+v", runs)
	}
	events, err := store.EventRuns(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("EventRuns: %v", err)
	}
	if len(events) != 2 || events[0].Exporters != "good" || !strings.Contains(events[0].Error, "disk full") {
		t.Fatalf("unexpected ledger events %+v", events)
	}
}

func TestRunAbortsWithoutQualityTable(t *testing.T) {
	limit := 1.0
	cfg := testsupport.NewConfig(t, testsupport.With(func(c *config.Config) {
		c.Quality.BadnessDir = filepath.Join(testsupport.BaseDir(c), "badness")
		c.Quality.BadnessLimit = &limit
	}))
	if err := os.MkdirAll(cfg.Quality.BadnessDir, 0o755); err != nil {
		t.Fatal(err)
	}
	acc := &testsupport.Accessor{EventList: []seismic.Event{shallowEvent("ev")}}
	p := newPipeline(t, cfg, prepare.Options{Opener: opener(acc), Exporters: []export.Exporter{}})

	summary, err := p.Run(context.Background(), []string{"ev1", "ev2"})
	if !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if len(summary.Events) != 1 {
		t.Fatalf("run should stop after the first event, got %d events", len(summary.Events))
	}
}

func TestRunAppliesQualityWhitelist(t *testing.T) {
	limit := 2.0
	cfg := testsupport.NewConfig(t, testsupport.With(func(c *config.Config) {
		c.Quality.BadnessDir = filepath.Join(testsupport.BaseDir(c), "badness")
		c.Quality.BadnessLimit = &limit
	}))
	origin := seismic.EpochToTime(testsupport.OriginTime)
	name := badness.FileName(origin.Add(-time.Hour), origin.Add(time.Hour))
	body := "XX.AAA..BHZ 1\nXX.AAA..BHN 5\n"
	if err := os.MkdirAll(cfg.Quality.BadnessDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Quality.BadnessDir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	st := testsupport.StationAt("XX", "AAA", "", 20e3, "BHZ", "BHN", "BHE")
	acc := &testsupport.Accessor{
		EventList:   []seismic.Event{shallowEvent("ev")},
		StationList: []*seismic.Station{st},
	}
	for _, ch := range []string{"BHZ", "BHN", "BHE"} {
		acc.Displacement = append(acc.Displacement, testsupport.SineTrace(st, ch, testsupport.OriginTime, 50))
	}
	exp := &captureExporter{name: "capture"}
	p := newPipeline(t, cfg, prepare.Options{Opener: opener(acc), Exporters: []export.Exporter{exp}})

	if _, err := p.Run(context.Background(), []string{"ev"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"XX.AAA..BHZ"}, traceIDs(exp.last(t).Traces)); diff != "" {
		t.Fatalf("accepted traces mismatch (-want +got):\n%s", diff)
	}
}

func TestRunExporterRawSelectionIgnoresQualityWhitelist(t *testing.T) {
	limit := 2.0
	cfg := testsupport.NewConfig(t, testsupport.With(func(c *config.Config) {
		c.Quality.BadnessDir = filepath.Join(testsupport.BaseDir(c), "badness")
		c.Quality.BadnessLimit = &limit
		c.Stations.Exclude = []string{"XX.CCC.*"}
	}))
	origin := seismic.EpochToTime(testsupport.OriginTime)
	name := badness.FileName(origin.Add(-time.Hour), origin.Add(time.Hour))
	if err := os.MkdirAll(cfg.Quality.BadnessDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Quality.BadnessDir, name), []byte("XX.AAA..BHZ 1\nXX.AAA..BHN 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	primary := testsupport.StationAt("XX", "AAA", "", 20e3, "BHZ", "BHN")
	secondary := testsupport.StationAt("XX", "AAA", "10", 20e3, "BHZ")
	excluded := testsupport.StationAt("XX", "CCC", "", 20e3, "BHZ")
	acc := &testsupport.Accessor{
		EventList:   []seismic.Event{shallowEvent("ev")},
		StationList: []*seismic.Station{primary, secondary, excluded},
	}
	exp := &captureExporter{name: "capture"}
	p := newPipeline(t, cfg, prepare.Options{Opener: opener(acc), Exporters: []export.Exporter{exp}})

	if _, err := p.Run(context.Background(), []string{"ev"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ds := exp.last(t)
	noisy := testsupport.SineTrace(primary, "BHN", testsupport.OriginTime, 10)
	cases := []struct {
		name  string
		trace *seismic.Trace
		raw   bool
		local bool
	}{
		{"whitelisted", testsupport.SineTrace(primary, "BHZ", testsupport.OriginTime, 10), true, true},
		{"above badness limit", noisy, false, true},
		{"dropped by dedup", testsupport.SineTrace(secondary, "BHZ", testsupport.OriginTime, 10), false, false},
		{"excluded station", testsupport.SineTrace(excluded, "BHZ", testsupport.OriginTime, 10), false, false},
	}
	for _, tc := range cases {
		if got := ds.RawSelector.Match(tc.trace); got != tc.raw {
			t.Fatalf("%s: run raw selector = %v, want %v", tc.name, got, tc.raw)
		}
		if got := ds.StationSelector.Match(tc.trace); got != tc.local {
			t.Fatalf("%s: exporter raw selector = %v, want %v", tc.name, got, tc.local)
		}
	}
}

func TestRunAppliesStationFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.With(func(c *config.Config) {
		c.Stations.Exclude = []string{"XX.BBB.*"}
	}))
	a := testsupport.StationAt("XX", "AAA", "", 20e3)
	b := testsupport.StationAt("XX", "BBB", "", 20e3)
	orphan := testsupport.StationAt("ZZ", "ORP", "", 20e3)
	acc := &testsupport.Accessor{
		EventList:   []seismic.Event{shallowEvent("ev")},
		StationList: []*seismic.Station{a, b},
		Displacement: []*seismic.Trace{
			testsupport.SineTrace(a, "BHZ", testsupport.OriginTime, 50),
			testsupport.SineTrace(b, "BHZ", testsupport.OriginTime, 50),
			testsupport.SineTrace(orphan, "BHZ", testsupport.OriginTime, 50),
		},
	}
	exp := &captureExporter{name: "capture"}
	p := newPipeline(t, cfg, prepare.Options{Opener: opener(acc), Exporters: []export.Exporter{exp}})

	summary, err := p.Run(context.Background(), []string{"ev"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]string{"XX.AAA..BHZ"}, traceIDs(exp.last(t).Traces)); diff != "" {
		t.Fatalf("accepted traces mismatch (-want +got):\n%s", diff)
	}
	if summary.Events[0].Rejected != 0 {
		t.Fatalf("station filter drops traces before the pipeline sees them, got %d rejected", summary.Events[0].Rejected)
	}
}

func TestNewRejectsUnknownAccessor(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.With(func(c *config.Config) {
		c.Accessor.Kind = "seedlink"
	}))
	_, err := prepare.New(cfg, prepare.Options{})
	if !errors.Is(err, failure.ErrConfiguration) || !errors.Is(err, registry.ErrUnknownAccessor) {
		t.Fatalf("expected unknown accessor configuration error, got %v", err)
	}
}

func TestNewRejectsUnknownTimingPhase(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCheckSpan("Pn"))
	_, err := prepare.New(cfg, prepare.Options{})
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunEndToEndWithEventDump(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithDistance(15e3, 25e3),
		testsupport.WithKiwi(),
		testsupport.WithRapid(),
		testsupport.WithProblemsFile(),
		testsupport.With(func(c *config.Config) {
			base := testsupport.BaseDir(c)
			c.Output.MetricsTextfile = filepath.Join(base, "metrics", "tunguska.prom")
			c.Output.RawTracePath = filepath.Join(base, "raw", "${event_name}", "${network}.${station}.trace")
		}),
	)
	ev := testsupport.NewEvent("origin")
	var (
		stations []*seismic.Station
		traces   []*seismic.Trace
	)
	for i, code := range []string{"AAA", "BBB", "CCC"} {
		st := testsupport.StationAt("XX", code, "", float64(i+1)*10e3)
		stations = append(stations, st)
		traces = append(traces, testsupport.SineTrace(st, "BHZ", testsupport.OriginTime-100, 600))
	}
	testsupport.WriteDump(t, filepath.Join(testsupport.BaseDir(cfg), "edump", "ev1"), ev, stations, traces)

	store := testsupport.MustOpenLedger(t, cfg)
	p := newPipeline(t, cfg, prepare.Options{Ledger: store, Metrics: metrics.New()})

	summary, err := p.Run(context.Background(), []string{"ev1", "ev2"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := []ledger.Status{summary.Events[0].Status, summary.Events[1].Status}; !cmp.Equal(got, []ledger.Status{ledger.StatusCompleted, ledger.StatusSkipped}) {
		t.Fatalf("unexpected statuses %v", got)
	}
	if summary.Events[0].Accepted != 1 {
		t.Fatalf("expected one accepted trace, got %+v", summary.Events[0])
	}

	base := testsupport.BaseDir(cfg)
	receivers, err := os.ReadFile(filepath.Join(base, "kiwi", "ev1", "data", "receivers.table"))
	if err != nil {
		t.Fatalf("read receivers: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(receivers)), "\n"); len(lines) != 1 || !strings.Contains(lines[0], "XX.BBB.") {
		t.Fatalf("unexpected receivers table:\n%s", receivers)
	}
	if _, err := os.Stat(filepath.Join(base, "kiwi", "ev1", "data", "reference-1-u.trace")); err != nil {
		t.Fatalf("expected kiwi displacement trace: %v", err)
	}
	table, err := os.ReadFile(filepath.Join(base, "rapid", "ev1", "data", "stations.table"))
	if err != nil {
		t.Fatalf("read rapid stations: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(table)), "\n"); len(lines) != 3 || !strings.HasPrefix(lines[0], "XX.AAA.") {
		t.Fatalf("rapid table should list every station nearest first:\n%s", table)
	}
	for _, code := range []string{"AAA", "BBB", "CCC"} {
		if _, err := os.Stat(filepath.Join(base, "raw", "ev1", "XX."+code+".trace")); err != nil {
			t.Fatalf("expected raw trace for %s: %v", code, err)
		}
	}
	prom, err := os.ReadFile(filepath.Join(base, "metrics", "tunguska.prom"))
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(prom), `tunguska_events_total{status="skipped"} 1`) {
		t.Fatalf("metrics missing skipped event:\n%s", prom)
	}

	events, err := store.EventRuns(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("EventRuns: %v", err)
	}
	if len(events) != 2 || events[0].Exporters != "kiwi,rapid" || events[1].Status != ledger.StatusSkipped {
		t.Fatalf("unexpected ledger events %+v", events)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunguska.lock")
	first, err := prepare.AcquireLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := prepare.AcquireLock(path); !errors.Is(err, prepare.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := prepare.AcquireLock(path)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	_ = second.Release()
}
