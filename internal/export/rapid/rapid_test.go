package rapid_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tunguska/internal/config"
	"tunguska/internal/export"
	"tunguska/internal/export/rapid"
	"tunguska/internal/seismic"
	"tunguska/internal/testsupport"
	"tunguska/internal/tracefile"
)

func TestStationTableFormat(t *testing.T) {
	got := rapid.StationTable([]*seismic.Station{
		{Network: "GE", Station: "APE", Latitude: 37.07, Longitude: 25.53},
		{Network: "IU", Station: "ANMO", Location: "00", Latitude: -1, Longitude: 0.5},
	})
	want := "GE.APE.     3.70700000e+01  2.55300000e+01\n" +
		"IU.ANMO.00 -1.00000000e+00  5.00000000e-01\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("table (-want +got):\n%s", diff)
	}
}

func TestExportWritesStationsAndTraces(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRapid())
	cfg.Rapid.TraceFactor = -1
	vars := config.Vars{config.VarEventName: "ev"}

	ev := testsupport.NewEvent("ev")
	near := testsupport.StationAt("GE", "APE", "", 10000)
	far := testsupport.StationAt("GE", "CCC", "", 30000)
	quiet := testsupport.StationAt("GE", "QQQ", "", 20000)
	for _, st := range []*seismic.Station{near, far, quiet} {
		seismic.Locate(st, ev)
	}
	ds := &export.Dataset{
		Event:    ev,
		Stations: map[seismic.NSL]*seismic.Station{near.NSL(): near, far.NSL(): far, quiet.NSL(): quiet},
		Traces: []*seismic.Trace{
			testsupport.SineTrace(far, "BHZ", ev.Time, 20),
			testsupport.SineTrace(near, "BHZ", ev.Time, 20),
			testsupport.SineTrace(near, "BHE", ev.Time, 20),
		},
		Vars: vars,
	}

	res, err := rapid.New(cfg.Rapid, nil).Export(context.Background(), ds)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Stations != 3 || res.Traces != 3 {
		t.Fatalf("unexpected result %+v", res)
	}

	dataDir, err := config.Expand(cfg.Rapid.DataDir, vars)
	if err != nil {
		t.Fatal(err)
	}
	table, err := os.ReadFile(filepath.Join(dataDir, "stations.table"))
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, line := range strings.Split(strings.TrimSpace(string(table)), "\n") {
		order = append(order, strings.Fields(line)[0])
	}
	if diff := cmp.Diff([]string{"GE.APE.", "GE.QQQ.", "GE.CCC."}, order); diff != "" {
		t.Fatalf("station order (-want +got):\n%s", diff)
	}

	traces, err := tracefile.Load(filepath.Join(dataDir, "displacement.trace"))
	if err != nil {
		t.Fatal(err)
	}
	var codes []string
	for _, tr := range traces {
		codes = append(codes, tr.NSLC().String())
		if tr.TMin != 0 {
			t.Fatalf("%s: expected event-relative time, got %g", tr.NSLC(), tr.TMin)
		}
	}
	if diff := cmp.Diff([]string{"GE.APE..BHE", "GE.APE..BHZ", "GE.CCC..BHZ"}, codes); diff != "" {
		t.Fatalf("trace order (-want +got):\n%s", diff)
	}
	if traces[0].Samples[5] != -ds.Traces[2].Samples[5] {
		t.Fatal("expected trace factor applied")
	}
}
