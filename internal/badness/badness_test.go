package badness_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tunguska/internal/badness"
	"tunguska/internal/failure"
	"tunguska/internal/seismic"
)

func day(d int) time.Time {
	return time.Date(2010, time.March, d, 0, 0, 0, 0, time.UTC)
}

func epoch(t time.Time) float64 {
	return seismic.TimeToEpoch(t)
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestParseFileName(t *testing.T) {
	name := badness.FileName(day(1), day(2).Add(90*time.Minute))
	if name != "badness_2010-03-01_00-00-00_2010-03-02_01-30-00" {
		t.Fatalf("unexpected file name %q", name)
	}
	iv, ok := badness.ParseFileName(name)
	if !ok {
		t.Fatal("expected name to parse")
	}
	if iv.Begin != epoch(day(1)) || iv.End != epoch(day(2).Add(90*time.Minute)) {
		t.Fatalf("unexpected interval %+v", iv)
	}

	for _, bad := range []string{
		"badness_2010-03-01_00-00-00_2010-03-02",
		"quality_2010-03-01_00-00-00_2010-03-02_00-00-00",
		"badness_2010-13-01_00-00-00_2010-03-02_00-00-00",
	} {
		if _, ok := badness.ParseFileName(bad); ok {
			t.Fatalf("expected %q to be ineligible", bad)
		}
	}
}

func TestNearestInsideIntervalHasZeroDistance(t *testing.T) {
	a := badness.Interval{Name: "a", Begin: epoch(day(1)), End: epoch(day(3))}
	b := badness.Interval{Name: "b", Begin: epoch(day(10)), End: epoch(day(12))}
	query := epoch(day(2))
	got, ok := badness.Nearest([]badness.Interval{b, a}, query)
	if !ok || got.Name != "a" {
		t.Fatalf("expected a, got %+v", got)
	}
	if got.Distance(query) != 0 {
		t.Fatalf("expected zero distance, got %v", got.Distance(query))
	}
}

func TestNearestBetweenIntervalsPicksCloserBoundary(t *testing.T) {
	a := badness.Interval{Name: "a", Begin: epoch(day(1)), End: epoch(day(3))}
	b := badness.Interval{Name: "b", Begin: epoch(day(10)), End: epoch(day(12))}

	got, _ := badness.Nearest([]badness.Interval{a, b}, epoch(day(4)))
	if got.Name != "a" {
		t.Fatalf("day 4 should select a, got %s", got.Name)
	}
	got, _ = badness.Nearest([]badness.Interval{a, b}, epoch(day(9)))
	if got.Name != "b" {
		t.Fatalf("day 9 should select b, got %s", got.Name)
	}
}

func TestNearestTieResolvesToSmallestName(t *testing.T) {
	a := badness.Interval{Name: "badness_a", Begin: epoch(day(1)), End: epoch(day(3))}
	b := badness.Interval{Name: "badness_b", Begin: epoch(day(7)), End: epoch(day(9))}
	got, _ := badness.Nearest([]badness.Interval{b, a}, epoch(day(5)))
	if got.Name != "badness_a" {
		t.Fatalf("tie should select badness_a, got %s", got.Name)
	}
}

func TestLoadSelectsNearestFileAndSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	early := badness.FileName(day(1), day(3))
	late := badness.FileName(day(10), day(12))
	writeFile(t, dir, early, "GE.APE..BHZ 1.5\nGE.APE..BHN 2\nbroken line here\nGE.APE.BHE 3\nGE.APE..BHE notanumber\n")
	writeFile(t, dir, late, "GE.APE..BHZ 9\n")
	writeFile(t, dir, "README", "not a badness file\n")

	table, used, err := badness.Load(dir, epoch(day(2)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if used != early {
		t.Fatalf("expected %s, got %s", early, used)
	}
	want := badness.Table{
		{Network: "GE", Station: "APE", Location: "", Channel: "BHZ"}: 1.5,
		{Network: "GE", Station: "APE", Location: "", Channel: "BHN"}: 2,
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadWithoutEligibleFilesIsNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "")
	_, _, err := badness.Load(dir, 0)
	if !errors.Is(err, badness.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if failure.ScopeOf(err) != failure.ScopeRun {
		t.Fatalf("missing badness data must abort the run")
	}
}
