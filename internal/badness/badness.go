// Package badness loads per-channel data quality scores from a directory of
// time-scoped badness files and picks the file closest to a query time.
package badness

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"tunguska/internal/failure"
	"tunguska/internal/seismic"
)

const (
	fileTag    = "badness"
	dateLayout = "2006-01-02"
	timeLayout = "15-04-05"
)

// ErrNotFound is returned when a directory holds no eligible badness file.
var ErrNotFound = failure.ErrNotFound

// Table maps channel keys to badness scores.
type Table map[seismic.NSLC]float64

// Score looks up the badness of a channel.
func (t Table) Score(code seismic.NSLC) (float64, bool) {
	v, ok := t[code]
	return v, ok
}

// Interval is the validity span encoded in a badness file name.
type Interval struct {
	Name  string
	Begin float64
	End   float64
}

// Distance is zero when query lies inside the interval, otherwise the gap to
// the nearest boundary.
func (iv Interval) Distance(query float64) float64 {
	switch {
	case query < iv.Begin:
		return iv.Begin - query
	case query > iv.End:
		return query - iv.End
	default:
		return 0
	}
}

// ParseFileName decodes badness_<begin-date>_<begin-time>_<end-date>_<end-time>.
func ParseFileName(name string) (Interval, bool) {
	toks := strings.Split(name, "_")
	if len(toks) != 5 || toks[0] != fileTag {
		return Interval{}, false
	}
	begin, err := parseStamp(toks[1], toks[2])
	if err != nil {
		return Interval{}, false
	}
	end, err := parseStamp(toks[3], toks[4])
	if err != nil {
		return Interval{}, false
	}
	return Interval{Name: name, Begin: begin, End: end}, true
}

// FileName encodes an interval in the badness naming convention.
func FileName(begin, end time.Time) string {
	begin, end = begin.UTC(), end.UTC()
	return strings.Join([]string{
		fileTag,
		begin.Format(dateLayout), begin.Format(timeLayout),
		end.Format(dateLayout), end.Format(timeLayout),
	}, "_")
}

func parseStamp(date, clock string) (float64, error) {
	parsed, err := time.Parse(dateLayout+" "+timeLayout, date+" "+clock)
	if err != nil {
		return 0, err
	}
	return seismic.TimeToEpoch(parsed), nil
}

// Intervals lists the eligible badness files in dir, sorted by name.
func Intervals(dir string) ([]Interval, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read badness dir: %w", err)
	}
	intervals := make([]Interval, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if iv, ok := ParseFileName(entry.Name()); ok {
			intervals = append(intervals, iv)
		}
	}
	slices.SortFunc(intervals, func(a, b Interval) int { return strings.Compare(a.Name, b.Name) })
	return intervals, nil
}

// Nearest selects the interval closest to query. Equidistant candidates are
// resolved in favour of the lexicographically smallest file name.
func Nearest(intervals []Interval, query float64) (Interval, bool) {
	best := Interval{}
	bestDist := math.Inf(1)
	found := false
	for _, iv := range intervals {
		d := iv.Distance(query)
		if !found || d < bestDist || (d == bestDist && iv.Name < best.Name) {
			best, bestDist, found = iv, d, true
		}
	}
	return best, found
}

// Load reads the badness file nearest to query from dir. It returns the
// table and the name of the file that was used.
func Load(dir string, query float64) (Table, string, error) {
	intervals, err := Intervals(dir)
	if err != nil {
		return nil, "", failure.Wrap(ErrNotFound, "badness", "list", dir, err)
	}
	selected, ok := Nearest(intervals, query)
	if !ok {
		return nil, "", failure.Wrap(ErrNotFound, "badness", "select", fmt.Sprintf("no badness files in %s", dir), nil)
	}
	table, err := ReadFile(filepath.Join(dir, selected.Name))
	if err != nil {
		return nil, "", err
	}
	return table, selected.Name, nil
}

// ReadFile parses "NET.STA.LOC.CHA score" lines. Malformed lines are skipped.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open badness file: %w", err)
	}
	defer f.Close()

	table := Table{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		toks := strings.Fields(scanner.Text())
		if len(toks) != 2 {
			continue
		}
		code, err := seismic.ParseNSLC(toks[0])
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(toks[1], 64)
		if err != nil {
			continue
		}
		table[code] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read badness file: %w", err)
	}
	return table, nil
}
