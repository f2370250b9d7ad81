// Package tracefile reads and writes the plain-text trace format used for
// event dumps and exported datasets.
//
// A file holds any number of traces. Each starts with a header line
//
//	TRACE NET.STA.LOC.CHA <tmin> <deltat> <n>
//
// followed by n lines with one sample each. Files whose name ends in .zst are
// zstd-compressed.
package tracefile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"tunguska/internal/config"
	"tunguska/internal/fileutil"
	"tunguska/internal/seismic"
)

const (
	headerTag = "TRACE"
	// Suffix marks zstd-compressed trace files.
	Suffix = ".zst"
)

// Write encodes traces to w.
func Write(w io.Writer, traces []*seismic.Trace) error {
	bw := bufio.NewWriter(w)
	for _, tr := range traces {
		if _, err := fmt.Fprintf(bw, "%s %s %s %s %d\n", headerTag, tr.NSLC(),
			strconv.FormatFloat(tr.TMin, 'f', -1, 64),
			strconv.FormatFloat(tr.DeltaT, 'g', -1, 64),
			len(tr.Samples)); err != nil {
			return err
		}
		for _, v := range tr.Samples {
			bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Read decodes every trace in r.
func Read(r io.Reader) ([]*seismic.Trace, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		traces []*seismic.Trace
		line   int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		tr, n, err := parseHeader(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		tr.Samples = make([]float64, 0, n)
		for len(tr.Samples) < n {
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("trace %s: want %d samples, got %d", tr.NSLC(), n, len(tr.Samples))
			}
			line++
			v, err := strconv.ParseFloat(strings.TrimSpace(sc.Text()), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: sample: %w", line, err)
			}
			tr.Samples = append(tr.Samples, v)
		}
		traces = append(traces, tr)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return traces, nil
}

func parseHeader(text string) (*seismic.Trace, int, error) {
	fields := strings.Fields(text)
	if len(fields) != 5 || fields[0] != headerTag {
		return nil, 0, fmt.Errorf("malformed trace header %q", text)
	}
	code, err := seismic.ParseNSLC(fields[1])
	if err != nil {
		return nil, 0, err
	}
	tmin, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, 0, fmt.Errorf("tmin: %w", err)
	}
	deltat, err := strconv.ParseFloat(fields[3], 64)
	if err != nil || deltat <= 0 {
		return nil, 0, fmt.Errorf("invalid sample interval %q", fields[3])
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil || n < 0 {
		return nil, 0, fmt.Errorf("invalid sample count %q", fields[4])
	}
	return &seismic.Trace{
		Network:  code.Network,
		Station:  code.Station,
		Location: code.Location,
		Channel:  code.Channel,
		DeltaT:   deltat,
		TMin:     tmin,
	}, n, nil
}

// Load reads a trace file, decompressing it when it carries the .zst suffix.
func Load(path string) ([]*seismic.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, Suffix) {
		dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}
	traces, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return traces, nil
}

// Save writes traces to path, replacing any existing file.
func Save(path string, traces []*seismic.Trace) error {
	if err := fileutil.EnsureParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.HasSuffix(path, Suffix) {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		if err := Write(enc, traces); err != nil {
			_ = enc.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("finish zstd stream %s: %w", path, err)
		}
	} else if err := Write(f, traces); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// SaveTemplate expands tmpl for each trace, filling the network, station,
// location and channel placeholders, and writes every group of traces that
// share a path to that file. It returns the written paths in order.
func SaveTemplate(tmpl string, vars config.Vars, traces []*seismic.Trace) ([]string, error) {
	groups := make(map[string][]*seismic.Trace)
	var order []string
	for _, tr := range traces {
		path, err := config.Expand(tmpl, TraceVars(vars, tr))
		if err != nil {
			return nil, err
		}
		if _, ok := groups[path]; !ok {
			order = append(order, path)
		}
		groups[path] = append(groups[path], tr)
	}
	for _, path := range order {
		if err := Save(path, groups[path]); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// TraceVars extends vars with the trace's code placeholders.
func TraceVars(vars config.Vars, tr *seismic.Trace) config.Vars {
	return vars.
		With(config.VarNetwork, tr.Network).
		With(config.VarStation, tr.Station).
		With(config.VarLocation, tr.Location).
		With(config.VarChannel, tr.Channel)
}

// Glob lists the trace files in dir in lexical order.
func Glob(dir string) ([]string, error) {
	var out []string
	for _, pattern := range []string{"*.trace", "*.trace" + Suffix} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	slices.Sort(out)
	return out, nil
}
