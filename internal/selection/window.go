package selection

import (
	"log/slog"

	"tunguska/internal/logging"
	"tunguska/internal/seismic"
	"tunguska/internal/timing"
)

// Problem categories recorded against rejected traces.
const (
	ProblemIncomplete = "incomplete"
	ProblemGappy      = "gappy"
)

// ProblemRecorder collects per-trace diagnostics.
type ProblemRecorder interface {
	Add(category, traceID string)
}

// CropWindow bounds the part of a trace to keep.
type CropWindow struct {
	Start timing.Func
	End   timing.Func
}

// Verdict is the outcome of validating one trace.
type Verdict struct {
	Accepted bool
	Problem  string
	// Index of the timing function that failed, -1 when none did.
	Failed int
}

// WindowValidator checks that every required phase arrival lies within a
// trace's recorded span.
type WindowValidator struct {
	Check    []timing.Func
	Cut      *CropWindow
	Problems ProblemRecorder
	Logger   *slog.Logger
}

// Timings lists the functions evaluated per trace: the check list followed
// by the crop window bounds.
func (v *WindowValidator) Timings() []timing.Func {
	out := make([]timing.Func, 0, len(v.Check)+2)
	out = append(out, v.Check...)
	if v.Cut != nil {
		out = append(out, v.Cut.Start, v.Cut.End)
	}
	return out
}

// Validate evaluates the timing functions in order and stops at the first
// one that is absent or falls outside the trace. Accepted traces are cropped
// in place when a crop window is configured.
func (v *WindowValidator) Validate(tr *seismic.Trace, st *seismic.Station, ev seismic.Event) Verdict {
	for i, fn := range v.Timings() {
		tt, ok := fn.Arrival(st.Distance, ev.Depth)
		if !ok {
			v.reject(tr, ProblemIncomplete, "timing not present")
			return Verdict{Problem: ProblemIncomplete, Failed: i}
		}
		arrival := ev.Time + tt
		if arrival < tr.TMin || arrival > tr.TMax() {
			v.reject(tr, ProblemGappy, "timing not in trace")
			return Verdict{Problem: ProblemGappy, Failed: i}
		}
	}

	if v.Cut != nil {
		start, okStart := v.Cut.Start.Arrival(st.Distance, ev.Depth)
		end, okEnd := v.Cut.End.Arrival(st.Distance, ev.Depth)
		if !okStart || !okEnd {
			v.reject(tr, ProblemIncomplete, "crop window not present")
			return Verdict{Problem: ProblemIncomplete, Failed: -1}
		}
		if err := tr.Chop(ev.Time+start, ev.Time+end); err != nil {
			v.reject(tr, ProblemGappy, "crop window empty")
			return Verdict{Problem: ProblemGappy, Failed: -1}
		}
	}
	return Verdict{Accepted: true, Failed: -1}
}

func (v *WindowValidator) reject(tr *seismic.Trace, category, reason string) {
	if v.Problems != nil {
		v.Problems.Add(category, tr.FullID())
	}
	logging.WarnWithContext(v.Logger, "trace does not contain all required arrivals", "timing_"+category,
		logging.String(logging.FieldNSLC, tr.NSLC().String()),
		logging.String(logging.FieldTraceID, tr.FullID()),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "trace excluded from dataset"),
	)
}
