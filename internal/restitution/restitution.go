// Package restitution converts raw recordings into ground displacement.
//
// The processing chain is deliberately simple: gain removal, mean removal,
// cosine fade at both ends, a frequency-domain band taper with optional
// integration of velocity sensors, fade crop, decimation, and a peak
// displacement check.
package restitution

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"tunguska/internal/seismic"
)

// Response kinds a channel may declare.
const (
	MethodDisplacement = "displacement"
	MethodVelocity     = "velocity"
)

var (
	// ErrMethodNotAllowed is returned when a channel's response kind is not
	// among the allowed methods.
	ErrMethodNotAllowed = errors.New("restitution method not allowed")
	// ErrDisplacementLimit is returned when the restituted trace exceeds the
	// configured peak displacement.
	ErrDisplacementLimit = errors.New("displacement limit exceeded")
	// ErrTooShort is returned when a trace cannot hold two fade windows.
	ErrTooShort = errors.New("trace shorter than fade windows")
)

// Options control one restitution pass.
type Options struct {
	FadeTime        float64
	FrequencyBand   [4]float64
	DeltaT          *float64
	MaxDisplacement *float64
	Methods         []string
	// PreExtend is extra leading data, beyond the fade, that the caller
	// loaded ahead of the wanted window.
	PreExtend *float64
	Crop      bool
}

// Restitute returns a displacement copy of tr. The input is not modified.
func Restitute(tr *seismic.Trace, ch seismic.Channel, opts Options) (*seismic.Trace, error) {
	method := ch.Response
	if method == "" {
		method = MethodVelocity
	}
	if !slices.Contains(opts.Methods, method) {
		return nil, fmt.Errorf("%s: %w: %q", tr.NSLC(), ErrMethodNotAllowed, method)
	}
	if ch.Gain == 0 {
		return nil, fmt.Errorf("%s: zero gain", tr.NSLC())
	}
	n := len(tr.Samples)
	nfade := int(math.Round(opts.FadeTime / tr.DeltaT))
	if n < 2 || 2*nfade >= n {
		return nil, fmt.Errorf("%s: %w", tr.NSLC(), ErrTooShort)
	}

	out := tr.Copy()
	ys := out.Samples
	floats.Scale(1/ch.Gain, ys)
	floats.AddConst(-floats.Sum(ys)/float64(n), ys)
	CosineFade(ys, nfade)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, ys)
	for i := range coeffs {
		f := fft.Freq(i) / tr.DeltaT
		w := BandWeight(f, opts.FrequencyBand)
		if method == MethodVelocity {
			if f == 0 {
				w = 0
			} else {
				coeffs[i] = coeffs[i] / complex(0, 2*math.Pi*f)
			}
		}
		coeffs[i] *= complex(w, 0)
	}
	fft.Sequence(ys, coeffs)
	floats.Scale(1/float64(n), ys)

	if opts.Crop {
		lead := opts.FadeTime
		if opts.PreExtend != nil {
			lead += *opts.PreExtend
		}
		if err := out.Chop(out.TMin+lead, out.TMax()-opts.FadeTime); err != nil {
			return nil, err
		}
	}

	if opts.DeltaT != nil && *opts.DeltaT > out.DeltaT {
		if err := Decimate(out, *opts.DeltaT); err != nil {
			return nil, err
		}
	}

	if opts.MaxDisplacement != nil {
		if peak := Peak(out.Samples); peak > *opts.MaxDisplacement {
			return nil, fmt.Errorf("%s: %w (peak %g, limit %g)", out.NSLC(), ErrDisplacementLimit, peak, *opts.MaxDisplacement)
		}
	}
	return out, nil
}

// CosineFade tapers nfade samples at each end of ys with a half cosine.
func CosineFade(ys []float64, nfade int) {
	n := len(ys)
	for i := 0; i < nfade && i < n; i++ {
		w := 0.5 - 0.5*math.Cos(math.Pi*float64(i)/float64(nfade))
		ys[i] *= w
		ys[n-1-i] *= w
	}
}

// BandWeight evaluates the cosine band taper defined by four corner
// frequencies at f: zero outside [f1, f4], one inside [f2, f3].
func BandWeight(f float64, band [4]float64) float64 {
	f1, f2, f3, f4 := band[0], band[1], band[2], band[3]
	switch {
	case f < f1 || f > f4:
		return 0
	case f < f2:
		return 0.5 - 0.5*math.Cos(math.Pi*(f-f1)/(f2-f1))
	case f > f3:
		return 0.5 + 0.5*math.Cos(math.Pi*(f-f3)/(f4-f3))
	default:
		return 1
	}
}

// Decimate resamples tr in place to deltat, which must be an integer
// multiple of the current sample interval.
func Decimate(tr *seismic.Trace, deltat float64) error {
	ratio := deltat / tr.DeltaT
	factor := int(math.Round(ratio))
	if factor < 1 || math.Abs(ratio-float64(factor)) > 1e-6*ratio {
		return fmt.Errorf("%s: cannot decimate from %g s to %g s", tr.NSLC(), tr.DeltaT, deltat)
	}
	if factor == 1 {
		return nil
	}
	out := make([]float64, 0, len(tr.Samples)/factor+1)
	for i := 0; i < len(tr.Samples); i += factor {
		out = append(out, tr.Samples[i])
	}
	tr.Samples = out
	tr.DeltaT = deltat
	return nil
}

// Peak returns the largest absolute sample value.
func Peak(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	return math.Max(math.Abs(floats.Max(ys)), math.Abs(floats.Min(ys)))
}
