package view

import (
	"math"

	"github.com/sells-group/crop-explorer/internal/selection"
)

// LogEpsilon replaces non-positive domain bounds in log mode.
const LogEpsilon = 1e-6

// Scale maps values to an intensity in [0,1].
type Scale struct {
	Mode selection.ScaleMode `json:"mode"`
	// Domain bounds, in log space when Mode is Log.
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// ColorScale builds a scale over the finite values in domain. An empty
// domain maps [0,1].
func ColorScale(mode selection.ScaleMode, domain []float64) Scale {
	lo, hi, ok := extent(domain)
	if !ok {
		lo, hi = 0, 1
	}
	if mode == selection.Log {
		if lo <= 0 {
			lo = LogEpsilon
		}
		if hi <= 0 {
			hi = LogEpsilon
		}
		return Scale{Mode: mode, Lo: math.Log(lo), Hi: math.Log(hi)}
	}
	return Scale{Mode: mode, Lo: lo, Hi: hi}
}

// At returns the intensity of v. The second result is false for the no-data
// case: NaN, infinities, and in log mode any v <= 0. Callers pass math.NaN()
// for a missing value.
func (s Scale) At(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if s.Mode == selection.Log {
		if v <= 0 {
			return 0, false
		}
		v = math.Log(v)
	}
	if s.Hi == s.Lo {
		return 0.5, true
	}
	t := (v - s.Lo) / (s.Hi - s.Lo)
	return math.Max(0, math.Min(1, t)), true
}

// AtValue is At for a (value, present) pair as returned by lookups.
func (s Scale) AtValue(v float64, ok bool) (float64, bool) {
	if !ok {
		return 0, false
	}
	return s.At(v)
}

func extent(values []float64) (lo, hi float64, ok bool) {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}
