package state

import "math"

// Curve selects the interpolation between an automation point and the next
type Curve string

const (
	CurveStep        Curve = "step"
	CurveLinear      Curve = "linear"
	CurveExponential Curve = "exponential"
	CurveLogarithmic Curve = "logarithmic"
)

// TargetKind names the parameter class an automation lane drives
type TargetKind string

const (
	TargetInstrumentLevel TargetKind = "instrument-level"
	TargetInstrumentPan   TargetKind = "instrument-pan"
	TargetFilterCutoff    TargetKind = "filter-cutoff"
	TargetFilterResonance TargetKind = "filter-resonance"
	TargetEffectParam     TargetKind = "effect-param"
	TargetLfoRate         TargetKind = "lfo-rate"
	TargetLfoDepth        TargetKind = "lfo-depth"
	TargetSendLevel       TargetKind = "send-level"
	TargetBusLevel        TargetKind = "bus-level"
	TargetSampleRate      TargetKind = "sample-rate"
	TargetMasterLevel     TargetKind = "master-level"
)

// Target identifies the parameter an automation lane drives. Effect
// targets address the slot by stable EffectID, never by chain position,
// so disabled slots cannot shift the addressing.
type Target struct {
	Kind       TargetKind   `json:"kind"`
	Instrument InstrumentID `json:"instrument,omitempty"`
	Effect     EffectID     `json:"effect,omitempty"`
	Param      string       `json:"param,omitempty"`
	Bus        int          `json:"bus,omitempty"`
}

// Point is one automation breakpoint
type Point struct {
	Tick  int     `json:"tick"`
	Value float32 `json:"value"`
	Curve Curve   `json:"curve"`
}

// Lane is an ordered list of points driving one target
type Lane struct {
	Target  Target  `json:"target"`
	Points  []Point `json:"points"`
	Enabled bool    `json:"enabled"`
}

// InsertPoint adds a point keeping tick order. A point at an existing
// tick replaces the old one (last write wins).
func (l *Lane) InsertPoint(p Point) {
	for i := range l.Points {
		if l.Points[i].Tick == p.Tick {
			l.Points[i] = p
			return
		}
		if l.Points[i].Tick > p.Tick {
			l.Points = append(l.Points, Point{})
			copy(l.Points[i+1:], l.Points[i:])
			l.Points[i] = p
			return
		}
	}
	l.Points = append(l.Points, p)
}

// ValueAt interpolates the lane value at tick t, or returns (0, false)
// when the lane has no point at or before t.
func (l *Lane) ValueAt(t int) (float32, bool) {
	var p0, p1 *Point
	for i := range l.Points {
		if l.Points[i].Tick <= t {
			p0 = &l.Points[i]
		} else {
			p1 = &l.Points[i]
			break
		}
	}
	if p0 == nil {
		return 0, false
	}
	if p1 == nil {
		return p0.Value, true
	}
	return interpolate(*p0, *p1, t), true
}

func interpolate(p0, p1 Point, t int) float32 {
	span := p1.Tick - p0.Tick
	if span <= 0 {
		return p1.Value
	}
	u := float64(t-p0.Tick) / float64(span)

	switch p0.Curve {
	case CurveStep:
		return p0.Value
	case CurveExponential:
		if p0.Value > 0 && p1.Value > 0 {
			return float32(float64(p0.Value) * math.Pow(float64(p1.Value)/float64(p0.Value), u))
		}
		// zero/negative endpoints have no exponential path
		return lerp(p0.Value, p1.Value, u)
	case CurveLogarithmic:
		// Mirror of the exponential: fast early, slow late
		if p0.Value > 0 && p1.Value > 0 {
			expAt := float64(p0.Value) * math.Pow(float64(p1.Value)/float64(p0.Value), 1-u)
			return float32(float64(p0.Value) + float64(p1.Value) - expAt)
		}
		return lerp(p0.Value, p1.Value, u)
	}
	return lerp(p0.Value, p1.Value, u)
}

func lerp(a, b float32, u float64) float32 {
	return a + float32(u)*(b-a)
}
