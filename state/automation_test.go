package state

import (
	"math"
	"testing"
)

func lane(points ...Point) Lane {
	return Lane{Points: points, Enabled: true}
}

func TestValueAtBracketing(t *testing.T) {
	l := lane(
		Point{Tick: 100, Value: 1, Curve: CurveLinear},
		Point{Tick: 200, Value: 3, Curve: CurveLinear},
	)

	if _, ok := l.ValueAt(50); ok {
		t.Error("value before the first point should not exist")
	}
	if v, ok := l.ValueAt(100); !ok || v != 1 {
		t.Errorf("ValueAt(100) = %v, want 1", v)
	}
	if v, ok := l.ValueAt(150); !ok || v != 2 {
		t.Errorf("ValueAt(150) = %v, want 2 (linear midpoint)", v)
	}
	if v, ok := l.ValueAt(300); !ok || v != 3 {
		t.Errorf("ValueAt(300) = %v, want last value 3", v)
	}
}

func TestCurveStep(t *testing.T) {
	l := lane(
		Point{Tick: 0, Value: 5, Curve: CurveStep},
		Point{Tick: 100, Value: 9, Curve: CurveStep},
	)
	if v, _ := l.ValueAt(99); v != 5 {
		t.Errorf("step at 99 = %v, want 5", v)
	}
	if v, _ := l.ValueAt(100); v != 9 {
		t.Errorf("step at 100 = %v, want 9", v)
	}
}

func TestCurveExponential(t *testing.T) {
	l := lane(
		Point{Tick: 0, Value: 100, Curve: CurveExponential},
		Point{Tick: 100, Value: 10000, Curve: CurveExponential},
	)
	// Midpoint of an exponential sweep is the geometric mean
	v, _ := l.ValueAt(50)
	if math.Abs(float64(v)-1000) > 1 {
		t.Errorf("exponential midpoint = %v, want 1000", v)
	}
}

func TestCurveLogarithmicIsInverseOfExponential(t *testing.T) {
	l := lane(
		Point{Tick: 0, Value: 100, Curve: CurveLogarithmic},
		Point{Tick: 100, Value: 10000, Curve: CurveLogarithmic},
	)
	// Mirrored exponential: p0 + p1 - exp(1-u), so the midpoint sits
	// as far above the geometric mean as the exponential sits below
	v, _ := l.ValueAt(50)
	if math.Abs(float64(v)-9100) > 1 {
		t.Errorf("logarithmic midpoint = %v, want 9100", v)
	}
	if v0, _ := l.ValueAt(0); v0 != 100 {
		t.Errorf("logarithmic start = %v, want 100", v0)
	}
	expLane := lane(
		Point{Tick: 0, Value: 100, Curve: CurveExponential},
		Point{Tick: 100, Value: 10000, Curve: CurveExponential},
	)
	exp, _ := expLane.ValueAt(25)
	log75, _ := l.ValueAt(75)
	if math.Abs(float64(100+10000)-float64(exp)-float64(log75)) > 1 {
		t.Errorf("log(0.75)=%v is not the mirror of exp(0.25)=%v", log75, exp)
	}
}

func TestExponentialZeroEndpointFallsBackToLinear(t *testing.T) {
	l := lane(
		Point{Tick: 0, Value: 0, Curve: CurveExponential},
		Point{Tick: 100, Value: 10, Curve: CurveExponential},
	)
	if v, _ := l.ValueAt(50); v != 5 {
		t.Errorf("zero-endpoint exponential at midpoint = %v, want linear 5", v)
	}

	neg := lane(
		Point{Tick: 0, Value: -4, Curve: CurveExponential},
		Point{Tick: 100, Value: 4, Curve: CurveExponential},
	)
	if v, _ := neg.ValueAt(50); v != 0 {
		t.Errorf("negative-endpoint exponential at midpoint = %v, want linear 0", v)
	}
}

func TestInsertPointKeepsOrder(t *testing.T) {
	var l Lane
	l.InsertPoint(Point{Tick: 200, Value: 2})
	l.InsertPoint(Point{Tick: 50, Value: 1})
	l.InsertPoint(Point{Tick: 100, Value: 3})

	want := []int{50, 100, 200}
	for i, p := range l.Points {
		if p.Tick != want[i] {
			t.Fatalf("points out of order: %+v", l.Points)
		}
	}
}

func TestInsertPointDuplicateTickLastWriteWins(t *testing.T) {
	var l Lane
	l.InsertPoint(Point{Tick: 100, Value: 1})
	l.InsertPoint(Point{Tick: 100, Value: 7})

	if len(l.Points) != 1 {
		t.Fatalf("duplicate tick produced %d points", len(l.Points))
	}
	if l.Points[0].Value != 7 {
		t.Errorf("value = %v, want last write 7", l.Points[0].Value)
	}
}
