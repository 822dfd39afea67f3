package audio

import (
	"testing"
	"time"
)

func TestTimeFromNowIsMonotonic(t *testing.T) {
	a := TimeFromNow(0)
	time.Sleep(time.Millisecond)
	b := TimeFromNow(0)
	if b <= a {
		t.Errorf("timetags not increasing: %d then %d", a, b)
	}
}

func TestTimeFromNowOffsetSeconds(t *testing.T) {
	now := TimeFromNow(0)
	future := TimeFromNow(2.0)

	gotSecs := int64(future>>32) - int64(now>>32)
	// The fractional carry can shift the whole-second field by one
	if gotSecs < 1 || gotSecs > 3 {
		t.Errorf("offset of 2s moved the seconds field by %d", gotSecs)
	}
}

func TestTimeFromNowUsesNtpEpoch(t *testing.T) {
	tt := TimeFromNow(0)
	secs := uint64(tt >> 32)
	unixNow := uint64(time.Now().Unix())
	// NTP seconds = Unix seconds + offset to 1900
	want := unixNow + ntpUnixOffset
	if secs < want-2 || secs > want+2 {
		t.Errorf("timetag seconds %d, want ~%d", secs, want)
	}
}

func TestTicksPerSecond(t *testing.T) {
	cases := []struct {
		bpm  float64
		want float64
	}{
		{120, 960},
		{60, 480},
		{150, 1200},
	}
	for _, c := range cases {
		if got := TicksPerSecond(c.bpm); got != c.want {
			t.Errorf("TicksPerSecond(%v) = %v, want %v", c.bpm, got, c.want)
		}
	}
}
