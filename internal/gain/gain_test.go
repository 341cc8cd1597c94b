package gain

import (
	"math"
	"testing"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// --- dB <-> gain ---

func TestDbToGainKnownValues(t *testing.T) {
	tests := []struct {
		db   float64
		want float64
	}{
		{0, 1},
		{20, 10},
		{-20, 0.1},
		{-40, 0.01},
		{Silence, 0},
	}
	for _, tt := range tests {
		if got := DbToGain(tt.db); !approx(got, tt.want, 1e-12) {
			t.Errorf("DbToGain(%v) = %v, want %v", tt.db, got, tt.want)
		}
	}
}

func TestGainToDbZeroAndNegative(t *testing.T) {
	for _, g := range []float64{0, -0.5, -1} {
		if got := GainToDb(g); !math.IsInf(got, -1) {
			t.Errorf("GainToDb(%v) = %v, want -Inf", g, got)
		}
	}
}

func TestGainRoundTrip(t *testing.T) {
	for i := 1; i <= 1000; i++ {
		g := float64(i) / 100 // (0, 10]
		got := DbToGain(GainToDb(g))
		if math.Abs(got-g)/g > 1e-9 {
			t.Errorf("round trip %v -> %v", g, got)
		}
	}
}

// --- positions ---

func TestPositionBoundaries(t *testing.T) {
	s := DefaultScale()
	if got := PositionToDb(0, s); !math.IsInf(got, -1) {
		t.Errorf("PositionToDb(0) = %v, want -Inf", got)
	}
	if got := PositionToDb(-0.3, s); !math.IsInf(got, -1) {
		t.Errorf("PositionToDb(-0.3) = %v, want -Inf", got)
	}
	if got := PositionToDb(1, s); got != s.MaxDb {
		t.Errorf("PositionToDb(1) = %v, want %v", got, s.MaxDb)
	}
	if got := PositionToDb(1.5, s); got != s.MaxDb {
		t.Errorf("PositionToDb(1.5) = %v, want %v", got, s.MaxDb)
	}
	if got := DbToPosition(Silence, s); got != 0 {
		t.Errorf("DbToPosition(-Inf) = %v, want 0", got)
	}
	if got := DbToPosition(s.MaxDb, s); got != 1 {
		t.Errorf("DbToPosition(max) = %v, want 1", got)
	}
	if got := DbToPosition(s.MinDb, s); got != 0 {
		t.Errorf("DbToPosition(min) = %v, want 0", got)
	}
	if got := DbToPosition(s.MaxDb+6, s); got != 1 {
		t.Errorf("DbToPosition(above max) = %v, want 1", got)
	}
}

func TestDbToPositionMonotonic(t *testing.T) {
	s := MasterScale()
	prev := -1.0
	for db := s.MinDb; db <= s.MaxDb; db += 0.25 {
		p := DbToPosition(db, s)
		if p < prev {
			t.Fatalf("DbToPosition not monotonic at %v: %v < %v", db, p, prev)
		}
		prev = p
	}
}

func TestPositionInverseAtTicks(t *testing.T) {
	for _, s := range []Scale{DefaultScale(), MasterScale()} {
		for _, tick := range CalculateDbTicks(s) {
			got := PositionToDb(tick.Position/100, s)
			if tick.IsInfinity {
				if !math.IsInf(got, -1) {
					t.Errorf("tick %s: PositionToDb = %v, want -Inf", tick.Label, got)
				}
				continue
			}
			if !approx(got, tick.Value, 1e-9) {
				t.Errorf("tick %s: PositionToDb = %v, want %v", tick.Label, got, tick.Value)
			}
		}
	}
}

func TestPositionGainComposition(t *testing.T) {
	s := DefaultScale()
	if got := PositionToGain(1, s); got != 1 {
		t.Errorf("PositionToGain(1) = %v, want 1", got)
	}
	if got := PositionToGain(0, s); got != 0 {
		t.Errorf("PositionToGain(0) = %v, want 0", got)
	}
	if got := GainToPosition(0, s); got != 0 {
		t.Errorf("GainToPosition(0) = %v, want 0", got)
	}
	if got := GainToPosition(0.5, s); !approx(got, (GainToDb(0.5)+60)/60, 1e-12) {
		t.Errorf("GainToPosition(0.5) = %v", got)
	}
}

// --- formatting and snapping ---

func TestFormatDb(t *testing.T) {
	tests := []struct {
		db        float64
		precision int
		want      string
	}{
		{Silence, 1, "-∞"},
		{0, 1, "+0.0"},
		{3.14159, 2, "+3.14"},
		{-6, 1, "-6.0"},
		{-12.25, 0, "-12"},
	}
	for _, tt := range tests {
		if got := FormatDb(tt.db, tt.precision); got != tt.want {
			t.Errorf("FormatDb(%v, %d) = %q, want %q", tt.db, tt.precision, got, tt.want)
		}
	}
}

func TestSnapToZeroDb(t *testing.T) {
	if got := SnapToZeroDb(0.4, 0.5); got != 0 {
		t.Errorf("SnapToZeroDb(0.4) = %v, want 0", got)
	}
	if got := SnapToZeroDb(-0.5, 0.5); got != 0 {
		t.Errorf("SnapToZeroDb(-0.5) = %v, want 0", got)
	}
	if got := SnapToZeroDb(0.6, 0.5); got != 0.6 {
		t.Errorf("SnapToZeroDb(0.6) = %v, want 0.6", got)
	}
	if got := SnapToZeroDb(Silence, 100); !math.IsInf(got, -1) {
		t.Errorf("SnapToZeroDb(-Inf) = %v, want -Inf", got)
	}
}

func TestSnapIdempotent(t *testing.T) {
	for _, th := range []float64{0, 0.25, 1, 3} {
		for db := -10.0; db <= 10; db += 0.125 {
			once := SnapToZeroDb(db, th)
			if twice := SnapToZeroDb(once, th); twice != once {
				t.Errorf("snap(%v, %v) not idempotent: %v then %v", db, th, once, twice)
			}
		}
	}
}

func TestSafeGain(t *testing.T) {
	if got := SafeGain(6, true); got != 1 {
		t.Errorf("SafeGain(+6, clamp) = %v, want 1", got)
	}
	if got := SafeGain(6, false); !approx(got, DbToGain(6), 1e-12) {
		t.Errorf("SafeGain(+6) = %v, want %v", got, DbToGain(6))
	}
	if got := SafeGain(Silence, true); got != 0 {
		t.Errorf("SafeGain(-Inf) = %v, want 0", got)
	}
}

// --- mixer scale ---

func TestMixerScaleAnchors(t *testing.T) {
	if got := DbToMixerGain(0); !approx(got, 0.9, 1e-12) {
		t.Errorf("DbToMixerGain(0) = %v, want 0.9", got)
	}
	if got := DbToMixerGain(10); got != 1 {
		t.Errorf("DbToMixerGain(10) = %v, want 1", got)
	}
	if got := DbToMixerGain(Silence); got != 0 {
		t.Errorf("DbToMixerGain(-Inf) = %v, want 0", got)
	}
	if got := MixerGainToDb(0); !math.IsInf(got, -1) {
		t.Errorf("MixerGainToDb(0) = %v, want -Inf", got)
	}
}

func TestMixerScaleRoundTrip(t *testing.T) {
	for db := -60.0; db <= 10; db += 0.1 {
		got := MixerGainToDb(DbToMixerGain(db))
		if !approx(got, db, 1e-6) {
			t.Errorf("mixer round trip %v -> %v", db, got)
		}
	}
}

func TestMixerScaleMonotonicAcrossUnity(t *testing.T) {
	prev := 0.0
	for db := -20.0; db <= 10; db += 0.01 {
		g := DbToMixerGain(db)
		if g < prev {
			t.Fatalf("DbToMixerGain not monotonic at %v", db)
		}
		prev = g
	}
	below := DbToMixerGain(-1e-9)
	above := DbToMixerGain(1e-9)
	if !approx(below, above, 1e-9) {
		t.Errorf("discontinuity at 0 dB: %v vs %v", below, above)
	}
}

func TestCustomMixerScale(t *testing.T) {
	m := MixerScale{UnityGain: 0.8, MaxGain: 1, MaxBoostDb: 6}
	if got := m.DbToMixerGain(3); !approx(got, 0.9, 1e-12) {
		t.Errorf("custom DbToMixerGain(3) = %v, want 0.9", got)
	}
	if got := m.MixerGainToDb(0.9); !approx(got, 3, 1e-12) {
		t.Errorf("custom MixerGainToDb(0.9) = %v, want 3", got)
	}
}

// --- ticks ---

func TestCalculateDbTicksOrderAndFlags(t *testing.T) {
	s := DefaultScale()
	ticks := CalculateDbTicks(s)
	if len(ticks) != len(s.Labels) {
		t.Fatalf("got %d ticks, want %d", len(ticks), len(s.Labels))
	}
	for i, tick := range ticks {
		if tick.Value != s.Labels[i] && !(tick.IsInfinity && math.IsInf(s.Labels[i], -1)) {
			t.Errorf("tick %d value %v, want %v", i, tick.Value, s.Labels[i])
		}
	}
	if !ticks[0].IsZeroDb || ticks[0].Label != "0" || ticks[0].Position != 100 {
		t.Errorf("first tick = %+v, want zero dB at 100%%", ticks[0])
	}
	last := ticks[len(ticks)-1]
	if !last.IsInfinity || last.Label != "-∞" || last.Position != 0 {
		t.Errorf("last tick = %+v, want -∞ at 0%%", last)
	}
	if ticks[1].Label != "-6" || !approx(ticks[1].Position, 90, 1e-9) {
		t.Errorf("second tick = %+v, want -6 at 90%%", ticks[1])
	}
}

func TestMasterTicksSigned(t *testing.T) {
	ticks := CalculateDbTicks(MasterScale())
	if ticks[0].Label != "+10" {
		t.Errorf("top master tick label = %q, want +10", ticks[0].Label)
	}
}
