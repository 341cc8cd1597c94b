// Package gain converts between linear gain, decibels and fader positions.
//
// Everything here is pure. Negative infinity stands for silence on the dB
// side and maps to a gain of exactly zero.
package gain

import (
	"math"
	"strconv"
)

// Silence is the dB value of a zero gain.
var Silence = math.Inf(-1)

// Scale describes a fader's dB range and the ruler labels drawn next to it.
type Scale struct {
	MinDb  float64
	MaxDb  float64
	Labels []float64 // ruler order, top to bottom; may contain Silence
}

// DefaultScale is the sub-channel fader range: -60 dB to 0 dB.
func DefaultScale() Scale {
	return Scale{
		MinDb:  -60,
		MaxDb:  0,
		Labels: []float64{0, -6, -12, -18, -24, -36, -48, Silence},
	}
}

// MasterScale is the master fader range with +10 dB of mixer-scale headroom.
func MasterScale() Scale {
	return Scale{
		MinDb:  -60,
		MaxDb:  10,
		Labels: []float64{10, 5, 0, -6, -12, -24, -36, -48, Silence},
	}
}

// DbToGain returns 10^(db/20). Negative infinity yields 0.
func DbToGain(db float64) float64 {
	if math.IsInf(db, -1) {
		return 0
	}
	return math.Pow(10, db/20)
}

// GainToDb returns 20·log10(g), or negative infinity for g <= 0.
func GainToDb(g float64) float64 {
	if g <= 0 {
		return Silence
	}
	return 20 * math.Log10(g)
}

// PositionToDb maps a fader position in [0,1] linearly onto the scale.
// Position 0 (or below) is silence; position 1 (or above) is MaxDb.
func PositionToDb(position float64, s Scale) float64 {
	if position <= 0 {
		return Silence
	}
	if position >= 1 {
		return s.MaxDb
	}
	return s.MinDb + position*(s.MaxDb-s.MinDb)
}

// DbToPosition is the clamped inverse of PositionToDb.
func DbToPosition(db float64, s Scale) float64 {
	if math.IsNaN(db) || db <= s.MinDb {
		return 0
	}
	if db >= s.MaxDb {
		return 1
	}
	return (db - s.MinDb) / (s.MaxDb - s.MinDb)
}

// PositionToGain composes PositionToDb and DbToGain.
func PositionToGain(position float64, s Scale) float64 {
	return DbToGain(PositionToDb(position, s))
}

// GainToPosition composes GainToDb and DbToPosition.
func GainToPosition(g float64, s Scale) float64 {
	return DbToPosition(GainToDb(g), s)
}

// FormatDb renders a dB value with the given number of decimals. Non-negative
// values always carry a plus sign and silence renders as "-∞".
func FormatDb(db float64, precision int) string {
	if math.IsInf(db, -1) {
		return "-∞"
	}
	s := strconv.FormatFloat(db, 'f', precision, 64)
	if db >= 0 {
		return "+" + s
	}
	return s
}

// SnapToZeroDb returns 0 when db lies within threshold of 0 dB.
func SnapToZeroDb(db, threshold float64) float64 {
	if math.IsInf(db, -1) || math.IsNaN(db) {
		return db
	}
	if math.Abs(db) <= threshold {
		return 0
	}
	return db
}

// SafeGain converts db to gain, optionally clamping the result to [0,1] for
// outputs that reject gain above unity.
func SafeGain(db float64, clamp01 bool) float64 {
	g := DbToGain(db)
	if clamp01 {
		return Clamp(g, 0, 1)
	}
	return g
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
