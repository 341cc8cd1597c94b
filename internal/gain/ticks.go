package gain

import (
	"math"
	"strconv"
)

// Tick is one ruler mark next to a fader.
type Tick struct {
	Value      float64 // dB
	Position   float64 // percent from the bottom of the track
	Label      string
	IsZeroDb   bool
	IsInfinity bool
}

// CalculateDbTicks returns one tick per label in the scale, in label order.
func CalculateDbTicks(s Scale) []Tick {
	ticks := make([]Tick, 0, len(s.Labels))
	for _, db := range s.Labels {
		inf := math.IsInf(db, -1)
		ticks = append(ticks, Tick{
			Value:      db,
			Position:   DbToPosition(db, s) * 100,
			Label:      tickLabel(db),
			IsZeroDb:   db == 0,
			IsInfinity: inf,
		})
	}
	return ticks
}

func tickLabel(db float64) string {
	switch {
	case math.IsInf(db, -1):
		return "-∞"
	case db > 0:
		return "+" + strconv.FormatFloat(db, 'f', -1, 64)
	default:
		return strconv.FormatFloat(db, 'f', -1, 64)
	}
}
