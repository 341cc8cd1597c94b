package gain

import "math"

// MixerScale remaps dB onto a gain range that reserves the top of the
// fader for boost. Below 0 dB the curve is the usual dB law scaled so that
// 0 dB lands on UnityGain; between 0 dB and MaxBoostDb gain rises linearly
// from UnityGain to MaxGain.
type MixerScale struct {
	UnityGain  float64
	MaxGain    float64
	MaxBoostDb float64
}

// DefaultMixerScale puts 0 dB at 0.9 and +10 dB at 1.0.
func DefaultMixerScale() MixerScale {
	return MixerScale{UnityGain: 0.9, MaxGain: 1.0, MaxBoostDb: 10}
}

// DbToMixerGain converts db to mixer-scale gain.
func (m MixerScale) DbToMixerGain(db float64) float64 {
	if math.IsInf(db, -1) {
		return 0
	}
	if db <= 0 {
		return m.UnityGain * DbToGain(db)
	}
	if db >= m.MaxBoostDb {
		return m.MaxGain
	}
	return m.UnityGain + (m.MaxGain-m.UnityGain)*db/m.MaxBoostDb
}

// MixerGainToDb is the inverse of DbToMixerGain.
func (m MixerScale) MixerGainToDb(g float64) float64 {
	if g <= 0 {
		return Silence
	}
	if g <= m.UnityGain {
		return GainToDb(g / m.UnityGain)
	}
	if g >= m.MaxGain {
		return m.MaxBoostDb
	}
	return (g - m.UnityGain) / (m.MaxGain - m.UnityGain) * m.MaxBoostDb
}

// DbToMixerGain converts with the default mixer scale.
func DbToMixerGain(db float64) float64 {
	return DefaultMixerScale().DbToMixerGain(db)
}

// MixerGainToDb converts with the default mixer scale.
func MixerGainToDb(g float64) float64 {
	return DefaultMixerScale().MixerGainToDb(g)
}
