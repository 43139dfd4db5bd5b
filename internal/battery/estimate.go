package battery

import (
	"math"
	"time"
)

// maxEstimate drops charge-time estimates derived from a near-zero rate.
const maxEstimate = 10 * 24 * time.Hour

// ClampPercent limits p to the 0..100 range. NaN becomes 0.
func ClampPercent(p float32) float32 {
	switch {
	case math.IsNaN(float64(p)), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// ChargePercent is energy relative to energyFull, clamped to 0..100.
func ChargePercent(energy, energyFull uint32) float32 {
	if energyFull == 0 {
		return 0
	}
	return ClampPercent(float32(float64(energy) / float64(energyFull) * 100))
}

// HealthPercent is energyFull relative to the design energy, clamped to
// 0..100. An unknown design energy reports full health.
func HealthPercent(energyFull, energyFullDesign uint32) float32 {
	if energyFullDesign == 0 {
		return 100
	}
	return ClampPercent(float32(float64(energyFull) / float64(energyFullDesign) * 100))
}

// EstimateTimeToFull is the time to charge from energy to energyFull at
// rate mW. It is absent unless the state is StateCharging.
func EstimateTimeToFull(state State, energy, energyFull, rate uint32) (time.Duration, bool) {
	if state != StateCharging || rate == 0 || energyFull <= energy {
		return 0, false
	}
	return hoursToDuration(float64(energyFull-energy) / float64(rate))
}

// EstimateTimeToEmpty is the time to drain energy at rate mW. It is absent
// unless the state is StateDischarging.
func EstimateTimeToEmpty(state State, energy, rate uint32) (time.Duration, bool) {
	if state != StateDischarging || rate == 0 || energy == 0 {
		return 0, false
	}
	return hoursToDuration(float64(energy) / float64(rate))
}

// GateTimeToFull drops an OS-supplied estimate that does not match state.
func GateTimeToFull(state State, d time.Duration) (time.Duration, bool) {
	if state != StateCharging || d <= 0 || d > maxEstimate {
		return 0, false
	}
	return d, true
}

// GateTimeToEmpty drops an OS-supplied estimate that does not match state.
func GateTimeToEmpty(state State, d time.Duration) (time.Duration, bool) {
	if state != StateDischarging || d <= 0 || d > maxEstimate {
		return 0, false
	}
	return d, true
}

func hoursToDuration(h float64) (time.Duration, bool) {
	d := time.Duration(math.Round(h*3600)) * time.Second
	if d <= 0 || d > maxEstimate {
		return 0, false
	}
	return d, true
}
