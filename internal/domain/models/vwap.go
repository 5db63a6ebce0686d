package models

// VWAPData is one bar's session VWAP snapshot with standard deviation bands.
// Band ordering Lower2 <= Lower1 <= VWAP <= Upper1 <= Upper2 holds by
// construction.
type VWAPData struct {
	Timestamp int64   `json:"timestamp"`
	VWAP      float64 `json:"vwap"`

	Upper1 float64 `json:"upper_1std"`
	Lower1 float64 `json:"lower_1std"`
	Upper2 float64 `json:"upper_2std"`
	Lower2 float64 `json:"lower_2std"`

	CumulativePV     float64 `json:"cumulative_pv"`
	CumulativeVolume float64 `json:"cumulative_volume"`

	Slope float64 `json:"slope"`
}

// StdDev is the band half-width implied by the ±1σ band.
func (v *VWAPData) StdDev() float64 { return v.Upper1 - v.VWAP }

// BandPosition returns the price position in band units: 0 at VWAP, +1 at
// the upper 1σ band, -1 at the lower. 0 when the bands are degenerate.
func (v *VWAPData) BandPosition(price float64) float64 {
	sd := v.StdDev()
	if sd == 0 {
		return 0
	}
	return (price - v.VWAP) / sd
}

// InPullbackZone reports whether price is within tolerancePct percent of the
// VWAP itself.
func (v *VWAPData) InPullbackZone(price, tolerancePct float64) bool {
	if v.VWAP == 0 {
		return false
	}
	diff := (price - v.VWAP) / v.VWAP * 100
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerancePct
}
