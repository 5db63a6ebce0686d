package models

// StructureEvent is a TPO structure interaction detected at bar close.
type StructureEvent string

const (
	StructureVALBounce    StructureEvent = "VAL_BOUNCE"
	StructureVALBreak     StructureEvent = "VAL_BREAK"
	StructureVAHRejection StructureEvent = "VAH_REJECTION"
	StructureVAHBreakout  StructureEvent = "VAH_BREAKOUT"
	StructurePOCReclaim   StructureEvent = "POC_RECLAIM"
	StructurePOCBreakdown StructureEvent = "POC_BREAKDOWN"
	StructureInsideValue  StructureEvent = "INSIDE_VALUE_AREA"
	StructureOutsideValue StructureEvent = "OUTSIDE_VALUE_AREA"
)

// PriceLevel is one rung of the TPO price ladder: tick-quantized price, the
// volume accumulated there and the TPO letters that touched it.
type PriceLevel struct {
	Price   float64 `json:"price"`
	Volume  float64 `json:"volume"`
	Letters string  `json:"letters"`
}

// TPOProfile is an immutable snapshot of one session's market profile.
// Levels are ordered ascending by price. VAL <= POC <= VAH always holds.
type TPOProfile struct {
	SessionStart int64 `json:"session_start"`
	SessionEnd   int64 `json:"session_end"`

	POC float64 `json:"poc"`
	VAH float64 `json:"vah"`
	VAL float64 `json:"val"`

	Levels []PriceLevel `json:"levels"`

	TotalVolume     float64 `json:"total_volume"`
	ValueAreaVolume float64 `json:"value_area_volume"`
}

func (p *TPOProfile) ValueAreaRange() float64 { return p.VAH - p.VAL }

// POCPosition is where the POC sits inside the value area, 0..1 with 0.5
// meaning centered. Degenerate value areas report 0.5.
func (p *TPOProfile) POCPosition() float64 {
	r := p.ValueAreaRange()
	if r == 0 {
		return 0.5
	}
	return (p.POC - p.VAL) / r
}

func (p *TPOProfile) IsInsideValueArea(price float64) bool {
	return price >= p.VAL && price <= p.VAH
}

func (p *TPOProfile) DistanceToPOC(price float64) float64 {
	if price > p.POC {
		return price - p.POC
	}
	return p.POC - price
}
