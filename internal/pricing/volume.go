package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultUnitVolumeImpact is the price move per net unit of traded volume.
var DefaultUnitVolumeImpact = decimal.NewFromFloat(0.01)

// VolumeAdjuster converts net buy/sell order flow into a signed price delta.
// The delta is added to, not multiplied into, the valuation-derived price
// change: net buying pressure pushes the price up, net selling pressure
// pushes it down, balanced flow leaves it untouched.
type VolumeAdjuster struct {
	unitImpact decimal.Decimal
}

// NewVolumeAdjuster creates a volume adjuster with the given impact per net
// unit of volume. A zero impact selects DefaultUnitVolumeImpact.
func NewVolumeAdjuster(unitImpact decimal.Decimal) (*VolumeAdjuster, error) {
	if unitImpact.IsZero() {
		unitImpact = DefaultUnitVolumeImpact
	}
	if unitImpact.IsNegative() {
		return nil, fmt.Errorf("unit volume impact must be positive, got %s", unitImpact)
	}
	return &VolumeAdjuster{unitImpact: unitImpact}, nil
}

// NetVolume returns buyVolume minus sellVolume.
func (v *VolumeAdjuster) NetVolume(buyVolume, sellVolume int64) int64 {
	return buyVolume - sellVolume
}

// Delta returns the signed price delta for the given order flow.
func (v *VolumeAdjuster) Delta(buyVolume, sellVolume int64) decimal.Decimal {
	net := v.NetVolume(buyVolume, sellVolume)
	return v.unitImpact.Mul(decimal.NewFromInt(net))
}
