package pricing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
)

// Default price-mapping constants. A weighted score is scaled by
// defaultScaleFactor to produce a monetary price; scores at or below zero
// fall back to a price drawn uniformly from [defaultFloorMin, defaultFloorMax).
const (
	defaultScaleFactor = 10.0
	defaultFloorMin    = 0.25
	defaultFloorMax    = 0.5
)

// DefaultWeights returns the per-category weight table used to score player
// performance. Turnovers and field-goal attempts carry negative weight.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		domain.StatPoints:        0.20,
		domain.StatAssists:       0.15,
		domain.StatRebounds:      0.12,
		domain.StatSteals:        0.10,
		domain.StatThreePointPct: 0.10,
		domain.StatBlocks:        0.09,
		domain.StatPlusMinus:     0.08,
		domain.StatFieldGoalPct:  0.04,
		domain.StatTurnovers:     -0.05,
		domain.StatFGAttempts:    -0.03,
	}
}

// ValuationConfig holds configuration for the valuation engine. Zero values
// select the defaults; Rand may be set to a seeded source to make the price
// floor reproducible in tests.
type ValuationConfig struct {
	Weights     map[string]float64
	ScaleFactor float64
	FloorMin    float64
	FloorMax    float64
	Rand        *rand.Rand
}

// Valuation converts aggregated per-category averages into a weighted
// performance score and maps that score to a share price.
type Valuation struct {
	weights     map[string]float64
	scaleFactor float64
	floorMin    float64
	floorMax    float64
	rng         *rand.Rand
}

// NewValuation creates a valuation engine from the given configuration.
func NewValuation(cfg ValuationConfig) (*Valuation, error) {
	weights := cfg.Weights
	if weights == nil {
		weights = DefaultWeights()
	}
	scale := cfg.ScaleFactor
	if scale == 0 {
		scale = defaultScaleFactor
	}
	if scale < 0 {
		return nil, fmt.Errorf("scale factor must be positive, got %v", cfg.ScaleFactor)
	}
	floorMin, floorMax := cfg.FloorMin, cfg.FloorMax
	if floorMin == 0 && floorMax == 0 {
		floorMin, floorMax = defaultFloorMin, defaultFloorMax
	}
	if floorMin <= 0 || floorMax <= floorMin {
		return nil, fmt.Errorf("invalid price floor band [%v, %v)", floorMin, floorMax)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Valuation{
		weights:     weights,
		scaleFactor: scale,
		floorMin:    floorMin,
		floorMax:    floorMax,
		rng:         rng,
	}, nil
}

// Score computes the weighted performance score for the given category
// averages. Categories absent from the weight table contribute nothing.
func (v *Valuation) Score(averages map[string]float64) float64 {
	score := 0.0
	for category, avg := range averages {
		if weight, ok := v.weights[category]; ok {
			score += avg * weight
		}
	}
	return score
}

// Price maps category averages to a share price: score times the scale
// factor, rounded half-up to 2 decimal places. A raw price at or below zero
// is replaced with a small randomized positive floor so newly priced or
// poorly performing players always stay tradable. The randomized floor is a
// deliberate fallback, reproducible within the configured band.
func (v *Valuation) Price(averages map[string]float64) decimal.Decimal {
	raw := v.Score(averages) * v.scaleFactor
	if raw <= 0 {
		raw = v.floorMin + v.rng.Float64()*(v.floorMax-v.floorMin)
	}
	return decimal.NewFromFloat(raw).Round(2)
}
