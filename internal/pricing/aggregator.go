package pricing

import (
	"context"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
	"github.com/JTSmullen/AthletiTrade/internal/ports"
)

// Aggregator reduces a chronological game log into per-category arithmetic
// means. Aggregation is best-effort: malformed rows are skipped with a log
// line and an empty or unusable log yields an empty map, never an error.
type Aggregator struct {
	logger ports.Logger
}

// NewAggregator creates a new stats aggregator.
func NewAggregator(logger ports.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Averages computes the mean of every stat category across the given rows.
// A window > 0 restricts the computation to the most recent window rows
// (rolling average); rows are expected in chronological order, most recent
// last. A category missing from a row is treated as not observed for that
// game: it is excluded from both the sum and the count, so sparse categories
// still average correctly over the games where they appeared.
func (a *Aggregator) Averages(ctx context.Context, rows []domain.GameStatRow, window int) map[string]float64 {
	averages := make(map[string]float64)
	if len(rows) == 0 {
		return averages
	}

	if window > 0 && len(rows) > window {
		rows = rows[len(rows)-window:]
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	skipped := 0
	for _, row := range rows {
		if len(row) == 0 {
			skipped++
			continue
		}
		for category, value := range row {
			sums[category] += value
			counts[category]++
		}
	}
	if skipped > 0 && a.logger != nil {
		a.logger.Warn(ctx, "Skipped malformed game stat rows during aggregation",
			map[string]interface{}{"skipped": skipped, "total": len(rows)})
	}

	for category, sum := range sums {
		if n := counts[category]; n > 0 {
			averages[category] = sum / float64(n)
		}
	}
	return averages
}
