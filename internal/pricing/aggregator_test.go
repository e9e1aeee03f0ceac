package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JTSmullen/AthletiTrade/internal/domain"
)

func TestAggregator_Averages(t *testing.T) {
	tests := []struct {
		name   string
		rows   []domain.GameStatRow
		window int
		want   map[string]float64
	}{
		{
			name:   "empty input yields empty map",
			rows:   nil,
			window: 0,
			want:   map[string]float64{},
		},
		{
			name: "full-history average",
			rows: []domain.GameStatRow{
				{"PTS": 10, "REB": 4},
				{"PTS": 20, "REB": 6},
				{"PTS": 30, "REB": 8},
			},
			window: 0,
			want:   map[string]float64{"PTS": 20, "REB": 6},
		},
		{
			name: "rolling window keeps most recent games",
			rows: []domain.GameStatRow{
				{"PTS": 10},
				{"PTS": 20},
				{"PTS": 30},
				{"PTS": 40},
			},
			window: 2,
			want:   map[string]float64{"PTS": 35},
		},
		{
			name: "window larger than history uses all rows",
			rows: []domain.GameStatRow{
				{"PTS": 10},
				{"PTS": 20},
			},
			window: 20,
			want:   map[string]float64{"PTS": 15},
		},
		{
			name: "missing category excluded from sum and count",
			rows: []domain.GameStatRow{
				{"PTS": 10, "STL": 2},
				{"PTS": 20},
				{"PTS": 30, "STL": 4},
			},
			window: 0,
			// STL averaged over the two games where it was observed.
			want: map[string]float64{"PTS": 20, "STL": 3},
		},
		{
			name: "malformed rows skipped without error",
			rows: []domain.GameStatRow{
				{"PTS": 10},
				nil,
				{},
				{"PTS": 30},
			},
			window: 0,
			want:   map[string]float64{"PTS": 20},
		},
	}

	agg := NewAggregator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := agg.Averages(context.Background(), tt.rows, tt.window)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregator_WindowSelectsTail(t *testing.T) {
	// Rows are chronological, most recent last; the window must keep the
	// tail of the slice, not the head.
	rows := []domain.GameStatRow{
		{"PTS": 0},
		{"PTS": 0},
		{"PTS": 50},
	}
	agg := NewAggregator(nil)
	got := agg.Averages(context.Background(), rows, 1)
	assert.Equal(t, map[string]float64{"PTS": 50}, got)
}
