package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusStatsZeroFills(t *testing.T) {
	out := statusStats([]groupCount{{ID: "open", Count: 3}})
	require.Equal(t, map[string]int{
		"open":        3,
		"in-progress": 0,
		"resolved":    0,
	}, out)
}

func TestStatusStatsSumsToTotal(t *testing.T) {
	counts := []groupCount{
		{ID: "open", Count: 4},
		{ID: "in-progress", Count: 2},
		{ID: "resolved", Count: 5},
	}
	out := statusStats(counts)
	sum := 0
	for _, n := range out {
		sum += n
	}
	require.Equal(t, 11, sum)
}

func TestCategoryStatsZeroFillsAllSix(t *testing.T) {
	out := categoryStats([]groupCount{{ID: "plastic", Count: 7}})
	require.Len(t, out, 6)
	require.Equal(t, 7, out["plastic"])
	for _, cat := range []string{"organic", "hazardous", "electronic", "construction", "other"} {
		require.Equal(t, 0, out[cat], cat)
	}
}

func TestSeverityStatsZeroFills(t *testing.T) {
	out := severityStats(nil)
	require.Equal(t, map[string]int{"low": 0, "medium": 0, "high": 0}, out)
}

func TestResolutionRate(t *testing.T) {
	tests := []struct {
		resolved, total int64
		want            float64
	}{
		{0, 0, 0}, // empty collection: 0, not NaN
		{0, 10, 0},
		{5, 10, 50},
		{10, 10, 100},
		{1, 3, 33.33},
		{2, 3, 66.67},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, resolutionRate(tt.resolved, tt.total))
	}
}

func TestMillisToHours(t *testing.T) {
	require.Equal(t, 1.0, millisToHours(3600*1000))
	require.Equal(t, 0.5, millisToHours(1800*1000))
	require.Equal(t, 26.5, millisToHours(26.5*3600*1000))
	require.Equal(t, 0.0, millisToHours(0))
}
