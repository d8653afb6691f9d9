package schedule

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationPointsMergesBothCurves(t *testing.T) {
	discount := []float64{0.25, 1, 2, 5, 10}
	credit := []float64{0.5, 1, 3, 5, 7}

	knots := IntegrationPoints(0.1, 6.0, discount, credit)

	assert.Equal(t, []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 6.0}, knots)
}

func TestIntegrationPointsProperties(t *testing.T) {
	tests := []struct {
		name   string
		start  float64
		end    float64
		nodesA []float64
		nodesB []float64
	}{
		{"no interior nodes", 0, 0.2, []float64{1, 2}, []float64{0.5}},
		{"negative start", -0.1, 4.93, []float64{1, 2, 3, 5, 7, 10}, []float64{0.5, 1, 3, 5, 7, 10}},
		{"nodes on the bounds", 1, 5, []float64{1, 2, 5}, []float64{1, 5}},
		{"empty sets", 0, 3, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			knots := IntegrationPoints(tt.start, tt.end, tt.nodesA, tt.nodesB)

			require.GreaterOrEqual(t, len(knots), 2)
			assert.Equal(t, tt.start, knots[0])
			assert.Equal(t, tt.end, knots[len(knots)-1])
			assert.True(t, sort.Float64sAreSorted(knots))
			for i := 1; i < len(knots); i++ {
				assert.Greater(t, knots[i]-knots[i-1], Tolerance)
			}
			for _, node := range append(append([]float64{}, tt.nodesA...), tt.nodesB...) {
				if node > tt.start+Tolerance && node < tt.end-Tolerance {
					assert.Contains(t, knots, node)
				}
			}
		})
	}
}

func TestIntegrationPointsDropsNearDuplicates(t *testing.T) {
	knots := IntegrationPoints(0, 2, []float64{1.0}, []float64{1.0 + 1e-4, 2 - 1e-4})
	assert.Equal(t, []float64{0, 1.0, 2}, knots)
}

func TestTruncateInclusive(t *testing.T) {
	knots := []float64{-0.07, 0.5, 1, 2, 3, 4.93}

	tests := []struct {
		name         string
		lower, upper float64
		want         []float64
	}{
		{"inserts both bounds", 0.2, 2.5, []float64{0.2, 0.5, 1, 2, 2.5}},
		{"bounds on knots", 1, 3, []float64{1, 2, 3}},
		{"no interior knot", 1.1, 1.3, []float64{1.1, 1.3}},
		{"bounds outside nearby knots", 0.5 + 1e-4, 2 - 1e-4, []float64{0.5 + 1e-4, 1, 2 - 1e-4}},
		{"bounds replace nearby knots", 0.5 - 1e-4, 2 + 1e-4, []float64{0.5 - 1e-4, 1, 2 + 1e-4}},
		{"single knot next to both bounds", 1 - 1e-4, 1 + 1e-4, []float64{1 - 1e-4, 1 + 1e-4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateInclusive(tt.lower, tt.upper, knots))
		})
	}
}
