package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosition(t *testing.T) {
	tests := []struct {
		name    string
		x, y    float64
		wantErr bool
	}{
		{name: "origin", x: 0, y: 0},
		{name: "negative coordinates", x: -12.5, y: -3},
		{name: "NaN x", x: math.NaN(), y: 0, wantErr: true},
		{name: "infinite y", x: 0, y: math.Inf(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := NewPosition(tt.x, tt.y)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.x, pos.X())
			assert.Equal(t, tt.y, pos.Y())
		})
	}
}

func TestRandomPosition(t *testing.T) {
	values := []float64{0.25, 0.75}
	i := 0
	pos := RandomPosition(func() float64 {
		v := values[i]
		i++
		return v
	})

	assert.Equal(t, 0.25, pos.X())
	assert.Equal(t, 0.75, pos.Y())
}

func TestPosition_TranslateAndDistance(t *testing.T) {
	p, err := NewPosition(0, 0)
	require.NoError(t, err)

	q := p.Translate(3, 4)
	assert.Equal(t, 5.0, p.DistanceTo(q))
	assert.True(t, q.Equals(q.Translate(0, 0)))
	assert.False(t, p.Equals(q))
}
