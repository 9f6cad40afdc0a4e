package number

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Number
		want bool
	}{
		{"same int", Int(5), Int(5), true},
		{"different int", Int(5), Int(6), false},
		{"same float", Float(1.5), Float(1.5), true},
		{"int promotes to float", Int(3), Float(3), true},
		{"int promotes to float, unequal", Int(3), Float(3.5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestNumberOrdering(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Number
		compare int
	}{
		{"int less", Int(1), Int(2), -1},
		{"int greater", Int(2), Int(1), 1},
		{"int equal", Int(2), Int(2), 0},
		{"float less", Float(1.1), Float(2.2), -1},
		{"mixed less", Int(2), Float(2.5), -1},
		{"mixed greater", Float(2.5), Int(2), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.compare, tt.a.Compare(tt.b))
			require.Equal(t, tt.compare < 0, tt.a.Less(tt.b))
			require.Equal(t, tt.compare > 0, tt.a.Greater(tt.b))
		})
	}
}

func TestNumberNegate(t *testing.T) {
	require.Equal(t, Int(-5), Int(5).Negate())
	require.Equal(t, Float(-2.5), Float(2.5).Negate())
}

func TestNumberConversions(t *testing.T) {
	require.Equal(t, int64(3), Float(3.9).Int64())
	require.Equal(t, float64(3), Int(3).Float64())
	require.False(t, Int(1).IsFloat())
	require.True(t, Float(1).IsFloat())
}
