package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityConstruction(t *testing.T) {
	assert.Equal(t, Quantity(50_000), NewQuantityFromInt(5))
	assert.Equal(t, Quantity(12_500), NewQuantityFromFloat64(1.25))
	assert.Equal(t, Quantity(12_500), NewQuantityFromInt64Scaled(12_500))
	assert.Equal(t, int64(12_500), NewQuantityFromFloat64(1.25).Int64Scaled())
	assert.InDelta(t, 1.25, Quantity(12_500).Float64(), 1e-9)
}

func TestQuantityString(t *testing.T) {
	cases := []struct {
		q    Quantity
		want string
	}{
		{0, "0.0000"},
		{NewQuantityFromInt(5), "5.0000"},
		{Quantity(12_500), "1.2500"},
		{Quantity(-12_500), "-1.2500"},
		{Quantity(1), "0.0001"},
		{Quantity(-1), "-0.0001"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.q.String())
	}
}

func TestQuantityJSON(t *testing.T) {
	t.Run("marshals as plain number", func(t *testing.T) {
		data, err := json.Marshal(Quantity(12_500))
		require.NoError(t, err)
		assert.Equal(t, "1.2500", string(data))
	})

	t.Run("unmarshals numbers and strings", func(t *testing.T) {
		cases := []struct {
			in   string
			want Quantity
		}{
			{`1.25`, 12_500},
			{`"1.25"`, 12_500},
			{`-0.0001`, -1},
			{`10`, 100_000},
			{`null`, 0},
			{`1.23456789`, 12_345}, // extra digits truncate
		}
		for _, tc := range cases {
			var got Quantity
			require.NoError(t, json.Unmarshal([]byte(tc.in), &got), tc.in)
			assert.Equal(t, tc.want, got, tc.in)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		var got Quantity
		assert.Error(t, json.Unmarshal([]byte(`"1.2.3"`), &got))
		assert.Error(t, json.Unmarshal([]byte(`"abc"`), &got))
	})
}

func TestQuantityScaleFloor(t *testing.T) {
	// proportional scale-down always floors toward zero
	cases := []struct {
		name        string
		q, num, den Quantity
		want        Quantity
	}{
		{"exact", NewQuantityFromInt(20), NewQuantityFromInt(50), NewQuantityFromInt(100), NewQuantityFromInt(10)},
		{"one third floors", NewQuantityFromInt(1), NewQuantityFromInt(1), NewQuantityFromInt(3), Quantity(3_333)},
		{"sub-unit", Quantity(1), NewQuantityFromInt(1), NewQuantityFromInt(2), 0},
		{"zero denominator", NewQuantityFromInt(5), NewQuantityFromInt(1), 0, 0},
		{"zero numerator", NewQuantityFromInt(5), 0, NewQuantityFromInt(10), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.q.ScaleFloor(tc.num, tc.den))
		})
	}
}

func TestQuantityPredicates(t *testing.T) {
	assert.True(t, Quantity(0).IsZero())
	assert.True(t, Quantity(1).IsPositive())
	assert.True(t, Quantity(-1).IsNegative())
	assert.Equal(t, Quantity(5), Quantity(-5).Abs())
	assert.Equal(t, Quantity(-5), Quantity(5).Neg())
}
