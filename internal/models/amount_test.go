package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
		err  error
	}{
		{"10", 1000, nil},
		{"10.5", 1050, nil},
		{" 10.00 ", 1000, nil},
		{"$2.25", 225, nil},
		{"0.1", 10, nil},
		{"0", 0, nil},
		{"", 0, ErrInvalidAmount},
		{"ten", 0, ErrInvalidAmount},
		{"NaN", 0, ErrInvalidAmount},
		{"10.", 1000, nil},
		{".5", 50, nil},
		{"-1", 0, ErrNegativeAmount},
		{"-", 0, ErrInvalidAmount},
		{".", 0, ErrInvalidAmount},
		{"10.005", 0, ErrInvalidAmount},
		{"0x1p4", 0, ErrInvalidAmount},
		{"1e17", 0, ErrInvalidAmount},
		{"Inf", 0, ErrInvalidAmount},
		{"100000000000000000", 0, ErrAmountTooLarge},
		{"99999999999999999999999", 0, ErrAmountTooLarge},
		{"-99999999999999999999999", 0, ErrNegativeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountRendering(t *testing.T) {
	assert.Equal(t, "0.00", Amount(0).String())
	assert.Equal(t, "10.00", Amount(1000).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "-1.50", Amount(-150).String())
	assert.Equal(t, "$123.45", Amount(12345).Currency())
}

func TestAmountJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Fee Amount `json:"fee"`
	}{Fee: 1050})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fee":10.50}`, string(b))

	var in struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":2.5,"b":"7.25"}`), &in))
	assert.Equal(t, Amount(250), in.A)
	assert.Equal(t, Amount(725), in.B)
}

func TestParseAmountBoundary(t *testing.T) {
	largest := MaxAmount.String()
	got, err := ParseAmount(largest)
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, got)

	_, err = ParseAmount((MaxAmount + 1).String())
	assert.ErrorIs(t, err, ErrAmountTooLarge)
}

func TestSumAvoidsFloatDrift(t *testing.T) {
	a, _ := ParseAmount("0.1")
	b, _ := ParseAmount("0.2")
	total, err := Sum(a, b)
	require.NoError(t, err)
	assert.Equal(t, "0.30", total.String())

	empty, err := Sum()
	require.NoError(t, err)
	assert.Equal(t, Amount(0), empty)
}

func TestSumRejectsOverflow(t *testing.T) {
	_, err := Sum(MaxAmount, 1)
	assert.ErrorIs(t, err, ErrAmountTooLarge)

	_, err = Sum(Amount(math.MaxInt64/2+1), Amount(math.MaxInt64/2+1))
	assert.ErrorIs(t, err, ErrAmountTooLarge)

	_, err = Sum(100, -1)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	total, err := Sum(MaxAmount-1, 1)
	require.NoError(t, err)
	assert.Equal(t, MaxAmount, total)
}

func TestAmountValidate(t *testing.T) {
	assert.NoError(t, Amount(0).Validate())
	assert.NoError(t, MaxAmount.Validate())
	assert.ErrorIs(t, (MaxAmount + 1).Validate(), ErrAmountTooLarge)
	assert.ErrorIs(t, Amount(-1).Validate(), ErrNegativeAmount)
}
