package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name           string
		gross          string
		rate           string
		wantNet        string
		wantCommission string
	}{
		{"five percent of a hundred", "100", "0.05", "95", "5"},
		{"zero rate", "42.17", "0", "42.17", "0"},
		{"full rate", "10", "1", "0", "10"},
		{"rounds half away from zero", "10.10", "0.05", "9.59", "0.51"},
		{"rounds down", "7.77", "0.03", "7.54", "0.23"},
		{"usdt precision gross", "12.345678", "0.025", "12.035678", "0.31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, commission, err := Compute(decimal.RequireFromString(tt.gross), decimal.RequireFromString(tt.rate))
			require.NoError(t, err)
			assert.True(t, net.Equal(decimal.RequireFromString(tt.wantNet)), "net = %s, want %s", net, tt.wantNet)
			assert.True(t, commission.Equal(decimal.RequireFromString(tt.wantCommission)), "commission = %s, want %s", commission, tt.wantCommission)
		})
	}
}

func TestCompute_SplitIsExact(t *testing.T) {
	rates := []string{"0", "0.01", "0.033", "0.05", "0.075", "0.1", "0.125", "0.333333", "0.5", "1"}
	for cents := int64(1); cents <= 5000; cents += 37 {
		gross := decimal.New(cents, -2)
		for _, r := range rates {
			rate := decimal.RequireFromString(r)
			net, commission, err := Compute(gross, rate)
			require.NoError(t, err)
			if !net.Add(commission).Equal(gross) {
				t.Fatalf("net %s + commission %s != gross %s at rate %s", net, commission, gross, r)
			}
			if !commission.Equal(commission.Round(Places)) {
				t.Fatalf("commission %s carries more than %d places", commission, Places)
			}
		}
	}
}

func TestCompute_RejectsBadInput(t *testing.T) {
	_, _, err := Compute(decimal.NewFromInt(100), decimal.RequireFromString("1.01"))
	assert.Error(t, err)

	_, _, err = Compute(decimal.NewFromInt(100), decimal.RequireFromString("-0.01"))
	assert.Error(t, err)

	_, _, err = Compute(decimal.NewFromInt(-1), decimal.RequireFromString("0.05"))
	assert.Error(t, err)
}
