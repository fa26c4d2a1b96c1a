package rates

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		category string
		wantErr  string
	}{
		{"software", ""},
		{"home_office", ""},
		{"clothing", "never deductible"},
		{"salary", "income, not a deduction"},
		{"no_such_category", "unknown category"},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			err := Validate(tt.category)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRateStandardVsConservative(t *testing.T) {
	std, err := Rate("internet", false)
	require.NoError(t, err)
	assert.True(t, std.Equal(decimal.RequireFromString("0.3")))

	cons, err := Rate("internet", true)
	require.NoError(t, err)
	assert.True(t, cons.Equal(decimal.RequireFromString("0.2")))
	assert.True(t, cons.LessThan(std))
}

func TestRateRejectsProhibited(t *testing.T) {
	_, err := Rate("groceries", false)
	assert.Error(t, err)
}

func TestBasis(t *testing.T) {
	basis, err := Basis("home_office")
	require.NoError(t, err)
	assert.Equal(t, "ATO_DIVISION_63_SIMPLIFIED", basis)

	basis, err = Basis("software")
	require.NoError(t, err)
	assert.Equal(t, "ITAA97_DIVISION_8_NEXUS_SOFTWARE", basis)

	_, err = Basis("transfers")
	assert.Error(t, err)
}

func TestDivisionFor(t *testing.T) {
	d, ok := DivisionFor("home_office")
	require.True(t, ok)
	assert.Equal(t, Division63, d)

	_, ok = DivisionFor("unknown")
	assert.False(t, ok)
}
