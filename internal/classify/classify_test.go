package classify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tysonq/taxmate/internal/domain"
)

func TestClassifyCaseInsensitive(t *testing.T) {
	rules := Rules{
		"groceries": {"woolworths", "coles"},
		"software":  {"jetbrains"},
	}

	assert.Equal(t, []string{"groceries"}, Classify("WOOLWORTHS METRO 123", rules))
	assert.Equal(t, []string{"groceries"}, Classify("  coles express  ", rules))
	assert.Empty(t, Classify("unrelated merchant", rules))
}

func TestClassifyMultipleCategoriesSorted(t *testing.T) {
	rules := Rules{
		"software":      {"github"},
		"subscriptions": {"github"},
	}

	got := Classify("GITHUB.COM MONTHLY", rules)
	assert.Equal(t, []string{"software", "subscriptions"}, got)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	rules := Rules{"transfers": {"transfer to"}}
	in := []domain.Transaction{{
		Description: "transfer to janice",
		Amount:      domain.NewMoney(decimal.NewFromInt(-100), domain.AUD),
	}}

	out := Apply(in, rules)

	require.Len(t, out, 1)
	assert.True(t, out[0].IsTransfer)
	assert.Equal(t, []string{"transfers"}, out[0].Categories)
	assert.Nil(t, in[0].Categories)
	assert.False(t, in[0].IsTransfer)
}

func TestLoadRulesSkipsCommentsAndBlanks(t *testing.T) {
	dir := t.TempDir()
	content := "# supermarket chains\nwoolworths\n\ncoles\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "groceries.txt"), []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("# nothing yet\n"), 0o644))

	rules, err := LoadRules(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"woolworths", "coles"}, rules["groceries"])
	_, ok := rules["empty"]
	assert.False(t, ok, "categories with no keywords are dropped")
}

func TestAddRule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "groceries.txt"), []byte("woolworths\n"), 0o644))

	require.NoError(t, AddRule(dir, "groceries", "Aldi"))
	// Duplicate insert is a no-op.
	require.NoError(t, AddRule(dir, "groceries", "Aldi"))

	rules, err := LoadRules(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aldi", "woolworths"}, rules["groceries"])

	err = AddRule(dir, "nonexistent", "anything")
	assert.Error(t, err)
}

func TestMeasureCoverage(t *testing.T) {
	txn := func(amount string, cats ...string) domain.Transaction {
		return domain.Transaction{
			Date:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Amount:     domain.NewMoney(decimal.RequireFromString(amount), domain.AUD),
			Categories: cats,
		}
	}

	cov := MeasureCoverage([]domain.Transaction{
		txn("-100", "groceries"),
		txn("-300"),
		txn("2000", "income"),
	})

	assert.Equal(t, 3, cov.Total)
	assert.Equal(t, 2, cov.Labeled)
	assert.InDelta(t, 66.7, cov.PctTxns(), 0.1)
	assert.InDelta(t, 25.0, cov.PctDebit(), 0.001)
	assert.InDelta(t, 100.0, cov.PctCredit(), 0.001)
}

func TestMeasureCoverageEmpty(t *testing.T) {
	cov := MeasureCoverage(nil)
	assert.Zero(t, cov.PctTxns())
	assert.Zero(t, cov.PctDebit())
}
