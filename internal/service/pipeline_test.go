package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tysonq/taxmate/internal/config"
	"github.com/tysonq/taxmate/internal/domain"
	"github.com/tysonq/taxmate/internal/storage/csvstore"
	"github.com/tysonq/taxmate/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", true); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupBaseDir(t *testing.T) (base, rules string) {
	t.Helper()
	base = t.TempDir()
	rules = filepath.Join(base, "rules")

	writeFile(t, filepath.Join(rules, "software.txt"), "github\n")
	writeFile(t, filepath.Join(rules, "groceries.txt"), "woolworths\ncoles\n")

	writeFile(t, filepath.Join(base, "fy25", "raw", "alex", "anz.csv"),
		"date_raw,amount,description_raw\n"+
			"15/08/2024,-29.00,GITHUB\n"+
			"16/08/2024,-45.50,WOOLWORTHS METRO\n")

	writeFile(t, filepath.Join(base, "fy25", "raw", "alex", "trades.csv"),
		"date,code,action,units,price,fee,owner\n"+
			"2023-01-10,VAS,buy,100,50.00,0,alex\n"+
			"2024-08-20,VAS,sell,100,60.00,0,alex\n")

	return base, rules
}

func testConfig(base, rules string) *config.Config {
	return &config.Config{
		BaseDir:   base,
		RulesDir:  rules,
		BatchSize: 100,
		Workers:   2,
	}
}

func TestPipelineRun(t *testing.T) {
	base, rules := setupBaseDir(t)
	pipeline := NewPipeline(testConfig(base, rules))

	results, err := pipeline.Run(context.Background(), 2025)
	require.NoError(t, err)
	require.Contains(t, results, "alex")

	result := results["alex"]
	assert.Equal(t, 2, result.TxnCount)
	assert.Equal(t, 100.0, result.Coverage.PctTxns())

	require.Len(t, result.Deductions, 1)
	assert.Equal(t, "software", result.Deductions[0].Category)
	assert.True(t, result.Deductions[0].Amount.Amount.Equal(decimal.NewFromInt(29)),
		"got %s", result.Deductions[0].Amount.Amount)

	// Held 2023-01-10 to 2024-08-20, discount applies.
	require.Len(t, result.Gains, 1)
	gain := result.Gains[0]
	assert.Equal(t, 2025, gain.FY)
	assert.Equal(t, domain.ReasonDiscount, gain.Reason)
	assert.True(t, gain.RawProfit.Amount.Equal(decimal.NewFromInt(1000)), "got %s", gain.RawProfit.Amount)
	assert.True(t, gain.TaxableGain.Amount.Equal(decimal.NewFromInt(500)))
}

func TestPipelineWritesAuditCSVs(t *testing.T) {
	base, rules := setupBaseDir(t)
	pipeline := NewPipeline(testConfig(base, rules))

	_, err := pipeline.Run(context.Background(), 2025)
	require.NoError(t, err)

	dataDir := filepath.Join(base, "fy25", "alex", "data")

	txns, err := csvstore.ReadTransactions(filepath.Join(dataDir, "transactions.csv"))
	require.NoError(t, err)
	assert.Len(t, txns, 2)
	assert.Equal(t, []string{"software"}, txns[0].Categories)

	gains, err := csvstore.ReadGains(filepath.Join(dataDir, "gains.csv"))
	require.NoError(t, err)
	assert.Len(t, gains, 1)

	for _, name := range []string{"trades.csv", "deductions.csv"} {
		_, err := os.Stat(filepath.Join(dataDir, name))
		assert.NoError(t, err, name)
	}
}

func TestPipelineFailsOnUnlabeledTransactions(t *testing.T) {
	base, rules := setupBaseDir(t)
	writeFile(t, filepath.Join(base, "fy25", "raw", "alex", "cba.csv"),
		"date_raw,amount,description_raw\n01/09/2024,-10.00,MYSTERY VENDOR\n")

	pipeline := NewPipeline(testConfig(base, rules))
	_, err := pipeline.Run(context.Background(), 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unlabeled")
	assert.Contains(t, err.Error(), "alex")
}

func TestPipelineAppliesWeights(t *testing.T) {
	base, rules := setupBaseDir(t)
	writeFile(t, filepath.Join(base, "weights.csv"),
		"category,weight\nsoftware,0.5\n")

	pipeline := NewPipeline(testConfig(base, rules))
	results, err := pipeline.Run(context.Background(), 2025)
	require.NoError(t, err)

	deductions := results["alex"].Deductions
	require.Len(t, deductions, 1)
	assert.True(t, deductions[0].Amount.Amount.Equal(decimal.RequireFromString("14.5")),
		"got %s", deductions[0].Amount.Amount)
}

func TestPipelineMissingStatementsDir(t *testing.T) {
	base, rules := setupBaseDir(t)
	pipeline := NewPipeline(testConfig(base, rules))

	_, err := pipeline.Run(context.Background(), 2030)
	require.Error(t, err)
}
