package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tysonq/taxmate/internal/cgt"
	"github.com/tysonq/taxmate/internal/classify"
	"github.com/tysonq/taxmate/internal/config"
	"github.com/tysonq/taxmate/internal/deduce"
	"github.com/tysonq/taxmate/internal/depreciation"
	"github.com/tysonq/taxmate/internal/domain"
	"github.com/tysonq/taxmate/internal/household"
	"github.com/tysonq/taxmate/internal/ingestion"
	"github.com/tysonq/taxmate/internal/service"
	"github.com/tysonq/taxmate/internal/storage/cache"
	"github.com/tysonq/taxmate/internal/storage/postgres"
	pkglogger "github.com/tysonq/taxmate/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	var rootCmd = &cobra.Command{
		Use:   "taxmate",
		Short: "Household tax deduction and capital gains CLI",
		Long: `Processes bank statements and broker exports for an Australian
fiscal year: classification, deduction claims and CGT matching.`,
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline for a fiscal year",
		RunE: func(cmd *cobra.Command, args []string) error {
			fy, _ := cmd.Flags().GetInt("fy")
			persist, _ := cmd.Flags().GetBool("persist")
			return runPipeline(fy, persist)
		},
	}
	runCmd.Flags().IntP("fy", "y", 0, "Fiscal year (e.g. 2025; defaults to FISCAL_YEAR)")
	runCmd.Flags().BoolP("persist", "p", false, "Also persist results to PostgreSQL")

	var gainsCmd = &cobra.Command{
		Use:   "gains",
		Short: "Show the stored CGT position for a fiscal year",
		RunE: func(cmd *cobra.Command, args []string) error {
			fy, _ := cmd.Flags().GetInt("fy")
			owner, _ := cmd.Flags().GetString("owner")
			return showGains(fy, owner)
		},
	}
	gainsCmd.Flags().IntP("fy", "y", 0, "Fiscal year")
	gainsCmd.Flags().StringP("owner", "o", "", "Limit to one person")

	var coverageCmd = &cobra.Command{
		Use:   "coverage",
		Short: "Show classification coverage without validating",
		RunE: func(cmd *cobra.Command, args []string) error {
			fy, _ := cmd.Flags().GetInt("fy")
			return showCoverage(fy)
		},
	}
	coverageCmd.Flags().IntP("fy", "y", 0, "Fiscal year")

	var addRuleCmd = &cobra.Command{
		Use:   "add-rule [category] [keyword]",
		Short: "Add a keyword to a category rule file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := classify.AddRule(cfg.RulesDir, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("added %q to %s\n", args[1], args[0])
			return nil
		},
	}

	var depreciationCmd = &cobra.Command{
		Use:   "depreciation",
		Short: "Print a prime-cost depreciation schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, _ := cmd.Flags().GetString("desc")
			cost, _ := cmd.Flags().GetString("cost")
			life, _ := cmd.Flags().GetInt("life")
			fy, _ := cmd.Flags().GetInt("fy")
			return showDepreciation(desc, cost, life, fy)
		},
	}
	depreciationCmd.Flags().String("desc", "asset", "Asset description")
	depreciationCmd.Flags().String("cost", "0", "Purchase cost in AUD")
	depreciationCmd.Flags().Int("life", 0, "Effective life in years")
	depreciationCmd.Flags().IntP("fy", "y", 0, "Purchase fiscal year")

	var householdCmd = &cobra.Command{
		Use:   "household [personA] [personB]",
		Short: "Allocate pooled deductions across two people",
		Long: `Loads both people's stored deductions and gains, pools the
deductions and reallocates them to minimise combined tax.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fy, _ := cmd.Flags().GetInt("fy")
			incomeA, _ := cmd.Flags().GetString("income-a")
			incomeB, _ := cmd.Flags().GetString("income-b")
			return optimizeHousehold(fy, args[0], args[1], incomeA, incomeB)
		},
	}
	householdCmd.Flags().IntP("fy", "y", 0, "Fiscal year")
	householdCmd.Flags().String("income-a", "0", "First person's salary income")
	householdCmd.Flags().String("income-b", "0", "Second person's salary income")

	var loadCmd = &cobra.Command{
		Use:   "load [files...]",
		Short: "Bulk load trade CSVs into PostgreSQL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadTradeFiles(args)
		},
	}

	var healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check database and cache connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth()
		},
	}

	rootCmd.AddCommand(runCmd, gainsCmd, coverageCmd, addRuleCmd, depreciationCmd, householdCmd, loadCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func resolveFY(cfg *config.Config, fy int) int {
	if fy == 0 {
		return cfg.FiscalYear
	}
	if fy < 100 {
		return fy + 2000
	}
	return fy
}

func runPipeline(fy int, persist bool) error {
	ctx := context.Background()
	cfg := config.Load()
	fy = resolveFY(cfg, fy)

	if err := pkglogger.Init(cfg.LogLevel, cfg.Environment == "development"); err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer pkglogger.Close()

	pipeline := service.NewPipeline(cfg)

	if persist {
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()
		if err := db.InitSchema(ctx); err != nil {
			return err
		}

		repo := postgres.NewRepository(db)
		loader := ingestion.NewBulkLoader(db.Pool(), cfg.BatchSize)
		reports := service.NewReportService(repo, connectRedis(cfg))
		pipeline.WithStorage(repo, loader, reports)
	}

	fmt.Printf("Running %s pipeline from %s...\n\n", cgt.FYLabel(fy), cfg.BaseDir)

	results, err := pipeline.Run(ctx, fy)
	if err != nil {
		return err
	}

	persons := make([]string, 0, len(results))
	for person := range results {
		persons = append(persons, person)
	}
	sort.Strings(persons)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tTXNS\tLABELED\tDEDUCTIONS\tGAINS\tTAXABLE")
	for _, person := range persons {
		r := results[person]
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t$%s\t%d\t$%s\n",
			person,
			r.TxnCount,
			r.Coverage.PctTxns(),
			deduce.Total(r.Deductions).Amount.StringFixed(2),
			len(r.Gains),
			taxableTotal(r.Gains).StringFixed(2))
	}
	w.Flush()

	fmt.Println("\ndone")
	return nil
}

func taxableTotal(gains []domain.Gain) decimal.Decimal {
	total := decimal.Zero
	for _, g := range gains {
		total = total.Add(g.TaxableGain.Amount)
	}
	return total
}

func showGains(fy int, owner string) error {
	ctx := context.Background()
	cfg := config.Load()
	fy = resolveFY(cfg, fy)

	if err := pkglogger.Init("error", false); err != nil {
		return err
	}
	defer pkglogger.Close()

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	reports := service.NewReportService(postgres.NewRepository(db), nil)
	report, err := reports.GetGainsReport(ctx, fy, owner)
	if err != nil {
		return err
	}

	fmt.Printf("%s capital gains", report.FYLabel)
	if owner != "" {
		fmt.Printf(" for %s", owner)
	}
	fmt.Printf(" (%d fragments)\n\n", len(report.Gains))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOLD\tCODE\tUNITS\tRAW\tTAXABLE\tREASON")
	for _, g := range report.Gains {
		fmt.Fprintf(w, "%s\t%s\t%s\t$%s\t$%s\t%s\n",
			g.SellDate.Format("2006-01-02"),
			g.Code,
			g.Units.String(),
			g.RawProfit.Amount.StringFixed(2),
			g.TaxableGain.Amount.StringFixed(2),
			g.Reason)
	}
	w.Flush()

	fmt.Printf("\nraw total:     $%s\n", report.RawTotal.StringFixed(2))
	fmt.Printf("taxable total: $%s\n", report.TaxableTotal.StringFixed(2))
	fmt.Printf("discounted: %d  losses: %d\n", report.Discounted, report.Losses)
	return nil
}

func showCoverage(fy int) error {
	cfg := config.Load()
	fy = resolveFY(cfg, fy)

	rawDir := fmt.Sprintf("%s/%s/raw", cfg.BaseDir, strings.ToLower(cgt.FYLabel(fy)))

	reader := ingestion.NewStatementReader(cfg.BeemUsername)
	txns, err := reader.ReadDir(rawDir)
	if err != nil {
		return err
	}

	rules, err := classify.LoadRules(cfg.RulesDir)
	if err != nil {
		return err
	}
	classified := classify.Apply(txns, rules)

	byPerson := make(map[string][]domain.Transaction)
	for _, t := range classified {
		byPerson[t.Owner] = append(byPerson[t.Owner], t)
	}

	persons := make([]string, 0, len(byPerson))
	for person := range byPerson {
		persons = append(persons, person)
	}
	sort.Strings(persons)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tTXNS\tLABELED\tDEBIT\tCREDIT")
	for _, person := range persons {
		cov := classify.MeasureCoverage(byPerson[person])
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.1f%%\t%.1f%%\n",
			person, cov.Total, cov.PctTxns(), cov.PctDebit(), cov.PctCredit())
	}
	w.Flush()

	// Surface the biggest unlabeled spends so rules can be added.
	type miss struct {
		desc   string
		amount decimal.Decimal
	}
	var misses []miss
	for _, t := range classified {
		if !t.Categorized() && t.Amount.Amount.IsNegative() {
			misses = append(misses, miss{t.Description, t.Amount.Amount.Abs()})
		}
	}
	sort.Slice(misses, func(i, j int) bool { return misses[i].amount.GreaterThan(misses[j].amount) })

	if len(misses) > 0 {
		fmt.Println("\ntop unlabeled spends:")
		for i, m := range misses {
			if i >= 10 {
				break
			}
			fmt.Printf("  $%s  %s\n", m.amount.StringFixed(2), m.desc)
		}
	}
	return nil
}

func showDepreciation(desc, costStr string, life, fy int) error {
	cfg := config.Load()
	fy = resolveFY(cfg, fy)

	cost, err := decimal.NewFromString(costStr)
	if err != nil {
		return fmt.Errorf("invalid cost %q", costStr)
	}

	asset := domain.Asset{
		FY:          fy,
		Description: desc,
		Cost:        domain.NewMoney(cost, domain.AUD),
		LifeYears:   life,
	}

	entries := depreciation.Schedule(asset)
	if len(entries) == 0 {
		return fmt.Errorf("nothing to depreciate (life must be positive)")
	}

	fmt.Printf("%s: $%s over %d years (prime cost)\n\n", desc, cost.StringFixed(2), life)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FY\tANNUAL\tCUMULATIVE\tBOOK VALUE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t$%s\t$%s\t$%s\n",
			cgt.FYLabel(e.FY),
			e.Annual.Amount.StringFixed(2),
			e.Cumulative.Amount.StringFixed(2),
			e.BookValue.Amount.StringFixed(2))
	}
	w.Flush()
	return nil
}

func optimizeHousehold(fy int, nameA, nameB, incomeAStr, incomeBStr string) error {
	ctx := context.Background()
	cfg := config.Load()
	fy = resolveFY(cfg, fy)

	incomeA, err := decimal.NewFromString(incomeAStr)
	if err != nil {
		return fmt.Errorf("invalid income %q", incomeAStr)
	}
	incomeB, err := decimal.NewFromString(incomeBStr)
	if err != nil {
		return fmt.Errorf("invalid income %q", incomeBStr)
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()
	repo := postgres.NewRepository(db)

	build := func(name string, income decimal.Decimal) (domain.Individual, error) {
		deductions, err := repo.ListDeductions(ctx, fy, name)
		if err != nil {
			return domain.Individual{}, err
		}
		gains, err := repo.ListGains(ctx, fy, name)
		if err != nil {
			return domain.Individual{}, err
		}

		ind := domain.Individual{
			Name:   name,
			FY:     fy,
			Income: domain.NewMoney(income, domain.AUD),
		}
		for _, d := range deductions {
			ind.Deductions = append(ind.Deductions, d.Amount)
		}
		for _, g := range gains {
			if g.TaxableGain.Amount.IsNegative() {
				ind.Losses = append(ind.Losses, domain.NewMoney(g.TaxableGain.Amount.Abs(), domain.AUD))
			} else {
				ind.Gains = append(ind.Gains, g.TaxableGain)
			}
		}
		return ind, nil
	}

	a, err := build(nameA, incomeA)
	if err != nil {
		return err
	}
	b, err := build(nameB, incomeB)
	if err != nil {
		return err
	}

	alloc, err := household.Optimize(a, b)
	if err != nil {
		return err
	}

	fmt.Printf("%s household allocation\n\n", cgt.FYLabel(fy))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tDEDUCTIONS\tTAX")
	fmt.Fprintf(w, "%s\t$%s\t$%s\n", nameA,
		deductionSum(alloc.A.Deductions).StringFixed(2), alloc.TaxA.Amount.StringFixed(2))
	fmt.Fprintf(w, "%s\t$%s\t$%s\n", nameB,
		deductionSum(alloc.B.Deductions).StringFixed(2), alloc.TaxB.Amount.StringFixed(2))
	w.Flush()

	fmt.Printf("\ncombined liability: $%s\n", alloc.Total().Amount.StringFixed(2))
	return nil
}

func deductionSum(deductions []domain.Money) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deductions {
		total = total.Add(d.Amount)
	}
	return total
}

func loadTradeFiles(files []string) error {
	ctx := context.Background()
	cfg := config.Load()

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()
	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	parser := ingestion.NewTradeParser(cfg.BatchSize, cfg.Workers)
	loader := ingestion.NewBulkLoader(db.Pool(), cfg.BatchSize)

	workerPool := ingestion.NewWorkerPool(cfg.Workers, parser, loader)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	results := make(chan ingestion.JobResult, len(files))

	fmt.Printf("loading %d file(s)...\n\n", len(files))

	for _, file := range files {
		workerPool.Submit(ingestion.Job{
			FilePath: file,
			Result:   results,
		})
	}

	var totalRecords int64
	for i := 0; i < len(files); i++ {
		result := <-results
		if result.Error != nil {
			fmt.Printf("FAIL %s: %v\n", result.FilePath, result.Error)
		} else {
			fmt.Printf("ok   %s: %d rows\n", result.FilePath, result.RecordsCount)
			totalRecords += result.RecordsCount
		}
	}

	fmt.Printf("\ntotal: %d rows loaded\n", totalRecords)
	return nil
}

func connectRedis(cfg *config.Config) *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		fmt.Printf("warning: redis unavailable, continuing without cache: %v\n", err)
		return nil
	}
	return redisCache
}

func checkHealth() error {
	ctx := context.Background()
	cfg := config.Load()

	fmt.Println("checking system health...")

	fmt.Print("PostgreSQL: ")
	db, err := postgres.NewDB(cfg)
	if err != nil {
		fmt.Printf("FAIL: %v\n", err)
	} else {
		defer db.Close()
		if err := db.HealthCheck(ctx); err != nil {
			fmt.Printf("FAIL: %v\n", err)
		} else {
			fmt.Println("ok")
		}
	}

	fmt.Print("Redis: ")
	redisCache := connectRedis(cfg)
	if redisCache == nil {
		fmt.Println("unavailable")
	} else {
		defer redisCache.Close()
		if err := redisCache.HealthCheck(ctx); err != nil {
			fmt.Printf("FAIL: %v\n", err)
		} else {
			fmt.Println("ok")
		}
	}

	return nil
}
