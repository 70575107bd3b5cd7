package anonymize

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"loanrisk/internal/dataset"
	apperrors "loanrisk/internal/errors"
	"loanrisk/pkg/contracts/domain"
)

// Report summarises one run
type Report = domain.SampleReport

// Anonymizer filters, labels, scrubs and samples the raw loan table
type Anonymizer struct {
	opts   Options
	pseudo *Pseudonymizer
	logger *slog.Logger
}

// New validates opts and creates an anonymizer
func New(opts Options, logger *slog.Logger) (*Anonymizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	pseudo, err := NewPseudonymizer(opts.PseudonymKey)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid pseudonym key", err)
	}
	return &Anonymizer{opts: opts, pseudo: pseudo, logger: logger}, nil
}

// record is a population row that survived filtering
type record struct {
	row     int
	date    time.Time
	stratum Stratum
}

// Run turns the raw table into the anonymized stratified sample. The
// returned report carries every count needed to audit the run.
func (a *Anonymizer) Run(ctx context.Context, raw *dataset.Table) (*dataset.Table, *Report, error) {
	if err := raw.Require("anonymize", domain.ColumnIssueDate, domain.ColumnLoanStatus); err != nil {
		return nil, nil, err
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Range:       a.opts.Range,
		Seed:        a.opts.Seed,
		TargetSize:  a.opts.TargetSize,
		InputRows:   raw.Len(),
		Excluded:    domain.RowIssues{},
	}

	population := a.filter(raw, report)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(population) == 0 {
		return nil, nil, apperrors.NewValidationError(
			"no loans with a final outcome inside " + a.opts.Range.String()).
			WithContext("excluded", report.Excluded)
	}
	report.PopulationRows = len(population)

	a.logger.InfoContext(ctx, "Population filtered",
		slog.Int("input_rows", report.InputRows),
		slog.Int("rows_in_range", report.RowsInRange),
		slog.Int("population_rows", report.PopulationRows),
		slog.Int("excluded_rows", report.Excluded.Total()))

	sample := a.sample(population, report)

	out, err := a.build(raw, sample, report)
	if err != nil {
		return nil, nil, err
	}

	report.SampleRows = len(sample)
	report.PopulationDefaultRate = defaultRate(population)
	report.SampleDefaultRate = defaultRate(sample)
	report.DefaultRateDiff = math.Abs(report.SampleDefaultRate - report.PopulationDefaultRate)
	report.Temporal, report.MaxTemporalDiffPP = compareTemporal(population, sample)

	a.logger.InfoContext(ctx, "Stratified sample created",
		slog.Int("sample_rows", report.SampleRows),
		slog.Int("strata", len(report.Strata)),
		slog.Float64("population_default_rate", report.PopulationDefaultRate),
		slog.Float64("sample_default_rate", report.SampleDefaultRate),
		slog.Float64("max_temporal_diff_pp", report.MaxTemporalDiffPP))

	return out, report, nil
}

// filter keeps rows issued inside the range whose status resolves to an
// outcome, counting every other row by reason.
func (a *Anonymizer) filter(raw *dataset.Table, report *Report) []record {
	dateCol := raw.Index(domain.ColumnIssueDate)
	statusCol := raw.Index(domain.ColumnLoanStatus)

	population := make([]record, 0, raw.Len())
	for i := 0; i < raw.Len(); i++ {
		row := raw.Row(i)

		issued, err := ParseIssueDate(row[dateCol])
		if err != nil {
			report.Excluded.Add(domain.ReasonUnparseableDate, 1)
			continue
		}
		if !a.opts.Range.Contains(issued) {
			report.Excluded.Add(domain.ReasonOutsideRange, 1)
			continue
		}
		report.RowsInRange++

		outcome, ok := domain.ResolveOutcome(row[statusCol])
		if !ok {
			report.Excluded.Add(domain.ReasonUnresolvedStatus, 1)
			continue
		}

		population = append(population, record{
			row:     i,
			date:    issued,
			stratum: Stratum{Year: issued.Year(), Outcome: outcome},
		})
	}
	return population
}

// sample draws the stratified subset, strata in sorted order and rows in
// input order within a stratum.
func (a *Anonymizer) sample(population []record, report *Report) []record {
	members := make(map[Stratum][]record)
	for _, r := range population {
		members[r.stratum] = append(members[r.stratum], r)
	}
	counts := make(map[Stratum]int, len(members))
	for s, rs := range members {
		counts[s] = len(rs)
	}

	allocations := Allocate(counts, a.opts.TargetSize)
	sample := make([]record, 0, min(a.opts.TargetSize+len(allocations), len(population)))
	for _, alloc := range allocations {
		rs := members[alloc.Stratum]
		for _, p := range SelectStratum(len(rs), alloc.Sample, a.opts.Seed, alloc.Stratum) {
			sample = append(sample, rs[p])
		}
		report.Strata = append(report.Strata, domain.StratumSize{
			Year:       alloc.Stratum.Year,
			Outcome:    alloc.Stratum.Outcome,
			Population: alloc.Population,
			Sample:     alloc.Sample,
		})
	}
	return sample
}

// build materialises the output table: normalised issue_d, target_default
// appended, loan_status and the configured drop lists removed, identifiers
// pseudonymised.
func (a *Anonymizer) build(raw *dataset.Table, sample []record, report *Report) (*dataset.Table, error) {
	drop := map[string]bool{domain.ColumnLoanStatus: true, domain.ColumnTarget: true}
	for _, c := range a.opts.LeakageColumns {
		drop[c] = true
	}
	for _, c := range a.opts.PrivacyColumns {
		drop[c] = true
	}
	pseudo := make(map[string]bool, len(a.opts.PseudonymizeColumns))
	for _, c := range a.opts.PseudonymizeColumns {
		pseudo[c] = true
	}

	var (
		columns    []string
		sourcePos  []int
		pseudoPos  []int
		dateOutPos = -1
	)
	for i, c := range raw.Columns() {
		if drop[c] {
			report.DroppedColumns = append(report.DroppedColumns, c)
			continue
		}
		if c == domain.ColumnIssueDate {
			dateOutPos = len(columns)
		}
		if pseudo[c] {
			pseudoPos = append(pseudoPos, len(columns))
			report.PseudonymizedColumns = append(report.PseudonymizedColumns, c)
		}
		columns = append(columns, c)
		sourcePos = append(sourcePos, i)
	}
	columns = append(columns, domain.ColumnTarget)
	sort.Strings(report.DroppedColumns)
	report.OutputColumns = len(columns)

	rows := make([][]string, len(sample))
	for k, r := range sample {
		src := raw.Row(r.row)
		out := make([]string, len(columns))
		for j, i := range sourcePos {
			out[j] = src[i]
		}
		if dateOutPos >= 0 {
			out[dateOutPos] = r.date.Format(domain.DateLayout)
		}
		for _, j := range pseudoPos {
			out[j] = a.pseudo.Token(out[j])
		}
		out[len(columns)-1] = r.stratum.Outcome.String()
		rows[k] = out
	}

	return dataset.NewTable(columns, rows)
}

func defaultRate(rs []record) float64 {
	if len(rs) == 0 {
		return 0
	}
	defaults := 0
	for _, r := range rs {
		if r.stratum.Outcome == domain.OutcomeDefault {
			defaults++
		}
	}
	return float64(defaults) / float64(len(rs))
}

// compareTemporal returns the per-year share of population and sample in
// percent, with the absolute difference in percentage points, and the
// largest difference.
func compareTemporal(population, sample []record) ([]domain.TemporalShare, float64) {
	popYears := yearCounts(population)
	sampleYears := yearCounts(sample)

	years := make([]int, 0, len(popYears))
	for y := range popYears {
		years = append(years, y)
	}
	for y := range sampleYears {
		if _, ok := popYears[y]; !ok {
			years = append(years, y)
		}
	}
	sort.Ints(years)

	shares := make([]domain.TemporalShare, 0, len(years))
	maxDiff := 0.0
	for _, y := range years {
		p := pct(popYears[y], len(population))
		s := pct(sampleYears[y], len(sample))
		d := math.Abs(p - s)
		maxDiff = math.Max(maxDiff, d)
		shares = append(shares, domain.TemporalShare{Year: y, PopulationPct: p, SamplePct: s, DiffPP: d})
	}
	return shares, maxDiff
}

func yearCounts(rs []record) map[int]int {
	counts := make(map[int]int)
	for _, r := range rs {
		counts[r.stratum.Year]++
	}
	return counts
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
