package testutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"loanrisk/internal/dataset"
	"loanrisk/pkg/contracts/domain"
)

// FixtureColumns is the raw layout produced by LoanFixture. It mixes model
// inputs with the leakage and privacy columns the anonymizer must remove.
var FixtureColumns = []string{
	"id", "member_id", "loan_amnt", "funded_amnt", "term", "int_rate",
	"installment", "grade", "sub_grade", "emp_title", "emp_length",
	"home_ownership", "annual_inc", "verification_status", "issue_d",
	"loan_status", "purpose", "title", "addr_state", "dti", "revol_util",
	"open_acc", "total_pymnt", "recoveries", "last_pymnt_d", "url", "desc",
}

var (
	fixtureGrades   = []string{"A", "B", "C", "D", "E", "F", "G"}
	gradeDefault    = []float64{0.06, 0.13, 0.21, 0.29, 0.37, 0.44, 0.50}
	fixtureHomes    = []string{"RENT", "MORTGAGE", "OWN"}
	fixturePurposes = []string{"debt_consolidation", "credit_card", "home_improvement", "other", "major_purchase", "small_business"}
	fixtureStates   = []string{"CA", "NY", "TX", "FL", "IL", "NJ", "PA", "OH", "GA", "WA"}
	fixtureEmpLen   = []string{"< 1 year", "1 year", "2 years", "5 years", "10+ years", ""}
	fixtureVerify   = []string{"Verified", "Source Verified", "Not Verified"}
	fixtureMonths   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// LoanFixture generates raw Lending Club style rows deterministically
type LoanFixture struct {
	Rows     int
	Seed     uint64
	FromYear int
	ToYear   int
	// CurrentRate is the share of loans still in progress
	CurrentRate float64
	// BadDateRate is the share of rows with an unparseable issue_d
	BadDateRate float64
}

// DefaultLoanFixture spans 2013 through 2021 so part of it falls outside the
// default sampling window.
func DefaultLoanFixture() LoanFixture {
	return LoanFixture{
		Rows:        6000,
		Seed:        7,
		FromYear:    2013,
		ToYear:      2021,
		CurrentRate: 0.1,
		BadDateRate: 0.01,
	}
}

// Records returns header and rows
func (f LoanFixture) Records() ([]string, [][]string) {
	rng := rand.New(rand.NewPCG(f.Seed, 0x10a4))
	rows := make([][]string, f.Rows)

	for i := range rows {
		g := rng.IntN(len(fixtureGrades))
		year := f.FromYear + rng.IntN(f.ToYear-f.FromYear+1)
		amount := 1000 + 500*rng.IntN(70)
		rate := 5.5 + 3.2*float64(g) + rng.Float64()*2
		income := 25000 + rng.IntN(150000)

		issue := fmt.Sprintf("%s-%d", fixtureMonths[rng.IntN(12)], year)
		if rng.Float64() < f.BadDateRate {
			issue = "not-a-date"
		}

		var status string
		switch {
		case rng.Float64() < f.CurrentRate:
			status = "Current"
		case rng.Float64() < gradeDefault[g]:
			status = domain.DefaultStatuses[rng.IntN(len(domain.DefaultStatuses))]
		default:
			status = domain.PaidStatuses[rng.IntN(len(domain.PaidStatuses))]
		}

		annualInc := strconv.Itoa(income)
		if rng.IntN(50) == 0 {
			annualInc = ""
		}
		revolUtil := fmt.Sprintf("%.1f%%", rng.Float64()*100)
		if rng.IntN(40) == 0 {
			revolUtil = ""
		}
		term := " 36 months"
		if rng.IntN(3) == 0 {
			term = " 60 months"
		}

		rows[i] = []string{
			strconv.Itoa(1000000 + i),
			strconv.Itoa(2000000 + i),
			strconv.Itoa(amount),
			strconv.Itoa(amount),
			term,
			fmt.Sprintf("%.2f%%", rate),
			fmt.Sprintf("%.2f", float64(amount)*(rate/1200)*1.1),
			fixtureGrades[g],
			fmt.Sprintf("%s%d", fixtureGrades[g], 1+rng.IntN(5)),
			fmt.Sprintf("Employer %d", rng.IntN(500)),
			fixtureEmpLen[rng.IntN(len(fixtureEmpLen))],
			fixtureHomes[rng.IntN(len(fixtureHomes))],
			annualInc,
			fixtureVerify[rng.IntN(len(fixtureVerify))],
			issue,
			status,
			fixturePurposes[rng.IntN(len(fixturePurposes))],
			"Loan title",
			fixtureStates[rng.IntN(len(fixtureStates))],
			fmt.Sprintf("%.2f", rng.Float64()*40),
			revolUtil,
			strconv.Itoa(2 + rng.IntN(25)),
			strconv.Itoa(amount + rng.IntN(2000)),
			"0.0",
			fmt.Sprintf("%s-%d", fixtureMonths[rng.IntN(12)], year+2),
			fmt.Sprintf("https://lendingclub.com/browse/loanDetail.action?loan_id=%d", 1000000+i),
			"",
		}
	}
	return append([]string(nil), FixtureColumns...), rows
}

// Table returns the fixture as a dataset table
func (f LoanFixture) Table(t testing.TB) *dataset.Table {
	t.Helper()
	header, rows := f.Records()
	table, err := dataset.NewTable(header, rows)
	if err != nil {
		t.Fatalf("build fixture table: %v", err)
	}
	return table
}

// WriteCSV writes the fixture to dir/name, gzip compressed when name ends in
// .gz, and returns the path.
func (f LoanFixture) WriteCSV(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer file.Close()

	var w io.Writer = file
	var zw *gzip.Writer
	if strings.HasSuffix(name, ".gz") {
		zw = gzip.NewWriter(file)
		w = zw
	}

	header, rows := f.Records()
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		t.Fatalf("write fixture header: %v", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		t.Fatalf("write fixture rows: %v", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			t.Fatalf("close fixture gzip: %v", err)
		}
	}
	return path
}
