// Package shared holds helpers used across loanrisk packages that belong to
// no single stage.
//
// The testutil subpackage provides:
//
//   - a synthetic Lending Club generator (LoanFixture) producing raw tables
//     and CSV / gzip CSV files with realistic noise: loans outside the
//     sampling window, in-progress statuses, unparseable dates, blank cells
//   - a capturing slog handler for asserting on log output
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    raw := testutil.DefaultLoanFixture().Table(t)
//	    logger, logs := testutil.NewTestLogger(t)
//	    ...
//	}
package shared
