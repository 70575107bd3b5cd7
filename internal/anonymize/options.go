package anonymize

import (
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	apperrors "loanrisk/internal/errors"
	"loanrisk/pkg/contracts/domain"
)

// DefaultLeakageColumns hold information only known after origination
var DefaultLeakageColumns = []string{
	"last_pymnt_d",
	"total_pymnt",
	"recoveries",
	"collection_recovery_fee",
	"last_credit_pull_d",
	"out_prncp",
	"out_prncp_inv",
	"total_pymnt_inv",
	"total_rec_prncp",
	"total_rec_int",
	"total_rec_late_fee",
	"hardship_flag",
	"settlement_status",
	"settlement_date",
	"settlement_amount",
	"debt_settlement_flag",
}

// DefaultPrivacyColumns identify or describe the borrower in free text
var DefaultPrivacyColumns = []string{
	"member_id",
	"emp_title",
	"url",
	"desc",
	"title",
}

// DefaultPseudonymizeColumns are replaced by a keyed hash instead of dropped.
// Without a key they have to be dropped instead.
var DefaultPseudonymizeColumns = []string{domain.ColumnID}

// Options configure one anonymization run
type Options struct {
	Range               domain.DateRange
	TargetSize          int
	Seed                int64
	LeakageColumns      []string
	PrivacyColumns      []string
	PseudonymizeColumns []string
	// PseudonymKey keys the BLAKE2b hash, 1 to 64 bytes. It is required
	// whenever PseudonymizeColumns is set.
	PseudonymKey []byte
}

// DefaultOptions covers 2015 through 2020 with a 600k sample
func DefaultOptions() Options {
	return Options{
		Range: domain.DateRange{
			From: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		TargetSize:          600000,
		Seed:                42,
		LeakageColumns:      DefaultLeakageColumns,
		PrivacyColumns:      DefaultPrivacyColumns,
		PseudonymizeColumns: DefaultPseudonymizeColumns,
	}
}

// Validate checks the options before any row is touched
func (o Options) Validate() error {
	if err := o.Range.Validate(); err != nil {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid sampling range", err)
	}
	if o.TargetSize <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("target size must be positive, got %d", o.TargetSize))
	}
	// an unkeyed hash of a sequential id is reversed by hashing every id
	if len(o.PseudonymizeColumns) > 0 && len(o.PseudonymKey) == 0 {
		return apperrors.NewValidationError("pseudonym key is required to pseudonymise columns").
			WithContext("columns", o.PseudonymizeColumns)
	}
	if len(o.PseudonymKey) > blake2b.Size {
		return apperrors.NewValidationError(
			fmt.Sprintf("pseudonym key must be at most %d bytes, got %d", blake2b.Size, len(o.PseudonymKey)))
	}
	return nil
}
