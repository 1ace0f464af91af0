package sponsors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no sponsor row could be resolved.
	ErrNotFound = errors.New("sponsor not found")

	// ErrAmbiguous indicates more than one sponsor row matched.
	ErrAmbiguous = errors.New("sponsor is ambiguous")

	// ErrTemplate indicates the contract template could not be resolved.
	ErrTemplate = errors.New("contract template not configured")

	// ErrColumn indicates a configured info column is absent from the
	// sponsor table.
	ErrColumn = errors.New("info column not in sponsor table")

	// ErrUsage indicates malformed command arguments.
	ErrUsage = errors.New("invalid command arguments")
)

// LookupError is returned when a sponsor could not be found. Any failure
// during fetch or filter is collapsed into it; the cause is kept for logs.
type LookupError struct {
	Sponsor string
	Cause   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("could not find data for sponsor %s.", e.Sponsor)
}

// Is reports ErrNotFound.
func (e *LookupError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

// AmbiguityError is returned when more than one row matched.
type AmbiguityError struct {
	Sponsor string
	Rows    []Row
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("found more than one sponsor: %s.", rowsJSON(e.Rows))
}

// Is reports ErrAmbiguous.
func (e *AmbiguityError) Is(target error) bool {
	return target == ErrAmbiguous
}

// TemplateError names the contract type whose template could not be resolved.
type TemplateError struct {
	ContractType string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("could not find a contract for contract_type %s.", e.ContractType)
}

func (e *TemplateError) Unwrap() error {
	return ErrTemplate
}

// ColumnError names an info column the matched sponsor row lacks.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("sponsor table has no column %s.", e.Column)
}

func (e *ColumnError) Unwrap() error {
	return ErrColumn
}
