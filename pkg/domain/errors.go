package domain

import (
	"errors"
	"fmt"
)

// ErrLastScheme is returned when a delete would remove the only remaining scheme.
var ErrLastScheme = errors.New("cannot delete the last remaining scheme")

// ErrNoData is returned when a schedule or EC curve has no weeks defined.
var ErrNoData = errors.New("no weeks defined")

// ErrNotFound reports a lookup of a named record that does not exist.
type ErrNotFound struct {
	Entity EntityType
	Name   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Name)
}

// ErrDuplicate reports a create or rename that collides with an existing name.
type ErrDuplicate struct {
	Entity EntityType
	Name   string
}

func (e ErrDuplicate) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Name)
}

// ErrInvalidEcFactor reports an inverse dosage calculation attempted with a
// non-positive EC contribution factor.
type ErrInvalidEcFactor struct {
	Factor float64
}

func (e ErrInvalidEcFactor) Error() string {
	return fmt.Sprintf("ec contribution factor must be positive, got %g", e.Factor)
}

// ErrMalformedSchedule rejects a whole schedule text, naming the first
// offending fragment.
type ErrMalformedSchedule struct {
	Fragment string
	Reason   string
}

func (e ErrMalformedSchedule) Error() string {
	return fmt.Sprintf("malformed schedule entry %q: %s", e.Fragment, e.Reason)
}

// ErrMalformedDate reports a date value that does not match the DD.MM.YYYY layout.
type ErrMalformedDate struct {
	Value string
}

func (e ErrMalformedDate) Error() string {
	return fmt.Sprintf("malformed date %q: expected DD.MM.YYYY", e.Value)
}

// ErrConfigKey reports a structurally required key missing from a
// configuration file. Loading stops when this is returned.
type ErrConfigKey struct {
	Key string
}

func (e ErrConfigKey) Error() string {
	return fmt.Sprintf("configuration missing required key %q", e.Key)
}

// ErrScheduleGap reports a resolved week with no stored value in an
// otherwise non-empty table. Callers treat the dose as zero and log it.
type ErrScheduleGap struct {
	Week int
}

func (e ErrScheduleGap) Error() string {
	return fmt.Sprintf("no value defined for effective week %d", e.Week)
}

// ErrPersistence wraps a storage failure after which the in-memory state has
// been rolled back to its pre-transaction content.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e ErrPersistence) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying storage error.
func (e ErrPersistence) Unwrap() error {
	return e.Err
}
