package fixture

import "errors"

// Sentinel errors for record construction, registry access, and provenance
// validation.
var (
	// ErrInvalidRecord indicates a record failed field validation.
	ErrInvalidRecord = errors.New("invalid fixture record")
	// ErrDuplicateName indicates a record with the same name is already registered.
	ErrDuplicateName = errors.New("duplicate fixture name")
	// ErrNotFound indicates no record with the requested name is registered.
	ErrNotFound = errors.New("fixture not found")
	// ErrDanglingReference indicates a derived record points at an unregistered source.
	ErrDanglingReference = errors.New("derived from unknown fixture")
	// ErrCyclicDerivation indicates the derived_from relation contains a cycle.
	ErrCyclicDerivation = errors.New("cyclic derivation")
	// ErrDerivationMismatch indicates a derived file no longer matches its source
	// under the declared transformation.
	ErrDerivationMismatch = errors.New("derived content does not match source")
	// ErrMissingFile indicates the file behind a record could not be read.
	ErrMissingFile = errors.New("fixture file missing")
	// ErrDigestDrift indicates a file changed since its digest was locked.
	ErrDigestDrift = errors.New("fixture digest drift")
)

// ViolationKind classifies a violation for programmatic handling.
type ViolationKind string

const (
	// KindDanglingReference is reported for a derived record with an unknown source.
	KindDanglingReference ViolationKind = "dangling_reference"
	// KindCyclicDerivation is reported once per cycle in the derived_from graph.
	KindCyclicDerivation ViolationKind = "cyclic_derivation"
	// KindDerivationMismatch is reported when a comparator rejects a derived file.
	KindDerivationMismatch ViolationKind = "derivation_mismatch"
	// KindMissingFile is reported when a record's file cannot be read.
	KindMissingFile ViolationKind = "missing_file"
	// KindDigestDrift is reported when a locked digest no longer matches.
	KindDigestDrift ViolationKind = "digest_drift"
)

var kindErrors = map[ViolationKind]error{
	KindDanglingReference:  ErrDanglingReference,
	KindCyclicDerivation:   ErrCyclicDerivation,
	KindDerivationMismatch: ErrDerivationMismatch,
	KindMissingFile:        ErrMissingFile,
	KindDigestDrift:        ErrDigestDrift,
}

// Violation records one provenance inconsistency found during validation.
type Violation struct {
	Kind    ViolationKind
	Fixture string // name of the offending record
	Detail  string
}

// Error returns a human-readable description including the fixture name.
func (v Violation) Error() string {
	msg := v.Fixture + ": " + v.Unwrap().Error()
	if v.Detail != "" {
		msg += ": " + v.Detail
	}
	return msg
}

// Unwrap returns the sentinel error for the violation kind, so callers can
// use errors.Is(v, ErrCyclicDerivation).
func (v Violation) Unwrap() error {
	if err, ok := kindErrors[v.Kind]; ok {
		return err
	}
	return errors.New(string(v.Kind))
}

// CountKind returns how many violations in vs are of kind k.
func CountKind(vs []Violation, k ViolationKind) int {
	n := 0
	for _, v := range vs {
		if v.Kind == k {
			n++
		}
	}
	return n
}
