package utils

import (
	"errors"
	"fmt"
	"strings"
)

var ErrorRecordNotFound = errors.New("record not found")

// Expected selection outcomes. Callers branch on these; they are not logged
// as system errors.
var (
	// ErrorNoMatch: the supplied filters over-constrain to zero candidates.
	ErrorNoMatch = errors.New("no specification matches the supplied filters")

	// ErrorUnknownCategory: category value outside the recognized enumeration.
	// Selection fails closed with no candidates.
	ErrorUnknownCategory = errors.New("unknown part category")

	// ErrorPreconditionViolation: the operation was rejected before any
	// mutation (incomplete adapter append, non-permutation reorder).
	ErrorPreconditionViolation = errors.New("precondition violation")
)

// ErrorDataIntegrity indicates a stack member references a catalog row that no
// longer exists. Surfaced loudly; it means the catalog mutated underneath an
// existing stack.
var ErrorDataIntegrity = errors.New("stack member references a missing flange specification")

// AmbiguousSelectionError reports that the filters under-constrain to more
// than one candidate, and which attributes still vary among them so the caller
// can offer a meaningful next filter instead of a blind guess.
type AmbiguousSelectionError struct {
	CandidateCount    int
	VaryingAttributes []string
}

func (e *AmbiguousSelectionError) Error() string {
	return fmt.Sprintf("ambiguous selection: %d candidates remain; narrow by: %s",
		e.CandidateCount, strings.Join(e.VaryingAttributes, ", "))
}

func AsAmbiguous(err error) (*AmbiguousSelectionError, bool) {
	var ambErr *AmbiguousSelectionError
	if errors.As(err, &ambErr) {
		return ambErr, true
	}
	return nil, false
}
