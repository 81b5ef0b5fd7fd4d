package model

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrUnsupported = errors.New("unsupported format")
	ErrExtraction  = errors.New("could not extract text")
	ErrValidation  = errors.New("validation failed")
	ErrDuplicate   = errors.New("duplicate record")
)

var (
	ErrNotPublished     = fmt.Errorf("%w: resource is not published", ErrForbidden)
	ErrWrongClass       = fmt.Errorf("%w: resource is assigned to another class", ErrForbidden)
	ErrAlreadyAttempted = fmt.Errorf("%w: quiz already attempted", ErrForbidden)
	ErrNotOwner         = fmt.Errorf("%w: resource belongs to another teacher", ErrForbidden)
	ErrMalformedQuiz    = fmt.Errorf("%w: malformed quiz content", ErrValidation)
	ErrMalformedDeck    = fmt.Errorf("%w: malformed flashcard content", ErrValidation)
)
