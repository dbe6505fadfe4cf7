package importer

import (
	"errors"
	"fmt"
	"time"
)

// Rejection codes carried by ImportError.
const (
	CodeUnknownTable     = "UNKNOWN_TABLE"
	CodeMissingColumns   = "MISSING_COLUMNS"
	CodeInvalidValue     = "INVALID_VALUE"
	CodeMissingKey       = "MISSING_KEY"
	CodeMissingValue     = "MISSING_VALUE"
	CodeMalformedFile    = "MALFORMED_FILE"
	CodeEmptyFile        = "EMPTY_FILE"
	CodeUnknownApplicant = "UNKNOWN_APPLICANT"
)

// ImportError is a client-side rejection of a batch. Nothing of the batch is
// stored when one is returned.
type ImportError struct {
	Code      string
	Message   string
	Timestamp time.Time
	Context   map[string]string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func newImportError(code string, ctx map[string]string, format string, args ...any) *ImportError {
	return &ImportError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now().UTC(),
		Context:   ctx,
	}
}

// AsImportError unwraps err into an *ImportError when it is one.
func AsImportError(err error) (*ImportError, bool) {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
