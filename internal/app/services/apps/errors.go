package apps

import (
	"fmt"
	"strings"
)

// Code classifies a field-scoped validation violation.
type Code string

const (
	CodeMissingField     Code = "missing_field"
	CodeInvalidFormat    Code = "invalid_format"
	CodeInvalidEnvVar    Code = "invalid_environment_variable"
	CodeDropletNotStaged Code = "droplet_not_staged"
	CodeDuplicateName    Code = "duplicate_name"
)

// Violation is one field-scoped validation failure.
type Violation struct {
	Field   string
	Code    Code
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError carries every violation found in one write attempt. Rules
// are not short-circuited, so a single rejected write reports all defects.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether any violation carries the given code.
func (e *ValidationError) Has(code Code) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// CascadeError reports a sibling process that could not be moved to its new
// version. Processes updated before the failure stay updated; rolling the
// whole write back is the enclosing storage transaction's job.
type CascadeError struct {
	ProcessGUID string
	Err         error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("process version cascade failed at process %s: %v", e.ProcessGUID, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }
