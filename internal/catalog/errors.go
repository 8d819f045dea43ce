package catalog

import (
	"errors"
	"fmt"
)

// Load error codes.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No catalog files found
	ErrCodeLoadFailed    = "E004" // File could not be read or parsed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // CUE evaluation or schema check failed
	ErrCodeUnknownFormat = "E007" // Unsupported file extension

	ErrCodeUnknownService = "E008" // Spec references an unregistered service
	ErrCodeOutOfRange     = "E009" // OEN not representable
)

// LoadError is a problem with a catalog file, reported before boot.
type LoadError struct {
	Code    string
	Message string

	// File and Line locate the problem when known.
	File string
	Line int
}

func (e *LoadError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsLoadError reports whether err is, or wraps, a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
