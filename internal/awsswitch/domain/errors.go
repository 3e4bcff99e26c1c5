package domain

import (
	"errors"
	"fmt"
)

// Exported error variables allow callers to use errors.Is() for error checking.
var (
	ErrConfigurationMissing = errors.New("required configuration directory is missing")
	ErrParse                = errors.New("credentials file could not be parsed")
	ErrIO                   = errors.New("filesystem operation failed")
	ErrUnrecognizedCommand  = errors.New("unrecognized command")

	ErrAlternativeNameEmpty        = errors.New("alternative name cannot be empty")
	ErrAlternativeNameDot          = errors.New("alternative name cannot be '.' or '..'")
	ErrAlternativeNameNonPrintable = errors.New("alternative name contains non-printable characters")
	ErrAlternativeNameInvalidChars = errors.New("alternative name contains invalid characters (<>:\"/\\|?*)")
	ErrAlternativeNameNullByte     = errors.New("alternative name contains null byte")
)

// ParseError reports a credentials file that is missing or malformed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes every ParseError match ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// IOError reports a failed delete, copy or write.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is makes every IOError match ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }
