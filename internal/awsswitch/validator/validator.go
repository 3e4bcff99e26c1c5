package validator

import (
	"regexp"
	"strings"

	"github.com/example/aws-credentials-switcher/internal/awsswitch/domain"
)

var invalidCharsPattern = regexp.MustCompile(`[<>:"/\\|?*]`)

// Validator validates alternative names before they are turned into directory paths.
type Validator struct{}

// New creates a new Validator instance.
func New() *Validator {
	return &Validator{}
}

// ValidateName checks that name can safely be appended to ".aws." to form a
// sibling directory of the active one. Path separators and dot navigation are
// rejected so the result can never escape the home directory.
func (v *Validator) ValidateName(name string) (bool, error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) == 0 {
		return false, domain.ErrAlternativeNameEmpty
	}
	if trimmed == "." || trimmed == ".." {
		return false, domain.ErrAlternativeNameDot
	}
	if strings.ContainsRune(trimmed, 0) {
		return false, domain.ErrAlternativeNameNullByte
	}
	for _, r := range trimmed {
		if r < 0x20 || r >= 0x7f {
			return false, domain.ErrAlternativeNameNonPrintable
		}
	}
	if invalidCharsPattern.MatchString(trimmed) {
		return false, domain.ErrAlternativeNameInvalidChars
	}
	return true, nil
}

// NormalizeName trims whitespace and a single leading dot, so "v2", " v2 "
// and ".v2" all select ".aws.v2", then validates the result.
func (v *Validator) NormalizeName(name string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(name), ".")
	if ok, err := v.ValidateName(trimmed); !ok {
		return "", err
	}
	return trimmed, nil
}
