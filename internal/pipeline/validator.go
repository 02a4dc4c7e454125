package pipeline

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/semenovpa/csv_importer/internal/domain"
)

const (
	minNameLength = 2
	minAge        = 1
	maxAge        = 120
)

// validate is shared: validator instances are concurrency-safe and expensive
// to build.
var validate = validator.New()

// ValidateRow checks one raw row and either produces a Record ready for
// insertion or the reason it was rejected. Checks run in a fixed order (name,
// email format, age), so a row violating several rules always reports the
// first. Fields are trimmed of surrounding whitespace; the email is also
// lower-cased, which makes uniqueness downstream case-insensitive.
func ValidateRow(raw RawRow) (*domain.Record, domain.Reason) {
	name := strings.TrimSpace(raw.Name)
	email := strings.ToLower(strings.TrimSpace(raw.Email))
	age := strings.TrimSpace(raw.Age)

	if utf8.RuneCountInString(name) < minNameLength {
		return nil, domain.ReasonNameTooShort
	}

	if err := validate.Var(email, "required,email"); err != nil {
		return nil, domain.ReasonInvalidEmailFormat
	}

	ageValue, err := strconv.Atoi(age)
	if err != nil {
		return nil, domain.ReasonAgeNotInteger
	}
	if ageValue < minAge || ageValue > maxAge {
		return nil, domain.ReasonAgeOutOfRange
	}

	return &domain.Record{
		Name:  name,
		Email: email,
		Age:   ageValue,
	}, ""
}
