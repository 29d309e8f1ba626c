// Package validate implements the sign-up/login field rules.
//
// Validation is pure: the same fields and mode always produce the same
// ErrorMap, and nothing is sent anywhere. Messages are user-facing and are
// rendered next to the offending input.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/DukeRupert/authportal/internal/domain"
)

const (
	// DefaultMinPasswordLength applies when no policy value is configured.
	DefaultMinPasswordLength = 8

	// DefaultSpecialCharacters is the special-character set required in
	// sign-up passwords unless configured otherwise.
	DefaultSpecialCharacters = "!@#$%^&*"
)

// emailPattern is deliberately loose and unanchored: something, an @,
// something, a dot, something.
var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Policy configures the password rules.
type Policy struct {
	MinPasswordLength int
	SpecialCharacters string
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MinPasswordLength: DefaultMinPasswordLength,
		SpecialCharacters: DefaultSpecialCharacters,
	}
}

// Validator checks form fields against a Policy.
type Validator struct {
	policy Policy
}

// New creates a Validator. The policy must require at least one character
// and name at least one special character, otherwise no password could
// ever satisfy it.
func New(policy Policy) (*Validator, error) {
	if policy.MinPasswordLength < 1 {
		return nil, fmt.Errorf("minimum password length must be positive, got %d", policy.MinPasswordLength)
	}
	if policy.SpecialCharacters == "" {
		return nil, fmt.Errorf("special character set must not be empty")
	}
	return &Validator{policy: policy}, nil
}

// Policy returns the configured policy.
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate checks fields for the given mode. The returned map only contains
// keys for fields that belong to mode; valid is true when it is empty.
func (v *Validator) Validate(fields domain.FormFields, mode domain.Mode) (domain.ErrorMap, bool) {
	errs := domain.ErrorMap{}

	if fields.Username == "" {
		errs[domain.FieldUsername] = "Username is required"
	}
	if fields.Password == "" {
		errs[domain.FieldPassword] = "Password is required"
	}

	if mode == domain.ModeSignUp {
		if fields.FirstName == "" {
			errs[domain.FieldFirstName] = "First Name is Required"
		}
		if fields.LastName == "" {
			errs[domain.FieldLastName] = "Last Name is Required"
		}

		if fields.Email == "" {
			errs[domain.FieldEmail] = "E-Mail is required"
		} else if !emailPattern.MatchString(fields.Email) {
			errs[domain.FieldEmail] = "E-Mail is invalid"
		}

		if fields.Password != "" {
			if msg := v.checkPassword(fields.Password); msg != "" {
				errs[domain.FieldPassword] = msg
			}
		}

		if fields.ConfirmPassword == "" {
			errs[domain.FieldConfirmPassword] = "Confirm Password is required"
		} else if fields.Password != fields.ConfirmPassword {
			errs[domain.FieldConfirmPassword] = "Passwords do not match"
		}
	}

	return errs, len(errs) == 0
}

// checkPassword returns the first failing password rule, or "" when the
// password is acceptable. Length is reported before complexity.
func (v *Validator) checkPassword(password string) string {
	if utf8.RuneCountInString(password) < v.policy.MinPasswordLength {
		return fmt.Sprintf("Password must be at least %d characters long", v.policy.MinPasswordLength)
	}
	if !v.complex(password) {
		return fmt.Sprintf(
			"Password must include 1 uppercase letter, 1 lowercase letter, 1 number, and 1 special character (%s)",
			v.policy.SpecialCharacters,
		)
	}
	return ""
}

func (v *Validator) complex(password string) bool {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
		if strings.ContainsRune(v.policy.SpecialCharacters, r) {
			special = true
		}
	}
	return lower && upper && digit && special
}
