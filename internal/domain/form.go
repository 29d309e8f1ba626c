// Package domain contains the core types shared across the portal.
//
// This file defines the sign-up/login form state. FormState is a value:
// every edit produces a new FormState instead of mutating fields in place,
// so handlers can hold onto an old state while a new one is being built.
package domain

import "strings"

// Mode selects which of the two form behaviors is active.
type Mode string

const (
	ModeSignUp Mode = "signup"
	ModeLogin  Mode = "login"
)

// ParseMode converts a submitted control value into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSignUp:
		return ModeSignUp, true
	case ModeLogin:
		return ModeLogin, true
	default:
		return "", false
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeSignUp || m == ModeLogin
}

// Label returns the user-facing name of the mode.
func (m Mode) Label() string {
	if m == ModeLogin {
		return "Login"
	}
	return "Sign Up"
}

// Field names a form input. The values double as HTML input names.
type Field string

const (
	FieldUsername        Field = "username"
	FieldEmail           Field = "email"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirm_password"
	FieldFirstName       Field = "first_name"
	FieldLastName        Field = "last_name"
)

// FieldsFor returns the fields rendered and validated in the given mode,
// in display order.
func FieldsFor(m Mode) []Field {
	if m == ModeLogin {
		return []Field{FieldUsername, FieldPassword}
	}
	return []Field{
		FieldFirstName,
		FieldLastName,
		FieldEmail,
		FieldUsername,
		FieldPassword,
		FieldConfirmPassword,
	}
}

// FormFields holds the raw values typed by the user.
type FormFields struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password,omitempty"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// Get returns the value of a single field.
func (f FormFields) Get(field Field) string {
	switch field {
	case FieldUsername:
		return f.Username
	case FieldEmail:
		return f.Email
	case FieldPassword:
		return f.Password
	case FieldConfirmPassword:
		return f.ConfirmPassword
	case FieldFirstName:
		return f.FirstName
	case FieldLastName:
		return f.LastName
	}
	return ""
}

// Set returns a copy with a single field replaced.
func (f FormFields) Set(field Field, value string) FormFields {
	switch field {
	case FieldUsername:
		f.Username = value
	case FieldEmail:
		f.Email = value
	case FieldPassword:
		f.Password = value
	case FieldConfirmPassword:
		f.ConfirmPassword = value
	case FieldFirstName:
		f.FirstName = value
	case FieldLastName:
		f.LastName = value
	}
	return f
}

// Redacted returns a copy without the secret fields.
func (f FormFields) Redacted() FormFields {
	f.Password = ""
	f.ConfirmPassword = ""
	return f
}

// ErrorMap maps a field to its validation message.
type ErrorMap map[Field]string

// Has reports whether field has an error.
func (e ErrorMap) Has(field Field) bool {
	_, ok := e[field]
	return ok
}

// FormState is the complete state of the sign-up/login form.
type FormState struct {
	Mode   Mode       `json:"mode"`
	Fields FormFields `json:"fields"`
	Errors ErrorMap   `json:"errors,omitempty"`
}

// NewFormState returns the initial form state: sign-up mode, no values.
func NewFormState() FormState {
	return FormState{
		Mode:   ModeSignUp,
		Errors: ErrorMap{},
	}
}

// WithFields replaces the field values, keeping mode and errors.
func (s FormState) WithFields(f FormFields) FormState {
	s.Fields = f
	s.Errors = copyErrors(s.Errors)
	return s
}

// MergeFields takes the fields shown in mode m from f and keeps every other
// stored value. A page only posts the fields it renders, so values typed in
// the other mode survive a round trip.
func (s FormState) MergeFields(m Mode, f FormFields) FormState {
	merged := s.Fields
	for _, field := range FieldsFor(m) {
		merged = merged.Set(field, f.Get(field))
	}
	return s.WithFields(merged)
}

// WithMode switches mode. Errors are always cleared; field values are kept
// so the user does not lose what they typed.
func (s FormState) WithMode(m Mode) FormState {
	s.Mode = m
	s.Errors = ErrorMap{}
	return s
}

// WithErrors replaces the error map wholesale.
func (s FormState) WithErrors(e ErrorMap) FormState {
	s.Errors = copyErrors(e)
	return s
}

// Cleared returns the state with every field emptied except those listed.
func (s FormState) Cleared(keep ...Field) FormState {
	var next FormFields
	for _, field := range keep {
		switch field {
		case FieldUsername:
			next.Username = s.Fields.Username
		case FieldEmail:
			next.Email = s.Fields.Email
		case FieldFirstName:
			next.FirstName = s.Fields.FirstName
		case FieldLastName:
			next.LastName = s.Fields.LastName
		}
	}
	s.Fields = next
	s.Errors = ErrorMap{}
	return s
}

// Valid reports whether the current error map is empty.
func (s FormState) Valid() bool {
	return len(s.Errors) == 0
}

func copyErrors(e ErrorMap) ErrorMap {
	out := make(ErrorMap, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
