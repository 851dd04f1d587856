package user

import (
	"fmt"
	"net/mail"
	"strings"
)

// MaxPhotoSize caps a single uploaded photo at 5 MiB.
const MaxPhotoSize = 5 << 20

// Photo is an uploaded file captured from a multipart form.
type Photo struct {
	Data        []byte
	Filename    string
	ContentType string
}

// RegisterForm is the typed record a registration multipart body is
// parsed into before validation.
type RegisterForm struct {
	Name     string
	Email    string
	CPF      string
	Password string
	Photo    *Photo
}

// UpdateForm carries the optional fields of a profile update.
// Nil means the field was not submitted.
type UpdateForm struct {
	Name  *string
	Photo *Photo
}

// ValidationError aggregates per-field validation messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %d invalid field(s)", len(e.Fields))
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// NormalizeCPF strips every non-digit character.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate checks the registration fields and normalizes the CPF in
// place. It returns a *ValidationError listing every invalid field.
func (f *RegisterForm) Validate() error {
	verr := &ValidationError{}

	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		verr.add("name", "name is required")
	}

	f.Email = strings.TrimSpace(f.Email)
	if f.Email == "" {
		verr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(f.Email); err != nil {
		verr.add("email", "invalid email address")
	}

	f.CPF = NormalizeCPF(f.CPF)
	if len(f.CPF) != 11 {
		verr.add("cpf", "cpf must contain exactly 11 digits")
	}

	if n := len(f.Password); n < 6 || n > 20 {
		verr.add("password", "password must be between 6 and 20 characters")
	}

	if f.Photo != nil && int64(len(f.Photo.Data)) > MaxPhotoSize {
		verr.add("photo", "photo exceeds the 5MB limit")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Empty reports whether the update carries no change at all.
func (f UpdateForm) Empty() bool {
	return f.Name == nil && f.Photo == nil
}

// Validate checks the optional update fields.
func (f *UpdateForm) Validate() error {
	verr := &ValidationError{}

	if f.Photo != nil && int64(len(f.Photo.Data)) > MaxPhotoSize {
		verr.add("photo", "photo exceeds the 5MB limit")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
