package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegisterForm() RegisterForm {
	return RegisterForm{
		Name:     "Ana",
		Email:    "ana@x.com",
		CPF:      "111.222.333-96",
		Password: "secret1",
	}
}

func TestNormalizeCPF(t *testing.T) {
	assert.Equal(t, "12345678909", NormalizeCPF("123.456.789-09"))
	assert.Equal(t, "12345678909", NormalizeCPF("12345678909"))
	assert.Equal(t, "", NormalizeCPF("abc"))
}

func TestRegisterFormValidateOK(t *testing.T) {
	form := validRegisterForm()
	require.NoError(t, form.Validate())
	assert.Equal(t, "11122233396", form.CPF, "cpf must be stored digits-only")
}

func TestRegisterFormValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterForm)
		field  string
	}{
		{"empty name", func(f *RegisterForm) { f.Name = "  " }, "name"},
		{"empty email", func(f *RegisterForm) { f.Email = "" }, "email"},
		{"malformed email", func(f *RegisterForm) { f.Email = "not-an-email" }, "email"},
		{"short cpf", func(f *RegisterForm) { f.CPF = "123.456" }, "cpf"},
		{"long cpf", func(f *RegisterForm) { f.CPF = "123456789012" }, "cpf"},
		{"short password", func(f *RegisterForm) { f.Password = "abc" }, "password"},
		{"long password", func(f *RegisterForm) { f.Password = strings.Repeat("x", 21) }, "password"},
		{"oversized photo", func(f *RegisterForm) {
			f.Photo = &Photo{Data: make([]byte, MaxPhotoSize+1), Filename: "p.png"}
		}, "photo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validRegisterForm()
			tt.mutate(&form)
			err := form.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestRegisterFormValidateCollectsAllFields(t *testing.T) {
	form := RegisterForm{}
	err := form.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
}

func TestUpdateFormEmpty(t *testing.T) {
	assert.True(t, UpdateForm{}.Empty())

	name := "Ana"
	assert.False(t, UpdateForm{Name: &name}.Empty())
	assert.False(t, UpdateForm{Photo: &Photo{}}.Empty())
}

func TestUpdateFormValidatePhotoSize(t *testing.T) {
	form := UpdateForm{Photo: &Photo{Data: make([]byte, MaxPhotoSize+1)}}
	err := form.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "photo")
}
