package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"horizon-bank/internal/domain"
)

// FieldErrors mapea cada campo invalido a la regla violada.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

// ValidationEngine valida formularios de credenciales segun el modo de sesion.
// Es puro y sincronico: sin I/O ni estado compartido.
type ValidationEngine struct {
	validate *validator.Validate
}

func NewValidationEngine() *ValidationEngine {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	return &ValidationEngine{validate: v}
}

type signInForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signUpForm struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Address1    string `json:"address1" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	SSN         string `json:"ssn" validate:"required"`
}

// ValidateCredentials normaliza y valida el input para el modo dado.
// En exito devuelve solo los campos legales para ese modo; en fallo
// devuelve un mapa por campo, nunca un mensaje generico.
func (e *ValidationEngine) ValidateCredentials(mode domain.SessionMode, input domain.CredentialInput) (domain.CredentialInput, FieldErrors) {
	normalized := normalizeInput(input)

	switch mode {
	case domain.SessionModeSignIn:
		form := signInForm{Email: normalized.Email, Password: normalized.Password}
		if errs := e.check(form); errs != nil {
			return domain.CredentialInput{}, errs
		}
		// sign-in nunca acepta campos exclusivos de sign-up
		return domain.CredentialInput{Email: normalized.Email, Password: normalized.Password}, nil
	case domain.SessionModeSignUp:
		form := signUpForm{
			Email:       normalized.Email,
			Password:    normalized.Password,
			FirstName:   normalized.FirstName,
			LastName:    normalized.LastName,
			Address1:    normalized.Address1,
			City:        normalized.City,
			State:       normalized.State,
			PostalCode:  normalized.PostalCode,
			DateOfBirth: normalized.DateOfBirth,
			SSN:         normalized.SSN,
		}
		if errs := e.check(form); errs != nil {
			return domain.CredentialInput{}, errs
		}
		return normalized, nil
	default:
		return domain.CredentialInput{}, FieldErrors{"mode": "must be sign-in or sign-up"}
	}
}

func (e *ValidationEngine) check(form any) FieldErrors {
	err := e.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	fieldErrs := make(FieldErrors)
	if !errors.As(err, &verrs) {
		fieldErrs["input"] = "is invalid"
		return fieldErrs
	}
	for _, fe := range verrs {
		fieldErrs[fe.Field()] = ruleMessage(fe.Tag(), fe.Param())
	}
	return fieldErrs
}

func ruleMessage(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", param)
	case "datetime":
		return "must be a valid date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}

func normalizeInput(input domain.CredentialInput) domain.CredentialInput {
	return domain.CredentialInput{
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Password:    input.Password,
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Address1:    strings.TrimSpace(input.Address1),
		City:        strings.TrimSpace(input.City),
		State:       strings.TrimSpace(input.State),
		PostalCode:  strings.TrimSpace(input.PostalCode),
		DateOfBirth: strings.TrimSpace(input.DateOfBirth),
		SSN:         strings.TrimSpace(input.SSN),
	}
}
