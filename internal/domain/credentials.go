package domain

// SessionMode distingue el flujo de autenticacion solicitado por el usuario.
type SessionMode string

const (
	SessionModeSignIn SessionMode = "sign-in"
	SessionModeSignUp SessionMode = "sign-up"
)

// CredentialInput es el formulario crudo de sign-in / sign-up.
// Los campos de perfil solo aplican en modo sign-up.
type CredentialInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Address1    string `json:"address1,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	SSN         string `json:"ssn,omitempty"`
}

// WithoutPassword devuelve una copia apta para re-mostrar el formulario.
func (c CredentialInput) WithoutPassword() CredentialInput {
	c.Password = ""
	return c
}
