package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"horizon-bank/internal/domain"
	"horizon-bank/internal/repository"
)

// CredentialState es el estado visible de la maquina de sesion.
type CredentialState string

const (
	StateIdle          CredentialState = "idle"
	StateSubmitting    CredentialState = "submitting"
	StateAuthenticated CredentialState = "authenticated"
	StateFailed        CredentialState = "failed"
)

var (
	ErrConcurrentSubmission = errors.New("submission already in flight")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrProviderUnavailable  = errors.New("provider unavailable")
)

// CredentialSession es el snapshot expuesto a la capa de presentacion.
// Retained nunca incluye el password.
type CredentialSession struct {
	State        CredentialState
	Mode         domain.SessionMode
	User         *domain.User
	NeedsLinking bool
	Retained     domain.CredentialInput
	FieldErrors  FieldErrors
	Reason       error
}

// CredentialOrchestrator dirige sign-up y sign-in contra el proveedor de
// identidad. Mantiene una maquina de estados por sesion (clave: email
// normalizado) y garantiza una sola llamada al proveedor por submission.
type CredentialOrchestrator struct {
	logger *zap.Logger
	users  repository.UserRepository
	banks  repository.BankRepository
	engine *ValidationEngine

	mu       sync.Mutex
	sessions map[string]*CredentialSession
}

func NewCredentialOrchestrator(logger *zap.Logger, users repository.UserRepository, banks repository.BankRepository, engine *ValidationEngine) *CredentialOrchestrator {
	if engine == nil {
		engine = NewValidationEngine()
	}
	return &CredentialOrchestrator{
		logger:   logger,
		users:    users,
		banks:    banks,
		engine:   engine,
		sessions: make(map[string]*CredentialSession),
	}
}

// Submit valida el formulario y ejecuta exactamente una llamada al proveedor
// de identidad. Un segundo Submit para la misma sesion mientras hay uno en
// vuelo devuelve ErrConcurrentSubmission sin tocar al proveedor.
func (o *CredentialOrchestrator) Submit(ctx context.Context, mode domain.SessionMode, input domain.CredentialInput) (domain.User, error) {
	if o.users == nil {
		return domain.User{}, errors.New("credential orchestrator not configured")
	}

	validated, fieldErrs := o.engine.ValidateCredentials(mode, input)
	if fieldErrs != nil {
		o.recordValidationFailure(mode, input, fieldErrs)
		return domain.User{}, fieldErrs
	}

	key := validated.Email

	o.mu.Lock()
	sess := o.ensureSession(key)
	if sess.State == StateSubmitting {
		o.mu.Unlock()
		return domain.User{}, ErrConcurrentSubmission
	}
	sess.State = StateSubmitting
	sess.Mode = mode
	sess.FieldErrors = nil
	sess.Reason = nil
	o.mu.Unlock()

	user, err := o.callProvider(ctx, mode, validated)
	if err != nil {
		o.mu.Lock()
		sess.State = StateFailed
		sess.Retained = validated.WithoutPassword()
		sess.User = nil
		sess.Reason = err
		o.mu.Unlock()
		return domain.User{}, err
	}

	needsLinking := true
	if mode == domain.SessionModeSignIn && o.banks != nil {
		linked, lerr := o.banks.ListByUser(ctx, user.ID)
		if lerr != nil {
			o.logger.Warn("list linked banks failed", zap.Error(lerr), zap.String("user_id", user.ID))
		} else {
			needsLinking = len(linked) == 0
		}
	}

	o.mu.Lock()
	sess.State = StateAuthenticated
	sess.User = &user
	sess.NeedsLinking = needsLinking
	sess.Retained = domain.CredentialInput{}
	o.mu.Unlock()

	return user, nil
}

func (o *CredentialOrchestrator) callProvider(ctx context.Context, mode domain.SessionMode, validated domain.CredentialInput) (domain.User, error) {
	switch mode {
	case domain.SessionModeSignUp:
		hashBytes, err := bcrypt.GenerateFromPassword([]byte(validated.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, err
		}
		user := domain.User{
			ID:           uuid.NewString(),
			Email:        validated.Email,
			FirstName:    validated.FirstName,
			LastName:     validated.LastName,
			Address1:     validated.Address1,
			City:         validated.City,
			State:        validated.State,
			PostalCode:   validated.PostalCode,
			DateOfBirth:  validated.DateOfBirth,
			SSN:          validated.SSN,
			PasswordHash: string(hashBytes),
			CreatedAt:    time.Now().UTC(),
		}
		if err := o.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return domain.User{}, ErrEmailTaken
			}
			o.logger.Error("identity provider create failed", zap.Error(err))
			return domain.User{}, ErrProviderUnavailable
		}
		return user, nil
	default:
		user, err := o.users.GetByEmail(ctx, validated.Email)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.User{}, ErrInvalidCredentials
			}
			o.logger.Error("identity provider lookup failed", zap.Error(err))
			return domain.User{}, ErrProviderUnavailable
		}
		if user.PasswordHash == "" {
			return domain.User{}, ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(validated.Password)); err != nil {
			return domain.User{}, ErrInvalidCredentials
		}
		return user, nil
	}
}

func (o *CredentialOrchestrator) recordValidationFailure(mode domain.SessionMode, input domain.CredentialInput, fieldErrs FieldErrors) {
	key := normalizeInput(input).Email
	if key == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	sess := o.ensureSession(key)
	if sess.State == StateSubmitting {
		return
	}
	sess.Mode = mode
	sess.Retained = normalizeInput(input).WithoutPassword()
	sess.FieldErrors = fieldErrs
}

// Session devuelve el snapshot actual para la clave de sesion dada.
func (o *CredentialOrchestrator) Session(email string) CredentialSession {
	key := normalizeInput(domain.CredentialInput{Email: email}).Email
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.sessions[key]
	if !ok {
		return CredentialSession{State: StateIdle}
	}
	return *sess
}

// MarkLinked limpia el sub-estado needs-linking tras un vinculo exitoso.
func (o *CredentialOrchestrator) MarkLinked(email string) {
	key := normalizeInput(domain.CredentialInput{Email: email}).Email
	o.mu.Lock()
	defer o.mu.Unlock()
	if sess, ok := o.sessions[key]; ok && sess.State == StateAuthenticated {
		sess.NeedsLinking = false
	}
}

// SignOut destruye la sesion; el identity handle no sobrevive al cierre.
func (o *CredentialOrchestrator) SignOut(email string) {
	key := normalizeInput(domain.CredentialInput{Email: email}).Email
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.sessions, key)
}

func (o *CredentialOrchestrator) ensureSession(key string) *CredentialSession {
	sess, ok := o.sessions[key]
	if !ok {
		sess = &CredentialSession{State: StateIdle}
		o.sessions[key] = sess
	}
	return sess
}
