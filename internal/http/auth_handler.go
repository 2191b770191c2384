package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"horizon-bank/internal/domain"
	"horizon-bank/internal/repository"
	"horizon-bank/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de credenciales.
type AuthHandler struct {
	logger *zap.Logger
	orch   *service.CredentialOrchestrator
	users  repository.UserRepository
	banks  repository.BankRepository
	jwtSvc *service.JWTService
}

func NewAuthHandler(logger *zap.Logger, orch *service.CredentialOrchestrator, users repository.UserRepository, banks repository.BankRepository, jwtSvc *service.JWTService) *AuthHandler {
	return &AuthHandler{
		logger: logger,
		orch:   orch,
		users:  users,
		banks:  banks,
		jwtSvc: jwtSvc,
	}
}

// SignUp maneja POST /auth/sign-up.
func (h *AuthHandler) SignUp(c *gin.Context) {
	h.submit(c, domain.SessionModeSignUp)
}

// SignIn maneja POST /auth/sign-in.
func (h *AuthHandler) SignIn(c *gin.Context) {
	h.submit(c, domain.SessionModeSignIn)
}

func (h *AuthHandler) submit(c *gin.Context, mode domain.SessionMode) {
	var input domain.CredentialInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("invalid credential payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.orch.Submit(c.Request.Context(), mode, input)
	if err != nil {
		var fieldErrs service.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			// Errores por campo para que el form marque cada uno.
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": fieldErrs})
		case errors.Is(err, service.ErrConcurrentSubmission):
			c.JSON(http.StatusConflict, gin.H{"error": "submission already in flight"})
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(err, service.ErrProviderUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identity provider unavailable"})
		default:
			h.logger.Error("credential submit failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete request"})
		}
		return
	}

	tokens, err := h.jwtSvc.GeneratePair(user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue tokens"})
		return
	}

	sess := h.orch.Session(user.Email)
	status := http.StatusOK
	if mode == domain.SessionModeSignUp {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"user":          user,
		"tokens":        tokens,
		"needs_linking": sess.NeedsLinking,
	})
}

// RefreshToken maneja POST /auth/refresh.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	tokens, err := h.jwtSvc.RefreshPair(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid logout request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.jwtSvc.RevokeRefresh(req.RefreshToken); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if claims, ok := GetAuthClaims(c); ok {
		h.orch.SignOut(claims.Email)
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// Me maneja GET /me.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	needsLinking := true
	sess := h.orch.Session(user.Email)
	if sess.State == service.StateAuthenticated {
		needsLinking = sess.NeedsLinking
	} else if h.banks != nil {
		linked, lerr := h.banks.ListByUser(c.Request.Context(), user.ID)
		if lerr == nil {
			needsLinking = len(linked) == 0
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"needs_linking": needsLinking,
	})
}
