package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/slangdex/internal/dto"
)

const (
	refreshCookie     = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler handles sign-in requests
type AuthHandler struct {
	session       Session
	tokens        TokenIssuer
	secureCookies bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(session Session, tokens TokenIssuer, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		session:       session,
		tokens:        tokens,
		secureCookies: secureCookies,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create an email identity and its profile
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName); err != nil {
		// the identity may exist even though the profile write failed
		if h.tokens.Credentials() != nil {
			h.setRefreshCookie(c)
		}
		writeError(c, err)
		return
	}

	h.respond(c, http.StatusCreated)
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		writeError(c, err)
		return
	}

	h.respond(c, http.StatusOK)
}

// Guest signs in a new anonymous identity
// @Summary Continue as guest
// @Tags auth
// @Produce json
// @Success 201 {object} dto.AuthResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /auth/guest [post]
func (h *AuthHandler) Guest(c *gin.Context) {
	if err := h.session.LoginAsGuest(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}

	h.respond(c, http.StatusCreated)
}

// Refresh handles token refresh
// @Summary Refresh tokens
// @Description Resume the session of the refresh token cookie and rotate it
// @Tags auth
// @Produce json
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookie)
	if err != nil || refreshToken == "" {
		abortWith(c, http.StatusBadRequest, "Refresh token not found in cookie")
		return
	}

	if err := h.session.Restore(c.Request.Context(), refreshToken); err != nil {
		h.clearRefreshCookie(c)
		writeError(c, err)
		return
	}

	h.respond(c, http.StatusOK)
}

// Logout handles user logout
// @Summary Logout user
// @Description Sign out and revoke the tokens of the current identity
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	err := h.session.Logout(c.Request.Context())

	// the local session is gone either way
	h.clearRefreshCookie(c)

	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

func (h *AuthHandler) respond(c *gin.Context, status int) {
	creds := h.tokens.Credentials()
	if creds != nil {
		h.setRefreshCookie(c)
	}
	c.JSON(status, dto.NewAuthResponse(creds, h.session.Current()))
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context) {
	creds := h.tokens.Credentials()
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, creds.RefreshToken, creds.RefreshExpiresIn, refreshCookiePath, "", h.secureCookies, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, "", -1, refreshCookiePath, "", h.secureCookies, true)
}
