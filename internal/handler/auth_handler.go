package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"nanum/internal/auth"
	apperrors "nanum/internal/errors"
	"nanum/internal/logging"
	"nanum/internal/middleware"
	"nanum/internal/model"
	"nanum/internal/service"
)

// AuthHandler handles signup, verification and session endpoints.
type AuthHandler struct {
	signup      service.SignupService
	authService service.AuthService
	cookies     auth.CookieConfig
	longPoll    time.Duration
	log         logging.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	signup service.SignupService,
	authService service.AuthService,
	cookies auth.CookieConfig,
	longPoll time.Duration,
	log logging.Logger,
) *AuthHandler {
	return &AuthHandler{
		signup:      signup,
		authService: authService,
		cookies:     cookies,
		longPoll:    longPoll,
		log:         log.With("handler", "auth"),
	}
}

// EmailRequest carries a single email address.
type EmailRequest struct {
	Email string `json:"email" validate:"required"`
}

// SignupRequest represents the finalize-signup request. Role and approval
// cannot be supplied at signup. It carries no validate tags: the signup
// service checks these fields after the verification check.
type SignupRequest struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required" minLength:"6"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name" binding:"required"`
	Organization    string `json:"organization"`
}

// ConfirmEmailRequest carries a confirmation token.
type ConfirmEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SendVerificationResponse is returned after a verification mail is issued.
type SendVerificationResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// VerificationStatusResponse reports whether an email is verified.
type VerificationStatusResponse struct {
	Verified bool   `json:"verified"`
	Email    string `json:"email"`
}

// SignupResponse is returned after a successful signup.
type SignupResponse struct {
	Message                string      `json:"message"`
	User                   *model.User `json:"user"`
	NeedsEmailConfirmation bool        `json:"needsEmailConfirmation"`
}

// ConfirmedIdentity is the user part of a confirm-email response.
type ConfirmedIdentity struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	EmailConfirmed bool   `json:"emailConfirmed"`
}

// ConfirmEmailResponse is returned after a token is accepted.
type ConfirmEmailResponse struct {
	Message string            `json:"message"`
	User    ConfirmedIdentity `json:"user"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// SendVerification godoc
// @Summary Send a verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email to verify"
// @Success 200 {object} SendVerificationResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /auth/send-verification [post]
func (h *AuthHandler) SendVerification(c echo.Context) error {
	var req EmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return toHTTPError(c, h.log, err)
	}

	email, err := h.signup.RequestVerification(c.Request().Context(), req.Email)
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, SendVerificationResponse{
		Message: "인증 메일을 발송했습니다. 메일함을 확인해주세요.",
		Email:   email,
	})
}

// CheckVerification godoc
// @Summary Check whether an email has been verified
// @Tags auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} VerificationStatusResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /auth/check-verification [post]
func (h *AuthHandler) CheckVerification(c echo.Context) error {
	var req EmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return toHTTPError(c, h.log, err)
	}

	ok, err := h.signup.CheckVerificationStatus(c.Request().Context(), req.Email)
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, VerificationStatusResponse{Verified: ok, Email: service.NormalizeEmail(req.Email)})
}

// VerificationEvents godoc
// @Summary Wait for an email to become verified
// @Description Long-poll. Answers as soon as the email is verified or when the wait times out.
// @Tags auth
// @Produce json
// @Param email query string true "Email"
// @Success 200 {object} VerificationStatusResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/verification-events [get]
func (h *AuthHandler) VerificationEvents(c echo.Context) error {
	email := c.QueryParam("email")
	ok, err := h.signup.AwaitVerification(c.Request().Context(), email, h.longPoll)
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, VerificationStatusResponse{Verified: ok, Email: service.NormalizeEmail(email)})
}

// Signup godoc
// @Summary Finalize signup for a verified email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup data"
// @Success 201 {object} SignupResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return toHTTPError(c, h.log, badRequestBody())
	}

	user, err := h.signup.FinalizeSignup(c.Request().Context(), service.SignupInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Name:            req.Name,
		Organization:    req.Organization,
	})
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, SignupResponse{
		Message:                service.SignupPendingMessage,
		User:                   user,
		NeedsEmailConfirmation: false,
	})
}

// ConfirmEmail godoc
// @Summary Confirm an email with the mailed token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ConfirmEmailRequest true "Token"
// @Success 200 {object} ConfirmEmailResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /auth/confirm-email [post]
func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	var req ConfirmEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return toHTTPError(c, h.log, err)
	}

	identity, err := h.signup.ConfirmEmail(c.Request().Context(), req.Token)
	if err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ConfirmEmailResponse{
		Message: "이메일 인증이 완료되었습니다. 회원가입을 계속 진행해주세요.",
		User:    ConfirmedIdentity{ID: identity.ID, Email: identity.Email, EmailConfirmed: true},
	})
}

// ResendConfirmation godoc
// @Summary Resend the verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /auth/resend-confirmation [post]
func (h *AuthHandler) ResendConfirmation(c echo.Context) error {
	var req EmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return toHTTPError(c, h.log, err)
	}

	if err := h.signup.ResendConfirmation(c.Request().Context(), req.Email); err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "인증 메일을 다시 발송했습니다."})
}

// VerificationWebhook godoc
// @Summary Credential store callback for a confirmed email
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EmailRequest true "Confirmed email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/webhooks/verification [post]
func (h *AuthHandler) VerificationWebhook(c echo.Context) error {
	var req EmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return toHTTPError(c, h.log, err)
	}

	if err := h.signup.MarkVerifiedByWebhook(c.Request().Context(), req.Email); err != nil {
		return toHTTPError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "ok"})
}

// Login godoc
// @Summary Login and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return toHTTPError(c, h.log, err)
	}

	user, sess, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return toHTTPError(c, h.log, err)
	}

	c.SetCookie(h.cookies.SessionCookie(sess))
	return c.JSON(http.StatusOK, LoginResponse{Message: "로그인되었습니다.", User: user})
}

// Logout godoc
// @Summary Destroy the current session
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	sid := middleware.SessionID(c)
	if sid == "" {
		if cookie, err := c.Cookie(h.cookies.Name); err == nil {
			sid = cookie.Value
		}
	}

	if err := h.authService.Logout(c.Request().Context(), sid); err != nil {
		return toHTTPError(c, h.log, err)
	}
	c.SetCookie(h.cookies.ClearCookie())
	return c.JSON(http.StatusOK, MessageResponse{Message: "로그아웃되었습니다."})
}

// CurrentUser godoc
// @Summary Current signed-in user
// @Tags auth
// @Produce json
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/user [get]
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return toHTTPError(c, h.log, apperrors.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, user)
}
