package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storefront/identity-service/internal/api/metrics"
	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

const forgotPasswordMessage = "if the email is registered, a reset code has been sent"

// AuthHandler serves the self-service onboarding routes under /auth.
type AuthHandler struct {
	service ports.OnboardingService
}

func NewAuthHandler(service ports.OnboardingService) *AuthHandler {
	return &AuthHandler{service: service}
}

// bindAndValidate decodes the request body into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

// Signup registers a user or seller and sends the verification code.
//
// @Summary      Sign up
// @Description  Creates an unverified account and emails a 6 digit code. Signing up again with an unverified email re-issues the code.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Signup form"
// @Success      201   {object}  signupResponse
// @Success      200   {object}  signupResponse  "code re-issued to an unverified account"
// @Failure      400   {object}  errorBody
// @Failure      429   {object}  errorBody
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.Signup(c.Request().Context(), toSignupInput(req))
	if err != nil {
		return err
	}

	metrics.NotificationsTotal.WithLabelValues("signup_otp", metrics.SentLabel(res.EmailSent)).Inc()

	status := http.StatusCreated
	msg := "account created, check your email for the verification code"
	if res.Reissued {
		status = http.StatusOK
		msg = "email already registered but not verified, a new verification code has been sent"
	} else {
		metrics.AccountsCreatedTotal.WithLabelValues(string(res.Account.Role), "signup").Inc()
	}
	if !res.EmailSent {
		msg = "account saved but the verification email could not be sent, request a new code"
	}

	return c.JSON(status, signupResponse{
		Message:   msg,
		EmailSent: res.EmailSent,
		Account:   toAccountResponse(res.Account),
	})
}

// VerifyOTP confirms the signup email with the emailed code.
//
// @Summary      Verify email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyOTPRequest  true  "Email and code"
// @Success      200   {object}  accountEnvelope
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Router       /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	acc, err := h.service.ConfirmEmail(c.Request().Context(), req.Email, req.OTP)
	if err != nil {
		return err
	}

	msg := "email verified successfully"
	if acc.Role == domain.RoleSeller {
		msg = "email verified, your seller account is awaiting admin approval"
	}
	return c.JSON(http.StatusOK, accountEnvelope{Message: msg, Account: toAccountResponse(acc)})
}

// ResendOTP issues a fresh signup code.
//
// @Summary      Resend verification code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Email"
// @Success      200   {object}  signupResponse
// @Failure      400   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Failure      429   {object}  errorBody
// @Router       /auth/resend-otp [post]
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sent := true
	err := h.service.ResendCode(c.Request().Context(), req.Email)
	switch {
	case errors.Is(err, domain.ErrDeliveryFailed):
		// The new code is persisted; only the email is missing.
		sent = false
	case err != nil:
		return err
	}
	metrics.NotificationsTotal.WithLabelValues("signup_otp", metrics.SentLabel(sent)).Inc()

	msg := "a new verification code has been sent"
	if !sent {
		msg = "a new code was generated but the email could not be sent"
	}
	return c.JSON(http.StatusOK, map[string]any{"message": msg, "emailSent": sent})
}

// Login exchanges credentials for a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	metrics.LoginAttemptsTotal.WithLabelValues(loginOutcome(err)).Inc()
	if err != nil {
		// Unknown emails answer exactly like a wrong password.
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC(),
		User:      toAccountResponse(res.Account),
	})
}

// ForgotPassword starts password recovery. The answer is the same whether or
// not the email is registered.
//
// @Summary      Forgot password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorBody
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.service.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: forgotPasswordMessage})
}

// ResetPassword sets a new password using the emailed reset code.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Email, code and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.service.ResetPassword(c.Request().Context(), ports.ResetPasswordInput{
		Email:       req.Email,
		Code:        req.OTP,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password reset successfully, you can now log in"})
}

// Me returns the caller's live account.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  accountEnvelope
// @Failure      401  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accountEnvelope{Account: toAccountResponse(id.Account)})
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "deactivated"
	case errors.Is(err, domain.ErrEmailNotVerified):
		return "email_not_verified"
	case errors.Is(err, domain.ErrSellerPendingApproval), errors.Is(err, domain.ErrSellerNotApproved):
		return "seller_not_approved"
	}
	return "error"
}
