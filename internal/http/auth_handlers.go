package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"nestbook/internal/logging"
	"nestbook/internal/service"
)

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

type signupForm struct {
	FirstName       string `form:"firstName"`
	LastName        string `form:"lastName"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
	UserType        string `form:"userType"`
	TermsAccepted   string `form:"termsAccepted"`
}

func (f signupForm) input() service.SignupInput {
	return service.SignupInput{
		FirstName:       f.FirstName,
		LastName:        f.LastName,
		Email:           f.Email,
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
		UserType:        f.UserType,
		TermsAccepted:   f.TermsAccepted != "",
	}
}

// echo drops the password fields before the form is rendered back.
func (f signupForm) echo() signupForm {
	f.Password = ""
	f.ConfirmPassword = ""
	return f
}

type emailForm struct {
	Email string `form:"email"`
}

type resetForm struct {
	Email           string `form:"email"`
	OTP             string `form:"otp"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

// isDomainError reports whether err is one of the expected outcomes of an auth operation, as opposed to
// a store or other infrastructure failure.
func isDomainError(err error) bool {
	var nerr *service.NotificationError
	return service.IsValidation(err) ||
		errors.Is(err, service.ErrAccountExists) ||
		errors.Is(err, service.ErrUserNotFound) ||
		errors.Is(err, service.ErrInvalidCredential) ||
		errors.Is(err, service.ErrOTPExpired) ||
		errors.Is(err, service.ErrOTPMismatch) ||
		errors.As(err, &nerr)
}

// failureStatus picks the status of a re-rendered form. Unexpected failures are logged here.
func (h *Handler) failureStatus(c *gin.Context, err error, domainStatus int) int {
	if isDomainError(err) {
		return domainStatus
	}
	logging.WithError(h.logger, err).WithField("path", c.Request.URL.Path).Error("auth operation failed")
	return http.StatusInternalServerError
}

func (h *Handler) getLogin(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", page{Title: "Login"})
}

func (h *Handler) postLogin(c *gin.Context) {
	var form loginForm
	_ = c.ShouldBind(&form)

	user, err := h.auth.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		h.render(c, h.failureStatus(c, err, http.StatusOK), "login.html", page{
			Title:  "Login",
			Errors: service.Messages(err),
			Email:  form.Email,
		})
		return
	}

	// the redirect is only sent once the session write is confirmed
	_, cookie, err := h.sessions.Login(c.Request.Context(), currentSession(c), user)
	if err != nil && cookie == "" {
		h.render(c, h.failureStatus(c, err, http.StatusOK), "login.html", page{
			Title:  "Login",
			Errors: service.Messages(err),
			Email:  form.Email,
		})
		return
	}
	if err != nil {
		logging.WithError(h.logger, err).Warn("drop previous session")
	}

	h.writeCookie(c, cookie, int(h.sessions.TTL().Seconds()))
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) postLogout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Request.Context(), currentSession(c)); err != nil {
		logging.WithError(h.logger, err).Warn("destroy session")
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusFound, "/auth/login")
}

func (h *Handler) getSignup(c *gin.Context) {
	h.render(c, http.StatusOK, "signup.html", page{Title: "Signup"})
}

func (h *Handler) postSignup(c *gin.Context) {
	var form signupForm
	_ = c.ShouldBind(&form)

	if _, err := h.auth.Signup(c.Request.Context(), form.input()); err != nil {
		h.render(c, h.failureStatus(c, err, http.StatusUnprocessableEntity), "signup.html", page{
			Title:    "Signup",
			Errors:   service.Messages(err),
			OldInput: form.echo(),
		})
		return
	}

	c.Redirect(http.StatusFound, "/auth/login")
}

func (h *Handler) getForgotPassword(c *gin.Context) {
	h.render(c, http.StatusOK, "forgot.html", page{Title: "Forgot Password"})
}

func (h *Handler) postForgotPassword(c *gin.Context) {
	var form emailForm
	_ = c.ShouldBind(&form)

	if err := h.auth.ForgotPassword(c.Request.Context(), form.Email); err != nil {
		h.render(c, h.failureStatus(c, err, http.StatusOK), "forgot.html", page{
			Title:  "Forgot Password",
			Errors: service.Messages(err),
			Email:  form.Email,
		})
		return
	}

	c.Redirect(http.StatusFound, "/auth/reset-password?"+url.Values{"email": {form.Email}}.Encode())
}

func (h *Handler) getResetPassword(c *gin.Context) {
	h.render(c, http.StatusOK, "reset_password.html", page{
		Title: "Reset Password",
		Email: c.Query("email"),
	})
}

func (h *Handler) postResetPassword(c *gin.Context) {
	var form resetForm
	_ = c.ShouldBind(&form)

	err := h.auth.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Email:           form.Email,
		OTP:             form.OTP,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
	})
	if err != nil {
		status := http.StatusOK
		if service.IsValidation(err) {
			status = http.StatusUnprocessableEntity
		}
		h.render(c, h.failureStatus(c, err, status), "reset_password.html", page{
			Title:  "Reset Password",
			Errors: service.Messages(err),
			Email:  form.Email,
		})
		return
	}

	c.Redirect(http.StatusFound, "/auth/login")
}
