package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"nestbook/internal/credential"
	"nestbook/internal/domain"
	"nestbook/internal/metrics"
	"nestbook/internal/notify"
	"nestbook/internal/repository"
)

const welcomeTimeout = 30 * time.Second

// Operation names used for metrics and logs.
const (
	opSignup         = "signup"
	opLogin          = "login"
	opForgotPassword = "forgot_password"
	opResetPassword  = "reset_password"
)

// SignupInput is the raw signup form.
type SignupInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	UserType        string
	TermsAccepted   bool
}

// ResetPasswordInput is the raw reset-password form.
type ResetPasswordInput struct {
	Email           string
	OTP             string
	Password        string
	ConfirmPassword string
}

// SignupResult is the account created by Signup.
// Welcome receives the outcome of the welcome email (nil or a *NotificationError) and is then closed.
type SignupResult struct {
	User    *domain.User
	Welcome <-chan error
}

// Config holds the tunables of the auth flows.
type Config struct {
	OTPValidity time.Duration
	// BaseURL prefixes links sent by email.
	BaseURL string
	Now     func() time.Time
}

// AuthService describes the account lifecycle operations.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*SignupResult, error)
	Login(ctx context.Context, email, password string) (domain.UserSnapshot, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
}

type authService struct {
	users    repository.UserRepository
	hasher   credential.Hasher
	otps     credential.OTPGenerator
	mail     notify.Sender
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
	validate *validator.Validate
	cfg      Config
}

func NewAuthService(
	users repository.UserRepository,
	hasher credential.Hasher,
	otps credential.OTPGenerator,
	mail notify.Sender,
	m *metrics.Metrics,
	logger logrus.FieldLogger,
	cfg Config,
) AuthService {
	if cfg.OTPValidity <= 0 {
		cfg.OTPValidity = credential.OTPValidity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &authService{
		users:    users,
		hasher:   hasher,
		otps:     otps,
		mail:     mail,
		metrics:  m,
		logger:   logger,
		validate: newValidator(),
		cfg:      cfg,
	}
}

func (s *authService) now() time.Time {
	return s.cfg.Now().UTC()
}

func (s *authService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	in = in.normalize()
	if err := s.validateSignup(in); err != nil {
		s.metrics.RecordAuth(opSignup, metrics.OutcomeRejected)
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.metrics.RecordAuth(opSignup, metrics.OutcomeError)
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "hash password").Wrap(err)
	}

	now := s.now()
	user := &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		UserType:     domain.UserType(in.UserType),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			s.metrics.RecordAuth(opSignup, metrics.OutcomeRejected)
			return nil, ErrAccountExists
		}
		s.metrics.RecordAuth(opSignup, metrics.OutcomeError)
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "create user").Wrap(err)
	}
	s.metrics.RecordAuth(opSignup, metrics.OutcomeSuccess)

	return &SignupResult{User: user, Welcome: s.sendWelcome(ctx, user)}, nil
}

// sendWelcome delivers the welcome email in the background. The account already exists, so a failure is
// logged and counted but never undoes the signup.
func (s *authService) sendWelcome(ctx context.Context, user *domain.User) <-chan error {
	done := make(chan error, 1)
	msg := notify.WelcomeMessage(user.Email, user.FirstName, user.LastName)

	go func() {
		defer close(done)
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), welcomeTimeout)
		defer cancel()

		if err := s.mail.Send(sendCtx, msg); err != nil {
			nerr := &NotificationError{Kind: metrics.KindWelcome, Err: err}
			s.metrics.RecordNotificationFailure(metrics.KindWelcome)
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("welcome email not delivered")
			done <- nerr
			return
		}
		done <- nil
	}()
	return done
}

func (s *authService) Login(ctx context.Context, email, password string) (domain.UserSnapshot, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.metrics.RecordAuth(opLogin, metrics.OutcomeError)
			return domain.UserSnapshot{}, oops.Code("AUTH_LOGIN_FAILED").With("operation", "find user").Wrap(err)
		}
		// Burn the same bcrypt work as a real comparison so a miss is not faster than a wrong password.
		_, _ = s.hasher.Verify(password, s.hasher.DummyDigest())
		s.metrics.RecordAuth(opLogin, metrics.OutcomeRejected)
		return domain.UserSnapshot{}, ErrUserNotFound
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.metrics.RecordAuth(opLogin, metrics.OutcomeError)
		return domain.UserSnapshot{}, oops.Code("AUTH_LOGIN_FAILED").With("operation", "verify password").With("user_id", user.ID).Wrap(err)
	}
	if !ok {
		s.metrics.RecordAuth(opLogin, metrics.OutcomeRejected)
		return domain.UserSnapshot{}, ErrInvalidCredential
	}

	s.metrics.RecordAuth(opLogin, metrics.OutcomeSuccess)
	return user.Snapshot(), nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeRejected)
			return ErrUserNotFound
		}
		s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeError)
		return oops.Code("AUTH_FORGOT_PASSWORD_FAILED").With("operation", "find user").Wrap(err)
	}

	code, err := s.otps.Generate()
	if err != nil {
		s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeError)
		return oops.Code("AUTH_FORGOT_PASSWORD_FAILED").With("operation", "generate otp").Wrap(err)
	}
	expiresAt := s.now().Add(s.cfg.OTPValidity)

	// the code must be stored before it is sent; only the challenge row is written
	if err := s.users.SetChallenge(ctx, user.ID, code, expiresAt); err != nil {
		s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeError)
		return oops.Code("AUTH_FORGOT_PASSWORD_FAILED").With("operation", "store otp").With("user_id", user.ID).Wrap(err)
	}

	msg := notify.ResetCodeMessage(user.Email, code, s.cfg.BaseURL, s.cfg.OTPValidity)
	if err := s.mail.Send(ctx, msg); err != nil {
		s.metrics.RecordNotificationFailure(metrics.KindOTP)
		s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeError)
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("reset code email not delivered")
		return &NotificationError{Kind: metrics.KindOTP, Err: err}
	}

	s.metrics.RecordAuth(opForgotPassword, metrics.OutcomeSuccess)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	password := strings.TrimSpace(in.Password)
	if err := s.validatePassword(password, strings.TrimSpace(in.ConfirmPassword)); err != nil {
		s.metrics.RecordAuth(opResetPassword, metrics.OutcomeRejected)
		return err
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.RecordAuth(opResetPassword, metrics.OutcomeRejected)
			return ErrUserNotFound
		}
		s.metrics.RecordAuth(opResetPassword, metrics.OutcomeError)
		return oops.Code("AUTH_RESET_PASSWORD_FAILED").With("operation", "find user").Wrap(err)
	}

	now := s.now()
	if !user.HasPendingOTP() || user.OTPExpiry.Before(now) {
		s.metrics.RecordAuth(opResetPassword, metrics.OutcomeRejected)
		return ErrOTPExpired
	}
	submitted := strings.TrimSpace(in.OTP)
	stored := strings.TrimSpace(*user.OTP)
	if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) != 1 {
		s.metrics.RecordAuth(opResetPassword, metrics.OutcomeRejected)
		return ErrOTPMismatch
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.metrics.RecordAuth(opResetPassword, metrics.OutcomeError)
		return oops.Code("AUTH_RESET_PASSWORD_FAILED").With("operation", "hash password").Wrap(err)
	}
	user.PasswordHash = hash
	user.ClearOTP()
	user.UpdatedAt = now

	// new hash and cleared code land in one transaction
	if err := s.users.Save(ctx, user); err != nil {
		s.metrics.RecordAuth(opResetPassword, metrics.OutcomeError)
		return oops.Code("AUTH_RESET_PASSWORD_FAILED").With("operation", "save user").With("user_id", user.ID).Wrap(err)
	}

	s.metrics.RecordAuth(opResetPassword, metrics.OutcomeSuccess)
	return nil
}
