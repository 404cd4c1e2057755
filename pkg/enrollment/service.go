package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/critique/pkg/apperrors"
	"github.com/platinummonkey/critique/pkg/audit"
	"github.com/platinummonkey/critique/pkg/auth"
	"github.com/platinummonkey/critique/pkg/mail"
	"github.com/platinummonkey/critique/pkg/observability"
	"github.com/platinummonkey/critique/pkg/users"
	"github.com/platinummonkey/critique/pkg/validation"
)

const confirmationCodeField = "confirmation_code"

// SignupRequest asks for a confirmation code. The response echoes it back.
type SignupRequest struct {
	Username string `json:"username" validate:"required,max=150,username,notme"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

// TokenRequest exchanges a confirmation code for an access token
type TokenRequest struct {
	Username         string `json:"username" validate:"required"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

// TokenResponse carries the signed access token
type TokenResponse struct {
	Token string `json:"token"`
}

// UserStore is the subset of users.Store the flow needs
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*auth.User, error)
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
	Create(ctx context.Context, user *auth.User) error
	SetConfirmationCode(ctx context.Context, userID int64, hash string, expiresAt time.Time) error
	GetConfirmationCode(ctx context.Context, userID int64) (*users.ConfirmationCode, error)
	ConsumeConfirmationCode(ctx context.Context, userID int64, hash string) (bool, error)
}

// Service implements passwordless signup: a code is mailed, then traded for a token
type Service struct {
	users   UserStore
	codes   *auth.CodeGenerator
	tokens  *auth.TokenIssuer
	mailer  mail.Mailer
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Option configures a Service
type Option func(*Service)

// WithMetrics counts issued codes and token exchanges
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new Service
func NewService(store UserStore, codes *auth.CodeGenerator, tokens *auth.TokenIssuer, mailer mail.Mailer, logger *observability.Logger, opts ...Option) *Service {
	s := &Service{
		users:  store,
		codes:  codes,
		tokens: tokens,
		mailer: mailer,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestCode registers the (username, email) pair if it is new, or reuses the
// existing account for the exact pair, and mails a fresh confirmation code.
// The code is never returned to the caller.
func (s *Service) RequestCode(ctx context.Context, req SignupRequest) (*SignupRequest, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	byName, err := s.lookup(ctx, s.users.GetByUsername, req.Username)
	if err != nil {
		return nil, err
	}
	if byName != nil && byName.Email != req.Email {
		return nil, apperrors.Conflict("a user with this username is already registered")
	}

	byEmail, err := s.lookup(ctx, s.users.GetByEmail, req.Email)
	if err != nil {
		return nil, err
	}
	if byEmail != nil && byEmail.Username != req.Username {
		return nil, apperrors.Conflict("a user with this email is already registered")
	}

	user, outcome := byName, "existing"
	if user == nil {
		user = &auth.User{Username: req.Username, Email: req.Email, Role: auth.RoleUser}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		outcome = "new"
	}

	code, hash, expiresAt, err := s.codes.Generate()
	if err != nil {
		return nil, err
	}
	if err := s.users.SetConfirmationCode(ctx, user.ID, hash, expiresAt); err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, confirmationMessage(req.Email, code, expiresAt)); err != nil {
		s.logger.WithError(err).WithField("username", user.Username).Error("Failed to send confirmation code")
	}

	_ = audit.FromContext(ctx).LogAuthorization(ctx, audit.EventTypeAuthCodeIssued, &user.ID,
		audit.ResourceTypeUser, user.Username, audit.EventStatusSuccess, "confirmation code issued")
	if s.metrics != nil {
		s.metrics.SignupsTotal.WithLabelValues(outcome).Inc()
	}

	return &SignupRequest{Username: user.Username, Email: user.Email}, nil
}

// ExchangeCode trades a valid confirmation code for an access token. A code
// works once: a successful exchange clears it.
func (s *Service) ExchangeCode(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	stored, err := s.users.GetConfirmationCode(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.codes.Verify(req.ConfirmationCode, stored.Hash, stored.ExpiresAt); err != nil {
		return nil, s.reject(ctx, user, err)
	}

	consumed, err := s.users.ConsumeConfirmationCode(ctx, user.ID, stored.Hash)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, s.reject(ctx, user, auth.ErrCodeMismatch)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	_ = audit.FromContext(ctx).LogAuthorization(ctx, audit.EventTypeAuthTokenIssued, &user.ID,
		audit.ResourceTypeUser, user.Username, audit.EventStatusSuccess, "access token issued")
	s.countExchange("issued")

	return &TokenResponse{Token: token}, nil
}

func (s *Service) reject(ctx context.Context, user *auth.User, cause error) error {
	result, message := "mismatch", "Invalid confirmation code."
	if errors.Is(cause, auth.ErrCodeExpired) {
		result, message = "expired", "Confirmation code has expired."
	}

	_ = audit.FromContext(ctx).LogAuthorization(ctx, audit.EventTypeAuthTokenIssued, &user.ID,
		audit.ResourceTypeUser, user.Username, audit.EventStatusFailure, cause.Error())
	s.countExchange(result)

	return apperrors.NewValidationError(confirmationCodeField, message)
}

func (s *Service) countExchange(result string) {
	if s.metrics != nil {
		s.metrics.TokensIssuedTotal.WithLabelValues(result).Inc()
	}
}

// lookup treats not found as an absent user rather than an error
func (s *Service) lookup(ctx context.Context, get func(context.Context, string) (*auth.User, error), key string) (*auth.User, error) {
	user, err := get(ctx, key)
	if apperrors.IsNotFound(err) {
		return nil, nil
	}
	return user, err
}

func confirmationMessage(to, code string, expiresAt time.Time) mail.Message {
	return mail.Message{
		To:      to,
		Subject: "Your critique confirmation code",
		Body: fmt.Sprintf("Your confirmation code is %s\n\nIt expires at %s. Exchange it at POST /api/v1/auth/token.\n",
			code, expiresAt.UTC().Format(time.RFC1123)),
	}
}
