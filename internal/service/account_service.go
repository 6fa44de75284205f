package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/session"
	"storefront-service/internal/store"
	"storefront-service/internal/textkey"
	"storefront-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Account roles returned by Login
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// AdminCredentials configures the single static administrator
type AdminCredentials struct {
	Email    string
	Password string
}

// AccountService handles registration, login and password resets
type AccountService struct {
	repo        store.Repository
	tokens      *session.ResetTokenStore
	dispatcher  Dispatcher
	admin       AdminCredentials
	frontendURL string
	bcryptCost  int
	logger      *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	repo store.Repository,
	tokens *session.ResetTokenStore,
	dispatcher Dispatcher,
	admin AdminCredentials,
	frontendURL string,
) *AccountService {
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(nil, 0)
	}
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	return &AccountService{
		repo:        repo,
		tokens:      tokens,
		dispatcher:  dispatcher,
		admin:       admin,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		bcryptCost:  bcrypt.DefaultCost,
		logger:      util.GetLogger(),
	}
}

// RegisterRequest represents a sign-up
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Account is the public view of a logged in user
type Account struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Register creates a customer with a hashed credential
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*Account, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Register")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := textkey.Clean(req.Name)
	if email == "" || name == "" {
		return nil, fmt.Errorf("%w: name and email are required", models.ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, minPasswordLength)
	}

	existing, err := s.repo.GetCustomerByEmail(ctx, email)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s: %w", email, models.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to hash password: %w", err))
	}

	customer := &models.Customer{
		Name:         name,
		Email:        email,
		Phone:        defaultCustomerPhone,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, util.RecordError(span, err)
	}

	s.logger.Info("Customer registered", zap.Int64("customer_id", customer.ID), zap.String("email", email))
	return &Account{ID: customer.ID, Name: name, Email: email, Role: RoleCustomer}, nil
}

// Login checks the static admin credentials first, then the customer's
// stored hash. Customers created implicitly by a purchase have no
// credential and cannot log in until they reset their password.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Account, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	if s.admin.Email != "" && s.admin.Password != "" && email == s.admin.Email && password == s.admin.Password {
		return &Account{Name: "Administrator", Email: s.admin.Email, Role: RoleAdmin}, nil
	}

	customer, err := s.repo.GetCustomerByEmail(ctx, email)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	if customer == nil || customer.PasswordHash == "" {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
	}

	name := customer.Name
	if name == "" {
		name = defaultCustomerName
	}
	return &Account{ID: customer.ID, Name: name, Email: customer.Email, Role: RoleCustomer}, nil
}

// ForgotPassword issues a reset token for a registered email and hands the
// reset link to the notifier. Unknown emails get the same silent success.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := util.StartSpan(ctx, "AccountService.ForgotPassword")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("%w: email is required", models.ErrValidation)
	}

	customer, err := s.repo.GetCustomerByEmail(ctx, email)
	if err != nil {
		return util.RecordError(span, err)
	}
	if customer == nil {
		s.logger.Info("Password reset requested for unknown email", zap.String("email", email))
		return nil
	}

	token, err := s.tokens.Issue(ctx, email)
	if errors.Is(err, session.ErrPersist) {
		s.logger.Warn("Reset token issued but not persisted", zap.String("email", email), zap.Error(err))
	} else if err != nil {
		return util.RecordError(span, err)
	}
	util.ResetTokensIssuedTotal.Inc()

	name := customer.Name
	if name == "" {
		name = defaultCustomerName
	}
	s.dispatcher.Dispatch(notify.NewNotification(models.EventTypePasswordResetRequested, customer.Email,
		models.PasswordResetPayload{
			CustomerName: name,
			Token:        token,
			ResetLink:    s.resetLink(token),
			ExpiresIn:    s.tokens.TTL().String(),
		}))

	s.logger.Info("Password reset token issued", zap.String("email", email))
	return nil
}

// ResetPasswordRequest carries a reset token and the new password twice
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPassword consumes a token and stores the new credential. A token
// works at most once.
func (s *AccountService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	ctx, span := util.StartSpan(ctx, "AccountService.ResetPassword")
	defer span.End()

	token := strings.TrimSpace(req.Token)
	if token == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return fmt.Errorf("%w: token and password are required", models.ErrValidation)
	}
	if len(req.NewPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, minPasswordLength)
	}
	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", models.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return util.RecordError(span, fmt.Errorf("failed to hash password: %w", err))
	}

	// A customer removed after issuance still burns the token.
	var orphaned bool
	err = s.tokens.Consume(ctx, token, func(email string) error {
		err := s.repo.UpdateCustomerPassword(ctx, email, string(hash))
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("Reset token for a customer that no longer exists", zap.String("email", email))
			orphaned = true
			return nil
		}
		return err
	})
	if orphaned && (err == nil || errors.Is(err, session.ErrPersist)) {
		err = fmt.Errorf("customer no longer exists: %w", models.ErrInvalidOrExpired)
	}
	switch {
	case errors.Is(err, models.ErrInvalidOrExpired):
		util.ResetTokensConsumedTotal.WithLabelValues("invalid").Inc()
		return err
	case errors.Is(err, session.ErrPersist):
		s.logger.Warn("Reset token consumed but not persisted", zap.Error(err))
	case err != nil:
		util.ResetTokensConsumedTotal.WithLabelValues("error").Inc()
		return util.RecordError(span, err)
	}

	util.ResetTokensConsumedTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Password reset completed")
	return nil
}

func (s *AccountService) resetLink(token string) string {
	return s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}
