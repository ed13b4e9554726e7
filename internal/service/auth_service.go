package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
	"github.com/aryan0dhankhar/deliveryhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/deliveryhub/internal/security"
	"github.com/aryan0dhankhar/deliveryhub/internal/security/auth"
)

// MinPasswordLength is enforced on every password a user chooses
const MinPasswordLength = 8

// Throttle tracks failed logins per email
type Throttle interface {
	Locked(ctx context.Context, email string) bool
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// AuthService handles signup, activation, login and invitations
type AuthService struct {
	store    domain.Store
	tokens   *auth.TokenManager
	throttle Throttle
	authz    *security.AuthorizationService
	forget   func(email string)
	cost     int
	now      func() time.Time
	logger   *slog.Logger
}

// AuthOption customizes an AuthService
type AuthOption func(*AuthService)

// WithThrottle enables login lockout
func WithThrottle(t Throttle) AuthOption {
	return func(s *AuthService) { s.throttle = t }
}

// WithIdentityInvalidation registers a hook called after a user's credentials change
func WithIdentityInvalidation(forget func(email string)) AuthOption {
	return func(s *AuthService) { s.forget = forget }
}

// WithBcryptCost overrides bcrypt.DefaultCost
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	store domain.Store,
	tokens *auth.TokenManager,
	authz *security.AuthorizationService,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	s := &AuthService{
		store:  store,
		tokens: tokens,
		authz:  authz,
		forget: func(string) {},
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SignupInput struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	OrganizationName string `json:"organization_name"`
}

type SignupResult struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
}

type SetPasswordInput struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type InviteInput struct {
	Emails         []string          `json:"emails"`
	Access         domain.AccessRole `json:"access"`
	OrganizationID string            `json:"organization_id"`
	InvitedBy      string            `json:"invited_by"`
}

type InviteResult struct {
	Message string   `json:"message"`
	UserIDs []string `json:"user_ids"`
}

type CompleteSignupInput struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ResetPasswordInput struct {
	Email           string `json:"email"`
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// StatusResult is the body of operations that only report success
type StatusResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Signup creates an organization and its first admin. The admin stays
// inactive until SetPassword.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	title := cases.Title(language.English)
	first := title.String(strings.TrimSpace(in.FirstName))
	last := title.String(strings.TrimSpace(in.LastName))
	orgName := strings.TrimSpace(in.OrganizationName)
	if first == "" {
		return nil, domain.Validation("first_name", "first_name is required")
	}
	if orgName == "" {
		return nil, domain.Validation("organization_name", "organization_name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, domain.Conflict("email already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	org := &domain.Organization{
		Name:        orgName,
		Description: fmt.Sprintf("Organization for %s %s", first, last),
		IsActive:    true,
	}
	user := &domain.User{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Access:    domain.AccessAdmin,
	}
	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		if err := tx.Organizations().Create(ctx, org); err != nil {
			return err
		}
		user.OrganizationID = org.ID
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization signed up",
		slog.String("organization_id", org.ID),
		slog.String("user_id", user.ID),
	)
	return &SignupResult{
		Status:         "success",
		Message:        "Signup successful. Please complete your registration to activate your account.",
		OrganizationID: org.ID,
		UserID:         user.ID,
	}, nil
}

// SetPassword activates a signed-up admin
func (s *AuthService) SetPassword(ctx context.Context, in SetPasswordInput) (*StatusResult, error) {
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, in.UserID)
	if err != nil {
		return nil, userErr(err)
	}
	if user.IsActive {
		return nil, domain.Validation("user_id", "User is already active")
	}
	if err := s.activate(ctx, user, in.Password); err != nil {
		return nil, err
	}
	return &StatusResult{Status: "success", Message: "Password set successfully. You can now log in."}, nil
}

// Login verifies credentials and issues a bearer token
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, domain.Validation("email", "Email and password required")
	}
	if s.throttle != nil && s.throttle.Locked(ctx, email) {
		metrics.ObserveLogin("locked")
		return nil, domain.Unauthenticated("too many failed login attempts, try again later")
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		s.logger.Info("login failed", slog.String("email", email))
		s.recordFailure(ctx, email)
		metrics.ObserveLogin("invalid")
		return nil, domain.Unauthenticated("Invalid email or password")
	}
	if !user.IsActive {
		metrics.ObserveLogin("inactive")
		return nil, domain.Forbidden("User account is inactive")
	}

	token, err := s.tokens.GenerateToken(user.Email, user.ID, user.OrganizationID, string(user.Access))
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now().UTC()
	user.LastLogin = &now
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.logger.Warn("failed to reset login throttle", slog.String("error", err.Error()))
		}
	}
	metrics.ObserveLogin("success")
	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{AccessToken: token, TokenType: "bearer"}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Fail(ctx, email); err != nil {
		s.logger.Warn("failed to record login failure", slog.String("error", err.Error()))
	}
}

// InviteUsers creates inactive users in the caller's organization. Emails
// that already belong to a user are skipped.
func (s *AuthService) InviteUsers(ctx context.Context, caller *domain.Identity, in InviteInput) (*InviteResult, error) {
	if err := s.authz.Require(caller, security.PermInviteUsers); err != nil {
		return nil, err
	}
	if len(in.Emails) == 0 {
		return nil, domain.Validation("emails", "at least one email is required")
	}
	access := in.Access
	if access == "" {
		access = domain.AccessViewer
	}
	if !access.Valid() {
		return nil, domain.Validation("access", "invalid access %q", in.Access)
	}
	if _, err := s.store.Organizations().GetByID(ctx, in.OrganizationID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Organization not found")
		}
		return nil, err
	}
	if err := s.authz.RequireOrganization(caller, in.OrganizationID); err != nil {
		return nil, err
	}
	inviter := s.resolveInviter(ctx, in.InvitedBy)

	emails := make([]string, 0, len(in.Emails))
	seen := map[string]bool{}
	for _, raw := range in.Emails {
		email, err := normalizeEmail(raw)
		if err != nil {
			return nil, err
		}
		if !seen[email] {
			seen[email] = true
			emails = append(emails, email)
		}
	}

	ids := []string{}
	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		for _, email := range emails {
			if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
				continue
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			// nobody knows this password; the user sets one at userSignup
			hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost)
			if err != nil {
				return fmt.Errorf("failed to hash placeholder password: %w", err)
			}
			user := &domain.User{
				OrganizationID: in.OrganizationID,
				Email:          email,
				Access:         access,
				PasswordHash:   string(hash),
				InvitedBy:      inviter,
			}
			if err := tx.Users().Create(ctx, user); err != nil {
				return err
			}
			ids = append(ids, user.ID)
		}
		if len(ids) == 0 {
			return domain.Validation("emails", "All users already exist")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("users invited",
		slog.String("organization_id", in.OrganizationID),
		slog.Int("count", len(ids)),
	)
	return &InviteResult{
		Message: fmt.Sprintf("%d user(s) invited successfully", len(ids)),
		UserIDs: ids,
	}, nil
}

// resolveInviter looks invited_by up as an email, then a user id, then a first name
func (s *AuthService) resolveInviter(ctx context.Context, ref string) *string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	users := s.store.Users()
	var (
		user *domain.User
		err  error
	)
	switch {
	case strings.Contains(ref, "@"):
		user, err = users.GetByEmail(ctx, ref)
	default:
		user, err = users.GetByID(ctx, ref)
		if err != nil {
			user, err = users.GetByFirstName(ctx, ref)
		}
	}
	if err != nil {
		s.logger.Debug("invited_by not resolved", slog.String("invited_by", ref))
		return nil
	}
	return &user.ID
}

// CompleteSignup activates an invited user
func (s *AuthService) CompleteSignup(ctx context.Context, in CompleteSignupInput) (*StatusResult, error) {
	if in.Password != in.ConfirmPassword {
		return nil, domain.Validation("confirm_password", "Passwords do not match")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Invalid or expired invitation link")
		}
		return nil, err
	}
	if user.IsActive {
		return nil, domain.Validation("user_id", "User already activated")
	}
	if !strings.EqualFold(strings.TrimSpace(in.Email), user.Email) {
		return nil, domain.Validation("email", "Email does not match the invited user")
	}
	if err := s.activate(ctx, user, in.Password); err != nil {
		return nil, err
	}
	return &StatusResult{Status: "success", Message: "User signup completed successfully"}, nil
}

// ResetPassword replaces a password after checking the current one
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (*StatusResult, error) {
	if in.Email == "" || in.OldPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return nil, domain.Validation("email", "All fields are required")
	}
	if in.NewPassword != in.ConfirmPassword {
		return nil, domain.Validation("confirm_password", "Passwords do not match")
	}
	if err := checkPassword(in.NewPassword); err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, userErr(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)) != nil {
		return nil, domain.Unauthenticated("current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}
	s.forget(user.Email)
	s.logger.Info("password reset", slog.String("user_id", user.ID))
	return &StatusResult{Status: "success", Message: "Password successfully reset"}, nil
}

func (s *AuthService) activate(ctx context.Context, user *domain.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.IsActive = true
	if err := s.store.Users().Update(ctx, user); err != nil {
		return err
	}
	s.forget(user.Email)
	s.logger.Info("user activated", slog.String("user_id", user.ID))
	return nil
}

func checkPassword(p string) error {
	if len(p) < MinPasswordLength {
		return domain.Validation("password", "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Validation("email", "invalid email address %q", raw)
	}
	return email, nil
}

func userErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("User not found")
	}
	return err
}
