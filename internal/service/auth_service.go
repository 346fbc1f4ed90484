package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog-service/internal/audit"
	"blog-service/internal/config"
	"blog-service/internal/events"
	"blog-service/internal/models"
	"blog-service/internal/repository/postgres"
	"blog-service/internal/token"
	"blog-service/internal/util"
)

// SignupRequest represents a registration form.
type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest represents login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id,omitempty"`
	Username     string `json:"username"`
	Role         string `json:"role"`
}

// AuthService handles email verification, registration and sessions.
type AuthService struct {
	users           UserStore
	otp             OTPRegistry
	passwords       Credentials
	tokens          TokenIssuer
	publisher       events.Publisher
	audit           audit.Recorder
	admin           config.AdminConfig
	requireVerified bool
	logger          *zap.Logger
	now             func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users UserStore,
	otpRegistry OTPRegistry,
	passwords Credentials,
	tokens TokenIssuer,
	publisher events.Publisher,
	recorder audit.Recorder,
	admin config.AdminConfig,
	requireVerified bool,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:           users,
		otp:             otpRegistry,
		passwords:       passwords,
		tokens:          tokens,
		publisher:       publisher,
		audit:           recorder,
		admin:           admin,
		requireVerified: requireVerified,
		logger:          logger,
		now:             time.Now,
	}
}

// RequestEmailVerification sends a code to an address that is not yet
// registered.
func (s *AuthService) RequestEmailVerification(ctx context.Context, email string, meta RequestMeta) error {
	email = util.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return external(err, "failed to look up user")
	}
	if existing != nil {
		return ErrEmailRegistered
	}

	if err := s.otp.RequestCode(ctx, email); err != nil {
		return err
	}
	s.record(ctx, models.AuthEventOTPRequested, email, token.RoleUser, true, meta, "")
	return nil
}

// ResendOTP issues a fresh code for an address that already requested one.
func (s *AuthService) ResendOTP(ctx context.Context, email string, meta RequestMeta) error {
	email = util.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := s.otp.ResendCode(ctx, email); err != nil {
		return err
	}
	s.record(ctx, models.AuthEventOTPRequested, email, token.RoleUser, true, meta, "resend")
	return nil
}

// VerifyOTP consumes a code.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string, meta RequestMeta) error {
	email = util.NormalizeEmail(email)
	if err := s.otp.Verify(ctx, email, strings.TrimSpace(code)); err != nil {
		s.record(ctx, models.AuthEventOTPFailed, email, token.RoleUser, false, meta, err.Error())
		return err
	}
	s.record(ctx, models.AuthEventOTPVerified, email, token.RoleUser, true, meta, "")
	return nil
}

// Signup validates and stores a new user.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest, meta RequestMeta) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := util.NormalizeEmail(req.Email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	username = strings.ToLower(username)

	taken, err := s.users.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, external(err, "failed to check email")
	}
	if taken {
		return nil, ErrEmailRegistered
	}
	taken, err = s.users.UsernameTaken(ctx, username, "")
	if err != nil {
		return nil, external(err, "failed to check username")
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	if s.requireVerified {
		verified, err := s.otp.Verified(ctx, email)
		if err != nil {
			return nil, err
		}
		if !verified {
			return nil, ErrEmailNotVerified
		}
	}

	digest, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, invalid(err.Error())
	}

	now := s.now().UTC()
	user := &models.User{
		UserID:       uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		Role:         token.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, postgres.ErrDuplicateEmail):
			return nil, ErrEmailRegistered
		case errors.Is(err, postgres.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		}
		return nil, external(err, "failed to create user")
	}

	s.logger.Info("User registered",
		util.String("user_id", user.UserID),
		util.String("email", util.MaskEmail(email)),
	)
	s.record(ctx, models.AuthEventSignup, user.UserID, token.RoleUser, true, meta, "")
	s.publish(ctx, events.New(models.EventUserRegistered, user.UserID, user.UserID,
		map[string]string{"username": user.Username}))
	return user, nil
}

// Login authenticates the configured admin or a registered user.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*LoginResult, error) {
	email := util.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.admin.Email != "" && email == s.admin.Email {
		return s.adminLogin(ctx, req.Password, meta)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, external(err, "failed to look up user")
	}
	if user == nil || !s.passwords.Verify(req.Password, user.PasswordHash) {
		s.record(ctx, models.AuthEventLoginFailed, email, token.RoleUser, false, meta, "bad credentials")
		return nil, ErrInvalidCredentials
	}
	if user.BlockStatus || user.DeleteStatus {
		s.record(ctx, models.AuthEventLoginFailed, user.UserID, user.Role, false, meta, "blocked")
		return nil, ErrUserBlocked
	}

	if _, err := s.users.SetLoginStatus(ctx, user.UserID, true); err != nil {
		return nil, external(err, "failed to update login status")
	}

	access, refresh, err := s.tokens.IssuePair(token.Payload{
		token.KeyEmail:  user.Email,
		token.KeyUserID: user.UserID,
		token.KeyRole:   user.Role,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", util.String("user_id", user.UserID))
	s.record(ctx, models.AuthEventLogin, user.UserID, user.Role, true, meta, "")
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.UserID,
		Username:     user.Username,
		Role:         user.Role,
	}, nil
}

func (s *AuthService) adminLogin(ctx context.Context, password string, meta RequestMeta) (*LoginResult, error) {
	if s.admin.PasswordHash == "" || !s.passwords.Verify(password, s.admin.PasswordHash) {
		s.record(ctx, models.AuthEventLoginFailed, s.admin.Username, token.RoleAdmin, false, meta, "bad credentials")
		return nil, ErrInvalidCredentials
	}

	access, refresh, err := s.tokens.IssuePair(token.Payload{
		token.KeyUsername: s.admin.Username,
		token.KeyRole:     token.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Admin logged in", util.String("username", s.admin.Username))
	s.record(ctx, models.AuthEventLogin, s.admin.Username, token.RoleAdmin, true, meta, "")
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     s.admin.Username,
		Role:         token.RoleAdmin,
	}, nil
}

// Logout clears the caller's login flag.
func (s *AuthService) Logout(ctx context.Context, claims *token.Claims, meta RequestMeta) error {
	userID := claims.User.UserID()
	ok, err := s.users.SetLoginStatus(ctx, userID, false)
	if err != nil {
		return external(err, "failed to update login status")
	}
	if !ok {
		return ErrUserNotFound
	}
	s.record(ctx, models.AuthEventLogout, userID, token.RoleUser, true, meta, "")
	return nil
}

// Refresh mints an access token from refresh claims. Blocked and deleted
// users cannot refresh.
func (s *AuthService) Refresh(ctx context.Context, claims *token.Claims, meta RequestMeta) (string, error) {
	userID := claims.User.UserID()
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", external(err, "failed to look up user")
	}
	if user == nil || user.DeleteStatus {
		return "", ErrUserNotFound
	}
	if user.BlockStatus {
		return "", ErrUserBlocked
	}

	access, err := s.tokens.IssueAccess(claims.User)
	if err != nil {
		return "", err
	}
	s.record(ctx, models.AuthEventRefresh, userID, token.RoleUser, true, meta, "")
	return access, nil
}

// AdminLogout records the admin logout. Admin sessions carry no server
// state.
func (s *AuthService) AdminLogout(ctx context.Context, claims *token.Claims, meta RequestMeta) error {
	s.record(ctx, models.AuthEventLogout, claims.User.String(token.KeyUsername), token.RoleAdmin, true, meta, "")
	return nil
}

// AdminRefresh mints an admin access token from refresh claims.
func (s *AuthService) AdminRefresh(ctx context.Context, claims *token.Claims, meta RequestMeta) (string, error) {
	access, err := s.tokens.IssueAccess(claims.User)
	if err != nil {
		return "", err
	}
	s.record(ctx, models.AuthEventRefresh, claims.User.String(token.KeyUsername), token.RoleAdmin, true, meta, "")
	return access, nil
}

// SetUserBlocked blocks or unblocks a user. Blocked users cannot log in
// or refresh; access tokens already issued run until they expire.
func (s *AuthService) SetUserBlocked(ctx context.Context, claims *token.Claims, userID string, blocked bool, meta RequestMeta) error {
	ok, err := s.users.SetBlockStatus(ctx, userID, blocked)
	if err != nil {
		return external(err, "failed to update block status")
	}
	if !ok {
		return ErrUserNotFound
	}

	admin := claims.User.String(token.KeyUsername)
	state := "unblocked"
	if blocked {
		state = "blocked"
	}
	s.logger.Info("User block status changed",
		util.String("user_id", userID),
		util.Bool("blocked", blocked),
		util.String("by", admin),
	)
	s.record(ctx, models.AuthEventUserBlocked, userID, token.RoleUser, true, meta, state+" by "+admin)
	s.publish(ctx, events.New(models.EventUserBlocked, userID, admin, map[string]string{"state": state}))
	return nil
}

func (s *AuthService) record(ctx context.Context, eventType, subject, role string, success bool, meta RequestMeta, details string) {
	s.audit.Record(ctx, models.AuthEvent{
		EventID:   uuid.NewString(),
		EventTime: s.now().UTC(),
		EventType: eventType,
		Subject:   subject,
		Role:      role,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   success,
		Details:   details,
	})
}

func (s *AuthService) publish(ctx context.Context, evt models.DomainEvent) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish event",
			util.String("type", evt.Type),
			util.String("key", evt.Key),
			util.ErrorField(err),
		)
	}
}
