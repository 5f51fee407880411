package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/ports"
	"github.com/tjdests/tjdests/internal/util"
)

// CredentialMatch is the outcome of checking a username/password pair.
type CredentialMatch int

const (
	MatchNone CredentialMatch = iota
	MatchPrimary
	MatchLegacy
)

func (m CredentialMatch) String() string {
	switch m {
	case MatchPrimary:
		return "primary"
	case MatchLegacy:
		return "legacy"
	}
	return "none"
}

type PasswordChangeNotifier interface {
	SendPasswordChanged(ctx context.Context, email, username string) error
}

type AuthConfig struct {
	MaxFailures       int
	LockoutWindow     time.Duration
	LoginLocked       bool
	Maintainer        string
	PasswordMinLength int
}

type LoginResult struct {
	User               *domain.User    `json:"user"`
	Session            *domain.Session `json:"-"`
	Token              string          `json:"token"`
	ExpiresAt          time.Time       `json:"expires_at"`
	NeedsPasswordReset bool            `json:"needs_password_reset"`
}

type AcceptTermsInput struct {
	AcceptTOS    bool
	NewPassword1 string
	NewPassword2 string
}

type AuthService struct {
	store    ports.Transactor
	attempts ports.LoginAttemptStore
	notifier PasswordChangeNotifier
	jwt      *util.JWTManager
	cfg      AuthConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService wires the authentication flows. attempts and notifier are
// optional; nil disables lockout and mail notifications respectively.
func NewAuthService(store ports.Transactor, attempts ports.LoginAttemptStore, notifier PasswordChangeNotifier, jwtManager *util.JWTManager, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = util.DefaultPasswordMinLength
	}
	if strings.TrimSpace(cfg.Maintainer) == "" {
		cfg.Maintainer = "the site maintainer"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:    store,
		attempts: attempts,
		notifier: notifier,
		jwt:      jwtManager,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AuthService) PasswordMinLength() int {
	return s.cfg.PasswordMinLength
}

func (s *AuthService) LockoutMessage() string {
	return fmt.Sprintf("Your account has been locked due to too many failed login attempts, please contact %s for assistance", s.cfg.Maintainer)
}

var (
	decoyOnce sync.Once
	decoySalt []byte
	decoyHash []byte
)

// burnDecoy spends the same argon2 work as a real primary check so unknown
// usernames take as long as wrong passwords.
func burnDecoy(password string) {
	decoyOnce.Do(func() {
		decoySalt = make([]byte, 16)
		decoyHash, _ = util.HashPassword("decoy-password", decoySalt)
	})
	_ = util.VerifyPassword(password, decoySalt, decoyHash)
}

// VerifyCredentials checks the primary hash first and, for accounts still
// flagged for legacy fallback, each retained legacy hash newest first. The
// only write it performs is stamping last_used_at on a matching legacy hash.
func (s *AuthService) VerifyCredentials(ctx context.Context, username, password string) (CredentialMatch, *domain.User, error) {
	repos := s.store.Repositories()

	user, err := repos.Users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			burnDecoy(password)
			return MatchNone, nil, nil
		}
		return MatchNone, nil, fmt.Errorf("find user: %w", err)
	}

	if util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return MatchPrimary, user, nil
	}
	if !user.UseLegacyHashes {
		return MatchNone, user, nil
	}

	creds, err := repos.LegacyCredentials.ListByUser(ctx, user.ID)
	if err != nil {
		return MatchNone, user, fmt.Errorf("list legacy credentials: %w", err)
	}
	for _, cred := range creds {
		if !util.VerifyLegacyHash(password, cred.PasswordHash) {
			continue
		}
		if err := repos.LegacyCredentials.TouchLastUsed(ctx, cred.ID, s.now()); err != nil {
			s.logger.Warn("failed to stamp legacy credential use",
				zap.Int64("credential_id", cred.ID), zap.String("user_id", user.ID.String()), zap.Error(err))
		}
		return MatchLegacy, user, nil
	}
	return MatchNone, user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.isLockedOut(ctx, username) {
		s.logger.Info("login rejected for locked username", zap.String("username", username))
		return nil, ErrAccountLocked
	}

	match, user, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if match == MatchNone || !user.IsActive {
		s.registerFailure(ctx, username)
		return nil, ErrInvalidCredentials
	}
	s.resetFailures(ctx, username)

	needsReset := match == MatchLegacy
	session, err := s.openSession(ctx, s.store.Repositories().Sessions, user, needsReset)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.Stringer("match", match),
		zap.Bool("needs_password_reset", needsReset))

	return &LoginResult{
		User:               user,
		Session:            session,
		Token:              session.Token,
		ExpiresAt:          session.ExpiresAt,
		NeedsPasswordReset: needsReset,
	}, nil
}

// Authenticate resolves a bearer or cookie token into its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, *domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrSessionInvalid
	}
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, nil, ErrSessionInvalid
	}

	repos := s.store.Repositories()
	session, err := repos.Sessions.FindActiveSession(ctx, token)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("find session: %w", err)
	}
	if session.ID != claims.SessionID || session.UserID != claims.UserID {
		return nil, nil, ErrSessionInvalid
	}

	user, err := repos.Users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrSessionInvalid
	}
	return user, session, nil
}

// Logout ends the session. The needs-reset flag goes with it.
func (s *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return nil
	}
	if err := s.store.Repositories().Sessions.DeactivateSession(ctx, session.ID); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// CompleteForcedReset replaces the primary credential of a session flagged by
// a legacy login, clears the account's legacy fallback and swaps the flagged
// session for a normal one. Every other session still awaiting the reset is
// ended. All writes share one transaction.
func (s *AuthService) CompleteForcedReset(ctx context.Context, user *domain.User, session *domain.Session, newPassword1, newPassword2 string) (*LoginResult, error) {
	if user == nil || session == nil {
		return nil, ErrSessionInvalid
	}
	if !session.RequiresPasswordReset(user) {
		return nil, ErrResetNotRequired
	}
	if err := s.validateNewPassword(user.Username, newPassword1, newPassword2); err != nil {
		return nil, err
	}

	hash, salt, err := util.DerivePassword(newPassword1)
	if err != nil {
		s.logger.Error("derive password failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, ErrPasswordUpdateFailed
	}

	var fresh *domain.Session
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Users.ReplacePrimaryCredential(ctx, user.ID, hash, salt); err != nil {
			return fmt.Errorf("replace primary credential: %w", err)
		}
		if err := repos.Sessions.DeactivateSession(ctx, session.ID); err != nil {
			return fmt.Errorf("deactivate flagged session: %w", err)
		}
		ended, err := repos.Sessions.DeactivateFlaggedByUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("deactivate other flagged sessions: %w", err)
		}
		if ended > 0 {
			s.logger.Info("ended other sessions awaiting reset", zap.String("user_id", user.ID.String()), zap.Int64("sessions", ended))
		}
		created, err := s.openSession(ctx, repos.Sessions, user, false)
		if err != nil {
			return err
		}
		if _, err := repos.PasswordResets.Record(ctx, &domain.PasswordReset{
			UserID:    user.ID,
			SessionID: created.ID,
			Reason:    domain.PasswordResetReasonLegacyMigration,
		}); err != nil {
			return fmt.Errorf("record password reset: %w", err)
		}
		fresh = created
		return nil
	})
	if err != nil {
		s.logger.Error("forced password reset failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, ErrPasswordUpdateFailed
	}

	user.PasswordHash = hash
	user.PasswordSalt = salt
	user.UseLegacyHashes = false
	s.logger.Info("forced password reset completed", zap.String("user_id", user.ID.String()))
	s.notifyPasswordChanged(ctx, user)

	return &LoginResult{
		User:      user,
		Session:   fresh,
		Token:     fresh.Token,
		ExpiresAt: fresh.ExpiresAt,
	}, nil
}

// AcceptTerms records terms acceptance together with the account's first
// self-chosen password. Accounts that may not use the site have their session
// ended and get the matching error.
func (s *AuthService) AcceptTerms(ctx context.Context, user *domain.User, session *domain.Session, input AcceptTermsInput) error {
	if user == nil {
		return ErrSessionInvalid
	}

	var denied error
	switch {
	case s.cfg.LoginLocked && !user.IsSuperuser:
		denied = ErrLoginRestricted
	case !user.IsStudent:
		denied = ErrNotStudent
	case user.IsBanned:
		denied = ErrAccountBanned
	}
	if denied != nil {
		if err := s.Logout(ctx, session); err != nil {
			s.logger.Warn("failed to end session of denied account", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
		return denied
	}

	if user.AcceptedTerms {
		return nil
	}
	if !input.AcceptTOS {
		return ErrTermsRequired
	}
	if err := s.validateNewPassword(user.Username, input.NewPassword1, input.NewPassword2); err != nil {
		return err
	}

	hash, salt, err := util.DerivePassword(input.NewPassword1)
	if err != nil {
		return fmt.Errorf("derive password: %w", err)
	}
	if err := s.store.Repositories().Users.AcceptTerms(ctx, user.ID, hash, salt); err != nil {
		return fmt.Errorf("accept terms: %w", err)
	}
	user.AcceptedTerms = true
	user.PasswordHash = hash
	user.PasswordSalt = salt
	return nil
}

func (s *AuthService) validateNewPassword(username, password1, password2 string) error {
	verr := &ValidationError{Message: "invalid password"}
	if password1 == "" {
		verr.add("new_password1", "This field is required.")
	}
	if password2 == "" {
		verr.add("new_password2", "This field is required.")
	}
	if password1 != "" && password2 != "" && password1 != password2 {
		verr.add("new_password2", "The two password fields didn't match.")
	}
	if password1 != "" {
		var perr *util.PasswordError
		if err := util.ValidatePassword(password1, util.PasswordRules{MinLength: s.cfg.PasswordMinLength, Username: username}); errors.As(err, &perr) {
			for _, problem := range perr.Problems {
				verr.add("new_password1", problem)
			}
		}
	}
	return verr.orNil()
}

func (s *AuthService) openSession(ctx context.Context, sessions ports.SessionRepository, user *domain.User, needsReset bool) (*domain.Session, error) {
	sessionID := uuid.New()
	token, expiresAt, err := s.jwt.Generate(user.ID, sessionID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	session, err := sessions.CreateSession(ctx, &domain.Session{
		ID:                 sessionID,
		UserID:             user.ID,
		Token:              token,
		NeedsPasswordReset: needsReset,
		ExpiresAt:          expiresAt,
		IsActive:           true,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *AuthService) notifyPasswordChanged(ctx context.Context, user *domain.User) {
	if s.notifier == nil || strings.TrimSpace(user.Email) == "" {
		return
	}
	if err := s.notifier.SendPasswordChanged(ctx, user.Email, user.Username); err != nil {
		s.logger.Warn("password change notification failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

// Lockout bookkeeping fails open: a Redis outage must not block every login.
func (s *AuthService) isLockedOut(ctx context.Context, username string) bool {
	if s.attempts == nil {
		return false
	}
	failures, err := s.attempts.Failures(ctx, username)
	if err != nil {
		s.logger.Warn("login attempt store unavailable", zap.Error(err))
		return false
	}
	return failures >= s.cfg.MaxFailures
}

func (s *AuthService) registerFailure(ctx context.Context, username string) {
	if s.attempts == nil {
		return
	}
	count, err := s.attempts.RegisterFailure(ctx, username, s.cfg.LockoutWindow)
	if err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
		return
	}
	if count >= s.cfg.MaxFailures {
		s.logger.Warn("username locked after repeated failures", zap.String("username", username), zap.Int("failures", count))
	}
}

func (s *AuthService) resetFailures(ctx context.Context, username string) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Reset(ctx, username); err != nil {
		s.logger.Warn("failed to reset login failures", zap.Error(err))
	}
}
