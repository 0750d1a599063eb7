// Package service contains the authentication and session-trust service.
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	pkgcrypto "github.com/and161185/talentgate/internal/crypto"
	"github.com/and161185/talentgate/internal/cache"
	"github.com/and161185/talentgate/internal/errs"
	"github.com/and161185/talentgate/internal/limiter"
	"github.com/and161185/talentgate/internal/metrics"
	"github.com/and161185/talentgate/internal/model"
	"github.com/and161185/talentgate/internal/repository"
	"github.com/and161185/talentgate/internal/token"
)

// Client-facing messages. Authentication failures never reveal which check failed.
const (
	MsgInvalidCredentials = "invalid credentials"
	MsgInvalidToken       = "invalid or expired token"
	MsgUserExists         = "user already exists"
	MsgUserNotFound       = "user not found"
	MsgPasswordPolicy     = "password does not meet requirements"
	MsgTooManyAttempts    = "too many login attempts, try again later"
)

// Auth event outcomes reported to the metrics recorder.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Deps are the collaborators of AuthService. Cache, Limiter, Logger, Metrics
// and Clock are optional.
type Deps struct {
	Users   repository.UserRepository
	Hasher  *pkgcrypto.Hasher
	Tokens  *token.Codec
	Cache   *cache.SessionCache
	Limiter limiter.Limiter
	Logger  *zap.Logger
	Metrics metrics.Recorder
	Clock   func() time.Time
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService orchestrates registration, login, logout and token validation.
type AuthService struct {
	users   repository.UserRepository
	hasher  *pkgcrypto.Hasher
	tokens  *token.Codec
	cache   *cache.SessionCache
	lim     limiter.Limiter
	log     *zap.Logger
	metrics metrics.Recorder
	now     func() time.Time

	lookups singleflight.Group
}

// NewAuthService constructs AuthService from explicit dependencies.
func NewAuthService(d Deps) *AuthService {
	s := &AuthService{
		users:   d.Users,
		hasher:  d.Hasher,
		tokens:  d.Tokens,
		cache:   d.Cache,
		lim:     d.Limiter,
		log:     d.Logger,
		metrics: d.Metrics,
		now:     d.Clock,
	}
	if s.hasher == nil {
		s.hasher = pkgcrypto.NewHasher(pkgcrypto.DefaultCost)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.cache == nil {
		s.cache = cache.NewSessionCache(nil, s.log, 0, 0)
	}
	if s.lim == nil {
		s.lim = limiter.Unlimited{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.AuthResult, error) {
	log := s.log.With(zap.String("email", in.Email))
	log.Info("registration attempt")

	if problems := pkgcrypto.ValidationErrors(in.Password); len(problems) > 0 {
		log.Warn("registration rejected: password policy", zap.Strings("problems", problems))
		s.event("register", outcomeRejected)
		return model.AuthResult{}, errs.Validation(MsgPasswordPolicy, problems...)
	}

	switch _, err := s.users.GetByEmail(ctx, in.Email); {
	case err == nil:
		log.Warn("registration rejected: email exists")
		s.event("register", outcomeRejected)
		return model.AuthResult{}, errs.Conflict(MsgUserExists)
	case !errors.Is(err, errs.ErrNotFound):
		s.event("register", outcomeError)
		return model.AuthResult{}, errs.Internal("lookup user", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.event("register", outcomeError)
		return model.AuthResult{}, errs.Internal("hash password", err)
	}

	u := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		IsAdmin:      false,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			// lost the race against a concurrent registration
			log.Warn("registration rejected: unique constraint")
			s.event("register", outcomeRejected)
			return model.AuthResult{}, errs.Conflict(MsgUserExists)
		}
		s.event("register", outcomeError)
		return model.AuthResult{}, errs.Internal("create user", err)
	}
	s.cache.SetUser(ctx, u)

	res, err := s.issue(u)
	if err != nil {
		s.event("register", outcomeError)
		return model.AuthResult{}, err
	}
	log.Info("registration successful", zap.Int64("user_id", u.ID))
	s.event("register", outcomeSuccess)
	return res, nil
}

// Login authenticates by email and password. clientAddr keys the lockout
// together with the email.
func (s *AuthService) Login(ctx context.Context, email, password, clientAddr string) (model.AuthResult, error) {
	log := s.log.With(zap.String("email", email))
	client := limiter.HashClient(clientAddr)

	allowed, retry, err := s.lim.Allow(ctx, email, client)
	if err != nil {
		s.event("login", outcomeError)
		return model.AuthResult{}, errs.Internal("login limiter", err)
	}
	if !allowed {
		log.Warn("login blocked", zap.Duration("retry_after", retry))
		s.event("login", "blocked")
		return model.AuthResult{}, errs.RateLimited(MsgTooManyAttempts)
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		s.hasher.BurnVerify(password)
		return model.AuthResult{}, s.loginFailed(ctx, log, email, client, "user not found")
	case err != nil:
		s.event("login", outcomeError)
		return model.AuthResult{}, errs.Internal("lookup user", err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return model.AuthResult{}, s.loginFailed(ctx, log, email, client, "invalid password")
	}
	if !u.IsActive {
		return model.AuthResult{}, s.loginFailed(ctx, log, email, client, "inactive user")
	}

	if err := s.lim.Success(ctx, email, client); err != nil {
		log.Warn("login limiter reset", zap.Error(err))
	}

	u.TouchLogin(s.now().UTC())
	if err := s.users.UpdateLogin(ctx, u.ID, *u.LastLoginAt); err != nil {
		s.event("login", outcomeError)
		return model.AuthResult{}, errs.Internal("update last login", err)
	}
	s.cache.SetUser(ctx, u)

	res, err := s.issue(u)
	if err != nil {
		s.event("login", outcomeError)
		return model.AuthResult{}, err
	}
	log.Info("login successful", zap.Int64("user_id", u.ID))
	s.event("login", outcomeSuccess)
	return res, nil
}

func (s *AuthService) loginFailed(ctx context.Context, log *zap.Logger, email string, client []byte, reason string) error {
	log.Warn("login failed", zap.String("reason", reason))
	blocked, _, err := s.lim.Failure(ctx, email, client)
	if err != nil {
		log.Error("login limiter failure", zap.Error(err))
	}
	if blocked {
		s.event("login", "blocked")
		return errs.RateLimited(MsgTooManyAttempts)
	}
	s.event("login", "invalid_credentials")
	return errs.Authentication(MsgInvalidCredentials)
}

// GetUserByID returns the user, preferring the cached snapshot. Concurrent
// misses for the same id share one database read.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if u, ok := s.cache.GetUser(ctx, id); ok {
		return u, nil
	}
	v, err, _ := s.lookups.Do(strconv.FormatInt(id, 10), func() (any, error) {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache.SetUser(ctx, u)
		return u, nil
	})
	if errors.Is(err, errs.ErrNotFound) {
		s.log.Warn("user not found", zap.Int64("user_id", id))
		return nil, errs.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, errs.Internal("lookup user", err)
	}
	cp := *v.(*model.User)
	return &cp, nil
}

// Logout revokes tok until the blacklist entry expires. Repeating it is harmless.
// Without a cache there is nowhere to record revocation and the call is a no-op.
func (s *AuthService) Logout(ctx context.Context, tok string) error {
	if tok == "" {
		return errs.Validation("token is required")
	}
	if !s.cache.Available() {
		s.log.Warn("logout without session cache, token stays valid until expiry")
	}
	s.cache.Blacklist(ctx, tok)
	s.log.Info("user logged out")
	s.event("logout", outcomeSuccess)
	return nil
}

// IsTokenBlacklisted reports whether tok was revoked.
func (s *AuthService) IsTokenBlacklisted(ctx context.Context, tok string) bool {
	return s.cache.IsBlacklisted(ctx, tok)
}

// ValidateToken checks revocation, then signature and expiry. Every failure
// yields the same client-facing error; the kind is logged.
func (s *AuthService) ValidateToken(ctx context.Context, tok string) (*model.Claims, error) {
	if s.IsTokenBlacklisted(ctx, tok) {
		s.log.Debug("token rejected", zap.String("reason", "revoked"))
		s.event("validate", "revoked")
		return nil, errs.Authentication(MsgInvalidToken)
	}
	claims, err := s.tokens.Verify(tok)
	if err != nil {
		s.log.Debug("token rejected", zap.String("reason", tokenReason(err)))
		s.event("validate", tokenReason(err))
		return nil, errs.Authentication(MsgInvalidToken)
	}
	s.event("validate", outcomeSuccess)
	return claims, nil
}

// RefreshToken issues a new token carrying the identity of a still-valid one.
// Expired, malformed and revoked tokens are refused.
func (s *AuthService) RefreshToken(ctx context.Context, tok string) (string, error) {
	if s.IsTokenBlacklisted(ctx, tok) {
		s.event("refresh", "revoked")
		return "", errs.Authentication(MsgInvalidToken)
	}
	fresh, err := s.tokens.Refresh(tok)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) || errors.Is(err, token.ErrTokenMalformed) {
			s.log.Debug("refresh rejected", zap.String("reason", tokenReason(err)))
			s.event("refresh", tokenReason(err))
			return "", errs.Authentication(MsgInvalidToken)
		}
		s.event("refresh", outcomeError)
		return "", errs.Internal("sign token", err)
	}
	s.event("refresh", outcomeSuccess)
	return fresh, nil
}

// DeactivateUser disables the account and drops its cached snapshot so the
// change is visible immediately.
func (s *AuthService) DeactivateUser(ctx context.Context, id int64) error {
	if err := s.users.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFound(MsgUserNotFound)
		}
		return errs.Internal("deactivate user", err)
	}
	s.cache.InvalidateUser(ctx, id)
	s.log.Info("user deactivated", zap.Int64("user_id", id))
	return nil
}

// DeleteUserByEmail removes the account row. Administrative escape hatch.
func (s *AuthService) DeleteUserByEmail(ctx context.Context, email string) (model.PublicUser, error) {
	u, err := s.users.DeleteByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.PublicUser{}, errs.NotFound(MsgUserNotFound)
		}
		return model.PublicUser{}, errs.Internal("delete user", err)
	}
	s.cache.InvalidateUser(ctx, u.ID)
	s.log.Info("user deleted", zap.Int64("user_id", u.ID), zap.String("email", email))
	return u.Public(), nil
}

func (s *AuthService) issue(u *model.User) (model.AuthResult, error) {
	tok, err := s.tokens.Generate(model.IdentityOf(u))
	if err != nil {
		return model.AuthResult{}, errs.Internal("sign token", err)
	}
	return model.AuthResult{Token: tok, User: u.Public()}, nil
}

func (s *AuthService) event(event, outcome string) {
	if s.metrics != nil {
		s.metrics.AuthEvent(event, outcome)
	}
}

func tokenReason(err error) string {
	if errors.Is(err, token.ErrTokenExpired) {
		return "expired"
	}
	return "malformed"
}
