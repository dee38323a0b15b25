package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"TuneBox/core/apperr"
	"TuneBox/logger"
	"TuneBox/model"
	"TuneBox/repository"

	"github.com/google/uuid"
)

// MinPasswordLength 密码最短长度
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)

// Limiter throttles repeated attempts per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Service handles registration, sign-in and role changes.
type Service struct {
	users   repository.UserRepository
	hasher  *Hasher
	tokens  *TokenIssuer
	limiter Limiter
}

// NewService builds the auth service. limiter may be nil.
func NewService(users repository.UserRepository, hasher *Hasher, tokens *TokenIssuer, limiter Limiter) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, limiter: limiter}
}

// Tokens exposes the issuer so the HTTP layer can verify bearer tokens.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates a User account and signs it in.
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.AuthResponse, error) {
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email address", apperr.ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrValidation)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: a user with this email already exists", apperr.ErrConflict)
	}
	existing, err = s.users.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: a user with this name already exists", apperr.ErrConflict)
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperr.ErrValidation, MinPasswordLength)
	}

	hash, salt, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		ID:             uuid.NewString(),
		Email:          email,
		Name:           name,
		HashedPassword: hash,
		Salt:           salt,
		Role:           model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// 并发注册时由唯一索引兜底
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, fmt.Errorf("%w: %v", apperr.ErrConflict, err)
		}
		return nil, err
	}

	logger.Info("[Register] 用户注册成功", logger.String("userId", user.ID), logger.String("name", user.Name))
	return s.respond(user)
}

// SignIn verifies name and password and issues a fresh token.
func (s *Service) SignIn(ctx context.Context, name, password string) (*model.AuthResponse, error) {
	return s.SignInFrom(ctx, name, password, "")
}

// SignInFrom is SignIn with the caller's network address. Attempts are
// throttled per name and address, so failures from one client do not lock
// the account for everyone else.
func (s *Service) SignInFrom(ctx context.Context, name, password, clientAddr string) (*model.AuthResponse, error) {
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, throttleKey(name, clientAddr))
		if err != nil {
			logger.Warn("[SignIn] 限流器不可用，放行请求", logger.ErrorField(err))
		} else if !allowed {
			logger.Warn("[SignIn] 登录尝试过于频繁",
				logger.String("name", name),
				logger.String("client", clientAddr))
			return nil, fmt.Errorf("%w: try again later", apperr.ErrRateLimited)
		}
	}

	user, err := s.users.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", apperr.ErrNotFound, name)
	}
	if !s.hasher.CheckPasswordHash(password, user.HashedPassword, user.Salt) {
		logger.Warn("[SignIn] 密码错误", logger.String("name", name))
		return nil, apperr.ErrAuth
	}

	return s.respond(user)
}

// PromoteToAdmin grants the Admin role to the named user.
func (s *Service) PromoteToAdmin(ctx context.Context, name string) (*model.User, error) {
	user, err := s.users.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", apperr.ErrNotFound, name)
	}
	if err := s.users.UpdateRole(ctx, user.ID, model.RoleAdmin); err != nil {
		return nil, err
	}
	user.Role = model.RoleAdmin
	logger.Info("[Admin] 用户已提升为管理员", logger.String("userId", user.ID), logger.String("name", name))
	return user, nil
}

func throttleKey(name, clientAddr string) string {
	if clientAddr == "" {
		return name
	}
	return name + "|" + clientAddr
}

func (s *Service) respond(user *model.User) (*model.AuthResponse, error) {
	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{Token: token, UserName: user.Name, UserID: user.ID}, nil
}
