package user

import (
	"context"
	"errors"
	"strings"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Summary, error)
}

type service struct {
	repo        Repository
	tokens      *auth.TokenManager
	revocations *auth.Revocations
}

func NewService(repo Repository, tokens *auth.TokenManager, revocations *auth.Revocations) Service {
	return &service{repo: repo, tokens: tokens, revocations: revocations}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	if in.Role == "" {
		in.Role = auth.RoleBuyer
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	u, err := s.repo.Create(ctx, &User{
		Username:      strings.TrimSpace(in.Username),
		Email:         normalizeEmail(in.Email),
		PasswordHash:  hashed,
		ContactNumber: in.ContactNumber,
		Address:       in.Address,
		Role:          in.Role,
	})
	if errors.Is(err, ErrEmailTaken) {
		log.Info("email already registered", zap.String("email", in.Email))
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	session, err := s.issue(u)
	if err != nil {
		log.Error("failed to generate jwt", zap.String("user_id", u.ID.String()), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	log.Info("user registered", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	return session, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Login"),
	)

	u, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		log.Info("login unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		log.Error("failed to load user", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	if !CheckPasswordHash(password, u.PasswordHash) {
		log.Info("login password mismatch", zap.String("user_id", u.ID.String()))
		return nil, ErrInvalidCredentials
	}

	session, err := s.issue(u)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return session, nil
}

func (s *service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		logger.FromCtx(ctx).Error("failed to revoke token",
			zap.String("layer", "service"),
			zap.String("method", "Logout"),
			zap.Error(err),
		)
		return apperror.Internal(err)
	}
	return nil
}

func (s *service) Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Summary, error) {
	out, err := s.repo.Summaries(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return out, nil
}

func (s *service) issue(u *User) (*Session, error) {
	token, claims, err := s.tokens.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
