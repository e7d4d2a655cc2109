package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/smallbiznis/orderdesk/internal/auth/domain"
	"github.com/smallbiznis/orderdesk/internal/auth/password"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"github.com/smallbiznis/orderdesk/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	sessionTokenBytes = 32
	sessionTTL        = 7 * 24 * time.Hour

	principalCacheSize = 4096
	principalCacheTTL  = 30 * time.Second

	minUsernameLength = 3
	maxUsernameLength = 30
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	GenID       *snowflake.Node
	Clock       clock.Clock
}

type cachedSession struct {
	principal principal.Principal
	expiresAt time.Time
}

type Service struct {
	log         *zap.Logger
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	genID       *snowflake.Node
	clock       clock.Clock
	cache       *expirable.LRU[string, cachedSession]
}

func New(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("auth.service"),
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		genID:       p.GenID,
		clock:       p.Clock,
		cache:       expirable.NewLRU[string, cachedSession](principalCacheSize, nil, principalCacheTTL),
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	return s.createUser(ctx, req.Username, req.Password, principal.RoleUser)
}

func (s *Service) EnsureAdmin(ctx context.Context, username, raw string) (*domain.User, error) {
	existing, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		if existing.Role != principal.RoleAdmin {
			s.log.Warn("bootstrap admin username belongs to a non-admin account", zap.String("username", existing.Username))
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	return s.createUser(ctx, username, raw, principal.RoleAdmin)
}

func (s *Service) createUser(ctx context.Context, rawUsername, raw string, role principal.Role) (*domain.User, error) {
	username := strings.TrimSpace(rawUsername)
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return nil, domain.ErrInvalidUsername
	}
	if err := password.Validate(raw); err != nil {
		return nil, domain.ErrInvalidPassword
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(raw)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
		Metadata:     datatypes.JSONMap{"provider": "local"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)),
	)
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		User:      user,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	tokenHash := hashToken(token)
	s.cache.Remove(tokenHash)

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}
	if err := s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now()); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}
	return nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (principal.Principal, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return principal.Principal{}, domain.ErrInvalidSession
	}

	tokenHash := hashToken(token)
	now := s.clock.Now()
	if cached, ok := s.cache.Get(tokenHash); ok {
		if now.Before(cached.expiresAt) {
			return cached.principal, nil
		}
		s.cache.Remove(tokenHash)
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return principal.Principal{}, domain.ErrInvalidSession
		}
		return principal.Principal{}, err
	}
	if session.RevokedAt != nil {
		return principal.Principal{}, domain.ErrSessionRevoked
	}
	if !now.Before(session.ExpiresAt) {
		return principal.Principal{}, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return principal.Principal{}, domain.ErrInvalidSession
		}
		return principal.Principal{}, err
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return principal.Principal{}, err
	}

	actor := user.Principal()
	s.cache.Add(tokenHash, cachedSession{
		principal: actor,
		expiresAt: session.ExpiresAt,
	})
	return actor, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
