package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/csrental/cees/internal/domain"
)

const sessionTokenPrefix = "cees_"

// DefaultSessionTTL is how long a minted session token stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionRepository persists user sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.UserSession) error
	GetByHash(ctx context.Context, hash string) (*domain.UserSession, error)
	Revoke(ctx context.Context, id string, now time.Time) error
}

// AuthService validates bearer session tokens and resolves them to an
// identity. Tokens are opaque: "cees_" followed by 64 hex characters, with
// only the SHA-256 hash stored server side.
type AuthService struct {
	sessionRepo SessionRepository
	uuidGen     UUIDGenerator
	now         func() time.Time
}

func NewAuthService(sessionRepo SessionRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		sessionRepo: sessionRepo,
		uuidGen:     uuidGen,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession mints a session token for a user. The plaintext token is
// returned exactly once.
func (s *AuthService) CreateSession(ctx context.Context, userID string, role domain.Role, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "user ID is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	token, err := generateSessionToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate session token", err)
	}

	now := s.now()
	session := &domain.UserSession{
		ID:        s.uuidGen.NewString(),
		UserID:    userID,
		Role:      role,
		TokenHash: hashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", err
	}

	return token, nil
}

// ValidateSessionToken resolves a bearer token to the identity it was
// minted for.
func (s *AuthService) ValidateSessionToken(ctx context.Context, token string) (*domain.Identity, error) {
	if !IsValidSessionToken(token) {
		return nil, domain.ErrUnauthenticated
	}

	session, err := s.sessionRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if err == domain.ErrUserSessionNotFound {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	if session.IsRevoked() {
		return nil, domain.ErrUnauthenticated
	}
	if session.IsExpired(s.now()) {
		return nil, domain.ErrSessionTokenStale
	}

	return &domain.Identity{UserID: session.UserID, Role: session.Role}, nil
}

// RevokeSession invalidates a session immediately.
func (s *AuthService) RevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "session ID is required")
	}
	return s.sessionRepo.Revoke(ctx, sessionID, s.now())
}

// RevokeSessionByToken invalidates the session behind a bearer token, for
// logout.
func (s *AuthService) RevokeSessionByToken(ctx context.Context, token string) error {
	if !IsValidSessionToken(token) {
		return domain.ErrUnauthenticated
	}

	session, err := s.sessionRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if err == domain.ErrUserSessionNotFound {
			return domain.ErrUnauthenticated
		}
		return err
	}

	return s.sessionRepo.Revoke(ctx, session.ID, s.now())
}

func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return sessionTokenPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// IsValidSessionToken checks the token format without touching storage.
func IsValidSessionToken(token string) bool {
	if !strings.HasPrefix(token, sessionTokenPrefix) {
		return false
	}
	hexPart := token[len(sessionTokenPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
