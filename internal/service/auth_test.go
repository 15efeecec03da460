package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/csrental/cees/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionRepo struct {
	byHash map[string]*domain.UserSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byHash: make(map[string]*domain.UserSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *domain.UserSession) error {
	r.byHash[s.TokenHash] = s
	return nil
}

func (r *fakeSessionRepo) GetByHash(_ context.Context, hash string) (*domain.UserSession, error) {
	s, ok := r.byHash[hash]
	if !ok {
		return nil, domain.ErrUserSessionNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, id string, now time.Time) error {
	for _, s := range r.byHash {
		if s.ID == id {
			s.RevokedAt = &now
			return nil
		}
	}
	return domain.ErrUserSessionNotFound
}

func TestCreateSession_MintsValidToken(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := NewAuthService(repo, &seqIDs{})

	token, err := svc.CreateSession(context.Background(), "user-1", domain.RoleUser, 0)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "cees_"))
	assert.True(t, IsValidSessionToken(token))

	// Only the hash is stored
	for hash := range repo.byHash {
		assert.NotEqual(t, token, hash)
		assert.NotContains(t, token, hash)
	}
}

func TestValidateSessionToken_Success(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := NewAuthService(repo, &seqIDs{})

	token, err := svc.CreateSession(context.Background(), "admin-1", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	identity, err := svc.ValidateSessionToken(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "admin-1", identity.UserID)
	assert.Equal(t, domain.RoleAdmin, identity.Role)
	assert.True(t, identity.IsAdmin())
}

func TestValidateSessionToken_BadFormat(t *testing.T) {
	svc := NewAuthService(newFakeSessionRepo(), &seqIDs{})

	for _, token := range []string{
		"",
		"cees_",
		"cees_nothex",
		"wrong_" + strings.Repeat("ab", 32),
		strings.Repeat("ab", 32),
	} {
		_, err := svc.ValidateSessionToken(context.Background(), token)
		assert.Equal(t, domain.ErrUnauthenticated, err, token)
	}
}

func TestValidateSessionToken_Unknown(t *testing.T) {
	svc := NewAuthService(newFakeSessionRepo(), &seqIDs{})

	_, err := svc.ValidateSessionToken(context.Background(), "cees_"+strings.Repeat("ab", 32))

	assert.Equal(t, domain.ErrUnauthenticated, err)
}

func TestValidateSessionToken_Expired(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := NewAuthService(repo, &seqIDs{})

	token, err := svc.CreateSession(context.Background(), "user-1", domain.RoleUser, time.Nanosecond)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	_, err = svc.ValidateSessionToken(context.Background(), token)

	assert.Equal(t, domain.ErrSessionTokenStale, err)
}

func TestValidateSessionToken_Revoked(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := NewAuthService(repo, &seqIDs{})

	token, err := svc.CreateSession(context.Background(), "user-1", domain.RoleUser, time.Hour)
	require.NoError(t, err)

	var sessionID string
	for _, s := range repo.byHash {
		sessionID = s.ID
	}
	require.NoError(t, svc.RevokeSession(context.Background(), sessionID))

	_, err = svc.ValidateSessionToken(context.Background(), token)

	assert.Equal(t, domain.ErrUnauthenticated, err)
}
