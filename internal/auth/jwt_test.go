// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gifty-app/gifty-api/internal/config"
	"github.com/gifty-app/gifty-api/internal/core"
)

func testJWTConfig(t *testing.T) config.JWTConfig {
	t.Helper()

	dir := t.TempDir()
	cfg := config.JWTConfig{
		PrivateKeyPath:    filepath.Join(dir, "private.pem"),
		PublicKeyPath:     filepath.Join(dir, "public.pem"),
		AccessTokenExpire: 15 * time.Minute,
		Issuer:            "gifty",
		Audience:          "gifty-api",
	}
	require.NoError(t, GenerateKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath))
	return cfg
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)

	token, expiresAt, err := m.CreateAccessToken(AccessTokenClaims{
		UserID: "4b1c7c1e-8a8f-4c55-9d1e-0a57d9a8f001",
		Email:  "anna@example.com",
		Role:   "user",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "4b1c7c1e-8a8f-4c55-9d1e-0a57d9a8f001", claims.UserID)
	assert.Equal(t, "anna@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsOtherAudience(t *testing.T) {
	cfg := testJWTConfig(t)
	issuer, err := NewJWTManager(cfg)
	require.NoError(t, err)

	cfg.Audience = "someone-else"
	verifier, err := NewJWTManager(cfg)
	require.NoError(t, err)

	token, _, err := issuer.CreateAccessToken(AccessTokenClaims{UserID: "u1", Role: "user"})
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(context.Background(), token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	cfg := testJWTConfig(t)
	cfg.AccessTokenExpire = -time.Minute
	m, err := NewJWTManager(cfg)
	require.NoError(t, err)

	token, _, err := m.CreateAccessToken(AccessTokenClaims{UserID: "u1", Role: "user"})
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), token)
	assert.Error(t, err)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	signer, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)
	other, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)

	token, _, err := signer.CreateAccessToken(AccessTokenClaims{UserID: "u1", Role: "user"})
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestJWKSHandler(t *testing.T) {
	m, err := NewJWTManager(testJWTConfig(t))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.GetJWKSHandler()(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&set))
	require.Len(t, set.Keys, 1)
	assert.Equal(t, m.GetKeyID(), set.Keys[0]["kid"])
	assert.NotContains(t, set.Keys[0], "d")
}
