package credential

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspeksi/audit-dashboard/internal/shared"
)

func TestAuthHeader(t *testing.T) {
	store := NewMemoryStore("")
	assert.Empty(t, AuthHeader(store))

	require.NoError(t, store.Save("abc"))
	assert.Equal(t, "Bearer abc", AuthHeader(store).Get("Authorization"))

	require.NoError(t, store.Remove())
	_, ok := store.Get()
	assert.False(t, ok)
	assert.Empty(t, AuthHeader(nil))
}

func TestSessionStore(t *testing.T) {
	sess := &shared.Session{}
	store := FromSession(sess)
	_, ok := store.Get()
	assert.False(t, ok)

	require.NoError(t, store.Save("tok"))
	assert.Equal(t, "tok", sess.Get(TokenKey))
	token, ok := store.Get()
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	require.NoError(t, store.Remove())
	assert.Equal(t, "", sess.Get(TokenKey))

	assert.ErrorIs(t, FromSession(nil).Save("x"), shared.ErrNoCredential)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	store := NewFileStore(path)
	_, ok := store.Get()
	assert.False(t, ok)

	require.NoError(t, store.Save("file-token"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, ok := NewFileStore(path).Get()
	assert.True(t, ok)
	assert.Equal(t, "file-token", token)

	require.NoError(t, store.Remove())
	require.NoError(t, store.Remove())
	_, ok = store.Get()
	assert.False(t, ok)
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("remote-secret"))
	require.NoError(t, err)
	return token
}

func TestInspectJWT(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{"sub": "7", "username": "inspektur", "exp": exp.Unix()})

	claims, ok := Inspect(token)
	require.True(t, ok)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "inspektur", claims.Username)
	assert.True(t, exp.Equal(claims.ExpiresAt))

	assert.False(t, Expired(token, exp.Add(-time.Minute)))
	assert.True(t, Expired(token, exp))
}

func TestInspectOpaqueToken(t *testing.T) {
	_, ok := Inspect("opaque-session-token")
	assert.False(t, ok)
	assert.False(t, Expired("opaque-session-token", time.Now()))
}
