package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedTestToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// fakeProvider mimics the identity provider's password-grant surface.
func fakeProvider(t *testing.T, accessToken string) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()

	r.Post("/token", func(w http.ResponseWriter, req *http.Request) {
		var body struct{ Email, Password string }
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))

		if body.Password != "correct-horse" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken,
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-1",
			"user":          map[string]string{"id": "u-1", "email": body.Email},
		})
	})

	r.Post("/signup", func(w http.ResponseWriter, req *http.Request) {
		var body struct{ Email, Password string }
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))

		if body.Email == "taken@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken,
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-2",
			"user":          map[string]string{"id": "u-2", "email": body.Email},
		})
	})

	r.Get("/user", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer "+accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "invalid token"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "u-1", "email": "ada@example.com"})
	})

	r.Post("/logout", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, baseURL string) (*Client, *SessionStore) {
	t.Helper()

	store, err := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	client, err := NewClient(ClientConfig{BaseURL: baseURL, APIKey: "anon-key", Store: store})
	require.NoError(t, err)
	return client, store
}

func TestSignInPersistsSession(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour)
	token := signedTestToken(t, exp)
	server := fakeProvider(t, token)
	client, store := newTestClient(t, server.URL)

	session, err := client.SignInWithPassword(context.Background(), Credentials{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, token, session.AccessToken)
	require.Equal(t, "u-1", session.User.ID)
	require.WithinDuration(t, exp, session.ExpiresAt, time.Second)

	persisted, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	require.Equal(t, session.AccessToken, persisted.AccessToken)

	current, ok := client.CurrentSession()
	require.True(t, ok)
	require.Equal(t, session.User, current.User)
}

func TestSignInInvalidCredentials(t *testing.T) {
	t.Parallel()

	server := fakeProvider(t, signedTestToken(t, time.Now().Add(time.Hour)))
	client, store := newTestClient(t, server.URL)

	_, err := client.SignInWithPassword(context.Background(), Credentials{Email: "ada@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	persisted, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

func TestSignUpConflict(t *testing.T) {
	t.Parallel()

	server := fakeProvider(t, signedTestToken(t, time.Now().Add(time.Hour)))
	client, _ := newTestClient(t, server.URL)

	_, err := client.SignUp(context.Background(), Credentials{Email: "taken@example.com", Password: "pw"})
	require.ErrorIs(t, err, ErrUserExists)

	session, err := client.SignUp(context.Background(), Credentials{Email: "new@example.com", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "u-2", session.User.ID)
	require.NotEmpty(t, session.AccessToken)
}

func TestGetUserRequiresSession(t *testing.T) {
	t.Parallel()

	token := signedTestToken(t, time.Now().Add(time.Hour))
	server := fakeProvider(t, token)
	client, _ := newTestClient(t, server.URL)

	_, err := client.GetUser(context.Background())
	require.ErrorIs(t, err, ErrNoSession)

	_, err = client.SignInWithPassword(context.Background(), Credentials{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	user, err := client.GetUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u-1", user.ID)
}

func TestSignOutClearsSession(t *testing.T) {
	t.Parallel()

	server := fakeProvider(t, signedTestToken(t, time.Now().Add(time.Hour)))
	client, store := newTestClient(t, server.URL)

	require.ErrorIs(t, client.SignOut(context.Background()), ErrNoSession)

	_, err := client.SignInWithPassword(context.Background(), Credentials{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, client.SignOut(context.Background()))

	_, ok := client.CurrentSession()
	require.False(t, ok)

	persisted, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

func TestClientRestoresPersistedSession(t *testing.T) {
	t.Parallel()

	store, err := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, store.Save(&Session{AccessToken: "tok", User: User{ID: "u-9"}}))

	client, err := NewClient(ClientConfig{BaseURL: "http://localhost:0", Store: store})
	require.NoError(t, err)

	session, ok := client.CurrentSession()
	require.True(t, ok)
	require.Equal(t, "u-9", session.User.ID)
}
