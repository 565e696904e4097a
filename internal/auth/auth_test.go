package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", "222222", time.Hour)
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager("", "222222", time.Hour)
	require.Error(t, err)
}

func TestVerifyOTP(t *testing.T) {
	m := newTestManager(t)

	assert.True(t, m.VerifyOTP("+919876543210", "222222"))
	assert.False(t, m.VerifyOTP("+919876543210", "111111"))
	assert.False(t, m.VerifyOTP("", "222222"))
	assert.False(t, m.VerifyOTP("+919876543210", ""))
}

func TestSessionRoundTrip(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()

	token, err := m.IssueSession(now, "+919876543210")
	require.NoError(t, err)

	claims, err := m.VerifySession(token, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", claims.Phone)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifySession_Expired(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()

	token, err := m.IssueSession(now, "+919876543210")
	require.NoError(t, err)

	_, err = m.VerifySession(token, now.Add(2*time.Hour))
	require.Error(t, err)
}

func TestVerifySession_WrongSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager("other-secret", "222222", time.Hour)
	require.NoError(t, err)

	token, err := m.IssueSession(time.Now(), "+919876543210")
	require.NoError(t, err)

	_, err = other.VerifySession(token, time.Now())
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t)

	var gotPhone string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPhone = PhoneFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		token, err := m.IssueSession(time.Now(), "+919876543210")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "+919876543210", gotPhone)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"unauthorized"}`, rec.Body.String())
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
