package appMiddleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := GetUserIDFromContext(r.Context())
		_, _ = io.WriteString(w, userID)
	})
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Authenticate(testSecret, "trekly", logger)(echoUser())

	valid := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "4f0b6a2e-3c5d-4b7e-9a1f-2d8c6e5b4a30",
		Issuer:    "trekly",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{
			name:       "valid token",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, valid),
			wantStatus: http.StatusOK,
			wantBody:   valid.Subject,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), valid),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u",
				Issuer:    "trekly",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			}}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "other issuer",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject: "u",
				Issuer:  "someone-else",
			}}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "no subject",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, Claims{RegisteredClaims: jwt.RegisteredClaims{
				Issuer: "trekly",
			}}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestWithUserIDFillsHolder(t *testing.T) {
	holder := &UserHolder{}
	ctx := WithUserHolder(httptest.NewRequest(http.MethodGet, "/", nil).Context(), holder)

	ctx = WithUserID(ctx, "abc")

	got, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", got)
	assert.Equal(t, "abc", holder.UserID)
}

func TestUserRateLimiter(t *testing.T) {
	rl := NewUserRateLimiter(1, 1, time.Minute)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/drafts", nil)
		req = req.WithContext(WithUserID(req.Context(), user))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusNoContent, call("alice"))
	assert.Equal(t, http.StatusTooManyRequests, call("alice"))
	assert.Equal(t, http.StatusNoContent, call("bob"), "limits are per user")
}
