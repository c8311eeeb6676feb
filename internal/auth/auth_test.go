package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "cancerdash.test"}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseValidToken(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub":    "admin",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": "dataset:admin",
	}, testConfig.Secret)

	claims, err := Parse(signed, testConfig)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Subject)
	require.True(t, claims.HasScope(ScopeDatasetAdmin))
	require.False(t, claims.HasScope("dataset:write"))
}

func TestParseScopesAsList(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub":    "admin",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{"dataset:admin", "other"},
	}, testConfig.Secret)

	claims, err := Parse(signed, testConfig)
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeDatasetAdmin))
	require.True(t, claims.HasScope("other"))
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub": "admin",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testConfig.Secret)

	_, err := Parse(signed, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub": "admin",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}, "not-the-secret")

	_, err := Parse(signed, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"sub": "admin",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, testConfig.Secret)

	_, err := Parse(signed, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareGuardsAdminPathsOnly(t *testing.T) {
	mw := NewMiddleware(testConfig)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := mw.Wrap(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/series", nil)
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/admin/reload", nil)
	rr = httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewarePassesClaimsThrough(t *testing.T) {
	mw := NewMiddleware(testConfig)
	var got *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	wrapped := mw.Wrap(next)

	signed := signToken(t, jwt.MapClaims{
		"sub":    "admin",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": "dataset:admin",
	}, testConfig.Secret)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/reload", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	require.Equal(t, "admin", got.Subject)
}
